package period

import (
	"fmt"
	"sort"
	"time"

	"lvstat/internal/table"
)

// Column names of long-format tables.
const (
	TimeColumn  = "TIME_PERIOD"
	ValueColumn = "VALUE"
)

// FormatReport counts what FormatLong did to a table.
type FormatReport struct {
	Rows    int          // rows written
	Zero    int          // rows dropped because VALUE was 0
	Invalid int          // rows dropped because the label did not parse
	ByKind  map[Kind]int // written rows per source granularity
}

// FormatLong replaces the TIME_PERIOD labels of a long table with the
// first day of each period. Rows whose VALUE is exactly zero are treated as
// missing and dropped, as are rows whose label cannot be parsed. The result
// is stably sorted by date.
func FormatLong(t *table.Table) (*table.Table, FormatReport, error) {
	rep := FormatReport{ByKind: map[Kind]int{}}
	ti := t.Index(TimeColumn)
	vi := t.Index(ValueColumn)
	if ti < 0 || vi < 0 {
		return nil, rep, fmt.Errorf("long table needs %s and %s columns, have %v", TimeColumn, ValueColumn, t.Header)
	}

	type dated struct {
		at  time.Time
		row []string
	}
	kept := make([]dated, 0, len(t.Rows))
	for _, row := range t.Rows {
		if table.ParseFloat(row[vi]) == 0 {
			rep.Zero++
			continue
		}
		p, err := Parse(row[ti])
		if err != nil {
			rep.Invalid++
			continue
		}
		out := append([]string(nil), row...)
		out[ti] = p.Date()
		kept = append(kept, dated{at: p.Start, row: out})
		rep.ByKind[p.Kind]++
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].at.Before(kept[j].at) })

	res := table.New(t.Header...)
	res.Rows = make([][]string, len(kept))
	for i, d := range kept {
		res.Rows[i] = d.row
	}
	rep.Rows = len(res.Rows)
	return res, rep, nil
}
