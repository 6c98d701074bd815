// Package merge joins harmonized indicator series into one wide table
// keyed by date.
package merge

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"lvstat/internal/indicator"
	"lvstat/internal/period"
	"lvstat/internal/table"
)

// Series is one indicator reduced to a single value per date.
type Series struct {
	Name   string
	Values map[time.Time]float64 // NaN marks a date with rows but no numeric value
}

// FromLong sums the VALUE column of a formatted long table per date.
// Rows with an unparseable date are skipped; non-numeric values count as
// missing.
func FromLong(name string, t *table.Table) (Series, error) {
	ti := t.Index(period.TimeColumn)
	vi := t.Index(period.ValueColumn)
	if ti < 0 || vi < 0 {
		return Series{}, fmt.Errorf("series %q: need %s and %s columns", name, period.TimeColumn, period.ValueColumn)
	}
	vals, _ := t.Floats(period.ValueColumn)
	s := Series{Name: name, Values: map[time.Time]float64{}}
	for i, row := range t.Rows {
		at, err := period.ParseDate(row[ti])
		if err != nil {
			continue
		}
		s.Values[at] = addSkipNaN(s.Values, at, vals[i])
	}
	return s, nil
}

// LoadFile reads a formatted file and names its series after the file.
func LoadFile(path string, names map[string]string) (Series, error) {
	t, err := table.ReadFile(path)
	if err != nil {
		return Series{}, err
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return FromLong(indicator.ReadableName(stem, names), t)
}

func addSkipNaN(m map[time.Time]float64, at time.Time, v float64) float64 {
	cur, seen := m[at]
	switch {
	case !seen:
		return v
	case math.IsNaN(cur):
		return v
	case math.IsNaN(v):
		return cur
	default:
		return cur + v
	}
}

// Merge outer-joins series on date. Columns follow the order of series;
// series sharing a name are summed into one column. Rows are sorted by
// date and absent cells are empty.
func Merge(series []Series) *table.Table {
	var names []string
	cols := map[string]map[time.Time]float64{}
	dates := map[time.Time]struct{}{}
	for _, s := range series {
		col, ok := cols[s.Name]
		if !ok {
			col = map[time.Time]float64{}
			cols[s.Name] = col
			names = append(names, s.Name)
		}
		for at, v := range s.Values {
			col[at] = addSkipNaN(col, at, v)
			dates[at] = struct{}{}
		}
	}

	order := make([]time.Time, 0, len(dates))
	for at := range dates {
		order = append(order, at)
	}
	sort.Slice(order, func(i, j int) bool { return order[i].Before(order[j]) })

	out := table.New(append([]string{period.TimeColumn}, names...)...)
	out.Rows = make([][]string, 0, len(order))
	for _, at := range order {
		row := make([]string, 0, len(names)+1)
		row = append(row, at.Format(period.DateLayout))
		for _, n := range names {
			v, ok := cols[n][at]
			if !ok {
				row = append(row, "")
				continue
			}
			row = append(row, table.FormatFloat(v))
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}
