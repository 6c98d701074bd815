// Package reshape turns wide statistical tables (one column per period)
// into long tables (one row per entity and period).
package reshape

import (
	"fmt"
	"math"
	"strings"

	"lvstat/internal/period"
	"lvstat/internal/table"
)

// EurostatGeoColumn is the combined dimension header Eurostat puts in front
// of the period columns.
const EurostatGeoColumn = `geo\TIME_PERIOD`

// WorldBankMeta are the non-period columns of a World Bank bulk CSV.
var WorldBankMeta = []string{"Country Name", "Country Code", "Indicator Name", "Indicator Code"}

// Melt unpivots valueCols into TIME_PERIOD / VALUE pairs. Output columns
// are idCols followed by TIME_PERIOD and VALUE; rows are ordered by value
// column first.
func Melt(t *table.Table, idCols, valueCols []string) (*table.Table, error) {
	idIdx, err := indices(t, idCols)
	if err != nil {
		return nil, err
	}
	valIdx, err := indices(t, valueCols)
	if err != nil {
		return nil, err
	}
	header := append(append([]string(nil), idCols...), period.TimeColumn, period.ValueColumn)
	out := table.New(header...)
	out.Rows = make([][]string, 0, len(t.Rows)*len(valueCols))
	for vi, col := range valIdx {
		for _, row := range t.Rows {
			rec := make([]string, 0, len(header))
			for _, i := range idIdx {
				rec = append(rec, row[i])
			}
			rec = append(rec, valueCols[vi], row[col])
			out.Rows = append(out.Rows, rec)
		}
	}
	return out, nil
}

func indices(t *table.Table, cols []string) ([]int, error) {
	out := make([]int, len(cols))
	for i, c := range cols {
		idx := t.Index(c)
		if idx < 0 {
			return nil, fmt.Errorf("column %q not found", c)
		}
		out[i] = idx
	}
	return out, nil
}

// SplitColumns separates period columns from metadata columns.
func SplitColumns(header []string) (meta, periods []string) {
	for _, h := range header {
		if period.IsLabel(h) {
			periods = append(periods, h)
		} else {
			meta = append(meta, h)
		}
	}
	return meta, periods
}

// Eurostat reshapes a raw Eurostat table. The geo\TIME_PERIOD column is
// renamed to geo, rows not matching filters (column -> required value) are
// removed and observations without a value are dropped.
func Eurostat(t *table.Table, filters map[string]string) (*table.Table, error) {
	wide := &table.Table{Header: append([]string(nil), t.Header...), Rows: t.Rows}
	wide.Rename(EurostatGeoColumn, "geo")

	if len(filters) > 0 {
		var err error
		wide, err = filterRows(wide, filters)
		if err != nil {
			return nil, err
		}
	}

	meta, periods := SplitColumns(wide.Header)
	long, err := Melt(wide, meta, periods)
	if err != nil {
		return nil, err
	}
	return dropMissing(long, false), nil
}

// WorldBank reshapes a World Bank bulk CSV (already read past its preamble)
// and keeps only the rows of country. Values that are not numeric are
// treated as missing and dropped.
func WorldBank(t *table.Table, country string) (*table.Table, error) {
	wide := table.New()
	keep := make([]int, 0, len(t.Header))
	for i, h := range t.Header {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		wide.Header = append(wide.Header, h)
		keep = append(keep, i)
	}
	wide.Rows = make([][]string, len(t.Rows))
	for r, row := range t.Rows {
		rec := make([]string, len(keep))
		for j, i := range keep {
			rec[j] = row[i]
		}
		wide.Rows[r] = rec
	}

	var periods []string
	for _, h := range wide.Header {
		if !contains(WorldBankMeta, h) {
			periods = append(periods, h)
		}
	}
	long, err := Melt(wide, WorldBankMeta, periods)
	if err != nil {
		return nil, err
	}
	ti := long.Index(period.TimeColumn)
	for _, row := range long.Rows {
		row[ti] = strings.TrimSpace(row[ti])
	}
	long = dropMissing(long, true)

	ci := long.Index("Country Name")
	out := table.New(long.Header...)
	for _, row := range long.Rows {
		if row[ci] == country {
			out.Rows = append(out.Rows, row)
		}
	}
	return out, nil
}

func filterRows(t *table.Table, filters map[string]string) (*table.Table, error) {
	idx := make(map[int]string, len(filters))
	for col, want := range filters {
		i := t.Index(col)
		if i < 0 {
			return nil, fmt.Errorf("filter column %q not found", col)
		}
		idx[i] = want
	}
	out := table.New(t.Header...)
	for _, row := range t.Rows {
		ok := true
		for i, want := range idx {
			if strings.TrimSpace(row[i]) != want {
				ok = false
				break
			}
		}
		if ok {
			out.Rows = append(out.Rows, row)
		}
	}
	return out, nil
}

// dropMissing removes rows without a VALUE. With numeric set, any value
// that does not parse as a number counts as missing and parsed values are
// rewritten in canonical form.
func dropMissing(t *table.Table, numeric bool) *table.Table {
	vi := t.Index(period.ValueColumn)
	out := table.New(t.Header...)
	for _, row := range t.Rows {
		v := strings.TrimSpace(row[vi])
		if numeric {
			f := table.ParseFloat(v)
			if math.IsNaN(f) {
				continue
			}
			row[vi] = table.FormatFloat(f)
		} else if v == "" || v == "NaN" || v == ":" {
			continue
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
