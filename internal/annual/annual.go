// Package annual reduces the merged indicator table to one row per year.
//
// Continuous indicators (flows such as GDP or passenger volumes) are summed
// over the year and interior gaps are filled by linear interpolation.
// Discrete indicators (stocks and rates such as unemployment) are averaged
// and left as they are. A year without observations is a gap, never a zero.
package annual

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"lvstat/internal/indicator"
	"lvstat/internal/period"
	"lvstat/internal/table"
)

// YearColumn is the key column of annual tables.
const YearColumn = "Year"

// Unclassified column policies.
const (
	PolicyDrop = "drop"
	PolicySum  = "sum"
	PolicyMean = "mean"
)

// Options controls Aggregate.
type Options struct {
	Continuous   []string // output order of continuous columns
	Discrete     []string // output order of discrete columns
	Unclassified string   // policy for columns in neither list
	Logger       *zap.Logger
}

// Result is the annual table plus bookkeeping about what was done.
type Result struct {
	Table        *table.Table
	Classes      indicator.Classes
	Interpolated map[string][]int // column -> years filled by interpolation
	Missing      []string         // configured columns absent from the input
	Dropped      []string         // unclassified columns dropped
}

// Aggregate groups merged rows by calendar year and applies the per-class
// reduction, then interpolates continuous columns.
func Aggregate(merged *table.Table, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	policy := opts.Unclassified
	if policy == "" {
		policy = PolicyDrop
	}
	switch policy {
	case PolicyDrop, PolicySum, PolicyMean:
	default:
		return nil, fmt.Errorf("unknown unclassified policy %q", policy)
	}

	ti := merged.Index(period.TimeColumn)
	if ti < 0 {
		return nil, fmt.Errorf("merged table has no %s column", period.TimeColumn)
	}

	res := &Result{Classes: indicator.Classes{}, Interpolated: map[string][]int{}}
	var cols []string
	for _, name := range opts.Continuous {
		if merged.Has(name) {
			cols = append(cols, name)
			res.Classes[name] = indicator.Continuous
		} else {
			res.Missing = append(res.Missing, name)
		}
	}
	for _, name := range opts.Discrete {
		if merged.Has(name) {
			cols = append(cols, name)
			res.Classes[name] = indicator.Discrete
		} else {
			res.Missing = append(res.Missing, name)
		}
	}
	for i, name := range merged.Header {
		if i == ti {
			continue
		}
		if _, ok := res.Classes[name]; ok {
			continue
		}
		switch policy {
		case PolicySum:
			res.Classes[name] = indicator.Continuous
			cols = append(cols, name)
		case PolicyMean:
			res.Classes[name] = indicator.Discrete
			cols = append(cols, name)
		default:
			res.Dropped = append(res.Dropped, name)
		}
	}
	if len(res.Missing) > 0 {
		logger.Warn("Configured indicators not present in merged table", zap.Strings("columns", res.Missing))
	}
	if len(res.Dropped) > 0 {
		logger.Info("Dropping unclassified indicators", zap.Strings("columns", res.Dropped))
	}

	colIdx := make(map[string]int, len(cols))
	for _, name := range cols {
		colIdx[name] = merged.Index(name)
	}
	// year -> column -> observations
	groups := map[int]map[string][]float64{}
	for _, row := range merged.Rows {
		at, err := period.ParseDate(row[ti])
		if err != nil {
			logger.Debug("Skipping row with invalid date", zap.String("value", row[ti]))
			continue
		}
		g, ok := groups[at.Year()]
		if !ok {
			g = map[string][]float64{}
			groups[at.Year()] = g
		}
		for _, name := range cols {
			v := table.ParseFloat(row[colIdx[name]])
			if !math.IsNaN(v) {
				g[name] = append(g[name], v)
			}
		}
	}

	years := make([]int, 0, len(groups))
	for y := range groups {
		years = append(years, y)
	}
	sort.Ints(years)

	values := make(map[string][]float64, len(cols))
	for _, name := range cols {
		vals := make([]float64, len(years))
		for i, y := range years {
			obs := groups[y][name]
			if res.Classes[name] == indicator.Continuous {
				vals[i] = Sum(obs)
			} else {
				vals[i] = Mean(obs)
			}
		}
		if res.Classes[name] == indicator.Continuous {
			var filled []int
			vals, filled = Interpolate(years, vals)
			if len(filled) > 0 {
				res.Interpolated[name] = filled
			}
		}
		values[name] = vals
	}

	out := table.New(append([]string{YearColumn}, cols...)...)
	out.Rows = make([][]string, len(years))
	for i, y := range years {
		row := make([]string, 0, len(cols)+1)
		row = append(row, strconv.Itoa(y))
		for _, name := range cols {
			row = append(row, table.FormatFloat(values[name][i]))
		}
		out.Rows[i] = row
	}
	res.Table = out
	return res, nil
}

// Sum adds the observations; no observations yield NaN.
func Sum(obs []float64) float64 {
	if len(obs) == 0 {
		return math.NaN()
	}
	s := 0.0
	for _, v := range obs {
		s += v
	}
	return s
}

// Mean averages the observations; no observations yield NaN.
func Mean(obs []float64) float64 {
	if len(obs) == 0 {
		return math.NaN()
	}
	return Sum(obs) / float64(len(obs))
}

// Interpolate fills NaN values lying between two known values by linear
// interpolation over years. Leading and trailing NaNs are kept. It returns
// the filled slice and the years that were filled.
func Interpolate(years []int, vals []float64) ([]float64, []int) {
	out := append([]float64(nil), vals...)
	var filled []int
	prev := -1
	for i, v := range out {
		if math.IsNaN(v) {
			continue
		}
		if prev >= 0 && i-prev > 1 {
			x0, x1 := float64(years[prev]), float64(years[i])
			y0, y1 := out[prev], v
			for j := prev + 1; j < i; j++ {
				frac := (float64(years[j]) - x0) / (x1 - x0)
				out[j] = y0 + frac*(y1-y0)
				filled = append(filled, years[j])
			}
		}
		prev = i
	}
	return out, filled
}
