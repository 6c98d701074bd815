// Package profile renders a markdown data-quality report for a pipeline table.
package profile

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"lvstat/internal/indicator"
	"lvstat/internal/table"
)

// Options describes the table being profiled.
type Options struct {
	Title        string
	Source       string
	KeyColumn    string // Year or TIME_PERIOD
	Classes      indicator.Classes
	Interpolated map[string][]int
}

// ColumnStats summarises one value column.
type ColumnStats struct {
	Name         string
	NonEmpty     int
	MissingPct   float64
	First, Last  string // key of the first and last non-empty cell
	Nums         []float64
	Interpolated int
	Class        indicator.Class
}

// Stats computes per-column statistics for every column except the key.
func Stats(t *table.Table, opts Options) []ColumnStats {
	ki := t.Index(opts.KeyColumn)
	var out []ColumnStats
	for i, col := range t.Header {
		if i == ki {
			continue
		}
		cs := ColumnStats{Name: col, Class: opts.Classes.Of(col), Interpolated: len(opts.Interpolated[col])}
		for _, row := range t.Rows {
			if row[i] == "" {
				continue
			}
			cs.NonEmpty++
			if ki >= 0 {
				if cs.First == "" {
					cs.First = row[ki]
				}
				cs.Last = row[ki]
			}
			if f := table.ParseFloat(row[i]); !math.IsNaN(f) {
				cs.Nums = append(cs.Nums, f)
			}
		}
		cs.MissingPct = safeDiv(float64(len(t.Rows)-cs.NonEmpty)*100, float64(len(t.Rows)))
		sort.Float64s(cs.Nums)
		out = append(out, cs)
	}
	return out
}

// Build returns the markdown report.
func Build(t *table.Table, opts Options) string {
	title := opts.Title
	if title == "" {
		title = "Indicator table profile"
	}
	lines := []string{
		"# " + title,
		"",
		"## Dataset shape",
	}
	if opts.Source != "" {
		lines = append(lines, fmt.Sprintf("- Source: `%s`", opts.Source))
	}
	lines = append(lines,
		fmt.Sprintf("- Rows: %s", fmtInt(len(t.Rows))),
		fmt.Sprintf("- Columns: %s", fmtInt(len(t.Header))),
	)
	if ki := t.Index(opts.KeyColumn); ki >= 0 && len(t.Rows) > 0 {
		lines = append(lines, fmt.Sprintf("- `%s` range: %s to %s", opts.KeyColumn, t.Rows[0][ki], t.Rows[len(t.Rows)-1][ki]))
	}
	lines = append(lines, "")

	stats := Stats(t, opts)

	lines = append(lines, "## Coverage")
	for _, cs := range stats {
		span := "no data"
		if cs.NonEmpty > 0 {
			span = fmt.Sprintf("%s to %s", cs.First, cs.Last)
		}
		lines = append(lines, fmt.Sprintf("- `%s`: non_empty=%s, missing=%.1f%%, span=%s", cs.Name, fmtInt(cs.NonEmpty), cs.MissingPct, span))
	}
	lines = append(lines, "")

	lines = append(lines, "## Numeric summaries")
	for _, cs := range stats {
		nums := cs.Nums
		if len(nums) == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("- `%s`: count=%s, min=%s, median=%s, mean=%s, max=%s",
			cs.Name, fmtInt(len(nums)), fmt4g(nums[0]), fmt4g(median(nums)), fmt4g(mean(nums)), fmt4g(nums[len(nums)-1]),
		))
	}
	lines = append(lines, "")

	if len(opts.Classes) > 0 {
		lines = append(lines, "## Aggregation")
		for _, cs := range stats {
			line := fmt.Sprintf("- `%s`: %s", cs.Name, cs.Class)
			if cs.Interpolated > 0 {
				line += fmt.Sprintf(", interpolated=%s (%s)", fmtInt(cs.Interpolated), joinInts(opts.Interpolated[cs.Name]))
			}
			lines = append(lines, line)
		}
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, ", ")
}

func fmtInt(v int) string {
	s := strconv.Itoa(v)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	n := len(s)
	if n <= 3 {
		if neg {
			return "-" + s
		}
		return s
	}
	var parts []string
	for n > 3 {
		parts = append([]string{s[n-3:]}, parts...)
		s = s[:n-3]
		n = len(s)
	}
	if s != "" {
		parts = append([]string{s}, parts...)
	}
	out := strings.Join(parts, ",")
	if neg {
		return "-" + out
	}
	return out
}

func fmt4g(v float64) string { return strconv.FormatFloat(v, 'g', 4, 64) }

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// median expects xs sorted.
func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	n := len(xs)
	if n%2 == 1 {
		return xs[n/2]
	}
	return (xs[n/2-1] + xs[n/2]) / 2
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
