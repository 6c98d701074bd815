package eda

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"lvstat/internal/table"
)

// Correlation computes the Pearson correlation matrix of cols. Zero is
// treated as missing and only the rows where every column is present are
// used. It returns the matrix and the number of rows used; the matrix is
// nil when fewer than two complete rows remain.
func Correlation(cols [][]float64) ([][]float64, int) {
	if len(cols) == 0 {
		return nil, 0
	}
	n := len(cols[0])
	var keep []int
	for i := 0; i < n; i++ {
		ok := true
		for _, c := range cols {
			if i >= len(c) || c[i] == 0 || math.IsNaN(c[i]) {
				ok = false
				break
			}
		}
		if ok {
			keep = append(keep, i)
		}
	}
	if len(keep) < 2 {
		return nil, len(keep)
	}

	data := make([][]float64, len(cols))
	for j, c := range cols {
		data[j] = make([]float64, len(keep))
		for k, i := range keep {
			data[j][k] = c[i]
		}
	}
	m := make([][]float64, len(cols))
	for a := range data {
		m[a] = make([]float64, len(cols))
		for b := range data {
			if a == b {
				m[a][b] = 1
				if !(stat.Variance(data[a], nil) > 0) {
					m[a][b] = math.NaN()
				}
				continue
			}
			m[a][b] = stat.Correlation(data[a], data[b], nil)
		}
	}
	return m, len(keep)
}

// WriteMatrix saves a labelled square matrix as CSV.
func WriteMatrix(path string, names []string, m [][]float64) error {
	t := table.New(append([]string{""}, names...)...)
	for i, name := range names {
		row := make([]string, 0, len(names)+1)
		row = append(row, name)
		for j := range names {
			row = append(row, table.FormatFloat(m[i][j]))
		}
		t.Append(row...)
	}
	return table.WriteFile(path, t)
}
