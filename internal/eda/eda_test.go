package eda

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lvstat/internal/table"
)

func writeAnnual(t *testing.T) string {
	t.Helper()
	tb := table.New("Year", "GDP", "Exports", "Rate/Share", "Empty")
	tb.Append("1990", "1", "1", "1", "")
	tb.Append("1995", "10", "20", "5", "")
	tb.Append("1996", "12", "24", "4", "")
	tb.Append("1997", "", "30", "3", "")
	tb.Append("1998", "16", "32", "0", "")
	tb.Append("1999", "18", "36", "1", "")
	path := filepath.Join(t.TempDir(), "merged_df_annual.csv")
	require.NoError(t, table.WriteFile(path, tb))
	return path
}

func TestLoad_FiltersYears(t *testing.T) {
	df, err := Load(writeAnnual(t), 1995)
	require.NoError(t, err)
	assert.Equal(t, 5, df.Nrow())
	years := df.Col("Year").Float()
	assert.Equal(t, 1995.0, years[0])
	gdp := df.Col("GDP").Float()
	assert.True(t, math.IsNaN(gdp[2]))
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.csv"), 1995)
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "noyear.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n"), 0o644))
	_, err = Load(path, 1995)
	require.Error(t, err)
}

func TestCorrelation(t *testing.T) {
	nan := math.NaN()
	m, rows := Correlation([][]float64{
		{1, 2, 3, 4, nan, 6},
		{2, 4, 6, 8, 10, 0},
		{4, 3, 2, 1, 1, 1},
	})
	require.Equal(t, 4, rows)
	assert.InDelta(t, 1, m[0][1], 1e-12)
	assert.InDelta(t, -1, m[0][2], 1e-12)
	assert.InDelta(t, m[1][2], m[2][1], 1e-12)
	assert.Equal(t, 1.0, m[1][1])

	m, rows = Correlation([][]float64{{0, nan}, {1, 2}})
	assert.Zero(t, rows)
	assert.Nil(t, m)

	m, rows = Correlation([][]float64{{1}, {3}})
	assert.Equal(t, 1, rows)
	assert.Nil(t, m)

	m, rows = Correlation([][]float64{{1, 2, 3}, {5, 5, 5}})
	require.Equal(t, 3, rows)
	assert.Equal(t, 1.0, m[0][0])
	assert.True(t, math.IsNaN(m[1][1]))
}

func TestGenerate(t *testing.T) {
	df, err := Load(writeAnnual(t), 1995)
	require.NoError(t, err)
	out := t.TempDir()

	rep, err := Generate(df, ResearchQuestion{
		Name:         "RQ1",
		Indicators:   []string{"GDP", "Exports", "Rate/Share", "Absent"},
		ScatterPairs: [][2]string{{"GDP", "Exports"}, {"GDP", "Absent"}},
		Combined:     []string{"GDP", "Exports"},
	}, out, zap.NewNop())
	require.NoError(t, err)

	dir := filepath.Join(out, "RQ1")
	for _, name := range []string{
		"timeseries_GDP.png",
		"timeseries_Rate_Share.png",
		CombinedFile,
		"scatter_Exports_vs_GDP.png",
		"correlation_heatmap.png",
		"correlation_matrix.csv",
	} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
	assert.Contains(t, rep.Skipped, "timeseries_Absent.png")
	assert.Contains(t, rep.Skipped, "scatter_Absent_vs_GDP.png")

	m, err := table.ReadFile(filepath.Join(dir, "correlation_matrix.csv"))
	require.NoError(t, err)
	assert.Equal(t, []string{"", "GDP", "Exports", "Rate/Share"}, m.Header)
	assert.Len(t, m.Rows, 3)
}

func TestGenerate_NoCompleteRows(t *testing.T) {
	df, err := Load(writeAnnual(t), 1995)
	require.NoError(t, err)
	rep, err := Generate(df, ResearchQuestion{Name: "RQ2", Indicators: []string{"GDP", "Empty"}}, t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	assert.Contains(t, rep.Skipped, "correlation_heatmap.png")
}

func TestFileSafe(t *testing.T) {
	assert.Equal(t, "a_b_c", FileSafe("a/b/c"))
	assert.Equal(t, "GDP (Quarterly)", FileSafe("GDP (Quarterly)"))
}
