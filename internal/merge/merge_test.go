package merge

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lvstat/internal/table"
)

func day(y int, m time.Month) time.Time { return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC) }

func TestFromLong_SumsPerDate(t *testing.T) {
	in := table.New("unit", "TIME_PERIOD", "VALUE")
	in.Append("A", "2020-01-01", "1.5")
	in.Append("B", "2020-01-01", "2")
	in.Append("A", "2020-04-01", "")
	in.Append("A", "2020-07-01", "x")
	in.Append("B", "2020-07-01", "4")
	in.Append("A", "not a date", "9")

	s, err := FromLong("GDP", in)
	require.NoError(t, err)
	assert.Equal(t, "GDP", s.Name)
	require.Len(t, s.Values, 3)
	assert.Equal(t, 3.5, s.Values[day(2020, 1)])
	assert.True(t, math.IsNaN(s.Values[day(2020, 4)]))
	assert.Equal(t, 4.0, s.Values[day(2020, 7)])
}

func TestFromLong_MissingColumns(t *testing.T) {
	_, err := FromLong("x", table.New("TIME_PERIOD"))
	require.Error(t, err)
}

func TestMerge_OuterJoin(t *testing.T) {
	gdp := Series{Name: "GDP", Values: map[time.Time]float64{day(2020, 1): 10, day(2020, 4): 11}}
	une := Series{Name: "Unemployment Rate", Values: map[time.Time]float64{day(2020, 4): 7.5, day(2019, 12): 7}}
	gap := Series{Name: "Gap", Values: map[time.Time]float64{day(2020, 1): math.NaN()}}

	out := Merge([]Series{gdp, une, gap})
	assert.Equal(t, []string{"TIME_PERIOD", "GDP", "Unemployment Rate", "Gap"}, out.Header)
	want := [][]string{
		{"2019-12-01", "", "7", ""},
		{"2020-01-01", "10", "", ""},
		{"2020-04-01", "11", "7.5", ""},
	}
	if diff := cmp.Diff(want, out.Rows); diff != "" {
		t.Fatalf("merged rows mismatch (-want +got):\n%s", diff)
	}
}

func TestMerge_DuplicateNamesAreSummed(t *testing.T) {
	a := Series{Name: "Population", Values: map[time.Time]float64{day(2000, 1): 1}}
	b := Series{Name: "Population", Values: map[time.Time]float64{day(2000, 1): 2, day(2001, 1): 5}}
	out := Merge([]Series{a, b})
	assert.Equal(t, []string{"TIME_PERIOD", "Population"}, out.Header)
	assert.Equal(t, [][]string{{"2000-01-01", "3"}, {"2001-01-01", "5"}}, out.Rows)
}

func TestLoadFile_NamesFromStem(t *testing.T) {
	path := filepath.Join(t.TempDir(), "une_rt_m_raw_formatted.csv")
	in := table.New("TIME_PERIOD", "VALUE")
	in.Append("2021-03-01", "6.1")
	require.NoError(t, table.WriteFile(path, in))

	s, err := LoadFile(path, map[string]string{"une_rt_m": "Unemployment Rate"})
	require.NoError(t, err)
	assert.Equal(t, "Unemployment Rate", s.Name)
	assert.Equal(t, 6.1, s.Values[day(2021, 3)])
}
