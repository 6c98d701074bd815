package table

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead_StripsBOMAndPadsRaggedRows(t *testing.T) {
	in := "\xEF\xBB\xBFa,b,c\n1,2,3\n4,5\n"
	tb, err := Read(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, tb.Header)
	require.Len(t, tb.Rows, 2)
	assert.Equal(t, []string{"4", "5", ""}, tb.Rows[1])
}

func TestRead_SkipLinesCountsBlankLines(t *testing.T) {
	in := "\"Data Source\",\"World Development Indicators\",\n" +
		"\n" +
		"\"Last Updated Date\",\"2024-06-28\",\n" +
		"\n" +
		"\"Country Name\",\"Country Code\",\"1960\",\n" +
		"\"Latvia\",\"LVA\",\"12\",\n"
	tb, err := Read(strings.NewReader(in), SkipLines(4))
	require.NoError(t, err)
	assert.Equal(t, []string{"Country Name", "Country Code", "1960", ""}, tb.Header)
	require.Len(t, tb.Rows, 1)
	assert.Equal(t, "Latvia", tb.Rows[0][0])
}

func TestRead_RowWiderThanHeader(t *testing.T) {
	tb, err := Read(strings.NewReader("a,b\n1,2,,\n"))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "2"}}, tb.Rows)

	_, err = Read(strings.NewReader("a,b\n1,2\n3,4,5\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")
}

func TestRead_SkipLinesPastEOF(t *testing.T) {
	_, err := Read(strings.NewReader("a\n"), SkipLines(3))
	require.Error(t, err)
}

func TestRead_EmptyInput(t *testing.T) {
	_, err := Read(strings.NewReader(""))
	require.Error(t, err)
}

func TestWrite_QuotesOnlyWhenNeeded(t *testing.T) {
	tb := New("name", "value")
	tb.Append("GDP (Quarterly)", "1.5")
	tb.Append("a,b", `say "hi"`)
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, tb))
	want := "name,value\nGDP (Quarterly),1.5\n\"a,b\",\"say \"\"hi\"\"\"\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.csv")
	tb := New("geo\\TIME_PERIOD", "2020")
	tb.Append("LV", "")
	require.NoError(t, WriteFile(path, tb))

	_, err := os.Stat(path)
	require.NoError(t, err)
	back, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, tb.Header, back.Header)
	assert.Equal(t, tb.Rows, back.Rows)
}

func TestColumnAndFloats(t *testing.T) {
	tb := New("Year", "v")
	tb.Append("2000", "1.25")
	tb.Append("2001", "NaN")
	tb.Append("2002", "x")

	years, ok := tb.Column("Year")
	require.True(t, ok)
	assert.Equal(t, []string{"2000", "2001", "2002"}, years)

	vals, ok := tb.Floats("v")
	require.True(t, ok)
	assert.Equal(t, 1.25, vals[0])
	assert.True(t, math.IsNaN(vals[1]))
	assert.True(t, math.IsNaN(vals[2]))

	_, ok = tb.Column("missing")
	assert.False(t, ok)
}

func TestRename(t *testing.T) {
	tb := New("freq", "geo\\TIME_PERIOD")
	assert.True(t, tb.Rename("geo\\TIME_PERIOD", "geo"))
	assert.False(t, tb.Rename("nope", "x"))
	assert.Equal(t, []string{"freq", "geo"}, tb.Header)
}

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "", FormatFloat(math.NaN()))
	assert.Equal(t, "3", FormatFloat(3))
	assert.Equal(t, "0.1", FormatFloat(0.1))
	assert.Equal(t, "-2.5", FormatFloat(-2.5))
}
