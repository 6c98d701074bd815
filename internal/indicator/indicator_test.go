package indicator

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCatalog(t *testing.T) {
	in := "code,name,geo\n" +
		"namq_10_gdp,GDP (Quarterly),\n" +
		"une_rt_m,,EE\n" +
		",ignored,LV\n"
	got, err := ParseCatalog(strings.NewReader(in), "LV")
	require.NoError(t, err)
	want := []Indicator{
		{Code: "namq_10_gdp", Name: "GDP (Quarterly)", Geo: "LV"},
		{Code: "une_rt_m", Name: "une_rt_m", Geo: "EE"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("catalog mismatch (-want +got):\n%s", diff)
	}
}

func TestParseCatalog_CodeOnly(t *testing.T) {
	got, err := ParseCatalog(strings.NewReader("code\ndemo_pjan\n"), "LV")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, Indicator{Code: "demo_pjan", Name: "demo_pjan", Geo: "LV"}, got[0])
}

func TestLoadCatalog_RoundTrip(t *testing.T) {
	inds := []Indicator{{Code: "avia_paocc", Name: "Air Passenger Transport", Geo: "LV"}}
	var buf bytes.Buffer
	require.NoError(t, WriteCatalog(&buf, inds))

	path := filepath.Join(t.TempDir(), "indicators.csv")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	got, err := LoadCatalog(path, "EE")
	require.NoError(t, err)
	assert.Equal(t, inds, got)

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.csv"), "LV")
	require.Error(t, err)
}

func TestClasses(t *testing.T) {
	c := NewClasses([]string{"GDP (Quarterly)"}, []string{"Unemployment Rate"})
	assert.Equal(t, Continuous, c.Of("GDP (Quarterly)"))
	assert.Equal(t, Discrete, c.Of("Unemployment Rate"))
	assert.Equal(t, Unclassified, c.Of("Employment"))
	assert.Equal(t, "discrete", Discrete.String())
}

func TestReadableName(t *testing.T) {
	names := map[string]string{
		"namq_10_gdp":                          "GDP (Quarterly)",
		"API_SM.POP.NETM_DS2_en_csv_v2_126864": "Net Migration (World Bank)",
	}
	assert.Equal(t, "GDP (Quarterly)", ReadableName("namq_10_gdp_raw_formatted", names))
	assert.Equal(t, "Net Migration (World Bank)", ReadableName("API_SM.POP.NETM_DS2_en_csv_v2_126864_formatted", names))
	assert.Equal(t, "tour_occ_nim", ReadableName("tour_occ_nim_raw_formatted", nil))
}
