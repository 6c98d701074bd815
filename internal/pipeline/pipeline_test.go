package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"lvstat/internal/config"
	"lvstat/internal/store"
	"lvstat/internal/table"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const gdpTSV = "freq,unit,geo\\TIME_PERIOD" +
	"\t2000-Q1 \t2000-Q2 \t2000-Q3 \t2000-Q4 " +
	"\t2001-Q1 \t2001-Q2 \t2001-Q3 \t2001-Q4 " +
	"\t2002-Q1 \t2002-Q2 \t2002-Q3 \t2002-Q4 \n" +
	"Q,CP_MEUR,LV\t1 \t2 \t3 \t4 \t5 p\t6 \t7 \t8 \t: \t10 \t10 \t10 \n" +
	"Q,CP_MEUR,EE\t9 \t9 \t9 \t9 \t9 \t9 \t9 \t9 \t9 \t9 \t9 \t9 \n"

func wbObs(year, value string) string {
	return fmt.Sprintf(`{"indicator":{"id":"SM.POP.NETM","value":"Net migration"},"country":{"id":"LV","value":"Latvia"},"countryiso3code":"LVA","date":%q,"value":%s}`, year, value)
}

func newSourceServer(t *testing.T) *httptest.Server {
	t.Helper()
	wb := `[{"page":1,"pages":1,"per_page":1000,"total":4,"lastupdated":"2024-06-28"},[` +
		strings.Join([]string{wbObs("2003", "-100"), wbObs("2002", "-5000"), wbObs("2001", "-800"), wbObs("2000", "-1200.5")}, ",") + `]]`
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/eurostat/namq_10_gdp":
			_, _ = w.Write([]byte(gdpTSV))
		case "/wb/country/LVA/indicator/SM.POP.NETM":
			_, _ = w.Write([]byte(wb))
		default:
			http.NotFound(w, r)
		}
	}))
}

func testConfig(t *testing.T, srvURL string) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Paths.DataDir = t.TempDir()
	cfg.Eurostat.BaseURL = srvURL + "/eurostat"
	cfg.WorldBank.BaseURL = srvURL + "/wb"
	cfg.WorldBank.Indicators = []config.WorldBankIndicatorSpec{{Code: "SM.POP.NETM", File: "API_SM.POP.NETM_DS2.csv"}}
	cfg.Indicators.Names = map[string]string{
		"namq_10_gdp":         "GDP (Quarterly)",
		"API_SM.POP.NETM_DS2": "Net Migration (World Bank)",
	}
	cfg.Indicators.Continuous = []string{"GDP (Quarterly)"}
	cfg.Indicators.Discrete = []string{"Net Migration (World Bank)"}
	cfg.EDA.ResearchQuestions = []config.ResearchQuestion{{
		Name:         "RQ1",
		Indicators:   []string{"GDP (Quarterly)", "Net Migration (World Bank)"},
		ScatterPairs: [][2]string{{"GDP (Quarterly)", "Net Migration (World Bank)"}},
	}}
	cfg.Concurrency = 2

	catalog := cfg.Resolve(cfg.Paths.IndicatorsFile)
	require.NoError(t, os.MkdirAll(filepath.Dir(catalog), 0o755))
	require.NoError(t, os.WriteFile(catalog, []byte("code,name\nnamq_10_gdp,GDP\nmissing_ds,Missing\n"), 0o644))
	return cfg
}

func TestPipeline_Run(t *testing.T) {
	srv := newSourceServer(t)
	defer srv.Close()
	cfg := testConfig(t, srv.URL)
	p := New(cfg, zap.NewNop())

	reports, err := p.Run(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, reports, 6)

	collect := reports[0]
	assert.Equal(t, StageCollect, collect.Stage)
	assert.Len(t, collect.Processed, 2)
	require.Contains(t, collect.Failed, "missing_ds")
	assert.Error(t, collect.Err())

	assert.FileExists(t, filepath.Join(cfg.RawDir(), "namq_10_gdp_raw.csv"))
	assert.FileExists(t, filepath.Join(cfg.LongDir(), "namq_10_gdp_raw_long.csv"))
	assert.FileExists(t, filepath.Join(cfg.LongDir(), "API_SM.POP.NETM_DS2_long.csv"))
	assert.FileExists(t, filepath.Join(cfg.FormattedDir(), "namq_10_gdp_raw_formatted.csv"))

	merged, err := table.ReadFile(p.MergedPath())
	require.NoError(t, err)
	assert.Equal(t, []string{"TIME_PERIOD", "Net Migration (World Bank)", "GDP (Quarterly)"}, merged.Header)
	assert.Equal(t, []string{"2000-01-01", "-1200.5", "1"}, merged.Rows[0])

	annualT, err := table.ReadFile(p.AnnualPath())
	require.NoError(t, err)
	assert.Equal(t, []string{"Year", "GDP (Quarterly)", "Net Migration (World Bank)"}, annualT.Header)
	assert.Equal(t, [][]string{
		{"2000", "10", "-1200.5"},
		{"2001", "26", "-800"},
		{"2002", "30", "-5000"},
		{"2003", "", "-100"},
	}, annualT.Rows)

	edaRep := reports[5]
	assert.Equal(t, StageEDA, edaRep.Stage)
	assert.Empty(t, edaRep.Failed)
	assert.FileExists(t, filepath.Join(cfg.PlotsDir(), "RQ1", "correlation_matrix.csv"))

	exp, err := p.Export(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"merged_df_readable", "merged_df_annual"}, exp.Processed)
	db, err := store.Open(cfg.StorePath())
	require.NoError(t, err)
	defer db.Close()
	n, err := db.Count(context.Background(), "merged_df_annual")
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	path, err := p.Profile(context.Background())
	require.NoError(t, err)
	md, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(md), "- `GDP (Quarterly)`: continuous")
	assert.Contains(t, string(md), "- `Net Migration (World Bank)`: discrete")
}

func TestPipeline_ExportNothing(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	rep, err := New(cfg, zap.NewNop()).Export(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{"merged_df_readable", "merged_df_annual"}, rep.Skipped)
}

func TestPipeline_RunSkipCollect(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	p := New(cfg, zap.NewNop())

	// No raw files: reshape and periods have nothing to do, merge fails.
	reports, err := p.Run(context.Background(), true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "merge")
	require.Len(t, reports, 3)
	assert.Equal(t, StageReshape, reports[0].Stage)
	assert.Empty(t, reports[0].Processed)
}

func TestPipeline_ReshapeIsolatesFailures(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.Indicators.Filters = map[string]map[string]string{"bad": {"unit": "PC"}}
	raw := cfg.RawDir()
	require.NoError(t, os.MkdirAll(raw, 0o755))
	good := table.New("freq", `geo\TIME_PERIOD`, "2020", "2021")
	good.Append("A", "LV", "1.5", "")
	require.NoError(t, table.WriteFile(filepath.Join(raw, "good_raw.csv"), good))
	bad := table.New("freq", `geo\TIME_PERIOD`, "2020")
	bad.Append("A", "LV", "3")
	require.NoError(t, table.WriteFile(filepath.Join(raw, "bad_raw.csv"), bad))
	require.NoError(t, os.WriteFile(filepath.Join(raw, "notes.txt"), []byte("x"), 0o644))

	p := New(cfg, zap.NewNop())
	rep, err := p.Reshape(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(cfg.LongDir(), "good_raw_long.csv")}, rep.Processed)
	assert.Equal(t, []string{"notes.txt"}, rep.Skipped)
	require.Contains(t, rep.Failed, "bad_raw.csv")
	assert.Contains(t, rep.Err().Error(), "bad_raw.csv")

	long, err := table.ReadFile(rep.Processed[0])
	require.NoError(t, err)
	assert.Equal(t, []string{"freq", "geo", "TIME_PERIOD", "VALUE"}, long.Header)
	assert.Equal(t, [][]string{{"A", "LV", "2020", "1.5"}}, long.Rows)

	frep, err := p.FormatPeriods(context.Background())
	require.NoError(t, err)
	require.Len(t, frep.Processed, 1)
	formatted, err := table.ReadFile(frep.Processed[0])
	require.NoError(t, err)
	assert.Equal(t, "2020-01-01", formatted.Rows[0][formatted.Index("TIME_PERIOD")])
}

func TestPipeline_Cancelled(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	raw := cfg.RawDir()
	require.NoError(t, os.MkdirAll(raw, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(raw, "x_raw.csv"), []byte("freq,2020\nA,1\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(cfg, zap.NewNop()).Reshape(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestSourceOf(t *testing.T) {
	assert.Equal(t, SourceEurostat, SourceOf("namq_10_gdp_raw.csv"))
	assert.Equal(t, SourceWorldBank, SourceOf("API_SM.POP.NETM_DS2_en_csv_v2_126864.csv"))
	assert.Equal(t, SourceUnknown, SourceOf("Metadata_Country.csv"))
	assert.Equal(t, SourceUnknown, SourceOf("API_x.xls"))
}
