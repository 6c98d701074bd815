package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "LV", cfg.Eurostat.Geo)
	assert.Equal(t, 1995, cfg.EDA.MinYear)
	assert.Len(t, cfg.EDA.ResearchQuestions, 3)
	assert.Len(t, cfg.Indicators.Continuous, 10)
	assert.Len(t, cfg.Indicators.Discrete, 3)
	assert.Equal(t, "GDP (Quarterly)", cfg.Indicators.Names["namq_10_gdp"])
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("LVSTAT_DATA_DIR", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "data", cfg.Paths.DataDir)
}

func TestConfig_SaveLoad(t *testing.T) {
	t.Setenv("LVSTAT_DATA_DIR", "")
	t.Setenv("LVSTAT_GEO", "")

	path := filepath.Join(t.TempDir(), "conf", "lvstat.yaml")
	cfg := DefaultConfig()
	cfg.Eurostat.Geo = "EE"
	cfg.EDA.MinYear = 2000
	cfg.EDA.ResearchQuestions = cfg.EDA.ResearchQuestions[:1]

	require.NoError(t, cfg.Save(path))
	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "EE", loaded.Eurostat.Geo)
	assert.Equal(t, 2000, loaded.EDA.MinYear)
	require.Len(t, loaded.EDA.ResearchQuestions, 1)
	assert.Equal(t, [2]string{"GDP (Quarterly)", "Air Passenger Transport"}, loaded.EDA.ResearchQuestions[0].ScatterPairs[0])
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("paths: [unterminated"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}

func TestConfig_EnvOverrides(t *testing.T) {
	t.Setenv("LVSTAT_DATA_DIR", "/srv/lv")
	t.Setenv("LVSTAT_GEO", "LT")
	t.Setenv("LVSTAT_EUROSTAT_URL", "http://eurostat.local")
	t.Setenv("LVSTAT_WORLDBANK_URL", "http://wb.local")
	t.Setenv("LVSTAT_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	assert.Equal(t, "/srv/lv", cfg.Paths.DataDir)
	assert.Equal(t, "LT", cfg.Eurostat.Geo)
	assert.Equal(t, "http://eurostat.local", cfg.Eurostat.BaseURL)
	assert.Equal(t, "http://wb.local", cfg.WorldBank.BaseURL)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, filepath.Join("/srv/lv", "raw"), cfg.RawDir())
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Concurrency = 0
	cfg.Indicators.Unclassified = "median"
	cfg.Indicators.Discrete = append(cfg.Indicators.Discrete, "Population")
	cfg.Eurostat.Timeout = "soon"

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "concurrency")
	assert.Contains(t, msg, "unclassified")
	assert.Contains(t, msg, "both continuous and discrete")
	assert.Contains(t, msg, "invalid timeout")
}

func TestResolveKeepsAbsolutePaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Paths.Plots = "/tmp/plots"
	assert.Equal(t, "/tmp/plots", cfg.PlotsDir())
	assert.Equal(t, filepath.Join("data", "processed", "merged"), cfg.MergedDir())
}

func TestTimeoutFallbacks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Eurostat.Timeout = ""
	cfg.WorldBank.Timeout = "5s"
	assert.Equal(t, 120*time.Second, cfg.GetEurostatTimeout())
	assert.Equal(t, 5*time.Second, cfg.GetWorldBankTimeout())
}
