package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up when --config is not given.
const DefaultPath = "lvstat.yaml"

// Config holds all lvstat configuration.
type Config struct {
	// Data directory layout
	Paths PathsConfig `yaml:"paths"`

	// Source APIs
	Eurostat  EurostatConfig  `yaml:"eurostat"`
	WorldBank WorldBankConfig `yaml:"worldbank"`

	// Indicator naming and classification
	Indicators IndicatorsConfig `yaml:"indicators"`

	// Exploratory analysis
	EDA EDAConfig `yaml:"eda"`

	// SQLite export and browser
	Store  StoreConfig  `yaml:"store"`
	Server ServerConfig `yaml:"server"`

	// Worker limits for per-file stages
	Concurrency int `yaml:"concurrency"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// PathsConfig configures where each stage reads and writes.
type PathsConfig struct {
	DataDir        string `yaml:"data_dir"`
	IndicatorsFile string `yaml:"indicators_file"`
	Raw            string `yaml:"raw"`
	Long           string `yaml:"long"`
	Formatted      string `yaml:"formatted"`
	Merged         string `yaml:"merged"`
	Plots          string `yaml:"plots"`
}

// EurostatConfig configures the Eurostat dissemination API.
type EurostatConfig struct {
	BaseURL string `yaml:"base_url"`
	Geo     string `yaml:"geo"`
	Timeout string `yaml:"timeout"`
}

// WorldBankConfig configures the World Bank API.
type WorldBankConfig struct {
	BaseURL     string                   `yaml:"base_url"`
	Country     string                   `yaml:"country"`      // ISO3 code used by the API
	CountryName string                   `yaml:"country_name"` // name kept when reshaping
	Timeout     string                   `yaml:"timeout"`
	Indicators  []WorldBankIndicatorSpec `yaml:"indicators"`
}

// WorldBankIndicatorSpec names one World Bank series and the file it is saved to.
type WorldBankIndicatorSpec struct {
	Code string `yaml:"code"`
	File string `yaml:"file"`
}

// IndicatorsConfig maps source codes to readable names and assigns the
// aggregation class of every readable column.
type IndicatorsConfig struct {
	Names        map[string]string            `yaml:"names"`
	Filters      map[string]map[string]string `yaml:"filters"`
	Continuous   []string                     `yaml:"continuous"`
	Discrete     []string                     `yaml:"discrete"`
	Unclassified string                       `yaml:"unclassified"` // drop, sum or mean
}

// EDAConfig configures plots.
type EDAConfig struct {
	MinYear           int                `yaml:"min_year"`
	ResearchQuestions []ResearchQuestion `yaml:"research_questions"`
}

// ResearchQuestion groups indicators that are plotted together.
type ResearchQuestion struct {
	Name         string      `yaml:"name"`
	Indicators   []string    `yaml:"indicators"`
	ScatterPairs [][2]string `yaml:"scatter_pairs"`
	Combined     []string    `yaml:"combined,omitempty"`
}

// StoreConfig configures the SQLite export.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig configures the read-only browser.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// DefaultConfig returns the configuration of the Latvia analysis.
func DefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			DataDir:        "data",
			IndicatorsFile: "reports/indicators.csv",
			Raw:            "raw",
			Long:           "processed/transformed_to_long_format",
			Formatted:      "processed/formatted_time_periods",
			Merged:         "processed/merged",
			Plots:          "eda_plots",
		},
		Eurostat: EurostatConfig{
			BaseURL: "https://ec.europa.eu/eurostat/api/dissemination/sdmx/2.1/data",
			Geo:     "LV",
			Timeout: "120s",
		},
		WorldBank: WorldBankConfig{
			BaseURL:     "https://api.worldbank.org/v2",
			Country:     "LVA",
			CountryName: "Latvia",
			Timeout:     "60s",
			Indicators: []WorldBankIndicatorSpec{
				{Code: "SM.POP.NETM", File: "API_SM.POP.NETM_DS2_en_csv_v2_126864.csv"},
			},
		},
		Indicators: IndicatorsConfig{
			Names: map[string]string{
				"API_SM.POP.NETM_DS2_en_csv_v2_126864": "Net Migration (World Bank)",
				"avia_paocc":                           "Air Passenger Transport",
				"demo_pjan":                            "Population",
				"lfsi_emp_q":                           "Employment",
				"migr_emi1ctz":                         "Emigration of Citizens",
				"nama_10_exi":                          "Exports (National Accounts)",
				"namq_10_gdp":                          "GDP (Quarterly)",
				"nrg_pc_202":                           "Energy Prices",
				"prc_hicp_manr":                        "Inflation (HICP Manufacturing)",
				"road_pa_mov":                          "Road Passenger Transport",
				"sts_inpr_m":                           "Industrial Production Index",
				"sts_trtu_m":                           "Retail Trade Turnover",
				"tour_occ_nim":                         "Tourist Overnight Stays",
				"tran_hv_frtra":                        "Freight Transport",
				"une_rt_m":                             "Unemployment Rate",
			},
			Continuous: []string{
				"GDP (Quarterly)",
				"Population",
				"Exports (National Accounts)",
				"Air Passenger Transport",
				"Freight Transport",
				"Inflation (HICP Manufacturing)",
				"Road Passenger Transport",
				"Industrial Production Index",
				"Retail Trade Turnover",
				"Energy Prices",
			},
			Discrete: []string{
				"Net Migration (World Bank)",
				"Unemployment Rate",
				"Emigration of Citizens",
			},
			Unclassified: "drop",
		},
		EDA: EDAConfig{
			MinYear: 1995,
			ResearchQuestions: []ResearchQuestion{
				{
					Name: "RQ1_GDP_Trade_Passengers",
					Indicators: []string{"GDP (Quarterly)", "Exports (National Accounts)", "Air Passenger Transport",
						"Road Passenger Transport", "Industrial Production Index", "Retail Trade Turnover", "Energy Prices"},
					ScatterPairs: [][2]string{
						{"GDP (Quarterly)", "Air Passenger Transport"},
						{"GDP (Quarterly)", "Road Passenger Transport"},
						{"GDP (Quarterly)", "Exports (National Accounts)"},
					},
					Combined: []string{"GDP (Quarterly)", "Exports (National Accounts)", "Air Passenger Transport"},
				},
				{
					Name: "RQ2_Unemployment_Migration",
					Indicators: []string{"Unemployment Rate", "Net Migration (World Bank)", "Emigration of Citizens",
						"Population", "Industrial Production Index", "Retail Trade Turnover"},
					ScatterPairs: [][2]string{
						{"Unemployment Rate", "Emigration of Citizens"},
						{"Net Migration (World Bank)", "Population"},
					},
				},
				{
					Name: "RQ3_Transport_Inflation",
					Indicators: []string{"Inflation (HICP Manufacturing)", "Freight Transport", "Air Passenger Transport",
						"Road Passenger Transport", "Industrial Production Index", "Retail Trade Turnover", "Energy Prices"},
					ScatterPairs: [][2]string{
						{"Inflation (HICP Manufacturing)", "Freight Transport"},
						{"Inflation (HICP Manufacturing)", "Air Passenger Transport"},
						{"Inflation (HICP Manufacturing)", "Road Passenger Transport"},
					},
				},
			},
		},
		Store:       StoreConfig{Path: "processed/lvstat.sqlite"},
		Server:      ServerConfig{Addr: "127.0.0.1:18746"},
		Concurrency: 4,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("LVSTAT_DATA_DIR"); v != "" {
		c.Paths.DataDir = v
	}
	if v := os.Getenv("LVSTAT_GEO"); v != "" {
		c.Eurostat.Geo = v
	}
	if v := os.Getenv("LVSTAT_EUROSTAT_URL"); v != "" {
		c.Eurostat.BaseURL = v
	}
	if v := os.Getenv("LVSTAT_WORLDBANK_URL"); v != "" {
		c.WorldBank.BaseURL = v
	}
	if v := os.Getenv("LVSTAT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks that the configuration can drive the pipeline.
func (c *Config) Validate() error {
	var errs []error
	if c.Paths.DataDir == "" {
		errs = append(errs, errors.New("paths.data_dir is required"))
	}
	if c.Eurostat.Geo == "" {
		errs = append(errs, errors.New("eurostat.geo is required"))
	}
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency))
	}
	switch c.Indicators.Unclassified {
	case "drop", "sum", "mean":
	default:
		errs = append(errs, fmt.Errorf("indicators.unclassified must be drop, sum or mean, got %q", c.Indicators.Unclassified))
	}
	seen := map[string]string{}
	for _, name := range c.Indicators.Continuous {
		seen[name] = "continuous"
	}
	for _, name := range c.Indicators.Discrete {
		if seen[name] != "" {
			errs = append(errs, fmt.Errorf("indicator %q is both continuous and discrete", name))
		}
	}
	for _, rq := range c.EDA.ResearchQuestions {
		if strings.TrimSpace(rq.Name) == "" {
			errs = append(errs, errors.New("research question without a name"))
		}
	}
	for _, d := range []string{c.Eurostat.Timeout, c.WorldBank.Timeout} {
		if d == "" {
			continue
		}
		if _, err := time.ParseDuration(d); err != nil {
			errs = append(errs, fmt.Errorf("invalid timeout %q: %w", d, err))
		}
	}
	return errors.Join(errs...)
}

// Resolve joins a path from the layout onto the data directory unless it is absolute.
func (c *Config) Resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Paths.DataDir, p)
}

// RawDir returns the directory holding fetched source files.
func (c *Config) RawDir() string { return c.Resolve(c.Paths.Raw) }

// LongDir returns the directory holding long-format files.
func (c *Config) LongDir() string { return c.Resolve(c.Paths.Long) }

// FormattedDir returns the directory holding harmonized-period files.
func (c *Config) FormattedDir() string { return c.Resolve(c.Paths.Formatted) }

// MergedDir returns the directory holding merged and annual tables.
func (c *Config) MergedDir() string { return c.Resolve(c.Paths.Merged) }

// PlotsDir returns the directory plots are written to.
func (c *Config) PlotsDir() string { return c.Resolve(c.Paths.Plots) }

// StorePath returns the SQLite export path.
func (c *Config) StorePath() string { return c.Resolve(c.Store.Path) }

// GetEurostatTimeout returns the Eurostat HTTP timeout.
func (c *Config) GetEurostatTimeout() time.Duration {
	return parseDurationOr(c.Eurostat.Timeout, 120*time.Second)
}

// GetWorldBankTimeout returns the World Bank HTTP timeout.
func (c *Config) GetWorldBankTimeout() time.Duration {
	return parseDurationOr(c.WorldBank.Timeout, 60*time.Second)
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return fallback
}
