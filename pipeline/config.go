/*
config.go - TOML configuration for the pipeline

PURPOSE:
  One file configures a whole run: the reference period, where the source
  spreadsheets live, where artifacts and deliverables go, which classifier
  backs the exclusion stage, and the employer cost share. CLI flags in
  cmd/vrcalc override individual values.

EXAMPLE (vrcalc.toml):

  [period]
  year = 2025
  month = 4

  [input]
  dir = "./dados"

  [output]
  dir = "./saida"

  [classifier]
  kind = "openai"           # keyword | openai | remote
  model = "gpt-4o"
  api_key_env = "OPENAI_API_KEY"
  cache_path = "./saida/decisions.db"

  [payout]
  employer_share = "0.80"
*/
package pipeline

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/shopspring/decimal"

	"github.com/warp/voucher-engine/consolidate"
	"github.com/warp/voucher-engine/payout"
	"github.com/warp/voucher-engine/voucher"
)

// =============================================================================
// CONFIG
// =============================================================================

type Config struct {
	Period     PeriodConfig     `toml:"period"`
	Input      InputConfig      `toml:"input"`
	Output     OutputConfig     `toml:"output"`
	Classifier ClassifierConfig `toml:"classifier"`
	Payout     PayoutConfig     `toml:"payout"`
	Log        LogConfig        `toml:"log"`
}

type PeriodConfig struct {
	Year  int `toml:"year"`
	Month int `toml:"month"`
}

type InputConfig struct {
	Dir   string              `toml:"dir"`
	Files consolidate.FileSet `toml:"files"`
}

type OutputConfig struct {
	Dir       string `toml:"dir"`
	ExcelFile string `toml:"excel_file"`
	CSVFile   string `toml:"csv_file"`
}

type ClassifierConfig struct {
	// Kind selects the exclusion backend: keyword (built in), openai, or
	// remote (an HTTP classification service).
	Kind      string `toml:"kind"`
	Model     string `toml:"model"`
	BaseURL   string `toml:"base_url"`
	APIKeyEnv string `toml:"api_key_env"`
	// CachePath enables the sqlite decision cache when set.
	CachePath string `toml:"cache_path"`
}

type PayoutConfig struct {
	EmployerShare string `toml:"employer_share"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// DefaultConfig covers a local run over the current delivery layout.
func DefaultConfig() *Config {
	return &Config{
		Period: PeriodConfig{Year: 2025, Month: 4},
		Input:  InputConfig{Dir: ".", Files: consolidate.DefaultFileSet()},
		Output: OutputConfig{
			Dir:       "./output",
			ExcelFile: "VR MENSAL 05.2025.xlsx",
			CSVFile:   "VR MENSAL 05.2025.csv",
		},
		Classifier: ClassifierConfig{
			Kind:      "keyword",
			APIKeyEnv: "OPENAI_API_KEY",
		},
		Payout: PayoutConfig{EmployerShare: "0.80"},
		Log:    LogConfig{Level: "info", Format: "console"},
	}
}

// LoadConfig reads a TOML file over the defaults, so a partial file only
// overrides what it names.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ReferencePeriod builds the period the config names.
func (c *Config) ReferencePeriod() (voucher.ReferencePeriod, error) {
	p := voucher.NewReferencePeriod(c.Period.Year, time.Month(c.Period.Month))
	if err := p.Validate(); err != nil {
		return voucher.ReferencePeriod{}, err
	}
	return p, nil
}

// EmployerShare parses the configured fraction, falling back to the
// contractual default on blank or malformed input.
func (c *Config) EmployerShare() decimal.Decimal {
	share, err := decimal.NewFromString(c.Payout.EmployerShare)
	if err != nil || share.IsNegative() || share.GreaterThan(decimal.NewFromInt(1)) {
		return payout.DefaultEmployerShare
	}
	return share
}
