// Package config resolves run settings from flags or a YAML file.
package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"stockbt/internal/account"
)

/*
YAML config example:
pstocks: ["510300.300etf-1Day", "600004.byjc-1Day"]
strategy: "macross"
start: 2015-01-05
end: 2016-12-31
lookback: 80
capital: 100000
stamp_tax_rate: 0.001
commission_rate: 0.00025
min_commission: 5.0
benchmark: "000001.sz-1Day"
storage:
  backend: "csv"
  data_dir: "data"
report:
  dir: "report"
  equity_csv: true
  equity_parquet: false
server:
  host: "0.0.0.0"
  port: 8080
*/

const DefaultBenchmark = "000001.sz-1Day"

type Storage struct {
	Backend     string `yaml:"backend"`
	DataDir     string `yaml:"data_dir"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

type Report struct {
	Dir           string `yaml:"dir"`
	EquityCSV     bool   `yaml:"equity_csv"`
	EquityParquet bool   `yaml:"equity_parquet"`
}

type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type Settings struct {
	Mode           string // "backtest" or "serve"
	PStocks        []string
	Strategy       string
	Start          time.Time
	End            time.Time
	Lookback       int
	Capital        float64
	StampTaxRate   float64
	CommissionRate float64
	MinCommission  float64
	Benchmark      string
	Storage        Storage
	Report         Report
	Server         Server
}

// fileSettings mirrors Settings with pointers for the optional numeric keys
// so a missing key can be told apart from an explicit zero.
type fileSettings struct {
	PStocks        []string  `yaml:"pstocks"`
	Strategy       string    `yaml:"strategy"`
	Start          time.Time `yaml:"start"`
	End            time.Time `yaml:"end"`
	Lookback       int       `yaml:"lookback"`
	Capital        *float64  `yaml:"capital"`
	StampTaxRate   *float64  `yaml:"stamp_tax_rate"`
	CommissionRate *float64  `yaml:"commission_rate"`
	MinCommission  *float64  `yaml:"min_commission"`
	Benchmark      string    `yaml:"benchmark"`
	Storage        Storage   `yaml:"storage"`
	Report         Report    `yaml:"report"`
	Server         Server    `yaml:"server"`
}

// InvalidConfigurationError reports a settings value that cannot be run
// with. Fatal at startup.
type InvalidConfigurationError struct {
	Field  string
	Reason string
}

func (e *InvalidConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

// Load builds Settings from command-line flags, or from a YAML file when
// -config is given. Missing optional keys fall back to defaults with a
// logged warning.
func Load(args []string) (Settings, error) {
	fs := flag.NewFlagSet("stockbt", flag.ContinueOnError)

	mode := fs.String("mode", "backtest", "Mode: backtest or serve")
	pstocks := fs.String("pstocks", "", "Comma-separated series identifiers (e.g. 510300.300etf-1Day)")
	strategyName := fs.String("strategy", "macross", "Strategy: macross or macdcross or extremum or rotation")
	start := fs.String("start", "", "Backtest start date (YYYY-MM-DD)")
	end := fs.String("end", "", "Backtest end date (YYYY-MM-DD)")
	lookback := fs.Int("lookback", 0, "Extra history bars loaded before the start date for indicator warm-up")
	capital := fs.Float64("capital", account.DefaultCapital, "Initial capital")
	stampTaxRate := fs.Float64("stamp-tax-rate", account.DefaultStampTaxRate, "Sell-side stamp tax rate in [0,1)")
	commissionRate := fs.Float64("commission-rate", account.DefaultCommissionRate, "Commission rate in [0,1); 0 disables commission")
	minCommission := fs.Float64("min-commission", account.DefaultMinCommission, "Commission floor per order")
	benchmark := fs.String("benchmark", DefaultBenchmark, "Benchmark index series supplying the reference time axis")
	backend := fs.String("storage-backend", "csv", "Series storage backend: csv, parquet, sqlite or postgres")
	dataDir := fs.String("data-dir", "data", "Directory of csv/parquet series files")
	sqlitePath := fs.String("sqlite-path", "", "SQLite database path (sqlite backend)")
	postgresDSN := fs.String("postgres-dsn", "", "Postgres DSN (postgres backend)")
	reportDir := fs.String("report-dir", "report", "Directory the report and equity files are written to")
	equityCSV := fs.Bool("equity-csv", true, "Export the equity curve as CSV")
	equityParquet := fs.Bool("equity-parquet", false, "Export the equity curve as Parquet")
	host := fs.String("host", "0.0.0.0", "Server listen host (serve mode)")
	port := fs.Int("port", 8080, "Server listen port (serve mode)")
	configFile := fs.String("config", "", "Path to YAML config file")

	if err := fs.Parse(args); err != nil {
		return Settings{}, err
	}

	if *configFile != "" {
		cfg, err := loadFile(*configFile)
		if err != nil {
			return Settings{}, err
		}
		cfg.Mode = *mode
		return cfg, nil
	}

	cfg := Settings{
		Mode:           *mode,
		Strategy:       *strategyName,
		Lookback:       *lookback,
		Capital:        *capital,
		StampTaxRate:   *stampTaxRate,
		CommissionRate: *commissionRate,
		MinCommission:  *minCommission,
		Benchmark:      *benchmark,
		Storage: Storage{
			Backend:     *backend,
			DataDir:     *dataDir,
			SQLitePath:  *sqlitePath,
			PostgresDSN: *postgresDSN,
		},
		Report: Report{
			Dir:           *reportDir,
			EquityCSV:     *equityCSV,
			EquityParquet: *equityParquet,
		},
		Server: Server{Host: *host, Port: *port},
	}
	if *pstocks != "" {
		cfg.PStocks = strings.Split(*pstocks, ",")
	}

	var err error
	if *start != "" {
		if cfg.Start, err = time.Parse(time.DateOnly, *start); err != nil {
			return Settings{}, &InvalidConfigurationError{Field: "start", Reason: "is not a YYYY-MM-DD date"}
		}
	}
	if *end != "" {
		if cfg.End, err = time.Parse(time.DateOnly, *end); err != nil {
			return Settings{}, &InvalidConfigurationError{Field: "end", Reason: "is not a YYYY-MM-DD date"}
		}
	}
	return cfg, nil
}

func loadFile(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("reading config file: %w", err)
	}

	var fc fileSettings
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return Settings{}, fmt.Errorf("parsing config file: %w", err)
	}

	cfg := Settings{
		PStocks:   fc.PStocks,
		Strategy:  fc.Strategy,
		Start:     fc.Start,
		End:       fc.End,
		Lookback:  fc.Lookback,
		Benchmark: fc.Benchmark,
		Storage:   fc.Storage,
		Report:    fc.Report,
		Server:    fc.Server,
	}
	cfg.Capital = defaultFloat(fc.Capital, account.DefaultCapital, "capital")
	cfg.StampTaxRate = defaultFloat(fc.StampTaxRate, account.DefaultStampTaxRate, "stamp_tax_rate")
	cfg.CommissionRate = defaultFloat(fc.CommissionRate, account.DefaultCommissionRate, "commission_rate")
	cfg.MinCommission = defaultFloat(fc.MinCommission, account.DefaultMinCommission, "min_commission")
	if cfg.Benchmark == "" {
		log.Printf("loadFile | benchmark not set, using default %s", DefaultBenchmark)
		cfg.Benchmark = DefaultBenchmark
	}
	return cfg, nil
}

func defaultFloat(v *float64, def float64, key string) float64 {
	if v == nil {
		log.Printf("loadFile | %s not set, using default %g", key, def)
		return def
	}
	return *v
}

// Validate checks the settings a backtest run needs.
func (c Settings) Validate() error {
	switch {
	case len(c.PStocks) == 0:
		return &InvalidConfigurationError{Field: "pstocks", Reason: "must name at least one series"}
	case c.Strategy == "":
		return &InvalidConfigurationError{Field: "strategy", Reason: "must be set"}
	case c.Capital <= 0:
		return &InvalidConfigurationError{Field: "capital", Reason: "must be positive"}
	case c.StampTaxRate < 0 || c.StampTaxRate >= 1:
		return &InvalidConfigurationError{Field: "stamp_tax_rate", Reason: "must be in [0,1)"}
	case c.CommissionRate < 0 || c.CommissionRate >= 1:
		return &InvalidConfigurationError{Field: "commission_rate", Reason: "must be in [0,1)"}
	case c.MinCommission < 0:
		return &InvalidConfigurationError{Field: "min_commission", Reason: "cannot be negative"}
	case c.Start.IsZero() || c.End.IsZero():
		return &InvalidConfigurationError{Field: "start/end", Reason: "must both be set"}
	case !c.Start.Before(c.End):
		return &InvalidConfigurationError{Field: "start", Reason: "must be before end"}
	case c.Lookback < 0:
		return &InvalidConfigurationError{Field: "lookback", Reason: "cannot be negative"}
	}
	return nil
}
