// Package config loads the settings of a batch run.
//
// Values are layered by viper: command-line flags win over BANEI_*
// environment variables, which win over an optional config file, which wins
// over the defaults below. A .env file in the working directory is loaded
// into the environment first when present.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pfrederiksen/banei-scraper/internal/logger"
	"github.com/pfrederiksen/banei-scraper/internal/scraper"
)

// DateLayout is the layout of the start and end dates
const DateLayout = "2006-01-02"

// EnvPrefix is prepended to every environment variable, e.g. BANEI_START_DATE
const EnvPrefix = "BANEI"

// Keys shared by flags, environment variables and config files
const (
	KeyStartDate   = "start-date"
	KeyEndDate     = "end-date"
	KeyProcess     = "process"
	KeyResourceDir = "resource-dir"
	KeyOutputDir   = "output-dir"
	KeyLogDir      = "log-dir"
	KeyMaxRound    = "max-round"
	KeyBaseURL     = "base-url"
	KeyTimeout     = "timeout"
	KeyLenient     = "lenient"
	KeySQLite      = "sqlite"
	KeyFormat      = "format"
	KeyLogLevel    = "log-level"
)

const (
	DefaultStartDate   = "2010-01-01"
	DefaultResourceDir = "resource"
	DefaultOutputDir   = "output"
	DefaultLogDir      = "log"
	DefaultMaxRound    = 12
	DefaultFormat      = "text"
	DefaultLogLevel    = "info"
)

// Config holds the settings of one run
type Config struct {
	StartDate   string        `mapstructure:"start-date"`
	EndDate     string        `mapstructure:"end-date"`
	Process     int           `mapstructure:"process"`
	ResourceDir string        `mapstructure:"resource-dir"`
	OutputDir   string        `mapstructure:"output-dir"`
	LogDir      string        `mapstructure:"log-dir"`
	MaxRound    int           `mapstructure:"max-round"`
	BaseURL     string        `mapstructure:"base-url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Lenient     bool          `mapstructure:"lenient"`
	SQLite      string        `mapstructure:"sqlite"`
	Format      string        `mapstructure:"format"`
	LogLevel    string        `mapstructure:"log-level"`
}

// Defaults returns the configuration used when nothing overrides it.
// The end date defaults to the day of now.
func Defaults(now time.Time) Config {
	return Config{
		StartDate:   DefaultStartDate,
		EndDate:     now.Format(DateLayout),
		Process:     runtime.NumCPU(),
		ResourceDir: DefaultResourceDir,
		OutputDir:   DefaultOutputDir,
		LogDir:      DefaultLogDir,
		MaxRound:    DefaultMaxRound,
		BaseURL:     scraper.BaseURL,
		Timeout:     scraper.Timeout,
		Format:      DefaultFormat,
		LogLevel:    DefaultLogLevel,
	}
}

// RegisterFlags defines the run flags on fs with defaults taken from def
func RegisterFlags(fs *pflag.FlagSet, def Config) {
	fs.StringP(KeyStartDate, "s", def.StartDate, "First date to scrape (YYYY-MM-DD)")
	fs.StringP(KeyEndDate, "e", def.EndDate, "Date to stop before, exclusive (YYYY-MM-DD)")
	fs.IntP(KeyProcess, "p", def.Process, "Number of dates scraped in parallel")
	fs.String(KeyResourceDir, def.ResourceDir, "Directory for per-round CSV files")
	fs.String(KeyOutputDir, def.OutputDir, "Directory for the aggregated CSV file")
	fs.String(KeyLogDir, def.LogDir, "Directory for run log files")
	fs.Int(KeyMaxRound, def.MaxRound, "Highest round number tried per date")
	fs.String(KeyBaseURL, def.BaseURL, "Base URL of the race site")
	fs.Duration(KeyTimeout, def.Timeout, "Timeout for each page fetch")
	fs.Bool(KeyLenient, def.Lenient, "Keep unparseable dates and prizes instead of failing the round")
	fs.String(KeySQLite, def.SQLite, "Also export the aggregated table to this SQLite database")
	fs.String(KeyFormat, def.Format, "Summary format: text or json")
	fs.String(KeyLogLevel, def.LogLevel, "Log level: debug, info, warn or error")
}

// Load resolves the configuration from flags, environment, an optional
// config file and defaults. flags may be nil.
func Load(flags *pflag.FlagSet, configFile string, now time.Time) (*Config, error) {
	_ = godotenv.Load() // .env is optional

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	def := Defaults(now)
	v.SetDefault(KeyStartDate, def.StartDate)
	v.SetDefault(KeyEndDate, def.EndDate)
	v.SetDefault(KeyProcess, def.Process)
	v.SetDefault(KeyResourceDir, def.ResourceDir)
	v.SetDefault(KeyOutputDir, def.OutputDir)
	v.SetDefault(KeyLogDir, def.LogDir)
	v.SetDefault(KeyMaxRound, def.MaxRound)
	v.SetDefault(KeyBaseURL, def.BaseURL)
	v.SetDefault(KeyTimeout, def.Timeout)
	v.SetDefault(KeyLenient, def.Lenient)
	v.SetDefault(KeySQLite, def.SQLite)
	v.SetDefault(KeyFormat, def.Format)
	v.SetDefault(KeyLogLevel, def.LogLevel)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("binding flags: %w", err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	return &cfg, nil
}

// Start returns the parsed start date
func (c *Config) Start() (time.Time, error) {
	return parseDate(KeyStartDate, c.StartDate)
}

// End returns the parsed end date
func (c *Config) End() (time.Time, error) {
	return parseDate(KeyEndDate, c.EndDate)
}

func parseDate(key, value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q (want YYYY-MM-DD): %w", key, value, err)
	}
	return t, nil
}

// Validate checks the configuration and returns every problem found
func (c *Config) Validate() error {
	var errs []error

	start, startErr := c.Start()
	end, endErr := c.End()
	errs = append(errs, startErr, endErr)
	if startErr == nil && endErr == nil && start.After(end) {
		errs = append(errs, fmt.Errorf("start date %s is after end date %s", c.StartDate, c.EndDate))
	}

	if c.Process <= 0 {
		errs = append(errs, fmt.Errorf("process must be greater than 0, got %d", c.Process))
	}
	if c.MaxRound <= 0 || c.MaxRound > 99 {
		errs = append(errs, fmt.Errorf("max-round must be between 1 and 99, got %d", c.MaxRound))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	if c.ResourceDir == "" || c.OutputDir == "" || c.LogDir == "" {
		errs = append(errs, errors.New("directories must not be empty"))
	}

	switch strings.ToLower(c.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("invalid format: %s (must be 'text' or 'json')", c.Format))
	}

	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
