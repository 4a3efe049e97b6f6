package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. COVIDLENS_DEFAULT_DATE.
const EnvPrefix = "COVIDLENS"

// Global configuration structure.
type Global struct {
	// Source
	SourceBaseURL  string `mapstructure:"source_base_url" yaml:"source_base_url"`
	SourceDir      string `mapstructure:"source_dir" yaml:"source_dir,omitempty"`
	HTTPTimeoutSec int    `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	DefaultDate    string `mapstructure:"default_date" yaml:"default_date"`

	// Views
	TopN                int      `mapstructure:"top_n" yaml:"top_n"`
	SampleSize          int      `mapstructure:"sample_size" yaml:"sample_size"`
	SampleSeed          int64    `mapstructure:"sample_seed" yaml:"sample_seed"`
	DropColumns         string   `mapstructure:"drop_columns" yaml:"drop_columns"`
	LineDeathsThreshold float64  `mapstructure:"line_deaths_threshold" yaml:"line_deaths_threshold"`
	BarCountry          string   `mapstructure:"bar_country" yaml:"bar_country"`
	PieCountries        []string `mapstructure:"pie_countries" yaml:"pie_countries"`
	HistogramBins       int      `mapstructure:"histogram_bins" yaml:"histogram_bins"`
	BoxplotRows         int      `mapstructure:"boxplot_rows" yaml:"boxplot_rows"`
	ChartWidth          int      `mapstructure:"chart_width" yaml:"chart_width"`
	ChartHeight         int      `mapstructure:"chart_height" yaml:"chart_height"`

	// Output
	ExportSheet string `mapstructure:"export_sheet" yaml:"export_sheet"`
	ExportDir   string `mapstructure:"export_dir" yaml:"export_dir"`
	ListenAddr  string `mapstructure:"listen_addr" yaml:"listen_addr"`
}

// Keys lists every settable key in display order.
var Keys = []string{
	"source_base_url", "source_dir", "http_timeout_sec", "default_date",
	"top_n", "sample_size", "sample_seed", "drop_columns", "line_deaths_threshold",
	"bar_country", "pie_countries", "histogram_bins", "boxplot_rows",
	"chart_width", "chart_height", "export_sheet", "export_dir", "listen_addr",
}

var defaults = map[string]interface{}{
	"source_base_url":       "https://raw.githubusercontent.com/CSSEGISandData/COVID-19/master/csse_covid_19_data/csse_covid_19_daily_reports",
	"source_dir":            "",
	"http_timeout_sec":      0,
	"default_date":          "2022-09-09",
	"top_n":                 10,
	"sample_size":           50,
	"sample_seed":           42,
	"drop_columns":          "0,1,5,6,11",
	"line_deaths_threshold": 2500.0,
	"bar_country":           "US",
	"pie_countries":         []string{"Mexico", "Brazil", "India", "Peru", "Russia"},
	"histogram_bins":        20,
	"boxplot_rows":          25,
	"chart_width":           1024,
	"chart_height":          512,
	"export_sheet":          "hoja1",
	"export_dir":            ".",
	"listen_addr":           "127.0.0.1:8050",
}

// Dir returns ~/.covidlens.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".covidlens"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.covidlens/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env (including a ./.env file) > config file > defaults.
// Command-line flags are applied on top by the caller.
func Load(cfgFile string) (*Global, error) {
	// .env is optional; variables already set in the environment win
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// env values for list keys arrive as one comma-separated string
	if len(c.PieCountries) == 1 && strings.Contains(c.PieCountries[0], ",") {
		c.PieCountries = splitList(c.PieCountries[0])
	}
	return &c, nil
}

// Default returns the built-in configuration.
func Default() *Global {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	var c Global
	_ = v.Unmarshal(&c)
	return &c
}

// Set assigns a value by key, coercing it to the key's type.
func (c *Global) Set(key, val string) error {
	var err error
	switch key {
	case "source_base_url":
		c.SourceBaseURL = strings.TrimRight(strings.TrimSpace(val), "/")
	case "source_dir":
		c.SourceDir = val
	case "http_timeout_sec":
		c.HTTPTimeoutSec, err = nonNegative(val)
	case "default_date":
		c.DefaultDate = strings.TrimSpace(val)
	case "top_n":
		c.TopN, err = nonNegative(val)
	case "sample_size":
		c.SampleSize, err = nonNegative(val)
	case "sample_seed":
		c.SampleSeed, err = cast.ToInt64E(strings.TrimSpace(val))
	case "drop_columns":
		c.DropColumns = val
	case "line_deaths_threshold":
		c.LineDeathsThreshold, err = cast.ToFloat64E(strings.TrimSpace(val))
	case "bar_country":
		c.BarCountry = strings.TrimSpace(val)
	case "pie_countries":
		c.PieCountries = splitList(val)
	case "histogram_bins":
		c.HistogramBins, err = nonNegative(val)
	case "boxplot_rows":
		c.BoxplotRows, err = nonNegative(val)
	case "chart_width":
		c.ChartWidth, err = nonNegative(val)
	case "chart_height":
		c.ChartHeight, err = nonNegative(val)
	case "export_sheet":
		c.ExportSheet = strings.TrimSpace(val)
	case "export_dir":
		c.ExportDir = val
	case "listen_addr":
		c.ListenAddr = strings.TrimSpace(val)
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	return nil
}

// Values returns every key with its current value rendered as text.
func (c *Global) Values() map[string]string {
	return map[string]string{
		"source_base_url":       c.SourceBaseURL,
		"source_dir":            c.SourceDir,
		"http_timeout_sec":      cast.ToString(c.HTTPTimeoutSec),
		"default_date":          c.DefaultDate,
		"top_n":                 cast.ToString(c.TopN),
		"sample_size":           cast.ToString(c.SampleSize),
		"sample_seed":           cast.ToString(c.SampleSeed),
		"drop_columns":          c.DropColumns,
		"line_deaths_threshold": cast.ToString(c.LineDeathsThreshold),
		"bar_country":           c.BarCountry,
		"pie_countries":         strings.Join(c.PieCountries, ","),
		"histogram_bins":        cast.ToString(c.HistogramBins),
		"boxplot_rows":          cast.ToString(c.BoxplotRows),
		"chart_width":           cast.ToString(c.ChartWidth),
		"chart_height":          cast.ToString(c.ChartHeight),
		"export_sheet":          c.ExportSheet,
		"export_dir":            c.ExportDir,
		"listen_addr":           c.ListenAddr,
	}
}

func nonNegative(val string) (int, error) {
	s := strings.TrimSpace(val)
	// cast reads a leading zero as octal
	if len(s) > 1 {
		if s = strings.TrimLeft(s, "0"); s == "" {
			s = "0"
		}
	}
	n, err := cast.ToIntE(s)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("must not be negative: %d", n)
	}
	return n, nil
}

func splitList(val string) []string {
	var out []string
	for _, p := range strings.Split(val, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
