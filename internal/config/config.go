package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/AlfonsoCorrado/wayback-scraper/internal/downloader"
	"github.com/AlfonsoCorrado/wayback-scraper/internal/input"
	"github.com/AlfonsoCorrado/wayback-scraper/internal/window"
	"gopkg.in/yaml.v3"
)

// StateFileName is the state document name used when no path is given.
const StateFileName = "wayback_scraper_state.json"

// Config defines configuration for the wayback-scraper CLI.
type Config struct {
	Output     string           `yaml:"output"`
	StateFile  string           `yaml:"state_file"`
	StateURL   string           `yaml:"state_url"`
	Downloader DownloaderConfig `yaml:"downloader"`
	Window     WindowConfig     `yaml:"window"`
	Input      InputConfig      `yaml:"input"`
	Proxy      ProxyConfig      `yaml:"proxy"`
	LogLevel   string           `yaml:"log_level"`
}

// DownloaderConfig defines how the external downloader is invoked.
type DownloaderConfig struct {
	Binary      string        `yaml:"binary"`
	Timeout     time.Duration `yaml:"timeout"`
	Concurrency int           `yaml:"concurrency"`
	OnlyFilter  string        `yaml:"only_filter"`
}

// WindowConfig defines the snapshot window around the reference date.
type WindowConfig struct {
	MonthsBefore int `yaml:"months_before"`
	MonthsAfter  int `yaml:"months_after"`
}

// InputConfig defines the input table layout.
type InputConfig struct {
	URLColumn  string `yaml:"url_column"`
	DateColumn string `yaml:"date_column"`
	Delimiter  string `yaml:"delimiter"`
}

// ProxyConfig defines optional proxy egress for the downloader.
type ProxyConfig struct {
	URL      string `yaml:"url"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	d := downloader.DefaultOptions()
	in := input.DefaultOptions()
	return Config{
		Output: "downloads",
		Downloader: DownloaderConfig{
			Binary:      d.Binary,
			Timeout:     d.Timeout,
			Concurrency: d.Concurrency,
			OnlyFilter:  d.OnlyFilter,
		},
		Window: WindowConfig{
			MonthsBefore: window.DefaultMonthsBefore,
			MonthsAfter:  window.DefaultMonthsAfter,
		},
		Input: InputConfig{
			URLColumn:  in.URLColumn,
			DateColumn: in.DateColumn,
			Delimiter:  string(in.Delimiter),
		},
		LogLevel: "info",
	}
}

// yamlConfig is used for YAML unmarshaling with string durations and
// optional window offsets.
type yamlConfig struct {
	Output     string               `yaml:"output"`
	StateFile  string               `yaml:"state_file"`
	StateURL   string               `yaml:"state_url"`
	Downloader yamlDownloaderConfig `yaml:"downloader"`
	Window     yamlWindowConfig     `yaml:"window"`
	Input      InputConfig          `yaml:"input"`
	Proxy      ProxyConfig          `yaml:"proxy"`
	LogLevel   string               `yaml:"log_level"`
}

type yamlDownloaderConfig struct {
	Binary      string `yaml:"binary"`
	Timeout     string `yaml:"timeout"`
	Concurrency int    `yaml:"concurrency"`
	OnlyFilter  string `yaml:"only_filter"`
}

type yamlWindowConfig struct {
	MonthsBefore *int `yaml:"months_before"`
	MonthsAfter  *int `yaml:"months_after"`
}

// LoadFromFile loads configuration from a YAML file. Keys absent from the
// file keep their defaults.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Default().Merge(Config{
		Output:    yc.Output,
		StateFile: yc.StateFile,
		StateURL:  yc.StateURL,
		Downloader: DownloaderConfig{
			Binary:      yc.Downloader.Binary,
			Concurrency: yc.Downloader.Concurrency,
			OnlyFilter:  yc.Downloader.OnlyFilter,
		},
		Input:    yc.Input,
		Proxy:    yc.Proxy,
		LogLevel: yc.LogLevel,
	})
	if yc.Downloader.Timeout != "" {
		d, err := ParseTimeout(yc.Downloader.Timeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse downloader.timeout: %w", err)
		}
		cfg.Downloader.Timeout = d
	}
	if yc.Window.MonthsBefore != nil {
		cfg.Window.MonthsBefore = *yc.Window.MonthsBefore
	}
	if yc.Window.MonthsAfter != nil {
		cfg.Window.MonthsAfter = *yc.Window.MonthsAfter
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the WAYBACK_SCRAPER_ prefix.
func (c *Config) LoadFromEnv() error {
	texts := map[string]*string{
		"WAYBACK_SCRAPER_OUTPUT":      &c.Output,
		"WAYBACK_SCRAPER_STATE_FILE":  &c.StateFile,
		"WAYBACK_SCRAPER_STATE_URL":   &c.StateURL,
		"WAYBACK_SCRAPER_DOWNLOADER":  &c.Downloader.Binary,
		"WAYBACK_SCRAPER_URL_COLUMN":  &c.Input.URLColumn,
		"WAYBACK_SCRAPER_DATE_COLUMN": &c.Input.DateColumn,
		"WAYBACK_SCRAPER_PROXY":       &c.Proxy.URL,
		"WAYBACK_SCRAPER_PROXY_USER":  &c.Proxy.User,
		"WAYBACK_SCRAPER_PROXY_PASS":  &c.Proxy.Password,
		"WAYBACK_SCRAPER_LOG_LEVEL":   &c.LogLevel,
	}
	for name, dst := range texts {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"WAYBACK_SCRAPER_CONCURRENCY":   &c.Downloader.Concurrency,
		"WAYBACK_SCRAPER_MONTHS_BEFORE": &c.Window.MonthsBefore,
		"WAYBACK_SCRAPER_MONTHS_AFTER":  &c.Window.MonthsAfter,
	}
	for name, dst := range ints {
		if v := os.Getenv(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("parse %s: %w", name, err)
			}
			*dst = n
		}
	}

	if v := os.Getenv("WAYBACK_SCRAPER_TIMEOUT"); v != "" {
		d, err := ParseTimeout(v)
		if err != nil {
			return fmt.Errorf("parse WAYBACK_SCRAPER_TIMEOUT: %w", err)
		}
		c.Downloader.Timeout = d
	}

	return nil
}

// ParseTimeout accepts a Go duration or a plain number of seconds.
func ParseTimeout(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Output == "" {
		return errors.New("config: output is required")
	}
	if c.Downloader.Binary == "" {
		return errors.New("config: downloader.binary is required")
	}
	if c.Downloader.Timeout <= 0 {
		return errors.New("config: downloader.timeout must be positive")
	}
	if c.Downloader.Concurrency <= 0 {
		return errors.New("config: downloader.concurrency must be positive")
	}
	if c.Window.MonthsBefore < 0 || c.Window.MonthsAfter < 0 {
		return errors.New("config: window months must not be negative")
	}
	if c.Input.URLColumn == "" {
		return errors.New("config: input.url_column is required")
	}
	if c.Input.DateColumn == "" {
		return errors.New("config: input.date_column is required")
	}
	if utf8.RuneCountInString(c.Input.Delimiter) != 1 {
		return fmt.Errorf("config: input.delimiter must be a single character, got %q", c.Input.Delimiter)
	}
	if c.Proxy.URL == "" && (c.Proxy.User != "" || c.Proxy.Password != "") {
		return errors.New("config: proxy credentials require proxy.url")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("config: unknown log_level %q", c.LogLevel)
	}
	return nil
}

// Merge merges override values into c, returning a new Config.
// Zero values in override are ignored.
func (c Config) Merge(override Config) Config {
	if override.Output != "" {
		c.Output = override.Output
	}
	if override.StateFile != "" {
		c.StateFile = override.StateFile
	}
	if override.StateURL != "" {
		c.StateURL = override.StateURL
	}
	if override.Downloader.Binary != "" {
		c.Downloader.Binary = override.Downloader.Binary
	}
	if override.Downloader.Timeout != 0 {
		c.Downloader.Timeout = override.Downloader.Timeout
	}
	if override.Downloader.Concurrency != 0 {
		c.Downloader.Concurrency = override.Downloader.Concurrency
	}
	if override.Downloader.OnlyFilter != "" {
		c.Downloader.OnlyFilter = override.Downloader.OnlyFilter
	}
	if override.Window.MonthsBefore != 0 {
		c.Window.MonthsBefore = override.Window.MonthsBefore
	}
	if override.Window.MonthsAfter != 0 {
		c.Window.MonthsAfter = override.Window.MonthsAfter
	}
	if override.Input.URLColumn != "" {
		c.Input.URLColumn = override.Input.URLColumn
	}
	if override.Input.DateColumn != "" {
		c.Input.DateColumn = override.Input.DateColumn
	}
	if override.Input.Delimiter != "" {
		c.Input.Delimiter = override.Input.Delimiter
	}
	if override.Proxy.URL != "" {
		c.Proxy.URL = override.Proxy.URL
	}
	if override.Proxy.User != "" {
		c.Proxy.User = override.Proxy.User
	}
	if override.Proxy.Password != "" {
		c.Proxy.Password = override.Proxy.Password
	}
	if override.LogLevel != "" {
		c.LogLevel = override.LogLevel
	}
	return c
}

// StatePath returns the local state document path.
func (c Config) StatePath() string {
	if c.StateFile != "" {
		return c.StateFile
	}
	return filepath.Join(c.Output, StateFileName)
}

// StateKey returns the object key used with StateURL.
func (c Config) StateKey() string {
	return filepath.Base(c.StatePath())
}

// DownloaderOptions converts the downloader and proxy sections.
func (c Config) DownloaderOptions() downloader.Options {
	opts := downloader.DefaultOptions()
	opts.Binary = c.Downloader.Binary
	opts.Timeout = c.Downloader.Timeout
	opts.Concurrency = c.Downloader.Concurrency
	opts.OnlyFilter = c.Downloader.OnlyFilter
	opts.Proxy = downloader.Proxy{
		URL:      c.Proxy.URL,
		User:     c.Proxy.User,
		Password: c.Proxy.Password,
	}
	return opts
}

// InputOptions converts the input section. Call after Validate.
func (c Config) InputOptions() input.Options {
	delim, _ := utf8.DecodeRuneInString(c.Input.Delimiter)
	return input.Options{
		URLColumn:  c.Input.URLColumn,
		DateColumn: c.Input.DateColumn,
		Delimiter:  delim,
	}
}

// Calculator returns the window calculator for the window section.
func (c Config) Calculator() window.Calculator {
	return window.NewCalculator(c.Window.MonthsBefore, c.Window.MonthsAfter)
}
