// Package config loads the feed configuration from defaults, an optional YAML
// file, an optional .env file and environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // Asia/Ho_Chi_Minh on hosts without zoneinfo

	"github.com/joho/godotenv"
	"github.com/pfrederiksen/vietnam-holidays/internal/calendar"
	"github.com/pfrederiksen/vietnam-holidays/internal/holiday"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigFile = "vietnam-holidays.yaml"
	DefaultFeedFile   = "vietnam-holidays.ics"
	DefaultSchedule   = "0 3 * * 1" // Mondays 03:00 in the calendar timezone
	DefaultPort       = 8080
)

// Environment variables read by Load
const (
	EnvPort      = "PORT"
	EnvLogLevel  = "VNH_LOG_LEVEL"
	EnvLogFormat = "VNH_LOG_FORMAT"
	EnvOutputDir = "VNH_OUTPUT_DIR"
	EnvDataDir   = "VNH_DATA_DIR"
	EnvSchedule  = "VNH_SCHEDULE"
)

// DefaultSources are the current-year page followed by the prior-year page.
var DefaultSources = []holiday.Page{
	{URL: "https://holidays-calendar.net/calendar_zh_cn/vietnam_zh_cn.html"},
	{URL: "https://holidays-calendar.net/2025/calendar_zh_cn/vietnam_zh_cn.html"},
}

// Config is the complete runtime configuration.
type Config struct {
	Sources  []holiday.Page `yaml:"sources"`
	Calendar calendar.Meta  `yaml:"calendar"`
	Scraper  ScraperConfig  `yaml:"scraper"`
	Server   ServerConfig   `yaml:"server"`
	Output   OutputConfig   `yaml:"output"`
	Log      LogConfig      `yaml:"log"`
}

// ScraperConfig controls how source pages are fetched.
type ScraperConfig struct {
	UserAgent      string        `yaml:"user_agent"`
	AcceptLanguage string        `yaml:"accept_language"`
	Timeout        time.Duration `yaml:"timeout"`
}

// ServerConfig controls the long-running feed server.
type ServerConfig struct {
	Port     int    `yaml:"port"`
	Schedule string `yaml:"schedule"`
	FeedPath string `yaml:"feed_path"`
	DataDir  string `yaml:"data_dir"` // last good snapshot, empty disables persistence
}

// OutputConfig controls where the one-shot generator writes.
type OutputConfig struct {
	Dir      string `yaml:"dir"`
	FeedFile string `yaml:"feed_file"`
}

// LogConfig selects log level and format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	sources := make([]holiday.Page, len(DefaultSources))
	copy(sources, DefaultSources)

	return &Config{
		Sources:  sources,
		Calendar: calendar.DefaultMeta(),
		Scraper: ScraperConfig{
			UserAgent:      "Mozilla/5.0 (compatible; VietnamHolidayBot/1.0)",
			AcceptLanguage: "zh-CN,zh;q=0.9",
			Timeout:        30 * time.Second,
		},
		Server: ServerConfig{
			Port:     DefaultPort,
			Schedule: DefaultSchedule,
			FeedPath: "/" + DefaultFeedFile,
		},
		Output: OutputConfig{
			Dir:      "docs",
			FeedFile: DefaultFeedFile,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration. An empty path reads DefaultConfigFile if it
// exists; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// Defaults only
	default:
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	// A missing .env is normal outside local development
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: invalid port %q", EnvPort, v)
		}
		c.Server.Port = port
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv(EnvOutputDir); v != "" {
		c.Output.Dir = v
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		c.Server.DataDir = v
	}
	if v := os.Getenv(EnvSchedule); v != "" {
		c.Server.Schedule = v
	}
	return nil
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return errors.New("sources: at least one source page is required")
	}
	for i, src := range c.Sources {
		u, err := url.Parse(src.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("sources[%d].url: %q is not an absolute http(s) URL", i, src.URL)
		}
		if src.Year < 0 {
			return fmt.Errorf("sources[%d].year: %d is negative", i, src.Year)
		}
	}

	if c.Calendar.ProductID == "" {
		return errors.New("calendar.product_id: must not be empty")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("calendar.timezone: %w", err)
	}

	if c.Scraper.Timeout <= 0 {
		return fmt.Errorf("scraper.timeout: %v must be positive", c.Scraper.Timeout)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port: %d out of range", c.Server.Port)
	}
	if _, err := cron.ParseStandard(c.Server.Schedule); err != nil {
		return fmt.Errorf("server.schedule: %w", err)
	}
	if !strings.HasPrefix(c.Server.FeedPath, "/") {
		return fmt.Errorf("server.feed_path: %q must start with /", c.Server.FeedPath)
	}

	if c.Output.FeedFile == "" {
		return errors.New("output.feed_file: must not be empty")
	}

	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("log.format: %q must be json or text", c.Log.Format)
	}

	return nil
}

// Location returns the calendar timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Calendar.Timezone)
}
