// internal/config/config.go
package config

import (
	_ "embed"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"jobagg/internal/domain"
	"jobagg/internal/normalize"
)

//go:embed default.yml
var defaultYAML []byte

type Config struct {
	App struct {
		DataDir   string `yaml:"data_dir"`
		Port      int    `yaml:"port"`
		LogLevel  string `yaml:"log_level"`  // debug, info, warn, error
		LogFormat string `yaml:"log_format"` // text or json
	} `yaml:"app"`

	Fetch Fetch `yaml:"fetch"`

	Pagination struct {
		MinDelayMS int `yaml:"min_delay_ms"`
		MaxDelayMS int `yaml:"max_delay_ms"`
	} `yaml:"pagination"`

	Sources struct {
		TimeoutSeconds  int    `yaml:"timeout_seconds"`
		DescriptorsPath string `yaml:"descriptors_path"` // optional override of the embedded wire descriptors
	} `yaml:"sources"`

	Normalize struct {
		Salary normalize.SalaryHeuristics `yaml:"salary"`
	} `yaml:"normalize"`

	// Request is the default search used by `jobagg run`.
	Request domain.ScrapeRequest `yaml:"request"`

	Schedules []Schedule `yaml:"schedules"`
}

type Fetch struct {
	TimeoutSeconds    int      `yaml:"timeout_seconds"`
	MaxAttempts       int      `yaml:"max_attempts"`
	InitialBackoffMS  int      `yaml:"initial_backoff_ms"`
	MaxBackoffMS      int      `yaml:"max_backoff_ms"`
	RequestsPerSecond float64  `yaml:"requests_per_second"` // per host; 0 disables
	Burst             int      `yaml:"burst"`
	UserAgent         string   `yaml:"user_agent"`
	Proxies           []string `yaml:"proxies"`
}

// Schedule is a saved search run on a cron expression.
type Schedule struct {
	Name    string               `yaml:"name"`
	Cron    string               `yaml:"cron"`
	Enabled bool                 `yaml:"enabled"`
	Request domain.ScrapeRequest `yaml:"request"`
}

func (f Fetch) Timeout() time.Duration { return time.Duration(f.TimeoutSeconds) * time.Second }

func (c Config) MinDelay() time.Duration {
	return time.Duration(c.Pagination.MinDelayMS) * time.Millisecond
}

func (c Config) MaxDelay() time.Duration {
	return time.Duration(c.Pagination.MaxDelayMS) * time.Millisecond
}

func (c Config) SourceTimeout() time.Duration {
	return time.Duration(c.Sources.TimeoutSeconds) * time.Second
}

// Default parses the embedded default configuration.
func Default() (Config, error) {
	var cfg Config
	err := yaml.Unmarshal(defaultYAML, &cfg)
	return cfg, err
}

// Load reads path on top of the defaults, so a user file only needs the keys
// it changes.
func Load(path string) (Config, error) {
	cfg, err := Default()
	if err != nil {
		return cfg, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}
