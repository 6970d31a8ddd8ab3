// Package config provides configuration management for district-ratings.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Configuration validation errors.
var (
	ErrInvalidStateCode  = errors.New("state.code must be a two-letter state code")
	ErrMissingStateName  = errors.New("state.name is required")
	ErrInvalidTimeout    = errors.New("fetch.timeout_sec must be at least 1")
	ErrMissingUserAgent  = errors.New("fetch.user_agent is required")
	ErrInvalidDelay      = errors.New("sources.*.delay_ms must be non-negative")
	ErrInvalidBaseURL    = errors.New("sources.*.base_url must be an absolute http(s) URL")
	ErrNoEnabledSources  = errors.New("at least one source must be enabled")
	ErrMissingOutputPath = errors.New("output.path is required")
	ErrInvalidCheckpoint = errors.New("output.checkpoint_every must be at least 1")
	ErrInvalidLogLevel   = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat  = errors.New("logging.format must be 'text' or 'json'")
)

var (
	stateCodePattern = regexp.MustCompile(`^[A-Z]{2}$`)
	validLogLevels   = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validLogFormats  = map[string]bool{"text": true, "json": true}
)

// Environment variables that override file values.
const (
	EnvOutput    = "DISTRICT_RATINGS_OUTPUT"
	EnvState     = "DISTRICT_RATINGS_STATE"
	EnvStateName = "DISTRICT_RATINGS_STATE_NAME"
	EnvLogLevel  = "DISTRICT_RATINGS_LOG_LEVEL"
	EnvUserAgent = "DISTRICT_RATINGS_USER_AGENT"
)

// DefaultUserAgent is the browser user agent sent with every request.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Config represents the complete configuration.
type Config struct {
	State   StateConfig   `yaml:"state"`
	Fetch   FetchConfig   `yaml:"fetch"`
	Sources SourcesConfig `yaml:"sources"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// StateConfig names the state whose districts are looked up.
type StateConfig struct {
	Code string `yaml:"code"` // two-letter code, e.g. PA
	Name string `yaml:"name"` // lowercase name used in URL paths, e.g. pennsylvania
}

// FetchConfig controls the HTTP fetcher.
type FetchConfig struct {
	TimeoutSec int    `yaml:"timeout_sec"`
	UserAgent  string `yaml:"user_agent"`
	BrowserTLS bool   `yaml:"browser_tls"`
}

// SourcesConfig holds one entry per rating site.
type SourcesConfig struct {
	GreatSchools SourceConfig `yaml:"greatschools"`
	Niche        SourceConfig `yaml:"niche"`
	SchoolDigger SourceConfig `yaml:"schooldigger"`
}

// SourceConfig configures a single rating site.
type SourceConfig struct {
	BaseURL string `yaml:"base_url"`
	DelayMs *int   `yaml:"delay_ms"`
	Enabled *bool  `yaml:"enabled"`
}

// OutputConfig defines where results go.
type OutputConfig struct {
	Path            string `yaml:"path"`
	CheckpointEvery int    `yaml:"checkpoint_every"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration: Pennsylvania, the public sites,
// a ten-second timeout and a checkpoint every ten districts.
func Default() *Config {
	return &Config{
		State: StateConfig{Code: "PA", Name: "pennsylvania"},
		Fetch: FetchConfig{
			TimeoutSec: 10,
			UserAgent:  DefaultUserAgent,
		},
		Sources: SourcesConfig{
			GreatSchools: SourceConfig{BaseURL: "https://www.greatschools.org", DelayMs: intPtr(1000), Enabled: boolPtr(true)},
			Niche:        SourceConfig{BaseURL: "https://www.niche.com", DelayMs: intPtr(1500), Enabled: boolPtr(true)},
			SchoolDigger: SourceConfig{BaseURL: "https://www.schooldigger.com", DelayMs: intPtr(1000), Enabled: boolPtr(true)},
		},
		Output: OutputConfig{
			Path:            "pa_school_districts.csv",
			CheckpointEvery: 10,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load builds the configuration: a .env file in the working directory is
// loaded first, then the YAML file at path (if path is non-empty) is merged
// over the defaults, then environment overrides are applied.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}

		// Pointer fields are replaced whole so that an explicit zero
		// (delay_ms: 0, enabled: false) still overrides the default.
		if err := mergo.Merge(cfg, fileCfg, mergo.WithOverride, mergo.WithoutDereference); err != nil {
			return nil, fmt.Errorf("failed to merge config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvOutput); v != "" {
		c.Output.Path = v
	}
	if v := os.Getenv(EnvState); v != "" {
		c.State.Code = strings.ToUpper(v)
	}
	if v := os.Getenv(EnvStateName); v != "" {
		c.State.Name = strings.ToLower(v)
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv(EnvUserAgent); v != "" {
		c.Fetch.UserAgent = v
	}
}

// SaveConfig writes the configuration to a YAML file.
func (c *Config) SaveConfig(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !stateCodePattern.MatchString(c.State.Code) {
		return fmt.Errorf("%w: %q", ErrInvalidStateCode, c.State.Code)
	}

	if strings.TrimSpace(c.State.Name) == "" {
		return ErrMissingStateName
	}

	if c.Fetch.TimeoutSec < 1 {
		return ErrInvalidTimeout
	}

	if strings.TrimSpace(c.Fetch.UserAgent) == "" {
		return ErrMissingUserAgent
	}

	enabled := 0
	for name, src := range c.Sources.byName() {
		if src.DelayMs != nil && *src.DelayMs < 0 {
			return fmt.Errorf("%w: %s", ErrInvalidDelay, name)
		}

		u, err := url.Parse(src.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: %s", ErrInvalidBaseURL, name)
		}

		if src.IsEnabled() {
			enabled++
		}
	}

	if enabled == 0 {
		return ErrNoEnabledSources
	}

	if strings.TrimSpace(c.Output.Path) == "" {
		return ErrMissingOutputPath
	}

	if c.Output.CheckpointEvery < 1 {
		return ErrInvalidCheckpoint
	}

	if !validLogLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	if !validLogFormats[c.Logging.Format] {
		return ErrInvalidLogFormat
	}

	return nil
}

func (s *SourcesConfig) byName() map[string]SourceConfig {
	return map[string]SourceConfig{
		"greatschools": s.GreatSchools,
		"niche":        s.Niche,
		"schooldigger": s.SchoolDigger,
	}
}

// IsEnabled reports whether the source takes part in lookups. Unset means enabled.
func (s SourceConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// Delay returns the fixed pause before each request to this source.
func (s SourceConfig) Delay() time.Duration {
	if s.DelayMs == nil {
		return 0
	}
	return time.Duration(*s.DelayMs) * time.Millisecond
}

// Timeout returns the per-request timeout.
func (f FetchConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSec) * time.Second
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{State: %s, Output: %s, CheckpointEvery: %d}",
		c.State.Code,
		c.Output.Path,
		c.Output.CheckpointEvery,
	)
}

func intPtr(n int) *int    { return &n }
func boolPtr(b bool) *bool { return &b }
