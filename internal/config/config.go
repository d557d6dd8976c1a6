// Package config provides configuration management for the sitemap checker.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"sitemapcheck/pkg/utils"
)

// DefaultSitemapPath is fetched relative to a site's origin.
const DefaultSitemapPath = "/sitemap.xml"

// Environment overrides.
const (
	EnvBaseURL  = "SITEMAP_BASE_URL"
	EnvLogLevel = "SITEMAP_LOG_LEVEL"
)

// Configuration validation errors.
var (
	ErrNoSites                  = errors.New("at least one site is required")
	ErrSiteMissingURLOrFile     = errors.New("either base_url or file is required")
	ErrSiteInvalidURL           = errors.New("base_url must be an absolute http(s) url")
	ErrNoEnabledSites           = errors.New("at least one site must be enabled")
	ErrInvalidMaxAttempts       = errors.New("retry.max_attempts must be at least 1")
	ErrInvalidInitialDelay      = errors.New("retry.initial_delay_ms must be non-negative")
	ErrInvalidBackoffMultiplier = errors.New("retry.backoff_multiplier must be >= 1.0")
	ErrInvalidTimeout           = errors.New("retry.timeout_sec must be at least 1")
	ErrInvalidConcurrency       = errors.New("concurrency must be at least 1")
	ErrInvalidPreviewChars      = errors.New("logging.preview_chars must be at least 1")
	ErrInvalidLogLevel          = errors.New("logging.level must be one of: debug, info, warn, error")
)

// Config represents the complete checker configuration.
type Config struct {
	Checker CheckerConfig `yaml:"checker"`
}

// CheckerConfig contains checker-specific settings.
type CheckerConfig struct {
	Output      OutputConfig  `yaml:"output"`
	Logging     LoggingConfig `yaml:"logging"`
	Sites       []SiteConfig  `yaml:"sites"`
	Retry       RetryPolicy   `yaml:"retry"`
	Concurrency int           `yaml:"concurrency"`
}

// SiteConfig describes where one sitemap lives.
type SiteConfig struct {
	Name    string `yaml:"name"`
	BaseURL string `yaml:"base_url"`
	Path    string `yaml:"path"`
	File    string `yaml:"file"`
	Enabled bool   `yaml:"enabled"`
}

// IsLocalFile returns true if this site reads its sitemap from disk.
func (s *SiteConfig) IsLocalFile() bool {
	return s.File != ""
}

// SitemapURL resolves the sitemap path against the site's origin.
func (s *SiteConfig) SitemapURL() (string, error) {
	path := s.Path
	if path == "" {
		path = DefaultSitemapPath
	}

	return utils.NewHTTPHelper().ResolveURL(s.BaseURL, path)
}

// GetSource returns the file path if local, or the sitemap URL if remote.
func (s *SiteConfig) GetSource() string {
	if s.IsLocalFile() {
		return s.File
	}

	u, err := s.SitemapURL()
	if err != nil {
		return s.BaseURL
	}

	return u
}

// DisplayName returns Name, falling back to the source.
func (s *SiteConfig) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}

	return s.GetSource()
}

// RetryPolicy defines retry behavior for sitemap fetches.
type RetryPolicy struct {
	MaxAttempts       int     `yaml:"max_attempts"`
	InitialDelayMs    int     `yaml:"initial_delay_ms"`
	MaxDelayMs        int     `yaml:"max_delay_ms"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
	TimeoutSec        int     `yaml:"timeout_sec"`
}

// OutputConfig defines where normalized output goes.
type OutputConfig struct {
	Path  string `yaml:"path"`
	Stamp bool   `yaml:"stamp"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level"`
	PreviewChars int    `yaml:"preview_chars"`
}

// Defaults returns the baseline configuration. A single fetch attempt means no retries.
func Defaults() Config {
	return Config{
		Checker: CheckerConfig{
			Retry: RetryPolicy{
				MaxAttempts:       1,
				InitialDelayMs:    500,
				MaxDelayMs:        30000,
				BackoffMultiplier: 2.0,
				TimeoutSec:        30,
			},
			Logging: LoggingConfig{
				Level:        "info",
				PreviewChars: 100,
			},
			Concurrency: 4,
		},
	}
}

// LoadConfig loads configuration from a YAML file. A sibling "<name>.local.yaml"
// overrides it, then defaults fill unset fields and environment overrides apply.
//
// Local overrides only replace fields they set to a non-zero value: false, 0 and
// "" in the local file leave the base value in place. A non-empty sites list
// replaces the base list as a whole; sites are not merged by name.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := mergeLocal(&cfg, path); err != nil {
		return nil, err
	}

	if err := cfg.ApplyDefaults(); err != nil {
		return nil, err
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LocalPath returns the override file path for path, e.g. sitemap.yaml -> sitemap.local.yaml.
func LocalPath(path string) string {
	ext := filepath.Ext(path)

	return strings.TrimSuffix(path, ext) + ".local" + ext
}

// mergeLocal applies the local override file with mergo.WithOverride, which
// skips zero values in the override.
func mergeLocal(cfg *Config, path string) error {
	localPath := LocalPath(path)

	data, err := os.ReadFile(localPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to read local config: %w", err)
	}

	var override Config
	if err := yaml.Unmarshal(data, &override); err != nil {
		return fmt.Errorf("failed to parse local YAML: %w", err)
	}

	if err := mergo.Merge(cfg, override, mergo.WithOverride); err != nil {
		return fmt.Errorf("failed to merge local config: %w", err)
	}

	slog.Info("merging config with local overrides", "local", localPath)

	return nil
}

// ApplyDefaults fills zero-valued fields from Defaults.
func (c *Config) ApplyDefaults() error {
	if err := mergo.Merge(c, Defaults()); err != nil {
		return fmt.Errorf("failed to apply defaults: %w", err)
	}

	return nil
}

// ApplyEnv applies SITEMAP_* environment overrides.
func (c *Config) ApplyEnv() {
	if level := os.Getenv(EnvLogLevel); level != "" {
		c.Checker.Logging.Level = strings.ToLower(level)
	}

	if base := os.Getenv(EnvBaseURL); base != "" {
		if len(c.Checker.Sites) == 0 {
			c.Checker.Sites = []SiteConfig{{Name: "env", Enabled: true}}
		}

		c.Checker.Sites[0].BaseURL = base
	}
}

// ForSource builds a configuration for a single ad-hoc site.
func ForSource(baseURL, file string) *Config {
	cfg := Defaults()
	cfg.Checker.Sites = []SiteConfig{{
		BaseURL: baseURL,
		File:    file,
		Enabled: true,
	}}

	return &cfg
}

// SaveConfig saves configuration to YAML file.
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
	if len(c.Checker.Sites) == 0 {
		return ErrNoSites
	}

	urls := utils.NewHTTPHelper()
	enabledCount := 0

	for i, site := range c.Checker.Sites {
		if site.BaseURL == "" && site.File == "" {
			return fmt.Errorf("%w: site[%d]", ErrSiteMissingURLOrFile, i)
		}

		if !site.IsLocalFile() && !urls.IsValidURL(site.BaseURL) {
			return fmt.Errorf("%w: site[%d] %q", ErrSiteInvalidURL, i, site.BaseURL)
		}

		if site.Enabled {
			enabledCount++
		}
	}

	if enabledCount == 0 {
		return ErrNoEnabledSites
	}

	if c.Checker.Retry.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}

	if c.Checker.Retry.InitialDelayMs < 0 {
		return ErrInvalidInitialDelay
	}

	if c.Checker.Retry.BackoffMultiplier < 1.0 {
		return ErrInvalidBackoffMultiplier
	}

	if c.Checker.Retry.TimeoutSec < 1 {
		return ErrInvalidTimeout
	}

	if c.Checker.Concurrency < 1 {
		return ErrInvalidConcurrency
	}

	if c.Checker.Logging.PreviewChars < 1 {
		return ErrInvalidPreviewChars
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Checker.Logging.Level] {
		return ErrInvalidLogLevel
	}

	return nil
}

// GetEnabledSites returns only enabled sites.
func (c *Config) GetEnabledSites() []SiteConfig {
	var enabled []SiteConfig

	for _, site := range c.Checker.Sites {
		if site.Enabled {
			enabled = append(enabled, site)
		}
	}

	return enabled
}

// GetRetryDelay calculates exponential backoff delay for attempt number.
func (rp *RetryPolicy) GetRetryDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}

	delayMs := float64(rp.InitialDelayMs)
	for i := 1; i < attempt; i++ {
		delayMs *= rp.BackoffMultiplier
	}

	if int(delayMs) > rp.MaxDelayMs {
		delayMs = float64(rp.MaxDelayMs)
	}

	return time.Duration(int(delayMs)) * time.Millisecond
}

// GetTimeout returns the timeout duration.
func (rp *RetryPolicy) GetTimeout() time.Duration {
	return time.Duration(rp.TimeoutSec) * time.Second
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Sites: %d, MaxAttempts: %d, Concurrency: %d}",
		len(c.Checker.Sites),
		c.Checker.Retry.MaxAttempts,
		c.Checker.Concurrency,
	)
}
