// Package config provides configuration loading and management for l10nkit.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// Config represents the complete l10nkit configuration
type Config struct {
	Paths PathsConfig `yaml:"paths"`
	// Locales lists the locales the CLI accepts; the first is the default.
	Locales []string `yaml:"locales"`
	// Products maps a product preset name to its top-level source directories.
	Products map[string][]string `yaml:"products"`
	// Exclude lists extra doublestar patterns skipped by convert and proof.
	Exclude []string  `yaml:"exclude"`
	Log     LogConfig `yaml:"log"`
}

// PathsConfig locates the trees and policy files
type PathsConfig struct {
	// Source is the source resource tree (default: src)
	Source string `yaml:"source"`
	// L10n is the output root; each locale gets a subdirectory (default: l10n)
	L10n string `yaml:"l10n"`
	// Filters is the token filter policy (default: ja.filters.json)
	Filters string `yaml:"filters"`
	// Errorcheck is the proofreading policy (default: errorcheck.json)
	Errorcheck string `yaml:"errorcheck"`
	// MetricsFile receives run counters in the Prometheus text format when set
	MetricsFile string `yaml:"metrics_file,omitempty"`
}

// LogConfig configures the slog handler
type LogConfig struct {
	// Level is one of debug, info, warn, error (default: info)
	Level string `yaml:"level"`
	// Format is text or json (default: text)
	Format string `yaml:"format"`
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
)

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			Source:     "src",
			L10n:       "l10n",
			Filters:    "ja.filters.json",
			Errorcheck: "errorcheck.json",
		},
		Locales: []string{"ja", "ja-JP-mac"},
		Products: map[string][]string{
			"onlyfx": {"browser", "devtools", "dom", "extensions", "mobile", "netwerk", "security", "toolkit"},
			"onlytb": {"calendar", "chat", "mail"},
			"onlysm": {"suite"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Paths.Source == "" {
		return fmt.Errorf("paths.source is required")
	}
	if c.Paths.L10n == "" {
		return fmt.Errorf("paths.l10n is required")
	}
	if c.Paths.Filters == "" {
		return fmt.Errorf("paths.filters is required")
	}
	if c.Paths.Errorcheck == "" {
		return fmt.Errorf("paths.errorcheck is required")
	}
	if len(c.Locales) == 0 {
		return fmt.Errorf("locales must not be empty")
	}
	for name, dirs := range c.Products {
		if len(dirs) == 0 {
			return fmt.Errorf("products.%s must list at least one directory", name)
		}
		for _, d := range dirs {
			if !doublestar.ValidatePattern(d) {
				return fmt.Errorf("products.%s: invalid pattern %q", name, d)
			}
		}
	}
	for _, p := range c.Exclude {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("exclude: invalid pattern %q", p)
		}
	}
	if !slices.Contains(logLevels, c.Log.Level) {
		return fmt.Errorf("log.level must be one of %s", strings.Join(logLevels, ", "))
	}
	if !slices.Contains(logFormats, c.Log.Format) {
		return fmt.Errorf("log.format must be one of %s", strings.Join(logFormats, ", "))
	}
	return nil
}

// HasLocale reports whether locale is configured.
func (c *Config) HasLocale(locale string) bool {
	return slices.Contains(c.Locales, locale)
}

// DefaultLocale is the first configured locale.
func (c *Config) DefaultLocale() string {
	if len(c.Locales) == 0 {
		return ""
	}
	return c.Locales[0]
}

// Product returns the directories of a product preset.
func (c *Config) Product(name string) ([]string, error) {
	dirs, ok := c.Products[name]
	if !ok {
		names := make([]string, 0, len(c.Products))
		for n := range c.Products {
			names = append(names, n)
		}
		slices.Sort(names)
		return nil, fmt.Errorf("unknown product %q (known: %s)", name, strings.Join(names, ", "))
	}
	return dirs, nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Paths
	if other.Paths.Source != "" {
		c.Paths.Source = other.Paths.Source
	}
	if other.Paths.L10n != "" {
		c.Paths.L10n = other.Paths.L10n
	}
	if other.Paths.Filters != "" {
		c.Paths.Filters = other.Paths.Filters
	}
	if other.Paths.Errorcheck != "" {
		c.Paths.Errorcheck = other.Paths.Errorcheck
	}
	if other.Paths.MetricsFile != "" {
		c.Paths.MetricsFile = other.Paths.MetricsFile
	}

	if len(other.Locales) > 0 {
		c.Locales = other.Locales
	}

	// Products merge per preset so a layer can add one without
	// restating the others.
	if len(other.Products) > 0 {
		if c.Products == nil {
			c.Products = make(map[string][]string, len(other.Products))
		}
		for name, dirs := range other.Products {
			c.Products[name] = dirs
		}
	}

	if len(other.Exclude) > 0 {
		c.Exclude = other.Exclude
	}

	// Log
	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
	if other.Log.Format != "" {
		c.Log.Format = other.Log.Format
	}
}
