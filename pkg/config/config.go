// Package config provides configuration management for caskcat.
// It loads, validates and saves the YAML preference file and exposes the
// key-value accessors used by the config command.
package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glorpus-work/caskcat/pkg/errors"
	"github.com/glorpus-work/caskcat/pkg/freshness"
	"github.com/glorpus-work/caskcat/pkg/fsutil"
	"github.com/glorpus-work/caskcat/pkg/source"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Settings Settings `yaml:"settings"`
}

// Settings represents the user's preferences.
type Settings struct {
	// Catalog cache
	CacheDir      string `yaml:"cache_dir,omitempty"`
	UpdateCadence string `yaml:"update_cadence"`

	// Network settings
	CatalogURL  string        `yaml:"catalog_url"`
	ProxyURL    string        `yaml:"proxy_url,omitempty"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`

	// Search and view
	SearchThreshold float64 `yaml:"search_threshold"`
	SearchLimit     int     `yaml:"search_limit"`
	HideDisabled    bool    `yaml:"hide_disabled"`
	HideDeprecated  bool    `yaml:"hide_deprecated"`
	FilterScript    string  `yaml:"filter_script,omitempty"`

	// Package operations
	BrewPath      string `yaml:"brew_path"`
	MaxConcurrent int    `yaml:"max_concurrent"` // 0 runs every item at once

	// Output settings
	OutputFormat string `yaml:"output_format"` // text, json
	LogLevel     string `yaml:"log_level"`     // debug, info, warn, error
}

// Default configuration values.
const (
	DefaultHTTPTimeout     = 30 * time.Second
	DefaultSearchThreshold = 0.2
	DefaultSearchLimit     = 20
	DefaultBrewPath        = "brew"
	DefaultMaxConcurrent   = 0

	// YAMLIndent is the number of spaces to use for YAML indentation.
	YAMLIndent = 2
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	cacheDir, err := fsutil.GetCacheDir()
	if err != nil {
		cacheDir = filepath.Join(os.TempDir(), fsutil.AppName)
	}

	return &Config{
		Settings: Settings{
			CacheDir:        cacheDir,
			UpdateCadence:   freshness.CadenceWeekly.String(),
			CatalogURL:      source.DefaultCatalogURL,
			HTTPTimeout:     DefaultHTTPTimeout,
			SearchThreshold: DefaultSearchThreshold,
			SearchLimit:     DefaultSearchLimit,
			HideDisabled:    true,
			BrewPath:        DefaultBrewPath,
			MaxConcurrent:   DefaultMaxConcurrent,
			OutputFormat:    "text",
			LogLevel:        "info",
		},
	}
}

// LoadConfig loads configuration from a file. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	file, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrapf(err, "failed to open config file: %s", path)
	}
	defer func() { _ = file.Close() }()

	return LoadConfigFromReader(file)
}

// LoadConfigFromReader loads configuration from an io.Reader.
func LoadConfigFromReader(reader io.Reader) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config data")
	}

	config := *DefaultConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(errors.ErrConfigParse, err.Error())
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrConfigValidation, err.Error())
	}

	return &config, nil
}

// SaveConfig writes the configuration to path, replacing any existing file atomically.
func (c *Config) SaveConfig(path string) error {
	if path == "" {
		return errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(YAMLIndent)
	if err := encoder.Encode(c); err != nil {
		return errors.Wrap(errors.ErrConfigEncode, err.Error())
	}
	if err := encoder.Close(); err != nil {
		return errors.Wrap(errors.ErrConfigEncode, err.Error())
	}

	if err := fsutil.WriteFileAtomic(absPath, buf.Bytes(), fsutil.FileModeDefault); err != nil {
		return errors.Wrap(errors.ErrConfigFileCreate, err.Error())
	}
	return nil
}

// ToYAML converts the config to YAML bytes.
func (c *Config) ToYAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(errors.ErrConfigMarshal, err.Error())
	}
	return data, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c == nil {
		return errors.ErrConfigValidation
	}
	s := c.Settings

	if _, err := freshness.ParseCadence(s.UpdateCadence); err != nil {
		return err
	}
	if s.HTTPTimeout < 0 {
		return errors.ErrHTTPTimeoutNegative
	}
	if s.SearchThreshold < 0 || s.SearchThreshold > 1 {
		return errors.ErrInvalidThreshold
	}
	if s.SearchLimit < 1 {
		return errors.ErrInvalidSearchLimit
	}
	if s.MaxConcurrent < 0 {
		return errors.ErrMaxConcurrentInvalid
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[s.OutputFormat] {
		return errors.ErrInvalidOutputFormatWithDetails(s.OutputFormat)
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(s.LogLevel)] {
		return errors.ErrInvalidLogLevelWithDetails(s.LogLevel)
	}
	return nil
}

// Cadence returns the parsed update cadence.
func (c *Config) Cadence() freshness.Cadence {
	cadence, err := freshness.ParseCadence(c.Settings.UpdateCadence)
	if err != nil {
		return freshness.CadenceWeekly
	}
	return cadence
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() (string, error) {
	path, err := fsutil.GetConfigPath()
	if err != nil {
		return "", errors.Wrap(err, "failed to get user config directory")
	}
	return path, nil
}

// applyDefaults replaces values that were explicitly emptied in the file.
// Booleans and max_concurrent keep their zero values.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig().Settings

	if c.Settings.CacheDir == "" {
		c.Settings.CacheDir = defaults.CacheDir
	}
	if c.Settings.UpdateCadence == "" {
		c.Settings.UpdateCadence = defaults.UpdateCadence
	}
	if c.Settings.CatalogURL == "" {
		c.Settings.CatalogURL = defaults.CatalogURL
	}
	if c.Settings.HTTPTimeout == 0 {
		c.Settings.HTTPTimeout = defaults.HTTPTimeout
	}
	if c.Settings.SearchThreshold == 0 {
		c.Settings.SearchThreshold = defaults.SearchThreshold
	}
	if c.Settings.SearchLimit == 0 {
		c.Settings.SearchLimit = defaults.SearchLimit
	}
	if c.Settings.BrewPath == "" {
		c.Settings.BrewPath = defaults.BrewPath
	}
	if c.Settings.OutputFormat == "" {
		c.Settings.OutputFormat = defaults.OutputFormat
	}
	if c.Settings.LogLevel == "" {
		c.Settings.LogLevel = defaults.LogLevel
	}
}
