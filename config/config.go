// Package config provides CLI configuration management for the meetscribe
// command-line tool. It supports loading configuration from a YAML file,
// environment variables, and command-line flags.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// OutputFormat selects how command results are rendered.
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
	OutputFormatYAML OutputFormat = "yaml"
)

// IsValid reports whether the format is one of the supported values.
func (f OutputFormat) IsValid() bool {
	switch f {
	case OutputFormatText, OutputFormatJSON, OutputFormatYAML:
		return true
	}
	return false
}

// Default configuration values.
const (
	DefaultServerURL    = "http://localhost:8000"
	DefaultTimeout      = 10 * time.Minute
	DefaultPollInterval = 2 * time.Second
	DefaultOutputFormat = OutputFormatText
	DefaultConfigDir    = ".meetscribe"
	DefaultConfigFile   = "config.yaml"

	// DefaultModelSize is the transcription model requested when none is given.
	DefaultModelSize = "large-v3"

	// MaxUploadSize is the client-side cap on audio uploads (50 MB).
	MaxUploadSize = 50 * 1024 * 1024
)

// CLIConfig holds the CLI configuration settings.
type CLIConfig struct {
	// ServerURL is the base URL of the transcription API (scheme://host:port).
	ServerURL string `yaml:"server_url"`

	// Timeout is the default timeout for API requests and waits.
	Timeout time.Duration `yaml:"timeout"`

	// PollInterval is the delay between task status checks while waiting.
	PollInterval time.Duration `yaml:"poll_interval"`

	// OutputFormat is the default rendering for command results.
	OutputFormat OutputFormat `yaml:"output_format"`

	// ModelSize is the default transcription model size.
	ModelSize string `yaml:"model_size,omitempty"`

	// Language is the default language hint passed to the backend.
	// Empty means auto-detect.
	Language string `yaml:"language,omitempty"`

	// HistoryPath overrides the local transcription history database path.
	// Supports ~ for home directory expansion.
	HistoryPath string `yaml:"history_path,omitempty"`

	// Debug enables verbose debug logging.
	Debug bool `yaml:"debug,omitempty"`

	// Insecure disables TLS verification (for development only).
	Insecure bool `yaml:"insecure,omitempty"`
}

// DefaultConfig returns a CLIConfig with default values.
func DefaultConfig() *CLIConfig {
	return &CLIConfig{
		ServerURL:    DefaultServerURL,
		Timeout:      DefaultTimeout,
		PollInterval: DefaultPollInterval,
		OutputFormat: DefaultOutputFormat,
		ModelSize:    DefaultModelSize,
	}
}

// ConfigDir returns the configuration directory path.
// Uses $MEETSCRIBE_CONFIG_DIR if set, otherwise ~/.meetscribe
func ConfigDir() (string, error) {
	if dir := os.Getenv("MEETSCRIBE_CONFIG_DIR"); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}

	return filepath.Join(home, DefaultConfigDir), nil
}

// ConfigPath returns the full path to the configuration file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultConfigFile), nil
}

// LoadConfig loads the CLI configuration from file and environment variables.
// Configuration is loaded in this order (later sources override earlier):
// 1. Default values
// 2. Config file (~/.meetscribe/config.yaml or $MEETSCRIBE_CONFIG_DIR/config.yaml)
// 3. Environment variables (MEETSCRIBE_SERVER_URL, MEETSCRIBE_TIMEOUT, ...)
func LoadConfig() (*CLIConfig, error) {
	cfg := DefaultConfig()

	configPath, err := ConfigPath()
	if err != nil {
		return nil, fmt.Errorf("getting config path: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	loadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(cfg *CLIConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	// Temp struct so durations can be written as strings ("30s", "2m").
	type configFile struct {
		ServerURL    string       `yaml:"server_url"`
		Timeout      string       `yaml:"timeout"`
		PollInterval string       `yaml:"poll_interval"`
		OutputFormat OutputFormat `yaml:"output_format"`
		ModelSize    string       `yaml:"model_size"`
		Language     string       `yaml:"language"`
		HistoryPath  string       `yaml:"history_path"`
		Debug        bool         `yaml:"debug"`
		Insecure     bool         `yaml:"insecure"`
	}

	var fileCfg configFile
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	if fileCfg.ServerURL != "" {
		cfg.ServerURL = fileCfg.ServerURL
	}
	if fileCfg.Timeout != "" {
		timeout, err := time.ParseDuration(fileCfg.Timeout)
		if err != nil {
			return fmt.Errorf("parsing timeout: %w", err)
		}
		cfg.Timeout = timeout
	}
	if fileCfg.PollInterval != "" {
		interval, err := time.ParseDuration(fileCfg.PollInterval)
		if err != nil {
			return fmt.Errorf("parsing poll_interval: %w", err)
		}
		cfg.PollInterval = interval
	}
	if fileCfg.OutputFormat != "" {
		cfg.OutputFormat = fileCfg.OutputFormat
	}
	if fileCfg.ModelSize != "" {
		cfg.ModelSize = fileCfg.ModelSize
	}
	if fileCfg.Language != "" {
		cfg.Language = fileCfg.Language
	}
	if fileCfg.HistoryPath != "" {
		cfg.HistoryPath = fileCfg.HistoryPath
	}
	cfg.Debug = fileCfg.Debug
	cfg.Insecure = fileCfg.Insecure

	return nil
}

// loadFromEnv overlays environment variables onto the configuration.
func loadFromEnv(cfg *CLIConfig) {
	if v := os.Getenv("MEETSCRIBE_SERVER_URL"); v != "" {
		cfg.ServerURL = v
	}
	if v := os.Getenv("MEETSCRIBE_TIMEOUT"); v != "" {
		if timeout, err := time.ParseDuration(v); err == nil {
			cfg.Timeout = timeout
		}
	}
	if v := os.Getenv("MEETSCRIBE_POLL_INTERVAL"); v != "" {
		if interval, err := time.ParseDuration(v); err == nil {
			cfg.PollInterval = interval
		}
	}
	if v := os.Getenv("MEETSCRIBE_OUTPUT_FORMAT"); v != "" {
		cfg.OutputFormat = OutputFormat(v)
	}
	if v := os.Getenv("MEETSCRIBE_LANGUAGE"); v != "" {
		cfg.Language = v
	}
	if v := os.Getenv("MEETSCRIBE_DEBUG"); v == "true" || v == "1" {
		cfg.Debug = true
	}
	if v := os.Getenv("MEETSCRIBE_INSECURE"); v == "true" || v == "1" {
		cfg.Insecure = true
	}
}

// Validate checks the configuration for invalid values.
func (c *CLIConfig) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return fmt.Errorf("invalid server_url %q: %w", c.ServerURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid server_url %q: scheme must be http or https", c.ServerURL)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid server_url %q: missing host", c.ServerURL)
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	}

	if !c.OutputFormat.IsValid() {
		return fmt.Errorf("invalid output format %q (must be text, json, or yaml)", c.OutputFormat)
	}

	return nil
}

// SaveConfig writes the configuration to the config file, creating the
// directory if needed.
func SaveConfig(cfg *CLIConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	// Durations serialize as strings for readability.
	out := map[string]interface{}{
		"server_url":    cfg.ServerURL,
		"timeout":       cfg.Timeout.String(),
		"poll_interval": cfg.PollInterval.String(),
		"output_format": string(cfg.OutputFormat),
	}
	if cfg.ModelSize != "" {
		out["model_size"] = cfg.ModelSize
	}
	if cfg.Language != "" {
		out["language"] = cfg.Language
	}
	if cfg.HistoryPath != "" {
		out["history_path"] = cfg.HistoryPath
	}
	if cfg.Debug {
		out["debug"] = true
	}
	if cfg.Insecure {
		out["insecure"] = true
	}

	data, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		if path == "~" {
			return home, nil
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}
