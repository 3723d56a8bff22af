// Package config provides CLI configuration management for the meetscribe command-line tool.
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestDefaultConfig verifies default configuration values.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg == nil {
		t.Fatal("DefaultConfig returned nil")
	}

	if cfg.ServerURL != DefaultServerURL {
		t.Errorf("ServerURL = %v, want %v", cfg.ServerURL, DefaultServerURL)
	}
	if cfg.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", cfg.Timeout, DefaultTimeout)
	}
	if cfg.PollInterval != DefaultPollInterval {
		t.Errorf("PollInterval = %v, want %v", cfg.PollInterval, DefaultPollInterval)
	}
	if cfg.OutputFormat != DefaultOutputFormat {
		t.Errorf("OutputFormat = %v, want %v", cfg.OutputFormat, DefaultOutputFormat)
	}
	if cfg.ModelSize != DefaultModelSize {
		t.Errorf("ModelSize = %v, want %v", cfg.ModelSize, DefaultModelSize)
	}
	if cfg.Debug {
		t.Error("Debug should be false by default")
	}
	if cfg.Insecure {
		t.Error("Insecure should be false by default")
	}
}

// TestDefaultConstants verifies default constant values.
func TestDefaultConstants(t *testing.T) {
	if DefaultServerURL != "http://localhost:8000" {
		t.Errorf("DefaultServerURL = %v, want http://localhost:8000", DefaultServerURL)
	}
	if DefaultTimeout != 10*time.Minute {
		t.Errorf("DefaultTimeout = %v, want 10m", DefaultTimeout)
	}
	if DefaultPollInterval != 2*time.Second {
		t.Errorf("DefaultPollInterval = %v, want 2s", DefaultPollInterval)
	}
	if DefaultConfigDir != ".meetscribe" {
		t.Errorf("DefaultConfigDir = %v, want .meetscribe", DefaultConfigDir)
	}
	if DefaultConfigFile != "config.yaml" {
		t.Errorf("DefaultConfigFile = %v, want config.yaml", DefaultConfigFile)
	}
	if MaxUploadSize != 50*1024*1024 {
		t.Errorf("MaxUploadSize = %v, want 50 MB", MaxUploadSize)
	}
}

// TestOutputFormat_IsValid verifies output format validation.
func TestOutputFormat_IsValid(t *testing.T) {
	tests := []struct {
		format OutputFormat
		valid  bool
	}{
		{OutputFormatText, true},
		{OutputFormatJSON, true},
		{OutputFormatYAML, true},
		{"invalid", false},
		{"", false},
		{"JSON", false}, // Case sensitive
		{"xml", false},
	}

	for _, tc := range tests {
		if got := tc.format.IsValid(); got != tc.valid {
			t.Errorf("OutputFormat(%q).IsValid() = %v, want %v", tc.format, got, tc.valid)
		}
	}
}

// TestLoadConfig_FromFile verifies that file values override defaults.
func TestLoadConfig_FromFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MEETSCRIBE_CONFIG_DIR", dir)

	content := []byte(`server_url: https://transcribe.example.com
timeout: 30s
poll_interval: 500ms
output_format: json
model_size: base
language: vi
`)
	if err := os.WriteFile(filepath.Join(dir, DefaultConfigFile), content, 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.ServerURL != "https://transcribe.example.com" {
		t.Errorf("ServerURL = %v", cfg.ServerURL)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Timeout)
	}
	if cfg.PollInterval != 500*time.Millisecond {
		t.Errorf("PollInterval = %v, want 500ms", cfg.PollInterval)
	}
	if cfg.OutputFormat != OutputFormatJSON {
		t.Errorf("OutputFormat = %v, want json", cfg.OutputFormat)
	}
	if cfg.ModelSize != "base" {
		t.Errorf("ModelSize = %v, want base", cfg.ModelSize)
	}
	if cfg.Language != "vi" {
		t.Errorf("Language = %v, want vi", cfg.Language)
	}
}

// TestLoadConfig_EnvOverridesFile verifies environment precedence.
func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MEETSCRIBE_CONFIG_DIR", dir)

	content := []byte("server_url: http://from-file:8000\n")
	if err := os.WriteFile(filepath.Join(dir, DefaultConfigFile), content, 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	t.Setenv("MEETSCRIBE_SERVER_URL", "http://from-env:9000")
	t.Setenv("MEETSCRIBE_TIMEOUT", "45s")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.ServerURL != "http://from-env:9000" {
		t.Errorf("ServerURL = %v, want env value", cfg.ServerURL)
	}
	if cfg.Timeout != 45*time.Second {
		t.Errorf("Timeout = %v, want 45s", cfg.Timeout)
	}
}

// TestLoadConfig_MissingFile verifies defaults are used when no file exists.
func TestLoadConfig_MissingFile(t *testing.T) {
	t.Setenv("MEETSCRIBE_CONFIG_DIR", t.TempDir())

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.ServerURL != DefaultServerURL {
		t.Errorf("ServerURL = %v, want default", cfg.ServerURL)
	}
}

// TestValidate verifies configuration validation rules.
func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CLIConfig)
		wantErr bool
	}{
		{"valid defaults", func(c *CLIConfig) {}, false},
		{"https url", func(c *CLIConfig) { c.ServerURL = "https://api.example.com" }, false},
		{"bad scheme", func(c *CLIConfig) { c.ServerURL = "ftp://api.example.com" }, true},
		{"missing host", func(c *CLIConfig) { c.ServerURL = "http://" }, true},
		{"zero timeout", func(c *CLIConfig) { c.Timeout = 0 }, true},
		{"negative poll interval", func(c *CLIConfig) { c.PollInterval = -time.Second }, true},
		{"bad output format", func(c *CLIConfig) { c.OutputFormat = "xml" }, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

// TestSaveConfig_RoundTrip verifies save followed by load preserves values.
func TestSaveConfig_RoundTrip(t *testing.T) {
	t.Setenv("MEETSCRIBE_CONFIG_DIR", t.TempDir())

	cfg := DefaultConfig()
	cfg.ServerURL = "http://saved.example.com:8000"
	cfg.Timeout = 90 * time.Second
	cfg.Language = "en"

	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	loaded, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.ServerURL != cfg.ServerURL {
		t.Errorf("ServerURL = %v, want %v", loaded.ServerURL, cfg.ServerURL)
	}
	if loaded.Timeout != cfg.Timeout {
		t.Errorf("Timeout = %v, want %v", loaded.Timeout, cfg.Timeout)
	}
	if loaded.Language != "en" {
		t.Errorf("Language = %v, want en", loaded.Language)
	}
}

// TestExpandPath verifies ~ expansion.
func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}

	got, err := ExpandPath("~/recordings")
	if err != nil {
		t.Fatalf("ExpandPath: %v", err)
	}
	if got != filepath.Join(home, "recordings") {
		t.Errorf("ExpandPath(~/recordings) = %v", got)
	}

	got, err = ExpandPath("/absolute/path")
	if err != nil {
		t.Fatalf("ExpandPath: %v", err)
	}
	if got != "/absolute/path" {
		t.Errorf("ExpandPath should leave absolute paths unchanged, got %v", got)
	}
}
