// Package cmd provides CLI commands for the meetscribe tool.
package cmd

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/hdntran/meetscribe-cli/client"
	"github.com/hdntran/meetscribe-cli/config"
	"github.com/hdntran/meetscribe-cli/pkg/history"
	"github.com/hdntran/meetscribe-cli/pkg/logging"
)

// testConfig returns a config suitable for command tests: short timeouts,
// fast polling, text output.
func testConfig() *config.CLIConfig {
	return &config.CLIConfig{
		ServerURL:    "http://unused.invalid",
		Timeout:      5 * time.Second,
		PollInterval: time.Millisecond,
		OutputFormat: config.OutputFormatText,
		ModelSize:    "base",
	}
}

// loadTestConfig adapts a fixed config to the LoadConfig dependency shape.
func loadTestConfig(cfg *config.CLIConfig) func() (*config.CLIConfig, error) {
	return func() (*config.CLIConfig, error) { return cfg, nil }
}

// testFactory starts an httptest server and returns a ClientFactory bound
// to it. The server is closed when the test finishes.
func testFactory(t *testing.T, handler http.Handler) ClientFactory {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return func(cfg *config.CLIConfig, log logging.Logger) (*client.Client, error) {
		return client.New(srv.URL, &client.Options{
			Timeout:        5 * time.Second,
			MaxRetries:     1,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     5 * time.Millisecond,
		})
	}
}

// openTestHistory returns an OpenHistory dependency backed by a temp database.
func openTestHistory(t *testing.T) func(path string) (*history.Store, error) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "history.sqlite")
	return func(path string) (*history.Store, error) {
		return history.Open(dbPath)
	}
}

// runCommand executes a cobra command with args and returns its combined
// output.
func runCommand(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}
