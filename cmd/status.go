package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hdntran/meetscribe-cli/client"
	"github.com/hdntran/meetscribe-cli/config"
)

// StatusCommandDeps holds the dependencies for the status command.
type StatusCommandDeps struct {
	LoadConfig func() (*config.CLIConfig, error)
	NewClient  ClientFactory
}

// DefaultStatusDeps returns the default dependencies for production use.
func DefaultStatusDeps() *StatusCommandDeps {
	return &StatusCommandDeps{
		LoadConfig: config.LoadConfig,
		NewClient:  client.FromConfig,
	}
}

// NewStatusCommand creates the status command.
func NewStatusCommand(deps *StatusCommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultStatusDeps()
	}

	return &cobra.Command{
		Use:   "status",
		Short: "Check the transcription server",
		Long: `Check whether the transcription server is reachable and report its
meeting and task counts.

Examples:
  meetscribe status
  meetscribe status --output json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, deps)
		},
	}
}

func runStatus(cmd *cobra.Command, deps *StatusCommandDeps) error {
	cfg, err := deps.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	api, err := deps.NewClient(cfg, newLogger(cfg))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
	defer cancel()

	health, err := api.Health(ctx)
	if err != nil {
		return fmt.Errorf("server at %s is unreachable: %w", cfg.ServerURL, err)
	}

	out := cmd.OutOrStdout()
	if cfg.OutputFormat != config.OutputFormatText {
		return printStructured(out, cfg.OutputFormat, health)
	}

	fmt.Fprintf(out, "Server:   %s\n", cfg.ServerURL)
	fmt.Fprintf(out, "Status:   %s\n", health.Status)
	fmt.Fprintf(out, "Meetings: %d\n", health.MeetingsCount)
	fmt.Fprintf(out, "Tasks:    %d\n", health.TranscriptionTasks)
	return nil
}
