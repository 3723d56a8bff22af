package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hdntran/meetscribe-cli/client"
	"github.com/hdntran/meetscribe-cli/config"
	"github.com/hdntran/meetscribe-cli/pkg/history"
)

// Summarize command flags.
var (
	summarizeTask      string
	summarizeHistoryID string
	summarizeFile      string
	summarizeLanguage  string
)

// SummarizeCommandDeps holds the dependencies for the summarize command.
type SummarizeCommandDeps struct {
	LoadConfig  func() (*config.CLIConfig, error)
	NewClient   ClientFactory
	OpenHistory func(path string) (*history.Store, error)
}

// DefaultSummarizeDeps returns the default dependencies for production use.
func DefaultSummarizeDeps() *SummarizeCommandDeps {
	return &SummarizeCommandDeps{
		LoadConfig:  config.LoadConfig,
		NewClient:   client.FromConfig,
		OpenHistory: history.Open,
	}
}

// NewSummarizeCommand creates the summarize command.
func NewSummarizeCommand(deps *SummarizeCommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultSummarizeDeps()
	}

	cmd := &cobra.Command{
		Use:   "summarize",
		Short: "Summarize a transcript",
		Long: `Generate a summary of a transcript via the backend's language model.

The transcript comes from one of three sources, tried in this order:
a server-side task (--task), a local history entry (--history), or a plain
text file (--file).

Examples:
  meetscribe summarize --task 7d2e...
  meetscribe summarize --history 4f1c
  meetscribe summarize --file transcript.txt --language de`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSummarize(cmd, deps)
		},
	}

	cmd.Flags().StringVar(&summarizeTask, "task", "", "Summarize a transcription task's result")
	cmd.Flags().StringVar(&summarizeHistoryID, "history", "", "Summarize a local history entry")
	cmd.Flags().StringVar(&summarizeFile, "file", "", "Summarize a plain text transcript file")
	cmd.Flags().StringVar(&summarizeLanguage, "language", "", "Language for the summary (default en)")

	return cmd
}

func runSummarize(cmd *cobra.Command, deps *SummarizeCommandDeps) error {
	sources := 0
	for _, v := range []string{summarizeTask, summarizeHistoryID, summarizeFile} {
		if v != "" {
			sources++
		}
	}
	if sources != 1 {
		return fmt.Errorf("exactly one of --task, --history, or --file is required")
	}

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

	var fullText string
	language := summarizeLanguage

	switch {
	case summarizeTask != "":
		task, err := api.GetTask(ctx, summarizeTask)
		if err != nil {
			return err
		}
		if task.Result == nil {
			return fmt.Errorf("task %s has no result yet (status %s)", task.ID, task.Status)
		}
		fullText = task.Result.FullText()
		if language == "" {
			language = task.Result.Language
		}

	case summarizeHistoryID != "":
		store, err := deps.OpenHistory(cfg.HistoryPath)
		if err != nil {
			return err
		}
		defer store.Close()
		entry, err := store.Get(ctx, summarizeHistoryID)
		if err != nil {
			return err
		}
		fullText = entry.FullText
		if language == "" {
			language = entry.Language
		}

	case summarizeFile != "":
		data, err := os.ReadFile(summarizeFile)
		if err != nil {
			return fmt.Errorf("reading %s: %w", summarizeFile, err)
		}
		fullText = string(data)
	}

	summary, err := api.Summarize(ctx, fullText, language)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if cfg.OutputFormat != config.OutputFormatText {
		return printStructured(out, cfg.OutputFormat, map[string]string{"summary": summary})
	}
	fmt.Fprintln(out, summary)
	return nil
}
