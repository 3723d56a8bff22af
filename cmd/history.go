package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hdntran/meetscribe-cli/config"
	"github.com/hdntran/meetscribe-cli/pkg/history"
	"github.com/hdntran/meetscribe-cli/pkg/transcript"
)

// HistoryCommandDeps holds the dependencies for the history command group.
type HistoryCommandDeps struct {
	LoadConfig  func() (*config.CLIConfig, error)
	OpenHistory func(path string) (*history.Store, error)
}

// DefaultHistoryDeps returns the default dependencies for production use.
func DefaultHistoryDeps() *HistoryCommandDeps {
	return &HistoryCommandDeps{
		LoadConfig:  config.LoadConfig,
		OpenHistory: history.Open,
	}
}

// NewHistoryCommand creates the history command group.
func NewHistoryCommand(deps *HistoryCommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultHistoryDeps()
	}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse past transcriptions",
		Long: `Browse transcriptions saved locally after completed transcribe runs.
Entries can be addressed by full ID or any unambiguous prefix.`,
	}

	cmd.AddCommand(newHistoryListCommand(deps))
	cmd.AddCommand(newHistoryShowCommand(deps))
	cmd.AddCommand(newHistoryExportCommand(deps))
	cmd.AddCommand(newHistoryDeleteCommand(deps))

	return cmd
}

// historyStore loads config and opens the local store for history subcommands.
func historyStore(deps *HistoryCommandDeps) (*config.CLIConfig, *history.Store, error) {
	cfg, err := deps.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("loading configuration: %w", err)
	}
	store, err := deps.OpenHistory(cfg.HistoryPath)
	if err != nil {
		return nil, nil, err
	}
	return cfg, store, nil
}

var historyListLimit int

func newHistoryListCommand(deps *HistoryCommandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved transcriptions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, store, err := historyStore(deps)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(cmd.Context(), historyListLimit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if cfg.OutputFormat != config.OutputFormatText {
				return printStructured(out, cfg.OutputFormat, entries)
			}

			if len(entries) == 0 {
				fmt.Fprintln(out, "No transcriptions saved yet.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tFILE\tLANGUAGE\tDURATION\tCREATED")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					shortID(e.ID), e.SourceFile, e.Language,
					transcript.FormatClock(e.AudioDuration),
					e.CreatedAt.Local().Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&historyListLimit, "limit", 20, "Maximum number of entries")
	return cmd
}

func newHistoryShowCommand(deps *HistoryCommandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "show <entry-id>",
		Short: "Show a saved transcription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, store, err := historyStore(deps)
			if err != nil {
				return err
			}
			defer store.Close()

			entry, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if cfg.OutputFormat != config.OutputFormatText {
				return printStructured(out, cfg.OutputFormat, entry)
			}

			fmt.Fprintf(out, "ID:      %s\n", entry.ID)
			fmt.Fprintf(out, "File:    %s\n", entry.SourceFile)
			fmt.Fprintf(out, "Model:   %s\n", entry.ModelSize)
			fmt.Fprintf(out, "Created: %s\n\n",
				entry.CreatedAt.Local().Format(time.RFC1123))
			printResult(out, entry.Result())
			return nil
		},
	}
}

// History export flags.
var (
	historyExportFormat string
	historyExportOut    string
)

func newHistoryExportCommand(deps *HistoryCommandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <entry-id>",
		Short: "Export a saved transcription to a file",
		Long: `Export a saved transcription as plain text, SubRip subtitles, or JSON.

Examples:
  meetscribe history export 4f1c --format srt
  meetscribe history export 4f1c --format json --out standup.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := transcript.ParseFormat(historyExportFormat)
			if err != nil {
				return err
			}

			_, store, err := historyStore(deps)
			if err != nil {
				return err
			}
			defer store.Close()

			entry, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			outPath := historyExportOut
			if outPath == "" {
				outPath = fmt.Sprintf("transcript_%s.%s", shortID(entry.ID), format)
			}
			return exportResult(cmd, entry.Result(), format, outPath)
		},
	}

	cmd.Flags().StringVar(&historyExportFormat, "format", "txt", "Export format: txt, srt, or json")
	cmd.Flags().StringVarP(&historyExportOut, "out", "o", "", "Output file (default derived from source file)")

	return cmd
}

func newHistoryDeleteCommand(deps *HistoryCommandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <entry-id>",
		Short: "Delete a saved transcription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, err := historyStore(deps)
			if err != nil {
				return err
			}
			defer store.Close()

			entry, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := store.Delete(cmd.Context(), entry.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted history entry %s\n", shortID(entry.ID))
			return nil
		},
	}
}
