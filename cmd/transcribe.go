package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hdntran/meetscribe-cli/client"
	"github.com/hdntran/meetscribe-cli/config"
	"github.com/hdntran/meetscribe-cli/pkg/history"
	"github.com/hdntran/meetscribe-cli/pkg/logging"
	"github.com/hdntran/meetscribe-cli/pkg/transcript"
)

// Transcribe command flags.
var (
	transcribeModel     string
	transcribeLanguage  string
	transcribeWordTS    bool
	transcribeNoVAD     bool
	transcribeExport    string
	transcribeOut       string
	transcribeNoWait    bool
	transcribeNoHistory bool
)

// TranscribeCommandDeps holds the dependencies for the transcribe command.
type TranscribeCommandDeps struct {
	LoadConfig  func() (*config.CLIConfig, error)
	NewClient   ClientFactory
	OpenHistory func(path string) (*history.Store, error)
}

// DefaultTranscribeDeps returns the default dependencies for production use.
func DefaultTranscribeDeps() *TranscribeCommandDeps {
	return &TranscribeCommandDeps{
		LoadConfig:  config.LoadConfig,
		NewClient:   client.FromConfig,
		OpenHistory: history.Open,
	}
}

// NewTranscribeCommand creates the transcribe command.
func NewTranscribeCommand(deps *TranscribeCommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultTranscribeDeps()
	}

	cmd := &cobra.Command{
		Use:   "transcribe <audio-file>",
		Short: "Upload an audio file and transcribe it",
		Long: `Upload an audio file for transcription and wait for the result.

The file is checked locally before upload: it must exist, carry an audio
extension, and be at most 50 MB. The command then polls the task until it
completes, prints the segmented transcript, and stores the result in the
local history database.

Examples:
  meetscribe transcribe standup.wav
  meetscribe transcribe talk.mp3 --model base --language vi
  meetscribe transcribe talk.mp3 --export srt --out talk.srt
  meetscribe transcribe big.wav --no-wait`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranscribe(cmd, deps, args[0])
		},
	}

	cmd.Flags().StringVar(&transcribeModel, "model", "", "Whisper model size (default from config)")
	cmd.Flags().StringVar(&transcribeLanguage, "language", "", "Language code; empty means auto-detect")
	cmd.Flags().BoolVar(&transcribeWordTS, "word-timestamps", false, "Request per-word timestamps")
	cmd.Flags().BoolVar(&transcribeNoVAD, "no-vad", false, "Disable voice activity detection filtering")
	cmd.Flags().StringVar(&transcribeExport, "export", "", "Export format: txt, srt, json")
	cmd.Flags().StringVar(&transcribeOut, "out", "", "Export file path (default transcript_<timestamp>.<ext>)")
	cmd.Flags().BoolVar(&transcribeNoWait, "no-wait", false, "Queue the task and exit without waiting")
	cmd.Flags().BoolVar(&transcribeNoHistory, "no-history", false, "Do not save the result to local history")

	return cmd
}

func runTranscribe(cmd *cobra.Command, deps *TranscribeCommandDeps, filePath string) error {
	cfg, err := deps.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	log := newLogger(cfg)

	// Validate the export format before doing any work.
	var exportFormat transcript.Format
	if transcribeExport != "" {
		exportFormat, err = transcript.ParseFormat(transcribeExport)
		if err != nil {
			return err
		}
	}

	// Reject bad files before any network traffic.
	if err := client.ValidateAudioFile(filePath); err != nil {
		return err
	}

	api, err := deps.NewClient(cfg, log)
	if err != nil {
		return err
	}

	opts := client.TranscribeOptions{
		ModelSize:      cfg.ModelSize,
		Language:       cfg.Language,
		WordTimestamps: transcribeWordTS,
		VADFilter:      !transcribeNoVAD,
	}
	if transcribeModel != "" {
		opts.ModelSize = transcribeModel
	}
	if transcribeLanguage != "" {
		opts.Language = transcribeLanguage
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
	defer cancel()

	task, err := api.Transcribe(ctx, filePath, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Queued task %s for %s\n", task.ID, task.FileName)

	if transcribeNoWait {
		fmt.Fprintf(out, "Check progress with: meetscribe task show %s\n", task.ID)
		return nil
	}

	task, err = waitAndReport(ctx, cmd, api, task.ID, cfg.PollInterval)
	if err != nil {
		return err
	}

	if cfg.OutputFormat != config.OutputFormatText {
		return printStructured(out, cfg.OutputFormat, task)
	}

	fmt.Fprintln(out)
	printResult(out, task.Result)

	if !transcribeNoHistory {
		saveToHistory(cmd, deps, cfg, log, task, filePath, opts.ModelSize)
	}

	if exportFormat != "" {
		return exportResult(cmd, task.Result, exportFormat, transcribeOut)
	}
	return nil
}

// waitAndReport polls the task, printing status transitions as they happen.
// A task that completes without a result body is an error: every caller is
// about to render or store the result.
func waitAndReport(ctx context.Context, cmd *cobra.Command, api *client.Client, taskID string, pollInterval time.Duration) (*client.TranscriptionTask, error) {
	out := cmd.OutOrStdout()
	lastStatus := ""
	task, err := api.WaitForTask(ctx, taskID, pollInterval, func(task *client.TranscriptionTask) {
		if task.Status != lastStatus {
			lastStatus = task.Status
			if !task.IsTerminal() {
				fmt.Fprintf(out, "Status: %s\n", statusLabel(task.Status))
			}
		}
	})
	if err != nil {
		return nil, err
	}
	if task.Result == nil {
		return nil, fmt.Errorf("task %s completed but the server returned no result", taskID)
	}
	return task, nil
}

// saveToHistory records a completed result locally. Failures are logged,
// not fatal: the transcript has already been shown.
func saveToHistory(cmd *cobra.Command, deps *TranscribeCommandDeps, cfg *config.CLIConfig, log logging.Logger, task *client.TranscriptionTask, filePath, modelSize string) {
	store, err := deps.OpenHistory(cfg.HistoryPath)
	if err != nil {
		log.Warn("could not open history store", logging.Err(err))
		return
	}
	defer store.Close()

	entry := &history.Entry{
		TaskID:              task.ID,
		SourceFile:          filePath,
		ModelSize:           modelSize,
		Language:            task.Result.Language,
		LanguageProbability: task.Result.LanguageProbability,
		ProcessingTime:      task.Result.ProcessingTime,
		AudioDuration:       task.Result.AudioDuration,
		FullText:            task.Result.FullText(),
		Segments:            task.Result.Segments,
	}
	id, err := store.Save(cmd.Context(), entry)
	if err != nil {
		log.Warn("could not save history entry", logging.Err(err))
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\nSaved to history as %s\n", id[:8])
}

// exportResult writes the transcript in the requested format.
func exportResult(cmd *cobra.Command, result *transcript.Result, format transcript.Format, outPath string) error {
	now := time.Now()
	data, err := transcript.Export(result, format, now)
	if err != nil {
		return err
	}

	if outPath == "" {
		outPath = transcript.ExportFileName(format, now)
	}
	if err := os.WriteFile(outPath, data, 0644); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Exported %s\n", outPath)
	return nil
}
