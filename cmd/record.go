package cmd

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/hdntran/meetscribe-cli/client"
	"github.com/hdntran/meetscribe-cli/config"
	"github.com/hdntran/meetscribe-cli/pkg/history"
	"github.com/hdntran/meetscribe-cli/pkg/logging"
	"github.com/hdntran/meetscribe-cli/pkg/recorder"
)

// processRecorder is the single Recorder shared by every command that can
// capture audio. Both "record" and "meeting record" go through it, so at
// most one capture runs per process no matter which entry point started it.
var (
	recorderOnce    sync.Once
	processRecorder *recorder.Recorder
)

func sharedRecorder(log logging.Logger) *recorder.Recorder {
	recorderOnce.Do(func() {
		processRecorder = recorder.New(log)
	})
	return processRecorder
}

// Record command flags.
var (
	recordMeetingID    string
	recordDuration     time.Duration
	recordOutDir       string
	recordModel        string
	recordLanguage     string
	recordNoTranscribe bool
)

// RecordCommandDeps holds the dependencies for the record command.
type RecordCommandDeps struct {
	LoadConfig  func() (*config.CLIConfig, error)
	NewClient   ClientFactory
	OpenHistory func(path string) (*history.Store, error)
	Recorder    func(log logging.Logger) *recorder.Recorder
}

// DefaultRecordDeps returns the default dependencies for production use.
func DefaultRecordDeps() *RecordCommandDeps {
	return &RecordCommandDeps{
		LoadConfig:  config.LoadConfig,
		NewClient:   client.FromConfig,
		OpenHistory: history.Open,
		Recorder:    sharedRecorder,
	}
}

// NewRecordCommand creates the record command.
func NewRecordCommand(deps *RecordCommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultRecordDeps()
	}

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record microphone audio and transcribe it",
		Long: `Capture microphone audio with ffmpeg and feed it into the
transcription pipeline.

Recording stops on Ctrl-C or after --duration. The WAV file is named
recording_<timestamp>.wav. With --meeting, the recording is attached to a
meeting for server-side transcription and summarization instead of being
transcribed directly.

Only one recording can run at a time, whether started here or via
"meetscribe meeting record".

Requires ffmpeg on PATH.

Examples:
  meetscribe record
  meetscribe record --duration 30m
  meetscribe record --meeting 4f1c... --duration 1h
  meetscribe record --no-transcribe --out-dir ~/recordings`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecord(cmd, deps)
		},
	}

	cmd.Flags().StringVar(&recordMeetingID, "meeting", "", "Attach the recording to a meeting")
	cmd.Flags().DurationVar(&recordDuration, "duration", 0, "Stop automatically after this long")
	cmd.Flags().StringVar(&recordOutDir, "out-dir", "", "Directory for the recording file (default current)")
	cmd.Flags().StringVar(&recordModel, "model", "", "Whisper model size (default from config)")
	cmd.Flags().StringVar(&recordLanguage, "language", "", "Language code; empty means auto-detect")
	cmd.Flags().BoolVar(&recordNoTranscribe, "no-transcribe", false, "Keep the file without transcribing")

	return cmd
}

func runRecord(cmd *cobra.Command, deps *RecordCommandDeps) error {
	cfg, err := deps.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	log := newLogger(cfg)
	out := cmd.OutOrStdout()

	if err := recorder.CheckAvailable(); err != nil {
		return err
	}

	rec := deps.Recorder(log)
	session, err := rec.Start(context.Background(), recorder.Options{
		OutputDir:   recordOutDir,
		MaxDuration: recordDuration,
	})
	if err != nil {
		return err
	}

	if recordDuration > 0 {
		fmt.Fprintf(out, "Recording to %s for up to %s (Ctrl-C to stop early)...\n",
			session.OutputPath, recordDuration)
	} else {
		fmt.Fprintf(out, "Recording to %s (Ctrl-C to stop)...\n", session.OutputPath)
	}

	// Block until the user interrupts or the duration elapses. ffmpeg itself
	// also honors the duration via -t; Stop reaps it either way.
	if recordDuration > 0 {
		select {
		case <-cmd.Context().Done():
		case <-time.After(recordDuration):
		}
	} else {
		<-cmd.Context().Done()
	}

	session, err = rec.Stop()
	if err != nil {
		var devErr *recorder.DeviceError
		if errors.As(err, &devErr) {
			fmt.Fprintf(cmd.ErrOrStderr(), "Hint: %s\n", devErr.Hint())
		}
		return err
	}

	fmt.Fprintf(out, "Recorded %s (%s)\n",
		session.OutputPath, session.Elapsed().Round(time.Second))

	if recordMeetingID != "" {
		return uploadRecordingToMeeting(cmd, deps, cfg, log, session.OutputPath)
	}

	if recordNoTranscribe {
		return nil
	}
	return transcribeRecording(cmd, deps, cfg, log, session.OutputPath)
}

// uploadRecordingToMeeting attaches the captured file to a meeting; the
// server transcribes and summarizes in the background.
func uploadRecordingToMeeting(cmd *cobra.Command, deps *RecordCommandDeps, cfg *config.CLIConfig, log logging.Logger, filePath string) error {
	api, err := deps.NewClient(cfg, log)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	resp, err := api.UploadMeetingRecording(ctx, recordMeetingID, filePath)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Uploaded recording to meeting %s\n", resp.MeetingID)
	fmt.Fprintln(out, "The server is transcribing and summarizing it in the background.")
	fmt.Fprintf(out, "Check with: meetscribe meeting show %s\n", resp.MeetingID)
	return nil
}

// transcribeRecording runs the captured file through the regular
// transcription pipeline.
func transcribeRecording(cmd *cobra.Command, deps *RecordCommandDeps, cfg *config.CLIConfig, log logging.Logger, filePath string) error {
	api, err := deps.NewClient(cfg, log)
	if err != nil {
		return err
	}

	opts := client.TranscribeOptions{
		ModelSize: cfg.ModelSize,
		Language:  cfg.Language,
		VADFilter: true,
	}
	if recordModel != "" {
		opts.ModelSize = recordModel
	}
	if recordLanguage != "" {
		opts.Language = recordLanguage
	}

	// The command context is already cancelled after ^C, so the upload and
	// wait get a fresh timeout.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	task, err := api.Transcribe(ctx, filePath, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Queued task %s\n", task.ID)

	task, err = waitAndReport(ctx, cmd, api, task.ID, cfg.PollInterval)
	if err != nil {
		return err
	}

	fmt.Fprintln(out)
	printResult(out, task.Result)

	if store, err := deps.OpenHistory(cfg.HistoryPath); err == nil {
		defer store.Close()
		entry := &history.Entry{
			TaskID:              task.ID,
			SourceFile:          filePath,
			ModelSize:           opts.ModelSize,
			Language:            task.Result.Language,
			LanguageProbability: task.Result.LanguageProbability,
			ProcessingTime:      task.Result.ProcessingTime,
			AudioDuration:       task.Result.AudioDuration,
			FullText:            task.Result.FullText(),
			Segments:            task.Result.Segments,
		}
		if id, err := store.Save(ctx, entry); err == nil {
			fmt.Fprintf(out, "\nSaved to history as %s\n", id[:8])
		}
	}

	return nil
}
