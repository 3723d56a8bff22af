package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hdntran/meetscribe-cli/config"
	"github.com/hdntran/meetscribe-cli/pkg/recorder"
	"github.com/hdntran/meetscribe-cli/pkg/transcript"
)

// Meeting record flags.
var (
	meetingRecordFile     string
	meetingRecordDuration time.Duration
)

func newMeetingRecordCommand(deps *MeetingCommandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record <meeting-id>",
		Short: "Record or upload audio for a meeting",
		Long: `Capture microphone audio and attach it to a meeting, or upload an
existing audio file with --file. The server transcribes and summarizes the
recording in the background.

Examples:
  meetscribe meeting record 4f1c...
  meetscribe meeting record 4f1c... --duration 45m
  meetscribe meeting record 4f1c... --file standup.wav`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMeetingRecord(cmd, deps, args[0])
		},
	}

	cmd.Flags().StringVar(&meetingRecordFile, "file", "", "Upload this audio file instead of recording")
	cmd.Flags().DurationVar(&meetingRecordDuration, "duration", 0, "Stop recording after this long")

	return cmd
}

func runMeetingRecord(cmd *cobra.Command, deps *MeetingCommandDeps, meetingID string) error {
	cfg, api, err := meetingClient(deps)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	filePath := meetingRecordFile
	if filePath == "" {
		if err := recorder.CheckAvailable(); err != nil {
			return err
		}

		rec := deps.Recorder(newLogger(cfg))
		session, err := rec.Start(context.Background(), recorder.Options{
			MaxDuration: meetingRecordDuration,
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "Recording to %s (Ctrl-C to stop)...\n", session.OutputPath)
		if meetingRecordDuration > 0 {
			select {
			case <-cmd.Context().Done():
			case <-time.After(meetingRecordDuration):
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
		filePath = session.OutputPath
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	resp, err := api.UploadMeetingRecording(ctx, meetingID, filePath)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Uploaded recording to meeting %s\n", resp.MeetingID)
	fmt.Fprintln(out, "The server is transcribing and summarizing it in the background.")
	return nil
}

var meetingAudioOut string

func newMeetingAudioCommand(deps *MeetingCommandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audio <meeting-id>",
		Short: "Download a meeting's audio recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMeetingAudio(cmd, deps, args[0])
		},
	}

	cmd.Flags().StringVarP(&meetingAudioOut, "out", "o", "", "Output file (default meeting_<id>.wav)")
	return cmd
}

func runMeetingAudio(cmd *cobra.Command, deps *MeetingCommandDeps, meetingID string) error {
	cfg, api, err := meetingClient(deps)
	if err != nil {
		return err
	}

	outPath := meetingAudioOut
	if outPath == "" {
		outPath = fmt.Sprintf("meeting_%s.wav", shortID(meetingID))
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", outPath, err)
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
	defer cancel()

	n, err := api.DownloadMeetingAudio(ctx, meetingID, f)
	if err != nil {
		os.Remove(outPath)
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", outPath, n)
	return nil
}

// Meeting transcription flags.
var (
	meetingTranscriptionExport string
	meetingTranscriptionOut    string
)

func newMeetingTranscriptionCommand(deps *MeetingCommandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcription <meeting-id>",
		Short: "Show a meeting's transcription",
		Long: `Show the transcription attached to a meeting, or export it with
--export txt|srt|json.

Examples:
  meetscribe meeting transcription 4f1c...
  meetscribe meeting transcription 4f1c... --export srt --out standup.srt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMeetingTranscription(cmd, deps, args[0])
		},
	}

	cmd.Flags().StringVar(&meetingTranscriptionExport, "export", "", "Export format: txt, srt, or json")
	cmd.Flags().StringVarP(&meetingTranscriptionOut, "out", "o", "", "Export file (default derived from meeting ID)")

	return cmd
}

func runMeetingTranscription(cmd *cobra.Command, deps *MeetingCommandDeps, meetingID string) error {
	cfg, api, err := meetingClient(deps)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
	defer cancel()

	tr, err := api.GetMeetingTranscription(ctx, meetingID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if meetingTranscriptionExport != "" {
		format, err := transcript.ParseFormat(meetingTranscriptionExport)
		if err != nil {
			return err
		}
		result := &transcript.Result{
			Segments: tr.Segments,
			Language: tr.Language,
		}
		outPath := meetingTranscriptionOut
		if outPath == "" {
			outPath = fmt.Sprintf("meeting_%s.%s", shortID(meetingID), format)
		}
		return exportResult(cmd, result, format, outPath)
	}

	if cfg.OutputFormat != config.OutputFormatText {
		return printStructured(out, cfg.OutputFormat, tr)
	}

	if tr.MeetingInfo != nil {
		fmt.Fprintf(out, "Meeting:  %s\n", tr.MeetingInfo.Title)
	}
	if tr.Language != "" {
		fmt.Fprintf(out, "Language: %s\n", transcript.LanguageName(tr.Language))
	}
	fmt.Fprintln(out)

	if len(tr.Segments) > 0 {
		for _, seg := range tr.Segments {
			fmt.Fprintf(out, "[%s - %s]  %s\n",
				transcript.FormatClock(seg.Start),
				transcript.FormatClock(seg.End),
				seg.Text)
		}
		return nil
	}

	fmt.Fprintln(out, tr.FullText)
	return nil
}
