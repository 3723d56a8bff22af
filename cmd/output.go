// Package cmd provides CLI commands for the meetscribe tool.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hdntran/meetscribe-cli/client"
	"github.com/hdntran/meetscribe-cli/config"
	"github.com/hdntran/meetscribe-cli/pkg/logging"
	"github.com/hdntran/meetscribe-cli/pkg/transcript"
)

// ClientFactory builds an API client from configuration. Commands take it as
// a dependency so tests can point them at a mock server.
type ClientFactory func(cfg *config.CLIConfig, log logging.Logger) (*client.Client, error)

// newLogger builds the command logger from configuration. Debug mode lowers
// the level; output always goes to stderr so stdout stays machine-parseable.
func newLogger(cfg *config.CLIConfig) logging.Logger {
	level := logging.LevelWarn
	if cfg.Debug {
		level = logging.LevelDebug
	}
	return logging.NewLogger(&logging.Config{
		Level:       level,
		ServiceName: "meetscribe",
	})
}

// printStructured writes v as JSON or YAML.
func printStructured(w io.Writer, format config.OutputFormat, v any) error {
	switch format {
	case config.OutputFormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case config.OutputFormatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(v)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// statusLabel renders a task status for table output.
func statusLabel(status string) string {
	switch status {
	case client.TaskStatusCompleted:
		return "completed"
	case client.TaskStatusFailed:
		return "FAILED"
	case client.TaskStatusProcessing:
		return "processing"
	default:
		return "queued"
	}
}

// printTask writes a one-task summary block.
func printTask(w io.Writer, task *client.TranscriptionTask) {
	fmt.Fprintf(w, "Task:    %s\n", task.ID)
	fmt.Fprintf(w, "File:    %s\n", task.FileName)
	fmt.Fprintf(w, "Status:  %s\n", statusLabel(task.Status))
	if task.CreatedAt != "" {
		fmt.Fprintf(w, "Created: %s\n", task.CreatedAt)
	}
	if task.Error != "" {
		fmt.Fprintf(w, "Error:   %s\n", task.Error)
	}
}

// printResult writes a completed transcription, segment by segment.
func printResult(w io.Writer, result *transcript.Result) {
	fmt.Fprintf(w, "Language:       %s (%s confidence)\n",
		result.LanguageName(), result.ConfidencePercent())
	fmt.Fprintf(w, "Audio duration: %s\n", transcript.FormatClock(result.AudioDuration))
	fmt.Fprintf(w, "Processing:     %.1fs\n", result.ProcessingTime)
	fmt.Fprintln(w)

	for _, seg := range result.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		fmt.Fprintf(w, "[%s - %s]  %s\n",
			transcript.FormatClock(seg.Start),
			transcript.FormatClock(seg.End),
			text)
	}
}

// printMeeting writes a meeting detail block. Audio, transcription, and
// summary sections appear only when present.
func printMeeting(w io.Writer, m *client.Meeting) {
	fmt.Fprintf(w, "Meeting:   %s\n", m.ID)
	fmt.Fprintf(w, "Title:     %s\n", m.Title)
	if m.Description != "" {
		fmt.Fprintf(w, "About:     %s\n", m.Description)
	}
	fmt.Fprintf(w, "When:      %s - %s\n",
		m.StartTime.Local().Format("2006-01-02 15:04"),
		m.EndTime.Local().Format("15:04"))
	fmt.Fprintf(w, "Where:     %s (%s)\n", m.Location, m.LocationType)
	fmt.Fprintf(w, "Organizer: %s\n", m.Organizer)
	fmt.Fprintf(w, "Status:    %s\n", m.Status)

	if len(m.Participants) > 0 {
		fmt.Fprintf(w, "Participants (%d):\n", len(m.Participants))
		for _, p := range m.Participants {
			line := "  - " + p.Name
			if p.Email != "" {
				line += " <" + p.Email + ">"
			}
			if p.Role != "" {
				line += ", " + p.Role
			}
			if !p.IsRequired {
				line += " (optional)"
			}
			fmt.Fprintln(w, line)
		}
	}

	if m.HasAudio() {
		fmt.Fprintln(w, "Audio:     attached")
	}
	if m.TranscriptionID != "" {
		fmt.Fprintf(w, "Transcription: %s\n", m.TranscriptionID)
	}
	if m.Summary != "" {
		fmt.Fprintf(w, "\nSummary:\n%s\n", m.Summary)
	}
}

// parseTimeFlag accepts a date or date-time in common formats.
func parseTimeFlag(value string) (time.Time, error) {
	layouts := []string{
		time.RFC3339,
		"2006-01-02 15:04",
		"2006-01-02T15:04",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q (want RFC3339 or YYYY-MM-DD [HH:MM])", value)
}
