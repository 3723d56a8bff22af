package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mserrors "github.com/hdntran/meetscribe-cli/pkg/errors"
)

// TestNewTranscribeCommand verifies the transcribe command structure.
func TestNewTranscribeCommand(t *testing.T) {
	cmd := NewTranscribeCommand(nil)

	assert.Equal(t, "transcribe", cmd.Use[:10], "command name should be transcribe")
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)

	for _, name := range []string{"model", "language", "word-timestamps", "no-vad", "export", "out", "no-wait", "no-history"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "flag %s should exist", name)
	}
}

// writeTestAudio creates a small fake WAV file.
func writeTestAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "standup.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFFfake"), 0o644))
	return path
}

func TestTranscribeCommand_FullRun(t *testing.T) {
	audioPath := writeTestAudio(t)

	var polls atomic.Int32
	handler := http.NewServeMux()
	handler.HandleFunc("POST /api/transcribe", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "small", r.FormValue("model_size"))
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{
			"id": "task-1", "status": "queued", "file_name": "standup.wav",
		})
	})
	handler.HandleFunc("GET /api/tasks/task-1", func(w http.ResponseWriter, r *http.Request) {
		if polls.Add(1) < 2 {
			json.NewEncoder(w).Encode(map[string]any{"id": "task-1", "status": "processing"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id": "task-1", "status": "completed",
			"result": map[string]any{
				"language":             "en",
				"language_probability": 0.98,
				"audio_duration":       4.0,
				"processing_time":      1.2,
				"segments": []map[string]any{
					{"id": 0, "start": 0.0, "end": 4.0, "text": " quick sync notes"},
				},
			},
		})
	})

	deps := &TranscribeCommandDeps{
		LoadConfig:  loadTestConfig(testConfig()),
		NewClient:   testFactory(t, handler),
		OpenHistory: openTestHistory(t),
	}

	out, err := runCommand(t, NewTranscribeCommand(deps), audioPath, "--model", "small")
	require.NoError(t, err)
	assert.Contains(t, out, "Queued task task-1")
	assert.Contains(t, out, "quick sync notes")
	assert.Contains(t, out, "Saved to history as")
}

func TestTranscribeCommand_NoWait(t *testing.T) {
	audioPath := writeTestAudio(t)

	handler := http.NewServeMux()
	handler.HandleFunc("POST /api/transcribe", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{"id": "task-9", "status": "queued"})
	})

	deps := &TranscribeCommandDeps{
		LoadConfig:  loadTestConfig(testConfig()),
		NewClient:   testFactory(t, handler),
		OpenHistory: openTestHistory(t),
	}

	out, err := runCommand(t, NewTranscribeCommand(deps), audioPath, "--no-wait")
	require.NoError(t, err)
	assert.Contains(t, out, "task show task-9")
}

func TestTranscribeCommand_RejectsNonAudioBeforeNetwork(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	deps := &TranscribeCommandDeps{
		LoadConfig:  loadTestConfig(testConfig()),
		NewClient:   testFactory(t, handler),
		OpenHistory: openTestHistory(t),
	}

	_, err := runCommand(t, NewTranscribeCommand(deps), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, mserrors.ErrNotAudio)
	assert.Equal(t, int32(0), calls.Load(), "no request should be made for invalid files")
}

func TestTranscribeCommand_ExportSRT(t *testing.T) {
	audioPath := writeTestAudio(t)
	outPath := filepath.Join(t.TempDir(), "standup.srt")

	handler := http.NewServeMux()
	handler.HandleFunc("POST /api/transcribe", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{"id": "task-2", "status": "queued"})
	})
	handler.HandleFunc("GET /api/tasks/task-2", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"id": "task-2", "status": "completed",
			"result": map[string]any{
				"language": "en",
				"segments": []map[string]any{
					{"id": 0, "start": 0.0, "end": 2.5, "text": " first line"},
				},
			},
		})
	})

	deps := &TranscribeCommandDeps{
		LoadConfig:  loadTestConfig(testConfig()),
		NewClient:   testFactory(t, handler),
		OpenHistory: openTestHistory(t),
	}

	out, err := runCommand(t, NewTranscribeCommand(deps),
		audioPath, "--export", "srt", "--out", outPath, "--no-history")
	require.NoError(t, err)
	assert.Contains(t, out, fmt.Sprintf("Exported %s", outPath))

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "00:00:00,000 --> 00:00:02,500")
	assert.Contains(t, string(data), "first line")
}

func TestTranscribeCommand_FailedTask(t *testing.T) {
	audioPath := writeTestAudio(t)

	handler := http.NewServeMux()
	handler.HandleFunc("POST /api/transcribe", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{"id": "task-3", "status": "queued"})
	})
	handler.HandleFunc("GET /api/tasks/task-3", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"id": "task-3", "status": "failed", "error": "audio codec not supported",
		})
	})

	deps := &TranscribeCommandDeps{
		LoadConfig:  loadTestConfig(testConfig()),
		NewClient:   testFactory(t, handler),
		OpenHistory: openTestHistory(t),
	}

	_, err := runCommand(t, NewTranscribeCommand(deps), audioPath)
	require.Error(t, err)
	assert.ErrorIs(t, err, mserrors.ErrTaskFailed)
	assert.Contains(t, err.Error(), "audio codec not supported")
}
