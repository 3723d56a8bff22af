package client

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hdntran/meetscribe-cli/config"
	mserrors "github.com/hdntran/meetscribe-cli/pkg/errors"
	"github.com/hdntran/meetscribe-cli/pkg/logging"
	"github.com/hdntran/meetscribe-cli/pkg/transcript"
)

// Task status values reported by the backend. The initial state is
// "queued"; some deployments report it as "pending" — both are non-terminal.
const (
	TaskStatusQueued     = "queued"
	TaskStatusPending    = "pending"
	TaskStatusProcessing = "processing"
	TaskStatusCompleted  = "completed"
	TaskStatusFailed     = "failed"
)

// TranscriptionTask is the server-side record of an async transcription job.
type TranscriptionTask struct {
	ID        string             `json:"id"`
	Status    string             `json:"status"`
	CreatedAt string             `json:"created_at"`
	FileName  string             `json:"file_name"`
	Result    *transcript.Result `json:"result,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// IsTerminal reports whether the task has finished, successfully or not.
func (t *TranscriptionTask) IsTerminal() bool {
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusFailed
}

// TranscribeOptions are the transcription parameters sent with an upload.
type TranscribeOptions struct {
	// ModelSize selects the Whisper model (e.g. "base", "large-v3").
	ModelSize string
	// Language forces a language code; empty means auto-detect.
	Language string
	// WordTimestamps requests per-word timing in segments.
	WordTimestamps bool
	// VADFilter enables voice activity detection filtering.
	VADFilter bool
}

// audioExtensions are the file extensions accepted for upload.
var audioExtensions = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".m4a":  true,
	".mp4":  true,
	".aac":  true,
	".ogg":  true,
	".opus": true,
	".flac": true,
	".wma":  true,
	".webm": true,
}

// ValidateAudioFile checks that a file exists, looks like audio, and is
// within the upload size limit. It runs before any network traffic.
func ValidateAudioFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file %q: %w", path, mserrors.ErrNotFound)
		}
		return fmt.Errorf("checking file %q: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%q is a directory: %w", path, mserrors.ErrNotAudio)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !audioExtensions[ext] {
		return fmt.Errorf("%q is not a recognized audio format: %w", path, mserrors.ErrNotAudio)
	}

	if info.Size() > config.MaxUploadSize {
		return fmt.Errorf("file is %.1f MB, limit is %d MB: %w",
			float64(info.Size())/(1024*1024),
			config.MaxUploadSize/(1024*1024),
			mserrors.ErrFileTooLarge)
	}

	return nil
}

// Transcribe uploads an audio file for transcription and returns the queued
// task. The file is validated locally first; invalid files never reach the
// network.
func (c *Client) Transcribe(ctx context.Context, filePath string, opts TranscribeOptions) (*TranscriptionTask, error) {
	if err := ValidateAudioFile(filePath); err != nil {
		return nil, err
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("opening %q: %w", filePath, err)
	}
	defer file.Close()

	fields := map[string]string{
		"model_size":      opts.ModelSize,
		"language":        opts.Language,
		"word_timestamps": strconv.FormatBool(opts.WordTimestamps),
		"vad_filter":      strconv.FormatBool(opts.VADFilter),
	}

	var task TranscriptionTask
	if err := c.uploadMultipart(ctx, "/api/transcribe", filepath.Base(filePath), file, fields, &task); err != nil {
		return nil, err
	}

	c.log.Info("transcription queued",
		logging.F("task_id", task.ID),
		logging.F("file", task.FileName))

	return &task, nil
}

// uploadMultipart streams a file as a multipart POST with extra form
// fields. The body is piped so large uploads are not buffered in memory.
func (c *Client) uploadMultipart(ctx context.Context, path, fileName string, file io.Reader, fields map[string]string, out any) error {
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		var err error
		defer func() { pw.CloseWithError(err) }()

		for key, value := range fields {
			if value == "" {
				continue
			}
			if err = writer.WriteField(key, value); err != nil {
				return
			}
		}

		part, werr := writer.CreateFormFile("file", fileName)
		if werr != nil {
			err = werr
			return
		}
		if _, err = io.Copy(part, file); err != nil {
			return
		}
		err = writer.Close()
	}()

	req, err := c.newRequest(ctx, http.MethodPost, path, nil, pr, writer.FormDataContentType())
	if err != nil {
		return err
	}
	return c.do(req, out)
}

// GetTask fetches the current state of a transcription task.
func (c *Client) GetTask(ctx context.Context, taskID string) (*TranscriptionTask, error) {
	var task TranscriptionTask
	if err := c.getJSON(ctx, "/api/tasks/"+url.PathEscape(taskID), nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// ListTasks returns recent tasks, newest first. A status filter and limit
// are optional (limit <= 0 uses the server default).
func (c *Client) ListTasks(ctx context.Context, limit int, status string) ([]TranscriptionTask, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if status != "" {
		query.Set("status", status)
	}

	var tasks []TranscriptionTask
	if err := c.getJSON(ctx, "/api/tasks", query, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// DeleteTask removes a task record from the server.
func (c *Client) DeleteTask(ctx context.Context, taskID string) error {
	return c.delete(ctx, "/api/tasks/"+url.PathEscape(taskID), nil)
}

// WaitForTask polls a task until it reaches a terminal state. Progress is
// reported through the optional callback on every successful poll. Transport
// errors are tolerated up to MaxRetries consecutive failures. A failed task
// returns the final task along with ErrTaskFailed carrying the server's
// error string.
func (c *Client) WaitForTask(ctx context.Context, taskID string, pollInterval time.Duration, progress func(*TranscriptionTask)) (*TranscriptionTask, error) {
	if pollInterval <= 0 {
		pollInterval = config.DefaultPollInterval
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	consecutiveFailures := 0
	for {
		task, err := c.GetTask(ctx, taskID)
		if err != nil {
			if !isRetryable(err) {
				return nil, err
			}
			consecutiveFailures++
			if consecutiveFailures > c.options.MaxRetries {
				return nil, fmt.Errorf("polling task %s failed %d times: %w",
					taskID, consecutiveFailures, err)
			}
			c.log.Warn("task poll failed, will retry",
				logging.F("task_id", taskID),
				logging.F("failures", consecutiveFailures),
				logging.Err(err))
		} else {
			consecutiveFailures = 0
			if progress != nil {
				progress(task)
			}

			switch task.Status {
			case TaskStatusCompleted:
				return task, nil
			case TaskStatusFailed:
				msg := task.Error
				if msg == "" {
					msg = "unknown error"
				}
				return task, fmt.Errorf("%w: %s", mserrors.ErrTaskFailed, msg)
			}
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("wait cancelled: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}
