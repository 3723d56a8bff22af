// Package recorder provides ffmpeg-based microphone capture for the
// meetscribe CLI. A recording session produces a WAV file suitable for the
// transcription upload pipeline.
//
// One session may run at a time process-wide; both the generic record command
// and meeting-scoped recording go through the same guard.
package recorder

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	mserrors "github.com/hdntran/meetscribe-cli/pkg/errors"
	"github.com/hdntran/meetscribe-cli/pkg/logging"
)

// DeviceErrorKind classifies capture-device failures so the CLI can print a
// specific hint for each.
type DeviceErrorKind int

const (
	// DeviceErrorUnknown is any failure that does not match a known pattern.
	DeviceErrorUnknown DeviceErrorKind = iota
	// DeviceErrorPermissionDenied means microphone access was refused.
	DeviceErrorPermissionDenied
	// DeviceErrorNotFound means no capture device is present.
	DeviceErrorNotFound
	// DeviceErrorBusy means another process holds the capture device.
	DeviceErrorBusy
)

// DeviceError wraps an ffmpeg capture failure with its classified kind.
type DeviceError struct {
	Kind   DeviceErrorKind
	Detail string
}

func (e *DeviceError) Error() string {
	switch e.Kind {
	case DeviceErrorPermissionDenied:
		return "microphone access denied: " + e.Detail
	case DeviceErrorNotFound:
		return "no audio capture device found: " + e.Detail
	case DeviceErrorBusy:
		return "audio capture device is busy: " + e.Detail
	}
	return "audio capture failed: " + e.Detail
}

// Hint returns a user-facing suggestion for resolving the failure.
func (e *DeviceError) Hint() string {
	switch e.Kind {
	case DeviceErrorPermissionDenied:
		return "Grant microphone access to your terminal in the system privacy settings."
	case DeviceErrorNotFound:
		return "Connect a microphone or check your audio input configuration."
	case DeviceErrorBusy:
		return "Close other applications using the microphone and try again."
	}
	return "Check the ffmpeg log output for details."
}

// ClassifyDeviceError inspects ffmpeg stderr output and assigns a kind.
func ClassifyDeviceError(stderr string) *DeviceError {
	lower := strings.ToLower(stderr)
	kind := DeviceErrorUnknown
	switch {
	case strings.Contains(lower, "permission denied"),
		strings.Contains(lower, "not permitted"),
		strings.Contains(lower, "access denied"):
		kind = DeviceErrorPermissionDenied
	case strings.Contains(lower, "no such device"),
		strings.Contains(lower, "no such file"),
		strings.Contains(lower, "cannot find"),
		strings.Contains(lower, "device not found"):
		kind = DeviceErrorNotFound
	case strings.Contains(lower, "busy"),
		strings.Contains(lower, "resource temporarily unavailable"),
		strings.Contains(lower, "in use"):
		kind = DeviceErrorBusy
	}
	detail := strings.TrimSpace(stderr)
	if len(detail) > 200 {
		detail = detail[:200]
	}
	return &DeviceError{Kind: kind, Detail: detail}
}

// Session represents one in-progress or finished capture.
type Session struct {
	// ID is a unique identifier for the session.
	ID string

	// OutputPath is where the WAV file is written.
	OutputPath string

	// StartedAt is when capture began.
	StartedAt time.Time

	cmd    *exec.Cmd
	stderr *bytes.Buffer
}

// Elapsed returns the time since capture began.
func (s *Session) Elapsed() time.Duration {
	return time.Since(s.StartedAt)
}

// Options configures a recording session.
type Options struct {
	// OutputDir is the directory for the recording file. Defaults to the
	// current directory.
	OutputDir string

	// MaxDuration stops the capture after this long. Zero means record until
	// Stop is called.
	MaxDuration time.Duration
}

// Recorder manages microphone capture sessions. At most one session is
// active at a time; Start returns ErrRecordingActive otherwise.
type Recorder struct {
	mu     sync.Mutex
	active *Session
	log    logging.Logger

	// buildCommand constructs the capture process. Replaceable in tests.
	buildCommand func(ctx context.Context, outputPath string, maxDuration time.Duration) *exec.Cmd
}

// New creates a Recorder.
func New(log logging.Logger) *Recorder {
	if log == nil {
		log = logging.Nop()
	}
	return &Recorder{
		log:          log,
		buildCommand: buildFFmpegCommand,
	}
}

// CheckAvailable verifies ffmpeg is installed.
func CheckAvailable() error {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return fmt.Errorf("ffmpeg not found in PATH (required for recording): %w", err)
	}
	return nil
}

// buildFFmpegCommand assembles the platform-specific ffmpeg capture command
// producing 16 kHz mono WAV, the format the transcription backend handles
// best.
func buildFFmpegCommand(ctx context.Context, outputPath string, maxDuration time.Duration) *exec.Cmd {
	args := []string{"-hide_banner", "-loglevel", "error"}

	switch runtime.GOOS {
	case "darwin":
		args = append(args, "-f", "avfoundation", "-i", ":default")
	case "windows":
		args = append(args, "-f", "dshow", "-i", "audio=default")
	default:
		args = append(args, "-f", "alsa", "-i", "default")
	}

	args = append(args, "-ac", "1", "-ar", "16000")
	if maxDuration > 0 {
		args = append(args, "-t", fmt.Sprintf("%.0f", maxDuration.Seconds()))
	}
	args = append(args, "-y", outputPath)

	return exec.CommandContext(ctx, "ffmpeg", args...)
}

// FileName returns the canonical recording file name for a start time,
// e.g. "recording_20260314_093000.wav".
func FileName(startedAt time.Time) string {
	return fmt.Sprintf("recording_%s.wav", startedAt.Format("20060102_150405"))
}

// Start begins a capture session. It fails with ErrRecordingActive if a
// session is already running, regardless of which command started it.
func (r *Recorder) Start(ctx context.Context, opts Options) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil {
		return nil, mserrors.ErrRecordingActive
	}

	startedAt := time.Now()
	dir := opts.OutputDir
	if dir == "" {
		dir = "."
	}
	outputPath := filepath.Join(dir, FileName(startedAt))

	cmd := r.buildCommand(ctx, outputPath, opts.MaxDuration)
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting capture process: %w", err)
	}

	session := &Session{
		ID:         uuid.NewString(),
		OutputPath: outputPath,
		StartedAt:  startedAt,
		cmd:        cmd,
		stderr:     stderr,
	}
	r.active = session

	r.log.Info("recording started",
		logging.F("session_id", session.ID),
		logging.F("output", outputPath))

	return session, nil
}

// Stop finalizes the active session and returns it. The capture process is
// interrupted so ffmpeg can flush the WAV header; a clean shutdown after an
// interrupt is not an error.
func (r *Recorder) Stop() (*Session, error) {
	r.mu.Lock()
	session := r.active
	r.active = nil
	r.mu.Unlock()

	if session == nil {
		return nil, fmt.Errorf("no recording in progress: %w", mserrors.ErrInvalidState)
	}

	interrupted := false
	if session.cmd.Process != nil {
		if err := session.cmd.Process.Signal(interruptSignal()); err == nil {
			interrupted = true
		}
	}

	err := session.cmd.Wait()
	if err != nil && !interrupted {
		if devErr := ClassifyDeviceError(session.stderr.String()); devErr.Detail != "" {
			return nil, devErr
		}
		return nil, fmt.Errorf("capture process failed: %w", err)
	}

	r.log.Info("recording stopped",
		logging.F("session_id", session.ID),
		logging.F("elapsed", session.Elapsed()))

	return session, nil
}

// Wait blocks until the active session's capture process exits on its own
// (context cancelled or --duration elapsed) and returns the session.
func (r *Recorder) Wait() (*Session, error) {
	r.mu.Lock()
	session := r.active
	r.mu.Unlock()

	if session == nil {
		return nil, fmt.Errorf("no recording in progress: %w", mserrors.ErrInvalidState)
	}

	err := session.cmd.Wait()

	r.mu.Lock()
	r.active = nil
	r.mu.Unlock()

	if err != nil {
		stderr := session.stderr.String()
		if stderr != "" {
			return nil, ClassifyDeviceError(stderr)
		}
		return nil, fmt.Errorf("capture process failed: %w", err)
	}
	return session, nil
}

// Active reports whether a session is currently running and, if so, its
// elapsed time.
func (r *Recorder) Active() (bool, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return false, 0
	}
	return true, r.active.Elapsed()
}
