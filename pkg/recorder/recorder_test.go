package recorder

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mserrors "github.com/hdntran/meetscribe-cli/pkg/errors"
)

// fakeCapture substitutes a long-running harmless process for ffmpeg so
// session lifecycle can be tested without a capture device.
func fakeCapture(ctx context.Context, outputPath string, maxDuration time.Duration) *exec.Cmd {
	return exec.CommandContext(ctx, "sleep", "30")
}

func TestFileName(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	assert.Equal(t, "recording_20260314_093000.wav", FileName(at))
}

func TestClassifyDeviceError(t *testing.T) {
	tests := []struct {
		name   string
		stderr string
		want   DeviceErrorKind
	}{
		{"permission denied", "default: Permission denied", DeviceErrorPermissionDenied},
		{"not permitted", "operation not permitted", DeviceErrorPermissionDenied},
		{"no device", "ALSA lib: No such device", DeviceErrorNotFound},
		{"missing node", "default: No such file or directory", DeviceErrorNotFound},
		{"busy", "Device or resource busy", DeviceErrorBusy},
		{"in use", "the device is in use by another application", DeviceErrorBusy},
		{"unknown", "something else went wrong", DeviceErrorUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyDeviceError(tt.stderr)
			assert.Equal(t, tt.want, got.Kind)
			assert.NotEmpty(t, got.Error())
			assert.NotEmpty(t, got.Hint())
		})
	}
}

func TestRecorder_SingleSessionGuard(t *testing.T) {
	r := New(nil)
	r.buildCommand = fakeCapture

	session, err := r.Start(context.Background(), Options{OutputDir: t.TempDir()})
	require.NoError(t, err)
	require.NotNil(t, session)

	// A second start must be refused while the first session runs, no matter
	// which command path asks.
	_, err = r.Start(context.Background(), Options{OutputDir: t.TempDir()})
	require.Error(t, err)
	assert.ErrorIs(t, err, mserrors.ErrRecordingActive)

	stopped, err := r.Stop()
	require.NoError(t, err)
	assert.Equal(t, session.ID, stopped.ID)

	// After stopping, a new session may begin.
	session2, err := r.Start(context.Background(), Options{OutputDir: t.TempDir()})
	require.NoError(t, err)
	assert.NotEqual(t, session.ID, session2.ID)

	_, err = r.Stop()
	require.NoError(t, err)
}

func TestRecorder_StopWithoutSession(t *testing.T) {
	r := New(nil)
	_, err := r.Stop()
	require.Error(t, err)
	assert.ErrorIs(t, err, mserrors.ErrInvalidState)
}

func TestRecorder_Active(t *testing.T) {
	r := New(nil)
	r.buildCommand = fakeCapture

	active, _ := r.Active()
	assert.False(t, active)

	_, err := r.Start(context.Background(), Options{OutputDir: t.TempDir()})
	require.NoError(t, err)

	active, elapsed := r.Active()
	assert.True(t, active)
	assert.GreaterOrEqual(t, elapsed, time.Duration(0))

	_, err = r.Stop()
	require.NoError(t, err)

	active, _ = r.Active()
	assert.False(t, active)
}

func TestRecorder_SessionOutputPath(t *testing.T) {
	r := New(nil)
	r.buildCommand = fakeCapture

	dir := t.TempDir()
	session, err := r.Start(context.Background(), Options{OutputDir: dir})
	require.NoError(t, err)
	assert.Contains(t, session.OutputPath, dir)
	assert.Contains(t, session.OutputPath, "recording_")
	assert.Contains(t, session.OutputPath, ".wav")

	_, err = r.Stop()
	require.NoError(t, err)
}
