// Package errors defines the sentinel errors shared across the meetscribe
// CLI. Callers classify failures with errors.Is:
//
//	import mserrors "github.com/hdntran/meetscribe-cli/pkg/errors"
//
//	if errors.Is(err, mserrors.ErrNotFound) { ... }
package errors

import "errors"

var (
	// ErrNotFound indicates the requested resource was not found.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates invalid input or validation failure.
	ErrValidation = errors.New("validation error")

	// ErrUnauthorized indicates the request lacks valid authentication.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTaskFailed indicates the backend reported a failed transcription task.
	ErrTaskFailed = errors.New("transcription task failed")

	// ErrFileTooLarge indicates an upload exceeds the client-side size cap.
	ErrFileTooLarge = errors.New("file exceeds maximum upload size")

	// ErrNotAudio indicates a file was rejected because it is not audio.
	ErrNotAudio = errors.New("not an audio file")

	// ErrRecordingActive indicates a recording session is already in progress.
	ErrRecordingActive = errors.New("a recording is already in progress")

	// ErrInvalidState indicates the operation is not valid for the current state.
	ErrInvalidState = errors.New("invalid state")
)
