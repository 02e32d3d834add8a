package domain

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	ErrorUnsupported      ErrorKind = "unsupported"
	ErrorPermissionDenied ErrorKind = "permission_denied"
	ErrorDeviceNotFound   ErrorKind = "device_not_found"
	ErrorAcquisitionOther ErrorKind = "acquisition_other"
	ErrorEncodingFailure  ErrorKind = "encoding_failure"
)

// Capture providers wrap these so the controller can classify failures
// without inspecting messages.
var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrDeviceNotFound   = errors.New("device not found")
)

const (
	MessageUnsupportedEnvironment = "Audio recording is not supported in this environment"
	MessageUnsupported            = "Audio recording is not supported"
	MessagePermissionDenied       = "Microphone access denied. Please allow microphone access and try again."
	MessageDeviceNotFound         = "No microphone found. Please check your audio devices."
)

// RecordingError is the classified failure stored as the session's last error.
type RecordingError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *RecordingError) Error() string {
	return e.Message
}

func (e *RecordingError) Unwrap() error {
	return e.Err
}

func NewUnsupportedError(message string) *RecordingError {
	return &RecordingError{Kind: ErrorUnsupported, Message: message}
}

// ClassifyAcquisitionError maps a stream request failure to one of the
// acquisition kinds.
func ClassifyAcquisitionError(err error) *RecordingError {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return &RecordingError{Kind: ErrorPermissionDenied, Message: MessagePermissionDenied, Err: err}
	case errors.Is(err, ErrDeviceNotFound):
		return &RecordingError{Kind: ErrorDeviceNotFound, Message: MessageDeviceNotFound, Err: err}
	default:
		return &RecordingError{
			Kind:    ErrorAcquisitionOther,
			Message: fmt.Sprintf("Failed to start recording: %s", causeText(err)),
			Err:     err,
		}
	}
}

func ClassifyEncodingError(err error) *RecordingError {
	return &RecordingError{
		Kind:    ErrorEncodingFailure,
		Message: "Recording failed: " + causeText(err),
		Err:     err,
	}
}

func causeText(err error) string {
	if err == nil || err.Error() == "" {
		return "Unknown error"
	}
	return err.Error()
}
