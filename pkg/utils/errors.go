package utils

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a pipeline failure.
type ErrorKind string

const (
	// KindInvalidInput marks a rejected asset (wrong MIME type, empty file).
	KindInvalidInput ErrorKind = "invalid_input"
	// KindMediaProcessing marks a probing or segmenting failure.
	KindMediaProcessing ErrorKind = "media_processing"
	// KindBackendNotReady marks a transient "media not yet usable" backend
	// response. This is the only retryable kind.
	KindBackendNotReady ErrorKind = "backend_not_ready"
	// KindBackendTerminal marks quota, auth, malformed-request or explicit
	// backend failure responses.
	KindBackendTerminal ErrorKind = "backend_terminal"
	// KindTimeout marks exhausted polling/retry budgets or an overrun
	// transcription call deadline.
	KindTimeout ErrorKind = "timeout"
)

// PipelineError is the error type carried through the transcription pipeline.
type PipelineError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Cause.Error())
	}
	return e.Message
}

// Unwrap supports the error chain.
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// NewError creates a new PipelineError.
func NewError(kind ErrorKind, message string, cause error) error {
	return &PipelineError{
		Kind:    kind,
		Message: message,
		Cause:   cause,
	}
}

// IsTransient reports whether err is eligible for retry. Only the
// backend-not-ready classification is transient; everything else aborts
// the whole request.
func IsTransient(err error) bool {
	return KindOf(err) == KindBackendNotReady
}

// KindOf extracts the error kind from err, walking the error chain.
// Unclassified errors are reported as backend-terminal.
func KindOf(err error) ErrorKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindBackendTerminal
}
