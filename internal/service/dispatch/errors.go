package dispatch

import (
	"errors"
	"fmt"
)

// ErrorCode classifies turn failures for callers and the HTTP layer.
type ErrorCode string

const (
	ErrorInvalidInput          ErrorCode = "INVALID_INPUT"
	ErrorUnknownLabel          ErrorCode = "UNKNOWN_LABEL"
	ErrorClassifierUnavailable ErrorCode = "CLASSIFIER_UNAVAILABLE"
	ErrorGeneratorUnavailable  ErrorCode = "GENERATOR_UNAVAILABLE"
	ErrorSessionBusy           ErrorCode = "SESSION_BUSY"
)

// Error is a coded turn failure. Every error surfaced by HandleTurn carries
// one of the codes above; nothing is silently swallowed.
type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("dispatch: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("dispatch: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

// CodeOf extracts the error code from a turn failure, or "" for errors that
// did not originate in the dispatch pipeline.
func CodeOf(err error) ErrorCode {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
