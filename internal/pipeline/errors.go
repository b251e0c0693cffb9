package pipeline

import (
	"errors"
	"fmt"

	"reelforge/internal/services"
)

// Error is the caller-visible failure of a render request.
type Error struct {
	RequestID string
	Class     services.Class
	Detail    string
	Err       error
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return string(e.Class)
	}
	return fmt.Sprintf("%s: %s", e.Class, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AsError extracts a pipeline error from err.
func AsError(err error) (*Error, bool) {
	var perr *Error
	if errors.As(err, &perr) {
		return perr, true
	}
	return nil, false
}

func newError(requestID string, err error) *Error {
	if existing, ok := AsError(err); ok {
		return existing
	}
	return &Error{
		RequestID: requestID,
		Class:     services.ErrorClass(err),
		Detail:    err.Error(),
		Err:       err,
	}
}
