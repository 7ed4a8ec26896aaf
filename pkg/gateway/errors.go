package gateway

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidSignature   = errors.New("gateway: invalid webhook signature")
	ErrMissingSignature   = errors.New("gateway: missing webhook signature")
	ErrMalformedEvent     = errors.New("gateway: malformed webhook event")
	ErrMethodNotSupported = errors.New("gateway: payment method not supported")
	ErrUnknownStatus      = errors.New("gateway: unknown payment status")
	ErrInvalidRequest     = errors.New("gateway: invalid request")
)

// ProcessorError is a rejection or failure reported by the processor.
// Error returns the processor's message unchanged so it can be shown to
// the user.
type ProcessorError struct {
	Provider   string
	Operation  string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProcessorError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s failed with status %d", e.Provider, e.Operation, e.StatusCode)
}

func (e *ProcessorError) Unwrap() error { return e.Err }

// IsProcessorError reports whether err came from the processor and returns it.
func IsProcessorError(err error) (*ProcessorError, bool) {
	var pe *ProcessorError
	ok := errors.As(err, &pe)
	return pe, ok
}
