package handler

import "net/http"

// HTTPError represents an HTTP error with a status code and a stable
// machine-readable key. Message, when set, is shown to the client instead
// of the generic status text.
type HTTPError struct {
	Code    int
	Key     string
	Message string
	err     error
}

// Error implements the error interface.
func (e HTTPError) Error() string {
	switch {
	case e.Message != "":
		return e.Key + ": " + e.Message
	case e.err != nil:
		return e.Key + ": " + e.err.Error()
	}
	return e.Key
}

// Unwrap returns the cause attached with Wrap.
func (e HTTPError) Unwrap() error { return e.err }

// Is matches another HTTPError with the same code and key, so that
// errors.Is(err, ErrNotFound) holds for wrapped copies.
func (e HTTPError) Is(target error) bool {
	t, ok := target.(HTTPError)
	return ok && t.Code == e.Code && t.Key == e.Key
}

// Wrap returns a copy of e carrying err as its cause.
func (e HTTPError) Wrap(err error) HTTPError {
	e.err = err
	return e
}

// WithMessage returns a copy of e with a client-facing message.
func (e HTTPError) WithMessage(msg string) HTTPError {
	e.Message = msg
	return e
}

// ClientMessage is the text rendered in the response body.
func (e HTTPError) ClientMessage() string {
	if e.Message != "" {
		return e.Message
	}
	if e.err != nil && e.Code < http.StatusInternalServerError {
		return e.err.Error()
	}
	return http.StatusText(e.Code)
}

var (
	ErrBadRequest          = HTTPError{Code: http.StatusBadRequest, Key: "bad_request"}
	ErrUnauthorized        = HTTPError{Code: http.StatusUnauthorized, Key: "unauthorized"}
	ErrPaymentRequired     = HTTPError{Code: http.StatusPaymentRequired, Key: "payment_required"}
	ErrForbidden           = HTTPError{Code: http.StatusForbidden, Key: "forbidden"}
	ErrNotFound            = HTTPError{Code: http.StatusNotFound, Key: "not_found"}
	ErrMethodNotAllowed    = HTTPError{Code: http.StatusMethodNotAllowed, Key: "method_not_allowed"}
	ErrConflict            = HTTPError{Code: http.StatusConflict, Key: "conflict"}
	ErrUnprocessableEntity = HTTPError{Code: http.StatusUnprocessableEntity, Key: "unprocessable_entity"}
	ErrTooManyRequests     = HTTPError{Code: http.StatusTooManyRequests, Key: "too_many_requests"}

	ErrInternalServerError = HTTPError{Code: http.StatusInternalServerError, Key: "internal_server_error"}
	ErrBadGateway          = HTTPError{Code: http.StatusBadGateway, Key: "bad_gateway"}
	ErrServiceUnavailable  = HTTPError{Code: http.StatusServiceUnavailable, Key: "service_unavailable"}
)

// NewHTTPError creates a custom HTTP error.
func NewHTTPError(code int, key string) HTTPError {
	return HTTPError{Code: code, Key: key}
}
