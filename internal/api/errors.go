package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrRequestFailed wraps every failed mutation
	ErrRequestFailed = errors.New("request failed")
	// ErrInvalidCredentials is returned when the backend rejects a login or,
	// in fallback mode, when the pair is not the demo account
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRegistrationFailed = errors.New("registration failed")
)

// RequestError is a transport failure: the backend never answered
type RequestError struct {
	Method string
	Path   string
	Err    error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// StatusError is a non-2xx answer from the backend
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// DecodeError means the body did not match the endpoint's response type
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsUnavailable reports whether err means the backend could not serve the
// request at all. A 4xx is an answer, not unavailability.
func IsUnavailable(err error) bool {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return true
	}
	var decErr *DecodeError
	if errors.As(err, &decErr) {
		return true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= http.StatusInternalServerError
	}
	return false
}

func statusCode(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}

func mutationFailed(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrRequestFailed, op, err)
}
