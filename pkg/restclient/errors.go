package restclient

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by calls issued after Close.
	ErrClosed = errors.New("rest client is closed")
	// ErrNilRequest is returned by Post when no request message is given.
	ErrNilRequest = errors.New("request message is nil")
	// ErrParamNotFound marks a used parameter missing from the encoded request.
	ErrParamNotFound = errors.New("parameter not found in request")
)

// StatusError reports a response whose status code is not 200.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	// Request holds the encoded POST body; empty for GET.
	Request []byte
	Body    []byte
}

func (e *StatusError) Error() string {
	if len(e.Request) > 0 {
		return fmt.Sprintf("error when sending a %s request to %s: request: %s, response: %d, %s",
			e.Method, e.URL, e.Request, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("error when sending a %s request to %s: response: %d, %s",
		e.Method, e.URL, e.StatusCode, e.Body)
}

// IsStatus reports whether err carries a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// MissingParamError reports a used parameter that is absent from the encoded request.
type MissingParamError struct {
	Key string
}

func (e *MissingParamError) Error() string {
	return fmt.Sprintf("remove used param %q: %v", e.Key, ErrParamNotFound)
}

func (e *MissingParamError) Unwrap() error { return ErrParamNotFound }
