package client

import (
	"errors"
	"fmt"
	"net/http"
)

// TransportError means no usable response came back: the network failed,
// the request timed out or was cancelled, or the body could not be read.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPStatusError means the upstream answered with a non-2xx status.
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("HTTP error! status: %d", e.StatusCode)
}

// DecodeError means the upstream answered 2xx with a body that is not JSON
// or not the expected shape.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode response from %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool {
	var statusErr *HTTPStatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}

// ErrorKind names the failure class of err for logs and audit records.
func ErrorKind(err error) string {
	var (
		transportErr *TransportError
		statusErr    *HTTPStatusError
		decodeErr    *DecodeError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &transportErr):
		return "transport"
	case errors.As(err, &statusErr):
		return "http_status"
	case errors.As(err, &decodeErr):
		return "decode"
	default:
		return "unknown"
	}
}
