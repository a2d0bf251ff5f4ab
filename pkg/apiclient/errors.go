package apiclient

import (
	"errors"
	"fmt"
)

// Sentinel errors for the stages of a metadata fetch. Returned errors wrap
// one of these along with call context; match with errors.Is.
var (
	// ErrPortDiscovery means the service port could not be resolved from the
	// host property store.
	ErrPortDiscovery = errors.New("service port not found in property store")

	// ErrTransport covers dial, write, and read failures, on the service
	// socket as well as on the direct fallback request.
	ErrTransport = errors.New("transport failed")

	// ErrEmptyResponse means the service closed the connection without
	// sending any bytes.
	ErrEmptyResponse = errors.New("empty response from service")

	// ErrDecode means a response body could not be decoded into the
	// expected shape.
	ErrDecode = errors.New("undecodable response")
)

// StatusError reports a non-success HTTP status from the direct fallback
// request.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http status %d", e.Code)
	}
	return fmt.Sprintf("http status %d: %s", e.Code, e.Body)
}

// Is matches another *StatusError with the same status code.
func (e *StatusError) Is(target error) bool {
	t, ok := target.(*StatusError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// ServiceError is a failure the optimization service reported inside an
// otherwise well-formed result entry.
type ServiceError struct {
	Message string
}

func (e *ServiceError) Error() string {
	return "service error: " + e.Message
}
