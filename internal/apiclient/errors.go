package apiclient

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	// ErrSessionExpired is matched by every 401 APIError.
	ErrSessionExpired = errors.New("apiclient: session expired")
	// ErrSuperseded is the abort cause when a newer request took over the key.
	ErrSuperseded = errors.New("apiclient: superseded by a newer request")
	// ErrCancelled is the abort cause for Cancel and CancelAll.
	ErrCancelled = errors.New("apiclient: request cancelled")
)

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
	// Body is the decoded error payload; empty when the server sent none or non-JSON.
	Body map[string]any
}

func (e *APIError) Error() string {
	return e.Message
}

// Unwrap lets errors.Is(err, ErrSessionExpired) match 401 responses.
func (e *APIError) Unwrap() error {
	if e.Status == 401 {
		return ErrSessionExpired
	}
	return nil
}

// NetworkError is a transport failure: DNS, refused connection, timeout, broken body.
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// AbortError reports a request that was superseded or cancelled. It is never
// shown to users.
type AbortError struct {
	Key   string
	Cause error
}

func (e *AbortError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("request aborted: %v", e.Cause)
	}
	return fmt.Sprintf("request %q aborted: %v", e.Key, e.Cause)
}

func (e *AbortError) Unwrap() error { return e.Cause }

// IsAbort reports whether err came from a cancelled or superseded request.
func IsAbort(err error) bool {
	var abort *AbortError
	return errors.As(err, &abort)
}

// AsAPIError extracts the APIError from err.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsNetwork reports whether err is a transport failure.
func IsNetwork(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}
