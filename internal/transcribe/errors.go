package transcribe

import (
	"errors"
	"fmt"
)

// ErrUnknownProvider is wrapped by New when the recognizer name is not registered.
var ErrUnknownProvider = errors.New("unknown recognizer")

// BackendUnavailableError means a known recognizer cannot be used in this
// process, typically because its endpoint, key or binary is not configured.
type BackendUnavailableError struct {
	Backend string
	Reason  string
	Err     error
}

func (e *BackendUnavailableError) Error() string {
	return fmt.Sprintf("recognizer %q is not available: %s", e.Backend, e.Reason)
}

func (e *BackendUnavailableError) Unwrap() error {
	return e.Err
}

// IsBackendUnavailable reports whether err is or wraps a *BackendUnavailableError.
func IsBackendUnavailable(err error) bool {
	var be *BackendUnavailableError
	return errors.As(err, &be)
}

func unavailable(backend, reason string, err error) error {
	return &BackendUnavailableError{Backend: backend, Reason: reason, Err: err}
}
