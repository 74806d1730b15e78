package llm

import (
	"errors"
	"net/http"
)

// busyError signals that the engine cannot accept more work right now.
type busyError struct{ reason string }

func (e busyError) Error() string { return "engine busy: " + e.reason }

// StatusCode maps busy errors to 503 Service Unavailable.
func (e busyError) StatusCode() int { return http.StatusServiceUnavailable }

// ErrBusy constructs a busy error.
func ErrBusy(reason string) error { return busyError{reason: reason} }

// IsBusy reports whether err indicates the engine is at capacity.
func IsBusy(err error) bool {
	var e busyError
	return errors.As(err, &e)
}

// internalError wraps a failure inside the engine, either at submission or
// while generating.
type internalError struct{ err error }

func (e internalError) Error() string { return "engine-internal: " + e.err.Error() }

func (e internalError) Unwrap() error { return e.err }

// StatusCode maps internal errors to 500.
func (e internalError) StatusCode() int { return http.StatusInternalServerError }

// Internal wraps err as an engine-internal error. nil stays nil and errors
// that are already internal are returned as-is.
func Internal(err error) error {
	if err == nil {
		return nil
	}
	if IsInternal(err) {
		return err
	}
	return internalError{err: err}
}

// IsInternal reports whether err is an engine-internal failure.
func IsInternal(err error) bool {
	var e internalError
	return errors.As(err, &e)
}

// dependencyUnavailableError signals a missing runtime dependency (for
// example a binary built without llama support).
type dependencyUnavailableError struct{ msg string }

func (e dependencyUnavailableError) Error() string { return e.msg }

// StatusCode maps dependency errors to 503.
func (e dependencyUnavailableError) StatusCode() int { return http.StatusServiceUnavailable }

// ErrDependencyUnavailable constructs a dependencyUnavailableError.
func ErrDependencyUnavailable(msg string) error { return dependencyUnavailableError{msg: msg} }

// IsDependencyUnavailable reports whether err indicates a missing runtime dependency.
func IsDependencyUnavailable(err error) bool {
	var e dependencyUnavailableError
	return errors.As(err, &e)
}
