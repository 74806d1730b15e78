package manager

import (
	"errors"
	"net/http"

	"llmgate/internal/llm"
)

// engineLoadError signals that the model could not be loaded. It is fatal at
// startup.
type engineLoadError struct {
	path string
	err  error
}

func (e engineLoadError) Error() string {
	return "engine load failed (" + e.path + "): " + e.err.Error()
}

func (e engineLoadError) Unwrap() error { return e.err }

// IsEngineLoad reports whether err is an engine load failure.
func IsEngineLoad(err error) bool {
	var e engineLoadError
	return errors.As(err, &e)
}

// engineNotLoadedError is returned when work arrives while the engine is not ready.
type engineNotLoadedError struct{}

func (engineNotLoadedError) Error() string { return "engine-not-loaded" }

// StatusCode maps engine-not-loaded to 500 Internal Server Error.
func (engineNotLoadedError) StatusCode() int { return http.StatusInternalServerError }

// ErrEngineNotLoaded is returned by Submit before a successful Initialize or after Shutdown.
var ErrEngineNotLoaded error = engineNotLoadedError{}

// IsEngineNotLoaded reports whether err indicates the engine is not ready.
func IsEngineNotLoaded(err error) bool {
	var e engineNotLoadedError
	return errors.As(err, &e)
}

// IsTooBusy reports whether err indicates backpressure (admission rejected or
// the engine refused more work).
func IsTooBusy(err error) bool { return llm.IsBusy(err) }

var (
	errAlreadyInitialized = errors.New("engine already initialized")
	errNilEngine          = errors.New("loader returned no engine")
)
