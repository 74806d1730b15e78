package manager

// State represents the lifecycle state of the engine.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateLoading       State = "loading"
	StateReady         State = "ready"
	StateFailed        State = "failed"
	StateStopped       State = "stopped"
)
