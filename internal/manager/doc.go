// Package manager owns the single generation engine of the process and
// coordinates access to it. It is structured into small files by concern:
//
//   - manager.go: core Manager type, constructor, simple getters.
//   - config.go: ManagerConfig, admission policies and package defaults.
//   - types.go: lifecycle State values.
//   - errors.go: error types and helpers (IsEngineLoad, IsEngineNotLoaded, IsTooBusy).
//   - lifecycle.go: Initialize (uninitialized -> loading -> ready|failed).
//   - admission.go: generation slot and bounded queue.
//   - submit.go: Submit, the entry point used by stream sessions.
//   - shutdown.go: draining and freeing the engine.
//   - status_report.go: Status reporting for /status.
//   - events.go, eventpub_*.go: lifecycle event publishing.
//
// The engine handle is created once by Initialize and never replaced; there
// is no reload or hot-swap. Request handlers receive the Manager by injection
// and only borrow the engine through Submit.
package manager
