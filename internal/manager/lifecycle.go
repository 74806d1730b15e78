package manager

import (
	"context"
	"time"

	"llmgate/internal/common/fsutil"
)

// Initialize loads the model and moves the manager from uninitialized through
// loading to ready, or to failed. It may be called once; a failed manager
// stays failed and the process is expected to exit.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st := m.State(); st != StateUninitialized {
		return errAlreadyInitialized
	}
	start := time.Now()
	path := m.loadOpts.ModelPath
	m.state.Store(StateLoading)
	m.log.Info().Str("model", m.model.ID).Str("path", path).
		Int("ctx_size", m.loadOpts.ContextSize).Int("gpu_layers", m.loadOpts.GPULayers).
		Msg("engine load start")
	m.publisher.Publish(Event{Name: "load_start", ModelID: m.model.ID, Fields: map[string]any{"path": path}})

	fail := func(err error) error {
		lerr := engineLoadError{path: path, err: err}
		m.setLastError(lerr)
		m.state.Store(StateFailed)
		m.log.Error().Err(err).Str("path", path).Dur("dur", time.Since(start)).Msg("engine load failed")
		m.publisher.Publish(Event{Name: "load_error", ModelID: m.model.ID, Fields: map[string]any{"error": err.Error()}})
		return lerr
	}

	if !m.skipPath {
		if err := fsutil.CheckReadableFile(path); err != nil {
			return fail(err)
		}
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	eng, err := m.loader.Load(ctx, m.loadOpts)
	if err != nil {
		return fail(err)
	}
	if eng == nil {
		return fail(errNilEngine)
	}
	m.engine = eng
	m.loadsTotal.Add(1)
	m.setLastError(nil)
	m.state.Store(StateReady)
	m.log.Info().Str("model", m.model.ID).Dur("dur", time.Since(start)).Msg("engine ready")
	m.publisher.Publish(Event{Name: "load_done", ModelID: m.model.ID, Fields: map[string]any{"ms": time.Since(start).Milliseconds()}})
	return nil
}
