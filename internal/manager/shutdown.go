package manager

import (
	"context"
	"time"
)

// Shutdown stops accepting work, waits up to the drain timeout (or ctx) for
// in-flight generations to return their slots, then frees the engine. It is
// idempotent.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.State() == StateStopped {
		return nil
	}
	m.state.Store(StateStopped)
	if m.engine == nil {
		return nil
	}
	m.publisher.Publish(Event{Name: "shutdown_start", ModelID: m.model.ID, Fields: map[string]any{}})

	// Take every generation slot; slots are never handed back so nothing
	// can be admitted afterwards.
	timer := time.NewTimer(m.drainTimeout)
	defer timer.Stop()
	drained := 0
drain:
	for drained < cap(m.genCh) {
		select {
		case m.genCh <- struct{}{}:
			drained++
		case <-timer.C:
			break drain
		case <-ctx.Done():
			break drain
		}
	}
	if drained < cap(m.genCh) {
		inflight := cap(m.genCh) - drained
		m.log.Warn().Int("inflight", inflight).Msg("shutdown drain timed out")
		m.publisher.Publish(Event{Name: "shutdown_timeout", ModelID: m.model.ID, Fields: map[string]any{"inflight": inflight}})
	}

	err := m.engine.Close()
	if err != nil {
		m.setLastError(err)
		m.log.Error().Err(err).Msg("engine close failed")
	}
	m.log.Info().Str("model", m.model.ID).Msg("engine stopped")
	m.publisher.Publish(Event{Name: "shutdown_done", ModelID: m.model.ID, Fields: map[string]any{}})
	return err
}
