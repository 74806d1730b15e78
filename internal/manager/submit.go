package manager

import (
	"context"
	"sync"

	"llmgate/internal/llm"
)

// Submit starts a generation on the shared engine. The returned stream holds
// an admission slot until it is closed; callers must always Close it.
//
// Errors: ErrEngineNotLoaded when the engine is not ready, a busy error when
// admission is rejected, ctx.Err() when ctx ends while waiting, and an
// engine-internal error when the engine refuses the work.
func (m *Manager) Submit(ctx context.Context, prompt string, p llm.Params) (llm.Stream, error) {
	if !m.Ready() {
		return nil, ErrEngineNotLoaded
	}
	release, err := m.admit(ctx)
	if err != nil {
		return nil, err
	}
	// Shutdown may have started while we waited for the slot.
	if !m.Ready() {
		release()
		return nil, ErrEngineNotLoaded
	}
	s, err := m.engine.Submit(ctx, prompt, p)
	if err != nil {
		release()
		if llm.IsBusy(err) {
			m.rejectedTotal.Add(1)
			return nil, err
		}
		return nil, llm.Internal(err)
	}
	m.generationsTotal.Add(1)
	return &admittedStream{Stream: s, release: release}, nil
}

// admittedStream returns its admission slot once the underlying stream has
// fully stopped.
type admittedStream struct {
	llm.Stream
	release func()
	once    sync.Once
	err     error
}

func (s *admittedStream) Close() error {
	s.once.Do(func() {
		s.err = s.Stream.Close()
		s.release()
	})
	return s.err
}
