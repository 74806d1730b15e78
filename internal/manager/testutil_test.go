package manager

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"llmgate/internal/llm"
)

// createModelFile writes a small placeholder model file and returns its path.
func createModelFile(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte("GGUF"), 0o644); err != nil {
		t.Fatalf("create file: %v", err)
	}
	return p
}

// fakeEngine streams a fixed token list. When hold is non-nil each stream
// blocks before its first token until hold is closed or the stream is closed.
type fakeEngine struct {
	tokens    []string
	submitErr error
	hold      chan struct{}

	mu       sync.Mutex
	prompts  []string
	params   []llm.Params
	closed   atomic.Bool
	active   atomic.Int32
	finished atomic.Int32
}

func (e *fakeEngine) Submit(ctx context.Context, prompt string, p llm.Params) (llm.Stream, error) {
	if e.submitErr != nil {
		return nil, e.submitErr
	}
	e.mu.Lock()
	e.prompts = append(e.prompts, prompt)
	e.params = append(e.params, p)
	e.mu.Unlock()
	e.active.Add(1)
	return llm.NewStream(ctx, func(ctx context.Context, emit func(string) bool) error {
		defer func() {
			e.active.Add(-1)
			e.finished.Add(1)
		}()
		if e.hold != nil {
			select {
			case <-e.hold:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		for _, tok := range e.tokens {
			if !emit(tok) {
				return ctx.Err()
			}
		}
		return nil
	}), nil
}

func (e *fakeEngine) Close() error {
	e.closed.Store(true)
	return nil
}

// fakeLoader hands out eng, or fails with err.
type fakeLoader struct {
	eng   *fakeEngine
	err   error
	calls atomic.Int32
	got   llm.LoadOptions
}

func (l *fakeLoader) Load(ctx context.Context, opts llm.LoadOptions) (llm.Engine, error) {
	l.calls.Add(1)
	l.got = opts
	if l.err != nil {
		return nil, l.err
	}
	return l.eng, nil
}

// newReady builds and initializes a manager around eng.
func newReady(t *testing.T, eng *fakeEngine, cfg ManagerConfig) *Manager {
	t.Helper()
	cfg.Load.ModelPath = createModelFile(t, "tiny.Q4_K_M.gguf")
	cfg.Loader = &fakeLoader{eng: eng}
	m := NewWithConfig(cfg)
	if err := m.Initialize(testCtx(t)); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })
	return m
}

func drain(t *testing.T, s llm.Stream) []string {
	t.Helper()
	var out []string
	for {
		f, err := s.Next(testCtx(t))
		if err != nil {
			if !errors.Is(err, io.EOF) {
				t.Fatalf("Next: %v", err)
			}
			return out
		}
		out = append(out, f.Text)
	}
}

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return c
}
