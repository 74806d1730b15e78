package manager

import (
	"context"
	"testing"
	"time"

	"llmgate/internal/llm"
)

func TestShutdown_IdempotentAndRejectsWork(t *testing.T) {
	eng := &fakeEngine{}
	pub := NewMemoryPublisher()
	m := newReady(t, eng, ManagerConfig{Publisher: pub})
	if err := m.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := m.Shutdown(context.Background()); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}
	if !eng.closed.Load() || m.State() != StateStopped {
		t.Fatalf("engine closed=%v state=%s", eng.closed.Load(), m.State())
	}
	if _, err := m.Submit(testCtx(t), "p", llm.Params{MaxTokens: 1}); !IsEngineNotLoaded(err) {
		t.Fatalf("submit after shutdown: %v", err)
	}
	if n := len(pub.Named("shutdown_done")); n != 1 {
		t.Fatalf("shutdown_done published %d times", n)
	}
	if st := m.Status(); st.State != "stopped" || st.Inflight != 0 {
		t.Fatalf("status=%+v", st)
	}
}

func TestShutdown_WaitsForInflight(t *testing.T) {
	eng := &fakeEngine{hold: make(chan struct{})}
	m := newReady(t, eng, ManagerConfig{DrainTimeout: 2 * time.Second})
	s, err := m.Submit(testCtx(t), "p", llm.Params{MaxTokens: 1})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	done := make(chan struct{})
	go func() {
		_ = m.Shutdown(context.Background())
		close(done)
	}()
	select {
	case <-done:
		t.Fatalf("shutdown did not wait for the in-flight stream")
	case <-time.After(50 * time.Millisecond):
	}
	if eng.closed.Load() {
		t.Fatalf("engine freed under an active stream")
	}
	_ = s.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("shutdown did not finish after stream closed")
	}
	if !eng.closed.Load() {
		t.Fatalf("engine not closed")
	}
}

func TestShutdown_DrainTimeout(t *testing.T) {
	eng := &fakeEngine{hold: make(chan struct{})}
	pub := NewMemoryPublisher()
	m := newReady(t, eng, ManagerConfig{DrainTimeout: 20 * time.Millisecond, Publisher: pub})
	s, err := m.Submit(testCtx(t), "p", llm.Params{MaxTokens: 1})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	defer s.Close()
	if err := m.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	timedOut := len(pub.Named("shutdown_timeout")) == 1
	if !timedOut || !eng.closed.Load() {
		t.Fatalf("timeout=%v closed=%v", timedOut, eng.closed.Load())
	}
}

func TestShutdown_BeforeInitialize(t *testing.T) {
	m := New("m.gguf", 0, 0)
	if err := m.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := m.Initialize(context.Background()); err == nil {
		t.Fatalf("Initialize after Shutdown must fail")
	}
}
