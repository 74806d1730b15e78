package e2e

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"llmgate/internal/httpapi"
	"llmgate/internal/llm"
	"llmgate/internal/manager"
	"llmgate/internal/session"
)

// createModelFile writes a placeholder .gguf file and returns its path.
func createModelFile(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte("GGUF"), 0o644); err != nil {
		t.Fatalf("write temp model %s: %v", p, err)
	}
	return p
}

// scriptedEngine emits tokens in order. With gate set, each generation
// blocks after the first token until gate is closed.
type scriptedEngine struct {
	tokens []string
	gate   chan struct{}

	mu      sync.Mutex
	prompts []string
	stopped chan struct{} // receives once per finished generation
}

func newScriptedEngine(tokens ...string) *scriptedEngine {
	return &scriptedEngine{tokens: tokens, stopped: make(chan struct{}, 16)}
}

func (e *scriptedEngine) Submit(ctx context.Context, prompt string, p llm.Params) (llm.Stream, error) {
	e.mu.Lock()
	e.prompts = append(e.prompts, prompt)
	e.mu.Unlock()
	return llm.NewStream(ctx, func(ctx context.Context, emit func(string) bool) error {
		defer func() { e.stopped <- struct{}{} }()
		for i, tok := range e.tokens {
			if !emit(tok) {
				return ctx.Err()
			}
			if i == 0 && e.gate != nil {
				select {
				case <-e.gate:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
		return nil
	}), nil
}

func (e *scriptedEngine) Close() error { return nil }

func (e *scriptedEngine) lastPrompt() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.prompts) == 0 {
		return ""
	}
	return e.prompts[len(e.prompts)-1]
}

// newStack wires manager, stream controller and HTTP API the way the
// llmgate binary does and serves them with httptest.
func newStack(t *testing.T, cfg manager.ManagerConfig) (*httptest.Server, *manager.Manager) {
	t.Helper()
	mgr := manager.NewWithConfig(cfg)
	ctrl := session.New(mgr, session.Config{ErrorLine: true})
	httpapi.SetBaseContext(context.Background())
	httpapi.SetRequestTimeout(0)
	srv := httptest.NewServer(httpapi.NewMux(httpapi.NewService(mgr, ctrl)))
	t.Cleanup(func() {
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mgr.Shutdown(ctx)
	})
	return srv, mgr
}

// loaderFor returns a loader that always hands out eng.
func loaderFor(eng llm.Engine) llm.Loader {
	return llm.LoaderFunc(func(ctx context.Context, opts llm.LoadOptions) (llm.Engine, error) {
		return eng, nil
	})
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func httpPostJSON(t *testing.T, url, payload string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewBufferString(payload))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// postJSON is httpPostJSON for use off the test goroutine.
func postJSON(url, payload string) (int, string, error) {
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(payload))
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body), err
}
