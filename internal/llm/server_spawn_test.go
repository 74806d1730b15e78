//go:build integration

package llm

import (
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func buildFakeServer(t *testing.T) string {
	t.Helper()
	bin := filepath.Join(t.TempDir(), "fake-llama-server")
	cmd := exec.Command("go", "build", "-o", bin, "./testdata/fake_llama_server.go")
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("build fake server: %v\n%s", err, out)
	}
	return bin
}

func TestServerLoader_SpawnStreamsAndStops(t *testing.T) {
	bin := buildFakeServer(t)
	model := filepath.Join(t.TempDir(), "m.gguf")
	if err := os.WriteFile(model, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	eng, err := NewServerLoader(ServerOptions{Bin: bin, ReadyTimeout: 10 * time.Second}).
		Load(testCtx(t), LoadOptions{ModelPath: model, ContextSize: 512})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	s, err := eng.Submit(testCtx(t), "p", Params{MaxTokens: 4})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	frags, err := drain(t, s)
	_ = s.Close()
	if err != io.EOF || !reflect.DeepEqual(frags, []string{"A", "B"}) {
		t.Fatalf("got %v err=%v", frags, err)
	}
	if err := eng.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	se := eng.(*serverEngine)
	select {
	case <-se.proc.done:
	default:
		t.Fatalf("process still running after Close")
	}
}

func TestServerLoader_SpawnEarlyExit(t *testing.T) {
	bin := buildFakeServer(t)
	// no -m value: the fake exits with status 2
	_, err := NewServerLoader(ServerOptions{Bin: bin, ReadyTimeout: 10 * time.Second}).
		Load(testCtx(t), LoadOptions{})
	if err == nil {
		t.Fatalf("expected early exit error")
	}
}
