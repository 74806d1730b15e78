package manager

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"llmgate/internal/llm"
)

func TestInitialize_ReadyAndEvents(t *testing.T) {
	pub := NewMemoryPublisher()
	path := createModelFile(t, "tiny.Q4_K_M.gguf")
	ld := &fakeLoader{eng: &fakeEngine{}}
	m := NewWithConfig(ManagerConfig{
		Load:      llm.LoadOptions{ModelPath: path, ContextSize: 4096, GPULayers: 3},
		Loader:    ld,
		Publisher: pub,
	})
	if m.State() != StateUninitialized || m.Ready() {
		t.Fatalf("fresh manager state=%s", m.State())
	}
	if m.ModelID() != "tiny.Q4_K_M.gguf" {
		t.Fatalf("model id should default to file base name, got %q", m.ModelID())
	}
	if err := m.Initialize(testCtx(t)); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if !m.Ready() {
		t.Fatalf("state=%s want ready", m.State())
	}
	if ld.got.ContextSize != 4096 || ld.got.GPULayers != 3 || ld.got.ModelPath != path {
		t.Fatalf("loader got %+v", ld.got)
	}
	if got := pub.Names(); !reflect.DeepEqual(got, []string{"load_start", "load_done"}) {
		t.Fatalf("events=%v", got)
	}
	if st := m.Status(); st.LoadsTotal != 1 || st.State != "ready" || st.Model == nil || st.Model.Path != path {
		t.Fatalf("status=%+v", st)
	}
}

func TestInitialize_OnlyOnce(t *testing.T) {
	ld := &fakeLoader{eng: &fakeEngine{}}
	m := NewWithConfig(ManagerConfig{Load: llm.LoadOptions{ModelPath: createModelFile(t, "a.gguf")}, Loader: ld})
	if err := m.Initialize(testCtx(t)); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := m.Initialize(testCtx(t)); !errors.Is(err, errAlreadyInitialized) {
		t.Fatalf("second Initialize err=%v", err)
	}
	if ld.calls.Load() != 1 {
		t.Fatalf("loader called %d times", ld.calls.Load())
	}
}

func TestInitialize_MissingFileFails(t *testing.T) {
	pub := NewMemoryPublisher()
	ld := &fakeLoader{eng: &fakeEngine{}}
	m := NewWithConfig(ManagerConfig{
		Load:      llm.LoadOptions{ModelPath: filepath.Join(t.TempDir(), "missing.gguf")},
		Loader:    ld,
		Publisher: pub,
	})
	err := m.Initialize(testCtx(t))
	if !IsEngineLoad(err) {
		t.Fatalf("expected engine load error, got %v", err)
	}
	if m.State() != StateFailed {
		t.Fatalf("state=%s want failed", m.State())
	}
	if ld.calls.Load() != 0 {
		t.Fatalf("loader must not run for a missing file")
	}
	if m.Status().LastError == "" {
		t.Fatalf("last error not recorded")
	}
	if got := pub.Names(); !reflect.DeepEqual(got, []string{"load_start", "load_error"}) {
		t.Fatalf("events=%v", got)
	}
	if le := pub.Named("load_error"); len(le) != 1 || le[0].ModelID != "missing.gguf" {
		t.Fatalf("load_error events = %+v", le)
	}
	if _, err := m.Submit(testCtx(t), "p", llm.Params{MaxTokens: 1}); !IsEngineNotLoaded(err) {
		t.Fatalf("submit on failed manager: %v", err)
	}
}

func TestInitialize_LoaderErrorAndNilEngine(t *testing.T) {
	boom := errors.New("bad gguf")
	m := NewWithConfig(ManagerConfig{Load: llm.LoadOptions{ModelPath: createModelFile(t, "a.gguf")}, Loader: &fakeLoader{err: boom}})
	if err := m.Initialize(testCtx(t)); !errors.Is(err, boom) || !IsEngineLoad(err) {
		t.Fatalf("err=%v", err)
	}
	m = NewWithConfig(ManagerConfig{Load: llm.LoadOptions{ModelPath: createModelFile(t, "b.gguf")}, Loader: llm.LoaderFunc(
		func(context.Context, llm.LoadOptions) (llm.Engine, error) { return nil, nil })})
	if err := m.Initialize(testCtx(t)); !errors.Is(err, errNilEngine) {
		t.Fatalf("err=%v", err)
	}
}

func TestInitialize_SkipPathCheck(t *testing.T) {
	m := NewWithConfig(ManagerConfig{
		Load:          llm.LoadOptions{ModelPath: "/remote/model.gguf"},
		Loader:        &fakeLoader{eng: &fakeEngine{}},
		SkipPathCheck: true,
	})
	if err := m.Initialize(testCtx(t)); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if m.ModelID() != "model.gguf" {
		t.Fatalf("id=%q", m.ModelID())
	}
}

func TestInitialize_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := NewWithConfig(ManagerConfig{Load: llm.LoadOptions{ModelPath: createModelFile(t, "a.gguf")}, Loader: &fakeLoader{eng: &fakeEngine{}}})
	if err := m.Initialize(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v", err)
	}
	if m.State() != StateFailed {
		t.Fatalf("state=%s", m.State())
	}
}

func TestSubmit_NotLoadedBeforeInitialize(t *testing.T) {
	m := New("x.gguf", 4096, 0)
	if _, err := m.Submit(testCtx(t), "p", llm.Params{MaxTokens: 1}); !IsEngineNotLoaded(err) {
		t.Fatalf("err=%v", err)
	}
	if ErrEngineNotLoaded.Error() != "engine-not-loaded" {
		t.Fatalf("message=%q", ErrEngineNotLoaded.Error())
	}
	if sc, ok := ErrEngineNotLoaded.(interface{ StatusCode() int }); !ok || sc.StatusCode() != 500 {
		t.Fatalf("engine-not-loaded must map to 500")
	}
}

func TestSubmit_StreamsAndCounts(t *testing.T) {
	eng := &fakeEngine{tokens: []string{"Hel", "lo"}}
	m := newReady(t, eng, ManagerConfig{})
	s, err := m.Submit(testCtx(t), "[ASSISTANT]\n", llm.Params{MaxTokens: 256, Temperature: 0.2})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got := drain(t, s); !reflect.DeepEqual(got, []string{"Hel", "lo"}) {
		t.Fatalf("tokens=%v", got)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if eng.prompts[0] != "[ASSISTANT]\n" || eng.params[0].MaxTokens != 256 {
		t.Fatalf("engine received %q %+v", eng.prompts[0], eng.params[0])
	}
	if st := m.Status(); st.GenerationsTotal != 1 || st.Inflight != 0 {
		t.Fatalf("status=%+v", st)
	}
}

func TestSubmit_EngineErrorsMapped(t *testing.T) {
	eng := &fakeEngine{submitErr: llm.ErrBusy("n_parallel exhausted")}
	m := newReady(t, eng, ManagerConfig{})
	if _, err := m.Submit(testCtx(t), "p", llm.Params{MaxTokens: 1}); !IsTooBusy(err) {
		t.Fatalf("err=%v", err)
	}
	if m.Status().RejectedTotal != 1 {
		t.Fatalf("busy engine should count as a rejection")
	}
	eng.submitErr = errors.New("kv cache alloc")
	_, err := m.Submit(testCtx(t), "p", llm.Params{MaxTokens: 1})
	if !llm.IsInternal(err) {
		t.Fatalf("err=%v", err)
	}
	// slot is returned after both failures
	if m.Status().Inflight != 0 {
		t.Fatalf("slot leaked")
	}
}

func TestParseAdmission(t *testing.T) {
	for in, want := range map[string]AdmissionPolicy{"": AdmissionQueue, "queue": AdmissionQueue, " Reject ": AdmissionReject, "concurrent": AdmissionConcurrent} {
		got, err := ParseAdmission(in)
		if err != nil || got != want {
			t.Fatalf("ParseAdmission(%q)=%q,%v", in, got, err)
		}
	}
	if _, err := ParseAdmission("lifo"); err == nil {
		t.Fatalf("unknown policy accepted")
	}
}

func TestPublishers_FanOutSkipsNil(t *testing.T) {
	a, b := NewMemoryPublisher(), NewMemoryPublisher()
	p := Publishers(a, nil, b)
	p.Publish(Event{Name: "x"})
	if len(a.Events()) != 1 || len(b.Events()) != 1 {
		t.Fatalf("fan-out failed")
	}
}
