//go:build llama

package llm

import (
	"context"
	"errors"
	"strings"
	"sync"

	llama "github.com/go-skynet/go-llama.cpp"
)

// llamaBuilt indicates this binary was compiled with real llama support.
const llamaBuilt = true

type llamaLoader struct{}

// NewLlamaLoader returns a Loader backed by go-llama.cpp.
func NewLlamaLoader() Loader { return llamaLoader{} }

func (llamaLoader) Load(ctx context.Context, opts LoadOptions) (Engine, error) {
	if strings.TrimSpace(opts.ModelPath) == "" {
		return nil, errors.New("model path is empty")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mo := []llama.ModelOption{
		llama.SetContext(opts.ContextSize),
		llama.SetGPULayers(opts.GPULayers),
	}
	m, err := llama.New(opts.ModelPath, mo...)
	if err != nil {
		return nil, err
	}
	return &llamaEngine{model: m, threads: opts.Threads}, nil
}

// llamaEngine owns the loaded model. A llama context runs one prediction at
// a time; mu is held for the whole generation.
type llamaEngine struct {
	mu      sync.Mutex
	model   *llama.LLama
	threads int
}

func (e *llamaEngine) Submit(ctx context.Context, prompt string, p Params) (Stream, error) {
	if !e.mu.TryLock() {
		return nil, ErrBusy("llama context in use")
	}
	if e.model == nil {
		e.mu.Unlock()
		return nil, Internal(errors.New("llama model not initialized"))
	}
	po := predictOptions(p, e.threads)
	model := e.model
	return NewStream(ctx, func(ctx context.Context, emit func(string) bool) error {
		defer e.mu.Unlock()
		// The callback runs on the prediction thread once per token;
		// returning false stops the prediction.
		model.SetTokenCallback(func(tok string) bool {
			return emit(tok)
		})
		_, err := model.Predict(prompt, po...)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return Internal(err)
		}
		return nil
	}), nil
}

func (e *llamaEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.model != nil {
		e.model.Free()
		e.model = nil
	}
	return nil
}

func atLeast1(v int) int {
	if v < 1 {
		return 1
	}
	return v
}

func zn(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func zf(v, def float32) float32 {
	if v > 0 {
		return v
	}
	return def
}

// predictOptions converts Params into go-llama.cpp options.
func predictOptions(p Params, threads int) []llama.PredictOption {
	po := []llama.PredictOption{
		llama.SetTokens(atLeast1(p.MaxTokens)),
		llama.SetThreads(atLeast1(threads)),
		llama.SetTopP(p.TopP),
		llama.SetTopK(zn(p.TopK, llama.DefaultOptions.TopK)),
		llama.SetTemperature(p.Temperature),
		llama.SetPenalty(zf(p.RepeatPenalty, llama.DefaultOptions.Penalty)),
	}
	if p.Seed != 0 {
		po = append(po, llama.SetSeed(p.Seed))
	}
	if len(p.Stop) > 0 {
		po = append(po, llama.SetStopWords(p.Stop...))
	}
	return po
}
