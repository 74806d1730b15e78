// Package llm is the boundary to the opaque text-generation engine.
//
// An Engine turns a prompt and sampling parameters into a Stream of text
// fragments. Streams are lazy, finite and non-restartable: fragments are
// handed to the caller as soon as the engine produces them and every stream
// must be closed, which cancels generation and waits for the engine to stop.
//
// The in-process llama.cpp backend is compiled with `-tags=llama`; without the
// tag NewLlamaLoader returns a loader that refuses to load anything.
package llm

import "context"

// LoadOptions configures how a model file is loaded.
type LoadOptions struct {
	ModelPath   string
	ContextSize int
	GPULayers   int
	Threads     int
}

// Params captures generation parameters passed to the engine. Temperature,
// TopP and MaxTokens are always set by callers and backends pass them through
// as is, zero included. For the other fields zero means "engine default".
type Params struct {
	Temperature   float32
	TopP          float32
	TopK          int
	MaxTokens     int
	Stop          []string
	Seed          int
	RepeatPenalty float32
}

// Fragment is one incremental unit of generated text.
type Fragment struct {
	Text string
}

// Stream yields the fragments of one generation in emission order.
type Stream interface {
	// Next blocks until the next fragment is available. It returns io.EOF
	// once the engine is exhausted, ctx.Err() when ctx is done, and an
	// engine-internal error if generation failed.
	Next(ctx context.Context) (Fragment, error)
	// Close cancels generation if still running and blocks until the
	// engine-side worker has released its resources. Safe to call twice.
	Close() error
}

// Engine is a loaded model.
type Engine interface {
	// Submit starts a generation. It fails with a busy error if the engine
	// cannot take more work, or an engine-internal error.
	Submit(ctx context.Context, prompt string, p Params) (Stream, error)
	// Close frees the model.
	Close() error
}

// Loader creates an Engine from a model file.
type Loader interface {
	Load(ctx context.Context, opts LoadOptions) (Engine, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, opts LoadOptions) (Engine, error)

// Load implements Loader.
func (f LoaderFunc) Load(ctx context.Context, opts LoadOptions) (Engine, error) {
	return f(ctx, opts)
}

// LlamaBuilt reports whether this binary includes the llama.cpp backend.
func LlamaBuilt() bool { return llamaBuilt }
