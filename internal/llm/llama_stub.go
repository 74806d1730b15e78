//go:build !llama

package llm

// No-CGO stub compiled when the 'llama' build tag is not set. It keeps default
// builds and CI CGO-free and refuses to load models instead of faking output.

import "context"

// llamaBuilt indicates this binary was compiled with real llama support.
const llamaBuilt = false

type llamaLoader struct{}

// NewLlamaLoader returns a Loader that always fails in builds without llama support.
func NewLlamaLoader() Loader { return llamaLoader{} }

func (llamaLoader) Load(ctx context.Context, opts LoadOptions) (Engine, error) {
	return nil, ErrDependencyUnavailable("llama support not built (missing 'llama' build tag)")
}
