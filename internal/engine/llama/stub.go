//go:build !llama

package llama

// This file provides a no-CGO stub for the llama engine. It is compiled when
// the 'llama' build tag is NOT set, keeping default builds and CI CGO-free.
// The real engine lives in llama.go (tagged 'llama').

import "lmsession/internal/engine"

// llamaBuilt indicates this binary was compiled with real llama support.
var llamaBuilt = false

// Engine is a stub that satisfies engine.Engine but refuses to open models
// without the 'llama' build tag.
type Engine struct{}

// New returns the stub engine.
func New() Engine { return Engine{} }

func (Engine) Open(params engine.ModelParams) (engine.Handle, error) {
	// Fail fast: llama runtime not available in this build.
	return nil, engine.ErrDependencyUnavailable("llama support not built (missing 'llama' build tag)")
}
