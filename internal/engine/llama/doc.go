// Package llama implements engine.Engine on top of go-llama.cpp.
//
// Build tags:
//
//   - `-tags=llama`: in-process llama.cpp via cgo. Files: llama.go, cgo.go.
//   - default: stub.go, whose Open fails with engine.ErrDependencyUnavailable.
//
// Available reports which variant was compiled.
package llama

// Available reports whether this binary can open llama.cpp models.
func Available() bool { return llamaBuilt }
