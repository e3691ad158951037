package engine

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ByExtension returns an Engine that dispatches Open to the engine registered
// for the model file's extension (case-insensitive, including the dot).
func ByExtension(routes map[string]Engine) Engine {
	m := make(map[string]Engine, len(routes))
	for ext, e := range routes {
		m[strings.ToLower(ext)] = e
	}
	return extRouter(m)
}

type extRouter map[string]Engine

func (r extRouter) Open(params ModelParams) (Handle, error) {
	ext := strings.ToLower(filepath.Ext(params.Path))
	e, ok := r[ext]
	if !ok {
		return nil, fmt.Errorf("no engine for model extension %q", ext)
	}
	return e.Open(params)
}
