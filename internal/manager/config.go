package manager

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"lmsession/internal/engine"
)

// Defaults applied when corresponding config fields are unset.
const (
	defaultDrainTimeout  = 5 * time.Second
	defaultThreads       = 4
	defaultContextLength = 4096
	defaultBatchSize     = 512
)

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	// Engine opens model files. Required.
	Engine engine.Engine
	// DrainTimeout bounds how long Release waits for an in-flight run.
	DrainTimeout time.Duration
	// Logger receives lifecycle logs. Nil disables logging.
	Logger *zerolog.Logger
	// Publisher receives lifecycle events. Nil drops them.
	Publisher EventPublisher
}

// ModelConfig describes the model to load. It is copied on Load.
type ModelConfig struct {
	Path          string
	Threads       int
	ContextLength int
	// BatchSize is the prefill batch; 0 selects 512.
	BatchSize int
}

// DefaultModelConfig returns a config for path with the package defaults.
func DefaultModelConfig(path string) ModelConfig {
	return ModelConfig{Path: path, Threads: defaultThreads, ContextLength: defaultContextLength}
}

// Validate reports the first invalid field.
func (c ModelConfig) Validate() error {
	if strings.TrimSpace(c.Path) == "" {
		return fmt.Errorf("model path is empty")
	}
	if c.Threads <= 0 {
		return fmt.Errorf("threads must be > 0, got %d", c.Threads)
	}
	if c.ContextLength <= 0 {
		return fmt.Errorf("context length must be > 0, got %d", c.ContextLength)
	}
	if c.BatchSize < 0 {
		return fmt.Errorf("batch size must be >= 0, got %d", c.BatchSize)
	}
	return nil
}

func (c ModelConfig) params() engine.ModelParams {
	batch := c.BatchSize
	if batch == 0 {
		batch = defaultBatchSize
	}
	return engine.ModelParams{Path: c.Path, Threads: c.Threads, ContextLength: c.ContextLength, BatchSize: batch}
}
