// Package session is the public entry point: load a model file, stream a
// generation into a sink, release the model.
//
//	s := session.New()
//	if err := s.Load("model.gguf"); err != nil { ... }
//	defer s.Release()
//	text, err := s.Generate("Hello", session.SinkFunc(func(f string) error {
//		fmt.Print(f)
//		return nil
//	}))
//
// A Session is safe for concurrent use but runs one generation at a time;
// overlapping calls fail with ErrAlreadyGenerating.
package session

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"lmsession/internal/engine"
	"lmsession/internal/engine/llama"
	"lmsession/internal/engine/toy"
	"lmsession/internal/generation"
	"lmsession/internal/manager"
	"lmsession/pkg/types"
)

type (
	// Engine opens model files.
	Engine = engine.Engine
	// Sink receives generated fragments synchronously.
	Sink = generation.Sink
	// SinkFunc adapts a function to Sink.
	SinkFunc = generation.SinkFunc
	// SamplingConfig is the per-run sampling policy.
	SamplingConfig = generation.SamplingConfig
	// Result summarizes a finished run.
	Result = generation.Result
	// EventPublisher receives lifecycle events.
	EventPublisher = manager.EventPublisher
)

// Errors re-exported for errors.Is checks.
var (
	ErrNotLoaded         = manager.ErrNotLoaded
	ErrAlreadyGenerating = manager.ErrAlreadyGenerating
	ErrInvalidConfig     = manager.ErrInvalidConfig
	ErrReleaseDeferred   = manager.ErrReleaseDeferred
)

// DefaultEngine routes .gguf files to llama.cpp and .tlm files to the
// built-in toy engine.
func DefaultEngine() Engine {
	return engine.ByExtension(map[string]engine.Engine{
		".gguf": llama.New(),
		".tlm":  toy.New(),
	})
}

// Option configures New.
type Option func(*manager.ManagerConfig)

// WithEngine overrides DefaultEngine.
func WithEngine(e Engine) Option { return func(c *manager.ManagerConfig) { c.Engine = e } }

// WithLogger installs a zerolog logger for lifecycle logs.
func WithLogger(l zerolog.Logger) Option { return func(c *manager.ManagerConfig) { c.Logger = &l } }

// WithDrainTimeout bounds how long Release waits for a running generation.
func WithDrainTimeout(d time.Duration) Option {
	return func(c *manager.ManagerConfig) { c.DrainTimeout = d }
}

// WithEventPublisher receives lifecycle events.
func WithEventPublisher(p EventPublisher) Option {
	return func(c *manager.ManagerConfig) { c.Publisher = p }
}

// Session wraps a single model lifecycle.
type Session struct {
	m *manager.Manager
}

// New returns an unloaded session.
func New(opts ...Option) *Session {
	cfg := manager.ManagerConfig{Engine: DefaultEngine()}
	for _, o := range opts {
		o(&cfg)
	}
	return &Session{m: manager.NewWithConfig(cfg)}
}

// LoadOption adjusts the model config passed to Load.
type LoadOption func(*manager.ModelConfig)

// WithThreads sets the decode thread count (default 4).
func WithThreads(n int) LoadOption { return func(c *manager.ModelConfig) { c.Threads = n } }

// WithContextLength sets the context window in tokens (default 4096).
func WithContextLength(n int) LoadOption { return func(c *manager.ModelConfig) { c.ContextLength = n } }

// WithBatchSize sets the prompt prefill batch (default 512).
func WithBatchSize(n int) LoadOption { return func(c *manager.ModelConfig) { c.BatchSize = n } }

// Load opens the model at path, replacing any loaded model. A nil error means
// the session is loaded.
func (s *Session) Load(path string, opts ...LoadOption) error {
	return s.LoadContext(context.Background(), path, opts...)
}

// LoadContext is Load with a context checked before the model is opened.
func (s *Session) LoadContext(ctx context.Context, path string, opts ...LoadOption) error {
	cfg := manager.DefaultModelConfig(path)
	for _, o := range opts {
		o(&cfg)
	}
	return s.m.Load(ctx, cfg)
}

// Generate continues prompt with the fixed defaults (256 tokens, greedy,
// top-p 0.9, top-k 20) and returns the generated text. sink may be nil.
func (s *Session) Generate(prompt string, sink Sink) (string, error) {
	res, err := s.m.Generate(context.Background(), prompt, generation.DefaultSampling(), sink)
	return res.Text, err
}

// GenerateContext runs with an explicit sampling config. Cancelling ctx stops
// the run between tokens with StopCancelled.
func (s *Session) GenerateContext(ctx context.Context, prompt string, cfg SamplingConfig, sink Sink) (Result, error) {
	return s.m.Generate(ctx, prompt, cfg, sink)
}

// ResetContext clears the engine's cached prompt state.
func (s *Session) ResetContext() error { return s.m.ResetContext() }

// Release frees the model. It is idempotent.
func (s *Session) Release() error { return s.m.Release() }

// State reports "unloaded", "loaded" or "generating".
func (s *Session) State() string { return string(s.m.State()) }

// Status summarizes the session.
func (s *Session) Status() types.StatusResponse { return s.m.Status() }

// IsUsageError reports whether err is ErrNotLoaded, ErrAlreadyGenerating or
// ErrInvalidConfig. Usage errors leave the session state unchanged.
func IsUsageError(err error) bool { return manager.IsUsageError(err) }
