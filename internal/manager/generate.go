package manager

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"lmsession/internal/engine"
	"lmsession/internal/generation"
	"lmsession/internal/metrics"
)

// GenerateOptions carries optional per-call settings.
type GenerateOptions struct {
	// RunID tags events and logs of the run. Empty generates a UUID.
	RunID string
}

// Generate runs one streaming generation. It fails immediately with
// ErrNotLoaded or ErrAlreadyGenerating instead of queueing. No lock is held
// while the run executes, so the sink may call State or Release.
func (m *Manager) Generate(ctx context.Context, prompt string, cfg generation.SamplingConfig, sink generation.Sink) (generation.Result, error) {
	return m.GenerateWithOptions(ctx, prompt, cfg, sink, GenerateOptions{})
}

// GenerateWithOptions is Generate with per-call options.
func (m *Manager) GenerateWithOptions(ctx context.Context, prompt string, cfg generation.SamplingConfig, sink generation.Sink, opts GenerateOptions) (generation.Result, error) {
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	h, runCtx, end, err := m.beginGeneration(ctx, cfg)
	if err != nil {
		return generation.Result{StopReason: generation.StopError}, err
	}
	var (
		res    generation.Result
		runErr error
	)
	defer func() { end(runID, res, runErr) }()

	m.publish(Event{Name: EventGenerateStart, Model: m.modelPath(), Fields: map[string]any{"run_id": runID, "max_tokens": cfg.MaxTokens}})
	log := m.logger()
	log.Debug().Str("event", EventGenerateStart).Str("run_id", runID).Int("max_tokens", cfg.MaxTokens).Msg("generation started")

	res, runErr = generation.Run(runCtx, h, prompt, cfg, m.trackSink(sink))
	return res, runErr
}

// trackSink marks the manager as inSink for the duration of each delivery.
func (m *Manager) trackSink(s generation.Sink) generation.Sink {
	if s == nil {
		return nil
	}
	return generation.SinkFunc(func(frag string) error {
		m.setInSink(true)
		defer m.setInSink(false)
		return s.OnToken(frag)
	})
}

func (m *Manager) setInSink(v bool) {
	m.mu.Lock()
	m.inSink = v
	m.mu.Unlock()
}

// beginGeneration admits a run: Loaded -> Generating. The returned end func
// must be deferred; it restores the state and performs a deferred release.
func (m *Manager) beginGeneration(ctx context.Context, cfg generation.SamplingConfig) (engine.Handle, context.Context, func(string, generation.Result, error), error) {
	m.mu.Lock()
	switch m.state {
	case StateUnloaded:
		m.mu.Unlock()
		return nil, nil, nil, ErrNotLoaded
	case StateGenerating:
		m.mu.Unlock()
		return nil, nil, nil, ErrAlreadyGenerating
	}
	if err := cfg.Validate(); err != nil {
		m.mu.Unlock()
		return nil, nil, nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	h := m.handle
	m.cancel = cancel
	m.runDone = done
	m.setStateLocked(StateGenerating)
	m.mu.Unlock()

	end := func(runID string, res generation.Result, err error) {
		cancel()
		m.mu.Lock()
		m.generationsTotal++
		if err != nil {
			m.err = err.Error()
		}
		deferred := m.releasePending
		m.releasePending = false
		m.inSink = false
		m.cancel = nil
		m.runDone = nil
		path := m.model.Path
		if deferred {
			m.handle = nil
			m.model = ModelConfig{}
			m.setStateLocked(StateUnloaded)
		} else {
			m.setStateLocked(StateLoaded)
		}
		m.mu.Unlock()

		if deferred {
			m.closeHandle(h, "deferred")
		}
		close(done)

		metrics.ObserveGeneration(res.StopReason.String(), res.TokenCount, res.Duration)
		fields := map[string]any{
			"run_id":      runID,
			"stop_reason": res.StopReason.String(),
			"tokens":      res.TokenCount,
			"dur_ms":      res.Duration.Milliseconds(),
		}
		if err != nil {
			fields["error"] = err.Error()
		}
		m.publish(Event{Name: EventGenerateDone, Model: path, Fields: fields})
		log := m.logger()
		ev := log.Info()
		if err != nil {
			ev = log.Warn().Err(err)
		}
		ev.Str("event", EventGenerateDone).Str("run_id", runID).Str("stop_reason", res.StopReason.String()).
			Int("tokens", res.TokenCount).Dur("dur", res.Duration).Msg("generation finished")
	}
	return h, runCtx, end, nil
}

func (m *Manager) modelPath() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.model.Path
}

// closeHandle closes h and records the release.
func (m *Manager) closeHandle(h engine.Handle, reason string) error {
	start := time.Now()
	err := h.Close()
	metrics.ObserveRelease()
	m.publish(Event{Name: EventReleaseDone, Fields: map[string]any{"reason": reason}})
	log := m.logger()
	log.Info().Str("event", EventReleaseDone).Str("reason", reason).Dur("dur", time.Since(start)).Msg("model released")
	return err
}
