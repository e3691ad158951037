package manager

import (
	"context"
	"fmt"
	"os"
	"time"

	"lmsession/internal/metrics"
)

// Load opens the model described by cfg. A previously loaded model is
// released first. On failure the session ends Unloaded and a *LoadError is
// returned. An invalid cfg is a usage error: it wraps ErrInvalidConfig, is not
// a *LoadError, and leaves the session as it was.
func (m *Manager) Load(ctx context.Context, cfg ModelConfig) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if m.State() == StateGenerating {
		return ErrAlreadyGenerating
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	m.mu.Lock()
	if m.state == StateGenerating {
		m.mu.Unlock()
		return ErrAlreadyGenerating
	}
	old := m.handle
	m.handle = nil
	m.model = ModelConfig{}
	m.setStateLocked(StateUnloaded)
	m.mu.Unlock()
	if old != nil {
		m.closeHandle(old, "reload")
	}

	start := time.Now()
	log := m.logger()
	m.publish(Event{Name: EventLoadStart, Model: cfg.Path})
	log.Info().Str("event", EventLoadStart).Str("path", cfg.Path).Int("threads", cfg.Threads).Int("ctx", cfg.ContextLength).Msg("loading model")

	// Preflight path checks
	fi, err := os.Stat(cfg.Path)
	if err != nil {
		return m.loadFailed(cfg.Path, err)
	}
	if fi.IsDir() {
		return m.loadFailed(cfg.Path, fmt.Errorf("model path is a directory"))
	}
	if err := ctx.Err(); err != nil {
		return m.loadFailed(cfg.Path, err)
	}
	if m.eng == nil {
		return m.loadFailed(cfg.Path, fmt.Errorf("no engine configured"))
	}

	h, err := m.eng.Open(cfg.params())
	if err != nil {
		return m.loadFailed(cfg.Path, err)
	}

	m.mu.Lock()
	m.handle = h
	m.model = cfg
	m.err = ""
	m.loadsTotal++
	m.setStateLocked(StateLoaded)
	m.mu.Unlock()

	metrics.ObserveLoad("ok")
	m.publish(Event{Name: EventLoadReady, Model: cfg.Path, Fields: map[string]any{"dur_ms": time.Since(start).Milliseconds()}})
	log.Info().Str("event", EventLoadReady).Str("path", cfg.Path).Dur("dur", time.Since(start)).Msg("model loaded")
	return nil
}

// loadFailed records err and wraps it in a *LoadError.
func (m *Manager) loadFailed(path string, err error) error {
	le := &LoadError{Path: path, Err: err}
	m.mu.Lock()
	m.err = le.Error()
	m.mu.Unlock()
	metrics.ObserveLoad("error")
	m.publish(Event{Name: EventLoadError, Model: path, Fields: map[string]any{"error": err.Error()}})
	l := m.logger()
	l.Error().Str("event", EventLoadError).Str("path", path).Err(err).Msg("model load failed")
	return le
}
