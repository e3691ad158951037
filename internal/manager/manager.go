package manager

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"lmsession/internal/engine"
	"lmsession/internal/metrics"
)

// Manager is a session: at most one loaded model and at most one generation
// in flight. It must not be copied after first use.
type Manager struct {
	// opMu serializes Load, Release and ResetContext.
	opMu sync.Mutex
	// mu guards the fields below. It is never held while a run executes.
	mu     sync.RWMutex
	state  State
	handle engine.Handle
	model  ModelConfig
	err    string

	// In-flight run bookkeeping.
	cancel         context.CancelFunc
	runDone        chan struct{}
	releasePending bool
	// inSink is set while the run is blocked in the caller's sink.
	inSink bool

	loadsTotal       uint64
	generationsTotal uint64

	eng          engine.Engine
	drainTimeout time.Duration
	publisher    EventPublisher
	log          zerolog.Logger
	startTime    time.Time
}

// New returns an Unloaded manager backed by eng with default settings.
func New(eng engine.Engine) *Manager {
	return NewWithConfig(ManagerConfig{Engine: eng})
}

// NewWithConfig constructs a Manager from ManagerConfig.
func NewWithConfig(cfg ManagerConfig) *Manager {
	m := &Manager{
		state:        StateUnloaded,
		eng:          cfg.Engine,
		drainTimeout: cfg.DrainTimeout,
		publisher:    cfg.Publisher,
		log:          zerolog.Nop(),
		startTime:    time.Now(),
	}
	// Apply defaults if unset
	if m.drainTimeout <= 0 {
		m.drainTimeout = defaultDrainTimeout
	}
	if m.publisher == nil {
		m.publisher = noopPublisher{}
	}
	if cfg.Logger != nil {
		m.log = *cfg.Logger
	}
	metrics.SessionCreated(string(m.state))
	return m
}

// SetEventPublisher installs p; nil restores the no-op publisher.
func (m *Manager) SetEventPublisher(p EventPublisher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p == nil {
		p = noopPublisher{}
	}
	m.publisher = p
}

// SetLogger installs a structured logger.
func (m *Manager) SetLogger(l zerolog.Logger) {
	m.mu.Lock()
	m.log = l
	m.mu.Unlock()
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Model returns the config of the loaded model and whether one is loaded.
func (m *Manager) Model() (ModelConfig, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.model, m.handle != nil
}

// setStateLocked updates state and the per-state session gauges. Callers hold mu.
func (m *Manager) setStateLocked(s State) {
	metrics.StateChanged(string(m.state), string(s))
	m.state = s
}

func (m *Manager) publish(e Event) {
	m.mu.RLock()
	p := m.publisher
	m.mu.RUnlock()
	if e.Fields == nil {
		e.Fields = map[string]any{}
	}
	p.Publish(e)
}

func (m *Manager) logger() zerolog.Logger {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.log
}
