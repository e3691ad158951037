package manager

import "time"

// Release frees the loaded model. It is idempotent.
//   - Unloaded: no-op.
//   - Loaded: closes the handle.
//   - Generating: cancels the run and waits up to the drain timeout for it to
//     exit; the run closes the handle on its way out. If the run does not exit
//     in time Release returns ErrReleaseDeferred and the session becomes
//     Unloaded once the run returns.
//   - Generating with the run blocked in the sink (including Release called
//     from the sink itself): the run cannot exit before the sink returns, so
//     Release does not wait and returns ErrReleaseDeferred at once.
func (m *Manager) Release() error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.Lock()
	switch m.state {
	case StateUnloaded:
		m.mu.Unlock()
		return nil
	case StateLoaded:
		h := m.handle
		path := m.model.Path
		m.handle = nil
		m.model = ModelConfig{}
		m.setStateLocked(StateUnloaded)
		m.mu.Unlock()
		m.publish(Event{Name: EventReleaseStart, Model: path})
		return m.closeHandle(h, "release")
	}

	// Generating
	m.releasePending = true
	cancel := m.cancel
	done := m.runDone
	path := m.model.Path
	inSink := m.inSink
	m.mu.Unlock()
	m.publish(Event{Name: EventReleaseStart, Model: path, Fields: map[string]any{"inflight": 1}})
	cancel()

	if inSink {
		return m.releaseDeferred(path, 0)
	}
	select {
	case <-done:
		return nil
	case <-time.After(m.drainTimeout):
		return m.releaseDeferred(path, m.drainTimeout)
	}
}

func (m *Manager) releaseDeferred(path string, waited time.Duration) error {
	m.publish(Event{Name: EventReleaseDeferred, Model: path, Fields: map[string]any{"waited_ms": waited.Milliseconds()}})
	log := m.logger()
	log.Warn().Str("event", EventReleaseDeferred).Str("path", path).Dur("waited", waited).Msg("release deferred until generation exits")
	return ErrReleaseDeferred
}
