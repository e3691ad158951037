package manager

// ResetContext drops the engine's key-value cache so the next generation
// evaluates its prompt from scratch. Generations never clear it implicitly.
func (m *Manager) ResetContext() error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.Lock()
	switch m.state {
	case StateUnloaded:
		m.mu.Unlock()
		return ErrNotLoaded
	case StateGenerating:
		m.mu.Unlock()
		return ErrAlreadyGenerating
	}
	// mu stays held so no run can start on the handle meanwhile.
	err := m.handle.ClearCache()
	path := m.model.Path
	m.mu.Unlock()
	if err != nil {
		return err
	}
	m.publish(Event{Name: EventResetContext, Model: path})
	log := m.logger()
	log.Debug().Str("event", EventResetContext).Str("path", path).Msg("context cache cleared")
	return nil
}
