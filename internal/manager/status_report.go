package manager

import (
	"time"

	"lmsession/pkg/types"
)

// Status builds a status summary of the session.
func (m *Manager) Status() types.StatusResponse {
	m.mu.RLock()
	defer m.mu.RUnlock()
	resp := types.StatusResponse{
		State:            string(m.state),
		LoadsTotal:       m.loadsTotal,
		GenerationsTotal: m.generationsTotal,
		LastError:        m.err,
		UptimeSeconds:    int64(time.Since(m.startTime).Seconds()),
	}
	if m.handle != nil {
		resp.ModelPath = m.model.Path
		resp.Threads = m.model.Threads
		resp.ContextLength = m.model.ContextLength
	}
	return resp
}
