package manager

import (
	"time"

	"llmgate/pkg/types"
)

// Status builds a detailed status response for /status.
func (m *Manager) Status() types.StatusResponse {
	now := time.Now()
	st := m.State()
	resp := types.StatusResponse{
		State:            string(st),
		Admission:        string(m.admission),
		Inflight:         len(m.genCh),
		QueueLen:         m.waiting(),
		MaxQueueDepth:    m.maxQueueDepth,
		LoadsTotal:       m.loadsTotal.Load(),
		GenerationsTotal: m.generationsTotal.Load(),
		RejectedTotal:    m.rejectedTotal.Load(),
		LastError:        m.lastError(),
		UptimeSeconds:    int64(now.Sub(m.startTime).Seconds()),
		ServerTimeUnix:   now.Unix(),
	}
	if st == StateStopped {
		// slots are held by Shutdown, not by generations
		resp.Inflight = 0
	}
	if m.model.ID != "" {
		mi := m.model
		resp.Model = &mi
	}
	return resp
}

// waiting counts queued requests that do not yet hold a generation slot.
// Admitted requests keep their queue slot until release.
func (m *Manager) waiting() int {
	if m.queueCh == nil {
		return 0
	}
	if n := len(m.queueCh) - len(m.genCh); n > 0 {
		return n
	}
	return 0
}
