package agent

import (
	"sync/atomic"
	"time"
)

type HealthStatus struct {
	serverRunning atomic.Bool
	sourceErrors  atomic.Uint64
	lastSampleAt  atomic.Int64
}

func NewHealthStatus() *HealthStatus {
	h := &HealthStatus{}
	h.serverRunning.Store(false)
	return h
}

func (h *HealthStatus) SetServerRunning(ok bool) {
	h.serverRunning.Store(ok)
}

func (h *HealthStatus) SetSourceErrors(n uint64) {
	h.sourceErrors.Store(n)
}

func (h *HealthStatus) MarkSample(ts time.Time) {
	h.lastSampleAt.Store(ts.UnixNano())
}

func (h *HealthStatus) Snapshot() map[string]any {
	out := map[string]any{
		"server_running": h.serverRunning.Load(),
		"source_errors":  h.sourceErrors.Load(),
	}
	if v := h.lastSampleAt.Load(); v > 0 {
		out["last_sample_at"] = time.Unix(0, v).UTC()
	}
	return out
}
