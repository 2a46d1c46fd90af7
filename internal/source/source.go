// Package source produces snapshots of host system state for the streaming
// core. The core depends only on the Source contract; SystemSource is the
// gopsutil-backed implementation used by the daemon.
package source

import (
	"context"

	"opta-metricsd/internal/model"
)

// Source emits one snapshot per call. Implementations may block on I/O and
// must honor ctx.
type Source interface {
	Snapshot(ctx context.Context) (model.Snapshot, error)
}

// StaticSource returns a fixed snapshot on every call. Test double.
type StaticSource struct {
	Value model.Snapshot
	Err   error
}

func (s *StaticSource) Snapshot(ctx context.Context) (model.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return model.Snapshot{}, err
	}
	if s.Err != nil {
		return model.Snapshot{}, s.Err
	}
	return s.Value, nil
}
