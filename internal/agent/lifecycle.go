package agent

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"
)

func (a *Agent) run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.producer.Run(gctx)
	})
	g.Go(func() error {
		// A bind failure disables the server but leaves the producer and
		// broadcaster running: diagnostics stay reachable via the probe.
		if err := a.server.Run(gctx); err != nil {
			a.logger.Error("ipc server unavailable", "error", err)
			a.health.SetServerRunning(false)
		}
		return nil
	})
	g.Go(func() error {
		return a.runHealthLoop(gctx)
	})
	g.Go(func() error {
		return a.runProbeListener(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (a *Agent) runHealthLoop(ctx context.Context) error {
	t := time.NewTicker(healthInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			a.health.SetServerRunning(a.server.Running())
			a.health.SetSourceErrors(a.producer.SourceErrors())
			if at := a.producer.LastSampleAt(); !at.IsZero() {
				a.health.MarkSample(at)
			}
			a.logger.Debug("health", "snapshot", a.health.Snapshot(), "broadcast", a.broadcaster.Diagnostics())
		}
	}
}

func (a *Agent) shutdown() {
	// Closing the broadcaster lets attached clients drain the ring and then
	// observe end-of-stream instead of hanging on a dead socket.
	a.broadcaster.Close()
	a.health.SetServerRunning(false)
}
