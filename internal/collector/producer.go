// Package collector runs the producer loop: tick, sample, publish.
package collector

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"opta-metricsd/internal/broadcast"
	"opta-metricsd/internal/model"
	"opta-metricsd/internal/source"
)

// Producer periodically asks the snapshot source for a reading and offers it
// to the broadcaster. Source failures are logged and backed off; they never
// terminate the loop.
type Producer struct {
	logger       *slog.Logger
	src          source.Source
	b            *broadcast.Broadcaster
	interval     time.Duration
	errorBackoff time.Duration

	sourceErrors atomic.Uint64
	lastSampleAt atomic.Int64
}

// NewProducer wires a source to a broadcaster, ticking at interval.
func NewProducer(logger *slog.Logger, src source.Source, b *broadcast.Broadcaster, interval, errorBackoff time.Duration) *Producer {
	if interval <= 0 {
		interval = 40 * time.Millisecond
	}
	if errorBackoff <= 0 {
		errorBackoff = time.Second
	}
	return &Producer{
		logger:       logger,
		src:          src,
		b:            b,
		interval:     interval,
		errorBackoff: errorBackoff,
	}
}

// Run drives the loop until ctx is done. On shutdown a final zeroed snapshot
// is force-published as the end-of-stream notice.
func (p *Producer) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	if err := p.collectAndPublish(ctx); err != nil {
		p.logger.Warn("initial snapshot failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			p.b.PublishForced(model.EmptySnapshot())
			return nil
		case <-ticker.C:
			if err := p.collectAndPublish(ctx); err != nil {
				p.logger.Error("snapshot failed", "error", err)
				p.sleepWithContext(ctx, p.errorBackoff)
			}
		}
	}
}

func (p *Producer) collectAndPublish(ctx context.Context) error {
	s, err := p.src.Snapshot(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		p.sourceErrors.Add(1)
		return err
	}
	p.lastSampleAt.Store(time.Now().UnixNano())
	p.b.Publish(s)
	return nil
}

// SourceErrors is the lifetime count of failed source calls.
func (p *Producer) SourceErrors() uint64 {
	return p.sourceErrors.Load()
}

// LastSampleAt is the time of the most recent successful sample, zero before
// the first one.
func (p *Producer) LastSampleAt() time.Time {
	v := p.lastSampleAt.Load()
	if v == 0 {
		return time.Time{}
	}
	return time.Unix(0, v)
}

func (p *Producer) sleepWithContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
