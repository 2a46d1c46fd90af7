// Package broadcast fans serialized frames out to multiple in-process
// subscribers through a bounded, lossy ring with surfaced lag, and owns the
// publish rate gate.
package broadcast

import (
	"log/slog"
	"sync"
	"time"

	"opta-metricsd/internal/model"
	"opta-metricsd/internal/wire"
)

// DefaultRateHz is the default maximum publish rate.
const DefaultRateHz = 25

// DefaultCapacity is the number of frames retained for slow subscribers.
const DefaultCapacity = 16

// Diagnostics is a point-in-time view of broadcaster counters.
type Diagnostics struct {
	PublishCount  uint64  `json:"publish_count"`
	SkippedCount  uint64  `json:"skipped_count"`
	ReceiverCount int     `json:"receiver_count"`
	RateHz        float64 `json:"rate_hz"`
}

// Broadcaster serializes snapshots and publishes the frames to every live
// subscription. Single writer, many readers. Publishes closer together than
// the minimum interval are skipped and counted, not queued.
type Broadcaster struct {
	logger      *slog.Logger
	enc         *wire.Encoder
	minInterval time.Duration
	now         func() time.Time

	mu           sync.Mutex
	ring         [][]byte
	seq          uint64 // next sequence to assign; ring slot is seq % capacity
	lastPublish  time.Time
	publishCount uint64
	skippedCount uint64
	receivers    int
	closed       bool
	wake         chan struct{}
}

// New creates a broadcaster. rateHz caps publishes per second (0 disables the
// gate); capacity is the ring size in frames.
func New(logger *slog.Logger, rateHz, capacity int, limits wire.Limits) *Broadcaster {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	var minInterval time.Duration
	if rateHz > 0 {
		minInterval = time.Second / time.Duration(rateHz)
	}
	b := &Broadcaster{
		logger:      logger,
		enc:         wire.NewEncoder(limits),
		minInterval: minInterval,
		now:         time.Now,
		ring:        make([][]byte, capacity),
		wake:        make(chan struct{}),
	}
	// Let the first publish through immediately.
	b.lastPublish = b.now().Add(-minInterval)
	return b
}

// Publish serializes the snapshot and pushes the frame unless the rate gate
// rejects it. Returns true iff the frame was published.
func (b *Broadcaster) Publish(s model.Snapshot) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}
	now := b.now()
	if b.minInterval > 0 && now.Sub(b.lastPublish) < b.minInterval {
		b.skippedCount++
		return false
	}
	return b.publishLocked(&s, now)
}

// PublishForced bypasses the rate gate and resets its clock. Reserved for
// end-of-stream and state-change notices.
func (b *Broadcaster) PublishForced(s model.Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.publishLocked(&s, b.now())
}

func (b *Broadcaster) publishLocked(s *model.Snapshot, now time.Time) bool {
	data, err := b.enc.Encode(s)
	if err != nil {
		b.logger.Error("frame encode failed", "error", err)
		return false
	}
	b.ring[b.seq%uint64(len(b.ring))] = data
	b.seq++
	b.lastPublish = now
	b.publishCount++
	close(b.wake)
	b.wake = make(chan struct{})
	return true
}

// Subscribe returns a cursor starting at the next future publication.
func (b *Broadcaster) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.receivers++
	return &Subscription{b: b, next: b.seq}
}

// Close stops the broadcaster. Subscribers drain retained frames, then see
// ErrClosed.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.wake)
}

// Diagnostics reports lifetime counters. PublishCount plus SkippedCount
// equals the number of Publish attempts.
func (b *Broadcaster) Diagnostics() Diagnostics {
	b.mu.Lock()
	defer b.mu.Unlock()
	var rate float64
	if b.minInterval > 0 {
		rate = float64(time.Second) / float64(b.minInterval)
	}
	return Diagnostics{
		PublishCount:  b.publishCount,
		SkippedCount:  b.skippedCount,
		ReceiverCount: b.receivers,
		RateHz:        rate,
	}
}

// MinInterval is the configured gap between publishes (zero when ungated).
func (b *Broadcaster) MinInterval() time.Duration {
	return b.minInterval
}
