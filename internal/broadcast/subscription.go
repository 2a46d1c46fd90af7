package broadcast

import (
	"context"
	"errors"
	"fmt"
)

// ErrClosed reports a read from a closed broadcaster or subscription once
// all retained frames have been drained.
var ErrClosed = errors.New("broadcast: closed")

// ErrEmpty reports that no frame is pending for a non-blocking read.
var ErrEmpty = errors.New("broadcast: no frame pending")

// LagError tells a subscriber its cursor was overtaken by the ring. The next
// read resumes at the oldest retained frame.
type LagError struct {
	Skipped uint64
}

func (e *LagError) Error() string {
	return fmt.Sprintf("broadcast: subscriber lagged, %d frames skipped", e.Skipped)
}

// Subscription is one consumer's read cursor into the broadcast ring. Not
// safe for concurrent use; each connection owns exactly one.
type Subscription struct {
	b      *Broadcaster
	next   uint64
	closed bool
}

// TryRecv returns the next frame without blocking. It returns ErrEmpty when
// caught up, a *LagError once per overrun, and ErrClosed after the
// broadcaster shut down and the ring is drained.
func (s *Subscription) TryRecv() ([]byte, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	data, _, err := s.recvLocked()
	return data, err
}

// Recv blocks until a frame is available or ctx is done. Lag is still
// surfaced as a *LagError return rather than waited out.
func (s *Subscription) Recv(ctx context.Context) ([]byte, error) {
	for {
		s.b.mu.Lock()
		data, wake, err := s.recvLocked()
		s.b.mu.Unlock()
		if !errors.Is(err, ErrEmpty) {
			return data, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-wake:
		}
	}
}

func (s *Subscription) recvLocked() ([]byte, chan struct{}, error) {
	b := s.b
	if s.closed {
		return nil, nil, ErrClosed
	}
	if s.next == b.seq {
		if b.closed {
			return nil, nil, ErrClosed
		}
		return nil, b.wake, ErrEmpty
	}
	capacity := uint64(len(b.ring))
	if b.seq-s.next > capacity {
		skipped := b.seq - capacity - s.next
		s.next = b.seq - capacity
		return nil, nil, &LagError{Skipped: skipped}
	}
	data := b.ring[s.next%capacity]
	s.next++
	return data, nil, nil
}

// Close releases the cursor. Further reads return ErrClosed.
func (s *Subscription) Close() {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.b.receivers--
}
