// Package ipc streams frames to local UI clients over a well-known
// endpoint: a Unix domain socket, or a named pipe on Windows.
//
// The transport framing is a 4-byte big-endian length prefix followed by the
// frame bytes. The prefix covers the whole inner frame (header + payload) as
// an opaque blob; inner framing is internal/wire's concern.
package ipc

import (
	"context"
	"encoding/binary"
	"errors"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"opta-metricsd/internal/broadcast"
)

const acceptBackoff = 100 * time.Millisecond

// Server accepts indicator-client connections and pumps each one frames from
// its own broadcast subscription. A failing connection never disturbs the
// broadcaster or its siblings.
type Server struct {
	logger       *slog.Logger
	b            *broadcast.Broadcaster
	endpoint     string
	writeTimeout time.Duration
	pumpIdle     time.Duration
	running      atomic.Bool
}

// New creates a server for the given endpoint (socket path, or pipe name on
// Windows). pumpIdle is how long a caught-up connection sleeps before
// polling again, typically one publish interval.
func New(logger *slog.Logger, b *broadcast.Broadcaster, endpoint string, writeTimeout, pumpIdle time.Duration) *Server {
	if writeTimeout <= 0 {
		writeTimeout = 100 * time.Millisecond
	}
	if pumpIdle <= 0 {
		pumpIdle = 40 * time.Millisecond
	}
	return &Server{
		logger:       logger,
		b:            b,
		endpoint:     endpoint,
		writeTimeout: writeTimeout,
		pumpIdle:     pumpIdle,
	}
}

// Run binds the endpoint and serves until ctx is done. A bind failure is
// returned to the caller; everything after that is handled and logged here.
func (s *Server) Run(ctx context.Context) error {
	ln, cleanup, err := listen(s.endpoint)
	if err != nil {
		return err
	}
	defer cleanup()

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	s.running.Store(true)
	defer s.running.Store(false)
	s.logger.Info("metrics endpoint listening", "endpoint", s.endpoint)

	for {
		conn, acceptErr := ln.Accept()
		if acceptErr != nil {
			if ctx.Err() != nil || errors.Is(acceptErr, net.ErrClosed) {
				return nil
			}
			if ne, ok := acceptErr.(net.Error); ok && ne.Timeout() {
				continue
			}
			s.logger.Warn("accept failed", "error", acceptErr)
			sleepWithContext(ctx, acceptBackoff)
			continue
		}
		go s.serveConn(ctx, conn)
	}
}

// Running reports whether the accept loop is live.
func (s *Server) Running() bool {
	return s.running.Load()
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	connID := uuid.NewString()
	sub := s.b.Subscribe()
	defer sub.Close()
	defer func() { _ = conn.Close() }()

	s.logger.Info("client connected", "conn_id", connID)
	defer s.logger.Info("client disconnected", "conn_id", connID)

	for ctx.Err() == nil {
		data, err := sub.TryRecv()
		switch {
		case err == nil:
			if writeErr := s.writeFrame(conn, data); writeErr != nil {
				s.logger.Warn("frame write failed", "conn_id", connID, "error", writeErr)
				return
			}
		case errors.Is(err, broadcast.ErrEmpty):
			sleepWithContext(ctx, s.pumpIdle)
		case errors.Is(err, broadcast.ErrClosed):
			return
		default:
			var lag *broadcast.LagError
			if errors.As(err, &lag) {
				s.logger.Warn("client lagged", "conn_id", connID, "skipped", lag.Skipped)
				continue
			}
			s.logger.Error("subscription read failed", "conn_id", connID, "error", err)
			return
		}
	}
}

// writeFrame sends the big-endian length prefix, then the frame. net.Conn
// writes are full-or-error, so no partial-write loop is needed here.
func (s *Server) writeFrame(conn net.Conn, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
		return err
	}
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(data)))
	if _, err := conn.Write(prefix[:]); err != nil {
		return err
	}
	if _, err := conn.Write(data); err != nil {
		return err
	}
	return nil
}

func sleepWithContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
