//go:build !windows

package ipc

import (
	"context"
	"encoding/binary"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"opta-metricsd/internal/broadcast"
	"opta-metricsd/internal/model"
	"opta-metricsd/internal/wire"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	b      *broadcast.Broadcaster
	server *Server
	path   string
	cancel context.CancelFunc
	done   chan error
}

func startServer(t *testing.T) *fixture {
	t.Helper()
	path := filepath.Join(t.TempDir(), "metrics.sock")
	b := broadcast.New(testLogger(), 0, broadcast.DefaultCapacity, wire.DefaultLimits())
	srv := New(testLogger(), b, path, 100*time.Millisecond, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx); close(done) }()

	waitForSocket(t, path)
	f := &fixture{b: b, server: srv, path: path, cancel: cancel, done: done}
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Errorf("server did not stop")
		}
	})
	return f
}

func waitForSocket(t *testing.T, path string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if fi, err := os.Stat(path); err == nil && fi.Mode().Type() == os.ModeSocket {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("endpoint %s never appeared", path)
}

func dial(t *testing.T, path string) net.Conn {
	t.Helper()
	conn, err := net.Dial("unix", path)
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readFrame reads one outer-framed message: big-endian length then payload.
func readFrame(t *testing.T, conn net.Conn) []byte {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatal(err)
	}
	var prefix [4]byte
	if _, err := io.ReadFull(conn, prefix[:]); err != nil {
		t.Fatalf("read length prefix: %v", err)
	}
	size := binary.BigEndian.Uint32(prefix[:])
	buf := make([]byte, size)
	if _, err := io.ReadFull(conn, buf); err != nil {
		t.Fatalf("read frame body: %v", err)
	}
	return buf
}

// publishUntilStopped pumps distinct snapshots so a pump connected at any
// point sees traffic.
func publishUntilStopped(f *fixture) (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		ts := uint64(0)
		ticker := time.NewTicker(2 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				ts++
				f.b.Publish(model.NewSnapshot(50, 50, 1<<30, 1<<29, 10, 40, 35, ts, nil, nil))
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

func TestStreamEndToEnd(t *testing.T) {
	f := startServer(t)
	stop := publishUntilStopped(f)
	defer stop()

	conn := dial(t, f.path)

	var last uint64
	for i := 0; i < 5; i++ {
		frame := readFrame(t, conn)
		s, err := wire.Decode(frame)
		if err != nil {
			t.Fatalf("frame %d undecodable: %v", i, err)
		}
		if s.Timestamp <= last {
			t.Fatalf("frame %d out of order: %d after %d", i, s.Timestamp, last)
		}
		last = s.Timestamp
	}
}

func TestStaleSocketFileIsReplaced(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metrics.sock")
	if err := os.WriteFile(path, []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}

	b := broadcast.New(testLogger(), 0, broadcast.DefaultCapacity, wire.DefaultLimits())
	srv := New(testLogger(), b, path, 100*time.Millisecond, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()
	defer func() { cancel(); <-done }()

	waitForSocket(t, path)
	conn := dial(t, path)
	_ = conn
}

func TestShutdownRemovesSocketFile(t *testing.T) {
	f := startServer(t)
	f.cancel()

	select {
	case err := <-f.done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("server did not stop")
	}
	if _, err := os.Stat(f.path); !os.IsNotExist(err) {
		t.Errorf("socket file still present after shutdown: %v", err)
	}
}

func TestSocketPermissions(t *testing.T) {
	f := startServer(t)
	info, err := os.Stat(f.path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o666 {
		t.Errorf("socket mode = %o, want 666", perm)
	}
}

func TestBindFailureIsReturned(t *testing.T) {
	b := broadcast.New(testLogger(), 0, broadcast.DefaultCapacity, wire.DefaultLimits())
	srv := New(testLogger(), b, filepath.Join(t.TempDir(), "missing", "metrics.sock"),
		100*time.Millisecond, 5*time.Millisecond)
	if err := srv.Run(context.Background()); err == nil {
		t.Fatalf("bind into missing directory succeeded")
	}
}

func TestConnectionFailureDoesNotDisturbOthers(t *testing.T) {
	f := startServer(t)
	stop := publishUntilStopped(f)
	defer stop()

	doomed := dial(t, f.path)
	survivor := dial(t, f.path)

	// Both see traffic, then one drops.
	readFrame(t, doomed)
	readFrame(t, survivor)
	_ = doomed.Close()

	var last uint64
	for i := 0; i < 5; i++ {
		s, err := wire.Decode(readFrame(t, survivor))
		if err != nil {
			t.Fatalf("survivor frame %d: %v", i, err)
		}
		if s.Timestamp <= last {
			t.Fatalf("survivor saw out-of-order frame")
		}
		last = s.Timestamp
	}
}

func TestBroadcasterOutlivesConnections(t *testing.T) {
	f := startServer(t)
	stop := publishUntilStopped(f)
	defer stop()

	conn := dial(t, f.path)
	readFrame(t, conn)
	_ = conn.Close()

	// With no clients connected the broadcaster keeps publishing.
	before := f.b.Diagnostics().PublishCount
	time.Sleep(20 * time.Millisecond)
	after := f.b.Diagnostics().PublishCount
	if after <= before {
		t.Errorf("publishing stalled without subscribers: %d -> %d", before, after)
	}
}
