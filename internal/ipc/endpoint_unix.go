//go:build !windows

package ipc

import (
	"fmt"
	"net"
	"os"
)

// listen binds the Unix socket endpoint. A stale socket file from an unclean
// shutdown is removed first; the file is world read/write so the indicator
// client can attach without elevation. cleanup removes the file again.
func listen(path string) (net.Listener, func(), error) {
	_ = os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, nil, fmt.Errorf("bind metrics endpoint %s: %w", path, err)
	}
	if err := os.Chmod(path, 0o666); err != nil {
		_ = ln.Close()
		_ = os.Remove(path)
		return nil, nil, fmt.Errorf("set endpoint permissions %s: %w", path, err)
	}

	cleanup := func() {
		_ = ln.Close()
		_ = os.Remove(path)
	}
	return ln, cleanup, nil
}
