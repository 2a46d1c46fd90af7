//go:build windows

package ipc

import (
	"fmt"
	"net"

	"github.com/Microsoft/go-winio"
)

// listen binds the named-pipe endpoint. The default security descriptor
// grants the current user's local peers access, matching the Unix socket's
// permissive mode.
func listen(name string) (net.Listener, func(), error) {
	ln, err := winio.ListenPipe(name, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("bind metrics pipe %s: %w", name, err)
	}
	cleanup := func() {
		_ = ln.Close()
	}
	return ln, cleanup, nil
}
