//go:build windows

package netutil

import (
	"syscall"

	"golang.org/x/sys/windows"
)

// reuseAddrControl sets SO_REUSEADDR on the socket before bind, via
// net.ListenConfig.Control.
func reuseAddrControl(network, address string, c syscall.RawConn) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		sockErr = windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_REUSEADDR, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}
