//go:build unix

package gelf

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// socketControl returns a net.ListenConfig Control function applying the send
// buffer size to the socket before it is bound.
func socketControl(sendBufferSize int) func(network, address string, c syscall.RawConn) error {
	if sendBufferSize <= 0 {
		return nil
	}
	return func(network, address string, c syscall.RawConn) error {
		var err error
		cerr := c.Control(func(fd uintptr) {
			err = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_SNDBUF, sendBufferSize)
		})
		if cerr != nil {
			return cerr
		}
		return err
	}
}
