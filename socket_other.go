//go:build !unix

package gelf

import "syscall"

// socketControl is a no-op where SO_SNDBUF is not settable through x/sys/unix.
func socketControl(sendBufferSize int) func(network, address string, c syscall.RawConn) error {
	if sendBufferSize > 0 {
		InternalLogger().Printf("SendBufferSize is not supported on this platform; ignoring")
	}
	return nil
}
