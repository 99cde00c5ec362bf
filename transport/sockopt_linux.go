//go:build linux

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// tuneSocket applies Options to the socket behind c. Connections without a
// file descriptor (net.Pipe, TLS wrappers) are left alone.
func tuneSocket(c net.Conn, opts Options) error {
	tc, ok := c.(*net.TCPConn)
	if !ok {
		return nil
	}
	raw, err := tc.SyscallConn()
	if err != nil {
		return err
	}
	var serr error
	err = raw.Control(func(fd uintptr) {
		if opts.NoDelay {
			if e := unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); e != nil {
				serr = fmt.Errorf("TCP_NODELAY: %w", e)
				return
			}
		}
		if opts.ReadBuffer > 0 {
			if e := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, opts.ReadBuffer); e != nil {
				serr = fmt.Errorf("SO_RCVBUF: %w", e)
				return
			}
		}
		if opts.WriteBuffer > 0 {
			if e := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_SNDBUF, opts.WriteBuffer); e != nil {
				serr = fmt.Errorf("SO_SNDBUF: %w", e)
			}
		}
	})
	if err != nil {
		return err
	}
	return serr
}
