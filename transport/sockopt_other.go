//go:build !linux

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import "net"

func tuneSocket(c net.Conn, opts Options) error {
	tc, ok := c.(*net.TCPConn)
	if !ok {
		return nil
	}
	if err := tc.SetNoDelay(opts.NoDelay); err != nil {
		return err
	}
	if opts.ReadBuffer > 0 {
		if err := tc.SetReadBuffer(opts.ReadBuffer); err != nil {
			return err
		}
	}
	if opts.WriteBuffer > 0 {
		return tc.SetWriteBuffer(opts.WriteBuffer)
	}
	return nil
}
