// File: transport/pump.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"context"
	"errors"
	"io"
	"time"
)

// Receiver is the inbound side of a connection state machine.
type Receiver interface {
	ReceiveData(data []byte) error
	Fail(err error) error
	CloseHandshakeDone() bool
}

// Pump copies bytes from r into rcv until the peer disconnects, ctx is
// cancelled, rcv rejects the stream or the close handshake completes.
//
// r is normally a bufio.Reader wrapping n that still holds bytes read past
// the opening handshake. A rejected stream is reported to the peer through
// rcv.Fail before Pump returns the rejection. A clean EOF or completed close
// handshake returns nil.
func (n *NetConn) Pump(ctx context.Context, r io.Reader, rcv Receiver, buf []byte, readTimeout time.Duration) error {
	stop := context.AfterFunc(ctx, func() {
		_ = n.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if readTimeout > 0 {
			_ = n.conn.SetReadDeadline(time.Now().Add(readTimeout))
		}
		k, err := r.Read(buf)
		if k > 0 {
			if rerr := rcv.ReceiveData(buf[:k]); rerr != nil {
				if ferr := rcv.Fail(rerr); ferr != nil {
					n.log.Debug().Err(ferr).Msg("close frame not sent")
				}
				return rerr
			}
			if rcv.CloseHandshakeDone() {
				return nil
			}
		}
		if err != nil {
			if cerr := ctx.Err(); cerr != nil {
				return cerr
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}
