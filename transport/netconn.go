// File: transport/netconn.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// NetConn adapts a net.Conn to api.Transport. Send never blocks on the
// socket: buffers are queued and a single writer goroutine flushes them in
// order with vectored writes.

package transport

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/eapache/queue"
	"github.com/rs/zerolog"

	"github.com/momentics/hioload-wsframe/api"
)

// closeFlushTimeout bounds how long Close waits for queued bytes.
const closeFlushTimeout = 2 * time.Second

// ErrQueueFull is returned by Send when MaxQueued buffers are pending.
var ErrQueueFull = errors.New("transport: write queue full")

// Options tunes a NetConn and its socket.
type Options struct {
	WriteTimeout time.Duration
	MaxQueued    int // 0 = unbounded
	NoDelay      bool
	ReadBuffer   int // SO_RCVBUF, 0 = OS default
	WriteBuffer  int // SO_SNDBUF, 0 = OS default
	Logger       zerolog.Logger
}

// NetConn is a queued, fire-and-forget writer over net.Conn.
type NetConn struct {
	conn net.Conn
	opts Options
	log  zerolog.Logger

	mu     sync.Mutex
	q      *queue.Queue
	closed bool
	err    error

	wake      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
	wg        sync.WaitGroup
}

// NewNetConn tunes the socket and starts the writer goroutine.
func NewNetConn(conn net.Conn, opts Options) *NetConn {
	n := &NetConn{
		conn: conn,
		opts: opts,
		log:  opts.Logger,
		q:    queue.New(),
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	if err := tuneSocket(conn, opts); err != nil {
		n.log.Warn().Err(err).Str("remote", conn.RemoteAddr().String()).Msg("socket tuning failed")
	}
	n.wg.Add(1)
	go n.writeLoop()
	return n
}

// Read reads directly from the socket.
func (n *NetConn) Read(p []byte) (int, error) {
	return n.conn.Read(p)
}

// Conn exposes the wrapped connection for deadlines and addresses.
func (n *NetConn) Conn() net.Conn {
	return n.conn
}

// Send queues b for writing. Ownership of b passes to the transport.
func (n *NetConn) Send(b []byte) error {
	n.mu.Lock()
	switch {
	case n.closed:
		n.mu.Unlock()
		return api.ErrTransportClosed
	case n.err != nil:
		err := n.err
		n.mu.Unlock()
		return err
	case n.opts.MaxQueued > 0 && n.q.Length() >= n.opts.MaxQueued:
		n.mu.Unlock()
		return ErrQueueFull
	}
	n.q.Add(b)
	n.mu.Unlock()

	select {
	case n.wake <- struct{}{}:
	default:
	}
	return nil
}

// Pending returns the number of queued buffers.
func (n *NetConn) Pending() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.q.Length()
}

// Err returns the first write error, if any.
func (n *NetConn) Err() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.err
}

// Close flushes queued buffers (bounded by closeFlushTimeout) and closes
// the socket. It is idempotent.
func (n *NetConn) Close() error {
	n.closeOnce.Do(func() {
		n.mu.Lock()
		n.closed = true
		n.mu.Unlock()
		close(n.done)
		_ = n.conn.SetWriteDeadline(time.Now().Add(closeFlushTimeout))
		n.wg.Wait()
		n.closeErr = n.conn.Close()
		if n.Err() != nil {
			// writeLoop already closed the socket.
			n.closeErr = nil
		}
	})
	return n.closeErr
}

func (n *NetConn) writeLoop() {
	defer n.wg.Done()
	for {
		batch, closing := n.take()
		if len(batch) > 0 {
			if err := n.write(batch, closing); err != nil {
				n.mu.Lock()
				n.err = err
				n.mu.Unlock()
				n.log.Debug().Err(err).Msg("write failed")
				_ = n.conn.Close()
				return
			}
			continue
		}
		if closing {
			return
		}
		select {
		case <-n.wake:
		case <-n.done:
		}
	}
}

func (n *NetConn) take() ([][]byte, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	var batch [][]byte
	for n.q.Length() > 0 {
		batch = append(batch, n.q.Remove().([]byte))
	}
	return batch, n.closed
}

func (n *NetConn) write(batch [][]byte, closing bool) error {
	switch {
	case closing:
		_ = n.conn.SetWriteDeadline(time.Now().Add(closeFlushTimeout))
	case n.opts.WriteTimeout > 0:
		_ = n.conn.SetWriteDeadline(time.Now().Add(n.opts.WriteTimeout))
	}
	bufs := net.Buffers(batch)
	_, err := bufs.WriteTo(n.conn)
	return err
}

var _ api.Transport = (*NetConn)(nil)
