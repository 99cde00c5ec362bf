// File: client/client.go
// Package client provides a WebSocket client built on protocol.Conn.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// This client implements:
// - RFC 6455 opening handshake over TCP or TLS (ws:// and wss://)
// - Masked outbound frames with a fresh key per frame
// - Configurable handshake and read deadlines and optional heartbeat Pings
// - Lifecycle callbacks through api.Handler

package client

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/momentics/hioload-wsframe/api"
	"github.com/momentics/hioload-wsframe/protocol"
	"github.com/momentics/hioload-wsframe/transport"
)

// ErrBadScheme is returned for URLs other than ws:// and wss://.
var ErrBadScheme = errors.New("client: url scheme must be ws or wss")

// Config holds the configurable parameters for the WebSocket client.
type Config struct {
	Header            http.Header   // extra handshake headers
	TLSConfig         *tls.Config   // wss only; nil uses defaults
	ReadBufferSize    int           // size of socket reads
	HandshakeTimeout  time.Duration // dial plus handshake (0 = ctx only)
	ReadTimeout       time.Duration // read deadline once open (0 = none)
	HeartbeatInterval time.Duration // send ping every interval (0 = disabled)

	Conn      protocol.Config
	Transport transport.Options
	Logger    zerolog.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ReadBufferSize:   32 * 1024,
		HandshakeTimeout: 10 * time.Second,
		Conn:             protocol.DefaultConfig(),
		Transport:        transport.Options{NoDelay: true},
		Logger:           zerolog.Nop(),
	}
}

// Client is one open client connection.
type Client struct {
	conn *protocol.Conn
	nc   *transport.NetConn
	log  zerolog.Logger

	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	err error
}

// Dial connects to rawURL, performs the opening handshake and starts the
// read loop. factory builds the handler; OnOpen has fired by the time Dial
// returns.
func Dial(ctx context.Context, rawURL string, cfg Config, factory api.HandlerFactory) (*Client, error) {
	if factory == nil {
		return nil, errors.New("client: nil handler factory")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rawURL, err)
	}
	var port string
	switch u.Scheme {
	case "ws":
		port = "80"
	case "wss":
		port = "443"
	default:
		return nil, ErrBadScheme
	}
	addr := u.Host
	if u.Port() == "" {
		addr = net.JoinHostPort(u.Hostname(), port)
	}
	if cfg.ReadBufferSize <= 0 {
		cfg.ReadBufferSize = 32 * 1024
	}

	hctx := ctx
	if cfg.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		hctx, cancel = context.WithTimeout(ctx, cfg.HandshakeTimeout)
		defer cancel()
	}

	raw, err := dialRaw(hctx, u, addr, cfg.TLSConfig)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rawURL, err)
	}
	log := cfg.Logger.With().Str("url", rawURL).Logger()
	tcfg := cfg.Transport
	tcfg.Logger = log
	nc := transport.NewNetConn(raw, tcfg)

	ch, err := protocol.NewClientHandshake(u, cfg.Header)
	if err != nil {
		nc.Close()
		return nil, err
	}
	ccfg := cfg.Conn
	ccfg.Logger = log
	conn := protocol.NewConn(nc, nil, ccfg)
	if err := conn.RunClient(ch.Request); err != nil {
		nc.Close()
		return nil, err
	}

	stop := context.AfterFunc(hctx, func() {
		_ = raw.SetReadDeadline(time.Now())
	})
	br := bufio.NewReaderSize(nc, cfg.ReadBufferSize)
	err = ch.Verify(br)
	if !stop() && err != nil {
		err = fmt.Errorf("%w (%w)", err, hctx.Err())
	}
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("dial %s: %w", rawURL, err)
	}
	_ = raw.SetReadDeadline(time.Time{})

	conn.SetHandler(factory(conn))
	if err := conn.CompleteHandshake(); err != nil {
		conn.Unbind()
		nc.Close()
		return nil, err
	}
	log.Debug().Msg("client connected")

	rctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		conn:   conn,
		nc:     nc,
		log:    log,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go c.readLoop(rctx, br, cfg.ReadBufferSize, cfg.ReadTimeout)
	if cfg.HeartbeatInterval > 0 {
		go c.heartbeatLoop(cfg.HeartbeatInterval)
	}
	return c, nil
}

func dialRaw(ctx context.Context, u *url.URL, addr string, tc *tls.Config) (net.Conn, error) {
	if u.Scheme == "wss" {
		if tc == nil {
			tc = &tls.Config{MinVersion: tls.VersionTLS12}
		} else {
			tc = tc.Clone()
		}
		if tc.ServerName == "" {
			tc.ServerName = u.Hostname()
		}
		d := tls.Dialer{Config: tc}
		return d.DialContext(ctx, "tcp", addr)
	}
	var d net.Dialer
	return d.DialContext(ctx, "tcp", addr)
}

func (c *Client) readLoop(ctx context.Context, br *bufio.Reader, size int, readTimeout time.Duration) {
	defer close(c.done)
	err := c.nc.Pump(ctx, br, c.conn, make([]byte, size), readTimeout)
	c.conn.Unbind()
	_ = c.nc.Close()
	if err != nil && !errors.Is(err, context.Canceled) {
		c.log.Debug().Err(err).Msg("client read loop ended")
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
	}
}

// heartbeatLoop sends Ping frames at the configured interval.
func (c *Client) heartbeatLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.conn.Send(api.FramePing, nil); err != nil {
				return
			}
		}
	}
}

// Conn exposes the underlying state machine.
func (c *Client) Conn() *protocol.Conn {
	return c.conn
}

// Send transmits one final frame.
func (c *Client) Send(ft api.FrameType, payload []byte) error {
	return c.conn.Send(ft, payload)
}

// SendText is a shorthand for Send(api.FrameText, []byte(s)).
func (c *Client) SendText(s string) error {
	return c.conn.SendText(s)
}

// Close starts the closing handshake. The connection is torn down once the
// server answers; see Done.
func (c *Client) Close(code uint16, reason string) error {
	return c.conn.Close(code, reason)
}

// Shutdown performs a normal close and waits for the server's reply until
// ctx expires, then drops the connection.
func (c *Client) Shutdown(ctx context.Context) error {
	if err := c.conn.Close(protocol.CloseNormalClosure, ""); err != nil && !errors.Is(err, api.ErrConnectionClosed) {
		c.cancel()
		<-c.done
		return err
	}
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		c.cancel()
		<-c.done
		return ctx.Err()
	}
}

// Done is closed once the connection is gone.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err reports why the read loop stopped; nil after a clean close.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

var _ api.Sender = (*Client)(nil)
