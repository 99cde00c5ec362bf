// File: server/server.go
// Package server accepts TCP connections, performs the opening handshake
// and runs one protocol.Conn per connection.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/momentics/hioload-wsframe/api"
	"github.com/momentics/hioload-wsframe/control"
	"github.com/momentics/hioload-wsframe/internal/session"
	"github.com/momentics/hioload-wsframe/pool"
	"github.com/momentics/hioload-wsframe/protocol"
)

var (
	ErrAlreadyRunning = errors.New("server already running")
	ErrNoHandler      = errors.New("server: nil handler factory")
)

// shutdownReason is sent with the Going Away close frame.
const shutdownReason = "server shutting down"

// Server is the WebSocket endpoint.
type Server struct {
	cfg     control.Config
	factory api.HandlerFactory
	log     zerolog.Logger
	metrics *control.Metrics
	probes  *control.DebugProbes
	pool    *pool.BytePool

	sessions *session.Store[*protocol.Conn]

	mu      sync.Mutex
	running bool
}

// New builds a Server. factory is called once per accepted connection.
func New(cfg control.Config, factory api.HandlerFactory, opts ...ServerOption) (*Server, error) {
	if factory == nil {
		return nil, ErrNoHandler
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Server{
		cfg:      cfg,
		factory:  factory,
		log:      zerolog.Nop(),
		sessions: session.NewStore[*protocol.Conn](0),
	}
	for _, o := range opts {
		o(s)
	}
	if s.pool == nil {
		s.pool = pool.NewBytePool(cfg.ReadBufferSize)
	}
	if s.probes != nil {
		s.probes.RegisterProbe("server.connections", func() any { return s.sessions.Len() })
		s.probes.RegisterProbe("server.read_buffers", func() any {
			gets, allocs := s.pool.Stats()
			return map[string]int64{"gets": gets, "allocs": allocs}
		})
	}
	return s, nil
}

// Connections returns the number of live connections.
func (s *Server) Connections() int {
	return s.sessions.Len()
}

// ListenAndServe listens on cfg.ListenAddr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.ListenAddr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled or Accept fails.
// On cancellation every open connection is sent a Going Away close frame
// and given cfg.ShutdownTimeout to finish the close handshake. Serve closes
// ln and returns after all connections are gone.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.log.Info().Str("addr", ln.Addr().String()).Msg("websocket server listening")

	// Connection contexts outlive ctx by up to ShutdownTimeout.
	connCtx, hardStop := context.WithCancel(context.Background())
	defer hardStop()

	var conns sync.WaitGroup
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		return ln.Close()
	})
	g.Go(func() error {
		for {
			c, err := ln.Accept()
			if err != nil {
				if gctx.Err() != nil {
					return nil
				}
				var ne net.Error
				if errors.As(err, &ne) && ne.Timeout() {
					continue
				}
				return err
			}
			conns.Add(1)
			go func() {
				defer conns.Done()
				s.serveConn(connCtx, c)
			}()
		}
	})

	err := g.Wait()
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}

	s.goAway()
	timer := time.AfterFunc(s.cfg.ShutdownTimeout, hardStop)
	conns.Wait()
	timer.Stop()

	s.log.Info().Err(err).Msg("websocket server stopped")
	return err
}

func (s *Server) goAway() {
	s.sessions.Range(func(sess *session.Session[*protocol.Conn]) {
		if err := sess.Value().Close(protocol.CloseGoingAway, shutdownReason); err != nil {
			// Still in handshake or already closed: cut the read loop.
			sess.Cancel()
		}
	})
}

func (s *Server) connConfig(log zerolog.Logger) protocol.Config {
	cfg := protocol.DefaultConfig()
	cfg.MaxFramePayload = s.cfg.MaxFramePayload
	cfg.MaxMessageSize = s.cfg.MaxMessageSize
	cfg.ReceiveBufferSize = s.cfg.ReceiveBufferSize
	cfg.Logger = log
	if s.metrics != nil {
		cfg.Observer = s.metrics
	}
	return cfg
}
