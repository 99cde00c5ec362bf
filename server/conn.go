// File: server/conn.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"bufio"
	"context"
	"errors"
	"net"
	"time"

	"github.com/momentics/hioload-wsframe/internal/session"
	"github.com/momentics/hioload-wsframe/protocol"
	"github.com/momentics/hioload-wsframe/transport"
)

const badRequestResponse = "HTTP/1.1 400 Bad Request\r\n" +
	"Connection: close\r\n" +
	"Content-Length: 0\r\n\r\n"

// serveConn owns c for its whole life: handshake, read loop and teardown.
func (s *Server) serveConn(ctx context.Context, c net.Conn) {
	id := s.sessions.NewID()
	remote := c.RemoteAddr().String()
	log := s.log.With().Str("conn", id).Str("remote", remote).Logger()

	nc := transport.NewNetConn(c, transport.Options{
		WriteTimeout: s.cfg.WriteTimeout,
		MaxQueued:    s.cfg.MaxQueuedWrites,
		NoDelay:      s.cfg.TCPNoDelay,
		ReadBuffer:   s.cfg.SocketReadBuffer,
		WriteBuffer:  s.cfg.SocketWriteBuffer,
		Logger:       log,
	})
	defer nc.Close()

	if hs := s.cfg.HandshakeTimeout; hs > 0 {
		_ = c.SetReadDeadline(time.Now().Add(hs))
	}
	br := bufio.NewReaderSize(nc, s.cfg.ReadBufferSize)
	req, resp, err := protocol.AcceptHandshake(br)
	if err != nil {
		log.Debug().Err(err).Msg("handshake rejected")
		_ = nc.Send([]byte(badRequestResponse))
		return
	}
	_ = c.SetReadDeadline(time.Time{})

	conn := protocol.NewConn(nc, nil, s.connConfig(log))
	conn.SetHandler(s.factory(conn))

	sess := session.New(ctx, id, remote, conn)
	s.sessions.Add(sess)
	defer s.sessions.Delete(id)

	if err := conn.RunServer(resp); err != nil {
		log.Warn().Err(err).Msg("handshake response failed")
		conn.Unbind()
		return
	}
	log.Debug().Str("path", req.URL.Path).Msg("connection open")
	if s.metrics != nil {
		s.metrics.ConnectionOpened()
		defer s.metrics.ConnectionClosed()
	}

	bufp := s.pool.Get()
	err = nc.Pump(sess.Context(), br, conn, *bufp, s.cfg.ReadTimeout)
	s.pool.Put(bufp)

	switch {
	case err == nil, errors.Is(err, context.Canceled), errors.Is(err, net.ErrClosed):
	default:
		log.Debug().Err(err).Msg("read loop ended")
	}

	conn.Unbind()
	st := conn.Stats()
	log.Debug().
		Int64("frames_in", st.FramesReceived).
		Int64("frames_out", st.FramesSent).
		Int64("messages_in", st.MessagesReceived).
		Msg("connection closed")
}
