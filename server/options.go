// File: server/options.go
// Package server defines functional options for the Server.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"github.com/rs/zerolog"

	"github.com/momentics/hioload-wsframe/control"
	"github.com/momentics/hioload-wsframe/pool"
)

// ServerOption customizes server initialization.
type ServerOption func(*Server)

// WithLogger sets the server logger. Connection loggers derive from it.
func WithLogger(l zerolog.Logger) ServerOption {
	return func(s *Server) {
		s.log = l
	}
}

// WithMetrics attaches Prometheus collectors to every connection.
func WithMetrics(m *control.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithDebugProbes registers the server's live-state probes on dp.
func WithDebugProbes(dp *control.DebugProbes) ServerOption {
	return func(s *Server) {
		s.probes = dp
	}
}

// WithBytePool overrides the pool of socket read buffers.
func WithBytePool(bp *pool.BytePool) ServerOption {
	return func(s *Server) {
		s.pool = bp
	}
}
