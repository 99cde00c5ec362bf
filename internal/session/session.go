// File: internal/session/session.go
// Package session
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Core session implementation with cancellation and bookkeeping.

package session

import (
	"context"
	"time"
)

// Session holds per-connection identity and cancellation.
type Session[V any] struct {
	id     string
	remote string
	opened time.Time
	value  V

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a session whose context is derived from parent.
func New[V any](parent context.Context, id, remote string, value V) *Session[V] {
	ctx, cancel := context.WithCancel(parent)
	return &Session[V]{
		id:     id,
		remote: remote,
		opened: time.Now(),
		value:  value,
		ctx:    ctx,
		cancel: cancel,
	}
}

// ID returns the unique session identifier.
func (s *Session[V]) ID() string {
	return s.id
}

// Remote returns the peer address.
func (s *Session[V]) Remote() string {
	return s.remote
}

// Opened returns the session creation time.
func (s *Session[V]) Opened() time.Time {
	return s.opened
}

// Value returns the attached connection state.
func (s *Session[V]) Value() V {
	return s.value
}

// Context is cancelled by Cancel or by the parent.
func (s *Session[V]) Context() context.Context {
	return s.ctx
}

// Cancel signals session teardown; idempotent.
func (s *Session[V]) Cancel() {
	s.cancel()
}

// Done returns a channel closed upon cancellation.
func (s *Session[V]) Done() <-chan struct{} {
	return s.ctx.Done()
}
