// File: api/handler.go
// Package api defines the application-facing callbacks.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// Handler receives connection lifecycle notifications and completed messages.
// OnOpen and OnClose fire at most once per connection.
type Handler interface {
	OnOpen()
	OnMessage(ft FrameType, payload []byte)
	OnClose()
}

// Sender is the outbound half exposed to applications.
type Sender interface {
	Send(ft FrameType, payload []byte) error
}

// HandlerFactory builds the handler for a new connection. The Sender is the
// connection itself and may be retained for replies.
type HandlerFactory func(s Sender) Handler

// HandlerFuncs adapts plain functions to Handler. Nil fields are skipped.
type HandlerFuncs struct {
	Open    func()
	Message func(ft FrameType, payload []byte)
	Close   func()
}

func (h HandlerFuncs) OnOpen() {
	if h.Open != nil {
		h.Open()
	}
}

func (h HandlerFuncs) OnMessage(ft FrameType, payload []byte) {
	if h.Message != nil {
		h.Message(ft, payload)
	}
}

func (h HandlerFuncs) OnClose() {
	if h.Close != nil {
		h.Close()
	}
}

var _ Handler = HandlerFuncs{}
