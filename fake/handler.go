// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package fake

import (
	"sync"

	"github.com/momentics/hioload-wsframe/api"
)

// Message is one OnMessage delivery.
type Message struct {
	Type    api.FrameType
	Payload []byte
}

// Handler records lifecycle callbacks in arrival order.
type Handler struct {
	// OnMessageFunc, when set, runs after the message is recorded.
	OnMessageFunc func(ft api.FrameType, payload []byte)

	mu       sync.Mutex
	opens    int
	closes   int
	messages []Message
	events   []string
}

func (h *Handler) OnOpen() {
	h.mu.Lock()
	h.opens++
	h.events = append(h.events, "open")
	h.mu.Unlock()
}

func (h *Handler) OnMessage(ft api.FrameType, payload []byte) {
	h.mu.Lock()
	h.messages = append(h.messages, Message{Type: ft, Payload: append([]byte(nil), payload...)})
	h.events = append(h.events, "message:"+ft.String())
	fn := h.OnMessageFunc
	h.mu.Unlock()
	if fn != nil {
		fn(ft, payload)
	}
}

func (h *Handler) OnClose() {
	h.mu.Lock()
	h.closes++
	h.events = append(h.events, "close")
	h.mu.Unlock()
}

// Opens returns the number of OnOpen calls.
func (h *Handler) Opens() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.opens
}

// Closes returns the number of OnClose calls.
func (h *Handler) Closes() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closes
}

// Messages returns a copy of the delivered messages.
func (h *Handler) Messages() []Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Message(nil), h.messages...)
}

// Events returns the callback sequence, e.g. "open", "message:text", "close".
func (h *Handler) Events() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.events...)
}

var _ api.Handler = (*Handler)(nil)
