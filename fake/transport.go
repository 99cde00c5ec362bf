// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake implementations for testing and development.
// Provides predictable, controllable behavior for the core interfaces.

package fake

import (
	"sync"

	"github.com/momentics/hioload-wsframe/api"
)

// Transport is a fake implementation of api.Transport that records every
// buffer handed to Send.
type Transport struct {
	mu         sync.Mutex
	sendBuffer [][]byte
	closed     bool
	closeCalls int
	sendError  error
	closeError error
}

// NewTransport creates a new fake transport.
func NewTransport() *Transport {
	return &Transport{}
}

// Send implements api.Transport.Send.
func (t *Transport) Send(b []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return api.ErrTransportClosed
	}
	if t.sendError != nil {
		return t.sendError
	}

	bufCopy := make([]byte, len(b))
	copy(bufCopy, b)
	t.sendBuffer = append(t.sendBuffer, bufCopy)
	return nil
}

// Close implements api.Transport.Close.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closeCalls++
	if t.closeError != nil {
		return t.closeError
	}
	t.closed = true
	return nil
}

// SetSendError configures the transport to return an error on Send.
func (t *Transport) SetSendError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sendError = err
}

// SetCloseError configures the transport to return an error on Close.
func (t *Transport) SetCloseError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeError = err
}

// GetSentData returns all data that has been sent via Send.
func (t *Transport) GetSentData() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	sent := make([][]byte, len(t.sendBuffer))
	copy(sent, t.sendBuffer)
	return sent
}

// LastSent returns the most recent buffer, or nil.
func (t *Transport) LastSent() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.sendBuffer) == 0 {
		return nil
	}
	return t.sendBuffer[len(t.sendBuffer)-1]
}

// ClearSentData clears the internal send buffer.
func (t *Transport) ClearSentData() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sendBuffer = t.sendBuffer[:0]
}

// Closed reports whether Close succeeded at least once.
func (t *Transport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// CloseCalls returns the number of Close invocations.
func (t *Transport) CloseCalls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closeCalls
}

var _ api.Transport = (*Transport)(nil)
