// File: protocol/connection.go
// Package protocol implements the per-connection WebSocket state machine.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Conn owns the receive buffer, the reassembly state and the connection
// phase. It never reads from or closes the socket itself: inbound bytes are
// pushed in through ReceiveData and outbound frames leave through
// api.Transport.Send.

package protocol

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/momentics/hioload-wsframe/api"
	"github.com/momentics/hioload-wsframe/internal/buffer"
)

// ErrHandshakeDone is returned when a handshake step is repeated.
var ErrHandshakeDone = errors.New("protocol: handshake already performed")

// Observer receives per-frame accounting. Implementations must be safe for
// use by many connections at once.
type Observer interface {
	FrameReceived(ft api.FrameType, payloadLen int)
	FrameSent(ft api.FrameType, payloadLen int)
	MessageReceived(ft api.FrameType, payloadLen int)
	Error(err error)
}

// Config tunes a Conn.
type Config struct {
	// MaxFramePayload caps a single inbound frame; 0 means unlimited.
	MaxFramePayload uint64
	// MaxMessageSize caps a reassembled inbound message; 0 means unlimited.
	MaxMessageSize int
	// ReceiveBufferSize is the initial receive buffer capacity.
	ReceiveBufferSize int
	// AutoControl answers Ping with Pong and echoes a peer Close.
	AutoControl bool
	// MaskKey supplies outbound masking keys in the client role.
	MaskKey func() ([4]byte, error)

	Logger   zerolog.Logger
	Observer Observer
}

// DefaultConfig returns limits suitable for general use.
func DefaultConfig() Config {
	return Config{
		MaxFramePayload:   16 << 20,
		MaxMessageSize:    32 << 20,
		ReceiveBufferSize: 4096,
		AutoControl:       true,
		MaskKey:           NewMaskKey,
		Logger:            zerolog.Nop(),
	}
}

type eventKind uint8

const (
	evOpen eventKind = iota
	evMessage
	evClose
)

type event struct {
	kind eventKind
	msg  Message
}

// Conn is the WebSocket connection state machine.
//
// All state changes are serialised by an internal mutex. Handler callbacks
// run after the mutex is released, in arrival order, so a handler may call
// Send from inside OnMessage.
type Conn struct {
	mu      sync.Mutex
	tr      api.Transport
	handler api.Handler
	cfg     Config
	log     zerolog.Logger

	phase         api.ConnectionPhase
	role          api.Role
	maskOutbound  bool
	requireMasked bool

	recv  *buffer.ReceiveBuffer
	reasm Reassembler

	openNotified  bool
	closeNotified bool
	closeSent     bool
	closeReceived bool

	stats api.ConnStats
}

// NewConn creates a connection in the Handshake phase. Until RunClient is
// called the connection acts as a server: inbound frames must be masked and
// outbound frames are sent unmasked.
func NewConn(tr api.Transport, h api.Handler, cfg Config) *Conn {
	if cfg.MaskKey == nil {
		cfg.MaskKey = NewMaskKey
	}
	if cfg.ReceiveBufferSize <= 0 {
		cfg.ReceiveBufferSize = 4096
	}
	return &Conn{
		tr:            tr,
		handler:       h,
		cfg:           cfg,
		log:           cfg.Logger,
		phase:         api.PhaseHandshake,
		role:          api.RoleServer,
		requireMasked: true,
		recv:          buffer.NewReceiveBuffer(cfg.ReceiveBufferSize),
		reasm:         Reassembler{MaxMessageSize: cfg.MaxMessageSize},
	}
}

// SetHandler replaces the application handler.
func (c *Conn) SetHandler(h api.Handler) {
	c.mu.Lock()
	c.handler = h
	c.mu.Unlock()
}

// Phase returns the current lifecycle phase.
func (c *Conn) Phase() api.ConnectionPhase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Role returns the masking role.
func (c *Conn) Role() api.Role {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.role
}

// CloseHandshakeDone reports whether Close frames have travelled both ways,
// after which the owner may tear the transport down.
func (c *Conn) CloseHandshakeDone() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeSent && c.closeReceived
}

// Stats returns a snapshot of the connection counters.
func (c *Conn) Stats() api.ConnStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// RunServer sends the handshake response and enters Connected.
func (c *Conn) RunServer(response []byte) error {
	c.mu.Lock()
	if c.phase != api.PhaseHandshake {
		c.mu.Unlock()
		return ErrHandshakeDone
	}
	if err := c.tr.Send(response); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("send handshake response: %w", err)
	}
	evs, err := c.openLocked()
	c.mu.Unlock()
	c.dispatch(evs)
	return err
}

// RunClient switches to the client role and sends the handshake request.
// The connection stays in Handshake until CompleteHandshake.
func (c *Conn) RunClient(request []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != api.PhaseHandshake || c.role == api.RoleClient {
		return ErrHandshakeDone
	}
	c.role = api.RoleClient
	c.maskOutbound = true
	c.requireMasked = false
	if err := c.tr.Send(request); err != nil {
		return fmt.Errorf("send handshake request: %w", err)
	}
	return nil
}

// CompleteHandshake signals that the peer's handshake response was accepted.
// Bytes received while in Handshake are decoded now.
func (c *Conn) CompleteHandshake() error {
	c.mu.Lock()
	if c.phase != api.PhaseHandshake {
		c.mu.Unlock()
		return ErrHandshakeDone
	}
	evs, err := c.openLocked()
	c.mu.Unlock()
	c.dispatch(evs)
	return err
}

func (c *Conn) openLocked() ([]event, error) {
	c.phase = api.PhaseConnected
	c.log.Debug().Str("role", c.role.String()).Msg("connection open")
	var evs []event
	if !c.openNotified {
		c.openNotified = true
		evs = append(evs, event{kind: evOpen})
	}
	return c.processLocked(evs)
}

// ReceiveData appends inbound bytes and decodes every complete frame.
// Zero, one or many messages may be delivered per call. Bytes received in
// the Handshake phase are held until the handshake completes.
func (c *Conn) ReceiveData(data []byte) error {
	c.mu.Lock()
	if c.phase == api.PhaseClosed {
		c.mu.Unlock()
		return api.ErrConnectionClosed
	}
	c.recv.Append(data)
	var (
		evs []event
		err error
	)
	if c.phase != api.PhaseHandshake {
		evs, err = c.processLocked(nil)
	}
	c.mu.Unlock()
	c.dispatch(evs)
	return err
}

func (c *Conn) processLocked(evs []event) ([]event, error) {
	opts := DecodeOptions{RequireMasked: c.requireMasked, MaxPayload: c.cfg.MaxFramePayload}
	for c.recv.Len() >= 2 {
		f, n, err := DecodeFrame(c.recv.Bytes(), opts)
		if err != nil {
			c.reasm.Reset()
			c.observeError(err)
			return evs, err
		}
		if n == 0 {
			break
		}
		c.recv.Consume(n)
		c.stats.FramesReceived++
		c.stats.BytesReceived += int64(n)
		if o := c.cfg.Observer; o != nil {
			o.FrameReceived(f.Type, len(f.Payload))
		}
		c.log.Debug().
			Str("type", f.Type.String()).
			Bool("fin", f.Fin).
			Int("len", len(f.Payload)).
			Msg("frame received")

		msg, done, err := c.reasm.Push(f)
		if err != nil {
			c.observeError(err)
			return evs, err
		}
		if !done {
			continue
		}
		c.stats.MessagesReceived++
		if o := c.cfg.Observer; o != nil {
			o.MessageReceived(msg.Type, len(msg.Payload))
		}
		if c.cfg.AutoControl && msg.Type.IsControl() {
			c.controlLocked(msg)
		}
		evs = append(evs, event{kind: evMessage, msg: msg})
	}
	return evs, nil
}

func (c *Conn) controlLocked(msg Message) {
	switch msg.Type {
	case api.FramePing:
		if err := c.sendLocked(api.FramePong, msg.Payload); err != nil {
			c.log.Warn().Err(err).Msg("pong reply failed")
		}
	case api.FrameClose:
		c.closeReceived = true
		if c.phase != api.PhaseConnected {
			return
		}
		code, _, err := ParseClosePayload(msg.Payload)
		var reply []byte
		switch {
		case err != nil:
			reply = EncodeClosePayload(CloseProtocolError, "")
		case code != CloseNoStatusRcvd:
			reply = EncodeClosePayload(code, "")
		}
		if err := c.sendLocked(api.FrameClose, reply); err != nil {
			c.log.Warn().Err(err).Msg("close reply failed")
		}
	}
}

// Send encodes and transmits one final frame. Data frames are refused once
// a close sequence has started; control frames stay legal until Closed.
// Sending a Close frame from Connected enters Closing.
func (c *Conn) Send(ft api.FrameType, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendLocked(ft, payload)
}

// SendText is a shorthand for Send(api.FrameText, []byte(s)).
func (c *Conn) SendText(s string) error {
	return c.Send(api.FrameText, []byte(s))
}

func (c *Conn) sendLocked(ft api.FrameType, payload []byte) error {
	if !ft.Valid() {
		return api.NewError(api.ErrCodeInvalidArgument, "unknown frame type").WithContext("type", int(ft))
	}
	switch c.phase {
	case api.PhaseHandshake:
		return api.ErrHandshakeIncomplete
	case api.PhaseClosed:
		return api.ErrConnectionClosed
	case api.PhaseClosing:
		if ft.IsData() {
			return api.NewProtocolError("cannot send data frame while closing").
				WithContext("type", ft.String())
		}
	}
	if ft.IsControl() && len(payload) > MaxControlPayloadLen {
		return api.NewProtocolError("control frame payload too large").
			WithContext("length", len(payload))
	}

	var key *[4]byte
	if c.maskOutbound {
		k, err := c.cfg.MaskKey()
		if err != nil {
			return err
		}
		key = &k
	}
	frame := EncodeFrame(ft, payload, key)
	c.log.Debug().
		Str("type", ft.String()).
		Int("len", len(payload)).
		Bool("masked", key != nil).
		Msg("sending frame")
	if err := c.tr.Send(frame); err != nil {
		return fmt.Errorf("send %s frame: %w", ft, err)
	}
	c.stats.FramesSent++
	c.stats.BytesSent += int64(len(frame))
	if o := c.cfg.Observer; o != nil {
		o.FrameSent(ft, len(payload))
	}

	if ft == api.FrameClose {
		c.closeSent = true
		if c.phase == api.PhaseConnected {
			c.phase = api.PhaseClosing
			c.log.Debug().Msg("connection closing")
		}
	}
	return nil
}

// Close starts the closing handshake with the given status and reason.
// Calling Close again while Closing is a no-op.
func (c *Conn) Close(code uint16, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.phase {
	case api.PhaseHandshake:
		return api.ErrHandshakeIncomplete
	case api.PhaseClosing:
		return nil
	case api.PhaseClosed:
		return api.ErrConnectionClosed
	}
	return c.sendLocked(api.FrameClose, EncodeClosePayload(code, reason))
}

// Fail reports err to the peer with a matching close status when the
// connection is still Connected. Tearing down the transport is left to the
// caller.
func (c *Conn) Fail(err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != api.PhaseConnected {
		return nil
	}
	code := CloseCodeFor(err)
	reason := ""
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		reason = apiErr.Message
	}
	return c.sendLocked(api.FrameClose, EncodeClosePayload(code, reason))
}

// Unbind records that the transport disconnected. The connection enters
// Closed, discards partial input and fires OnClose once.
func (c *Conn) Unbind() {
	c.mu.Lock()
	if c.phase == api.PhaseClosed {
		c.mu.Unlock()
		return
	}
	c.phase = api.PhaseClosed
	c.reasm.Reset()
	c.recv.Reset()
	var evs []event
	if !c.closeNotified {
		c.closeNotified = true
		evs = append(evs, event{kind: evClose})
	}
	c.log.Debug().Msg("connection closed")
	c.mu.Unlock()
	c.dispatch(evs)
}

func (c *Conn) observeError(err error) {
	if o := c.cfg.Observer; o != nil {
		o.Error(err)
	}
}

func (c *Conn) dispatch(evs []event) {
	if len(evs) == 0 {
		return
	}
	c.mu.Lock()
	h := c.handler
	c.mu.Unlock()
	if h == nil {
		return
	}
	for _, ev := range evs {
		switch ev.kind {
		case evOpen:
			h.OnOpen()
		case evMessage:
			h.OnMessage(ev.msg.Type, ev.msg.Payload)
		case evClose:
			h.OnClose()
		}
	}
}

var _ api.Sender = (*Conn)(nil)
