// File: protocol/reassembly.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Continuation-frame reassembly for one connection.

package protocol

import "github.com/momentics/hioload-wsframe/api"

// Reassembler accumulates non-final data frames until the final
// continuation arrives. Control frames pass straight through and leave any
// pending message untouched. Any error discards the pending message.
type Reassembler struct {
	// MaxMessageSize caps the reassembled payload; 0 disables the cap.
	MaxMessageSize int

	pending bool
	typ     api.FrameType
	buf     []byte
}

// Pending reports the type of the message being reassembled, if any.
func (r *Reassembler) Pending() (api.FrameType, bool) {
	return r.typ, r.pending
}

// Buffered returns the number of payload bytes held for the pending message.
func (r *Reassembler) Buffered() int {
	return len(r.buf)
}

// Reset drops any pending message.
func (r *Reassembler) Reset() {
	r.pending = false
	r.typ = 0
	r.buf = nil
}

// Push feeds one decoded frame. It returns the completed message and true
// when f finishes one, or false while more fragments are expected.
func (r *Reassembler) Push(f Frame) (Message, bool, error) {
	if f.Type.IsControl() {
		if !f.Fin {
			r.Reset()
			return Message{}, false, api.NewProtocolError("fragmented control frame").
				WithContext("type", f.Type.String())
		}
		if len(f.Payload) > MaxControlPayloadLen {
			r.Reset()
			return Message{}, false, api.NewProtocolError("control frame payload too large").
				WithContext("length", len(f.Payload))
		}
		return Message{Type: f.Type, Payload: f.Payload}, true, nil
	}

	if f.Type == api.FrameContinuation {
		if !r.pending {
			return Message{}, false, api.NewProtocolError("continuation frame not expected")
		}
		if err := r.append(f.Payload); err != nil {
			return Message{}, false, err
		}
		if !f.Fin {
			return Message{}, false, nil
		}
		msg := Message{Type: r.typ, Payload: r.buf}
		r.pending = false
		r.typ = 0
		r.buf = nil
		return msg, true, nil
	}

	if r.pending {
		r.Reset()
		return Message{}, false, api.NewProtocolError("data frame interleaved with fragmented message").
			WithContext("type", f.Type.String())
	}
	if f.Fin {
		if r.MaxMessageSize > 0 && len(f.Payload) > r.MaxMessageSize {
			return Message{}, false, r.tooLarge(len(f.Payload))
		}
		return Message{Type: f.Type, Payload: f.Payload}, true, nil
	}

	r.pending = true
	r.typ = f.Type
	if err := r.append(f.Payload); err != nil {
		return Message{}, false, err
	}
	return Message{}, false, nil
}

func (r *Reassembler) append(p []byte) error {
	if r.MaxMessageSize > 0 && len(r.buf)+len(p) > r.MaxMessageSize {
		size := len(r.buf) + len(p)
		r.Reset()
		return r.tooLarge(size)
	}
	r.buf = append(r.buf, p...)
	return nil
}

func (r *Reassembler) tooLarge(size int) error {
	return api.NewError(api.ErrCodeTooLarge, "message exceeds limit").
		WithContext("size", size).
		WithContext("limit", r.MaxMessageSize)
}
