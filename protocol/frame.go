// Package protocol
// Author: momentics <momentics@gmail.com>
//
// WebSocket frame and message values produced by the codec and reassembler.

package protocol

import "github.com/momentics/hioload-wsframe/api"

// Wire layout constants.
const (
	finBit     = 0x80
	maskBit    = 0x80
	opcodeMask = 0x0F
	len7Mask   = 0x7F

	maxLen7    = 125
	len16Code  = 126
	len64Code  = 127
	maxLen16   = 0xFFFF
	maskKeyLen = 4

	// MaxFrameHeaderLen covers a 64-bit length and a mask key.
	MaxFrameHeaderLen = 14

	// MaxControlPayloadLen is the payload ceiling for Close, Ping and Pong.
	MaxControlPayloadLen = 125
)

// Frame is one decoded wire frame. Payload is owned by the frame and
// already unmasked.
type Frame struct {
	Fin     bool
	Type    api.FrameType
	Payload []byte
}

// Message is a complete application message: either a single final frame
// or the concatenation of a fragmented sequence.
type Message struct {
	Type    api.FrameType
	Payload []byte
}
