// File: api/websocket.go
// Author: momentics <momentics@gmail.com>
//
// Frame type vocabulary shared by codecs, connections and handlers.

package api

// FrameType is the typed form of the 4-bit opcode.
type FrameType uint8

const (
	FrameContinuation FrameType = iota
	FrameText
	FrameBinary
	FrameClose
	FramePing
	FramePong
)

// Wire opcodes.
const (
	OpcodeContinuation byte = 0x0
	OpcodeText         byte = 0x1
	OpcodeBinary       byte = 0x2
	OpcodeClose        byte = 0x8
	OpcodePing         byte = 0x9
	OpcodePong         byte = 0xA
)

// Opcode returns the wire opcode for t.
func (t FrameType) Opcode() byte {
	switch t {
	case FrameContinuation:
		return OpcodeContinuation
	case FrameText:
		return OpcodeText
	case FrameBinary:
		return OpcodeBinary
	case FrameClose:
		return OpcodeClose
	case FramePing:
		return OpcodePing
	case FramePong:
		return OpcodePong
	}
	panic("api: invalid frame type")
}

// FrameTypeOf maps a wire opcode to its FrameType.
func FrameTypeOf(opcode byte) (FrameType, bool) {
	switch opcode {
	case OpcodeContinuation:
		return FrameContinuation, true
	case OpcodeText:
		return FrameText, true
	case OpcodeBinary:
		return FrameBinary, true
	case OpcodeClose:
		return FrameClose, true
	case OpcodePing:
		return FramePing, true
	case OpcodePong:
		return FramePong, true
	}
	return 0, false
}

// Valid reports whether t is one of the six defined frame types.
func (t FrameType) Valid() bool {
	return t <= FramePong
}

// IsControl reports Close, Ping and Pong.
func (t FrameType) IsControl() bool {
	return t == FrameClose || t == FramePing || t == FramePong
}

// IsData reports Text, Binary and Continuation.
func (t FrameType) IsData() bool {
	return t == FrameContinuation || t == FrameText || t == FrameBinary
}

func (t FrameType) String() string {
	switch t {
	case FrameContinuation:
		return "continuation"
	case FrameText:
		return "text"
	case FrameBinary:
		return "binary"
	case FrameClose:
		return "close"
	case FramePing:
		return "ping"
	case FramePong:
		return "pong"
	default:
		return "unknown"
	}
}
