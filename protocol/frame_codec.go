// File: protocol/frame_codec.go
// Package protocol implements the buffer-oriented frame codec.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// DecodeFrame works on whatever prefix of the stream has arrived so far and
// never consumes a partial frame. EncodeFrame always emits a single final
// frame; fragmentation is only understood on the receive side.

package protocol

import (
	"encoding/binary"
	"math"

	"github.com/momentics/hioload-wsframe/api"
)

// DecodeOptions tunes DecodeFrame for the local role.
type DecodeOptions struct {
	// RequireMasked rejects frames without the mask bit (server role).
	RequireMasked bool
	// MaxPayload caps the per-frame payload length; 0 disables the cap.
	MaxPayload uint64
}

// DecodeFrame parses one frame from the front of buf, which is not modified.
//
// The result is tri-state:
//   - (frame, n, nil) with n > 0: a frame occupying buf[:n] was decoded;
//   - (Frame{}, 0, nil): buf holds only part of a frame, retry with more bytes;
//   - (Frame{}, 0, err): the stream violates the protocol.
func DecodeFrame(buf []byte, opts DecodeOptions) (Frame, int, error) {
	if len(buf) < 2 {
		return Frame{}, 0, nil
	}
	fin := buf[0]&finBit != 0
	// RSV1-3 are ignored; no extensions are negotiated.
	opcode := buf[0] & opcodeMask
	masked := buf[1]&maskBit != 0
	lengthCode := buf[1] & len7Mask

	if opts.RequireMasked && !masked {
		return Frame{}, 0, api.NewProtocolError("unmasked frame from masked-required peer")
	}

	offset := 2
	var length uint64
	switch lengthCode {
	case len16Code:
		if len(buf) < offset+2 {
			return Frame{}, 0, nil
		}
		length = uint64(binary.BigEndian.Uint16(buf[offset:]))
		offset += 2
	case len64Code:
		if len(buf) < offset+8 {
			return Frame{}, 0, nil
		}
		length = binary.BigEndian.Uint64(buf[offset:])
		offset += 8
		if length>>63 != 0 {
			return Frame{}, 0, api.NewProtocolError("extended payload length has the most significant bit set").
				WithContext("length", length)
		}
	default:
		length = uint64(lengthCode)
	}

	if opts.MaxPayload > 0 && length > opts.MaxPayload {
		return Frame{}, 0, api.NewError(api.ErrCodeTooLarge, "frame payload exceeds limit").
			WithContext("length", length).
			WithContext("limit", opts.MaxPayload)
	}
	if length > uint64(math.MaxInt-MaxFrameHeaderLen) {
		return Frame{}, 0, api.NewError(api.ErrCodeTooLarge, "frame payload exceeds addressable memory").
			WithContext("length", length)
	}

	total := offset + int(length)
	if masked {
		total += maskKeyLen
	}
	if len(buf) < total {
		return Frame{}, 0, nil
	}

	ft, ok := api.FrameTypeOf(opcode)
	if !ok {
		return Frame{}, 0, api.NewDataError("unknown opcode").WithContext("opcode", opcode)
	}

	payload := make([]byte, length)
	if masked {
		var key [4]byte
		copy(key[:], buf[offset:offset+maskKeyLen])
		offset += maskKeyLen
		copy(payload, buf[offset:total])
		NewMaskCursor(key).Apply(payload)
	} else {
		copy(payload, buf[offset:total])
	}

	return Frame{Fin: fin, Type: ft, Payload: payload}, total, nil
}

// HeaderLen returns the encoded header size for a payload of n bytes.
func HeaderLen(n int, masked bool) int {
	size := 2
	switch {
	case n <= maxLen7:
	case n <= maxLen16:
		size += 2
	default:
		size += 8
	}
	if masked {
		size += maskKeyLen
	}
	return size
}

// AppendFrame appends one final frame carrying payload to dst. A non-nil key
// sets the mask bit and masks the copied payload; payload itself is untouched.
// ft must satisfy ft.Valid(); AppendFrame panics otherwise. Conn.Send checks
// this and returns an ErrCodeInvalidArgument error instead.
func AppendFrame(dst []byte, ft api.FrameType, payload []byte, key *[4]byte) []byte {
	b0 := byte(finBit) | ft.Opcode()
	var mb byte
	if key != nil {
		mb = maskBit
	}

	n := len(payload)
	switch {
	case n <= maxLen7:
		dst = append(dst, b0, mb|byte(n))
	case n <= maxLen16:
		dst = append(dst, b0, mb|len16Code)
		dst = binary.BigEndian.AppendUint16(dst, uint16(n))
	default:
		dst = append(dst, b0, mb|len64Code)
		// High 32-bit half first, then low half.
		dst = binary.BigEndian.AppendUint32(dst, uint32(uint64(n)>>32))
		dst = binary.BigEndian.AppendUint32(dst, uint32(uint64(n)))
	}

	if key == nil {
		return append(dst, payload...)
	}
	dst = append(dst, key[:]...)
	start := len(dst)
	dst = append(dst, payload...)
	NewMaskCursor(*key).Apply(dst[start:])
	return dst
}

// EncodeFrame returns a freshly allocated encoding of one final frame. It has
// the same precondition on ft as AppendFrame.
func EncodeFrame(ft api.FrameType, payload []byte, key *[4]byte) []byte {
	buf := make([]byte, 0, HeaderLen(len(payload), key != nil)+len(payload))
	return AppendFrame(buf, ft, payload, key)
}
