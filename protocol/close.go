// Package protocol
// Author: momentics <momentics@gmail.com>
//
// Close frame payload: 2-byte big-endian status code plus UTF-8 reason.

package protocol

import (
	"encoding/binary"
	"unicode/utf8"

	"github.com/momentics/hioload-wsframe/api"
)

// Close status codes.
const (
	CloseNormalClosure      uint16 = 1000
	CloseGoingAway          uint16 = 1001
	CloseProtocolError      uint16 = 1002
	CloseUnsupportedData    uint16 = 1003
	CloseNoStatusRcvd       uint16 = 1005
	CloseAbnormalClosure    uint16 = 1006
	CloseInvalidPayloadData uint16 = 1007
	ClosePolicyViolation    uint16 = 1008
	CloseMessageTooBig      uint16 = 1009
	CloseMissingExtension   uint16 = 1010
	CloseInternalServerErr  uint16 = 1011
)

// EncodeClosePayload builds a Close payload. Code 0 yields an empty payload.
// The reason is truncated so the payload fits in a control frame.
func EncodeClosePayload(code uint16, reason string) []byte {
	if code == 0 {
		return nil
	}
	if len(reason) > MaxControlPayloadLen-2 {
		reason = reason[:MaxControlPayloadLen-2]
		for len(reason) > 0 && !utf8.ValidString(reason) {
			reason = reason[:len(reason)-1]
		}
	}
	p := make([]byte, 2, 2+len(reason))
	binary.BigEndian.PutUint16(p, code)
	return append(p, reason...)
}

// ParseClosePayload splits a Close payload. An empty payload reports
// CloseNoStatusRcvd.
func ParseClosePayload(p []byte) (uint16, string, error) {
	switch len(p) {
	case 0:
		return CloseNoStatusRcvd, "", nil
	case 1:
		return 0, "", api.NewProtocolError("close payload of one byte")
	}
	code := binary.BigEndian.Uint16(p)
	if !validCloseCode(code) {
		return 0, "", api.NewProtocolError("invalid close code").WithContext("code", code)
	}
	reason := p[2:]
	if !utf8.Valid(reason) {
		return 0, "", api.NewDataError("close reason is not valid UTF-8")
	}
	return code, string(reason), nil
}

// CloseCodeFor maps an engine error to the status sent in the Close frame.
func CloseCodeFor(err error) uint16 {
	switch api.CodeOf(err) {
	case api.ErrCodeOK:
		return CloseNormalClosure
	case api.ErrCodeProtocol:
		return CloseProtocolError
	case api.ErrCodeData:
		return CloseInvalidPayloadData
	case api.ErrCodeTooLarge:
		return CloseMessageTooBig
	default:
		return CloseInternalServerErr
	}
}

func validCloseCode(code uint16) bool {
	switch {
	case code >= 3000 && code <= 4999:
		return true
	case code >= 1000 && code <= 1011:
		return code != 1004 && code != CloseNoStatusRcvd && code != CloseAbnormalClosure
	}
	return false
}
