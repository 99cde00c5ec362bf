// Package protocol
// Author: momentics <momentics@gmail.com>
//
// Implements the WebSocket wire protocol (RFC 6455 framing) for hioload-wsframe.
//
// The engine is push-driven: a transport hands raw, arbitrarily split bytes to
// Conn.ReceiveData and gets framed bytes back through api.Transport.Send. No
// call blocks on I/O.
//
// Includes:
//   - Incremental 4-byte XOR masking (MaskCursor)
//   - Buffer-prefix frame decoding with a tri-state result, and frame encoding
//   - Continuation reassembly with interleaved control frames
//   - Handshake / Connected / Closing / Closed lifecycle gating of sends
//   - The RFC 6455 opening handshake and Close payload helpers
package protocol
