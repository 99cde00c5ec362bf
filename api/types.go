// File: api/types.go
// Author: momentics <momentics@gmail.com>
//
// Shared API-level type declarations and constants.

package api

// ConnectionPhase enumerates the lifecycle of a WebSocket connection.
// Phases only ever move forward.
type ConnectionPhase int

const (
	PhaseHandshake ConnectionPhase = iota
	PhaseConnected
	PhaseClosing
	PhaseClosed
)

func (p ConnectionPhase) String() string {
	switch p {
	case PhaseHandshake:
		return "handshake"
	case PhaseConnected:
		return "connected"
	case PhaseClosing:
		return "closing"
	case PhaseClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Role selects the masking direction of a connection.
type Role int

const (
	RoleServer Role = iota
	RoleClient
)

func (r Role) String() string {
	if r == RoleClient {
		return "client"
	}
	return "server"
}

// ConnStats is a snapshot of per-connection counters.
type ConnStats struct {
	FramesReceived   int64
	FramesSent       int64
	BytesReceived    int64
	BytesSent        int64
	MessagesReceived int64
}
