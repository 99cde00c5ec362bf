// File: api/transport.go
// Author: momentics <momentics@gmail.com>
//
// Defines the transport abstraction the protocol engine writes to.
// Inbound bytes are pushed into the engine by whoever owns the socket.

package api

// Transport is a fire-and-forget byte sink for one connection.
type Transport interface {
	// Send hands b to the transport. The transport takes ownership of b.
	Send(b []byte) error

	// Close shuts down the underlying connection.
	Close() error
}
