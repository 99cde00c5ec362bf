// Author: momentics <momentics@gmail.com>

// Package transport connects the protocol engine to real sockets.
// NetConn implements api.Transport over net.Conn with a queued writer and
// platform-specific socket tuning.
package transport
