// Package pool
// Author: momentics <momentics@gmail.com>
//
// Reusable memory for the I/O drivers: fixed-size read buffers shared by
// all connections of a server or client. See bytepool.go and objpool.go.
package pool
