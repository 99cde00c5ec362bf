// Package session
// Author: momentics <momentics@gmail.com>
//
// Session tracking for live connections.
// Each Session maps to one accepted or dialled connection and carries a
// cancellable context used to interrupt its read loop on shutdown.
// Sessions are kept in a sharded store keyed by session ID.

package session
