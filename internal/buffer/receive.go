// File: internal/buffer/receive.go
// Package buffer holds per-connection byte buffers.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// ReceiveBuffer keeps not-yet-consumed network input. Bytes are consumed
// strictly from the front; Consume is O(1) and the dead prefix is reclaimed
// by move-to-front compaction on the next Append that would otherwise grow.

package buffer

// minCompact is the dead-prefix size below which Append prefers growing
// the slice over shifting live bytes.
const minCompact = 4 * 1024

// ReceiveBuffer is an owned, growable byte sequence with cheap prefix removal.
// It is not safe for concurrent use.
type ReceiveBuffer struct {
	buf []byte
	off int
}

// NewReceiveBuffer preallocates capacity bytes.
func NewReceiveBuffer(capacity int) *ReceiveBuffer {
	return &ReceiveBuffer{buf: make([]byte, 0, capacity)}
}

// Len returns the number of unconsumed bytes.
func (r *ReceiveBuffer) Len() int {
	return len(r.buf) - r.off
}

// Bytes returns a view of the unconsumed bytes. The view is valid until the
// next Append or Reset.
func (r *ReceiveBuffer) Bytes() []byte {
	return r.buf[r.off:]
}

// Append copies p to the back of the buffer.
func (r *ReceiveBuffer) Append(p []byte) {
	if len(p) == 0 {
		return
	}
	if r.off > 0 && len(r.buf)+len(p) > cap(r.buf) && (r.off >= minCompact || r.off >= r.Len()) {
		r.compact()
	}
	r.buf = append(r.buf, p...)
}

// Consume drops n bytes from the front.
func (r *ReceiveBuffer) Consume(n int) {
	if n <= 0 {
		return
	}
	if n > r.Len() {
		panic("buffer: consume past end")
	}
	r.off += n
	if r.off == len(r.buf) {
		r.buf = r.buf[:0]
		r.off = 0
	}
}

// Reset discards all buffered bytes and keeps the allocation.
func (r *ReceiveBuffer) Reset() {
	r.buf = r.buf[:0]
	r.off = 0
}

func (r *ReceiveBuffer) compact() {
	n := copy(r.buf, r.buf[r.off:])
	r.buf = r.buf[:n]
	r.off = 0
}
