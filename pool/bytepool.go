// File: pool/bytepool.go
// Author: momentics <momentics@gmail.com>

package pool

import "sync/atomic"

// BytePool hands out fixed-size read buffers backed by a SyncPool.
// Buffers of a different capacity are dropped on Put.
type BytePool struct {
	pool *SyncPool[*[]byte]
	size int

	gets   atomic.Int64
	allocs atomic.Int64
}

// NewBytePool creates a pool of size-byte buffers.
func NewBytePool(size int) *BytePool {
	if size <= 0 {
		size = 32 * 1024
	}
	bp := &BytePool{size: size}
	bp.pool = NewSyncPool(func() *[]byte {
		bp.allocs.Add(1)
		b := make([]byte, size)
		return &b
	})
	return bp
}

// Size returns the buffer length handed out by Get.
func (b *BytePool) Size() int {
	return b.size
}

// Get returns a buffer of exactly Size bytes.
func (b *BytePool) Get() *[]byte {
	b.gets.Add(1)
	buf := b.pool.Get()
	*buf = (*buf)[:b.size]
	return buf
}

// Put returns a buffer obtained from Get.
func (b *BytePool) Put(buf *[]byte) {
	if buf == nil || cap(*buf) != b.size {
		return
	}
	b.pool.Put(buf)
}

// Stats reports how many Get calls were served and how many needed a fresh
// allocation.
func (b *BytePool) Stats() (gets, allocs int64) {
	return b.gets.Load(), b.allocs.Load()
}
