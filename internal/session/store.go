// File: internal/session/store.go
// Package session
// Author: momentics <momentics@gmail.com>
//
// Sharded, thread-safe session store for high concurrency.

package session

import (
	"hash/fnv"
	"strconv"
	"sync"
	"sync/atomic"
)

// Store implements sharded storage for sessions.
type Store[V any] struct {
	shards []*shard[V]
	mask   uint32
	count  atomic.Int64
	nextID atomic.Uint64
}

type shard[V any] struct {
	mu       sync.RWMutex
	sessions map[string]*Session[V]
}

// NewStore constructs a sharded store with shardCount shards.
func NewStore[V any](shardCount int) *Store[V] {
	if shardCount <= 0 {
		shardCount = 16
	}
	// find power-of-two shards for bitmasking
	m := nextPowerOfTwo(uint32(shardCount))
	shards := make([]*shard[V], m)
	for i := range shards {
		shards[i] = &shard[V]{sessions: make(map[string]*Session[V])}
	}
	return &Store[V]{shards: shards, mask: m - 1}
}

// NewID returns a process-unique session identifier.
func (m *Store[V]) NewID() string {
	return strconv.FormatUint(m.nextID.Add(1), 36)
}

// shard picks the correct shard for a given id.
func (m *Store[V]) shard(id string) *shard[V] {
	h := fnv32(id)
	return m.shards[h&m.mask]
}

// Add stores s. It reports false if the ID is already taken.
func (m *Store[V]) Add(s *Session[V]) bool {
	sh := m.shard(s.id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, ok := sh.sessions[s.id]; ok {
		return false
	}
	sh.sessions[s.id] = s
	m.count.Add(1)
	return true
}

// Get fetches a session if present.
func (m *Store[V]) Get(id string) (*Session[V], bool) {
	sh := m.shard(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	s, ok := sh.sessions[id]
	return s, ok
}

// Delete cancels and removes the session.
func (m *Store[V]) Delete(id string) {
	sh := m.shard(id)
	sh.mu.Lock()
	s, ok := sh.sessions[id]
	if ok {
		delete(sh.sessions, id)
		m.count.Add(-1)
	}
	sh.mu.Unlock()
	if ok {
		s.Cancel()
	}
}

// Range applies fn to a snapshot of all sessions. fn runs without any
// shard lock held, so it may call Delete.
func (m *Store[V]) Range(fn func(*Session[V])) {
	var snapshot []*Session[V]
	for _, sh := range m.shards {
		sh.mu.RLock()
		for _, s := range sh.sessions {
			snapshot = append(snapshot, s)
		}
		sh.mu.RUnlock()
	}
	for _, s := range snapshot {
		fn(s)
	}
}

// Len returns the number of stored sessions.
func (m *Store[V]) Len() int {
	return int(m.count.Load())
}

// fnv32 hashes a string to uint32.
func fnv32(key string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(key))
	return h.Sum32()
}

// nextPowerOfTwo returns the next power-of-two >= v.
func nextPowerOfTwo(v uint32) uint32 {
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v++
	return v
}
