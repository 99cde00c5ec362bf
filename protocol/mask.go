// File: protocol/mask.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Incremental XOR masking with a 4-byte key.

package protocol

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

// wordMaskMin is the slice length from which Apply switches to 8-byte words.
const wordMaskMin = 16

// MaskCursor applies a 4-byte XOR key to a byte stream that may arrive in
// pieces. The key phase carries over between Apply calls, so masking a
// payload in several slices gives the same bytes as masking it at once.
type MaskCursor struct {
	key [4]byte
	pos int
}

// NewMaskCursor returns a cursor positioned at key byte 0.
func NewMaskCursor(key [4]byte) *MaskCursor {
	return &MaskCursor{key: key}
}

// Apply XORs b in place and advances the key phase by len(b).
// Masking and unmasking are the same operation.
func (m *MaskCursor) Apply(b []byte) {
	pos := m.pos
	i := 0
	if len(b) >= wordMaskMin {
		var k [8]byte
		for j := range k {
			k[j] = m.key[(pos+j)&3]
		}
		kw := binary.LittleEndian.Uint64(k[:])
		for ; i+8 <= len(b); i += 8 {
			v := binary.LittleEndian.Uint64(b[i:])
			binary.LittleEndian.PutUint64(b[i:], v^kw)
		}
	}
	for ; i < len(b); i++ {
		b[i] ^= m.key[(pos+i)&3]
	}
	m.pos = (pos + len(b)) & 3
}

// Pos returns the index of the key byte applied to the next input byte.
func (m *MaskCursor) Pos() int {
	return m.pos
}

// Reset rewinds the cursor to key byte 0.
func (m *MaskCursor) Reset() {
	m.pos = 0
}

// NewMaskKey draws a fresh masking key from crypto/rand.
func NewMaskKey() ([4]byte, error) {
	var key [4]byte
	if _, err := rand.Read(key[:]); err != nil {
		return key, fmt.Errorf("mask key: %w", err)
	}
	return key, nil
}
