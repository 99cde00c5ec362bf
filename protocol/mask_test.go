package protocol

import (
	"bytes"
	"testing"

	"github.com/gobwas/ws"
	"github.com/stretchr/testify/assert"
)

func TestMaskZeroPayloadYieldsKey(t *testing.T) {
	key := [4]byte{0xA1, 0xB2, 0xC3, 0xD4}
	b := make([]byte, 10)
	NewMaskCursor(key).Apply(b)
	assert.Equal(t, []byte{0xA1, 0xB2, 0xC3, 0xD4, 0xA1, 0xB2, 0xC3, 0xD4, 0xA1, 0xB2}, b)
}

func TestMaskIsInvolution(t *testing.T) {
	key := [4]byte{1, 2, 3, 4}
	orig := []byte("the quick brown fox jumps over the lazy dog")
	b := append([]byte(nil), orig...)

	NewMaskCursor(key).Apply(b)
	assert.NotEqual(t, orig, b)
	NewMaskCursor(key).Apply(b)
	assert.Equal(t, orig, b)
}

func TestMaskIncrementalMatchesOneShot(t *testing.T) {
	key := [4]byte{0x37, 0xFA, 0x21, 0x3D}
	payload := bytes.Repeat([]byte("0123456789abcdef"), 8)

	whole := append([]byte(nil), payload...)
	ws.Cipher(whole, key, 0)

	for split := 0; split <= len(payload); split++ {
		got := append([]byte(nil), payload...)
		mc := NewMaskCursor(key)
		mc.Apply(got[:split])
		assert.Equal(t, split&3, mc.Pos())
		mc.Apply(got[split:])
		assert.Equal(t, whole, got, "split at %d", split)
	}
}

func TestMaskManySmallPieces(t *testing.T) {
	key := [4]byte{9, 8, 7, 6}
	payload := bytes.Repeat([]byte{0x55}, 257)

	want := append([]byte(nil), payload...)
	NewMaskCursor(key).Apply(want)

	got := append([]byte(nil), payload...)
	mc := NewMaskCursor(key)
	for i := 0; i < len(got); i += 3 {
		end := min(i+3, len(got))
		mc.Apply(got[i:end])
	}
	assert.Equal(t, want, got)
}

func TestMaskCursorReset(t *testing.T) {
	mc := NewMaskCursor([4]byte{1, 2, 3, 4})
	mc.Apply(make([]byte, 3))
	assert.Equal(t, 3, mc.Pos())
	mc.Reset()
	assert.Equal(t, 0, mc.Pos())
}

func TestNewMaskKey(t *testing.T) {
	seen := map[[4]byte]bool{}
	for i := 0; i < 8; i++ {
		k, err := NewMaskKey()
		assert.NoError(t, err)
		seen[k] = true
	}
	assert.Greater(t, len(seen), 1)
}
