package pool_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-wsframe/pool"
)

func TestBytePoolGetReturnsFullLength(t *testing.T) {
	bp := pool.NewBytePool(1024)
	buf := bp.Get()
	require.NotNil(t, buf)
	assert.Len(t, *buf, 1024)

	*buf = (*buf)[:10]
	bp.Put(buf)

	again := bp.Get()
	assert.Len(t, *again, 1024, "Get restores the full length")
}

func TestBytePoolRejectsForeignBuffers(t *testing.T) {
	bp := pool.NewBytePool(64)
	foreign := make([]byte, 32)
	bp.Put(&foreign)
	bp.Put(nil)

	buf := bp.Get()
	assert.Equal(t, 64, cap(*buf))
}

func TestBytePoolStats(t *testing.T) {
	bp := pool.NewBytePool(0)
	assert.Equal(t, 32*1024, bp.Size())
	for i := 0; i < 3; i++ {
		bp.Put(bp.Get())
	}
	gets, allocs := bp.Stats()
	assert.Equal(t, int64(3), gets)
	assert.GreaterOrEqual(t, allocs, int64(1))
}
