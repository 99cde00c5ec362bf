package server_test

import (
	"bufio"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-wsframe/protocol"
)

func mustClientHandshake(t *testing.T, raw string) protocol.ClientHandshake {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	ch, err := protocol.NewClientHandshake(u, nil)
	require.NoError(t, err)
	return ch
}

// readFrame reads exactly one server frame from br.
func readFrame(t *testing.T, br *bufio.Reader) protocol.Frame {
	t.Helper()
	var buf []byte
	for {
		f, n, err := protocol.DecodeFrame(buf, protocol.DecodeOptions{})
		require.NoError(t, err)
		if n > 0 {
			return f
		}
		b, err := br.ReadByte()
		require.NoError(t, err)
		buf = append(buf, b)
	}
}
