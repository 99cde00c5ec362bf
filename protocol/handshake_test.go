package protocol

import (
	"bufio"
	"bytes"
	"io"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRequest = "GET /chat HTTP/1.1\r\n" +
	"Host: server.example.com\r\n" +
	"Upgrade: websocket\r\n" +
	"Connection: keep-alive, Upgrade\r\n" +
	"Sec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\n" +
	"Sec-WebSocket-Version: 13\r\n" +
	"\r\n"

func TestComputeAcceptKey(t *testing.T) {
	assert.Equal(t, "s3pPLMBiTxaQ9kYGzzhZRbK+xOo=", ComputeAcceptKey("dGhlIHNhbXBsZSBub25jZQ=="))
}

func TestAcceptHandshake(t *testing.T) {
	br := bufio.NewReader(strings.NewReader(sampleRequest + "\x81\x80"))
	req, resp, err := AcceptHandshake(br)
	require.NoError(t, err)
	assert.Equal(t, "/chat", req.URL.Path)

	s := string(resp)
	assert.True(t, strings.HasPrefix(s, "HTTP/1.1 101 Switching Protocols\r\n"))
	assert.Contains(t, s, "s3pPLMBiTxaQ9kYGzzhZRbK+xOo=")
	assert.True(t, strings.HasSuffix(s, "\r\n\r\n"))

	rest, err := io.ReadAll(br)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x81, 0x80}, rest, "frame bytes after the request stay buffered")
}

func TestAcceptHandshakeRejects(t *testing.T) {
	cases := []struct {
		name string
		req  string
		want error
	}{
		{"post", strings.Replace(sampleRequest, "GET", "POST", 1), ErrInvalidUpgradeHeaders},
		{"no upgrade", strings.Replace(sampleRequest, "Upgrade: websocket\r\n", "", 1), ErrInvalidUpgradeHeaders},
		{"no connection token", strings.Replace(sampleRequest, "keep-alive, Upgrade", "keep-alive", 1), ErrInvalidUpgradeHeaders},
		{"old version", strings.Replace(sampleRequest, "Version: 13", "Version: 8", 1), ErrBadWebSocketVersion},
		{"no key", strings.Replace(sampleRequest, "Sec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\n", "", 1), ErrMissingWebSocketKey},
		{"huge headers", strings.Replace(sampleRequest, "\r\n\r\n", "\r\nX-Pad: "+strings.Repeat("a", MaxHandshakeHeadersSize)+"\r\n\r\n", 1), ErrHeadersTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := AcceptHandshake(bufio.NewReader(strings.NewReader(tc.req)))
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestAcceptHandshakeMalformed(t *testing.T) {
	_, _, err := AcceptHandshake(bufio.NewReader(strings.NewReader("nonsense\r\n\r\n")))
	assert.Error(t, err)
}

func TestClientHandshakeRoundTrip(t *testing.T) {
	u, err := url.Parse("ws://example.com:9001/echo?room=1")
	require.NoError(t, err)

	ch, err := NewClientHandshake(u, map[string][]string{"Origin": {"http://example.com"}})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(ch.Request, []byte("GET /echo?room=1 HTTP/1.1\r\n")))
	assert.Contains(t, string(ch.Request), "Origin: http://example.com")

	req, resp, err := AcceptHandshake(bufio.NewReader(bytes.NewReader(ch.Request)))
	require.NoError(t, err)
	assert.Equal(t, "example.com:9001", req.Host)

	br := bufio.NewReader(io.MultiReader(bytes.NewReader(resp), strings.NewReader("tail")))
	require.NoError(t, ch.Verify(br))
	rest, err := io.ReadAll(br)
	require.NoError(t, err)
	assert.Equal(t, "tail", string(rest))
}

func TestClientHandshakeVerifyRejects(t *testing.T) {
	u, _ := url.Parse("ws://example.com/")
	ch, err := NewClientHandshake(u, nil)
	require.NoError(t, err)

	badAccept := "HTTP/1.1 101 Switching Protocols\r\n" +
		"Upgrade: websocket\r\nConnection: Upgrade\r\n" +
		"Sec-WebSocket-Accept: bm9wZQ==\r\n\r\n"
	assert.ErrorIs(t, ch.Verify(bufio.NewReader(strings.NewReader(badAccept))), ErrBadAccept)

	noUpgrade := "HTTP/1.1 101 Switching Protocols\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Accept: " + ComputeAcceptKey("x") + "\r\n\r\n"
	assert.ErrorIs(t, ch.Verify(bufio.NewReader(strings.NewReader(noUpgrade))), ErrInvalidUpgradeHeaders)

	refused := "HTTP/1.1 403 Forbidden\r\nContent-Length: 0\r\n\r\n"
	err = ch.Verify(bufio.NewReader(strings.NewReader(refused)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}
