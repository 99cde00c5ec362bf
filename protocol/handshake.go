// File: protocol/handshake.go
// Package protocol implements the RFC 6455 opening handshake.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The handshake is a collaborator of Conn: it only produces the bytes that
// RunServer / RunClient put on the wire and validates the peer's side.

package protocol

import (
	"bufio"
	"bytes"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// Constants used for handshake processing.
const (
	WebSocketGUID            = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"
	HeaderConnection         = "Connection"
	HeaderUpgrade            = "Upgrade"
	HeaderSecWebSocketKey    = "Sec-WebSocket-Key"
	HeaderSecWebSocketVer    = "Sec-WebSocket-Version"
	HeaderSecWebSocketAccept = "Sec-WebSocket-Accept"
	RequiredWebSocketVersion = "13"
	MaxHandshakeHeadersSize  = 8192
)

// Errors for handshake validation.
var (
	ErrInvalidUpgradeHeaders = fmt.Errorf("invalid WebSocket upgrade headers")
	ErrMissingWebSocketKey   = fmt.Errorf("missing Sec-WebSocket-Key header")
	ErrBadWebSocketVersion   = fmt.Errorf("unsupported WebSocket version; only '13' is supported")
	ErrHeadersTooLarge       = fmt.Errorf("handshake headers too large")
	ErrBadAccept             = fmt.Errorf("Sec-WebSocket-Accept mismatch")
)

// ComputeAcceptKey derives Sec-WebSocket-Accept from the client key.
func ComputeAcceptKey(clientKey string) string {
	sum := sha1.Sum([]byte(clientKey + WebSocketGUID))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// AcceptHandshake reads and validates an HTTP/1.1 Upgrade request from br
// and returns it with the 101 response bytes to pass to Conn.RunServer.
// Bytes after the request stay buffered in br.
func AcceptHandshake(br *bufio.Reader) (*http.Request, []byte, error) {
	req, err := http.ReadRequest(br)
	if err != nil {
		return nil, nil, fmt.Errorf("handshake read request: %w", err)
	}

	total := 0
	for k, vs := range req.Header {
		total += len(k)
		for _, v := range vs {
			total += len(v)
		}
		if total > MaxHandshakeHeadersSize {
			return nil, nil, ErrHeadersTooLarge
		}
	}

	if req.Method != http.MethodGet ||
		!httpguts.HeaderValuesContainsToken(req.Header[HeaderConnection], "upgrade") ||
		!httpguts.HeaderValuesContainsToken(req.Header[HeaderUpgrade], "websocket") {
		return nil, nil, ErrInvalidUpgradeHeaders
	}
	if req.Header.Get(HeaderSecWebSocketVer) != RequiredWebSocketVersion {
		return nil, nil, ErrBadWebSocketVersion
	}
	key := strings.TrimSpace(req.Header.Get(HeaderSecWebSocketKey))
	if key == "" {
		return nil, nil, ErrMissingWebSocketKey
	}

	hdr := make(http.Header)
	hdr.Set(HeaderUpgrade, "websocket")
	hdr.Set(HeaderConnection, "Upgrade")
	hdr.Set(HeaderSecWebSocketAccept, ComputeAcceptKey(key))

	var resp bytes.Buffer
	if err := WriteHandshakeResponse(&resp, hdr); err != nil {
		return nil, nil, err
	}
	return req, resp.Bytes(), nil
}

// WriteHandshakeResponse writes the 101 Switching Protocols status line and hdr.
func WriteHandshakeResponse(w io.Writer, hdr http.Header) error {
	if _, err := io.WriteString(w, "HTTP/1.1 101 Switching Protocols\r\n"); err != nil {
		return err
	}
	if err := hdr.Write(w); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\r\n")
	return err
}

// ClientHandshake is the client half of one opening handshake.
type ClientHandshake struct {
	Request []byte
	key     string
	req     *http.Request
}

// NewClientHandshake builds the GET Upgrade request for u. Extra headers are
// copied onto the request.
func NewClientHandshake(u *url.URL, extra http.Header) (ClientHandshake, error) {
	var nonce [16]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return ClientHandshake{}, fmt.Errorf("handshake nonce: %w", err)
	}
	key := base64.StdEncoding.EncodeToString(nonce[:])

	target := *u
	switch target.Scheme {
	case "ws", "":
		target.Scheme = "http"
	case "wss":
		target.Scheme = "https"
	}
	req, err := http.NewRequest(http.MethodGet, target.String(), nil)
	if err != nil {
		return ClientHandshake{}, fmt.Errorf("handshake request: %w", err)
	}
	for k, vs := range extra {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set(HeaderUpgrade, "websocket")
	req.Header.Set(HeaderConnection, "Upgrade")
	req.Header.Set(HeaderSecWebSocketKey, key)
	req.Header.Set(HeaderSecWebSocketVer, RequiredWebSocketVersion)

	var buf bytes.Buffer
	if err := req.Write(&buf); err != nil {
		return ClientHandshake{}, fmt.Errorf("handshake write request: %w", err)
	}
	return ClientHandshake{Request: buf.Bytes(), key: key, req: req}, nil
}

// Verify reads the server's response from br and checks the accept key.
// Bytes after the response headers stay buffered in br.
func (h ClientHandshake) Verify(br *bufio.Reader) error {
	resp, err := http.ReadResponse(br, h.req)
	if err != nil {
		return fmt.Errorf("handshake read response: %w", err)
	}
	if resp.StatusCode != http.StatusSwitchingProtocols {
		return fmt.Errorf("handshake failed: status %d", resp.StatusCode)
	}
	if !httpguts.HeaderValuesContainsToken(resp.Header[HeaderUpgrade], "websocket") ||
		!httpguts.HeaderValuesContainsToken(resp.Header[HeaderConnection], "upgrade") {
		return ErrInvalidUpgradeHeaders
	}
	if resp.Header.Get(HeaderSecWebSocketAccept) != ComputeAcceptKey(h.key) {
		return ErrBadAccept
	}
	return nil
}
