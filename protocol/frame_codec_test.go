package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/gobwas/ws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-wsframe/api"
)

var testKey = [4]byte{0x12, 0x34, 0x56, 0x78}

// rawFrame encodes a frame with an arbitrary FIN bit and opcode.
func rawFrame(fin bool, opcode byte, payload []byte, key *[4]byte) []byte {
	b0 := opcode
	if fin {
		b0 |= finBit
	}
	var mb byte
	if key != nil {
		mb = maskBit
	}
	out := []byte{b0}
	n := len(payload)
	switch {
	case n <= maxLen7:
		out = append(out, mb|byte(n))
	case n <= maxLen16:
		out = append(out, mb|len16Code)
		out = binary.BigEndian.AppendUint16(out, uint16(n))
	default:
		out = append(out, mb|len64Code)
		out = binary.BigEndian.AppendUint64(out, uint64(n))
	}
	if key == nil {
		return append(out, payload...)
	}
	out = append(out, key[:]...)
	start := len(out)
	out = append(out, payload...)
	NewMaskCursor(*key).Apply(out[start:])
	return out
}

func patterned(n int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = byte(i * 7)
	}
	return p
}

func TestFrameRoundTrip(t *testing.T) {
	sizes := []int{0, 1, 125, 126, 65535, 65536, 200000}
	types := []api.FrameType{api.FrameText, api.FrameBinary, api.FrameContinuation}
	for _, size := range sizes {
		for _, ft := range types {
			for _, masked := range []bool{false, true} {
				name := fmt.Sprintf("%s/%d/masked=%v", ft, size, masked)
				t.Run(name, func(t *testing.T) {
					payload := patterned(size)
					var key *[4]byte
					if masked {
						key = &testKey
					}
					enc := EncodeFrame(ft, payload, key)
					assert.Len(t, enc, HeaderLen(size, masked)+size)

					f, n, err := DecodeFrame(enc, DecodeOptions{RequireMasked: masked})
					require.NoError(t, err)
					assert.Equal(t, len(enc), n)
					assert.True(t, f.Fin)
					assert.Equal(t, ft, f.Type)
					assert.Equal(t, payload, f.Payload)
				})
			}
		}
	}
}

func TestControlFrameRoundTrip(t *testing.T) {
	for _, ft := range []api.FrameType{api.FrameClose, api.FramePing, api.FramePong} {
		enc := EncodeFrame(ft, []byte("ctl"), &testKey)
		f, n, err := DecodeFrame(enc, DecodeOptions{RequireMasked: true})
		require.NoError(t, err)
		assert.Equal(t, len(enc), n)
		assert.Equal(t, ft, f.Type)
		assert.Equal(t, "ctl", string(f.Payload))
	}
}

func TestEncodeLengthCodes(t *testing.T) {
	cases := []struct {
		size   int
		code   byte
		header int
	}{
		{0, 0, 2},
		{125, 125, 2},
		{126, len16Code, 4},
		{65535, len16Code, 4},
		{65536, len64Code, 10},
	}
	for _, tc := range cases {
		enc := EncodeFrame(api.FrameBinary, make([]byte, tc.size), nil)
		assert.Equal(t, byte(0x82), enc[0], "size %d", tc.size)
		assert.Equal(t, tc.code, enc[1]&len7Mask, "size %d", tc.size)
		assert.Equal(t, tc.header, len(enc)-tc.size, "size %d", tc.size)
	}

	enc := EncodeFrame(api.FrameBinary, make([]byte, 65536), nil)
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 1, 0, 0}, enc[2:10])
}

func TestEncodeMaskedLeavesInputAlone(t *testing.T) {
	payload := []byte("Hello")
	enc := EncodeFrame(api.FrameText, payload, &testKey)
	assert.Equal(t, "Hello", string(payload))
	assert.Equal(t, byte(0x80|5), enc[1])
	assert.Equal(t, testKey[:], enc[2:6])
	assert.NotEqual(t, payload, enc[6:])
}

func TestDecodeIncompleteAtEveryPrefix(t *testing.T) {
	for _, size := range []int{5, 300, 70000} {
		enc := EncodeFrame(api.FrameText, patterned(size), &testKey)
		for i := 0; i < len(enc); i++ {
			f, n, err := DecodeFrame(enc[:i], DecodeOptions{RequireMasked: true})
			if !assert.NoError(t, err, "size %d prefix %d", size, i) {
				return
			}
			if !assert.Zero(t, n, "size %d prefix %d", size, i) {
				return
			}
			assert.Nil(t, f.Payload)
		}
	}
}

func TestDecodeLeavesTrailingBytes(t *testing.T) {
	first := EncodeFrame(api.FrameText, []byte("one"), nil)
	second := EncodeFrame(api.FrameText, []byte("two"), nil)
	buf := append(append([]byte(nil), first...), second...)
	snapshot := append([]byte(nil), buf...)

	f, n, err := DecodeFrame(buf, DecodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, len(first), n)
	assert.Equal(t, "one", string(f.Payload))
	assert.Equal(t, snapshot, buf, "input must not be modified")

	f, n, err = DecodeFrame(buf[n:], DecodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, len(second), n)
	assert.Equal(t, "two", string(f.Payload))
}

func TestDecodeMaskedInputNotModified(t *testing.T) {
	enc := EncodeFrame(api.FrameText, []byte("secret"), &testKey)
	snapshot := append([]byte(nil), enc...)
	_, _, err := DecodeFrame(enc, DecodeOptions{RequireMasked: true})
	require.NoError(t, err)
	assert.Equal(t, snapshot, enc)
}

func TestDecodeRejectsUnmaskedBeforePayload(t *testing.T) {
	_, n, err := DecodeFrame([]byte{0x81, 0x05}, DecodeOptions{RequireMasked: true})
	require.Error(t, err)
	assert.Zero(t, n)
	assert.True(t, api.IsProtocolError(err))
}

func TestDecodeAcceptsMaskedWhenNotRequired(t *testing.T) {
	enc := EncodeFrame(api.FrameText, []byte("hi"), &testKey)
	f, _, err := DecodeFrame(enc, DecodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, "hi", string(f.Payload))
}

func TestDecodeUnknownOpcode(t *testing.T) {
	for _, op := range []byte{0x3, 0x7, 0xB, 0xF} {
		_, _, err := DecodeFrame([]byte{0x80 | op, 0x00}, DecodeOptions{})
		require.Error(t, err, "opcode %#x", op)
		assert.True(t, api.IsDataError(err))
	}

	// The opcode is only judged once the whole frame is buffered.
	f, n, err := DecodeFrame([]byte{0x83, 0x05, 'a'}, DecodeOptions{})
	assert.NoError(t, err)
	assert.Zero(t, n)
	assert.Nil(t, f.Payload)
}

func TestDecodeLengthMSBSet(t *testing.T) {
	buf := []byte{0x82, len64Code, 0x80, 0, 0, 0, 0, 0, 0, 1}
	_, _, err := DecodeFrame(buf, DecodeOptions{})
	require.Error(t, err)
	assert.True(t, api.IsProtocolError(err))
}

func TestDecodeMaxPayload(t *testing.T) {
	hdr := []byte{0x82, len16Code, 0x03, 0xE8} // 1000 bytes announced
	_, _, err := DecodeFrame(hdr, DecodeOptions{MaxPayload: 100})
	require.Error(t, err)
	assert.Equal(t, api.ErrCodeTooLarge, api.CodeOf(err))

	enc := EncodeFrame(api.FrameBinary, make([]byte, 100), nil)
	_, n, err := DecodeFrame(enc, DecodeOptions{MaxPayload: 100})
	require.NoError(t, err)
	assert.Equal(t, len(enc), n)
}

func TestDecodeFinBit(t *testing.T) {
	f, _, err := DecodeFrame(rawFrame(false, api.OpcodeText, []byte("Hel"), nil), DecodeOptions{})
	require.NoError(t, err)
	assert.False(t, f.Fin)
	assert.Equal(t, api.FrameText, f.Type)
}

func TestDecodeIgnoresReservedBits(t *testing.T) {
	enc := EncodeFrame(api.FrameText, []byte("x"), nil)
	enc[0] |= 0x70
	f, _, err := DecodeFrame(enc, DecodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, api.FrameText, f.Type)
}

func TestEncodeReadableByGobwas(t *testing.T) {
	payload := patterned(70000)
	enc := EncodeFrame(api.FrameBinary, payload, &testKey)

	f, err := ws.ReadFrame(bytes.NewReader(enc))
	require.NoError(t, err)
	assert.True(t, f.Header.Fin)
	assert.Equal(t, ws.OpBinary, f.Header.OpCode)
	assert.True(t, f.Header.Masked)
	assert.Equal(t, testKey, f.Header.Mask)
	assert.EqualValues(t, len(payload), f.Header.Length)

	ws.Cipher(f.Payload, f.Header.Mask, 0)
	assert.Equal(t, payload, f.Payload)
}

func TestDecodeGobwasFrames(t *testing.T) {
	cases := []struct {
		op   ws.OpCode
		ft   api.FrameType
		size int
	}{
		{ws.OpText, api.FrameText, 12},
		{ws.OpBinary, api.FrameBinary, 300},
		{ws.OpBinary, api.FrameBinary, 66000},
		{ws.OpPing, api.FramePing, 4},
		{ws.OpClose, api.FrameClose, 2},
	}
	for _, tc := range cases {
		payload := patterned(tc.size)
		var buf bytes.Buffer
		frame := ws.MaskFrameWith(ws.NewFrame(tc.op, true, payload), testKey)
		require.NoError(t, ws.WriteFrame(&buf, frame))

		f, n, err := DecodeFrame(buf.Bytes(), DecodeOptions{RequireMasked: true})
		require.NoError(t, err)
		assert.Equal(t, buf.Len(), n)
		assert.Equal(t, tc.ft, f.Type)
		assert.Equal(t, payload, f.Payload)
	}
}

func TestAppendFrameReusesDst(t *testing.T) {
	dst := make([]byte, 0, 64)
	dst = AppendFrame(dst, api.FrameText, []byte("a"), nil)
	dst = AppendFrame(dst, api.FramePing, nil, nil)
	assert.Equal(t, []byte{0x81, 0x01, 'a', 0x89, 0x00}, dst)
}

func TestAppendFrameInvalidTypePanics(t *testing.T) {
	assert.PanicsWithValue(t, "api: invalid frame type", func() {
		AppendFrame(nil, api.FrameType(42), []byte("x"), nil)
	})
	assert.Panics(t, func() { EncodeFrame(api.FrameType(7), nil, &testKey) })
}
