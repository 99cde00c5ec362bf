package transport

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubReceiver struct {
	mu       sync.Mutex
	data     []byte
	failed   []error
	rejectAt int // reject once this many bytes arrived; 0 = never
	doneAt   int // report close handshake done at this many bytes; 0 = never
}

func (s *stubReceiver) ReceiveData(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append(s.data, p...)
	if s.rejectAt > 0 && len(s.data) >= s.rejectAt {
		return errors.New("rejected")
	}
	return nil
}

func (s *stubReceiver) Fail(err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed = append(s.failed, err)
	return nil
}

func (s *stubReceiver) CloseHandshakeDone() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doneAt > 0 && len(s.data) >= s.doneAt
}

func (s *stubReceiver) received() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.data)
}

func runPump(ctx context.Context, n *NetConn, rcv Receiver) <-chan error {
	errc := make(chan error, 1)
	go func() {
		errc <- n.Pump(ctx, n, rcv, make([]byte, 16), 0)
	}()
	return errc
}

func waitErr(t *testing.T, errc <-chan error) error {
	t.Helper()
	select {
	case err := <-errc:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("pump did not return")
		return nil
	}
}

func TestPumpDeliversUntilEOF(t *testing.T) {
	a, b := net.Pipe()
	n := NewNetConn(a, Options{})
	defer n.Close()

	rcv := &stubReceiver{}
	errc := runPump(context.Background(), n, rcv)

	_, err := b.Write([]byte("hello, "))
	require.NoError(t, err)
	_, err = b.Write([]byte("world and more than sixteen bytes"))
	require.NoError(t, err)
	require.NoError(t, b.Close())

	assert.NoError(t, waitErr(t, errc))
	assert.Equal(t, "hello, world and more than sixteen bytes", rcv.received())
}

func TestPumpStopsOnCloseHandshake(t *testing.T) {
	a, b := net.Pipe()
	defer b.Close()
	n := NewNetConn(a, Options{})
	defer n.Close()

	rcv := &stubReceiver{doneAt: 3}
	errc := runPump(context.Background(), n, rcv)
	_, err := b.Write([]byte("bye"))
	require.NoError(t, err)

	assert.NoError(t, waitErr(t, errc))
}

func TestPumpReportsRejection(t *testing.T) {
	a, b := net.Pipe()
	defer b.Close()
	n := NewNetConn(a, Options{})
	defer n.Close()

	rcv := &stubReceiver{rejectAt: 1}
	errc := runPump(context.Background(), n, rcv)
	_, err := b.Write([]byte("x"))
	require.NoError(t, err)

	err = waitErr(t, errc)
	require.EqualError(t, err, "rejected")
	rcv.mu.Lock()
	defer rcv.mu.Unlock()
	require.Len(t, rcv.failed, 1)
	assert.Equal(t, err, rcv.failed[0])
}

func TestPumpCancel(t *testing.T) {
	a, b := net.Pipe()
	defer b.Close()
	n := NewNetConn(a, Options{})
	defer n.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errc := runPump(ctx, n, &stubReceiver{})
	cancel()

	assert.ErrorIs(t, waitErr(t, errc), context.Canceled)
}

func TestPumpReadTimeout(t *testing.T) {
	a, b := net.Pipe()
	defer b.Close()
	n := NewNetConn(a, Options{})
	defer n.Close()

	err := n.Pump(context.Background(), n, &stubReceiver{}, make([]byte, 8), 20*time.Millisecond)
	var ne net.Error
	require.ErrorAs(t, err, &ne)
	assert.True(t, ne.Timeout())
}
