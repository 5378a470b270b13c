package rpmsgsim

import (
	"testing"
	"time"

	"github.com/binp-dev/tornado/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairRoundTrip(t *testing.T) {
	a, b := NewPair()
	defer a.Close()
	defer b.Close()

	require.NoError(t, a.Send([]byte{1, 2, 3}, time.Second))
	got, err := b.Receive(time.Second)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got)
}

func TestReceiveTimesOut(t *testing.T) {
	a, b := NewPair()
	defer a.Close()
	defer b.Close()

	_, err := b.Receive(10 * time.Millisecond)
	assert.ErrorIs(t, err, transport.ErrTimedOut)
}

func TestCloseUnblocksReceive(t *testing.T) {
	a, b := NewPair()
	defer a.Close()

	done := make(chan error, 1)
	go func() {
		_, err := b.Receive(time.Second)
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, b.Close())

	select {
	case err := <-done:
		assert.ErrorIs(t, err, transport.ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("Receive did not unblock after Close")
	}
}
