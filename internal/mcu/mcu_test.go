package mcu

import (
	"context"
	"testing"
	"time"

	"github.com/binp-dev/tornado/internal/ipp"
	"github.com/binp-dev/tornado/internal/skifio"
	"github.com/binp-dev/tornado/internal/transport/rpmsgsim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig() Config {
	return Config{
		DacBufferSize:      1024,
		AdcBufferSize:      256,
		SampleReadyTimeout: 50 * time.Millisecond,
		KeepAliveMaxDelay:  50 * time.Millisecond,
		SendTaskTimeout:    time.Second,
	}
}

func newTestSession(t *testing.T) (*Session, *rpmsgsim.Channel, context.CancelFunc) {
	t.Helper()
	dev := skifio.NewSimDevice(time.Millisecond)
	t.Cleanup(func() { _ = dev.Close() })
	mcuCh, hostCh := rpmsgsim.NewPair()
	t.Cleanup(func() { _ = mcuCh.Close(); _ = hostCh.Close() })

	s := NewSession(dev, mcuCh, testConfig(), zap.NewNop(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)
	return s, hostCh, cancel
}

func sendApp(t *testing.T, ch *rpmsgsim.Channel, msg ipp.AppMsg) {
	t.Helper()
	buf := make([]byte, ipp.MaxMsgLen)
	n, err := ipp.EncodeApp(msg, buf)
	require.NoError(t, err)
	require.NoError(t, ch.Send(buf[:n], time.Second))
}

func recvMcu(t *testing.T, ch *rpmsgsim.Channel, timeout time.Duration) ipp.McuMsg {
	t.Helper()
	buf, err := ch.Receive(timeout)
	require.NoError(t, err)
	msg, err := ipp.DecodeMcu(buf, len(buf))
	require.NoError(t, err)
	return msg
}

// recvMcuUntil reads messages off ch until one satisfies match or
// attempts run out; other message types (e.g. interleaved AdcData
// batches) are discarded. The sample loop and send task run freely
// concurrently with the test, so exact message ordering is not fixed.
func recvMcuUntil(t *testing.T, ch *rpmsgsim.Channel, match func(ipp.McuMsg) bool) ipp.McuMsg {
	t.Helper()
	for i := 0; i < 50; i++ {
		msg := recvMcu(t, ch, time.Second)
		if match(msg) {
			return msg
		}
	}
	t.Fatal("no matching message received")
	return nil
}

func TestHandshakeEnablesDoutUpdates(t *testing.T) {
	s, hostCh, cancel := newTestSession(t)
	defer cancel()

	sendApp(t, hostCh, ipp.Connect{})
	time.Sleep(20 * time.Millisecond)

	s.mu.Lock()
	alive := s.state.alive
	s.mu.Unlock()
	assert.True(t, alive)

	sendApp(t, hostCh, ipp.DoutUpdate{Value: 0x05})
	time.Sleep(20 * time.Millisecond)

	s.mu.Lock()
	dout := s.state.dioOut
	s.mu.Unlock()
	assert.Equal(t, byte(0x05), dout)
}

func TestDacCreditPump(t *testing.T) {
	_, hostCh, cancel := newTestSession(t)
	defer cancel()

	sendApp(t, hostCh, ipp.Connect{})

	msg := recvMcuUntil(t, hostCh, func(m ipp.McuMsg) bool {
		_, ok := m.(ipp.DacRequest)
		return ok
	})
	req := msg.(ipp.DacRequest)
	assert.True(t, req.Count > 0)
	assert.Equal(t, uint32(0), req.Count%uint32(ipp.DacMsgMaxPoints))
}

func TestKeepAliveDeath(t *testing.T) {
	s, hostCh, cancel := newTestSession(t)
	defer cancel()

	sendApp(t, hostCh, ipp.Connect{})
	time.Sleep(20 * time.Millisecond)

	s.mu.Lock()
	assert.True(t, s.state.alive)
	s.mu.Unlock()

	time.Sleep(150 * time.Millisecond)

	s.mu.Lock()
	alive := s.state.alive
	s.mu.Unlock()
	assert.False(t, alive)
}

func TestAdcBatching(t *testing.T) {
	_, hostCh, cancel := newTestSession(t)
	defer cancel()

	sendApp(t, hostCh, ipp.Connect{})

	msg := recvMcuUntil(t, hostCh, func(m ipp.McuMsg) bool {
		_, ok := m.(ipp.AdcData)
		return ok
	})
	adc := msg.(ipp.AdcData)
	assert.Len(t, adc.Arrays, ipp.AdcMsgMaxPoints)
}
