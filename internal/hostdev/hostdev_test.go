package hostdev

import (
	"testing"
	"time"

	"github.com/binp-dev/tornado/internal/ipp"
	"github.com/binp-dev/tornado/internal/transport/rpmsgsim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig() Config {
	return Config{KeepAlivePeriod: 20 * time.Millisecond}
}

func newTestSession(t *testing.T) (*Session, *rpmsgsim.Channel) {
	t.Helper()
	hostCh, mcuCh := rpmsgsim.NewPair()
	t.Cleanup(func() { _ = hostCh.Close(); _ = mcuCh.Close() })

	s := NewSession(hostCh, testConfig(), zap.NewNop())
	s.Start()
	t.Cleanup(s.Stop)
	return s, mcuCh
}

func sendMcu(t *testing.T, ch *rpmsgsim.Channel, msg ipp.McuMsg) {
	t.Helper()
	buf := make([]byte, ipp.MaxMsgLen)
	n, err := ipp.EncodeMcu(msg, buf)
	require.NoError(t, err)
	require.NoError(t, ch.Send(buf[:n], time.Second))
}

func recvAppUntil(t *testing.T, ch *rpmsgsim.Channel, match func(ipp.AppMsg) bool) ipp.AppMsg {
	t.Helper()
	for i := 0; i < 50; i++ {
		buf, err := ch.Receive(time.Second)
		require.NoError(t, err)
		msg, err := ipp.DecodeApp(buf, len(buf))
		require.NoError(t, err)
		if match(msg) {
			return msg
		}
	}
	t.Fatal("no matching message received")
	return nil
}

func TestStartSendsConnect(t *testing.T) {
	_, mcuCh := newTestSession(t)

	buf, err := mcuCh.Receive(time.Second)
	require.NoError(t, err)
	msg, err := ipp.DecodeApp(buf, len(buf))
	require.NoError(t, err)
	assert.IsType(t, ipp.Connect{}, msg)
}

func TestDoutWriteIsFlushed(t *testing.T) {
	s, mcuCh := newTestSession(t)
	recvAppUntil(t, mcuCh, func(m ipp.AppMsg) bool { _, ok := m.(ipp.Connect); return ok })

	s.WriteDout(0x09)

	msg := recvAppUntil(t, mcuCh, func(m ipp.AppMsg) bool { _, ok := m.(ipp.DoutUpdate); return ok })
	assert.Equal(t, byte(0x09), msg.(ipp.DoutUpdate).Value)
}

func TestDinUpdateAndCallback(t *testing.T) {
	s, mcuCh := newTestSession(t)
	recvAppUntil(t, mcuCh, func(m ipp.AppMsg) bool { _, ok := m.(ipp.Connect); return ok })

	notified := make(chan struct{}, 1)
	s.SetDinCallback(func() { notified <- struct{}{} })

	sendMcu(t, mcuCh, ipp.DinUpdate{Value: 0x0a})

	select {
	case <-notified:
	case <-time.After(time.Second):
		t.Fatal("din callback was not invoked")
	}
	assert.Equal(t, byte(0x0a), s.ReadDin())
}

func TestDacCreditFlow(t *testing.T) {
	s, mcuCh := newTestSession(t)
	recvAppUntil(t, mcuCh, func(m ipp.AppMsg) bool { _, ok := m.(ipp.Connect); return ok })

	n := ipp.DacMsgMaxPoints
	sendMcu(t, mcuCh, ipp.DacRequest{Count: uint32(n)})

	volts := make([]float64, n)
	for i := range volts {
		volts[i] = float64(i) * 1e-3
	}
	s.WriteDac(volts)

	msg := recvAppUntil(t, mcuCh, func(m ipp.AppMsg) bool { _, ok := m.(ipp.DacData); return ok })
	data := msg.(ipp.DacData)
	assert.Len(t, data.Points, n)
	assert.Equal(t, ipp.VoltageToCode(volts[0]), data.Points[0])
}

func TestAdcNotifyAndDrain(t *testing.T) {
	s, mcuCh := newTestSession(t)
	recvAppUntil(t, mcuCh, func(m ipp.AppMsg) bool { _, ok := m.(ipp.Connect); return ok })

	const maxSize = 3
	notified := make(chan struct{}, 1)
	s.InitAdc(0, maxSize)
	s.SetAdcCallback(0, func() { notified <- struct{}{} })

	arrays := make([]ipp.AdcArray, maxSize)
	for i := range arrays {
		arrays[i][0] = ipp.Point(i * 100)
	}
	sendMcu(t, mcuCh, ipp.AdcData{Arrays: arrays})

	select {
	case <-notified:
	case <-time.After(time.Second):
		t.Fatal("adc callback was not invoked")
	}

	values := s.ReadAdc(0)
	assert.Len(t, values, maxSize)
	assert.Equal(t, ipp.Point(200), s.ReadAdcLastValue(0))
}

func TestKeepAliveSentOnIdle(t *testing.T) {
	_, mcuCh := newTestSession(t)
	recvAppUntil(t, mcuCh, func(m ipp.AppMsg) bool { _, ok := m.(ipp.Connect); return ok })

	recvAppUntil(t, mcuCh, func(m ipp.AppMsg) bool { _, ok := m.(ipp.KeepAlive); return ok })
}

func TestResetStatistics(t *testing.T) {
	s, mcuCh := newTestSession(t)
	recvAppUntil(t, mcuCh, func(m ipp.AppMsg) bool { _, ok := m.(ipp.Connect); return ok })

	s.stats.DacPointsSent.Add(42)
	s.ResetStatistics()

	recvAppUntil(t, mcuCh, func(m ipp.AppMsg) bool { _, ok := m.(ipp.StatsReset); return ok })
	assert.Equal(t, uint64(0), s.Stats().DacPointsSent)
}
