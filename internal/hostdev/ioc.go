// IOC-facing API: the operations an EPICS record layer calls directly,
// as opposed to the recv/send loops that only talk to the transport.
package hostdev

import (
	"github.com/binp-dev/tornado/internal/ipp"
)

// WriteDout queues a new discrete-output nibble to be flushed on the
// send loop's next wake.
func (s *Session) WriteDout(value byte) {
	s.dout.value.Store(uint32(value))
	s.dout.update.Store(true)
	s.signalSend()
}

// ReadDin returns the last discrete-input byte received from the MCU.
func (s *Session) ReadDin() byte {
	return byte(s.din.value.Load())
}

// SetDinCallback installs the callback invoked whenever a new din value
// arrives. Passing nil disables notification.
func (s *Session) SetDinCallback(cb func()) {
	s.din.notify = cb
}

// InitDac is a no-op placeholder retained for API parity with the
// original device: this session derives its own chunk size from
// ipp.DacMsgMaxPoints rather than a caller-supplied bound.
func (s *Session) InitDac(int) {}

// WriteDac replaces the pending DAC waveform wholesale and clears the
// "please push more" flag, as a fresh waveform just arrived.
func (s *Session) WriteDac(volts []float64) {
	s.dac.data.WriteExact(volts)
	s.dac.iocRequested.Store(false)
}

// DacReqFlag reports whether the session is waiting on the IOC to
// supply the next waveform.
func (s *Session) DacReqFlag() bool {
	return s.dac.iocRequested.Load()
}

// SetDacReqCallback installs the callback fired once per waveform, the
// first time WriteReady() becomes true after a swap.
func (s *Session) SetDacReqCallback(cb func()) {
	s.dac.requestNextWf = cb
}

// PlaybackMode selects one-shot or cyclic DAC waveform playback.
type PlaybackMode int

const (
	// OneShot plays the waveform once, then waits for a new one.
	OneShot PlaybackMode = iota
	// Cyclic replays the same waveform indefinitely.
	Cyclic
)

// SetDacPlaybackMode switches the DAC double-buffer between one-shot
// and cyclic playback.
func (s *Session) SetDacPlaybackMode(mode PlaybackMode) {
	s.dac.data.SetCyclic(mode == Cyclic)
}

// OperationState is reserved for a future DAC run/pause/stop control
// surface; §9 leaves its semantics an open question, so it is a no-op
// for now.
type OperationState int

// SetDacOperationState is a reserved no-op (§9).
func (s *Session) SetDacOperationState(OperationState) {}

// InitAdc sets channel i's bounded-history size and must be called
// before the first ReadAdc/ReadAdcLastValue.
func (s *Session) InitAdc(i int, maxSize int) {
	s.adc[i].setMaxSize(maxSize)
}

// ReadAdc drains up to maxSize of channel i's oldest buffered voltages,
// first dropping any backlog that built up past twice maxSize.
func (s *Session) ReadAdc(i int) []float64 {
	out, skipped := s.adc[i].drain()
	if skipped > 0 {
		s.stats.AdcSamplesSkipped.Add(uint64(skipped))
		s.log.Warn("adc channel backlog exceeded twice its max size, dropping oldest samples")
	}
	return out
}

// ReadAdcLastValue returns channel i's most recently received raw code.
func (s *Session) ReadAdcLastValue(i int) ipp.Point {
	return ipp.Point(s.adc[i].lastValue.Load())
}

// SetAdcCallback installs the callback fired when channel i's backlog
// first reaches maxSize since the last drain. Passing nil disables it.
func (s *Session) SetAdcCallback(i int, cb func()) {
	s.adc[i].setNotify(cb)
}

// ResetStatistics zeroes the host-local counters and asks the MCU to
// zero its own on the send loop's next wake.
func (s *Session) ResetStatistics() {
	s.statsReset.Store(true)
	s.signalSend()
}
