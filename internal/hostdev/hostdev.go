// Package hostdev implements the host-side device session (§4.G): the
// recv-thread/send-thread pair an EPICS record layer talks to through
// the IOC-facing API in ioc.go. It owns a DAC double-buffer, per-ADC
// bounded queues, the keep-alive timer, and the voltage<->code
// conversion that only happens on this side of the wire (the MCU deals
// in raw codes throughout).
package hostdev

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/binp-dev/tornado/internal/dbuf"
	"github.com/binp-dev/tornado/internal/ipp"
	"github.com/binp-dev/tornado/internal/transport"
	"go.uber.org/zap"
)

// Config holds the keep-alive period (§6: KEEP_ALIVE_PERIOD_MS).
type Config struct {
	KeepAlivePeriod time.Duration
}

// DefaultConfig returns the §6 keep-alive period.
func DefaultConfig() Config {
	return Config{KeepAlivePeriod: 100 * time.Millisecond}
}

// Stats are the host-local counters this session tracks on top of what
// it asks the MCU to report; an additive extension of §4.H, not a
// replacement for it (the MCU-side stats.Stats is the authoritative
// counterset and is reset by ResetStatistics()'s StatsReset message).
type Stats struct {
	DacPointsSent      atomic.Uint64
	AdcSamplesReceived atomic.Uint64
	AdcSamplesSkipped  atomic.Uint64
	KeepAlivesSent     atomic.Uint64
}

// Reset zeroes every counter.
func (s *Stats) Reset() {
	s.DacPointsSent.Store(0)
	s.AdcSamplesReceived.Store(0)
	s.AdcSamplesSkipped.Store(0)
	s.KeepAlivesSent.Store(0)
}

// Snapshot is an immutable copy of Stats.
type Snapshot struct {
	DacPointsSent      uint64
	AdcSamplesReceived uint64
	AdcSamplesSkipped  uint64
	KeepAlivesSent     uint64
}

// Snapshot takes an immutable copy of every counter.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		DacPointsSent:      s.DacPointsSent.Load(),
		AdcSamplesReceived: s.AdcSamplesReceived.Load(),
		AdcSamplesSkipped:  s.AdcSamplesSkipped.Load(),
		KeepAlivesSent:     s.KeepAlivesSent.Load(),
	}
}

// dacState is the host-side DAC entry from §3: a double-buffer of
// physical voltages, MCU-granted credit, and the flag pair that drives
// the "please push the next waveform" notification to the IOC.
type dacState struct {
	data              *dbuf.DoubleBuffer[float64]
	mcuRequestedCount atomic.Uint64
	iocRequested      atomic.Bool
	requestNextWf     func()
}

// doutState is the discrete-output side: a pending value plus an
// update flag the send thread clears once flushed.
type doutState struct {
	value  atomic.Uint32
	update atomic.Bool
}

// dinState mirrors the last discrete-input byte received from the MCU.
type dinState struct {
	value  atomic.Uint32
	notify func()
}

// Session owns one transport.Channel and the recv-thread/send-thread
// pair that serve it. Exactly one Session runs Start per process (spec
// Non-goal: multiple concurrent host sessions).
type Session struct {
	ch  transport.Channel
	cfg Config
	log *zap.Logger

	done      chan struct{}
	sendReady chan struct{}
	sendMu    sync.Mutex // guards mcuRequestedCount updates, see §9

	wg sync.WaitGroup

	dac  dacState
	dout doutState
	din  dinState
	adc  [ipp.AdcCount]*adcChannel

	statsReset atomic.Bool
	stats      Stats
}

// NewSession wires a transport.Channel into a host device session.
func NewSession(ch transport.Channel, cfg Config, log *zap.Logger) *Session {
	s := &Session{
		ch:        ch,
		cfg:       cfg,
		log:       log,
		done:      make(chan struct{}),
		sendReady: make(chan struct{}, 1),
	}
	s.dac.data = dbuf.New[float64]()
	for i := range s.adc {
		s.adc[i] = &adcChannel{maxSize: 1}
	}
	return s
}

// Stats exposes the live host-local counters.
func (s *Session) Stats() Snapshot {
	return s.stats.Snapshot()
}

// Start launches the recv loop and returns; the recv loop sends Connect
// (blocking until it lands), then spawns the send thread, matching
// Device::start's "recv thread spawns send thread" ordering.
func (s *Session) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.recvLoop()
	}()
}

// Stop signals both threads to exit at their next suspension point and
// waits for them to return, matching Device::stop's join semantics.
func (s *Session) Stop() {
	close(s.done)
	s.wg.Wait()
}

func (s *Session) signalSend() {
	select {
	case s.sendReady <- struct{}{}:
	default:
	}
}
