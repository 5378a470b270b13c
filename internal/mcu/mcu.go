// Package mcu implements the MCU side of the control-plane: the sample
// loop that couples the SkifIO SPI/GPIO tick to the DAC/ADC ring
// buffers (§4.E), and the RPMSG send/recv tasks that move data and
// credit across the transport.Channel (§4.F). On real hardware these
// are three FreeRTOS tasks at fixed priorities; here they are three
// goroutines synchronized the same way: a binary semaphore (a
// depth-1 channel) from the sample loop to the send task, and plain
// mutex/atomic state shared between all three.
package mcu

import (
	"context"
	"sync"
	"time"

	"github.com/binp-dev/tornado/internal/ipp"
	"github.com/binp-dev/tornado/internal/ring"
	"github.com/binp-dev/tornado/internal/skifio"
	"github.com/binp-dev/tornado/internal/stats"
	"github.com/binp-dev/tornado/internal/transport"
	"go.uber.org/zap"
)

// Config holds the buffer sizes and periods named in §6.
type Config struct {
	DacBufferSize int
	AdcBufferSize int

	SampleReadyTimeout time.Duration
	KeepAliveMaxDelay  time.Duration
	SendTaskTimeout    time.Duration
}

// DefaultConfig returns the §6 constants.
func DefaultConfig() Config {
	return Config{
		DacBufferSize:      1024,
		AdcBufferSize:      256,
		SampleReadyTimeout: time.Second,
		KeepAliveMaxDelay:  200 * time.Millisecond,
		SendTaskTimeout:    10 * time.Second,
	}
}

// syncState mirrors ControlSync: state shared between the sample loop
// and the RPMSG tasks, guarded by Session.mu and signalled through
// sendReady (the rpmsg_send_task's binary semaphore).
type syncState struct {
	dacCounter int
	adcCounter int

	dioIn       byte
	dioOut      byte
	dinChanged  bool
	doutChanged bool

	dacLastPoint ipp.Point
	dacRunning   bool
	alive        bool

	dacRequested uint64
}

// Session owns one SkifIO device, one transport.Channel and the ring
// buffers, statistics and synchronization state binding the sample loop
// to the RPMSG tasks. Exactly one Session runs Run per process.
type Session struct {
	dev skifio.Device
	ch  transport.Channel
	cfg Config
	log *zap.Logger

	dacRing *ring.Ring[ipp.Point]
	adcRing *ring.Ring[ipp.AdcArray]
	stats   *stats.Stats

	sendReady chan struct{}

	mu    sync.Mutex
	state syncState

	prevIntr    uint64
	intrCounter func() uint64
}

// NewSession wires a SkifIO device and a transport.Channel into a
// control-plane session. intrCounter, if non-nil, reports the SkifIO
// driver's cumulative interrupt count for max_intrs_per_sample
// tracking; the simulated device has no such counter, so a nil func
// leaves that statistic at zero.
func NewSession(dev skifio.Device, ch transport.Channel, cfg Config, log *zap.Logger, intrCounter func() uint64) *Session {
	return &Session{
		dev:         dev,
		ch:          ch,
		cfg:         cfg,
		log:         log,
		dacRing:     ring.New[ipp.Point](cfg.DacBufferSize),
		adcRing:     ring.New[ipp.AdcArray](cfg.AdcBufferSize),
		stats:       stats.New(),
		sendReady:   make(chan struct{}, 1),
		intrCounter: intrCounter,
	}
}

// Stats exposes the live counters for cmd/tornado-mcusim's periodic
// status print and for tests.
func (s *Session) Stats() *stats.Stats {
	return s.stats
}

// Run starts the sample loop and the two RPMSG tasks and blocks until
// ctx is cancelled.
func (s *Session) Run(ctx context.Context) {
	go s.sampleLoop(ctx)
	go s.sendTask(ctx)
	go s.recvTask(ctx)
	<-ctx.Done()
}

// signalSend gives the send task's binary semaphore; a pending signal
// already in the channel is sufficient, matching xSemaphoreGive's
// collapse-to-one-pending-give behavior.
func (s *Session) signalSend() {
	select {
	case s.sendReady <- struct{}{}:
	default:
	}
}
