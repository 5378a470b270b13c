package skifio

import (
	"sync"
	"time"

	"github.com/binp-dev/tornado/internal/ipp"
)

// SimDevice is an in-memory stand-in for the real board: a ticker plays
// the role of the external 10 kHz sync signal and the sample-ready
// interrupt, Transfer loops the last written DAC code back as one of the
// simulated ADC channels so tests can observe it end to end.
type SimDevice struct {
	period time.Duration

	// skipRemaining is only ever touched from WaitReady, which is only
	// ever called from the single sample-loop goroutine, so it needs no
	// synchronization of its own.
	skipRemaining int

	mu        sync.Mutex
	dacEnable bool
	dout      byte
	din       byte
	subscribe func(byte)

	ready chan struct{}
	stop  chan struct{}
	wg    sync.WaitGroup
}

// NewSimDevice creates a simulated device ticking at the given sample
// period (10 kHz -> 100us in production use, slower in tests).
func NewSimDevice(period time.Duration) *SimDevice {
	d := &SimDevice{
		period:        period,
		skipRemaining: FirstSamplesToSkip,
		ready:         make(chan struct{}, 1),
		stop:          make(chan struct{}),
	}
	d.wg.Add(1)
	go d.tick()
	return d
}

func (d *SimDevice) tick() {
	defer d.wg.Done()
	t := time.NewTicker(d.period)
	defer t.Stop()
	for {
		select {
		case <-d.stop:
			return
		case <-t.C:
			select {
			case d.ready <- struct{}{}:
			default:
				// Previous tick's edge not yet consumed; edges coalesce,
				// same as the real ISR->semaphore signalling.
			}
		}
	}
}

// Transfer loops the DAC code back as ADC channel 0 and reports the
// current discrete-output mask via channel 1, so integration tests can
// observe a round trip without real hardware.
func (d *SimDevice) Transfer(dacCode ipp.Point) (ipp.AdcArray, error) {
	d.mu.Lock()
	dout := d.dout
	d.mu.Unlock()
	var adc ipp.AdcArray
	adc[0] = dacCode
	adc[1] = ipp.Point(dout)
	return adc, nil
}

// WaitReady blocks for the next simulated tick that isn't within the
// initial settling window, mirroring LinuxDevice's skip behavior so
// tests and cmd/tornado-mcusim exercise the same contract real hardware
// does.
func (d *SimDevice) WaitReady(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return ErrTimedOut
		}
		select {
		case <-d.ready:
		case <-time.After(remaining):
			return ErrTimedOut
		}
		if d.skipRemaining > 0 {
			d.skipRemaining--
			continue
		}
		return nil
	}
}

func (d *SimDevice) DacEnable() error {
	d.mu.Lock()
	d.dacEnable = true
	d.mu.Unlock()
	return nil
}

func (d *SimDevice) DacDisable() error {
	d.mu.Lock()
	d.dacEnable = false
	d.mu.Unlock()
	return nil
}

// DacEnabled reports the last DacEnable/DacDisable call, for tests.
func (d *SimDevice) DacEnabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dacEnable
}

func (d *SimDevice) DinRead() (byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.din, nil
}

// SetDin lets a test drive the simulated discrete-input pins and fires
// the subscribed callback, matching the real di_handler ISR contract.
func (d *SimDevice) SetDin(v byte) {
	d.mu.Lock()
	d.din = v
	cb := d.subscribe
	d.mu.Unlock()
	if cb != nil {
		cb(v)
	}
}

func (d *SimDevice) DoutWrite(mask byte) error {
	d.mu.Lock()
	d.dout = mask & 0xf
	d.mu.Unlock()
	return nil
}

func (d *SimDevice) DinSubscribe(cb func(byte)) error {
	d.mu.Lock()
	d.subscribe = cb
	d.mu.Unlock()
	return nil
}

func (d *SimDevice) Close() error {
	close(d.stop)
	d.wg.Wait()
	return nil
}
