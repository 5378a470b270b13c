package hostdev

import (
	"sync"
	"sync/atomic"

	"github.com/binp-dev/tornado/internal/ipp"
)

// adcChannel is one ADC channel's bounded history on the host side: a
// deque the recv loop appends converted voltages to and the IOC drains
// in maxSize-sized chunks, plus the last raw code for single-value
// reads and a notify callback fired once the deque first reaches
// maxSize since the last drain.
type adcChannel struct {
	mu          sync.Mutex
	deque       []float64
	maxSize     int
	lastValue   atomic.Int32
	iocNotified atomic.Bool
	notify      func()
}

// push appends one converted voltage, notifying the IOC the first time
// the backlog reaches maxSize since the last drain.
func (c *adcChannel) push(raw ipp.Point) {
	c.lastValue.Store(int32(raw))
	c.mu.Lock()
	c.deque = append(c.deque, ipp.CodeToVoltage(raw))
	full := len(c.deque) >= c.maxSize && c.maxSize > 0
	var notify func()
	if full && c.iocNotified.CompareAndSwap(false, true) {
		notify = c.notify
	}
	c.mu.Unlock()
	if notify != nil {
		notify()
	}
}

// drain trims any backlog that built up past twice maxSize (returning
// the number of points silently dropped, for Stats.AdcSamplesSkipped),
// then returns up to maxSize of the oldest remaining values.
func (c *adcChannel) drain() ([]float64, int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	skipped := 0
	for c.maxSize > 0 && len(c.deque) >= 2*c.maxSize {
		c.deque = c.deque[c.maxSize:]
		skipped += c.maxSize
	}

	n := len(c.deque)
	if c.maxSize > 0 && n > c.maxSize {
		n = c.maxSize
	}
	out := append([]float64(nil), c.deque[:n]...)
	c.deque = c.deque[n:]
	c.iocNotified.Store(false)
	return out, skipped
}

func (c *adcChannel) setMaxSize(maxSize int) {
	c.mu.Lock()
	c.maxSize = maxSize
	c.mu.Unlock()
}

func (c *adcChannel) setNotify(cb func()) {
	c.mu.Lock()
	c.notify = cb
	c.mu.Unlock()
}
