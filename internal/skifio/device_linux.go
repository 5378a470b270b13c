//go:build linux

package skifio

import (
	"sync"
	"time"

	"github.com/binp-dev/tornado/conn/gpio"
	"github.com/binp-dev/tornado/conn/physic"
	"github.com/binp-dev/tornado/internal/ipp"
)

// LinuxConfig names the spidev device node and the sysfs GPIO numbers the
// SkifIO board is wired to on this host. Pin-mux setup (selecting which
// SoC pad is GPIO vs. a dedicated peripheral function) happens outside
// this package, the same way board bring-up is out of scope (§1).
type LinuxConfig struct {
	SPIDevice   string
	SPISpeed    physic.Frequency
	SampleReady int
	ReadReady   int
	AoKeys      [2]int
	Di          [DiSize]int
	Do          [DoSize]int
}

// DefaultLinuxConfig returns the SPI speed and frame geometry this spec
// requires; GPIO numbers must still be filled in per board.
func DefaultLinuxConfig() LinuxConfig {
	return LinuxConfig{SPISpeed: physic.Frequency(SpiBaudRate) * physic.Hertz}
}

// LinuxDevice drives a real SkifIO board over spidev + sysfs GPIO.
type LinuxDevice struct {
	spi *spiPort

	sampleReady *sysfsPin
	readReady   *sysfsPin
	aoKeys      [2]*sysfsPin
	di          [DiSize]*sysfsPin
	do          [DoSize]*sysfsPin

	skipRemaining int

	mu        sync.Mutex
	subscribe func(byte)
	diStop    chan struct{}
}

// NewLinuxDevice opens the spidev node and exports every GPIO pin named
// in cfg, matching skifio_init's pin-mux + SPI-master bring-up.
func NewLinuxDevice(cfg LinuxConfig) (*LinuxDevice, error) {
	speedHz := uint32(cfg.SPISpeed / physic.Hertz)
	spi, err := openSPI(cfg.SPIDevice, speedHz, 8)
	if err != nil {
		return nil, err
	}
	d := &LinuxDevice{spi: spi, skipRemaining: FirstSamplesToSkip, diStop: make(chan struct{})}

	d.sampleReady, err = openPin(cfg.SampleReady)
	if err != nil {
		return nil, err
	}
	if err := d.sampleReady.setDirection("in"); err != nil {
		return nil, err
	}
	if err := d.sampleReady.setEdge(gpio.Rising); err != nil {
		return nil, err
	}

	d.readReady, err = openPin(cfg.ReadReady)
	if err != nil {
		return nil, err
	}
	if err := d.readReady.setDirection("out"); err != nil {
		return nil, err
	}

	for i, n := range cfg.AoKeys {
		pin, err := openPin(n)
		if err != nil {
			return nil, err
		}
		if err := pin.setDirection("out"); err != nil {
			return nil, err
		}
		d.aoKeys[i] = pin
	}

	for i, n := range cfg.Di {
		pin, err := openPin(n)
		if err != nil {
			return nil, err
		}
		if err := pin.setDirection("in"); err != nil {
			return nil, err
		}
		if err := pin.setEdge(gpio.Both); err != nil {
			return nil, err
		}
		d.di[i] = pin
	}

	for i, n := range cfg.Do {
		pin, err := openPin(n)
		if err != nil {
			return nil, err
		}
		if err := pin.setDirection("out"); err != nil {
			return nil, err
		}
		d.do[i] = pin
	}

	return d, nil
}

// Transfer performs one SPI frame. The initial settling window (see
// WaitReady) is handled entirely on the sample-ready side; every
// Transfer call is a real transaction.
func (d *LinuxDevice) Transfer(dacCode ipp.Point) (ipp.AdcArray, error) {
	tx := encodeFrame(dacCode)
	rx := make([]byte, xferLen)
	if err := d.spi.Tx(tx, rx); err != nil {
		return ipp.AdcArray{}, err
	}
	return decodeFrame(rx)
}

// WaitReady blocks for the next sample-ready edge that isn't within the
// initial settling window: the first FirstSamplesToSkip edges are
// consumed internally and never reported as ready, matching
// smp_rdy_handler's sample_skip_counter withholding the semaphore give
// entirely during the skip window rather than waking the sample task
// and discarding its result.
func (d *LinuxDevice) WaitReady(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return ErrTimedOut
		}
		if !d.sampleReady.waitForEdge(remaining) {
			return ErrTimedOut
		}
		if d.skipRemaining > 0 {
			d.skipRemaining--
			continue
		}
		if ReadyDelayNS > 0 {
			time.Sleep(ReadyDelayNS * time.Nanosecond)
		}
		return nil
	}
}

func (d *LinuxDevice) DacEnable() error {
	for _, k := range d.aoKeys {
		if err := k.write(gpio.High); err != nil {
			return err
		}
	}
	return nil
}

func (d *LinuxDevice) DacDisable() error {
	for _, k := range d.aoKeys {
		if err := k.write(gpio.Low); err != nil {
			return err
		}
	}
	return nil
}

func (d *LinuxDevice) DinRead() (byte, error) {
	var v byte
	for i, pin := range d.di {
		level, err := pin.read()
		if err != nil {
			return 0, err
		}
		if level == gpio.High {
			v |= 1 << uint(i)
		}
	}
	return v, nil
}

func (d *LinuxDevice) DoutWrite(mask byte) error {
	for i, pin := range d.do {
		if err := pin.write(gpio.Level(mask&(1<<uint(i)) != 0)); err != nil {
			return err
		}
	}
	return nil
}

// DinSubscribe starts one goroutine per discrete-input pin waiting on its
// edge file descriptor; any edge invokes cb with the freshly re-read din
// value, matching di_handler's "read on any edge" contract.
func (d *LinuxDevice) DinSubscribe(cb func(byte)) error {
	d.mu.Lock()
	d.subscribe = cb
	d.mu.Unlock()
	for _, pin := range d.di {
		pin := pin
		go func() {
			for {
				select {
				case <-d.diStop:
					return
				default:
				}
				if pin.waitForEdge(time.Second) {
					if v, err := d.DinRead(); err == nil {
						d.mu.Lock()
						cb := d.subscribe
						d.mu.Unlock()
						if cb != nil {
							cb(v)
						}
					}
				}
			}
		}()
	}
	return nil
}

func (d *LinuxDevice) Close() error {
	close(d.diStop)
	_ = d.spi.Close()
	_ = d.sampleReady.close()
	_ = d.readReady.close()
	for _, p := range d.aoKeys {
		_ = p.close()
	}
	for _, p := range d.di {
		_ = p.close()
	}
	for _, p := range d.do {
		_ = p.close()
	}
	return nil
}
