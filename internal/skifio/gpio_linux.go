//go:build linux

package skifio

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/binp-dev/tornado/conn/gpio"
)

// edgeSysfsName maps a gpio.Edge onto the string sysfs's edge file
// expects.
func edgeSysfsName(e gpio.Edge) string {
	switch e {
	case gpio.Rising:
		return "rising"
	case gpio.Falling:
		return "falling"
	case gpio.Both:
		return "both"
	default:
		return "none"
	}
}

// sysfsPin is a single sysfs GPIO pin (/sys/class/gpio/gpioN/...),
// grounded on host/sysfs/gpio.go's export/direction/edge/value file
// idiom, trimmed to exactly what the SkifIO discrete I/O and
// sample-ready interrupt need.
type sysfsPin struct {
	number int
	root   string

	value *iocFile
	event edgeEvent
}

func openPin(number int) (*sysfsPin, error) {
	p := &sysfsPin{number: number, root: fmt.Sprintf("/sys/class/gpio/gpio%d/", number)}
	if _, err := os.Stat(p.root); os.IsNotExist(err) {
		if err := writeSysfsFile("/sys/class/gpio/export", strconv.Itoa(number)); err != nil {
			return nil, fmt.Errorf("skifio: export gpio%d: %w", number, err)
		}
	}
	return p, nil
}

func (p *sysfsPin) setDirection(dir string) error {
	return writeSysfsFile(p.root+"direction", dir)
}

func (p *sysfsPin) setEdge(edge gpio.Edge) error {
	if err := writeSysfsFile(p.root+"edge", edgeSysfsName(edge)); err != nil {
		return err
	}
	f, err := openIocFile(p.root+"value", os.O_RDONLY)
	if err != nil {
		return err
	}
	p.value = f
	return p.event.arm(f.Fd())
}

func (p *sysfsPin) waitForEdge(timeout time.Duration) bool {
	n, err := p.event.wait(int(timeout / time.Millisecond))
	return err == nil && n > 0
}

func (p *sysfsPin) read() (gpio.Level, error) {
	f, err := openIocFile(p.root+"value", os.O_RDONLY)
	if err != nil {
		return gpio.Low, err
	}
	defer f.Close()
	buf := make([]byte, 1)
	if _, err := f.ReadAt(buf, 0); err != nil {
		return gpio.Low, err
	}
	return gpio.Level(buf[0] == '1'), nil
}

func (p *sysfsPin) write(v gpio.Level) error {
	s := "0"
	if v == gpio.High {
		s = "1"
	}
	return writeSysfsFile(p.root+"value", s)
}

func (p *sysfsPin) close() error {
	if p.value != nil {
		return p.value.Close()
	}
	return nil
}

func writeSysfsFile(path, value string) error {
	f, err := openIocFile(path, os.O_WRONLY)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(value)
	return err
}
