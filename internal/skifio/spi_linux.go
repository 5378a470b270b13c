//go:build linux

package skifio

import (
	"fmt"
	"os"
	"unsafe"

	"github.com/binp-dev/tornado/conn"
)

// spiIOCTransfer mirrors struct spi_ioc_transfer from
// <linux/spi/spidev.h>.
type spiIOCTransfer struct {
	txBuf uint64
	rxBuf uint64

	length   uint32
	speedHz  uint32
	delay    uint16
	bitsWord uint8
	csChange uint8
	txNBits  uint8
	rxNBits  uint8
	pad      uint16
}

const spiIOCMagic = 'k'

var (
	spiIOCMode     = iow(spiIOCMagic, 1, 1)
	spiIOCLSBFirst = iow(spiIOCMagic, 2, 1)
	spiIOCBits     = iow(spiIOCMagic, 3, 1)
	spiIOCMaxSpeed = iow(spiIOCMagic, 4, 4)
)

func spiIOCMessage(n int) uint {
	return iow(spiIOCMagic, 0, uint(n*int(unsafe.Sizeof(spiIOCTransfer{}))))
}

const (
	modeCPHA = 0x01
	modeCPOL = 0x02
)

// spiPort is a thin wrapper around one /dev/spidevB.C character device,
// grounded on the ioctl sequence in host/sysfs/spi.go. It implements
// conn.Conn: SkifIO always transfers at one fixed speed per session, so
// Tx closes over it rather than taking it as a per-call argument.
type spiPort struct {
	f       *iocFile
	speedHz uint32
}

var _ conn.Conn = (*spiPort)(nil)

func openSPI(path string, speedHz uint32, bitsPerWord uint8) (*spiPort, error) {
	f, err := openIocFile(path, os.O_RDWR)
	if err != nil {
		return nil, fmt.Errorf("skifio: open %s: %w", path, err)
	}
	p := &spiPort{f: f, speedHz: speedHz}
	mode := uint8(modeCPOL | modeCPHA) // SkifIO board uses SPI mode 3.
	if err := f.ioctl(spiIOCMode, uintptr(unsafe.Pointer(&mode))); err != nil {
		f.Close()
		return nil, fmt.Errorf("skifio: set mode: %w", err)
	}
	if err := f.ioctl(spiIOCBits, uintptr(unsafe.Pointer(&bitsPerWord))); err != nil {
		f.Close()
		return nil, fmt.Errorf("skifio: set bits: %w", err)
	}
	if err := f.ioctl(spiIOCMaxSpeed, uintptr(unsafe.Pointer(&speedHz))); err != nil {
		f.Close()
		return nil, fmt.Errorf("skifio: set speed: %w", err)
	}
	return p, nil
}

// Tx performs one full-duplex SPI transaction of len(w) bytes,
// implementing conn.Conn.
func (p *spiPort) Tx(w, r []byte) error {
	if len(w) != len(r) {
		return fmt.Errorf("skifio: tx/rx length mismatch: %d != %d", len(w), len(r))
	}
	xfer := spiIOCTransfer{
		txBuf:   uint64(uintptr(unsafe.Pointer(&w[0]))),
		rxBuf:   uint64(uintptr(unsafe.Pointer(&r[0]))),
		length:  uint32(len(w)),
		speedHz: p.speedHz,
	}
	return p.f.ioctl(spiIOCMessage(1), uintptr(unsafe.Pointer(&xfer)))
}

func (p *spiPort) Close() error {
	return p.f.Close()
}
