// Package skifio drives the SkifIO analog I/O board: one 28-byte SPI
// frame per sample tick (§4.D), plus the discrete I/O and sample-ready
// interrupt that ride alongside it on GPIO.
//
// Device is implemented by a real Linux spidev/sysfs-GPIO backend
// (device_linux.go, built only on linux) and by an in-memory simulation
// (sim.go) used by cmd/tornado-mcusim and by tests that don't have real
// hardware to talk to.
package skifio

import (
	"errors"
	"time"

	"github.com/binp-dev/tornado/internal/ipp"
	"github.com/sigurn/crc16"
)

// Bus parameters (§4.D, §6).
const (
	SpiBaudRate        = 25_000_000
	FirstSamplesToSkip = 1
	ReadyDelayNS        = 0
	DiSize              = 8
	DoSize              = 4
)

// frame layout: 2-byte magic, 4-byte DAC code, 2-byte CRC16, 20 bytes pad.
const (
	xferLen    = 28
	txCrcLen   = 6
	rxDataLen  = ipp.AdcCount*4 + 1 + 1 // ADC codes + temp + status
)

var magic = [2]byte{0x55, 0xAA}

// ErrTimedOut is returned by WaitReady when no sample-ready interrupt
// arrived within the timeout.
var ErrTimedOut = errors.New("skifio: timed out")

// ErrInvalidData is returned by Transfer when the RX frame's CRC does not
// match, signalling a corrupted transfer.
var ErrInvalidData = errors.New("skifio: invalid data (crc mismatch)")

// crcTable computes the frame CRC-16. The original board's CRC preserves
// a specific polynomial and initial value (§6); CCITT-FALSE is the
// closest stock parameter set and is what this port uses (see SPEC_FULL.md).
var crcTable = crc16.MakeTable(crc16.CCITT_FALSE)

func crcSum(data []byte) uint16 {
	return crc16.Checksum(data, crcTable)
}

// Device is the operations the MCU sample loop (§4.E) needs from the
// SkifIO board.
type Device interface {
	// Transfer performs one SPI frame: dacCode out, six ADC codes back.
	// Returns ErrInvalidData on CRC mismatch; the caller still gets
	// whatever ADC values were decoded (best-effort).
	Transfer(dacCode ipp.Point) (ipp.AdcArray, error)
	// WaitReady blocks for the next sample-ready edge, or ErrTimedOut.
	WaitReady(timeout time.Duration) error
	// DacEnable/DacDisable toggle the DAC output-enable keys.
	DacEnable() error
	DacDisable() error
	// DinRead reads the 8 discrete-input pins as a bitmask.
	DinRead() (byte, error)
	// DoutWrite writes the low 4 bits of mask to the discrete-output
	// pins; behavior on higher bits is the caller's responsibility
	// (§3: masking and the warn-on-extra-bits happens in internal/mcu).
	DoutWrite(mask byte) error
	// DinSubscribe registers a callback invoked on any din-pin edge
	// with the current din value. Only one subscriber is supported.
	DinSubscribe(cb func(byte)) error
	Close() error
}

// encodeFrame builds the 28-byte TX frame for one sample tick.
func encodeFrame(dacCode ipp.Point) []byte {
	tx := make([]byte, xferLen)
	tx[0], tx[1] = magic[0], magic[1]
	putInt32(tx[2:6], int32(dacCode))
	crc := crcSum(tx[:txCrcLen])
	putUint16(tx[6:8], crc)
	return tx
}

// decodeFrame parses the 28-byte RX frame, returning ErrInvalidData on a
// CRC mismatch (the ADC values are still returned, best-effort).
func decodeFrame(rx []byte) (ipp.AdcArray, error) {
	var adc ipp.AdcArray
	for i := 0; i < ipp.AdcCount; i++ {
		adc[i] = ipp.Point(getInt32(rx[i*4 : i*4+4]))
	}
	calc := crcSum(rx[:rxDataLen])
	got := getUint16(rx[rxDataLen : rxDataLen+2])
	if calc != got {
		return adc, ErrInvalidData
	}
	return adc, nil
}

func putInt32(b []byte, v int32) {
	u := uint32(v)
	b[0] = byte(u)
	b[1] = byte(u >> 8)
	b[2] = byte(u >> 16)
	b[3] = byte(u >> 24)
}

func getInt32(b []byte) int32 {
	u := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	return int32(u)
}

func putUint16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

func getUint16(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}
