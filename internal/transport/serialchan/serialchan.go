// Package serialchan frames ipp messages over a plain byte stream with a
// 2-byte little-endian length prefix, since unlike RPMSG a raw serial
// link (or any io.ReadWriteCloser) has no built-in message boundaries.
// It backs the "serial" transport setting of cmd/tornado-hostd and
// cmd/tornado-mcusim over go.bug.st/serial, and lets tests exercise the
// same framing over a net.Pipe without a real port.
package serialchan

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/binp-dev/tornado/internal/ipp"
	"github.com/binp-dev/tornado/internal/transport"
	"go.bug.st/serial"
)

const lengthPrefixSize = 2

// Channel frames messages over rw with a 2-byte length prefix. Reads run
// on a background goroutine so Receive can honor a timeout even though
// io.Reader has no notion of one.
type Channel struct {
	rw io.ReadWriteCloser
	br *bufio.Reader

	writeMu sync.Mutex

	msgs   chan []byte
	errs   chan error
	closed chan struct{}
	once   sync.Once
}

// New wraps rw (a serial.Port, an os.Pipe end, or any
// io.ReadWriteCloser) in length-prefixed message framing.
func New(rw io.ReadWriteCloser) *Channel {
	c := &Channel{
		rw:     rw,
		br:     bufio.NewReader(rw),
		msgs:   make(chan []byte),
		errs:   make(chan error, 1),
		closed: make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Open opens a real serial port at the given baud rate and wraps it in
// the same length-prefixed framing as New.
func Open(portName string, baudRate int) (*Channel, error) {
	port, err := serial.Open(portName, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, err
	}
	return New(port), nil
}

func (c *Channel) readLoop() {
	var lenBuf [lengthPrefixSize]byte
	for {
		if _, err := io.ReadFull(c.br, lenBuf[:]); err != nil {
			select {
			case c.errs <- err:
			case <-c.closed:
			}
			return
		}
		n := binary.LittleEndian.Uint16(lenBuf[:])
		buf := make([]byte, n)
		if _, err := io.ReadFull(c.br, buf); err != nil {
			select {
			case c.errs <- err:
			case <-c.closed:
			}
			return
		}
		select {
		case c.msgs <- buf:
		case <-c.closed:
			return
		}
	}
}

// Send writes one length-prefixed frame. timeout is advisory only: the
// underlying write is not interruptible mid-flight, matching a real
// serial port's behavior.
func (c *Channel) Send(buf []byte, timeout time.Duration) error {
	if len(buf) > ipp.MaxMsgLen {
		return errors.New("serialchan: message exceeds max length")
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	var lenBuf [lengthPrefixSize]byte
	binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(buf)))
	if _, err := c.rw.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := c.rw.Write(buf)
	return err
}

// Receive blocks up to timeout for the next framed message, or forever
// if timeout is zero.
func (c *Channel) Receive(timeout time.Duration) ([]byte, error) {
	if timeout <= 0 {
		select {
		case buf := <-c.msgs:
			return buf, nil
		case err := <-c.errs:
			return nil, err
		case <-c.closed:
			return nil, transport.ErrClosed
		}
	}

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case buf := <-c.msgs:
		return buf, nil
	case err := <-c.errs:
		return nil, err
	case <-t.C:
		return nil, transport.ErrTimedOut
	case <-c.closed:
		return nil, transport.ErrClosed
	}
}

func (c *Channel) Close() error {
	var err error
	c.once.Do(func() {
		close(c.closed)
		err = c.rw.Close()
	})
	return err
}
