// Package rpmsgsim is an in-process simulation of the RPMSG shared-memory
// channel between host and MCU: no kernel driver, no remoteproc, just two
// buffered Go channels standing in for the two RPMSG buffer queues. It is
// what the package tests in internal/mcu and internal/hostdev talk over.
package rpmsgsim

import (
	"time"

	"github.com/binp-dev/tornado/internal/transport"
)

// defaultDepth matches the RPMSG convention of a handful of buffers in
// flight at once; real RPMSG queues are small, not unbounded.
const defaultDepth = 4

// Channel is one end of a simulated RPMSG link.
type Channel struct {
	out    chan []byte
	in     chan []byte
	closed chan struct{}
}

// NewPair returns two connected Channels: messages sent on a arrive on b
// and vice versa, each message framed as one atomic slice, matching the
// "one message per RPMSG buffer" rule.
func NewPair() (a, b *Channel) {
	ab := make(chan []byte, defaultDepth)
	ba := make(chan []byte, defaultDepth)
	closed := make(chan struct{})
	a = &Channel{out: ab, in: ba, closed: closed}
	b = &Channel{out: ba, in: ab, closed: closed}
	return a, b
}

// Send copies buf and enqueues it, blocking up to timeout (or forever if
// timeout is zero) if the peer hasn't drained the queue.
func (c *Channel) Send(buf []byte, timeout time.Duration) error {
	cp := make([]byte, len(buf))
	copy(cp, buf)

	if timeout <= 0 {
		select {
		case c.out <- cp:
			return nil
		case <-c.closed:
			return transport.ErrClosed
		}
	}

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case c.out <- cp:
		return nil
	case <-t.C:
		return transport.ErrTimedOut
	case <-c.closed:
		return transport.ErrClosed
	}
}

// Receive blocks up to timeout for the next message, or forever if
// timeout is zero.
func (c *Channel) Receive(timeout time.Duration) ([]byte, error) {
	if timeout <= 0 {
		select {
		case buf := <-c.in:
			return buf, nil
		case <-c.closed:
			return nil, transport.ErrClosed
		}
	}

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case buf := <-c.in:
		return buf, nil
	case <-t.C:
		return nil, transport.ErrTimedOut
	case <-c.closed:
		return nil, transport.ErrClosed
	}
}

// Close shuts down both ends of the pair; subsequent Send/Receive calls
// on either Channel return ErrClosed.
func (c *Channel) Close() error {
	select {
	case <-c.closed:
		// already closed
	default:
		close(c.closed)
	}
	return nil
}
