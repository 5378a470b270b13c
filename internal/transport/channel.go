// Package transport defines the Channel abstraction the MCU and host
// sides exchange ipp messages over. RPMSG shared memory is the primary
// implementation (transport/rpmsgsim simulates it in-process); §9 notes
// that any other transport -- the source's stale ZMQ experiment among
// them -- is just an alternative Channel behind the same interface, so
// transport/serialchan provides a length-prefixed framing over a plain
// byte stream (go.bug.st/serial or any io.ReadWriteCloser).
package transport

import (
	"errors"
	"time"
)

// ErrTimedOut is returned by Receive when no message arrived within the
// requested timeout.
var ErrTimedOut = errors.New("transport: timed out")

// ErrClosed is returned by Send/Receive after Close.
var ErrClosed = errors.New("transport: channel closed")

// Channel is one bidirectional message link. Each message occupies
// exactly one frame; there is no partial-message delivery (§6 framing
// rule). Implementations must be safe for one concurrent Send and one
// concurrent Receive, matching the single-producer/single-consumer
// shape of the pipeline on each side.
type Channel interface {
	// Send transmits one already-encoded message, blocking up to timeout.
	// A zero timeout means wait forever.
	Send(buf []byte, timeout time.Duration) error
	// Receive blocks for the next message up to timeout, returning
	// ErrTimedOut if none arrives in time. The returned slice is valid
	// until the next Receive call.
	Receive(timeout time.Duration) ([]byte, error)
	Close() error
}
