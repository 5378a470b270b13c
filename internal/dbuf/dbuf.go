// Package dbuf implements the read-buffer/write-buffer swap primitive
// backing the host-side DAC waveform queue (§4.C): a writer side that
// replaces the pending waveform wholesale, and a reader side that drains
// it, swapping in the next (or the same, in cyclic mode) waveform once
// the current one runs dry.
package dbuf

import (
	"sync"
	"sync/atomic"
)

// DoubleBuffer is a read-buffer + mutex-protected write-buffer swap
// primitive. There must be exactly one reader goroutine (which alone may
// call ReadInto/Swap) and exactly one writer goroutine (which alone may
// call WriteExact); this is not enforced at runtime, matching the
// teacher's "enforce by convention and documentation" approach.
type DoubleBuffer[T any] struct {
	readBuf []T

	mu       sync.Mutex
	writeBuf []T

	cyclic  atomic.Bool
	swapped atomic.Bool
}

// New creates an empty, one-shot double buffer.
func New[T any]() *DoubleBuffer[T] {
	return &DoubleBuffer[T]{}
}

// Cyclic reports whether cyclic playback is enabled.
func (d *DoubleBuffer[T]) Cyclic() bool {
	return d.cyclic.Load()
}

// SetCyclic switches between one-shot and cyclic playback.
func (d *DoubleBuffer[T]) SetCyclic(enabled bool) {
	d.cyclic.Store(enabled)
}

// WriteReady reports whether the reader has fully drained the
// previously-latched waveform and is ready for the next one. Writer side
// uses this to decide whether to push new data.
func (d *DoubleBuffer[T]) WriteReady() bool {
	return d.swapped.Load()
}

// WriteExact atomically replaces the write-side buffer's contents with a
// copy of data and clears WriteReady. A fresh waveform always replaces
// any pending one, even one not yet consumed by the reader (§9 open
// question: write_exact semantics are kept as-is, no wait-for-boundary).
func (d *DoubleBuffer[T]) WriteExact(data []T) bool {
	cp := make([]T, len(data))
	copy(cp, data)
	d.mu.Lock()
	d.writeBuf = cp
	d.mu.Unlock()
	d.swapped.Store(false)
	return true
}

// ReadInto drains the read buffer into dst, swapping in more data from
// the write buffer as needed, and returns how many elements were copied.
// Reader side only.
func (d *DoubleBuffer[T]) ReadInto(dst []T) int {
	total := d.drainReadBuf(dst)
	for total < len(dst) {
		d.Swap()
		n := d.drainReadBuf(dst[total:])
		if n == 0 {
			break
		}
		total += n
	}
	return total
}

func (d *DoubleBuffer[T]) drainReadBuf(dst []T) int {
	n := copy(dst, d.readBuf)
	d.readBuf = d.readBuf[n:]
	return n
}

// Swap moves (one-shot) or copies (cyclic) the write buffer into the read
// buffer and marks WriteReady. Reader side only; must never be called
// from the writer.
func (d *DoubleBuffer[T]) Swap() {
	d.readBuf = d.readBuf[:0]
	d.mu.Lock()
	if !d.cyclic.Load() {
		d.readBuf, d.writeBuf = d.writeBuf, nil
	} else {
		d.readBuf = append(d.readBuf[:0], d.writeBuf...)
	}
	d.mu.Unlock()
	d.swapped.Store(true)
}
