// Package ring implements the bounded single-producer/single-consumer
// point queue used on both sides of the pipeline: the MCU DAC/ADC rings
// (§4.B) and, indirectly, anywhere a fixed-capacity element queue with
// overwrite/skip semantics is needed.
//
// Capacity is fixed at construction; there is no dynamic allocation after
// New returns, matching the "no dynamic allocation on the MCU" design
// note. Write and Read are safe to call concurrently from exactly one
// producer goroutine and one consumer goroutine respectively, with no
// further locking. Skip only advances the consumer end, so like Read it
// may run on the consumer goroutine concurrently with Write. Overwrite
// touches both ends of the ring and must be externally serialized
// against any concurrent Write/Read.
package ring

import (
	"sync/atomic"

	"github.com/binp-dev/tornado/internal/assertx"
)

// Ring is a bounded SPSC queue of T with a fixed capacity.
type Ring[T any] struct {
	buf  []T
	head atomic.Uint64
	tail atomic.Uint64
}

// New creates a ring buffer with room for capacity elements.
func New[T any](capacity int) *Ring[T] {
	assertx.Assert(capacity > 0, "ring: capacity must be positive, got %d", capacity)
	return &Ring[T]{buf: make([]T, capacity)}
}

// Capacity returns the fixed capacity of the ring.
func (r *Ring[T]) Capacity() int {
	return len(r.buf)
}

// Occupied returns the number of elements currently queued.
func (r *Ring[T]) Occupied() int {
	return int(r.tail.Load() - r.head.Load())
}

// Vacant returns the number of elements that can still be written without
// evicting anything. Occupied() + Vacant() == Capacity() always holds.
func (r *Ring[T]) Vacant() int {
	return r.Capacity() - r.Occupied()
}

// Write copies up to min(len(src), Vacant()) elements into the ring and
// returns how many were accepted. Producer-side only.
func (r *Ring[T]) Write(src []T) int {
	n := len(src)
	if v := r.Vacant(); n > v {
		n = v
	}
	tail := r.tail.Load()
	cap := uint64(len(r.buf))
	for i := 0; i < n; i++ {
		r.buf[(tail+uint64(i))%cap] = src[i]
	}
	r.tail.Store(tail + uint64(n))
	return n
}

// Read copies up to min(len(dst), Occupied()) elements out of the ring
// and returns how many were copied. Consumer-side only.
func (r *Ring[T]) Read(dst []T) int {
	n := len(dst)
	if o := r.Occupied(); n > o {
		n = o
	}
	head := r.head.Load()
	cap := uint64(len(r.buf))
	for i := 0; i < n; i++ {
		dst[i] = r.buf[(head+uint64(i))%cap]
	}
	r.head.Store(head + uint64(n))
	return n
}

// Skip discards up to min(max, Occupied()) of the oldest elements and
// returns how many were discarded. Consumer-side only, same as Read.
func (r *Ring[T]) Skip(max int) int {
	n := max
	if o := r.Occupied(); n > o {
		n = o
	}
	if n < 0 {
		n = 0
	}
	r.head.Store(r.head.Load() + uint64(n))
	return n
}

// Overwrite writes all of src, first evicting max(0, len(src)-Vacant())
// of the oldest elements if there is not enough room, and returns the
// number evicted. len(src) must not exceed Capacity(). Not safe against a
// concurrent reader or writer; the caller serializes.
func (r *Ring[T]) Overwrite(src []T) int {
	assertx.Assert(len(src) <= r.Capacity(), "ring: overwrite length %d exceeds capacity %d", len(src), r.Capacity())
	evicted := 0
	if vacant := r.Vacant(); vacant < len(src) {
		evicted = r.Skip(len(src) - vacant)
	}
	r.Write(src)
	return evicted
}
