package dbuf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOneShotRoundTrip(t *testing.T) {
	d := New[int]()
	xs := []int{1, 2, 3, 4}
	d.WriteExact(xs)
	out := make([]int, len(xs))
	n := d.ReadInto(out)
	assert.Equal(t, len(xs), n)
	assert.Equal(t, xs, out)
	assert.True(t, d.WriteReady())
}

func TestCyclicRepeatsWaveform(t *testing.T) {
	d := New[int]()
	xs := []int{1, 2, 3, 4}
	d.WriteExact(xs)
	d.SetCyclic(true)
	for k := 0; k < 3; k++ {
		out := make([]int, len(xs))
		n := d.ReadInto(out)
		assert.Equal(t, len(xs), n)
		assert.Equal(t, xs, out, "cycle %d", k)
	}
}

func TestWriteReadyFalseBeforeDrain(t *testing.T) {
	d := New[int]()
	d.WriteExact([]int{1, 2, 3})
	assert.False(t, d.WriteReady())
}

func TestWriteExactReplacesPendingWaveform(t *testing.T) {
	d := New[int]()
	d.WriteExact([]int{1, 2, 3})
	d.WriteExact([]int{9, 9})
	out := make([]int, 2)
	n := d.ReadInto(out)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int{9, 9}, out)
}

func TestReadIntoPartialThenEmpty(t *testing.T) {
	d := New[int]()
	d.WriteExact([]int{1, 2})
	out := make([]int, 5)
	n := d.ReadInto(out)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int{1, 2}, out[:2])
}
