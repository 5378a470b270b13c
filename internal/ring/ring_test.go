package ring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteReadOrder(t *testing.T) {
	r := New[int](4)
	n := r.Write([]int{1, 2, 3})
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, r.Occupied())
	assert.Equal(t, 1, r.Vacant())

	dst := make([]int, 2)
	got := r.Read(dst)
	assert.Equal(t, 2, got)
	assert.Equal(t, []int{1, 2}, dst)
	assert.Equal(t, 1, r.Occupied())
}

func TestWriteTruncatesAtCapacity(t *testing.T) {
	r := New[int](2)
	n := r.Write([]int{1, 2, 3})
	assert.Equal(t, 2, n)
	assert.Equal(t, 0, r.Vacant())
}

func TestInvariantOccupiedPlusVacant(t *testing.T) {
	r := New[int](8)
	r.Write([]int{1, 2, 3})
	r.Read(make([]int, 1))
	assert.Equal(t, r.Capacity(), r.Occupied()+r.Vacant())
}

func TestSkipDiscardsOldest(t *testing.T) {
	r := New[int](4)
	r.Write([]int{1, 2, 3, 4})
	skipped := r.Skip(2)
	assert.Equal(t, 2, skipped)
	dst := make([]int, 2)
	r.Read(dst)
	assert.Equal(t, []int{3, 4}, dst)
}

func TestOverwriteEvictsOldestWhenFull(t *testing.T) {
	r := New[int](4)
	r.Write([]int{1, 2, 3, 4})
	evicted := r.Overwrite([]int{5, 6})
	assert.Equal(t, 2, evicted)
	dst := make([]int, 4)
	r.Read(dst)
	assert.Equal(t, []int{3, 4, 5, 6}, dst)
}

func TestOverwriteFullCapacityReplacesAll(t *testing.T) {
	r := New[int](3)
	r.Write([]int{1, 2, 3})
	evicted := r.Overwrite([]int{4, 5, 6})
	assert.Equal(t, 3, evicted)
	dst := make([]int, 3)
	r.Read(dst)
	assert.Equal(t, []int{4, 5, 6}, dst)
}

func TestOverwritePanicsOnOversizedInput(t *testing.T) {
	r := New[int](2)
	assert.Panics(t, func() {
		r.Overwrite([]int{1, 2, 3})
	})
}

func TestAdcArrayElementBoundaryPreserved(t *testing.T) {
	type adcArray [6]int32
	r := New[adcArray](2)
	a := adcArray{1, 2, 3, 4, 5, 6}
	r.Write([]adcArray{a})
	dst := make([]adcArray, 1)
	r.Read(dst)
	assert.Equal(t, a, dst[0])
}
