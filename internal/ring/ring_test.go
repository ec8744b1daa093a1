package ring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer_Push_FillsBelowCapacityInOrder(t *testing.T) {
	b := New[int](4)
	b.Push(1)
	b.Push(2)
	b.Push(3)

	assert.Equal(t, 3, b.Len())
	assert.Equal(t, 4, b.Cap())
	assert.Equal(t, []int{1, 2, 3}, b.Values())
}

func TestBuffer_Push_EvictsOldestOnceFull(t *testing.T) {
	b := New[int](3)
	b.Push(1)
	b.Push(2)
	b.Push(3)
	b.Push(4)

	assert.Equal(t, 3, b.Len())
	assert.Equal(t, []int{2, 3, 4}, b.Values())
}

func TestBuffer_New_ClampsNonPositiveCapacityToOne(t *testing.T) {
	b := New[int](0)
	assert.Equal(t, 1, b.Cap())
}

func TestBuffer_ReplaceLast_OverwritesMostRecentValue(t *testing.T) {
	b := New[int](3)
	b.Push(1)
	b.Push(2)
	ok := b.ReplaceLast(20)

	require.True(t, ok)
	assert.Equal(t, []int{1, 20}, b.Values())
}

func TestBuffer_ReplaceLast_FailsWhenEmpty(t *testing.T) {
	b := New[int](3)
	assert.False(t, b.ReplaceLast(1))
}

func TestBuffer_Last_IndexesBackFromMostRecent(t *testing.T) {
	b := New[int](3)
	b.Push(1)
	b.Push(2)
	b.Push(3)

	v, ok := b.Last(0)
	require.True(t, ok)
	assert.Equal(t, 3, v)

	v, ok = b.Last(2)
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = b.Last(3)
	assert.False(t, ok)
}

func TestBuffer_Tail_ReturnsLastNOldestFirst(t *testing.T) {
	b := New[int](5)
	for i := 1; i <= 5; i++ {
		b.Push(i)
	}

	assert.Equal(t, []int{3, 4, 5}, b.Tail(3))
	assert.Equal(t, []int{1, 2, 3, 4, 5}, b.Tail(10))
}
