package containers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingQueueFIFO(t *testing.T) {
	rq := NewRingQueue[int](3)
	for i := 1; i <= 3; i++ {
		rq.Enqueue(i)
	}
	require.True(t, rq.IsFull())

	v, ok := rq.Peek()
	require.True(t, ok)
	assert.Equal(t, 1, v)

	for want := 1; want <= 3; want++ {
		got, ok := rq.Dequeue()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok = rq.Dequeue()
	assert.False(t, ok)
	assert.True(t, rq.IsEmpty())
}

func TestRingQueueGrowsAfterWrapping(t *testing.T) {
	rq := NewRingQueue[string](2)
	rq.Enqueue("a")
	rq.Enqueue("b")
	_, _ = rq.Dequeue()
	rq.Enqueue("c")
	// write index wrapped; the next enqueue has to unroll the buffer
	rq.Enqueue("d")

	assert.Equal(t, 3, rq.Len())
	assert.Equal(t, 4, rq.Cap())

	var got []string
	for !rq.IsEmpty() {
		v, _ := rq.Dequeue()
		got = append(got, v)
	}
	assert.Equal(t, []string{"b", "c", "d"}, got)
}

func TestRingQueueClear(t *testing.T) {
	rq := NewRingQueue[int](0)
	rq.Enqueue(1)
	rq.Enqueue(2)
	assert.Equal(t, 2, rq.Clear())
	assert.True(t, rq.IsEmpty())

	rq.Enqueue(3)
	v, ok := rq.Dequeue()
	require.True(t, ok)
	assert.Equal(t, 3, v)
}
