package containers

// RingQueue is a FIFO queue over a circular buffer. The buffer doubles when
// an element is enqueued into a full queue. It is not safe for concurrent use.
type RingQueue[T any] struct {
	data       []T
	readIndex  int
	writeIndex int
	count      int
}

// Create a new RingQueue with room for size elements before growing.
func NewRingQueue[T any](size int) *RingQueue[T] {
	if size < 1 {
		size = 1
	}
	return &RingQueue[T]{
		data: make([]T, size),
	}
}

// Enqueue adds an element at the back of the queue
func (rq *RingQueue[T]) Enqueue(value T) {
	if rq.IsFull() {
		rq.grow()
	}
	rq.data[rq.writeIndex] = value
	rq.writeIndex = (rq.writeIndex + 1) % len(rq.data)
	rq.count++
}

// Dequeue removes and returns the front element in the queue
func (rq *RingQueue[T]) Dequeue() (T, bool) {
	var zero T
	if rq.IsEmpty() {
		return zero, false
	}
	value := rq.data[rq.readIndex]
	rq.data[rq.readIndex] = zero
	rq.readIndex = (rq.readIndex + 1) % len(rq.data)
	rq.count--
	return value, true
}

// Peek returns the front element without removing it
func (rq *RingQueue[T]) Peek() (T, bool) {
	if rq.IsEmpty() {
		var zero T
		return zero, false
	}
	return rq.data[rq.readIndex], true
}

// Clear drops every element and returns how many were dropped.
func (rq *RingQueue[T]) Clear() int {
	n := rq.count
	clear(rq.data)
	rq.readIndex, rq.writeIndex, rq.count = 0, 0, 0
	return n
}

func (rq *RingQueue[T]) Len() int {
	return rq.count
}

func (rq *RingQueue[T]) Cap() int {
	return len(rq.data)
}

// IsEmpty checks if the queue is empty
func (rq *RingQueue[T]) IsEmpty() bool {
	return rq.count == 0
}

// IsFull checks if the queue is full
func (rq *RingQueue[T]) IsFull() bool {
	return rq.count == len(rq.data)
}

func (rq *RingQueue[T]) grow() {
	data := make([]T, 2*len(rq.data))
	for i := 0; i < rq.count; i++ {
		data[i] = rq.data[(rq.readIndex+i)%len(rq.data)]
	}
	rq.data = data
	rq.readIndex = 0
	rq.writeIndex = rq.count
}
