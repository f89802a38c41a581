package engine

import (
	"sync"
)

// DefaultQueueSize is the ring capacity used when none is configured.
const DefaultQueueSize = 1000

// RingBuffer is a fixed-size circular queue.
// It is safe for many writers and a single reader. Enqueue never blocks: when
// the buffer is full the oldest slot is overwritten and the overflow hook fires.
type RingBuffer[T any] struct {
	mu    sync.Mutex
	data  []T
	read  int
	write int
	full  bool
	size  int

	onOverflow func()

	// Metrics
	overflows uint64
}

// NewRingBuffer creates a ring buffer holding up to size items.
// onOverflow may be nil.
func NewRingBuffer[T any](size int, onOverflow func()) *RingBuffer[T] {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &RingBuffer[T]{
		data:       make([]T, size),
		size:       size,
		onOverflow: onOverflow,
	}
}

// Enqueue adds an item to the buffer.
// If the buffer is already full the read cursor jumps to the write cursor, so
// the buffer keeps the newest size items.
func (rb *RingBuffer[T]) Enqueue(item T) {
	rb.mu.Lock()
	rb.data[rb.write] = item
	rb.write = (rb.write + 1) % rb.size
	overflow := false
	if rb.full {
		overflow = true
		rb.overflows++
		rb.read = rb.write
	} else if rb.write == rb.read {
		rb.full = true
	}
	rb.mu.Unlock()

	// Hook runs outside the lock; it must not re-enter the buffer under its own lock.
	if overflow && rb.onOverflow != nil {
		rb.onOverflow()
	}
}

// TryDequeue removes the oldest item. ok is false when the buffer is empty.
func (rb *RingBuffer[T]) TryDequeue() (item T, ok bool) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.read == rb.write && !rb.full {
		return item, false
	}
	item = rb.data[rb.read]
	var zero T
	rb.data[rb.read] = zero // release for GC
	rb.read = (rb.read + 1) % rb.size
	rb.full = false
	return item, true
}

// Len returns the number of items currently in the buffer.
func (rb *RingBuffer[T]) Len() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	if rb.full {
		return rb.size
	}
	return (rb.write - rb.read + rb.size) % rb.size
}

// Cap returns the total size of the buffer.
func (rb *RingBuffer[T]) Cap() int {
	return rb.size
}

// Overflows returns the number of items overwritten before being read.
func (rb *RingBuffer[T]) Overflows() uint64 {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.overflows
}
