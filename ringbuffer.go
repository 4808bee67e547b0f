package main

import "fmt"

// RingBuffer is a circular buffer holding the most recent integer samples.
type RingBuffer struct {
	data  []int
	head  int
	size  int
	count int
}

// NewRingBuffer returns a new RingBuffer.
func NewRingBuffer(size int) *RingBuffer {
	return &RingBuffer{
		data: make([]int, size),
		head: 0,
		size: size,
	}
}

// Insert inserts the new value into the buffer and advances the head.
func (b *RingBuffer) Insert(val int) {
	if b.size < 1 {
		return
	}
	b.data[b.head] = val
	b.head = (b.head + 1) % b.size
	b.count = min(b.count+1, b.size)
}

// Get returns the value at index relative to the oldest held value.
func (b *RingBuffer) Get(index int) int {
	start := (b.head - b.count + b.size) % b.size
	return b.data[(start+index)%b.size]
}

// Len returns how many values are held, at most the buffer size.
func (b *RingBuffer) Len() int {
	return b.count
}

// Full reports whether every slot has been written.
func (b *RingBuffer) Full() bool {
	return b.size > 0 && b.count == b.size
}

// Reset empties the buffer.
func (b *RingBuffer) Reset() {
	b.head, b.count = 0, 0
}

// Average returns the average of the held values.
func (b *RingBuffer) Average() (float64, error) {
	if b.size < 1 {
		return 0, fmt.Errorf("buffer has bad size < 1: %d", b.size)
	}
	if b.count == 0 {
		return 0, fmt.Errorf("buffer is empty")
	}

	var sum int64
	for i := range b.count {
		sum += int64(b.Get(i))
	}

	return float64(sum) / float64(b.count), nil
}
