package main

import (
	"sync"

	"github.com/go-audio/audio"
)

// PlaybackQueue hands scrub chunks from the angle loop to the drain loop.
//
// Push never blocks on the consumer and never drops; the queue grows until
// the next drain cycle takes everything out.
type PlaybackQueue struct {
	mu      sync.Mutex
	pending []*audio.IntBuffer
}

// NewPlaybackQueue returns an empty queue.
func NewPlaybackQueue() *PlaybackQueue {
	return &PlaybackQueue{}
}

// Push appends a chunk to the tail. The queue takes ownership of c.
func (q *PlaybackQueue) Push(c *audio.IntBuffer) {
	if c == nil {
		return
	}
	q.mu.Lock()
	q.pending = append(q.pending, c)
	q.mu.Unlock()
}

// PopAll removes and returns every queued chunk, oldest first.
func (q *PlaybackQueue) PopAll() []*audio.IntBuffer {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil
	}
	out := q.pending
	q.pending = nil
	return out
}

// Len returns the number of chunks waiting.
func (q *PlaybackQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
