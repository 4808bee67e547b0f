package main

import (
	"context"
	"time"

	"github.com/go-audio/audio"
	log "github.com/golang/glog"
)

// DEFAULT_DRAIN_INTERVAL is how often queued scrub chunks are flushed to the sink.
const DEFAULT_DRAIN_INTERVAL = 10 * time.Millisecond

// Sink plays audio asynchronously. Play must not wait for playback to end.
type Sink interface {
	Play(buf *audio.IntBuffer)
}

// DropCounter is implemented by sinks that discard audio they cannot keep
// up with.
type DropCounter interface {
	DroppedFrames() int64
}

// Drainer periodically coalesces queued chunks into one buffer per format
// and hands it to the sink.
type Drainer struct {
	queue    *PlaybackQueue
	sink     Sink
	interval time.Duration
}

// NewDrainer returns a Drainer polling queue every interval.
func NewDrainer(queue *PlaybackQueue, sink Sink, interval time.Duration) *Drainer {
	if interval <= 0 {
		interval = DEFAULT_DRAIN_INTERVAL
	}
	return &Drainer{queue: queue, sink: sink, interval: interval}
}

// Run drains the queue until ctx is cancelled.
func (d *Drainer) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			d.DrainOnce()
		}
	}
}

// DrainOnce submits everything currently queued and returns the number of
// frames submitted. Chunks are concatenated in pop order; a change of format
// between consecutive chunks starts a new submission.
func (d *Drainer) DrainOnce() int {
	chunks := d.queue.PopAll()
	if len(chunks) == 0 {
		return 0
	}
	var (
		acc    *audio.IntBuffer
		frames int
	)
	flush := func() {
		if acc == nil {
			return
		}
		n := acc.NumFrames()
		log.V(1).Infof("playing buffer of %d frames", n)
		d.sink.Play(acc)
		frames += n
		acc = nil
	}
	for _, c := range chunks {
		if acc != nil && !sameFormat(acc, c) {
			flush()
		}
		if acc == nil {
			acc = &audio.IntBuffer{
				Format:         &audio.Format{NumChannels: c.Format.NumChannels, SampleRate: c.Format.SampleRate},
				Data:           make([]int, 0, len(c.Data)),
				SourceBitDepth: c.SourceBitDepth,
			}
		}
		acc.Data = append(acc.Data, c.Data...)
	}
	flush()
	return frames
}

// DroppedFrames returns how many frames the sink has discarded so far.
func (d *Drainer) DroppedFrames() int64 {
	if dc, ok := d.sink.(DropCounter); ok {
		return dc.DroppedFrames()
	}
	return 0
}

func sameFormat(a, b *audio.IntBuffer) bool {
	return a.Format.NumChannels == b.Format.NumChannels &&
		a.Format.SampleRate == b.Format.SampleRate &&
		a.SourceBitDepth == b.SourceBitDepth
}
