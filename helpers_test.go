package main

import (
	"bytes"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/go-audio/audio"
)

// rampBuffer returns a mono 16-bit buffer whose sample i holds i.
func rampBuffer(frames, sampleRate int) *audio.IntBuffer {
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           make([]int, frames),
		SourceBitDepth: 16,
	}
	for i := range buf.Data {
		buf.Data[i] = i % 32768
	}
	return buf
}

// constantTrack returns a track with a flat envelope of value v.
func constantTrack(frames, sampleRate int, v float64) *Track {
	env := make(Envelope, frames)
	for i := range env {
		env[i] = v
	}
	return &Track{Name: "ramp", Audio: rampBuffer(frames, sampleRate), Envelope: env}
}

// recordingSink keeps every buffer handed to Play.
type recordingSink struct {
	mu   sync.Mutex
	bufs []*audio.IntBuffer
}

func (s *recordingSink) Play(buf *audio.IntBuffer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bufs = append(s.bufs, buf)
}

func (s *recordingSink) played() []*audio.IntBuffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*audio.IntBuffer(nil), s.bufs...)
}

// torqueLog records torque commands.
type torqueLog struct {
	mu     sync.Mutex
	values []int
	err    error
}

func (l *torqueLog) WriteTorque(t int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.values = append(l.values, t)
	return nil
}

func (l *torqueLog) sent() []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]int(nil), l.values...)
}

// fakePort is a serial port fed through a pipe. Writes are captured.
type fakePort struct {
	r *io.PipeReader
	w *io.PipeWriter

	mu      sync.Mutex
	written bytes.Buffer
	closed  bool
}

func newFakePort() *fakePort {
	r, w := io.Pipe()
	return &fakePort{r: r, w: w}
}

func (p *fakePort) Read(b []byte) (int, error) { return p.r.Read(b) }

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.Write(b)
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return p.r.Close()
}

func (p *fakePort) output() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.String()
}

func (p *fakePort) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// fakeOpener hands out the given ports in order.
func fakeOpener(ports ...*fakePort) Opener {
	var mu sync.Mutex
	return func(name string, baud int) (io.ReadWriteCloser, error) {
		mu.Lock()
		defer mu.Unlock()
		if len(ports) == 0 {
			return nil, io.ErrUnexpectedEOF
		}
		p := ports[0]
		ports = ports[1:]
		return p, nil
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}
