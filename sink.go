package main

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	log "github.com/golang/glog"
	"github.com/gordonklaus/portaudio"
)

// PortAudioSink plays buffers on the default output device. Play queues the
// buffer for a writer goroutine and returns immediately.
type PortAudioSink struct {
	framesPerBuffer int

	// mu protects closed and sends on reqs.
	mu     sync.Mutex
	closed bool
	reqs   chan *audio.IntBuffer
	done   chan struct{}

	dropped atomic.Int64

	// Owned by the writer goroutine.
	stream     *portaudio.Stream
	out        []float32
	channels   int
	sampleRate int
}

// NewPortAudioSink initializes portaudio and starts the writer goroutine.
// depth bounds the number of buffers waiting to be written.
func NewPortAudioSink(framesPerBuffer, depth int) (*PortAudioSink, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}
	if framesPerBuffer <= 0 {
		framesPerBuffer = 512
	}
	if depth <= 0 {
		depth = 64
	}
	s := &PortAudioSink{
		framesPerBuffer: framesPerBuffer,
		reqs:            make(chan *audio.IntBuffer, depth),
		done:            make(chan struct{}),
	}
	go s.run()
	return s, nil
}

// Play implements Sink. Buffers arriving while the backlog is full are dropped.
func (s *PortAudioSink) Play(buf *audio.IntBuffer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.reqs <- buf:
	default:
		s.dropped.Add(int64(buf.NumFrames()))
		log.Warningf("audio output backlog full, dropping %d frames", buf.NumFrames())
	}
}

// DroppedFrames implements DropCounter.
func (s *PortAudioSink) DroppedFrames() int64 {
	return s.dropped.Load()
}

// Close stops the writer, closes the stream and terminates portaudio.
func (s *PortAudioSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.reqs)
	s.mu.Unlock()

	<-s.done
	return portaudio.Terminate()
}

func (s *PortAudioSink) run() {
	defer close(s.done)
	defer s.closeStream()
	for buf := range s.reqs {
		if err := s.write(buf); err != nil {
			log.Errorf("failed to play %d frames: %v", buf.NumFrames(), err)
			s.closeStream()
		}
	}
}

func (s *PortAudioSink) write(buf *audio.IntBuffer) error {
	channels := max(buf.Format.NumChannels, 1)
	if s.stream == nil || channels != s.channels || buf.Format.SampleRate != s.sampleRate {
		if err := s.openStream(channels, buf.Format.SampleRate); err != nil {
			return err
		}
	}
	_, hi, mid := sampleRange(buf.SourceBitDepth)
	scale := float32(hi-mid) + 1
	for off := 0; off < len(buf.Data); off += len(s.out) {
		n := copyScaled(s.out, buf.Data[off:], mid, scale)
		clear(s.out[n:])
		if err := s.stream.Write(); err != nil && !errors.Is(err, portaudio.OutputUnderflowed) {
			return fmt.Errorf("failed to write to output stream: %w", err)
		}
	}
	return nil
}

func copyScaled(dst []float32, src []int, mid int, scale float32) int {
	n := min(len(dst), len(src))
	for i := range n {
		dst[i] = float32(src[i]-mid) / scale
	}
	return n
}

func (s *PortAudioSink) openStream(channels, sampleRate int) error {
	s.closeStream()
	out := make([]float32, s.framesPerBuffer*channels)
	stream, err := portaudio.OpenDefaultStream(0, channels, float64(sampleRate), s.framesPerBuffer, out)
	if err != nil {
		return fmt.Errorf("failed to open %d Hz output with %d channels: %w", sampleRate, channels, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to start output stream: %w", err)
	}
	log.Infof("opened audio output at %d Hz, %d channel(s)", sampleRate, channels)
	s.stream, s.out, s.channels, s.sampleRate = stream, out, channels, sampleRate
	return nil
}

func (s *PortAudioSink) closeStream() {
	if s.stream == nil {
		return
	}
	if err := s.stream.Stop(); err != nil {
		log.Warningf("failed to stop output stream: %v", err)
	}
	if err := s.stream.Close(); err != nil {
		log.Warningf("failed to close output stream: %v", err)
	}
	s.stream = nil
}

// WAVRecorder writes every played buffer to a WAV file. The file format is
// fixed by the first buffer; later buffers in another format are skipped.
type WAVRecorder struct {
	path string

	mu     sync.Mutex
	f      *os.File
	enc    *wav.Encoder
	format *audio.IntBuffer

	skipped atomic.Int64
}

// NewWAVRecorder creates the output file at path.
func NewWAVRecorder(path string) (*WAVRecorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create recording %q: %w", path, err)
	}
	return &WAVRecorder{path: path, f: f}, nil
}

// Play implements Sink.
func (r *WAVRecorder) Play(buf *audio.IntBuffer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.f == nil {
		return
	}
	if r.enc == nil {
		depth := buf.SourceBitDepth
		if depth <= 0 {
			depth = 16
		}
		r.enc = wav.NewEncoder(r.f, buf.Format.SampleRate, depth, max(buf.Format.NumChannels, 1), 1)
		r.format = buf
	} else if !sameFormat(r.format, buf) {
		r.skipped.Add(int64(buf.NumFrames()))
		log.Warningf("recording %q: skipping %d frames in a different format", r.path, buf.NumFrames())
		return
	}
	if err := r.enc.Write(buf); err != nil {
		log.Errorf("recording %q: %v", r.path, err)
	}
}

// DroppedFrames implements DropCounter. It counts frames skipped for being
// in a different format.
func (r *WAVRecorder) DroppedFrames() int64 {
	return r.skipped.Load()
}

// Close finalizes the WAV header and closes the file.
func (r *WAVRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.f == nil {
		return nil
	}
	var errs []error
	if r.enc != nil {
		errs = append(errs, r.enc.Close())
	}
	errs = append(errs, r.f.Close())
	r.f, r.enc = nil, nil
	return errors.Join(errs...)
}

// MultiSink plays every buffer on each of its sinks in order.
type MultiSink []Sink

// Play implements Sink.
func (m MultiSink) Play(buf *audio.IntBuffer) {
	for _, s := range m {
		s.Play(buf)
	}
}

// DroppedFrames implements DropCounter, summing over the sinks that drop.
func (m MultiSink) DroppedFrames() int64 {
	var n int64
	for _, s := range m {
		if dc, ok := s.(DropCounter); ok {
			n += dc.DroppedFrames()
		}
	}
	return n
}
