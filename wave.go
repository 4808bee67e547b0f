package main

import (
	"fmt"
	"math"
	"sync"

	"github.com/go-audio/audio"
)

// DEFAULT_SAMPLE_RATE is a good sample rate since it is at least twice as much as 20kHz,
// the upper bound for human hearing.
const DEFAULT_SAMPLE_RATE = 44100

// Sine represents a sine wave.
type Sine struct {
	freq       float64
	sampleRate float64

	currentAngle float64
	// mu protects volume.
	mu sync.Mutex
	// The volume or amplitude of this sine wave. A real number in [0, 1].
	volume float64
}

// NewSineWave returns a new Sine wave.
func NewSineWave(freq, sampleRate, initialVolume float64) *Sine {
	return &Sine{
		freq:         freq,
		sampleRate:   sampleRate,
		currentAngle: 0,
		volume:       initialVolume,
	}
}

func (s *Sine) angleDelta() float64 {
	return 2 * math.Pi * s.freq / s.sampleRate
}

// Fill populates the buffer with sine wave data, applying its volume.
func (s *Sine) Fill(buf []float64) {
	s.mu.Lock()
	vol := s.volume
	s.mu.Unlock()

	for i := range buf {
		buf[i] = s.Next() * vol
	}
}

// SetVolume provides a thread-safe way to update the sine wave's volume.
func (s *Sine) SetVolume(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = min(max(v, 0), 1)
}

// Next generates and returns the next single sample, without regard for the volume.
func (s *Sine) Next() float64 {
	sample := math.Sin(s.currentAngle)
	s.currentAngle += s.angleDelta()
	return sample
}

// toneBlock is the number of frames rendered between volume updates.
const toneBlock = 256

// ToneTrack renders a 16-bit mono test tone whose loudness swells from
// silence to full scale and back, so scrubbing it gives varying torque.
func ToneTrack(freq, seconds float64, sampleRate int) (*Track, error) {
	if freq <= 0 || seconds <= 0 || sampleRate <= 0 {
		return nil, fmt.Errorf("bad tone parameters: %v Hz for %v s at %d Hz", freq, seconds, sampleRate)
	}
	frames := int(seconds * float64(sampleRate))
	if frames == 0 {
		return nil, fmt.Errorf("tone of %v s at %d Hz has no frames", seconds, sampleRate)
	}
	sine := NewSineWave(freq, float64(sampleRate), 0)
	block := make([]float64, toneBlock)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           make([]int, frames),
		SourceBitDepth: 16,
	}
	_, hi, _ := sampleRange(16)
	for off := 0; off < frames; off += toneBlock {
		sine.SetVolume(math.Sin(math.Pi * float64(off) / float64(frames)))
		n := min(toneBlock, frames-off)
		sine.Fill(block[:n])
		for i, v := range block[:n] {
			buf.Data[off+i] = int(math.Round(v * float64(hi)))
		}
	}
	return NewTrack(fmt.Sprintf("tone %g Hz", freq), buf), nil
}
