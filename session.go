package main

import (
	"errors"
	"sync"

	"github.com/go-audio/audio"
)

// Ranges exposed to the user for the scrub parameters.
const (
	MIN_SENSITIVITY          = 0
	MAX_SENSITIVITY          = 25000
	MIN_SECONDS_PER_ROTATION = 1
	MAX_SECONDS_PER_ROTATION = 3
)

// ErrNoTrack is returned when an operation needs audio and none is loaded.
var ErrNoTrack = errors.New("no audio loaded")

// Track is a loaded audio source and its envelope. It is never modified
// after construction.
type Track struct {
	Name     string
	Audio    *audio.IntBuffer
	Envelope Envelope
}

// NewTrack computes the envelope for buf.
func NewTrack(name string, buf *audio.IntBuffer) *Track {
	return &Track{Name: name, Audio: buf, Envelope: BuildEnvelope(buf)}
}

// Frames returns the number of frames in the track.
func (t *Track) Frames() int {
	return t.Audio.NumFrames()
}

// Scrub describes one playhead move produced by Session.Scrub.
type Scrub struct {
	Track       *Track
	From, To    int
	Direction   Direction
	Sensitivity float64
}

// Session owns the state shared between the angle loop and the user: the
// loaded track, the playhead into it, and the scrub parameters.
type Session struct {
	mapper PositionMapper

	mu                 sync.Mutex
	track              *Track
	playhead           int
	sensitivity        float64
	secondsPerRotation float64
}

// NewSession returns an empty session.
func NewSession(deadband int64, sensitivity, secondsPerRotation float64) *Session {
	s := &Session{mapper: PositionMapper{Deadband: deadband}}
	s.SetSensitivity(sensitivity)
	s.SetSecondsPerRotation(secondsPerRotation)
	return s
}

// Load replaces the track and rewinds the playhead in one step.
func (s *Session) Load(t *Track) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.track = t
	s.playhead = 0
}

// Unload drops the current track.
func (s *Session) Unload() {
	s.Load(nil)
}

// Track returns the loaded track, or nil.
func (s *Session) Track() *Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.track
}

// Playhead returns the current frame index.
func (s *Session) Playhead() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playhead
}

// Seek moves the playhead to frame, clamped to the track, without producing
// audio or torque.
func (s *Session) Seek(frame int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.track == nil || s.track.Audio == nil {
		return 0, ErrNoTrack
	}
	s.playhead = min(max(frame, 0), max(s.track.Frames()-1, 0))
	return s.playhead, nil
}

// SetSensitivity sets the torque multiplier, clamped to the user range.
func (s *Session) SetSensitivity(v float64) {
	v = min(max(v, MIN_SENSITIVITY), MAX_SENSITIVITY)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sensitivity = v
}

func (s *Session) Sensitivity() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sensitivity
}

// SetSecondsPerRotation sets how much audio one knob turn covers, clamped
// to the user range.
func (s *Session) SetSecondsPerRotation(v float64) {
	v = min(max(v, MIN_SECONDS_PER_ROTATION), MAX_SECONDS_PER_ROTATION)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secondsPerRotation = v
}

func (s *Session) SecondsPerRotation() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.secondsPerRotation
}

// Scrub moves the playhead by deltaAngle ticks. ok is false when no track is
// loaded or the move is a no-op.
func (s *Session) Scrub(deltaAngle int64) (Scrub, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.track == nil || s.track.Audio == nil || s.track.Audio.Format == nil {
		return Scrub{}, false
	}
	spu := SamplesPerAngleUnit(s.track.Audio.Format.SampleRate, s.secondsPerRotation)
	next, dir, ok := s.mapper.Advance(deltaAngle, s.playhead, spu, s.track.Frames())
	if !ok {
		return Scrub{}, false
	}
	sc := Scrub{
		Track:       s.track,
		From:        s.playhead,
		To:          next,
		Direction:   dir,
		Sensitivity: s.sensitivity,
	}
	s.playhead = next
	return sc, true
}
