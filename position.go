package main

import "math"

// DEFAULT_DEADBAND is the smallest angle change, in raw ticks, that moves the playhead.
const DEFAULT_DEADBAND = 10

// Direction is the sign of playhead motion.
type Direction int

const (
	Backward Direction = -1
	Forward  Direction = 1
)

func (d Direction) String() string {
	if d < 0 {
		return "backward"
	}
	return "forward"
}

// SamplesPerAngleUnit is the number of audio frames one raw angle tick covers.
func SamplesPerAngleUnit(sampleRate int, secondsPerRotation float64) float64 {
	return float64(sampleRate) / ANGLE_MAX * secondsPerRotation
}

// PositionMapper converts angle deltas into playhead moves.
type PositionMapper struct {
	// Deadband suppresses angle deltas smaller than this many ticks.
	Deadband int64
}

// Advance applies deltaAngle to playhead and returns the new playhead, always
// inside [0, frameCount-1]. ok is false when nothing moves: the delta is
// inside the deadband, rounds to zero frames, or pushes against a bound the
// playhead already sits on.
func (m PositionMapper) Advance(deltaAngle int64, playhead int, samplesPerUnit float64, frameCount int) (next int, dir Direction, ok bool) {
	if frameCount <= 0 {
		return playhead, 0, false
	}
	if abs64(deltaAngle) < m.Deadband {
		return playhead, 0, false
	}
	indexDelta := math.Round(float64(deltaAngle) * samplesPerUnit)
	target := float64(playhead) + indexDelta
	switch {
	case target < 0:
		next = 0
	case target > float64(frameCount-1):
		next = frameCount - 1
	default:
		next = int(target)
	}
	if next == playhead {
		return playhead, 0, false
	}
	if next > playhead {
		return next, Forward, true
	}
	return next, Backward, true
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
