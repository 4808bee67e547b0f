package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ANGLE_MAX is the encoder modulus: one full turn in tenths of a degree.
const ANGLE_MAX = 3600

const (
	quarterTurn       = ANGLE_MAX / 4
	threeQuarterTurns = quarterTurn * 3
)

// ErrInvalidReading is returned for serial tokens that are not a raw angle.
var ErrInvalidReading = errors.New("invalid angle reading")

// ParseRawAngle parses a single serial token into a raw angle in [0, ANGLE_MAX).
func ParseRawAngle(token string) (int, error) {
	s := strings.TrimSpace(token)
	if s == "" {
		return 0, fmt.Errorf("%w: empty token", ErrInvalidReading)
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", ErrInvalidReading, s)
	}
	if v < 0 || v >= ANGLE_MAX {
		return 0, fmt.Errorf("%w: %d outside [0, %d)", ErrInvalidReading, v, ANGLE_MAX)
	}
	return v, nil
}

// Unwrapper turns modular encoder readings into a continuous angle.
//
// A wrap is detected by quadrant: moving from the fourth quadrant into the
// first crosses zero upward, the reverse crosses it downward. Motion of more
// than a quarter turn between two readings is unwrapped incorrectly.
type Unwrapper struct {
	unwrapped int64
	valid     bool
}

// Unwrap returns the unwrapped angle for raw given the previous unwrapped
// angle. Without a previous angle the raw value is the starting point.
func Unwrap(raw int, prev int64, hasPrev bool) int64 {
	if !hasPrev {
		return int64(raw)
	}
	prevRaw := int(((prev % ANGLE_MAX) + ANGLE_MAX) % ANGLE_MAX)
	delta := int64(raw - prevRaw)
	switch {
	case raw < quarterTurn && prevRaw > threeQuarterTurns:
		delta += ANGLE_MAX
	case raw > threeQuarterTurns && prevRaw < quarterTurn:
		delta -= ANGLE_MAX
	}
	return prev + delta
}

// Update feeds a raw reading and returns the displacement from the previous
// reading. moved is false for the first reading after a reset.
func (u *Unwrapper) Update(raw int) (delta int64, moved bool) {
	next := Unwrap(raw, u.unwrapped, u.valid)
	if !u.valid {
		u.unwrapped, u.valid = next, true
		return 0, false
	}
	delta = next - u.unwrapped
	u.unwrapped = next
	return delta, true
}

// Angle returns the current unwrapped angle and whether one is known.
func (u *Unwrapper) Angle() (int64, bool) {
	return u.unwrapped, u.valid
}

// Reset forgets the previous reading.
func (u *Unwrapper) Reset() {
	u.unwrapped, u.valid = 0, false
}
