package main

import "math"

// NEUTRAL_TORQUE releases the knob motor.
const NEUTRAL_TORQUE = 0

// Mean returns the arithmetic mean of v, or 0 for an empty slice.
func Mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	var sum float64
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

// ComputeTorque returns the feedback command for a traversal of env in dir.
// The command opposes the motion and grows with loudness and sensitivity.
func ComputeTorque(env []float64, dir Direction, sensitivity float64) int {
	return int(math.Round(Mean(env) * sensitivity * float64(dir) * -1))
}

// LimitTorque clamps t to [-limit, limit]. A limit of 0 or less disables it.
func LimitTorque(t, limit int) int {
	if limit <= 0 {
		return t
	}
	return min(max(t, -limit), limit)
}
