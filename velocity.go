package main

import (
	"sync/atomic"

	log "github.com/golang/glog"
)

// velocityWarnRatio is the share of a quarter turn per reading at which the
// unwrap heuristic is considered at risk.
const velocityWarnRatio = 0.75

// VelocityMonitor watches recent knob speed and warns when it approaches the
// quarter turn per reading the angle unwrapper can follow. It only reports;
// the unwrap result is not corrected.
type VelocityMonitor struct {
	recent   *RingBuffer
	limit    float64
	tripped  bool
	warnings atomic.Int64
}

// NewVelocityMonitor averages over the last window readings.
func NewVelocityMonitor(window int) *VelocityMonitor {
	return &VelocityMonitor{
		recent: NewRingBuffer(max(window, 1)),
		limit:  quarterTurn * velocityWarnRatio,
	}
}

// Observe records one angle delta. It returns true when this reading pushed
// the recent average over the limit.
func (m *VelocityMonitor) Observe(delta int64) bool {
	m.recent.Insert(int(abs64(delta)))
	if !m.recent.Full() {
		return false
	}
	avg, err := m.recent.Average()
	if err != nil {
		return false
	}
	over := avg > m.limit
	trip := over && !m.tripped
	m.tripped = over
	if trip {
		m.warnings.Add(1)
		log.Warningf("knob moving %.0f ticks per reading on average; above %d the angle unwrap is unreliable", avg, quarterTurn)
	}
	return trip
}

// Warnings returns how many times the monitor has tripped.
func (m *VelocityMonitor) Warnings() int {
	return int(m.warnings.Load())
}

// Reset forgets the recorded motion.
func (m *VelocityMonitor) Reset() {
	m.recent.Reset()
	m.tripped = false
}
