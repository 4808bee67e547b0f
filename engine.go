package main

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	log "github.com/golang/glog"
)

// DEFAULT_IDLE_INTERVAL is how long the angle loop waits before checking a
// closed connection again.
const DEFAULT_IDLE_INTERVAL = time.Second

// TokenSource yields raw angle tokens. Connection is the production source.
type TokenSource interface {
	ReadToken() (string, uint64, error)
	Name() string
	CloseGeneration(gen uint64) error
}

// TorqueWriter sends torque commands to the knob.
type TorqueWriter interface {
	WriteTorque(torque int) error
}

// EngineConfig holds the fixed parameters of the scrub pipeline.
type EngineConfig struct {
	TaperFraction  float64
	TorqueLimit    int
	VelocityWindow int
	IdleInterval   time.Duration
}

// Engine turns knob readings into torque commands and scrub chunks.
type Engine struct {
	session   *Session
	queue     *PlaybackQueue
	torque    TorqueWriter
	extractor Extractor
	limit     int
	idle      time.Duration

	// Touched only by the goroutine feeding readings.
	unwrap   Unwrapper
	velocity *VelocityMonitor

	lastRaw    atomic.Int64
	unwrapped  atomic.Int64
	lastTorque atomic.Int64
	readings   atomic.Uint64
	rejected   atomic.Uint64
}

// NewEngine wires an engine to its session, output queue and torque writer.
func NewEngine(session *Session, queue *PlaybackQueue, torque TorqueWriter, cfg EngineConfig) *Engine {
	if cfg.IdleInterval <= 0 {
		cfg.IdleInterval = DEFAULT_IDLE_INTERVAL
	}
	return &Engine{
		session:   session,
		queue:     queue,
		torque:    torque,
		extractor: Extractor{TaperFraction: cfg.TaperFraction},
		limit:     cfg.TorqueLimit,
		idle:      cfg.IdleInterval,
		velocity:  NewVelocityMonitor(cfg.VelocityWindow),
	}
}

// HandleToken runs one serial token through the pipeline. Malformed tokens
// return ErrInvalidReading and leave all state untouched.
func (e *Engine) HandleToken(token string) error {
	raw, err := ParseRawAngle(token)
	if err != nil {
		e.rejected.Add(1)
		return err
	}
	e.readings.Add(1)
	e.lastRaw.Store(int64(raw))

	delta, moved := e.unwrap.Update(raw)
	angle, _ := e.unwrap.Angle()
	e.unwrapped.Store(angle)
	if !moved {
		return nil
	}
	e.velocity.Observe(delta)

	sc, ok := e.session.Scrub(delta)
	if !ok {
		return nil
	}

	env := sc.Track.Envelope.Query(sc.From, sc.To)
	torque := LimitTorque(ComputeTorque(env, sc.Direction, sc.Sensitivity), e.limit)
	if err := e.torque.WriteTorque(torque); err != nil && !errors.Is(err, ErrNotOpen) {
		log.Warningf("torque %d not sent: %v", torque, err)
	}
	e.lastTorque.Store(int64(torque))

	e.queue.Push(e.extractor.Extract(sc.Track.Audio, sc.From, sc.To, sc.Direction))
	log.V(1).Infof("new playhead: %d (%s from %d, torque %d)", sc.To, sc.Direction, sc.From, torque)
	return nil
}

// ResetMotion forgets the previous angle so the next reading starts fresh.
func (e *Engine) ResetMotion() {
	e.unwrap.Reset()
	e.velocity.Reset()
}

// Run reads tokens from src until ctx is cancelled. While src has no open
// port it checks again every idle interval.
func (e *Engine) Run(ctx context.Context, src TokenSource) error {
	var (
		gen     uint64
		started bool
	)
	for ctx.Err() == nil {
		token, g, err := src.ReadToken()
		if !started || g != gen {
			e.ResetMotion()
			gen, started = g, true
		}
		switch {
		case errors.Is(err, ErrNotOpen):
			if src.Name() != "" {
				// Replaced by a new port while reading.
				continue
			}
			select {
			case <-ctx.Done():
			case <-time.After(e.idle):
			}
			continue
		case err != nil:
			if ctx.Err() != nil {
				return nil
			}
			log.Warningf("%v; closing %s", err, src.Name())
			if cerr := src.CloseGeneration(g); cerr != nil {
				log.Warningf("failed to close serial port: %v", cerr)
			}
			continue
		}

		log.V(2).Infof("token %q", token)
		if err := e.HandleToken(token); err != nil {
			log.Warningf("discarding reading: %v", err)
		}
	}
	return nil
}

// Status is a point-in-time view of the engine for the control surface.
type Status struct {
	Port               string
	Track              string
	Frames             int
	Playhead           int
	RawAngle           int
	UnwrappedAngle     int64
	LastTorque         int
	Sensitivity        float64
	SecondsPerRotation float64
	Queued             int
	Readings           uint64
	Rejected           uint64
	VelocityWarnings   int
	DroppedFrames      int64
}

// Status reports the current state. port names the open serial port.
func (e *Engine) Status(port string) Status {
	st := Status{
		Port:               port,
		Playhead:           e.session.Playhead(),
		RawAngle:           int(e.lastRaw.Load()),
		UnwrappedAngle:     e.unwrapped.Load(),
		LastTorque:         int(e.lastTorque.Load()),
		Sensitivity:        e.session.Sensitivity(),
		SecondsPerRotation: e.session.SecondsPerRotation(),
		Queued:             e.queue.Len(),
		Readings:           e.readings.Load(),
		Rejected:           e.rejected.Load(),
		VelocityWarnings:   e.velocity.Warnings(),
	}
	if t := e.session.Track(); t != nil {
		st.Track, st.Frames = t.Name, t.Frames()
	}
	return st
}
