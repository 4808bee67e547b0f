package main

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the full runtime configuration, read from a TOML file.
type Config struct {
	Serial   SerialConfig   `toml:"serial"`
	Scrub    ScrubConfig    `toml:"scrub"`
	Playback PlaybackConfig `toml:"playback"`
	Audio    AudioConfig    `toml:"audio"`
}

type SerialConfig struct {
	// Port is a device path, "auto" to pick the first USB serial device, or
	// empty to start disconnected.
	Port         string   `toml:"port"`
	Baud         int      `toml:"baud"`
	IdleInterval duration `toml:"idle_interval"`
	// ReadTimeout bounds a single port read and so how long closing a
	// silent port takes.
	ReadTimeout  duration `toml:"read_timeout"`
}

type ScrubConfig struct {
	SecondsPerRotation float64 `toml:"seconds_per_rotation"`
	Sensitivity        float64 `toml:"sensitivity"`
	Deadband           int64   `toml:"deadband"`
	TaperFraction      float64 `toml:"taper_fraction"`
	TorqueLimit        int     `toml:"torque_limit"`
	VelocityWindow     int     `toml:"velocity_window"`
}

type PlaybackConfig struct {
	DrainInterval   duration `toml:"drain_interval"`
	FramesPerBuffer int      `toml:"frames_per_buffer"`
	QueueDepth      int      `toml:"queue_depth"`
	Record          string   `toml:"record"`
}

type AudioConfig struct {
	File string `toml:"file"`
}

// duration decodes TOML strings such as "10ms".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("bad duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Serial: SerialConfig{
			Baud:         DEFAULT_BAUD,
			IdleInterval: duration{DEFAULT_IDLE_INTERVAL},
			ReadTimeout:  duration{DEFAULT_READ_TIMEOUT},
		},
		Scrub: ScrubConfig{
			SecondsPerRotation: 1,
			Sensitivity:        5000,
			Deadband:           DEFAULT_DEADBAND,
			TaperFraction:      DEFAULT_TAPER_FRACTION,
			VelocityWindow:     8,
		},
		Playback: PlaybackConfig{
			DrainInterval:   duration{DEFAULT_DRAIN_INTERVAL},
			FramesPerBuffer: 512,
			QueueDepth:      64,
		},
	}
}

// ParseFromFile reads the TOML file at file on top of the defaults.
func ParseFromFile(file string) (*Config, error) {
	bs, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file at %q: %w", file, err)
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(bs, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse Config from TOML file %q: %w", file, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config in %q: %w", file, err)
	}
	return cfg, nil
}

// Validate reports the first out of range setting.
func (c *Config) Validate() error {
	switch {
	case c.Serial.Baud <= 0:
		return fmt.Errorf("serial.baud must be positive, got %d", c.Serial.Baud)
	case c.Serial.IdleInterval.Duration <= 0:
		return fmt.Errorf("serial.idle_interval must be positive, got %v", c.Serial.IdleInterval)
	case c.Serial.ReadTimeout.Duration <= 0:
		return fmt.Errorf("serial.read_timeout must be positive, got %v", c.Serial.ReadTimeout)
	case c.Scrub.SecondsPerRotation < MIN_SECONDS_PER_ROTATION || c.Scrub.SecondsPerRotation > MAX_SECONDS_PER_ROTATION:
		return fmt.Errorf("scrub.seconds_per_rotation must be in [%d, %d], got %v",
			MIN_SECONDS_PER_ROTATION, MAX_SECONDS_PER_ROTATION, c.Scrub.SecondsPerRotation)
	case c.Scrub.Sensitivity < MIN_SENSITIVITY || c.Scrub.Sensitivity > MAX_SENSITIVITY:
		return fmt.Errorf("scrub.sensitivity must be in [%d, %d], got %v",
			MIN_SENSITIVITY, MAX_SENSITIVITY, c.Scrub.Sensitivity)
	case c.Scrub.Deadband < 0:
		return fmt.Errorf("scrub.deadband must not be negative, got %d", c.Scrub.Deadband)
	case c.Scrub.TaperFraction < 0 || c.Scrub.TaperFraction >= 0.5:
		return fmt.Errorf("scrub.taper_fraction must be in [0, 0.5), got %v", c.Scrub.TaperFraction)
	case c.Scrub.TorqueLimit < 0:
		return fmt.Errorf("scrub.torque_limit must not be negative, got %d", c.Scrub.TorqueLimit)
	case c.Playback.DrainInterval.Duration <= 0:
		return fmt.Errorf("playback.drain_interval must be positive, got %v", c.Playback.DrainInterval)
	}
	return nil
}
