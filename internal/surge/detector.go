// Package surge implements the hysteresis detector that tracks storm-surge
// events at a monitored station.
//
// An event starts when a reading reaches the ON threshold, follows the
// running peak while it lasts, and only ends once a reading below the lower
// OFF threshold arrives more than the cooldown after the last peak. The
// asymmetric band plus the cooldown keep a slowly receding surge that
// oscillates around the threshold from being reported as many events.
package surge

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/chrissnell/tidewatch/internal/types"
)

// Config holds the detector thresholds
type Config struct {
	On       float64       `yaml:"on"`
	Off      float64       `yaml:"off"`
	Cooldown time.Duration `yaml:"cooldown"`
}

// DefaultConfig returns the thresholds used for the Río de la Plata surge
// station: 2.0 m to start, 1.8 m to end, 4 hours of cooldown.
func DefaultConfig() Config {
	return Config{
		On:       2.0,
		Off:      1.8,
		Cooldown: 4 * time.Hour,
	}
}

// Validate checks that the thresholds describe a usable hysteresis band
func (c Config) Validate() error {
	if c.On <= 0 {
		return fmt.Errorf("surge on threshold must be positive, got %v", c.On)
	}
	if c.Off <= 0 || c.Off >= c.On {
		return fmt.Errorf("surge off threshold must be positive and below on threshold (%v), got %v", c.On, c.Off)
	}
	if c.Cooldown < 0 {
		return fmt.Errorf("surge cooldown must not be negative, got %v", c.Cooldown)
	}
	return nil
}

// Event describes a detector transition worth notifying about
type Event struct {
	Kind         types.NotificationKind
	EventID      string
	Height       float64
	PreviousPeak float64
}

// Detector applies the surge state machine. It holds no state of its own;
// the caller owns and persists the SurgeState.
type Detector struct {
	cfg   Config
	newID func() string
}

// NewDetector creates a Detector with the given thresholds
func NewDetector(cfg Config) *Detector {
	return &Detector{
		cfg:   cfg,
		newID: func() string { return uuid.NewString() },
	}
}

// Config returns the detector thresholds
func (d *Detector) Config() Config {
	return d.cfg
}

// Transition feeds reading r, ingested at now, into state and returns the
// resulting state plus the event it produced, if any. r.Height must already
// be validated as finite and non-negative.
func (d *Detector) Transition(state types.SurgeState, r types.Reading, now time.Time) (types.SurgeState, *Event) {
	if !state.Active {
		if r.Height < d.cfg.On {
			return state, nil
		}

		started := now
		next := types.SurgeState{
			Active:         true,
			EventID:        d.newID(),
			PeakHeight:     r.Height,
			PeakObservedAt: r.ObservedAt,
			PeakRecordedAt: now,
			StartedAt:      &started,
		}
		return next, &Event{
			Kind:    types.NotificationSurgeStarted,
			EventID: next.EventID,
			Height:  r.Height,
		}
	}

	switch {
	case r.Height > state.PeakHeight:
		previous := state.PeakHeight
		state.PeakHeight = r.Height
		state.PeakObservedAt = r.ObservedAt
		state.PeakRecordedAt = now
		return state, &Event{
			Kind:         types.NotificationNewPeak,
			EventID:      state.EventID,
			Height:       r.Height,
			PreviousPeak: previous,
		}

	case r.Height >= d.cfg.Off:
		return state, nil

	case now.Sub(state.PeakRecordedAt) <= d.cfg.Cooldown:
		// Below OFF but still inside the grace period after the last peak
		return state, nil

	default:
		state.Active = false
		state.StartedAt = nil
		return state, &Event{
			Kind:    types.NotificationSurgeEnded,
			EventID: state.EventID,
			Height:  r.Height,
		}
	}
}
