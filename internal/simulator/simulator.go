// Package simulator generates synthetic water heights: a semi-diurnal tide
// whose range follows the moon phase, plus an optional storm surge bump.
package simulator

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/chrissnell/tidewatch/pkg/lunar"
)

// M2 is the period of the principal lunar semi-diurnal constituent
const M2 = 12*time.Hour + 25*time.Minute + 14*time.Second

// Config describes the synthetic curve
type Config struct {
	Start     time.Time
	Step      time.Duration
	MeanLevel float64
	Amplitude float64
	Noise     float64
	Seed      int64

	// SurgeHeight is added at the middle of the surge window. Zero disables
	// the surge.
	SurgeHeight   float64
	SurgeOffset   time.Duration
	SurgeDuration time.Duration

	// Location is used to format reading labels
	Location *time.Location
}

// DefaultConfig returns a curve that oscillates around 1.0 m and brings a
// 1.4 m surge that starts six hours in, enough to cross the 2.0 m threshold
func DefaultConfig(start time.Time) Config {
	return Config{
		Start:         start,
		Step:          10 * time.Minute,
		MeanLevel:     1.0,
		Amplitude:     0.6,
		Noise:         0.02,
		Seed:          1,
		SurgeHeight:   1.4,
		SurgeOffset:   6 * time.Hour,
		SurgeDuration: 18 * time.Hour,
		Location:      time.Local,
	}
}

// Sample is one generated reading
type Sample struct {
	Height     float64   `json:"height"`
	Label      string    `json:"label"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Generator walks the curve one step at a time. It is not safe for
// concurrent use.
type Generator struct {
	cfg  Config
	rng  *rand.Rand
	step int
}

// New validates c and returns a Generator positioned at c.Start
func New(c Config) (*Generator, error) {
	if c.Step <= 0 {
		return nil, fmt.Errorf("simulator: step must be positive, got %v", c.Step)
	}
	if c.Amplitude < 0 || c.Noise < 0 || c.SurgeHeight < 0 {
		return nil, fmt.Errorf("simulator: amplitude, noise and surge height must not be negative")
	}
	if c.SurgeHeight > 0 && c.SurgeDuration <= 0 {
		return nil, fmt.Errorf("simulator: a surge needs a positive duration")
	}
	if c.Location == nil {
		c.Location = time.Local
	}
	return &Generator{cfg: c, rng: rand.New(rand.NewSource(c.Seed))}, nil
}

// Next returns the next sample and advances the generator
func (g *Generator) Next() Sample {
	at := g.cfg.Start.Add(time.Duration(g.step) * g.cfg.Step)
	g.step++

	h := g.HeightAt(at)
	if g.cfg.Noise > 0 {
		h += (g.rng.Float64()*2 - 1) * g.cfg.Noise
	}

	return Sample{
		Height:     round2(math.Max(0, h)),
		Label:      at.In(g.cfg.Location).Format("15:04"),
		RecordedAt: at,
	}
}

// HeightAt returns the noiseless height at t
func (g *Generator) HeightAt(t time.Time) float64 {
	return g.TideAt(t) + g.SurgeAt(t)
}

// TideAt returns the astronomical component at t. Spring tides widen the
// range and neap tides narrow it.
func (g *Generator) TideAt(t time.Time) float64 {
	elapsed := t.Sub(g.cfg.Start).Seconds()
	amp := g.cfg.Amplitude * rangeFactor(lunar.Calculate(t).TideRange)
	return g.cfg.MeanLevel + amp*math.Sin(2*math.Pi*elapsed/M2.Seconds())
}

// SurgeAt returns the meteorological component at t, a sin² bump over the
// surge window
func (g *Generator) SurgeAt(t time.Time) float64 {
	if g.cfg.SurgeHeight == 0 {
		return 0
	}
	into := t.Sub(g.cfg.Start.Add(g.cfg.SurgeOffset))
	if into < 0 || into > g.cfg.SurgeDuration {
		return 0
	}
	s := math.Sin(math.Pi * into.Seconds() / g.cfg.SurgeDuration.Seconds())
	return g.cfg.SurgeHeight * s * s
}

func rangeFactor(tr lunar.TideRange) float64 {
	switch tr {
	case lunar.TideSpring:
		return 1.2
	case lunar.TideNeap:
		return 0.8
	default:
		return 1.0
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
