// Package prediction estimates the downstream surge peak from the peak
// measured at the upstream station, using fixed height and time offsets.
package prediction

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Config describes the downstream station and its empirical offsets
type Config struct {
	Name         string        `yaml:"name"`
	HeightOffset float64       `yaml:"height_offset"`
	TimeOffset   time.Duration `yaml:"time_offset"`
}

// DefaultConfig returns the Tigre offsets: +0.35 m, +3h30m after the
// Pilote Norden peak.
func DefaultConfig() Config {
	return Config{
		Name:         "Tigre",
		HeightOffset: 0.35,
		TimeOffset:   3*time.Hour + 30*time.Minute,
	}
}

// Peak is the upstream peak a prediction is derived from
type Peak struct {
	Height     float64
	ObservedAt string
}

// Prediction is the downstream estimate. When Available is false only
// Message is meaningful. Approximate is set when the peak label could not be
// parsed and Time carries a textual approximation instead of HH:MM.
type Prediction struct {
	Available   bool    `json:"available"`
	Station     string  `json:"station,omitempty"`
	Height      float64 `json:"height,omitempty"`
	Time        string  `json:"time,omitempty"`
	Approximate bool    `json:"approximate,omitempty"`
	Message     string  `json:"message"`
}

// Engine maps an upstream peak to a downstream estimate
type Engine struct {
	cfg Config
}

// NewEngine creates a prediction engine for the given downstream station
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Station returns the downstream station name
func (e *Engine) Station() string {
	return e.cfg.Name
}

// Predict estimates the downstream height and time for peak. It never fails:
// a peak that was never recorded yields an unavailable prediction and an
// unparseable label yields an approximate time.
func (e *Engine) Predict(peak Peak) Prediction {
	if peak.Height <= 0 {
		return Prediction{
			Available: false,
			Station:   e.cfg.Name,
			Message:   "No hay eventos registrados: predicción no disponible",
		}
	}

	height := math.Round((peak.Height+e.cfg.HeightOffset)*100) / 100

	p := Prediction{
		Available: true,
		Station:   e.cfg.Name,
		Height:    height,
	}

	if t, ok := parseTimeOfDay(peak.ObservedAt); ok {
		p.Time = t.Add(e.cfg.TimeOffset).Format("15:04")
	} else {
		p.Time = fmt.Sprintf("~%s + %s", strings.TrimSpace(peak.ObservedAt), formatOffset(e.cfg.TimeOffset))
		p.Approximate = true
	}

	p.Message = fmt.Sprintf("%s: ~%sm para las %s", e.cfg.Name, formatHeight(height), p.Time)
	return p
}

// formatOffset renders a duration as fractional hours, e.g. "3.5h"
func formatOffset(d time.Duration) string {
	return strconv.FormatFloat(d.Hours(), 'f', -1, 64) + "h"
}

// formatHeight renders a height without trailing zeros, e.g. 2.4 or 2.45
func formatHeight(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64)
}
