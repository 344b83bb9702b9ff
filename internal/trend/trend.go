// Package trend derives a rise/fall signal from a station's reading history.
package trend

import (
	"math"

	"github.com/chrissnell/tidewatch/internal/types"
)

// Direction is the classified movement of the water height
type Direction string

const (
	Rising  Direction = "rising"
	Falling Direction = "falling"
	Steady  Direction = "steady"
)

const (
	// jitterTolerance is the minimum absolute difference for a prior reading
	// to count as a different value while searching for a reference.
	jitterTolerance = 0.001

	// classifyThreshold is the rounded delta, in meters, that must be
	// exceeded before the trend is reported as rising or falling.
	classifyThreshold = 0.02
)

// Result is the derived trend for a history snapshot. Delta is always 0 when
// the direction is Steady.
type Result struct {
	Direction Direction `json:"direction"`
	Delta     float64   `json:"delta"`
}

// Icon returns the arrow shown next to the trend on the dashboard.
func (r Result) Icon() string {
	switch r.Direction {
	case Rising:
		return "⬆️"
	case Falling:
		return "⬇️"
	default:
		return "↔️"
	}
}

// Spanish returns the direction word used by the public dashboard.
func (r Result) Spanish() string {
	switch r.Direction {
	case Rising:
		return "subiendo"
	case Falling:
		return "bajando"
	default:
		return "estable"
	}
}

// Compute classifies the trend of history, which must be in chronological
// order. It never fails; short or flat histories are reported as steady.
func Compute(history []types.Reading) Result {
	steady := Result{Direction: Steady, Delta: 0}

	if len(history) < 2 {
		return steady
	}

	current := history[len(history)-1].Height

	// Walk backwards from the second-to-last reading looking for the first
	// value that is really different from the current one.
	var reference float64
	found := false
	for i := len(history) - 2; i >= 0; i-- {
		if math.Abs(history[i].Height-current) > jitterTolerance {
			reference = history[i].Height
			found = true
			break
		}
	}

	// Fallbacks are evaluated in this order: oldest reading, then the
	// second-to-last one.
	if !found && len(history) > 1 {
		reference = history[0].Height
		found = true
	}
	if !found && len(history) >= 2 {
		reference = history[len(history)-2].Height
	}

	delta := round2(current - reference)

	switch {
	case delta > classifyThreshold:
		return Result{Direction: Rising, Delta: delta}
	case delta < -classifyThreshold:
		return Result{Direction: Falling, Delta: delta}
	default:
		return steady
	}
}

// round2 rounds v to two decimal places
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
