package trend

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/chrissnell/tidewatch/internal/types"
)

// Rate fits a least-squares line through the most recent window readings and
// returns its slope in meters per hour. It returns 0 when fewer than two
// readings are available or when all readings share the same timestamp.
func Rate(history []types.Reading, window int) float64 {
	if window > 0 && len(history) > window {
		history = history[len(history)-window:]
	}
	if len(history) < 2 {
		return 0
	}

	origin := history[0].RecordedAt
	xs := make([]float64, len(history))
	ys := make([]float64, len(history))
	for i, r := range history {
		xs[i] = r.RecordedAt.Sub(origin).Hours()
		ys[i] = r.Height
	}

	if stat.Variance(xs, nil) == 0 {
		return 0
	}

	_, beta := stat.LinearRegression(xs, ys, nil, false)
	if math.IsNaN(beta) || math.IsInf(beta, 0) {
		return 0
	}
	return math.Round(beta*1000) / 1000
}
