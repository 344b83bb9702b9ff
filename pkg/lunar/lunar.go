// Package lunar computes the moon phase from the ecliptic longitudes of the
// Sun and Moon and classifies the tidal range it implies. Accuracy is within
// about 1% illumination, which is far finer than the spring/neap windows need.
package lunar

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
)

// SynodicMonth is the average length of the lunar cycle in days
const SynodicMonth = 29.530588853

// WindowDays is how close to a syzygy or quadrature the moon must be for the
// tide to count as spring or neap
const WindowDays = 2.0

// TideRange classifies the astronomical tide driven by the moon phase
type TideRange string

const (
	TideSpring       TideRange = "sicigia"
	TideNeap         TideRange = "cuadratura"
	TideIntermediate TideRange = "intermedia"
)

// MoonPhase contains calculated moon phase information
type MoonPhase struct {
	Phase        float64   `json:"phase"`        // [0,1): 0=new, 0.5=full
	Elongation   float64   `json:"elongation"`   // Sun to Moon angle in degrees [0,360)
	Illumination float64   `json:"illumination"` // [0,1]
	AgeDays      float64   `json:"age_days"`
	IsWaxing     bool      `json:"is_waxing"`
	PhaseName    string    `json:"phase_name"`
	TideRange    TideRange `json:"tide_range"`
	SpringTide   bool      `json:"spring_tide"`
}

// Calculate computes the moon phase for t
func Calculate(t time.Time) MoonPhase {
	T := julianCenturies(julian.TimeToJD(t.UTC()))

	elongation := normalizeAngle(moonEclipticLongitude(T) - sunEclipticLongitude(T))
	phase := elongation / 360.0
	illumination := (1 - math.Cos(degToRad(elongation))) / 2
	isWaxing := elongation < 180
	tr := tideRange(elongation)

	return MoonPhase{
		Phase:        phase,
		Elongation:   elongation,
		Illumination: illumination,
		AgeDays:      phase * SynodicMonth,
		IsWaxing:     isWaxing,
		PhaseName:    phaseName(illumination, isWaxing),
		TideRange:    tr,
		SpringTide:   tr == TideSpring,
	}
}

// tideRange measures the distance in days from the nearest syzygy (new or
// full) and quadrature (first or third quarter)
func tideRange(elongation float64) TideRange {
	degPerDay := 360.0 / SynodicMonth

	fromSyzygy := math.Min(math.Mod(elongation, 180), 180-math.Mod(elongation, 180))
	if fromSyzygy/degPerDay <= WindowDays {
		return TideSpring
	}

	fromQuadrature := math.Abs(math.Mod(elongation, 180) - 90)
	if fromQuadrature/degPerDay <= WindowDays {
		return TideNeap
	}
	return TideIntermediate
}

func phaseName(illumination float64, isWaxing bool) string {
	switch {
	case illumination < 0.01:
		return "Luna nueva"
	case illumination > 0.99:
		return "Luna llena"
	case illumination >= 0.49 && illumination <= 0.51:
		if isWaxing {
			return "Cuarto creciente"
		}
		return "Cuarto menguante"
	case illumination < 0.50:
		if isWaxing {
			return "Creciente"
		}
		return "Menguante"
	default:
		if isWaxing {
			return "Gibosa creciente"
		}
		return "Gibosa menguante"
	}
}

// julianCenturies returns Julian centuries since J2000.0
func julianCenturies(jd float64) float64 {
	return (jd - 2451545.0) / 36525.0
}

// normalizeAngle wraps an angle to the range [0, 360)
func normalizeAngle(angle float64) float64 {
	angle = math.Mod(angle, 360)
	if angle < 0 {
		angle += 360
	}
	return angle
}

func degToRad(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// sunEclipticLongitude computes the Sun's ecliptic longitude in degrees
func sunEclipticLongitude(T float64) float64 {
	L0 := 280.46646 + 36000.76983*T + 0.0003032*T*T

	M := 357.52911 + 35999.05029*T - 0.0001537*T*T
	Mrad := degToRad(normalizeAngle(M))

	// Equation of center
	C := (1.914602-0.004817*T-0.000014*T*T)*math.Sin(Mrad) +
		(0.019993-0.000101*T)*math.Sin(2*Mrad) +
		0.000289*math.Sin(3*Mrad)

	return normalizeAngle(L0 + C)
}

// moonEclipticLongitude computes the Moon's ecliptic longitude in degrees
// from the dominant periodic terms
func moonEclipticLongitude(T float64) float64 {
	L := 218.3164477 + 481267.88123421*T - 0.0015786*T*T + T*T*T/538841 - T*T*T*T/65194000
	D := 297.8501921 + 445267.1114034*T - 0.0018819*T*T + T*T*T/545868 - T*T*T*T/113065000
	Mp := 134.9633964 + 477198.8675055*T + 0.0087414*T*T + T*T*T/69699 - T*T*T*T/14712000

	Drad := degToRad(normalizeAngle(D))
	Mprad := degToRad(normalizeAngle(Mp))

	return normalizeAngle(L +
		6.289*math.Sin(Mprad) +
		1.274*math.Sin(2*Drad-Mprad) +
		0.658*math.Sin(2*Drad) +
		0.214*math.Sin(2*Mprad) +
		0.110*math.Sin(Drad))
}
