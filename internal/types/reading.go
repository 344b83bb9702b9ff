package types

import (
	"math"
	"time"
)

// Reading is a single water-height observation from an upstream station.
// ObservedAt is the label reported by the upstream source and is not
// guaranteed to be parseable; RecordedAt is the ingestion-side timestamp
// used for every duration calculation.
type Reading struct {
	StationID  string    `json:"station_id,omitempty" gorm:"column:stationid"`
	Height     float64   `json:"height" gorm:"column:height"`
	ObservedAt string    `json:"observed_at" gorm:"column:observed_at"`
	RecordedAt time.Time `json:"recorded_at" gorm:"column:recorded_at"`
}

// TableName implements the GORM Tabler interface for the Reading struct
func (Reading) TableName() string {
	return "readings"
}

// ValidHeight reports whether h can be fed to the core: finite and non-negative.
func ValidHeight(h float64) bool {
	return !math.IsNaN(h) && !math.IsInf(h, 0) && h >= 0
}
