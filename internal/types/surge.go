package types

import "time"

// SurgeState is the persisted state of the surge detector for one station.
// When Active is false, PeakHeight and PeakObservedAt hold the last completed
// event (or zero values if no event was ever recorded).
type SurgeState struct {
	Active         bool       `json:"active"`
	EventID        string     `json:"event_id,omitempty"`
	PeakHeight     float64    `json:"peak_height"`
	PeakObservedAt string     `json:"peak_observed_at,omitempty"`
	PeakRecordedAt time.Time  `json:"peak_recorded_at,omitempty"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
}

// HasPeak reports whether any surge event has ever been recorded.
func (s SurgeState) HasPeak() bool {
	return s.PeakHeight > 0
}
