package types

import "time"

// NotificationKind identifies what happened during an ingest.
type NotificationKind string

const (
	NotificationReading      NotificationKind = "reading"
	NotificationSurgeStarted NotificationKind = "surge_started"
	NotificationNewPeak      NotificationKind = "new_peak"
	NotificationSurgeEnded   NotificationKind = "surge_ended"
)

// Notification is fanned out to the configured notifiers after every ingest.
type Notification struct {
	ID        string           `json:"id"`
	Kind      NotificationKind `json:"kind"`
	StationID string           `json:"station_id"`
	Reading   Reading          `json:"reading"`
	Surge     *SurgeState      `json:"surge,omitempty"`
	Time      time.Time        `json:"time"`
}
