package restserver

import (
	"github.com/chrissnell/tidewatch/internal/ingest"
	"github.com/chrissnell/tidewatch/internal/storage"
	"github.com/chrissnell/tidewatch/internal/surge"
	"github.com/chrissnell/tidewatch/internal/types"
	"github.com/chrissnell/tidewatch/pkg/lunar"
)

// StationSummary is one entry of the station listing
type StationSummary struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	HistoryCapacity int     `json:"history_capacity"`
	Surge           bool    `json:"surge"`
	SurgeOn         float64 `json:"surge_on,omitempty"`
	SurgeOff        float64 `json:"surge_off,omitempty"`
	Downstream      string  `json:"downstream,omitempty"`
}

// StationView is the station read model plus the astronomical context
type StationView struct {
	ingest.View
	Moon lunar.MoonPhase `json:"moon"`
}

// HistoryResponse wraps the readings held for a station, oldest first
type HistoryResponse struct {
	StationID string          `json:"station_id"`
	Count     int             `json:"count"`
	Readings  []types.Reading `json:"readings"`
}

// IngestResponse reports the outcome of a posted reading
type IngestResponse struct {
	Reading      types.Reading `json:"reading"`
	Event        *EventSummary `json:"event,omitempty"`
	Persisted    bool          `json:"persisted"`
	PersistError string        `json:"persist_error,omitempty"`
}

// EventSummary describes a surge transition caused by a posted reading
type EventSummary struct {
	Kind         types.NotificationKind `json:"kind"`
	EventID      string                 `json:"event_id"`
	Height       float64                `json:"height"`
	PreviousPeak float64                `json:"previous_peak,omitempty"`
}

// HealthResponse is the body of /healthz
type HealthResponse struct {
	Status  string                        `json:"status"`
	Storage map[string]storage.HealthData `json:"storage"`
}

func summarize(sc ingest.StationConfig) StationSummary {
	s := StationSummary{
		ID:              sc.ID,
		Name:            sc.Name,
		HistoryCapacity: sc.HistoryCapacity,
	}
	if sc.Surge != nil {
		s.Surge = true
		s.SurgeOn = sc.Surge.On
		s.SurgeOff = sc.Surge.Off
	}
	if sc.Downstream != nil {
		s.Downstream = sc.Downstream.Name
	}
	return s
}

func eventSummary(ev *surge.Event) *EventSummary {
	if ev == nil {
		return nil
	}
	return &EventSummary{
		Kind:         ev.Kind,
		EventID:      ev.EventID,
		Height:       ev.Height,
		PreviousPeak: ev.PreviousPeak,
	}
}
