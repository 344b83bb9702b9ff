package ingest

import (
	"fmt"
	"strconv"
	"time"

	"github.com/chrissnell/tidewatch/internal/prediction"
	"github.com/chrissnell/tidewatch/internal/trend"
	"github.com/chrissnell/tidewatch/internal/types"
)

// View is the read model for one station. It is JSON-serializable and is
// derived entirely from the last published snapshot.
type View struct {
	StationID   string                 `json:"station_id"`
	StationName string                 `json:"station_name"`
	UpdatedAt   *time.Time             `json:"updated_at,omitempty"`
	Latest      *types.Reading         `json:"latest,omitempty"`
	Readings    int                    `json:"readings"`
	Trend       TrendView              `json:"trend"`
	Surge       *SurgeView             `json:"surge,omitempty"`
	Prediction  *prediction.Prediction `json:"prediction,omitempty"`
}

// TrendView is the trend plus its presentation fields
type TrendView struct {
	Direction   trend.Direction `json:"direction"`
	DirectionES string          `json:"direction_es"`
	Delta       float64         `json:"delta"`
	Icon        string          `json:"icon"`
	RatePerHour float64         `json:"rate_m_per_h"`
}

// SurgeView reports the detector state. When Active is false the peak
// fields describe the last completed event, if there was one.
type SurgeView struct {
	Active         bool       `json:"active"`
	EventID        string     `json:"event_id,omitempty"`
	PeakHeight     float64    `json:"peak_height,omitempty"`
	PeakObservedAt string     `json:"peak_observed_at,omitempty"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	Message        string     `json:"message"`
}

// CurrentView returns the read model for stationID. It never mutates state
// and is safe to call concurrently with Ingest at any rate.
func (c *Coordinator) CurrentView(stationID string) (View, error) {
	st, ok := c.stations[stationID]
	if !ok {
		return View{}, fmt.Errorf("%w: %s", ErrUnknownStation, stationID)
	}

	snap := st.load()
	tr := trend.Compute(snap.history)

	v := View{
		StationID:   st.cfg.ID,
		StationName: st.cfg.Name,
		Readings:    len(snap.history),
		Trend: TrendView{
			Direction:   tr.Direction,
			DirectionES: tr.Spanish(),
			Delta:       tr.Delta,
			Icon:        tr.Icon(),
			RatePerHour: trend.Rate(snap.history, st.cfg.TrendRateWindow),
		},
	}

	if !snap.updatedAt.IsZero() {
		updated := snap.updatedAt
		v.UpdatedAt = &updated
	}
	if n := len(snap.history); n > 0 {
		latest := snap.history[n-1]
		v.Latest = &latest
	}

	if st.detector != nil {
		v.Surge = surgeView(snap.surge)
	}

	if st.engine != nil {
		p := st.engine.Predict(prediction.Peak{
			Height:     snap.surge.PeakHeight,
			ObservedAt: snap.surge.PeakObservedAt,
		})
		v.Prediction = &p
	}

	return v, nil
}

// History returns a copy of the readings currently held for stationID
func (c *Coordinator) History(stationID string) ([]types.Reading, error) {
	st, ok := c.stations[stationID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStation, stationID)
	}
	snap := st.load()
	out := make([]types.Reading, len(snap.history))
	copy(out, snap.history)
	return out, nil
}

func surgeView(s types.SurgeState) *SurgeView {
	sv := &SurgeView{
		Active:         s.Active,
		EventID:        s.EventID,
		PeakHeight:     s.PeakHeight,
		PeakObservedAt: s.PeakObservedAt,
		StartedAt:      s.StartedAt,
	}

	if s.Active {
		sv.Message = fmt.Sprintf("Pico detectado: %sm a las %s", strconv.FormatFloat(s.PeakHeight, 'f', -1, 64), s.PeakObservedAt)
	} else {
		sv.Message = "No hay sudestada activa"
	}
	return sv
}
