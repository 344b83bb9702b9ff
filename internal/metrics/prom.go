// Package metrics exposes ingest and surge measurements to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/chrissnell/tidewatch/internal/types"
)

// PromRecorder records coordinator activity in Prometheus metrics. It
// satisfies ingest.Recorder.
type PromRecorder struct {
	readings        *prometheus.CounterVec
	height          *prometheus.GaugeVec
	transitions     *prometheus.CounterVec
	surgeActive     *prometheus.GaugeVec
	surgePeak       *prometheus.GaugeVec
	persistFailures *prometheus.CounterVec
	dropped         *prometheus.CounterVec
}

// NewPromRecorder registers metrics on the default Prometheus registerer
func NewPromRecorder() (*PromRecorder, error) {
	return NewPromRecorderWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromRecorderWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromRecorderWithRegistry(reg prometheus.Registerer) (*PromRecorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	r := &PromRecorder{}
	var err error

	if r.readings, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tidewatch_readings_total",
		Help: "Total number of readings ingested",
	}, []string{"station"})); err != nil {
		return nil, err
	}
	if r.height, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tidewatch_height_meters",
		Help: "Most recent water height",
	}, []string{"station"})); err != nil {
		return nil, err
	}
	if r.transitions, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tidewatch_surge_transitions_total",
		Help: "Surge detector transitions by kind",
	}, []string{"station", "kind"})); err != nil {
		return nil, err
	}
	if r.surgeActive, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tidewatch_surge_active",
		Help: "1 while a surge event is active",
	}, []string{"station"})); err != nil {
		return nil, err
	}
	if r.surgePeak, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tidewatch_surge_peak_meters",
		Help: "Peak height of the current or last surge event",
	}, []string{"station"})); err != nil {
		return nil, err
	}
	if r.persistFailures, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tidewatch_persist_failures_total",
		Help: "Failed writes to the state store",
	}, []string{"station", "record"})); err != nil {
		return nil, err
	}
	if r.dropped, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tidewatch_notifications_dropped_total",
		Help: "Notifications dropped because a sink was not keeping up",
	}, []string{"sink"})); err != nil {
		return nil, err
	}

	return r, nil
}

// register adds c to reg, reusing an already registered collector of the
// same description.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		var zero T
		return zero, err
	}
	return c, nil
}

func (r *PromRecorder) ReadingIngested(stationID string, height float64) {
	r.readings.WithLabelValues(stationID).Inc()
	r.height.WithLabelValues(stationID).Set(height)
}

func (r *PromRecorder) SurgeTransition(stationID string, kind types.NotificationKind) {
	r.transitions.WithLabelValues(stationID, string(kind)).Inc()
}

func (r *PromRecorder) SurgeState(stationID string, state types.SurgeState) {
	active := 0.0
	if state.Active {
		active = 1
	}
	r.surgeActive.WithLabelValues(stationID).Set(active)
	r.surgePeak.WithLabelValues(stationID).Set(state.PeakHeight)
}

func (r *PromRecorder) PersistFailed(stationID, record string) {
	r.persistFailures.WithLabelValues(stationID, record).Inc()
}

// NotificationDropped counts a notification a sink could not accept
func (r *PromRecorder) NotificationDropped(sink string) {
	r.dropped.WithLabelValues(sink).Inc()
}
