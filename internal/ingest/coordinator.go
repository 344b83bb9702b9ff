// Package ingest is the single mutation entry point for station state. It
// appends readings to the station history, runs the surge detector, persists
// both records and publishes an immutable read model for concurrent readers.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chrissnell/tidewatch/internal/history"
	"github.com/chrissnell/tidewatch/internal/storage"
	"github.com/chrissnell/tidewatch/internal/surge"
	"github.com/chrissnell/tidewatch/internal/types"
)

var (
	// ErrUnknownStation is returned for a station id that was not configured
	ErrUnknownStation = errors.New("unknown station")

	// ErrInvalidHeight is returned for a NaN, infinite or negative height
	ErrInvalidHeight = errors.New("height must be a finite, non-negative number")
)

// Notifier receives a notification for every ingested reading and every
// surge transition. Implementations must not block.
type Notifier interface {
	Notify(types.Notification)
}

// Recorder receives ingest measurements, typically for Prometheus.
type Recorder interface {
	ReadingIngested(stationID string, height float64)
	SurgeTransition(stationID string, kind types.NotificationKind)
	SurgeState(stationID string, state types.SurgeState)
	PersistFailed(stationID, record string)
}

// Result reports what an ingest did. PersistErr is set when the reading was
// applied in memory but could not be written to the store.
type Result struct {
	Reading    types.Reading
	Event      *surge.Event
	PersistErr error
}

// Option customizes a Coordinator
type Option func(*Coordinator)

// WithNotifier sets the notification sink
func WithNotifier(n Notifier) Option {
	return func(c *Coordinator) { c.notifier = n }
}

// WithRecorder sets the metrics recorder
func WithRecorder(r Recorder) Option {
	return func(c *Coordinator) { c.recorder = r }
}

// Coordinator owns the state of every configured station
type Coordinator struct {
	stations map[string]*station
	order    []string
	store    storage.Store
	notifier Notifier
	recorder Recorder
	logger   *zap.SugaredLogger
}

// New creates a Coordinator for the given stations. The station set is fixed
// for the lifetime of the coordinator.
func New(stations []StationConfig, store storage.Store, logger *zap.SugaredLogger, opts ...Option) (*Coordinator, error) {
	if store == nil {
		return nil, fmt.Errorf("a store is required")
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	c := &Coordinator{
		stations: make(map[string]*station, len(stations)),
		store:    store,
		notifier: nopNotifier{},
		recorder: nopRecorder{},
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}

	for _, sc := range stations {
		if err := sc.Validate(); err != nil {
			return nil, err
		}
		if _, exists := c.stations[sc.ID]; exists {
			return nil, fmt.Errorf("duplicate station id %q", sc.ID)
		}
		if sc.Name == "" {
			sc.Name = sc.ID
		}
		c.stations[sc.ID] = newStation(sc)
		c.order = append(c.order, sc.ID)
	}

	return c, nil
}

// Restore loads every station's history and surge state from the store.
// Missing records leave the station empty. Other load failures are logged,
// the station starts empty, and the failures are returned joined together.
func (c *Coordinator) Restore(ctx context.Context) error {
	var errs []error

	for _, id := range c.order {
		st := c.stations[id]
		st.mu.Lock()

		readings, err := c.store.LoadHistory(ctx, id)
		switch {
		case err == nil:
			st.history = history.Restore(st.cfg.HistoryCapacity, readings)
			c.logger.Infof("restored %d readings for station [%s]", st.history.Len(), id)
		case errors.Is(err, storage.ErrNotFound):
			c.logger.Infof("no stored history for station [%s], starting empty", id)
		default:
			c.logger.Errorf("could not load history for station [%s]: %v", id, err)
			errs = append(errs, fmt.Errorf("load history %s: %w", id, err))
		}

		if st.detector != nil {
			state, err := c.store.LoadSurgeState(ctx, id)
			switch {
			case err == nil:
				st.surge = state
				c.logger.Infof("restored surge state for station [%s]: active=%v peak=%.2f", id, state.Active, state.PeakHeight)
			case errors.Is(err, storage.ErrNotFound):
				c.logger.Infof("no stored surge state for station [%s], starting inactive", id)
			default:
				c.logger.Errorf("could not load surge state for station [%s]: %v", id, err)
				errs = append(errs, fmt.Errorf("load surge state %s: %w", id, err))
			}
			c.recorder.SurgeState(id, st.surge)
		}

		var updated time.Time
		if last, ok := st.history.Last(); ok {
			updated = last.RecordedAt
		}
		st.publish(updated)
		st.mu.Unlock()
	}

	return errors.Join(errs...)
}

// Ingest applies a new reading for stationID observed with label and
// recorded at. It appends to the history, runs the surge detector and
// persists both records. Persistence failures do not undo the in-memory
// update; they are reported in Result.PersistErr.
func (c *Coordinator) Ingest(ctx context.Context, stationID string, height float64, label string, at time.Time) (Result, error) {
	st, ok := c.stations[stationID]
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownStation, stationID)
	}
	if !types.ValidHeight(height) {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidHeight, height)
	}

	r := types.Reading{
		StationID:  stationID,
		Height:     height,
		ObservedAt: label,
		RecordedAt: at,
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	st.history.Append(r)

	var ev *surge.Event
	if st.detector != nil {
		st.surge, ev = st.detector.Transition(st.surge, r, at)
	}
	st.publish(at)

	res := Result{Reading: r, Event: ev}
	res.PersistErr = c.persist(ctx, st)

	c.recorder.ReadingIngested(stationID, height)
	c.notify(types.NotificationReading, st, r, nil)

	if st.detector != nil {
		c.recorder.SurgeState(stationID, st.surge)
	}
	if ev != nil {
		c.recorder.SurgeTransition(stationID, ev.Kind)
		state := st.surge
		c.notify(ev.Kind, st, r, &state)
		c.logEvent(st, ev)
	}

	return res, nil
}

// persist writes the history and, for surge stations, the surge state
func (c *Coordinator) persist(ctx context.Context, st *station) error {
	var errs []error
	id := st.cfg.ID

	if err := c.store.SaveHistory(ctx, id, st.history.Snapshot()); err != nil {
		c.logger.Errorf("could not persist history for station [%s]: %v", id, err)
		c.recorder.PersistFailed(id, "history")
		errs = append(errs, fmt.Errorf("save history: %w", err))
	}

	if st.detector != nil {
		if err := c.store.SaveSurgeState(ctx, id, st.surge); err != nil {
			c.logger.Errorf("could not persist surge state for station [%s]: %v", id, err)
			c.recorder.PersistFailed(id, "surge")
			errs = append(errs, fmt.Errorf("save surge state: %w", err))
		}
	}

	return errors.Join(errs...)
}

func (c *Coordinator) notify(kind types.NotificationKind, st *station, r types.Reading, state *types.SurgeState) {
	c.notifier.Notify(types.Notification{
		ID:        uuid.NewString(),
		Kind:      kind,
		StationID: st.cfg.ID,
		Reading:   r,
		Surge:     state,
		Time:      r.RecordedAt,
	})
}

func (c *Coordinator) logEvent(st *station, ev *surge.Event) {
	switch ev.Kind {
	case types.NotificationSurgeStarted:
		c.logger.Warnw("surge detected", "station", st.cfg.ID, "height", ev.Height, "observed_at", st.surge.PeakObservedAt, "event_id", ev.EventID)
	case types.NotificationNewPeak:
		c.logger.Warnw("new surge peak", "station", st.cfg.ID, "height", ev.Height, "previous_peak", ev.PreviousPeak, "event_id", ev.EventID)
	case types.NotificationSurgeEnded:
		c.logger.Infow("surge ended", "station", st.cfg.ID, "peak", st.surge.PeakHeight, "event_id", ev.EventID)
	}
}

// Stations returns the configured stations in configuration order
func (c *Coordinator) Stations() []StationConfig {
	out := make([]StationConfig, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.stations[id].cfg)
	}
	return out
}

// StationIDs returns the configured station ids, sorted
func (c *Coordinator) StationIDs() []string {
	ids := make([]string, len(c.order))
	copy(ids, c.order)
	sort.Strings(ids)
	return ids
}

type nopNotifier struct{}

func (nopNotifier) Notify(types.Notification) {}

type nopRecorder struct{}

func (nopRecorder) ReadingIngested(string, float64) {}
func (nopRecorder) SurgeTransition(string, types.NotificationKind) {}
func (nopRecorder) SurgeState(string, types.SurgeState) {}
func (nopRecorder) PersistFailed(string, string) {}
