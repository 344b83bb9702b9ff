package ingest

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chrissnell/tidewatch/internal/history"
	"github.com/chrissnell/tidewatch/internal/prediction"
	"github.com/chrissnell/tidewatch/internal/surge"
	"github.com/chrissnell/tidewatch/internal/types"
)

// StationConfig describes one monitored station. Surge and Downstream are
// optional: a station without Surge only tracks history and trend, and a
// station without Downstream reports no prediction.
type StationConfig struct {
	ID              string
	Name            string
	HistoryCapacity int
	TrendRateWindow int
	Surge           *surge.Config
	Downstream      *prediction.Config
}

// Validate checks a single station definition
func (c StationConfig) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("station id is required")
	}
	if c.HistoryCapacity < 1 {
		return fmt.Errorf("station %s: history capacity must be at least 1, got %d", c.ID, c.HistoryCapacity)
	}
	if c.Surge != nil {
		if err := c.Surge.Validate(); err != nil {
			return fmt.Errorf("station %s: %w", c.ID, err)
		}
	}
	if c.Downstream != nil && c.Surge == nil {
		return fmt.Errorf("station %s: downstream prediction requires surge detection", c.ID)
	}
	return nil
}

// snapshot is the immutable unit published after every ingest. Readers
// always see a history and a surge state that belong together.
type snapshot struct {
	history   []types.Reading
	surge     types.SurgeState
	updatedAt time.Time
}

// station is the single owner of one station's mutable state. mu serializes
// ingests; readers only touch the published snapshot.
type station struct {
	cfg      StationConfig
	mu       sync.Mutex
	history  *history.Store
	surge    types.SurgeState
	detector *surge.Detector
	engine   *prediction.Engine
	current  atomic.Pointer[snapshot]
}

func newStation(cfg StationConfig) *station {
	st := &station{
		cfg:     cfg,
		history: history.New(cfg.HistoryCapacity),
	}
	if cfg.Surge != nil {
		st.detector = surge.NewDetector(*cfg.Surge)
	}
	if cfg.Downstream != nil {
		st.engine = prediction.NewEngine(*cfg.Downstream)
	}
	st.publish(time.Time{})
	return st
}

// publish swaps in a new snapshot. Must be called with mu held (or before
// the station is shared).
func (s *station) publish(at time.Time) {
	s.current.Store(&snapshot{
		history:   s.history.Snapshot(),
		surge:     s.surge,
		updatedAt: at,
	})
}

func (s *station) load() *snapshot {
	return s.current.Load()
}
