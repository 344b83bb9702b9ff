package timescaledb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/chrissnell/tidewatch/internal/database"
	"github.com/chrissnell/tidewatch/internal/log"
	"github.com/chrissnell/tidewatch/internal/storage"
	"github.com/chrissnell/tidewatch/internal/types"
)

// Config holds the configuration for a TimescaleDB storage backend
type Config struct {
	ConnectionString string `yaml:"connection_string"`
}

// Storage holds the connection for a TimescaleDB storage backend
type Storage struct {
	TimescaleDBConn *gorm.DB
}

type historyRow struct {
	Height     float64   `gorm:"column:height"`
	ObservedAt string    `gorm:"column:observed_at"`
	RecordedAt time.Time `gorm:"column:recorded_at"`
}

type surgeRow struct {
	Active         bool       `gorm:"column:active"`
	EventID        string     `gorm:"column:event_id"`
	PeakHeight     float64    `gorm:"column:peak_height"`
	PeakObservedAt string     `gorm:"column:peak_observed_at"`
	PeakRecordedAt *time.Time `gorm:"column:peak_recorded_at"`
	StartedAt      *time.Time `gorm:"column:started_at"`
}

// New connects to TimescaleDB and creates the schema
func New(ctx context.Context, c Config) (*Storage, error) {
	conn, err := database.CreateConnection(c.ConnectionString)
	if err != nil {
		return nil, err
	}

	t := &Storage{TimescaleDBConn: conn}
	if err := t.Migrate(ctx); err != nil {
		return nil, err
	}
	return t, nil
}

// NewWithDB wraps an existing GORM handle without touching the schema
func NewWithDB(db *gorm.DB) *Storage {
	return &Storage{TimescaleDBConn: db}
}

// Migrate creates the tables used by the store. The readings hypertable and
// its hourly aggregate need the timescaledb extension; without it they are
// skipped with a warning and the store still works on plain PostgreSQL.
func (t *Storage) Migrate(ctx context.Context) error {
	db := t.TimescaleDBConn.WithContext(ctx)

	required := []struct {
		desc string
		sql  string
	}{
		{"history table", createHistoryTableSQL},
		{"surge state table", createSurgeStateTableSQL},
		{"readings table", createReadingsTableSQL},
	}
	for _, step := range required {
		log.Infof("creating %s...", step.desc)
		if err := db.Exec(step.sql).Error; err != nil {
			log.Warnf("warning: could not create %s", step.desc)
			return fmt.Errorf("create %s: %w", step.desc, err)
		}
	}

	optional := []struct {
		desc string
		sql  string
	}{
		{"TimescaleDB extension", createExtensionSQL},
		{"readings hypertable", createHypertableSQL},
		{"1h view", create1hViewSQL},
		{"1h aggregation policy", addAggregationPolicy1hSQL},
	}
	// Each optional step depends on the previous one
	for _, step := range optional {
		log.Infof("creating %s...", step.desc)
		if err := db.Exec(step.sql).Error; err != nil {
			log.Warnf("could not create %s, continuing without it: %v", step.desc, err)
			return nil
		}
	}

	return nil
}

// LoadHistory returns the stored history window of a station
func (t *Storage) LoadHistory(ctx context.Context, stationID string) ([]types.Reading, error) {
	var rows []historyRow
	if err := t.TimescaleDBConn.WithContext(ctx).Raw(selectHistorySQL, stationID).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("error querying history: %w", err)
	}
	if len(rows) == 0 {
		return nil, storage.ErrNotFound
	}

	readings := make([]types.Reading, 0, len(rows))
	for _, row := range rows {
		readings = append(readings, types.Reading{
			StationID:  stationID,
			Height:     row.Height,
			ObservedAt: row.ObservedAt,
			RecordedAt: row.RecordedAt,
		})
	}
	return readings, nil
}

// SaveHistory replaces the stored history window of a station. The newest
// reading is also appended to the readings hypertable.
func (t *Storage) SaveHistory(ctx context.Context, stationID string, readings []types.Reading) error {
	return t.TimescaleDBConn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(deleteHistorySQL, stationID).Error; err != nil {
			return fmt.Errorf("could not clear history: %w", err)
		}
		for i, r := range readings {
			if err := tx.Exec(insertHistorySQL, stationID, i, r.Height, r.ObservedAt, r.RecordedAt).Error; err != nil {
				return fmt.Errorf("could not store history row %d: %w", i, err)
			}
		}

		if len(readings) > 0 {
			last := readings[len(readings)-1]
			if err := tx.Exec(insertReadingSQL, last.RecordedAt, stationID, last.Height, last.ObservedAt).Error; err != nil {
				return fmt.Errorf("could not store reading: %w", err)
			}
		}
		return nil
	})
}

// LoadSurgeState returns the stored surge state of a station
func (t *Storage) LoadSurgeState(ctx context.Context, stationID string) (types.SurgeState, error) {
	var row surgeRow
	res := t.TimescaleDBConn.WithContext(ctx).Raw(selectSurgeStateSQL, stationID).Scan(&row)
	if res.Error != nil {
		return types.SurgeState{}, fmt.Errorf("error querying surge state: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return types.SurgeState{}, storage.ErrNotFound
	}

	state := types.SurgeState{
		Active:         row.Active,
		EventID:        row.EventID,
		PeakHeight:     row.PeakHeight,
		PeakObservedAt: row.PeakObservedAt,
		StartedAt:      row.StartedAt,
	}
	if row.PeakRecordedAt != nil {
		state.PeakRecordedAt = *row.PeakRecordedAt
	}
	return state, nil
}

// SaveSurgeState upserts the surge state of a station
func (t *Storage) SaveSurgeState(ctx context.Context, stationID string, state types.SurgeState) error {
	var peakRecordedAt *time.Time
	if !state.PeakRecordedAt.IsZero() {
		peakRecordedAt = &state.PeakRecordedAt
	}

	err := t.TimescaleDBConn.WithContext(ctx).Exec(upsertSurgeStateSQL,
		stationID, state.Active, state.EventID, state.PeakHeight, state.PeakObservedAt, peakRecordedAt, state.StartedAt,
	).Error
	if err != nil {
		return fmt.Errorf("could not store surge state: %w", err)
	}
	return nil
}

// Ping checks the underlying connection
func (t *Storage) Ping(ctx context.Context) error {
	if t.TimescaleDBConn == nil {
		return errors.New("TimescaleDB connection is nil")
	}
	sqlDB, err := t.TimescaleDBConn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying connection
func (t *Storage) Close() error {
	sqlDB, err := t.TimescaleDBConn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
