// Package sqlite stores station history and surge state in an embedded
// SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	_ "modernc.org/sqlite"

	"github.com/chrissnell/tidewatch/internal/log"
	"github.com/chrissnell/tidewatch/internal/storage"
	"github.com/chrissnell/tidewatch/internal/types"
	"github.com/chrissnell/tidewatch/pkg/migrate"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// MigrationTable records the applied schema version
const MigrationTable = "schema_migrations"

// NewMigrator returns a migrator over the embedded schema migrations
func NewMigrator(db *sql.DB) (*migrate.Migrator, error) {
	migrations, err := fs.Sub(migrationFS, "migrations")
	if err != nil {
		return nil, err
	}
	return migrate.NewMigrator(db, migrate.NewFSProvider(migrations, MigrationTable, "sqlite")), nil
}

// Config holds the configuration for the SQLite store
type Config struct {
	Path string `yaml:"path"`
}

// Storage is a SQLite-backed storage.Store
type Storage struct {
	db   *sql.DB
	path string
}

// New opens (creating if necessary) the database at c.Path and applies
// pending migrations
func New(ctx context.Context, c Config) (*Storage, error) {
	if c.Path == "" {
		return nil, fmt.Errorf("sqlite: path is required")
	}

	dsn := "file:" + c.Path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY between concurrent station ingests
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	m, err := NewMigrator(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := m.MigrateUp(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate SQLite database: %w", err)
	}

	log.Infof("using SQLite storage at %s", c.Path)
	return &Storage{db: db, path: c.Path}, nil
}

// LoadHistory returns the stored history of a station, oldest first
func (s *Storage) LoadHistory(ctx context.Context, stationID string) ([]types.Reading, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT height, observed_at, recorded_at
		FROM history
		WHERE station_id = ?
		ORDER BY position
	`, stationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var readings []types.Reading
	for rows.Next() {
		r := types.Reading{StationID: stationID}
		var recorded int64
		if err := rows.Scan(&r.Height, &r.ObservedAt, &recorded); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		r.RecordedAt = time.Unix(0, recorded)
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(readings) == 0 {
		return nil, storage.ErrNotFound
	}
	return readings, nil
}

// SaveHistory replaces the stored history of a station in one transaction
func (s *Storage) SaveHistory(ctx context.Context, stationID string, readings []types.Reading) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM history WHERE station_id = ?`, stationID); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO history (station_id, position, height, observed_at, recorded_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare history insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range readings {
		if _, err := stmt.ExecContext(ctx, stationID, i, r.Height, r.ObservedAt, r.RecordedAt.UnixNano()); err != nil {
			return fmt.Errorf("failed to insert history row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit history: %w", err)
	}
	return nil
}

// LoadSurgeState returns the stored surge state of a station
func (s *Storage) LoadSurgeState(ctx context.Context, stationID string) (types.SurgeState, error) {
	var (
		state          types.SurgeState
		active         bool
		peakRecordedAt sql.NullInt64
		startedAt      sql.NullInt64
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT active, event_id, peak_height, peak_observed_at, peak_recorded_at, started_at
		FROM surge_state
		WHERE station_id = ?
	`, stationID).Scan(&active, &state.EventID, &state.PeakHeight, &state.PeakObservedAt, &peakRecordedAt, &startedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return types.SurgeState{}, storage.ErrNotFound
	}
	if err != nil {
		return types.SurgeState{}, fmt.Errorf("failed to query surge state: %w", err)
	}

	state.Active = active
	if peakRecordedAt.Valid {
		state.PeakRecordedAt = time.Unix(0, peakRecordedAt.Int64)
	}
	if startedAt.Valid {
		t := time.Unix(0, startedAt.Int64)
		state.StartedAt = &t
	}
	return state, nil
}

// SaveSurgeState upserts the surge state of a station
func (s *Storage) SaveSurgeState(ctx context.Context, stationID string, state types.SurgeState) error {
	var peakRecordedAt, startedAt sql.NullInt64
	if !state.PeakRecordedAt.IsZero() {
		peakRecordedAt = sql.NullInt64{Int64: state.PeakRecordedAt.UnixNano(), Valid: true}
	}
	if state.StartedAt != nil {
		startedAt = sql.NullInt64{Int64: state.StartedAt.UnixNano(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO surge_state (station_id, active, event_id, peak_height, peak_observed_at, peak_recorded_at, started_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (station_id) DO UPDATE SET
			active = excluded.active,
			event_id = excluded.event_id,
			peak_height = excluded.peak_height,
			peak_observed_at = excluded.peak_observed_at,
			peak_recorded_at = excluded.peak_recorded_at,
			started_at = excluded.started_at,
			updated_at = excluded.updated_at
	`, stationID, state.Active, state.EventID, state.PeakHeight, state.PeakObservedAt, peakRecordedAt, startedAt, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save surge state: %w", err)
	}
	return nil
}

// Ping checks the database connection
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database
func (s *Storage) Close() error {
	return s.db.Close()
}
