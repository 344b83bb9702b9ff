package timescaledb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrissnell/tidewatch/internal/database"
	"github.com/chrissnell/tidewatch/internal/storage"
	"github.com/chrissnell/tidewatch/internal/types"
)

func newMockStorage(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gdb, err := database.OpenWithConn(db)
	require.NoError(t, err)
	return NewWithDB(gdb), mock
}

func TestLoadHistory(t *testing.T) {
	s, mock := newMockStorage(t)
	recorded := time.Date(2025, 5, 20, 14, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT height, observed_at, recorded_at FROM tide_history`).
		WithArgs("pilote-norden").
		WillReturnRows(sqlmock.NewRows([]string{"height", "observed_at", "recorded_at"}).
			AddRow(1.9, "13:50", recorded.Add(-10*time.Minute)).
			AddRow(2.1, "14:00", recorded))

	readings, err := s.LoadHistory(context.Background(), "pilote-norden")
	require.NoError(t, err)
	require.Len(t, readings, 2)
	assert.Equal(t, 2.1, readings[1].Height)
	assert.Equal(t, "14:00", readings[1].ObservedAt)
	assert.Equal(t, "pilote-norden", readings[1].StationID)
	assert.True(t, readings[1].RecordedAt.Equal(recorded))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadHistoryEmpty(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectQuery(`FROM tide_history`).
		WithArgs("san-fernando").
		WillReturnRows(sqlmock.NewRows([]string{"height", "observed_at", "recorded_at"}))

	_, err := s.LoadHistory(context.Background(), "san-fernando")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveHistory(t *testing.T) {
	s, mock := newMockStorage(t)
	recorded := time.Date(2025, 5, 20, 14, 0, 0, 0, time.UTC)
	readings := []types.Reading{
		{Height: 1.9, ObservedAt: "13:50", RecordedAt: recorded.Add(-10 * time.Minute)},
		{Height: 2.1, ObservedAt: "14:00", RecordedAt: recorded},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM tide_history`).WithArgs("pilote-norden").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`INSERT INTO tide_history`).WithArgs("pilote-norden", 0, 1.9, "13:50", readings[0].RecordedAt).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO tide_history`).WithArgs("pilote-norden", 1, 2.1, "14:00", recorded).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO readings`).WithArgs(recorded, "pilote-norden", 2.1, "14:00").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.SaveHistory(context.Background(), "pilote-norden", readings))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveHistoryRollsBack(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM tide_history`).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := s.SaveHistory(context.Background(), "pilote-norden", []types.Reading{{Height: 1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSurgeState(t *testing.T) {
	started := time.Date(2025, 5, 20, 14, 0, 0, 0, time.UTC)
	peakAt := started.Add(time.Hour)

	t.Run("load active", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectQuery(`FROM surge_state`).
			WithArgs("pilote-norden").
			WillReturnRows(sqlmock.NewRows([]string{"active", "event_id", "peak_height", "peak_observed_at", "peak_recorded_at", "started_at"}).
				AddRow(true, "ev-1", 2.4, "15:00", peakAt, started))

		state, err := s.LoadSurgeState(context.Background(), "pilote-norden")
		require.NoError(t, err)
		assert.True(t, state.Active)
		assert.Equal(t, 2.4, state.PeakHeight)
		assert.True(t, state.PeakRecordedAt.Equal(peakAt))
		require.NotNil(t, state.StartedAt)
		assert.True(t, state.StartedAt.Equal(started))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("load missing", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectQuery(`FROM surge_state`).
			WithArgs("pilote-norden").
			WillReturnRows(sqlmock.NewRows([]string{"active", "event_id", "peak_height", "peak_observed_at", "peak_recorded_at", "started_at"}))

		_, err := s.LoadSurgeState(context.Background(), "pilote-norden")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("save", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectExec(`INSERT INTO surge_state .* ON CONFLICT \(stationid\) DO UPDATE`).
			WithArgs("pilote-norden", false, "ev-1", 2.4, "15:00", peakAt, nil).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := s.SaveSurgeState(context.Background(), "pilote-norden", types.SurgeState{
			EventID:        "ev-1",
			PeakHeight:     2.4,
			PeakObservedAt: "15:00",
			PeakRecordedAt: peakAt,
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMigrateToleratesMissingExtension(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS tide_history`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS surge_state`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS readings`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE EXTENSION IF NOT EXISTS timescaledb`).WillReturnError(errors.New(`extension "timescaledb" is not available`))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateFailsOnRequiredTable(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS tide_history`).WillReturnError(errors.New("permission denied"))

	assert.Error(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
