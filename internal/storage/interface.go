// Package storage defines the persistence contract for station history and
// surge state, and hosts its implementations in subpackages.
package storage

import (
	"context"
	"errors"

	"github.com/chrissnell/tidewatch/internal/types"
)

// ErrNotFound is returned when no record exists yet for a station. Callers
// treat it as "first run" and start from an empty or default state.
var ErrNotFound = errors.New("storage: record not found")

// Store persists the two durable records kept per station: the capped
// reading history and the surge detector state. Implementations must be safe
// for concurrent use across different stations.
type Store interface {
	LoadHistory(ctx context.Context, stationID string) ([]types.Reading, error)
	SaveHistory(ctx context.Context, stationID string, readings []types.Reading) error
	LoadSurgeState(ctx context.Context, stationID string) (types.SurgeState, error)
	SaveSurgeState(ctx context.Context, stationID string, state types.SurgeState) error
	Ping(ctx context.Context) error
	Close() error
}
