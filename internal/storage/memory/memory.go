// Package memory provides an in-process Store, used when no durable backend
// is configured and in tests.
package memory

import (
	"context"
	"sync"

	"github.com/chrissnell/tidewatch/internal/storage"
	"github.com/chrissnell/tidewatch/internal/types"
)

// Store keeps records in maps guarded by a mutex
type Store struct {
	mu      sync.RWMutex
	history map[string][]types.Reading
	surge   map[string]types.SurgeState

	// FailSaves makes every Save* call return this error when set
	FailSaves error
}

// New creates an empty memory store
func New() *Store {
	return &Store{
		history: make(map[string][]types.Reading),
		surge:   make(map[string]types.SurgeState),
	}
}

func (s *Store) LoadHistory(_ context.Context, stationID string) ([]types.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rs, ok := s.history[stationID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := make([]types.Reading, len(rs))
	copy(out, rs)
	return out, nil
}

func (s *Store) SaveHistory(_ context.Context, stationID string, readings []types.Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSaves != nil {
		return s.FailSaves
	}
	cp := make([]types.Reading, len(readings))
	copy(cp, readings)
	s.history[stationID] = cp
	return nil
}

func (s *Store) LoadSurgeState(_ context.Context, stationID string) (types.SurgeState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.surge[stationID]
	if !ok {
		return types.SurgeState{}, storage.ErrNotFound
	}
	return st, nil
}

func (s *Store) SaveSurgeState(_ context.Context, stationID string, state types.SurgeState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSaves != nil {
		return s.FailSaves
	}
	s.surge[stationID] = state
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
