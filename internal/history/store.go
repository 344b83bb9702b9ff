// Package history holds the bounded rolling sequence of readings kept for
// each monitored station.
package history

import (
	"github.com/chrissnell/tidewatch/internal/types"
)

// Store is a size-capped, insertion-ordered sequence of readings. When an
// append pushes the length past the capacity, the oldest readings are
// evicted. Store is not safe for concurrent use; the ingest coordinator
// owns it and serializes access per station.
type Store struct {
	capacity int
	readings []types.Reading
}

// New creates an empty Store holding at most capacity readings.
func New(capacity int) *Store {
	if capacity < 1 {
		capacity = 1
	}
	return &Store{
		capacity: capacity,
		readings: make([]types.Reading, 0, capacity),
	}
}

// Restore creates a Store pre-populated with readings, keeping only the most
// recent capacity entries.
func Restore(capacity int, readings []types.Reading) *Store {
	s := New(capacity)
	for _, r := range readings {
		s.Append(r)
	}
	return s
}

// Capacity returns the maximum number of readings retained.
func (s *Store) Capacity() int {
	return s.capacity
}

// Len returns the number of readings currently held.
func (s *Store) Len() int {
	return len(s.readings)
}

// Append adds r to the end of the sequence, evicting from the front when the
// capacity is exceeded. Identical readings are not deduplicated.
func (s *Store) Append(r types.Reading) {
	if len(s.readings) == s.capacity {
		// Shift in place so the backing array never grows past capacity
		copy(s.readings, s.readings[1:])
		s.readings[len(s.readings)-1] = r
		return
	}
	s.readings = append(s.readings, r)
}

// Snapshot returns a copy of the readings in chronological order. Callers
// may keep or modify the returned slice freely.
func (s *Store) Snapshot() []types.Reading {
	out := make([]types.Reading, len(s.readings))
	copy(out, s.readings)
	return out
}

// Last returns the most recent reading, if any.
func (s *Store) Last() (types.Reading, bool) {
	if len(s.readings) == 0 {
		return types.Reading{}, false
	}
	return s.readings[len(s.readings)-1], true
}
