package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrissnell/tidewatch/internal/types"
)

func reading(h float64, i int) types.Reading {
	return types.Reading{
		Height:     h,
		ObservedAt: "12:00",
		RecordedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Minute),
	}
}

func TestStoreAppendUnderCapacity(t *testing.T) {
	s := New(5)
	for i := 0; i < 3; i++ {
		s.Append(reading(float64(i), i))
	}

	snap := s.Snapshot()
	require.Len(t, snap, 3)
	for i, r := range snap {
		assert.Equal(t, float64(i), r.Height)
	}
}

func TestStoreBoundedHistory(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		appends  int
	}{
		{name: "exactly at capacity", capacity: 4, appends: 4},
		{name: "one over capacity", capacity: 4, appends: 5},
		{name: "primary station", capacity: 72, appends: 500},
		{name: "surge station", capacity: 100, appends: 101},
		{name: "capacity of one", capacity: 1, appends: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tt.capacity)
			for i := 0; i < tt.appends; i++ {
				s.Append(reading(float64(i), i))
				require.LessOrEqual(t, s.Len(), tt.capacity)
			}

			snap := s.Snapshot()
			require.Len(t, snap, tt.capacity)

			// The retained readings are the most recent ones, oldest first
			first := tt.appends - tt.capacity
			for i, r := range snap {
				assert.Equal(t, float64(first+i), r.Height)
			}
		})
	}
}

func TestStoreNoDeduplication(t *testing.T) {
	s := New(10)
	r := reading(1.5, 0)
	s.Append(r)
	s.Append(r)

	assert.Equal(t, 2, s.Len())
}

func TestStoreSnapshotIsCopy(t *testing.T) {
	s := New(3)
	s.Append(reading(1.0, 0))

	snap := s.Snapshot()
	snap[0].Height = 99

	last, ok := s.Last()
	require.True(t, ok)
	assert.Equal(t, 1.0, last.Height)
}

func TestRestoreTruncatesToCapacity(t *testing.T) {
	var rs []types.Reading
	for i := 0; i < 8; i++ {
		rs = append(rs, reading(float64(i), i))
	}

	s := Restore(5, rs)
	snap := s.Snapshot()
	require.Len(t, snap, 5)
	assert.Equal(t, 3.0, snap[0].Height)
	assert.Equal(t, 7.0, snap[4].Height)
}

func TestLastOnEmptyStore(t *testing.T) {
	_, ok := New(3).Last()
	assert.False(t, ok)
}
