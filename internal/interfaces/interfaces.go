// Package interfaces defines common interface types used across the application.
package interfaces

import (
	"context"
	"time"

	"github.com/chrissnell/tidewatch/internal/ingest"
	"github.com/chrissnell/tidewatch/internal/types"
)

// Ingester is the seam every reading source feeds. The coordinator is the
// only implementation outside of tests.
type Ingester interface {
	Ingest(ctx context.Context, stationID string, height float64, label string, at time.Time) (ingest.Result, error)
}

// StationReader exposes the read model to controllers
type StationReader interface {
	StationIDs() []string
	Stations() []ingest.StationConfig
	CurrentView(stationID string) (ingest.View, error)
	History(stationID string) ([]types.Reading, error)
}

// SourceManager starts the configured reading sources
type SourceManager interface {
	StartSources() error
}
