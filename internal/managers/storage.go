package managers

import (
	"context"
	"fmt"

	"github.com/chrissnell/tidewatch/internal/log"
	"github.com/chrissnell/tidewatch/internal/storage"
	"github.com/chrissnell/tidewatch/internal/storage/jsonfile"
	"github.com/chrissnell/tidewatch/internal/storage/memory"
	"github.com/chrissnell/tidewatch/internal/storage/sqlite"
	"github.com/chrissnell/tidewatch/internal/storage/timescaledb"
	"github.com/chrissnell/tidewatch/pkg/config"
)

// NewStateStore opens the configured state store backend
func NewStateStore(ctx context.Context, sd config.StorageData) (storage.Store, error) {
	switch sd.Backend {
	case "memory":
		log.Warn("using in-memory storage: station state will not survive a restart")
		return memory.New(), nil
	case "jsonfile":
		if sd.JSONFile == nil {
			return nil, fmt.Errorf("jsonfile storage is not configured")
		}
		return jsonfile.New(jsonfile.Config{Directory: sd.JSONFile.Directory, Codec: sd.JSONFile.Codec})
	case "sqlite":
		if sd.SQLite == nil {
			return nil, fmt.Errorf("sqlite storage is not configured")
		}
		return sqlite.New(ctx, sqlite.Config{Path: sd.SQLite.Path})
	case "timescaledb":
		if sd.TimescaleDB == nil {
			return nil, fmt.Errorf("timescaledb storage is not configured")
		}
		return timescaledb.New(ctx, timescaledb.Config{ConnectionString: sd.TimescaleDB.ConnectionString})
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", sd.Backend)
	}
}

// StartStorageHealth monitors store, preferring the backend's own health
// check when it has one
func StartStorageHealth(ctx context.Context, hm *storage.HealthManager, sd config.StorageData, store storage.Store) {
	var checker storage.HealthChecker = storage.PingChecker{Store: store, Name: sd.Backend}
	if hc, ok := store.(storage.HealthChecker); ok {
		checker = hc
	}
	interval := sd.HealthInterval
	if interval <= 0 {
		interval = config.DefaultHealthInterval
	}
	storage.StartHealthMonitor(ctx, hm, sd.Backend, checker, interval)
}
