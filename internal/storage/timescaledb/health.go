package timescaledb

import (
	"context"

	"github.com/chrissnell/tidewatch/internal/storage"
)

// CheckHealth pings the database and runs a trivial query
func (t *Storage) CheckHealth(ctx context.Context) storage.HealthData {
	if err := t.Ping(ctx); err != nil {
		return storage.CreateHealthData(storage.StatusUnhealthy, "Database ping failed", err)
	}

	var result int
	if err := t.TimescaleDBConn.WithContext(ctx).Raw("SELECT 1").Scan(&result).Error; err != nil {
		return storage.CreateHealthData(storage.StatusUnhealthy, "Database query test failed", err)
	}

	return storage.CreateHealthData(storage.StatusHealthy, "TimescaleDB operational - ping: OK, query test: OK", nil)
}
