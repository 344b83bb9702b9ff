package storage

import (
	"context"
	"time"

	"github.com/chrissnell/tidewatch/internal/log"
)

// HealthChecker defines the interface for storage backends to implement health checks
type HealthChecker interface {
	CheckHealth(ctx context.Context) HealthData
}

// PingChecker checks a Store by pinging it
type PingChecker struct {
	Store Store
	Name  string
}

// CheckHealth pings the wrapped store
func (p PingChecker) CheckHealth(ctx context.Context) HealthData {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := p.Store.Ping(ctx); err != nil {
		return CreateHealthData(StatusUnhealthy, p.Name+" ping failed", err)
	}
	return CreateHealthData(StatusHealthy, p.Name+" operational", nil)
}

// StartHealthMonitor starts a generic health monitoring goroutine for any storage backend
func StartHealthMonitor(ctx context.Context, hm *HealthManager, storageType string, checker HealthChecker, interval time.Duration) {
	go func() {
		updateHealth := func() {
			health := checker.CheckHealth(ctx)
			hm.UpdateHealth(storageType, health)
			if health.Status != StatusHealthy {
				log.Warnf("%s health check failed: %s (%s)", storageType, health.Message, health.Error)
			} else {
				log.Debugf("Updated %s health status: %s", storageType, health.Status)
			}
		}

		updateHealth()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				updateHealth()
			case <-ctx.Done():
				log.Infof("stopping %s health monitor", storageType)
				return
			}
		}
	}()
}

// CreateHealthData creates a basic health data structure
func CreateHealthData(status, message string, err error) HealthData {
	health := HealthData{
		LastCheck: time.Now(),
		Status:    status,
		Message:   message,
	}

	if err != nil {
		health.Error = err.Error()
	}

	return health
}
