package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/chrissnell/tidewatch/internal/controllers/restserver"
	"github.com/chrissnell/tidewatch/internal/ingest"
	"github.com/chrissnell/tidewatch/internal/log"
	"github.com/chrissnell/tidewatch/internal/managers"
	"github.com/chrissnell/tidewatch/internal/metrics"
	"github.com/chrissnell/tidewatch/internal/prediction"
	"github.com/chrissnell/tidewatch/internal/storage"
	"github.com/chrissnell/tidewatch/internal/surge"
	"github.com/chrissnell/tidewatch/pkg/config"
)

// App represents the main application
type App struct {
	config   *config.ConfigData
	logger   *zap.SugaredLogger
	registry prometheus.Registerer
	gatherer prometheus.Gatherer
}

// New creates a new application instance. Metrics go to the default
// Prometheus registry.
func New(cfg *config.ConfigData, logger *zap.SugaredLogger) *App {
	return &App{
		config:   cfg,
		logger:   logger,
		registry: prometheus.DefaultRegisterer,
		gatherer: prometheus.DefaultGatherer,
	}
}

// WithRegistry makes the application register and serve metrics from reg
func (a *App) WithRegistry(reg *prometheus.Registry) *App {
	a.registry = reg
	a.gatherer = reg
	return a
}

// Run starts the application and blocks until a shutdown signal arrives or
// ctx is cancelled
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	store, err := managers.NewStateStore(ctx, a.config.Storage)
	if err != nil {
		return fmt.Errorf("error opening %s state store: %w", a.config.Storage.Backend, err)
	}
	defer store.Close()

	health := storage.NewHealthManager()
	managers.StartStorageHealth(ctx, health, a.config.Storage, store)

	recorder, err := metrics.NewPromRecorderWithRegistry(a.registry)
	if err != nil {
		return fmt.Errorf("error registering metrics: %w", err)
	}

	nm, err := managers.NewNotificationManager(ctx, &wg, a.config.Notifiers, recorder, a.logger)
	if err != nil {
		return err
	}

	coord, err := ingest.New(StationConfigs(a.config.Stations), store, a.logger,
		ingest.WithNotifier(nm), ingest.WithRecorder(recorder))
	if err != nil {
		return fmt.Errorf("error creating ingest coordinator: %w", err)
	}

	// A station whose records cannot be read starts empty; the next
	// successful ingest overwrites the unreadable records.
	if err := coord.Restore(ctx); err != nil {
		log.Warnf("station state only partially restored: %v", err)
	}

	sm, err := managers.NewSourceManager(ctx, a.config.Sources, coord, a.logger)
	if err != nil {
		return err
	}
	if err := sm.StartSources(); err != nil {
		return err
	}

	cm, err := managers.NewControllerManager(ctx, &wg, a.config.Controllers, restserver.Deps{
		Stations: coord,
		Ingester: coord,
		Health:   health,
		Gatherer: a.gatherer,
	}, a.logger)
	if err != nil {
		return err
	}
	if err := cm.StartControllers(); err != nil {
		return err
	}

	log.Infof("tidewatch started, monitoring %d stations", len(coord.StationIDs()))

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	select {
	case <-sigs:
		log.Info("shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
		log.Info("context cancelled, shutting down...")
	}

	cancel()

	log.Info("waiting for all workers to terminate...")
	wg.Wait()
	log.Info("shutdown complete")

	return nil
}

// StationConfigs converts configured stations to coordinator station
// definitions
func StationConfigs(stations []config.StationData) []ingest.StationConfig {
	out := make([]ingest.StationConfig, 0, len(stations))
	for _, s := range stations {
		sc := ingest.StationConfig{
			ID:              s.ID,
			Name:            s.Name,
			HistoryCapacity: s.HistoryCapacity,
			TrendRateWindow: s.TrendRateWindow,
		}
		if s.Surge != nil {
			sc.Surge = &surge.Config{
				On:       s.Surge.OnThreshold,
				Off:      s.Surge.OffThreshold,
				Cooldown: s.Surge.Cooldown,
			}
		}
		if s.Downstream != nil {
			sc.Downstream = &prediction.Config{
				Name:         s.Downstream.Name,
				HeightOffset: s.Downstream.HeightOffset,
				TimeOffset:   s.Downstream.TimeOffset,
			}
		}
		out = append(out, sc)
	}
	return out
}
