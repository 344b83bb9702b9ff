package managers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/chrissnell/tidewatch/internal/interfaces"
	"github.com/chrissnell/tidewatch/internal/mqtt"
	"github.com/chrissnell/tidewatch/pkg/config"
)

// Source is a reading source that feeds the ingester
type Source interface {
	StartSource() error
}

type sourceManager struct {
	logger  *zap.SugaredLogger
	sources map[string]Source
}

// NewSourceManager creates a SourceManager populated with all configured
// reading sources. The REST ingest endpoint is a controller, not a source.
func NewSourceManager(ctx context.Context, sd config.SourcesData, ingester interfaces.Ingester, logger *zap.SugaredLogger) (interfaces.SourceManager, error) {
	sm := &sourceManager{
		logger:  logger,
		sources: make(map[string]Source),
	}

	if sd.MQTT != nil {
		logger.Infof("Initializing MQTT reading source [%s]", sd.MQTT.Broker)
		sm.sources["mqtt"] = mqtt.NewSource(ctx, mqttConfig(sd.MQTT, "tidewatch-source"), ingester, logger)
	}

	return sm, nil
}

func (s *sourceManager) StartSources() error {
	for name, source := range s.sources {
		s.logger.Infof("Starting reading source [%v]...", name)
		if err := source.StartSource(); err != nil {
			return fmt.Errorf("failed to start reading source [%s]: %w", name, err)
		}
	}
	return nil
}
