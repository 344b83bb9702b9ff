package mqtt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/chrissnell/tidewatch/internal/ingest"
	"github.com/chrissnell/tidewatch/internal/interfaces"
	"github.com/chrissnell/tidewatch/internal/types"
)

// Source subscribes to <prefix>/readings/+ and feeds every valid payload to
// the ingester
type Source struct {
	ctx      context.Context
	cfg      Config
	ingester interfaces.Ingester
	logger   *zap.SugaredLogger
	client   Client
	now      func() time.Time
}

// NewSource creates an MQTT reading source. Nothing connects until
// StartSource is called.
func NewSource(ctx context.Context, c Config, ingester interfaces.Ingester, logger *zap.SugaredLogger) *Source {
	return &Source{
		ctx:      ctx,
		cfg:      c,
		ingester: ingester,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Source) readingsTopic() string {
	return s.cfg.TopicPrefix + "/readings/+"
}

// StartSource connects to the broker. The subscription is (re)established
// from the connect handler so it survives reconnects.
func (s *Source) StartSource() error {
	client, err := Connect(s.cfg, func(opts *paho.ClientOptions) {
		opts.SetOnConnectHandler(func(c paho.Client) {
			if err := s.subscribe(c); err != nil {
				s.logger.Errorf("MQTT subscribe failed: %v", err)
			}
		})
	})
	if err != nil {
		return err
	}
	s.client = client

	go func() {
		<-s.ctx.Done()
		s.logger.Info("disconnecting MQTT source...")
		client.Disconnect(250)
	}()
	return nil
}

func (s *Source) subscribe(c Client) error {
	token := c.Subscribe(s.readingsTopic(), s.cfg.QoS, s.handleMessage)
	token.Wait()
	if err := token.Error(); err != nil {
		return err
	}
	s.logger.Infof("subscribed to MQTT topic %s", s.readingsTopic())
	return nil
}

func (s *Source) handleMessage(_ paho.Client, msg paho.Message) {
	stationID, err := s.stationFromTopic(msg.Topic())
	if err != nil {
		s.logger.Warnf("ignoring MQTT message: %v", err)
		return
	}

	height, label, at, err := types.DecodeReadingInput(msg.Payload(), s.now())
	if err != nil {
		s.logger.Warnf("ignoring MQTT reading for station [%s]: %v", stationID, err)
		return
	}

	res, err := s.ingester.Ingest(s.ctx, stationID, height, label, at)
	switch {
	case errors.Is(err, ingest.ErrUnknownStation):
		s.logger.Warnf("ignoring MQTT reading for unknown station [%s]", stationID)
	case err != nil:
		s.logger.Errorf("could not ingest MQTT reading for station [%s]: %v", stationID, err)
	case res.PersistErr != nil:
		s.logger.Warnf("MQTT reading for station [%s] applied but not persisted: %v", stationID, res.PersistErr)
	default:
		s.logger.Debugf("ingested MQTT reading for station [%s]: %.2fm at %s", stationID, height, label)
	}
}

func (s *Source) stationFromTopic(topic string) (string, error) {
	prefix := s.cfg.TopicPrefix + "/readings/"
	if !strings.HasPrefix(topic, prefix) {
		return "", fmt.Errorf("unexpected topic %q", topic)
	}
	id := strings.TrimPrefix(topic, prefix)
	if id == "" || strings.Contains(id, "/") {
		return "", fmt.Errorf("no station id in topic %q", topic)
	}
	return id, nil
}
