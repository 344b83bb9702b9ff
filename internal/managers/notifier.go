package managers

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/chrissnell/tidewatch/internal/mqtt"
	"github.com/chrissnell/tidewatch/internal/notifiers"
	"github.com/chrissnell/tidewatch/internal/notifiers/influxdb"
	"github.com/chrissnell/tidewatch/internal/notifiers/kafka"
	"github.com/chrissnell/tidewatch/internal/types"
	"github.com/chrissnell/tidewatch/pkg/config"
)

// Dropper is told about every notification a sink could not accept
type Dropper interface {
	NotificationDropped(sink string)
}

// NotificationManager holds our active notifier engines and fans
// notifications out to them. It satisfies ingest.Notifier.
type NotificationManager struct {
	Engines     []NotifierEngine
	distributor chan types.Notification
	dropper     Dropper
	logger      *zap.SugaredLogger
}

// NotifierEngine holds a notifier's interface as well as a channel for
// passing notifications to it
type NotifierEngine struct {
	Engine notifiers.Engine
	C      chan<- types.Notification
}

// NewNotificationManager creates a NotificationManager populated with all
// configured notifiers and starts its distributor
func NewNotificationManager(ctx context.Context, wg *sync.WaitGroup, nd config.NotifiersData, dropper Dropper, logger *zap.SugaredLogger) (*NotificationManager, error) {
	var engines []notifiers.Engine

	if nd.Kafka != nil {
		k, err := kafka.New(kafka.Config{Brokers: nd.Kafka.Brokers, Topic: nd.Kafka.Topic})
		if err != nil {
			return nil, fmt.Errorf("could not add Kafka notifier: %v", err)
		}
		engines = append(engines, k)
	}

	if nd.InfluxDB != nil {
		i, err := influxdb.New(influxdb.Config{URL: nd.InfluxDB.URL, Token: nd.InfluxDB.Token, Org: nd.InfluxDB.Org, Bucket: nd.InfluxDB.Bucket})
		if err != nil {
			return nil, fmt.Errorf("could not add InfluxDB notifier: %v", err)
		}
		engines = append(engines, i)
	}

	if nd.MQTT != nil {
		p, err := mqtt.NewPublisher(mqttConfig(nd.MQTT, "tidewatch-publisher"))
		if err != nil {
			return nil, fmt.Errorf("could not add MQTT notifier: %v", err)
		}
		engines = append(engines, p)
	}

	return newNotificationManager(ctx, wg, nd.BufferSize, dropper, logger, engines...), nil
}

func newNotificationManager(ctx context.Context, wg *sync.WaitGroup, bufferSize int, dropper Dropper, logger *zap.SugaredLogger, engines ...notifiers.Engine) *NotificationManager {
	if bufferSize < 1 {
		bufferSize = config.DefaultBufferSize
	}
	m := &NotificationManager{
		distributor: make(chan types.Notification, bufferSize),
		dropper:     dropper,
		logger:      logger,
	}

	for _, e := range engines {
		m.Engines = append(m.Engines, NotifierEngine{Engine: e, C: e.StartEngine(ctx, wg)})
	}

	wg.Add(1)
	go m.startDistributor(ctx, wg)

	logger.Infof("started %d notifiers", len(m.Engines))
	return m
}

// Notify queues n for every notifier. It never blocks; when the queue is
// full the notification is dropped.
func (m *NotificationManager) Notify(n types.Notification) {
	select {
	case m.distributor <- n:
	default:
		m.drop("distributor", n)
	}
}

// startDistributor receives notifications from the coordinator and fans
// them out to the notifier engines
func (m *NotificationManager) startDistributor(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		select {
		case n := <-m.distributor:
			for _, e := range m.Engines {
				select {
				case e.C <- n:
				default:
					m.drop(e.Engine.Name(), n)
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

func (m *NotificationManager) drop(sink string, n types.Notification) {
	m.logger.Warnf("notifier [%s] is not keeping up, dropped %s notification for station [%s]", sink, n.Kind, n.StationID)
	if m.dropper != nil {
		m.dropper.NotificationDropped(sink)
	}
}

func mqttConfig(md *config.MQTTData, defaultClientID string) mqtt.Config {
	clientID := md.ClientID
	if clientID == "" {
		clientID = defaultClientID
	}
	return mqtt.Config{
		Broker:      md.Broker,
		ClientID:    clientID,
		Username:    md.Username,
		Password:    md.Password,
		TopicPrefix: md.TopicPrefix,
		QoS:         md.QoS,
	}
}
