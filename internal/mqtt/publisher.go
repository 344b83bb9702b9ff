package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/chrissnell/tidewatch/internal/log"
	"github.com/chrissnell/tidewatch/internal/notifiers"
	"github.com/chrissnell/tidewatch/internal/types"
)

// Publisher is a notifier that publishes each notification as JSON to
// <prefix>/events/<station>/<kind>. Surge transitions are retained so late
// subscribers see the last one.
type Publisher struct {
	cfg    Config
	client Client
}

// NewPublisher connects to the broker for publishing
func NewPublisher(c Config) (*Publisher, error) {
	client, err := Connect(c, nil)
	if err != nil {
		return nil, err
	}
	return &Publisher{cfg: c, client: client}, nil
}

func (p *Publisher) Name() string { return "mqtt" }

// StartEngine starts the goroutine that publishes notifications
func (p *Publisher) StartEngine(ctx context.Context, wg *sync.WaitGroup) chan<- types.Notification {
	log.Info("starting MQTT notifier...")
	c := make(chan types.Notification, 10)
	wg.Add(2)
	go notifiers.ProcessNotifications(ctx, wg, c, p.Send, p.Name())
	go func() {
		defer wg.Done()
		<-ctx.Done()
		if p.client.IsConnected() {
			p.client.Disconnect(250)
		}
	}()
	return c
}

// Topic returns the topic a notification is published on
func (p *Publisher) Topic(n types.Notification) string {
	return fmt.Sprintf("%s/events/%s/%s", p.cfg.TopicPrefix, n.StationID, n.Kind)
}

// Send publishes one notification and waits for the broker
func (p *Publisher) Send(n types.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("could not encode notification: %w", err)
	}

	retained := n.Kind != types.NotificationReading
	token := p.client.Publish(p.Topic(n), p.cfg.QoS, retained, payload)
	token.Wait()
	return token.Error()
}
