// Package kafka publishes notifications as JSON messages keyed by station.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/chrissnell/tidewatch/internal/log"
	"github.com/chrissnell/tidewatch/internal/notifiers"
	"github.com/chrissnell/tidewatch/internal/types"
)

// messageWriter is the part of *kafka.Writer the notifier uses
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Config holds the Kafka connection settings
type Config struct {
	Brokers []string
	Topic   string
}

// Notifier writes notifications to a Kafka topic
type Notifier struct {
	writer messageWriter
	topic  string
}

// New creates a Kafka notifier. Messages are keyed by station id so that
// every notification of a station lands on the same partition.
func New(c Config) (*Notifier, error) {
	if len(c.Brokers) == 0 || c.Topic == "" {
		return nil, fmt.Errorf("kafka: brokers and topic are required")
	}

	w := &kafkago.Writer{
		Addr:         kafkago.TCP(c.Brokers...),
		Topic:        c.Topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireOne,
		Async:        false,
	}
	return &Notifier{writer: w, topic: c.Topic}, nil
}

func (k *Notifier) Name() string { return "kafka" }

// StartEngine starts the goroutine that writes notifications to Kafka
func (k *Notifier) StartEngine(ctx context.Context, wg *sync.WaitGroup) chan<- types.Notification {
	log.Infof("starting Kafka notifier for topic %s...", k.topic)
	c := make(chan types.Notification, 10)
	wg.Add(2)
	go notifiers.ProcessNotifications(ctx, wg, c, k.Send, k.Name())
	go func() {
		defer wg.Done()
		<-ctx.Done()
		if err := k.writer.Close(); err != nil {
			log.Warnf("error closing Kafka writer: %v", err)
		}
	}()
	return c
}

// Send writes one notification
func (k *Notifier) Send(n types.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("could not encode notification: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msg := kafkago.Message{
		Key:   []byte(n.StationID),
		Value: payload,
		Time:  n.Time,
		Headers: []kafkago.Header{
			{Key: "kind", Value: []byte(n.Kind)},
		},
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("could not write to Kafka: %w", err)
	}
	return nil
}
