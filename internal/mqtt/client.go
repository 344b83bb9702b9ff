// Package mqtt connects the coordinator to an MQTT broker: a source that
// ingests readings published under <prefix>/readings/<station>, and a
// notifier that publishes events under <prefix>/events/<station>/<kind>.
package mqtt

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/chrissnell/tidewatch/internal/log"
)

// Client is the subset of paho.Client used here
type Client interface {
	IsConnected() bool
	Disconnect(uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

// Config holds the broker connection settings
type Config struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	QoS         byte
}

// Connect opens a broker connection with auto-reconnect
func Connect(c Config, optsFunc func(*paho.ClientOptions)) (Client, error) {
	opts := paho.NewClientOptions().
		AddBroker(c.Broker).
		SetClientID(c.ClientID).
		SetUsername(c.Username).
		SetPassword(c.Password).
		SetConnectTimeout(5 * time.Second).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warnf("MQTT connection to %s lost: %v", c.Broker, err)
		})

	if optsFunc != nil {
		optsFunc(opts)
	}

	client := paho.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("could not connect to MQTT broker %s: %w", c.Broker, token.Error())
	}
	log.Infof("connected to MQTT broker %s", c.Broker)
	return client, nil
}
