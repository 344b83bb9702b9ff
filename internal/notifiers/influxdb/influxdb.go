// Package influxdb writes readings and surge transitions to InfluxDB 2.x as
// line protocol points.
package influxdb

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/chrissnell/tidewatch/internal/log"
	"github.com/chrissnell/tidewatch/internal/notifiers"
	"github.com/chrissnell/tidewatch/internal/types"
)

// Config holds the InfluxDB connection settings
type Config struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// Notifier writes notifications to InfluxDB
type Notifier struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
}

// New creates an InfluxDB notifier for the given endpoint
func New(c Config) (*Notifier, error) {
	if c.URL == "" || c.Bucket == "" {
		return nil, fmt.Errorf("influxdb: url and bucket are required")
	}
	base := strings.TrimSuffix(c.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, c.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &Notifier{
		client:   client,
		writeAPI: client.WriteAPIBlocking(c.Org, c.Bucket),
	}, nil
}

func (i *Notifier) Name() string { return "influxdb" }

// StartEngine starts the goroutine that writes notifications to InfluxDB
func (i *Notifier) StartEngine(ctx context.Context, wg *sync.WaitGroup) chan<- types.Notification {
	log.Info("starting InfluxDB notifier...")
	c := make(chan types.Notification, 10)
	wg.Add(2)
	go notifiers.ProcessNotifications(ctx, wg, c, i.Send, i.Name())
	go func() {
		defer wg.Done()
		<-ctx.Done()
		i.client.Close()
	}()
	return c
}

// Send writes one notification. Readings go to the water_level measurement;
// surge transitions go to surge_event.
func (i *Notifier) Send(n types.Notification) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return i.writeAPI.WritePoint(ctx, point(n))
}

func point(n types.Notification) *write.Point {
	if n.Kind == types.NotificationReading {
		return write.NewPointWithMeasurement("water_level").
			AddTag("station", n.StationID).
			AddField("height", n.Reading.Height).
			AddField("label", n.Reading.ObservedAt).
			SetTime(n.Reading.RecordedAt)
	}

	p := write.NewPointWithMeasurement("surge_event").
		AddTag("station", n.StationID).
		AddTag("kind", string(n.Kind)).
		AddField("height", n.Reading.Height)
	if n.Surge != nil {
		p = p.AddTag("event_id", n.Surge.EventID).
			AddField("peak_height", n.Surge.PeakHeight).
			AddField("active", n.Surge.Active)
	}
	return p.SetTime(n.Time)
}
