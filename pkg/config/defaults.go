package config

import (
	"fmt"
	"time"
)

const (
	DefaultHistoryCapacity = 100
	DefaultListenAddr      = "0.0.0.0"
	DefaultPort            = 8080
	DefaultBufferSize      = 50
	DefaultTopicPrefix     = "tidewatch"
	DefaultHealthInterval  = time.Minute
)

var storageBackends = map[string]bool{
	"memory":      true,
	"jsonfile":    true,
	"sqlite":      true,
	"timescaledb": true,
}

// DefaultStations returns the two stations of the Río de la Plata setup: a
// trend-only station and a surge station predicting Tigre.
func DefaultStations() []StationData {
	return []StationData{
		{
			ID:              "san-fernando",
			Name:            "San Fernando",
			HistoryCapacity: 72,
		},
		{
			ID:              "pilote-norden",
			Name:            "Pilote Norden",
			HistoryCapacity: 100,
			Surge:           DefaultSurge(),
			Downstream:      DefaultDownstream(),
		},
	}
}

func DefaultSurge() *SurgeData {
	return &SurgeData{OnThreshold: 2.0, OffThreshold: 1.8, Cooldown: 4 * time.Hour}
}

func DefaultDownstream() *DownstreamData {
	return &DownstreamData{Name: "Tigre", HeightOffset: 0.35, TimeOffset: 3*time.Hour + 30*time.Minute}
}

// SetDefaults fills in every value left empty in the configuration
func (c *ConfigData) SetDefaults() {
	if len(c.Stations) == 0 {
		c.Stations = DefaultStations()
	}
	for i := range c.Stations {
		c.Stations[i].setDefaults()
	}

	if c.Storage.Backend == "" {
		c.Storage.Backend = "jsonfile"
	}
	if c.Storage.HealthInterval == 0 {
		c.Storage.HealthInterval = DefaultHealthInterval
	}
	if c.Storage.Backend == "jsonfile" && c.Storage.JSONFile == nil {
		c.Storage.JSONFile = &JSONFileData{Directory: "data"}
	}
	if c.Storage.JSONFile != nil && c.Storage.JSONFile.Codec == "" {
		c.Storage.JSONFile.Codec = "json"
	}

	if len(c.Controllers) == 0 {
		c.Controllers = []ControllerData{{Type: "rest", RESTServer: &RESTServerData{}}}
	}
	for i := range c.Controllers {
		if rs := c.Controllers[i].RESTServer; rs != nil {
			if rs.ListenAddr == "" {
				rs.ListenAddr = DefaultListenAddr
			}
			if rs.Port == 0 {
				rs.Port = DefaultPort
			}
		}
	}

	if c.Notifiers.BufferSize == 0 {
		c.Notifiers.BufferSize = DefaultBufferSize
	}
	for _, m := range []*MQTTData{c.Notifiers.MQTT, c.Sources.MQTT} {
		if m != nil && m.TopicPrefix == "" {
			m.TopicPrefix = DefaultTopicPrefix
		}
	}
}

func (s *StationData) setDefaults() {
	if s.Name == "" {
		s.Name = s.ID
	}
	if s.HistoryCapacity == 0 {
		s.HistoryCapacity = DefaultHistoryCapacity
	}
	if s.Surge != nil {
		def := DefaultSurge()
		if s.Surge.OnThreshold == 0 {
			s.Surge.OnThreshold = def.OnThreshold
		}
		if s.Surge.OffThreshold == 0 {
			s.Surge.OffThreshold = def.OffThreshold
		}
		if s.Surge.Cooldown == 0 {
			s.Surge.Cooldown = def.Cooldown
		}
	}
	if s.Downstream != nil {
		def := DefaultDownstream()
		if s.Downstream.Name == "" {
			s.Downstream.Name = def.Name
		}
		if s.Downstream.HeightOffset == 0 {
			s.Downstream.HeightOffset = def.HeightOffset
		}
		if s.Downstream.TimeOffset == 0 {
			s.Downstream.TimeOffset = def.TimeOffset
		}
	}
}

// Validate checks the configuration for errors a running service could not
// recover from
func (c *ConfigData) Validate() error {
	if len(c.Stations) == 0 {
		return fmt.Errorf("at least one station is required")
	}

	seen := make(map[string]bool, len(c.Stations))
	for _, s := range c.Stations {
		if s.ID == "" {
			return fmt.Errorf("station id is required")
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate station id %q", s.ID)
		}
		seen[s.ID] = true

		if s.HistoryCapacity < 1 {
			return fmt.Errorf("station %s: history capacity must be at least 1", s.ID)
		}
		if s.Surge != nil && s.Surge.OffThreshold >= s.Surge.OnThreshold {
			return fmt.Errorf("station %s: surge off threshold (%v) must be below on threshold (%v)", s.ID, s.Surge.OffThreshold, s.Surge.OnThreshold)
		}
		if s.Downstream != nil && s.Surge == nil {
			return fmt.Errorf("station %s: downstream prediction requires a surge block", s.ID)
		}
	}

	if !storageBackends[c.Storage.Backend] {
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	switch c.Storage.Backend {
	case "jsonfile":
		if c.Storage.JSONFile == nil || c.Storage.JSONFile.Directory == "" {
			return fmt.Errorf("jsonfile storage requires a directory")
		}
	case "sqlite":
		if c.Storage.SQLite == nil || c.Storage.SQLite.Path == "" {
			return fmt.Errorf("sqlite storage requires a path")
		}
	case "timescaledb":
		if c.Storage.TimescaleDB == nil || c.Storage.TimescaleDB.ConnectionString == "" {
			return fmt.Errorf("timescaledb storage requires a connection string")
		}
	}

	for _, con := range c.Controllers {
		switch con.Type {
		case "rest", "restserver":
			if con.RESTServer == nil {
				return fmt.Errorf("rest controller requires a rest block")
			}
		default:
			return fmt.Errorf("unknown controller type: %s", con.Type)
		}
	}

	if k := c.Notifiers.Kafka; k != nil && (len(k.Brokers) == 0 || k.Topic == "") {
		return fmt.Errorf("kafka notifier requires brokers and a topic")
	}
	if i := c.Notifiers.InfluxDB; i != nil && (i.URL == "" || i.Bucket == "") {
		return fmt.Errorf("influxdb notifier requires a url and a bucket")
	}
	for _, m := range []*MQTTData{c.Notifiers.MQTT, c.Sources.MQTT} {
		if m != nil && m.Broker == "" {
			return fmt.Errorf("mqtt requires a broker")
		}
		if m != nil && m.QoS > 2 {
			return fmt.Errorf("mqtt qos must be 0, 1 or 2")
		}
	}

	return nil
}
