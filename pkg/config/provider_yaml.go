package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
	config   *ConfigData
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// LoadConfig loads the complete configuration from the YAML file, applies
// defaults and validates it. The result is cached.
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	if y.config != nil {
		return y.config, nil
	}

	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	config, err := Parse(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", y.filename, err)
	}

	y.config = config
	return config, nil
}

// Parse decodes a YAML document into ConfigData, applies defaults and
// validates the result
func Parse(data []byte) (*ConfigData, error) {
	var yamlConfig ConfigYAML
	if err := yaml.UnmarshalStrict(data, &yamlConfig); err != nil {
		return nil, err
	}

	config, err := yamlConfig.convert()
	if err != nil {
		return nil, err
	}

	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// GetStations returns station configurations
func (y *YAMLProvider) GetStations() ([]StationData, error) {
	config, err := y.LoadConfig()
	if err != nil {
		return nil, err
	}
	return config.Stations, nil
}

// GetStorageConfig returns storage configuration
func (y *YAMLProvider) GetStorageConfig() (*StorageData, error) {
	config, err := y.LoadConfig()
	if err != nil {
		return nil, err
	}
	return &config.Storage, nil
}

// GetControllers returns controller configurations
func (y *YAMLProvider) GetControllers() ([]ControllerData, error) {
	config, err := y.LoadConfig()
	if err != nil {
		return nil, err
	}
	return config.Controllers, nil
}

// IsReadOnly returns true since YAML files are treated as read-only
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}

// YAML-specific structs with kebab-case tags for the configuration file
type ConfigYAML struct {
	Stations    []StationYAML    `yaml:"stations,omitempty"`
	Storage     StorageYAML      `yaml:"storage,omitempty"`
	Controllers []ControllerYAML `yaml:"controllers,omitempty"`
	Notifiers   NotifiersYAML    `yaml:"notifiers,omitempty"`
	Sources     SourcesYAML      `yaml:"sources,omitempty"`
	Logging     LoggingYAML      `yaml:"logging,omitempty"`
}

type StationYAML struct {
	ID              string          `yaml:"id"`
	Name            string          `yaml:"name,omitempty"`
	HistoryCapacity int             `yaml:"history-capacity,omitempty"`
	TrendRateWindow int             `yaml:"trend-rate-window,omitempty"`
	Surge           *SurgeYAML      `yaml:"surge,omitempty"`
	Downstream      *DownstreamYAML `yaml:"downstream,omitempty"`
}

type SurgeYAML struct {
	OnThreshold  float64 `yaml:"on-threshold,omitempty"`
	OffThreshold float64 `yaml:"off-threshold,omitempty"`
	Cooldown     string  `yaml:"cooldown,omitempty"`
}

type DownstreamYAML struct {
	Name         string  `yaml:"name,omitempty"`
	HeightOffset float64 `yaml:"height-offset,omitempty"`
	TimeOffset   string  `yaml:"time-offset,omitempty"`
}

type StorageYAML struct {
	Backend        string           `yaml:"backend,omitempty"`
	HealthInterval string           `yaml:"health-interval,omitempty"`
	JSONFile       *JSONFileYAML    `yaml:"jsonfile,omitempty"`
	SQLite         *SQLiteYAML      `yaml:"sqlite,omitempty"`
	TimescaleDB    *TimescaleDBYAML `yaml:"timescaledb,omitempty"`
}

type JSONFileYAML struct {
	Directory string `yaml:"directory"`
	Codec     string `yaml:"codec,omitempty"`
}

type SQLiteYAML struct {
	Path string `yaml:"path"`
}

type TimescaleDBYAML struct {
	ConnectionString string `yaml:"connection-string"`
}

type ControllerYAML struct {
	Type       string          `yaml:"type,omitempty"`
	RESTServer *RESTServerYAML `yaml:"rest,omitempty"`
}

type RESTServerYAML struct {
	Cert         string   `yaml:"cert,omitempty"`
	Key          string   `yaml:"key,omitempty"`
	Port         int      `yaml:"port,omitempty"`
	ListenAddr   string   `yaml:"listen-addr,omitempty"`
	CORSOrigins  []string `yaml:"cors-origins,omitempty"`
	EnableIngest bool     `yaml:"enable-ingest,omitempty"`
}

type NotifiersYAML struct {
	BufferSize int           `yaml:"buffer-size,omitempty"`
	Kafka      *KafkaYAML    `yaml:"kafka,omitempty"`
	InfluxDB   *InfluxDBYAML `yaml:"influxdb,omitempty"`
	MQTT       *MQTTYAML     `yaml:"mqtt,omitempty"`
}

type KafkaYAML struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type InfluxDBYAML struct {
	URL    string `yaml:"url"`
	Token  string `yaml:"token,omitempty"`
	Org    string `yaml:"org,omitempty"`
	Bucket string `yaml:"bucket"`
}

type SourcesYAML struct {
	MQTT *MQTTYAML `yaml:"mqtt,omitempty"`
}

type MQTTYAML struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client-id,omitempty"`
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	TopicPrefix string `yaml:"topic-prefix,omitempty"`
	QoS         byte   `yaml:"qos,omitempty"`
}

type LoggingYAML struct {
	Debug      bool   `yaml:"debug,omitempty"`
	File       string `yaml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max-size-mb,omitempty"`
	MaxBackups int    `yaml:"max-backups,omitempty"`
	MaxAgeDays int    `yaml:"max-age-days,omitempty"`
}

// convert turns the YAML structs into our internal format
func (c ConfigYAML) convert() (*ConfigData, error) {
	config := &ConfigData{
		Stations:    make([]StationData, 0, len(c.Stations)),
		Controllers: make([]ControllerData, 0, len(c.Controllers)),
		Logging:     LoggingData(c.Logging),
	}

	for _, s := range c.Stations {
		station := StationData{
			ID:              s.ID,
			Name:            s.Name,
			HistoryCapacity: s.HistoryCapacity,
			TrendRateWindow: s.TrendRateWindow,
		}
		if s.Surge != nil {
			cooldown, err := parseDuration(s.Surge.Cooldown)
			if err != nil {
				return nil, fmt.Errorf("station %s: surge cooldown: %w", s.ID, err)
			}
			station.Surge = &SurgeData{
				OnThreshold:  s.Surge.OnThreshold,
				OffThreshold: s.Surge.OffThreshold,
				Cooldown:     cooldown,
			}
		}
		if s.Downstream != nil {
			offset, err := parseDuration(s.Downstream.TimeOffset)
			if err != nil {
				return nil, fmt.Errorf("station %s: downstream time offset: %w", s.ID, err)
			}
			station.Downstream = &DownstreamData{
				Name:         s.Downstream.Name,
				HeightOffset: s.Downstream.HeightOffset,
				TimeOffset:   offset,
			}
		}
		config.Stations = append(config.Stations, station)
	}

	// Convert storage
	interval, err := parseDuration(c.Storage.HealthInterval)
	if err != nil {
		return nil, fmt.Errorf("storage health interval: %w", err)
	}
	config.Storage = StorageData{
		Backend:        c.Storage.Backend,
		HealthInterval: interval,
	}
	if c.Storage.JSONFile != nil {
		config.Storage.JSONFile = &JSONFileData{
			Directory: c.Storage.JSONFile.Directory,
			Codec:     c.Storage.JSONFile.Codec,
		}
	}
	if c.Storage.SQLite != nil {
		config.Storage.SQLite = &SQLiteData{Path: c.Storage.SQLite.Path}
	}
	if c.Storage.TimescaleDB != nil {
		config.Storage.TimescaleDB = &TimescaleDBData{
			ConnectionString: c.Storage.TimescaleDB.ConnectionString,
		}
	}

	// Convert controllers
	for _, con := range c.Controllers {
		cd := ControllerData{Type: con.Type}
		if con.RESTServer != nil {
			rs := RESTServerData(*con.RESTServer)
			cd.RESTServer = &rs
		}
		config.Controllers = append(config.Controllers, cd)
	}

	// Convert notifiers and sources
	config.Notifiers.BufferSize = c.Notifiers.BufferSize
	if c.Notifiers.Kafka != nil {
		k := KafkaData(*c.Notifiers.Kafka)
		config.Notifiers.Kafka = &k
	}
	if c.Notifiers.InfluxDB != nil {
		i := InfluxDBData(*c.Notifiers.InfluxDB)
		config.Notifiers.InfluxDB = &i
	}
	if c.Notifiers.MQTT != nil {
		m := MQTTData(*c.Notifiers.MQTT)
		config.Notifiers.MQTT = &m
	}
	if c.Sources.MQTT != nil {
		m := MQTTData(*c.Sources.MQTT)
		config.Sources.MQTT = &m
	}

	return config, nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
