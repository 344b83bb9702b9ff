package config

import "time"

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	// Get specific configuration sections
	GetStations() ([]StationData, error)
	GetStorageConfig() (*StorageData, error)
	GetControllers() ([]ControllerData, error)

	IsReadOnly() bool
	Close() error
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Stations    []StationData    `json:"stations"`
	Storage     StorageData      `json:"storage"`
	Controllers []ControllerData `json:"controllers,omitempty"`
	Notifiers   NotifiersData    `json:"notifiers,omitempty"`
	Sources     SourcesData      `json:"sources,omitempty"`
	Logging     LoggingData      `json:"logging,omitempty"`
}

// StationData holds configuration for one monitored station
type StationData struct {
	ID              string          `json:"id"`
	Name            string          `json:"name,omitempty"`
	HistoryCapacity int             `json:"history_capacity"`
	TrendRateWindow int             `json:"trend_rate_window,omitempty"`
	Surge           *SurgeData      `json:"surge,omitempty"`
	Downstream      *DownstreamData `json:"downstream,omitempty"`
}

// SurgeData holds the hysteresis thresholds of the surge detector
type SurgeData struct {
	OnThreshold  float64       `json:"on_threshold"`
	OffThreshold float64       `json:"off_threshold"`
	Cooldown     time.Duration `json:"cooldown"`
}

// DownstreamData holds the offsets used to predict the downstream station
type DownstreamData struct {
	Name         string        `json:"name"`
	HeightOffset float64       `json:"height_offset"`
	TimeOffset   time.Duration `json:"time_offset"`
}

// StorageData selects and configures the state store
type StorageData struct {
	Backend        string           `json:"backend"`
	HealthInterval time.Duration    `json:"health_interval,omitempty"`
	JSONFile       *JSONFileData    `json:"jsonfile,omitempty"`
	SQLite         *SQLiteData      `json:"sqlite,omitempty"`
	TimescaleDB    *TimescaleDBData `json:"timescaledb,omitempty"`
}

// Storage backend configuration structs
type JSONFileData struct {
	Directory string `json:"directory"`
	Codec     string `json:"codec,omitempty"`
}

type SQLiteData struct {
	Path string `json:"path"`
}

type TimescaleDBData struct {
	ConnectionString string `json:"connection_string"`
}

// ControllerData holds the configuration for various controller backends
type ControllerData struct {
	Type       string          `json:"type,omitempty"`
	RESTServer *RESTServerData `json:"rest,omitempty"`
}

type RESTServerData struct {
	Cert         string   `json:"cert,omitempty"`
	Key          string   `json:"key,omitempty"`
	Port         int      `json:"port,omitempty"`
	ListenAddr   string   `json:"listen_addr,omitempty"`
	CORSOrigins  []string `json:"cors_origins,omitempty"`
	EnableIngest bool     `json:"enable_ingest,omitempty"`
}

// NotifiersData configures the sinks that receive reading and surge
// notifications
type NotifiersData struct {
	BufferSize int           `json:"buffer_size,omitempty"`
	Kafka      *KafkaData    `json:"kafka,omitempty"`
	InfluxDB   *InfluxDBData `json:"influxdb,omitempty"`
	MQTT       *MQTTData     `json:"mqtt,omitempty"`
}

type KafkaData struct {
	Brokers []string `json:"brokers"`
	Topic   string   `json:"topic"`
}

type InfluxDBData struct {
	URL    string `json:"url"`
	Token  string `json:"token,omitempty"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// SourcesData configures reading sources other than the REST ingest endpoint
type SourcesData struct {
	MQTT *MQTTData `json:"mqtt,omitempty"`
}

// MQTTData is a broker connection plus the topic prefix used for readings
// (sources) or notifications (notifiers)
type MQTTData struct {
	Broker      string `json:"broker"`
	ClientID    string `json:"client_id,omitempty"`
	Username    string `json:"username,omitempty"`
	Password    string `json:"password,omitempty"`
	TopicPrefix string `json:"topic_prefix,omitempty"`
	QoS         byte   `json:"qos,omitempty"`
}

// LoggingData controls log verbosity and the optional rotated log file
type LoggingData struct {
	Debug      bool   `json:"debug,omitempty"`
	File       string `json:"file,omitempty"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty"`
	MaxBackups int    `json:"max_backups,omitempty"`
	MaxAgeDays int    `json:"max_age_days,omitempty"`
}
