// YAML config loader with CUE validation integration
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// TrackConfig locates the waypoint file inside a resource bundle directory.
type TrackConfig struct {
	BundleDir string `yaml:"bundle_dir"`
	Name      string `yaml:"name"`
}

// RegionConfig shapes the geofences built from the waypoints.
type RegionConfig struct {
	RadiusM float64 `yaml:"radius_m"`
	Label   string  `yaml:"label"`
}

// MonitoringConfig describes the region-monitoring capability.
type MonitoringConfig struct {
	Available *bool `yaml:"available"`
}

// KafkaConfig addresses a Kafka topic.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"group_id"`
}

// MQTTConfig addresses an MQTT topic.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
}

// WalkConfig drives the simulated walker.
type WalkConfig struct {
	SpeedMinMPS float64       `yaml:"speed_min_mps"`
	SpeedMaxMPS float64       `yaml:"speed_max_mps"`
	Interval    time.Duration `yaml:"interval"`
	Steps       int           `yaml:"steps"`
	Seed        int64         `yaml:"seed"`
	Tour        bool          `yaml:"tour"`
}

// FixConfig selects where position fixes come from.
type FixConfig struct {
	Source string      `yaml:"source"`
	Path   string      `yaml:"path"`
	Speed  float64     `yaml:"speed"`
	Walk   WalkConfig  `yaml:"walk"`
	Kafka  KafkaConfig `yaml:"kafka"`
	MQTT   MQTTConfig  `yaml:"mqtt"`
}

// GreptimeConfig addresses the GreptimeDB event table.
type GreptimeConfig struct {
	Endpoint string `yaml:"endpoint"`
	Database string `yaml:"database"`
	Table    string `yaml:"table"`
}

// OutputConfig selects the event writers.
type OutputConfig struct {
	Format   string         `yaml:"format"`
	LogFile  string         `yaml:"log_file"`
	Greptime GreptimeConfig `yaml:"greptime"`
	Kafka    KafkaConfig    `yaml:"kafka"`
}

type AdminConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the root configuration.
type Config struct {
	Track      TrackConfig      `yaml:"track"`
	Region     RegionConfig     `yaml:"region"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Fixes      FixConfig        `yaml:"fixes"`
	Output     OutputConfig     `yaml:"output"`
	Admin      AdminConfig      `yaml:"admin"`
	Log        LogConfig        `yaml:"log"`
}

// Fix source names.
const (
	SourceWalk   = "walk"
	SourceReplay = "replay"
	SourceGPX    = "gpx"
	SourceKafka  = "kafka"
	SourceMQTT   = "mqtt"
)

// Output formats.
const (
	FormatAuto  = "auto"
	FormatJSON  = "json"
	FormatColor = "color"
	FormatTUI   = "tui"
)

// Load validates configPath against the CUE schema (embedded when
// cueSchemaPath is empty), decodes it and applies defaults and environment
// overrides.
func Load(configPath, cueSchemaPath string) (*Config, error) {
	if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{Track: TrackConfig{Name: "LocationsForSimulation"}}
	cfg.applyDefaults()
	return cfg
}

// FromEnv returns Default with environment overrides applied.
func FromEnv() (*Config, error) {
	cfg := Default()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MonitoringAvailable reports whether region monitoring is enabled (default true).
func (c *Config) MonitoringAvailable() bool {
	return c.Monitoring.Available == nil || *c.Monitoring.Available
}

func (c *Config) applyDefaults() {
	if c.Track.BundleDir == "" {
		c.Track.BundleDir = "resources"
	}
	if c.Region.RadiusM <= 0 {
		c.Region.RadiusM = 500
	}
	if c.Region.Label == "" {
		c.Region.Label = "Location"
	}
	if c.Fixes.Source == "" {
		c.Fixes.Source = SourceWalk
	}
	if c.Fixes.Speed == 0 {
		c.Fixes.Speed = 1
	}
	w := &c.Fixes.Walk
	if w.SpeedMinMPS == 0 && w.SpeedMaxMPS == 0 {
		w.SpeedMinMPS, w.SpeedMaxMPS = 15, 30
	}
	if w.Interval <= 0 {
		w.Interval = time.Second
	}
	if c.Fixes.Kafka.GroupID == "" {
		c.Fixes.Kafka.GroupID = "geotification"
	}
	if c.Fixes.Kafka.Topic == "" {
		c.Fixes.Kafka.Topic = "position.fixes"
	}
	if c.Fixes.MQTT.Topic == "" {
		c.Fixes.MQTT.Topic = "geotification/fixes"
	}
	if c.Fixes.MQTT.ClientID == "" {
		c.Fixes.MQTT.ClientID = "geotification"
	}
	if c.Output.Format == "" {
		c.Output.Format = FormatAuto
	}
	if c.Output.Greptime.Database == "" {
		c.Output.Greptime.Database = "public"
	}
	if c.Output.Greptime.Table == "" {
		c.Output.Greptime.Table = "geofence_events"
	}
	if c.Output.Kafka.Topic == "" {
		c.Output.Kafka.Topic = "geofence.events"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// applyEnv lets deployment environments override connection settings.
func (c *Config) applyEnv() error {
	if v := os.Getenv("GREPTIMEDB_ENDPOINT"); v != "" {
		c.Output.Greptime.Endpoint = v
	}
	if v := os.Getenv("GREPTIMEDB_DATABASE"); v != "" {
		c.Output.Greptime.Database = v
	}
	if v := os.Getenv("GREPTIMEDB_TABLE"); v != "" {
		c.Output.Greptime.Table = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Output.Kafka.Brokers = splitList(v)
		if len(c.Fixes.Kafka.Brokers) == 0 {
			c.Fixes.Kafka.Brokers = c.Output.Kafka.Brokers
		}
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Output.Kafka.Topic = v
	}
	if v := os.Getenv("MQTT_BROKER"); v != "" {
		c.Fixes.MQTT.Broker = v
	}
	if v := os.Getenv("TICK_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid TICK_INTERVAL: %w", err)
		}
		c.Fixes.Walk.Interval = d
	}
	if v := os.Getenv("ADMIN_ADDR"); v != "" {
		c.Admin.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
