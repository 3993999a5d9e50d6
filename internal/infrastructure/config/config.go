package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the Flostat core service.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	FCM        FCMConfig        `yaml:"fcm"`
	Thresholds ThresholdsConfig `yaml:"thresholds"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig contains HTTP API server settings.
type ServerConfig struct {
	Host     string              `yaml:"host"`
	Port     int                 `yaml:"port"`
	Timeouts ServerTimeoutConfig `yaml:"timeouts"`
}

// ServerTimeoutConfig contains HTTP timeout settings in seconds.
type ServerTimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// RedisConfig contains settings for the device status store.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig contains level-history recording settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// FCMConfig contains push notification delivery settings.
// Tokens maps an org id to its registered device tokens; registration
// happens out of band through the dashboard backend.
type FCMConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Endpoint  string              `yaml:"endpoint"`
	ServerKey string              `yaml:"server_key"`
	TimeoutMS int                 `yaml:"timeout_ms"`
	Tokens    map[string][]string `yaml:"tokens"`
}

// ThresholdsConfig contains the system default water level thresholds.
// Devices without explicit thresholds fall back to these percentages.
type ThresholdsConfig struct {
	DefaultMin int `yaml:"default_min"`
	DefaultMax int `yaml:"default_max"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: FLOSTAT_SECTION_KEY
// For example: FLOSTAT_DATABASE_PATH, FLOSTAT_REDIS_ADDR, FLOSTAT_SERVER_PORT
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: ServerTimeoutConfig{
				Read:  15,
				Write: 15,
				Idle:  60,
			},
		},
		Database: DatabaseConfig{
			Path:        "data/flostat.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "flostat-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		FCM: FCMConfig{
			Endpoint:  "https://fcm.googleapis.com/fcm/send",
			TimeoutMS: 5000,
		},
		Thresholds: ThresholdsConfig{
			DefaultMin: 25,
			DefaultMax: 75,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies FLOSTAT_* environment variables on top of the
// loaded configuration. Only operationally relevant keys are overridable;
// structural settings stay in the file.
func applyEnvOverrides(cfg *Config) {
	overrideString("FLOSTAT_SERVER_HOST", &cfg.Server.Host)
	overrideInt("FLOSTAT_SERVER_PORT", &cfg.Server.Port)
	overrideString("FLOSTAT_DATABASE_PATH", &cfg.Database.Path)
	overrideString("FLOSTAT_REDIS_ADDR", &cfg.Redis.Addr)
	overrideString("FLOSTAT_REDIS_PASSWORD", &cfg.Redis.Password)
	overrideString("FLOSTAT_MQTT_HOST", &cfg.MQTT.Broker.Host)
	overrideInt("FLOSTAT_MQTT_PORT", &cfg.MQTT.Broker.Port)
	overrideString("FLOSTAT_MQTT_CLIENT_ID", &cfg.MQTT.Broker.ClientID)
	overrideString("FLOSTAT_MQTT_USERNAME", &cfg.MQTT.Auth.Username)
	overrideString("FLOSTAT_MQTT_PASSWORD", &cfg.MQTT.Auth.Password)
	overrideString("FLOSTAT_INFLUXDB_URL", &cfg.InfluxDB.URL)
	overrideString("FLOSTAT_INFLUXDB_TOKEN", &cfg.InfluxDB.Token)
	overrideString("FLOSTAT_FCM_SERVER_KEY", &cfg.FCM.ServerKey)
	overrideString("FLOSTAT_LOGGING_LEVEL", &cfg.Logging.Level)
}

func overrideString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func overrideInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required")
	}
	if c.MQTT.Broker.Host == "" {
		return fmt.Errorf("mqtt.broker.host is required")
	}
	if c.MQTT.Broker.ClientID == "" {
		return fmt.Errorf("mqtt.broker.client_id is required")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS)
	}
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			return fmt.Errorf("influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Bucket == "" {
			return fmt.Errorf("influxdb.bucket is required when influxdb is enabled")
		}
	}
	if c.FCM.Enabled && c.FCM.ServerKey == "" {
		return fmt.Errorf("fcm.server_key is required when fcm is enabled")
	}
	if c.Thresholds.DefaultMin < 0 || c.Thresholds.DefaultMax > 100 {
		return fmt.Errorf("thresholds must be within 0-100")
	}
	if c.Thresholds.DefaultMin >= c.Thresholds.DefaultMax {
		return fmt.Errorf("thresholds.default_min (%d) must be below thresholds.default_max (%d)",
			c.Thresholds.DefaultMin, c.Thresholds.DefaultMax)
	}
	level := strings.ToLower(c.Logging.Level)
	switch level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}
