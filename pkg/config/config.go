// Package config provides YAML-based configuration loading for the thingset client.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the root application configuration.
type Config struct {
	// Log holds logging configuration
	Log LogConfig `mapstructure:"log"`

	// Client selects and tunes the connection to the node
	Client ClientConfig `mapstructure:"client"`

	Metrics MetricsConfig `mapstructure:"metrics"`
}

// LogConfig defines logger settings.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `mapstructure:"level"`
	// Format: console or json
	Format string `mapstructure:"format"`
	// Outputs: list of outputs: stdout, stderr, or file paths
	Outputs []string `mapstructure:"outputs"`

	// Rotation controls file rotation when writing to files
	Rotation RotationConfig `mapstructure:"rotation"`
	// Development toggles development-friendly logging options
	Development bool `mapstructure:"development"`
}

// RotationConfig controls log file rotation for file outputs.
type RotationConfig struct {
	Enable     bool   `mapstructure:"enable"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ClientConfig describes how to reach a node.
type ClientConfig struct {
	// Backend: serial or socket
	Backend string `mapstructure:"backend"`
	// Encoding: text or binary; empty picks text for serial and binary for socket
	Encoding string `mapstructure:"encoding"`

	TimeoutMS int `mapstructure:"timeout_ms"`
	QueueSize int `mapstructure:"queue_size"`
	// GetPaths resolves numeric IDs to paths on fetch and get
	GetPaths bool `mapstructure:"get_paths"`
	// PathCacheTTLMS caches resolved paths; 0 disables the cache
	PathCacheTTLMS int `mapstructure:"path_cache_ttl_ms"`

	Serial SerialConfig `mapstructure:"serial"`
	Socket SocketConfig `mapstructure:"socket"`
}

type SerialConfig struct {
	Port string `mapstructure:"port"`
	Baud int    `mapstructure:"baud"`
}

type SocketConfig struct {
	Address       string `mapstructure:"address"`
	Port          int    `mapstructure:"port"`
	DialTimeoutMS int    `mapstructure:"dial_timeout_ms"`
}

// MetricsConfig toggles prometheus instrumentation of the client.
type MetricsConfig struct {
	Enable bool `mapstructure:"enable"`
}

// Default returns a Config populated with sensible defaults.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:       "info",
			Format:      "console",
			Outputs:     []string{"stderr"},
			Development: false,
			Rotation: RotationConfig{
				Enable:     false,
				Filename:   "logs/thingset.log",
				MaxSizeMB:  50,
				MaxBackups: 3,
				MaxAgeDays: 28,
				Compress:   true,
			},
		},
		Client: ClientConfig{
			Backend:   "serial",
			TimeoutMS: 500,
			QueueSize: 64,
			GetPaths:  true,
			Serial:    SerialConfig{Port: "/dev/pts/5", Baud: 115200},
			Socket:    SocketConfig{Address: "192.0.2.1", Port: 9001, DialTimeoutMS: 5000},
		},
	}
}

// Load reads configuration from the provided path (if non-empty),
// otherwise it searches common locations and supports environment overrides.
// Environment variables use the prefix THINGSET and `.`/`-` are replaced with `_`.
// Example: THINGSET_CLIENT_BACKEND=socket
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("THINGSET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// seed defaults for viper so env-only configs work
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.outputs", cfg.Log.Outputs)
	v.SetDefault("log.development", cfg.Log.Development)
	v.SetDefault("log.rotation.enable", cfg.Log.Rotation.Enable)
	v.SetDefault("log.rotation.filename", cfg.Log.Rotation.Filename)
	v.SetDefault("log.rotation.max_size_mb", cfg.Log.Rotation.MaxSizeMB)
	v.SetDefault("log.rotation.max_backups", cfg.Log.Rotation.MaxBackups)
	v.SetDefault("log.rotation.max_age_days", cfg.Log.Rotation.MaxAgeDays)
	v.SetDefault("log.rotation.compress", cfg.Log.Rotation.Compress)
	v.SetDefault("client.backend", cfg.Client.Backend)
	v.SetDefault("client.encoding", cfg.Client.Encoding)
	v.SetDefault("client.timeout_ms", cfg.Client.TimeoutMS)
	v.SetDefault("client.queue_size", cfg.Client.QueueSize)
	v.SetDefault("client.get_paths", cfg.Client.GetPaths)
	v.SetDefault("client.path_cache_ttl_ms", cfg.Client.PathCacheTTLMS)
	v.SetDefault("client.serial.port", cfg.Client.Serial.Port)
	v.SetDefault("client.serial.baud", cfg.Client.Serial.Baud)
	v.SetDefault("client.socket.address", cfg.Client.Socket.Address)
	v.SetDefault("client.socket.port", cfg.Client.Socket.Port)
	v.SetDefault("client.socket.dial_timeout_ms", cfg.Client.Socket.DialTimeoutMS)
	v.SetDefault("metrics.enable", cfg.Metrics.Enable)

	// Choose config file
	if path == "" {
		// Allow override via env var
		if envPath := os.Getenv("THINGSET_CONFIG"); envPath != "" {
			path = envPath
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		// Search common locations with base name `thingset`
		v.SetConfigName("thingset")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".thingset"))
		}
	}

	// Read config file if present; if not found, continue with defaults/env
	if err := v.ReadInConfig(); err != nil {
		var viperConfigFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &viperConfigFileNotFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	lvl := strings.ToLower(strings.TrimSpace(c.Log.Level))
	switch lvl {
	case "debug", "info", "warn", "warning", "error":
		// ok
	default:
		return fmt.Errorf("invalid log.level: %q", c.Log.Level)
	}

	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if len(c.Log.Outputs) == 0 {
		c.Log.Outputs = []string{"stderr"}
	}
	return c.Client.Validate()
}

// Validate normalises the client section and fills encoding from the backend.
func (c *ClientConfig) Validate() error {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	c.Encoding = strings.ToLower(strings.TrimSpace(c.Encoding))
	switch c.Backend {
	case "serial":
		if c.Encoding == "" {
			c.Encoding = "text"
		}
	case "socket", "tcp":
		c.Backend = "socket"
		if c.Encoding == "" {
			c.Encoding = "binary"
		}
	default:
		return fmt.Errorf("invalid client.backend: %q", c.Backend)
	}
	switch c.Encoding {
	case "text", "binary":
	case "cbor":
		c.Encoding = "binary"
	default:
		return fmt.Errorf("invalid client.encoding: %q", c.Encoding)
	}
	if c.TimeoutMS <= 0 {
		return fmt.Errorf("invalid client.timeout_ms: %d", c.TimeoutMS)
	}
	if c.QueueSize < 0 {
		return fmt.Errorf("invalid client.queue_size: %d", c.QueueSize)
	}
	if c.PathCacheTTLMS < 0 {
		c.PathCacheTTLMS = 0
	}
	if c.Backend == "serial" && strings.TrimSpace(c.Serial.Port) == "" {
		return errors.New("client.serial.port is required")
	}
	if c.Backend == "socket" {
		if strings.TrimSpace(c.Socket.Address) == "" {
			return errors.New("client.socket.address is required")
		}
		if c.Socket.Port <= 0 || c.Socket.Port > 65535 {
			return fmt.Errorf("invalid client.socket.port: %d", c.Socket.Port)
		}
	}
	return nil
}
