// Package config handles configuration loading and validation for huddle.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Transport kinds.
const (
	TransportJSONFile  = "jsonfile"
	TransportRedis     = "redis"
	TransportNATS      = "nats"
	TransportWebSocket = "websocket"
)

// Config holds the application configuration.
type Config struct {
	Viewer    string          `yaml:"viewer"`
	Locale    string          `yaml:"locale"`
	Timezone  string          `yaml:"timezone"`
	Room      RoomConfig      `yaml:"room"`
	Transport TransportConfig `yaml:"transport"`
	Relay     RelayConfig     `yaml:"relay"`
	DataDir   string          `yaml:"-"` // set by caller, not from config file
}

// RoomConfig selects the conversation to show.
type RoomConfig struct {
	Name  string `yaml:"name"`
	Title string `yaml:"title"` // header text, defaults to "Chat Room #<name>"
}

// TransportConfig selects and configures the snapshot source.
type TransportConfig struct {
	Kind      string          `yaml:"kind"`
	JSONFile  JSONFileConfig  `yaml:"jsonfile"`
	Redis     RedisConfig     `yaml:"redis"`
	NATS      NATSConfig      `yaml:"nats"`
	WebSocket WebSocketConfig `yaml:"websocket"`
}

type JSONFileConfig struct {
	Dir          string        `yaml:"dir"` // defaults to <data-dir>/rooms
	PollInterval time.Duration `yaml:"poll_interval"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type NATSConfig struct {
	URL    string `yaml:"url"`
	Bucket string `yaml:"bucket"`
}

type WebSocketConfig struct {
	URL string `yaml:"url"`
}

// RelayConfig configures the websocket fan-out server.
type RelayConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Locale:   "en-US",
		Timezone: "Local",
		Room: RoomConfig{
			Name: "random",
		},
		Transport: TransportConfig{
			Kind: TransportJSONFile,
			JSONFile: JSONFileConfig{
				PollInterval: 2 * time.Second,
			},
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "huddle",
			},
			NATS: NATSConfig{
				URL:    "nats://127.0.0.1:4222",
				Bucket: "huddle",
			},
			WebSocket: WebSocketConfig{
				URL: "ws://127.0.0.1:7420/ws",
			},
		},
		Relay: RelayConfig{
			Addr: ":7420",
		},
	}
}

// Load reads configuration from the given path and sets the data directory.
// If configPath is empty or doesn't exist, returns defaults with the provided dataDir.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.DataDir = dataDir

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			// Re-set dataDir since Unmarshal may have cleared it
			cfg.DataDir = dataDir
		}
	}

	if pw := os.Getenv("HUDDLE_REDIS_PASSWORD"); pw != "" {
		cfg.Transport.Redis.Password = pw
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Locale == "" {
		c.Locale = defaults.Locale
	}
	if c.Timezone == "" {
		c.Timezone = defaults.Timezone
	}
	if c.Room.Name == "" {
		c.Room.Name = defaults.Room.Name
	}
	if c.Transport.Kind == "" {
		c.Transport.Kind = defaults.Transport.Kind
	}
	if c.Transport.JSONFile.PollInterval == 0 {
		c.Transport.JSONFile.PollInterval = defaults.Transport.JSONFile.PollInterval
	}
	if c.Transport.Redis.Prefix == "" {
		c.Transport.Redis.Prefix = defaults.Transport.Redis.Prefix
	}
	if c.Transport.NATS.Bucket == "" {
		c.Transport.NATS.Bucket = defaults.Transport.NATS.Bucket
	}
	if c.Relay.Addr == "" {
		c.Relay.Addr = defaults.Relay.Addr
	}
}

// Location resolves the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// RoomTitle returns the header text for the configured room.
func (c *Config) RoomTitle() string {
	if c.Room.Title != "" {
		return c.Room.Title
	}
	return "Chat Room #" + c.Room.Name
}

// RoomsDir returns the directory holding jsonfile room documents.
func (c *Config) RoomsDir() string {
	if c.Transport.JSONFile.Dir != "" {
		return c.Transport.JSONFile.Dir
	}
	return filepath.Join(c.DataDir, "rooms")
}
