// Package config provides 12-factor configuration for a crosspane host.
//
// Configuration is loaded from environment variables with sensible defaults:
//   - PORT, HOST
//   - HANDSHAKE_ATTEMPTS, HANDSHAKE_INTERVAL
//   - BRIDGE_RATE_LIMIT, BRIDGE_BURST
//   - LOG_LEVEL, LOG_DEV
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all host configuration.
type Config struct {
	Server    ServerConfig
	Handshake HandshakeConfig
	Bridge    BridgeConfig
	Logging   LogConfig
}

// ServerConfig holds HTTP server configuration for the demo host.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// HandshakeConfig holds the retry policy for pairing announcements.
type HandshakeConfig struct {
	Attempts int           `envconfig:"HANDSHAKE_ATTEMPTS" default:"5"`
	Interval time.Duration `envconfig:"HANDSHAKE_INTERVAL" default:"500ms"`
}

// BridgeConfig holds WebSocket bridge limits.
type BridgeConfig struct {
	MessagesPerSecond float64 `envconfig:"BRIDGE_RATE_LIMIT" default:"200"`
	Burst             int     `envconfig:"BRIDGE_BURST" default:"400"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns defaults.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Handshake: HandshakeConfig{
			Attempts: 5,
			Interval: 500 * time.Millisecond,
		},
		Bridge: BridgeConfig{
			MessagesPerSecond: 200,
			Burst:             400,
		},
		Logging: LogConfig{
			Level: "info",
		},
	}
}
