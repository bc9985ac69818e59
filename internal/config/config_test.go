package config

import (
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Handshake.Attempts != 5 {
		t.Errorf("default handshake attempts should be 5, got %d", cfg.Handshake.Attempts)
	}
	if cfg.Handshake.Interval != 500*time.Millisecond {
		t.Errorf("default handshake interval should be 500ms, got %v", cfg.Handshake.Interval)
	}
	if cfg.Server.Port != "8000" {
		t.Errorf("default port should be 8000, got %s", cfg.Server.Port)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HANDSHAKE_ATTEMPTS", "3")
	t.Setenv("HANDSHAKE_INTERVAL", "100ms")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Handshake.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", cfg.Handshake.Attempts)
	}
	if cfg.Handshake.Interval != 100*time.Millisecond {
		t.Errorf("expected 100ms interval, got %v", cfg.Handshake.Interval)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected debug level, got %s", cfg.Logging.Level)
	}
}

func TestLoadOrDefaultFallsBack(t *testing.T) {
	t.Setenv("HANDSHAKE_ATTEMPTS", "not-a-number")

	cfg := LoadOrDefault()
	if cfg.Handshake.Attempts != 5 {
		t.Errorf("invalid env should fall back to defaults, got %d", cfg.Handshake.Attempts)
	}
}
