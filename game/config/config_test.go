package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bingo.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default config failed validation: %v", err)
	}
}

func TestLoad(t *testing.T) {
	t.Run("empty path returns defaults", func(t *testing.T) {
		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Port != 8080 || cfg.Store != StoreFile {
			t.Errorf("Unexpected defaults: %+v", cfg)
		}
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := writeConfigFile(t, `
port: 9090
store: sqlite
sqlite_path: /tmp/bingo.db
room_ttl: 2h
rooms:
  idle_timeout: 90s
  slot_aware_delivery: true
websocket:
  send_buffer: 32
`)
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Port != 9090 || cfg.Store != StoreSQLite || cfg.SQLitePath != "/tmp/bingo.db" {
			t.Errorf("Top level values not applied: %+v", cfg)
		}
		if cfg.RoomTTL != 2*time.Hour {
			t.Errorf("Expected room_ttl 2h, got %v", cfg.RoomTTL)
		}
		if cfg.Rooms.IdleTimeout != 90*time.Second || !cfg.Rooms.SlotAwareDelivery {
			t.Errorf("Rooms section not applied: %+v", cfg.Rooms)
		}
		if cfg.Rooms.MailboxSize != 64 {
			t.Errorf("Unset nested value should keep its default, got %d", cfg.Rooms.MailboxSize)
		}
		if cfg.WebSocket.SendBuffer != 32 || cfg.WebSocket.MaxMessageSize != 4096 {
			t.Errorf("WebSocket section not merged: %+v", cfg.WebSocket)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Error("Expected error for missing file")
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeConfigFile(t, "port: [1, 2\n")
		if _, err := Load(path); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("invalid values", func(t *testing.T) {
		path := writeConfigFile(t, "store: redis\n")
		if _, err := Load(path); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
		valid  bool
	}{
		{"memory store", func(c *Config) { c.Store = StoreMemory }, true},
		{"ttl disabled", func(c *Config) { c.RoomTTL = 0; c.CleanupInterval = 0 }, true},
		{"port out of range", func(c *Config) { c.Port = 70000 }, false},
		{"file store without dir", func(c *Config) { c.DataDir = "" }, false},
		{"sqlite without path", func(c *Config) { c.Store = StoreSQLite; c.SQLitePath = "" }, false},
		{"ttl without interval", func(c *Config) { c.CleanupInterval = 0 }, false},
		{"zero mailbox", func(c *Config) { c.Rooms.MailboxSize = 0 }, false},
		{"tiny messages", func(c *Config) { c.WebSocket.MaxMessageSize = 10 }, false},
		{"ngrok without token", func(c *Config) { c.Ngrok.Enabled = true }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.valid && err != nil {
				t.Errorf("Expected valid, got %v", err)
			}
			if !tt.valid && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestAddresses(t *testing.T) {
	cfg := Default()
	if cfg.Addr() != ":8080" {
		t.Errorf("Expected :8080, got %s", cfg.Addr())
	}
	if cfg.BaseURL() != "http://localhost:8080" {
		t.Errorf("Expected http://localhost:8080, got %s", cfg.BaseURL())
	}

	cfg.PublicURL = "https://bingo.example.com/"
	if cfg.BaseURL() != "https://bingo.example.com" {
		t.Errorf("Expected public URL without trailing slash, got %s", cfg.BaseURL())
	}
}
