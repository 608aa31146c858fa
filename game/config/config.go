package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Store backends
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Config is the server configuration. Values come from Default, then the
// optional YAML file, then command line flags and environment variables.
type Config struct {
	// Host and Port are the HTTP listen address.
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	Debug bool `yaml:"debug"`

	// Store selects where rooms are kept: file, sqlite or memory.
	Store string `yaml:"store"`

	// DataDir holds one JSON file per room when Store is file.
	DataDir string `yaml:"data_dir"`

	// SQLitePath is the database file when Store is sqlite.
	SQLitePath     string `yaml:"sqlite_path"`
	SQLitePoolSize int    `yaml:"sqlite_pool_size"`

	// RoomTTL is how long a room may go without updates before it is deleted.
	// Zero keeps rooms forever.
	RoomTTL         time.Duration `yaml:"room_ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`

	// PublicURL is the externally reachable base URL, used for join links and
	// QR codes. Empty means derive it from the request.
	PublicURL string `yaml:"public_url"`

	Rooms     RoomsConfig     `yaml:"rooms"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Ngrok     NgrokConfig     `yaml:"ngrok"`
}

// RoomsConfig tunes the per-room coordinators.
type RoomsConfig struct {
	// IdleTimeout stops a room's coordinator after it has had no connections
	// for this long. The room itself is kept.
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	MailboxSize int `yaml:"mailbox_size"`

	// SlotAwareDelivery sends opponent-only events to the connections bound
	// to the other seat instead of every other connection.
	SlotAwareDelivery bool `yaml:"slot_aware_delivery"`
}

// WebSocketConfig tunes client connections.
type WebSocketConfig struct {
	MaxMessageSize int64 `yaml:"max_message_size"`
	SendBuffer     int   `yaml:"send_buffer"`
}

// NgrokConfig configures the optional public tunnel.
type NgrokConfig struct {
	Enabled   bool   `yaml:"enabled"`
	AuthToken string `yaml:"auth_token"`
	Domain    string `yaml:"domain"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Host:            "",
		Port:            8080,
		Store:           StoreFile,
		DataDir:         "rooms",
		SQLitePath:      "rooms.db",
		RoomTTL:         24 * time.Hour,
		CleanupInterval: time.Hour,
		Rooms: RoomsConfig{
			IdleTimeout: 10 * time.Minute,
			MailboxSize: 64,
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 4096,
			SendBuffer:     256,
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, filepath.Base(path), err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	var problems []string

	if c.Port < 0 || c.Port > 65535 {
		problems = append(problems, fmt.Sprintf("port %d out of range", c.Port))
	}

	switch c.Store {
	case StoreFile:
		if c.DataDir == "" {
			problems = append(problems, "data_dir is required for the file store")
		}
	case StoreSQLite:
		if c.SQLitePath == "" {
			problems = append(problems, "sqlite_path is required for the sqlite store")
		}
	case StoreMemory:
	default:
		problems = append(problems, fmt.Sprintf("unknown store %q (want file, sqlite or memory)", c.Store))
	}

	if c.RoomTTL < 0 {
		problems = append(problems, "room_ttl must not be negative")
	}
	if c.RoomTTL > 0 && c.CleanupInterval <= 0 {
		problems = append(problems, "cleanup_interval must be positive when room_ttl is set")
	}
	if c.Rooms.IdleTimeout < 0 {
		problems = append(problems, "rooms.idle_timeout must not be negative")
	}
	if c.Rooms.MailboxSize < 1 {
		problems = append(problems, "rooms.mailbox_size must be at least 1")
	}
	if c.WebSocket.MaxMessageSize < 64 {
		problems = append(problems, "websocket.max_message_size must be at least 64")
	}
	if c.WebSocket.SendBuffer < 1 {
		problems = append(problems, "websocket.send_buffer must be at least 1")
	}
	if c.Ngrok.Enabled && c.Ngrok.AuthToken == "" {
		problems = append(problems, "ngrok.auth_token is required when ngrok is enabled")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// BaseURL is the URL other processes use to reach this server.
func (c *Config) BaseURL() string {
	if c.PublicURL != "" {
		return strings.TrimRight(c.PublicURL, "/")
	}
	host := c.Host
	if host == "" || host == "0.0.0.0" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(c.Port))
}
