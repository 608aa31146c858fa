// Package config provides server configuration for Bingo Duel.
//
// Configuration is layered. Default supplies every value, an optional YAML
// file (--config) overrides them, and the command line and environment
// override the file.
//
// Example file:
//
//	port: 8080
//	store: sqlite
//	sqlite_path: /var/lib/bingo/rooms.db
//	room_ttl: 48h
//	rooms:
//	  idle_timeout: 5m
//	  slot_aware_delivery: true
//	websocket:
//	  max_message_size: 4096
//
// Durations use Go syntax ("90s", "10m", "24h").
package config
