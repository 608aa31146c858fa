package session

import (
	"context"

	"github.com/wricardo/bingo-duel/game/engine"
)

// RoomPersistence defines the interface for persisting rooms
type RoomPersistence interface {
	// Save persists a room, replacing any previous record with the same code
	Save(ctx context.Context, room *engine.Room) error

	// Load retrieves a room by code
	Load(ctx context.Context, code string) (*engine.Room, error)

	// Delete removes a room from storage
	Delete(ctx context.Context, code string) error

	// ListAll returns all persisted room codes
	ListAll(ctx context.Context) ([]string, error)

	// Exists checks if a room exists in storage
	Exists(ctx context.Context, code string) bool
}
