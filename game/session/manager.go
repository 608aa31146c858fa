package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/wricardo/bingo-duel/game/engine"
)

var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomAlreadyExists = errors.New("room already exists")
)

// Manager keeps rooms in memory and writes through to persistence
type Manager struct {
	rooms       map[string]*engine.Room
	persistence RoomPersistence
	mu          sync.RWMutex
}

// NewManager creates a memory-only room manager
func NewManager() *Manager {
	return &Manager{
		rooms: make(map[string]*engine.Room),
	}
}

// NewManagerWithPersistence creates a room manager backed by persistence
func NewManagerWithPersistence(persistence RoomPersistence) *Manager {
	return &Manager{
		rooms:       make(map[string]*engine.Room),
		persistence: persistence,
	}
}

// Create stores a brand new room. It fails if the code is already taken in
// memory or in persistence.
func (m *Manager) Create(ctx context.Context, room *engine.Room) error {
	if room == nil {
		return fmt.Errorf("room cannot be nil")
	}
	code := engine.NormalizeCode(room.Code)
	if err := engine.ValidateCode(code); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.rooms[code]; exists {
		return ErrRoomAlreadyExists
	}
	if m.persistence != nil && m.persistence.Exists(ctx, code) {
		return ErrRoomAlreadyExists
	}

	stored := room.Clone()
	stored.Code = code
	if m.persistence != nil {
		if err := m.persistence.Save(ctx, stored); err != nil {
			return fmt.Errorf("failed to persist room %s: %w", code, err)
		}
	}
	m.rooms[code] = stored

	return nil
}

// Load returns a copy of the room. Mutating it has no effect until Save.
func (m *Manager) Load(ctx context.Context, code string) (*engine.Room, error) {
	code = engine.NormalizeCode(code)

	m.mu.RLock()
	room, exists := m.rooms[code]
	m.mu.RUnlock()

	if exists {
		return room.Clone(), nil
	}

	if m.persistence == nil {
		return nil, ErrRoomNotFound
	}

	loaded, err := m.persistence.Load(ctx, code)
	if errors.Is(err, ErrRoomNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load persisted room: %w", err)
	}

	m.mu.Lock()
	if cached, ok := m.rooms[code]; ok {
		loaded = cached
	} else {
		m.rooms[code] = loaded
	}
	m.mu.Unlock()

	return loaded.Clone(), nil
}

// Save replaces the stored record for room.Code. Persistence is written
// first; the cache is only updated when that succeeds.
func (m *Manager) Save(ctx context.Context, room *engine.Room) error {
	if room == nil {
		return fmt.Errorf("room cannot be nil")
	}

	stored := room.Clone()
	stored.Code = engine.NormalizeCode(stored.Code)
	stored.Touch()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.persistence != nil {
		if err := m.persistence.Save(ctx, stored); err != nil {
			return fmt.Errorf("failed to persist room %s: %w", stored.Code, err)
		}
	}
	m.rooms[stored.Code] = stored

	return nil
}

// Exists reports whether a room is known in memory or persistence
func (m *Manager) Exists(ctx context.Context, code string) bool {
	code = engine.NormalizeCode(code)

	m.mu.RLock()
	_, exists := m.rooms[code]
	m.mu.RUnlock()

	if exists {
		return true
	}
	return m.persistence != nil && m.persistence.Exists(ctx, code)
}

// List returns copies of all rooms in memory, oldest first
func (m *Manager) List() []*engine.Room {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*engine.Room, 0, len(m.rooms))
	for _, room := range m.rooms {
		result = append(result, room.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result
}

// Delete removes a room from memory and persistence
func (m *Manager) Delete(ctx context.Context, code string) error {
	code = engine.NormalizeCode(code)

	m.mu.Lock()
	defer m.mu.Unlock()

	_, inMemory := m.rooms[code]
	delete(m.rooms, code)

	if m.persistence != nil && m.persistence.Exists(ctx, code) {
		if err := m.persistence.Delete(ctx, code); err != nil {
			return fmt.Errorf("failed to delete persisted room: %w", err)
		}
		return nil
	}

	if !inMemory {
		return ErrRoomNotFound
	}

	return nil
}

// DeleteFromMemory drops a room from the cache only
func (m *Manager) DeleteFromMemory(code string) error {
	code = engine.NormalizeCode(code)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.rooms[code]; !exists {
		return ErrRoomNotFound
	}
	delete(m.rooms, code)
	return nil
}

// Count returns the number of rooms in memory
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

// ExpiredRooms returns the codes of rooms whose last update is older than
// maxAge. Nothing is deleted.
func (m *Manager) ExpiredRooms(maxAge time.Duration) []string {
	cutoff := time.Now().Add(-maxAge)

	m.mu.RLock()
	defer m.mu.RUnlock()

	var codes []string
	for code, room := range m.rooms {
		if room.UpdatedAt.Before(cutoff) {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	return codes
}

// DeleteIfExpired deletes the room only if it is still older than maxAge,
// so a room saved since ExpiredRooms listed it is kept.
func (m *Manager) DeleteIfExpired(ctx context.Context, code string, maxAge time.Duration) (bool, error) {
	code = engine.NormalizeCode(code)
	cutoff := time.Now().Add(-maxAge)

	m.mu.Lock()
	defer m.mu.Unlock()

	room, exists := m.rooms[code]
	if !exists || !room.UpdatedAt.Before(cutoff) {
		return false, nil
	}
	if m.persistence != nil && m.persistence.Exists(ctx, code) {
		if err := m.persistence.Delete(ctx, code); err != nil {
			return false, fmt.Errorf("failed to delete expired room %s: %w", code, err)
		}
	}
	delete(m.rooms, code)
	return true, nil
}

// CleanupExpiredRooms deletes rooms whose last update is older than maxAge
// and returns their codes. It does not coordinate with live rooms; the
// server expires rooms through room.Hub.Delete instead.
func (m *Manager) CleanupExpiredRooms(ctx context.Context, maxAge time.Duration) []string {
	var removed []string
	for _, code := range m.ExpiredRooms(maxAge) {
		deleted, err := m.DeleteIfExpired(ctx, code, maxAge)
		if err != nil {
			log.Printf("Warning: %v", err)
			continue
		}
		if deleted {
			removed = append(removed, code)
		}
	}
	return removed
}

// LoadPersistedRooms loads all persisted rooms into memory
func (m *Manager) LoadPersistedRooms(ctx context.Context) error {
	if m.persistence == nil {
		return nil
	}

	codes, err := m.persistence.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list persisted rooms: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	loadedCount := 0
	for _, code := range codes {
		code = engine.NormalizeCode(code)
		if _, exists := m.rooms[code]; exists {
			continue
		}

		room, err := m.persistence.Load(ctx, code)
		if err != nil {
			log.Printf("Warning: Failed to load persisted room %s: %v", code, err)
			continue
		}

		m.rooms[code] = room
		loadedCount++
	}

	if loadedCount > 0 {
		log.Printf("Loaded %d persisted rooms from storage", loadedCount)
	}

	return nil
}
