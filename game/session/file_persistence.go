package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wricardo/bingo-duel/game/engine"
)

// FilePersistence implements RoomPersistence using one JSON file per room
type FilePersistence struct {
	roomsDir string
}

// NewFilePersistence creates a new file-based room persistence layer
func NewFilePersistence(roomsDir string) (*FilePersistence, error) {
	if err := os.MkdirAll(roomsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create rooms directory: %w", err)
	}

	return &FilePersistence{roomsDir: roomsDir}, nil
}

// Save writes the room to <dir>/<CODE>.json. The data goes to a temporary
// file first and is renamed into place so a crash never leaves half a record.
func (fp *FilePersistence) Save(ctx context.Context, room *engine.Room) error {
	if room == nil {
		return fmt.Errorf("room cannot be nil")
	}

	jsonData, err := json.MarshalIndent(room, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal room data: %w", err)
	}

	filePath := fp.getFilePath(room.Code)
	tmpPath := filePath + ".tmp"
	if err := os.WriteFile(tmpPath, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write room file: %w", err)
	}
	if err := os.Rename(tmpPath, filePath); err != nil {
		return fmt.Errorf("failed to replace room file: %w", err)
	}

	return nil
}

// Load retrieves a room from its JSON file
func (fp *FilePersistence) Load(ctx context.Context, code string) (*engine.Room, error) {
	jsonData, err := os.ReadFile(fp.getFilePath(code))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read room file: %w", err)
	}

	var room engine.Room
	if err := json.Unmarshal(jsonData, &room); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room data: %w", err)
	}
	if room.Grids == nil {
		room.Grids = make(map[engine.Slot]engine.Grid)
	}

	return &room, nil
}

// Delete removes a room file
func (fp *FilePersistence) Delete(ctx context.Context, code string) error {
	if !fp.Exists(ctx, code) {
		return ErrRoomNotFound
	}

	if err := os.Remove(fp.getFilePath(code)); err != nil {
		return fmt.Errorf("failed to remove room file: %w", err)
	}

	return nil
}

// ListAll returns all persisted room codes
func (fp *FilePersistence) ListAll(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(fp.roomsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read rooms directory: %w", err)
	}

	var codes []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if strings.HasSuffix(name, ".json") {
			codes = append(codes, strings.TrimSuffix(name, ".json"))
		}
	}

	return codes, nil
}

// Exists checks if a room file exists
func (fp *FilePersistence) Exists(ctx context.Context, code string) bool {
	_, err := os.Stat(fp.getFilePath(code))
	return err == nil
}

func (fp *FilePersistence) getFilePath(code string) string {
	return filepath.Join(fp.roomsDir, engine.NormalizeCode(code)+".json")
}
