package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/wricardo/bingo-duel/game/engine"
)

func newTestSQLite(t *testing.T) *SQLitePersistence {
	t.Helper()
	persistence, err := NewSQLitePersistence(filepath.Join(t.TempDir(), "rooms.db"), 2)
	if err != nil {
		t.Fatalf("Failed to open sqlite persistence: %v", err)
	}
	t.Cleanup(func() { persistence.Close() })
	return persistence
}

func TestSQLitePersistence(t *testing.T) {
	ctx := context.Background()
	persistence := newTestSQLite(t)

	room := createTestRoom("SQL001")
	room.CurrentTurn = engine.Player1

	t.Run("Save and Load Room", func(t *testing.T) {
		if err := persistence.Save(ctx, room); err != nil {
			t.Fatalf("Failed to save room: %v", err)
		}
		loaded, err := persistence.Load(ctx, "sql001")
		if err != nil {
			t.Fatalf("Failed to load room: %v", err)
		}
		if loaded.Player1 != "Player 1" || loaded.Player2 != "" {
			t.Errorf("Unexpected players %q / %q", loaded.Player1, loaded.Player2)
		}
		if loaded.CurrentTurn != engine.Player1 {
			t.Errorf("Expected turn player1, got %q", loaded.CurrentTurn)
		}
		if loaded.Grids[engine.Player1] != room.Grids[engine.Player1] {
			t.Error("Grid did not round trip")
		}
		if loaded.RematchVotes == nil || len(loaded.RematchVotes) != 0 {
			t.Errorf("Expected empty non-nil votes, got %v", loaded.RematchVotes)
		}
		if !loaded.CreatedAt.Equal(room.CreatedAt) {
			t.Errorf("Expected created_at %v, got %v", room.CreatedAt, loaded.CreatedAt)
		}
	})

	t.Run("Save Replaces Record", func(t *testing.T) {
		room.Player2 = "Player 2"
		room.AdvanceTurn()
		room.AddVote(engine.Player2)
		if err := persistence.Save(ctx, room); err != nil {
			t.Fatalf("Failed to update room: %v", err)
		}
		loaded, err := persistence.Load(ctx, "SQL001")
		if err != nil {
			t.Fatalf("Failed to load room: %v", err)
		}
		if loaded.Player2 != "Player 2" || loaded.CurrentTurn != engine.Player2 {
			t.Errorf("Update not applied: %+v", loaded)
		}
		if !loaded.OnlyVote(engine.Player2) {
			t.Errorf("Expected votes [player2], got %v", loaded.RematchVotes)
		}
	})

	t.Run("Nil Votes Stay Nil", func(t *testing.T) {
		if err := persistence.Save(ctx, &engine.Room{Code: "SQL002"}); err != nil {
			t.Fatalf("Failed to save room: %v", err)
		}
		loaded, err := persistence.Load(ctx, "SQL002")
		if err != nil {
			t.Fatalf("Failed to load room: %v", err)
		}
		if loaded.RematchVotes != nil {
			t.Errorf("Expected nil votes, got %v", loaded.RematchVotes)
		}
	})

	t.Run("List, Exists and Delete", func(t *testing.T) {
		codes, err := persistence.ListAll(ctx)
		if err != nil {
			t.Fatalf("Failed to list rooms: %v", err)
		}
		if len(codes) != 2 {
			t.Errorf("Expected 2 rooms, got %v", codes)
		}

		if !persistence.Exists(ctx, "SQL002") {
			t.Error("Expected SQL002 to exist")
		}
		if err := persistence.Delete(ctx, "SQL002"); err != nil {
			t.Fatalf("Failed to delete room: %v", err)
		}
		if persistence.Exists(ctx, "SQL002") {
			t.Error("Expected SQL002 to be gone")
		}
		if err := persistence.Delete(ctx, "SQL002"); !errors.Is(err, ErrRoomNotFound) {
			t.Errorf("Expected ErrRoomNotFound, got %v", err)
		}
		if _, err := persistence.Load(ctx, "SQL002"); !errors.Is(err, ErrRoomNotFound) {
			t.Errorf("Expected ErrRoomNotFound, got %v", err)
		}
	})
}

func TestNewSQLitePersistence_EmptyPath(t *testing.T) {
	if _, err := NewSQLitePersistence("", 1); err == nil {
		t.Error("Expected error for empty path")
	}
}
