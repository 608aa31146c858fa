package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"runtime"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/wricardo/bingo-duel/game/engine"
)

const roomsSchema = `
CREATE TABLE IF NOT EXISTS rooms (
	code          TEXT PRIMARY KEY,
	player1       TEXT NOT NULL DEFAULT '',
	player2       TEXT NOT NULL DEFAULT '',
	current_turn  TEXT NOT NULL DEFAULT '',
	grids         TEXT NOT NULL DEFAULT '{}',
	rematch_votes TEXT NOT NULL DEFAULT 'null',
	created_at    INTEGER NOT NULL,
	updated_at    INTEGER NOT NULL
);`

// SQLitePersistence implements RoomPersistence with one row per room in a
// SQLite database. Grids and rematch votes are stored as JSON text.
type SQLitePersistence struct {
	pool *sqlitex.Pool
	path string
}

// NewSQLitePersistence opens (and if needed creates) the database at path.
// poolSize <= 0 picks max(NumCPU, 4). Use ":memory:" only with poolSize 1.
func NewSQLitePersistence(path string, poolSize int) (*SQLitePersistence, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if poolSize <= 0 {
		poolSize = runtime.NumCPU()
		if poolSize < 4 {
			poolSize = 4
		}
	}

	pool, err := sqlitex.NewPool(path, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		PrepareConn: prepareConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}

	log.Printf("Opened room database %s (pool size %d)", path, poolSize)

	return &SQLitePersistence{pool: pool, path: path}, nil
}

func prepareConnection(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if err := sqlitex.ExecuteScript(conn, roomsSchema, nil); err != nil {
		return fmt.Errorf("failed to create rooms table: %w", err)
	}
	return nil
}

// Close closes every pooled connection.
func (sp *SQLitePersistence) Close() error {
	if err := sp.pool.Close(); err != nil {
		return fmt.Errorf("failed to close sqlite database %s: %w", sp.path, err)
	}
	return nil
}

// Save upserts the room row
func (sp *SQLitePersistence) Save(ctx context.Context, room *engine.Room) error {
	if room == nil {
		return fmt.Errorf("room cannot be nil")
	}

	grids, err := json.Marshal(room.Grids)
	if err != nil {
		return fmt.Errorf("failed to marshal grids: %w", err)
	}
	votes, err := json.Marshal(room.RematchVotes)
	if err != nil {
		return fmt.Errorf("failed to marshal rematch votes: %w", err)
	}

	conn, err := sp.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("failed to take sqlite connection: %w", err)
	}
	defer sp.pool.Put(conn)

	err = sqlitex.Execute(conn, `
		INSERT INTO rooms (code, player1, player2, current_turn, grids, rematch_votes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			player1 = excluded.player1,
			player2 = excluded.player2,
			current_turn = excluded.current_turn,
			grids = excluded.grids,
			rematch_votes = excluded.rematch_votes,
			updated_at = excluded.updated_at`,
		&sqlitex.ExecOptions{
			Args: []any{
				engine.NormalizeCode(room.Code),
				room.Player1,
				room.Player2,
				string(room.CurrentTurn),
				string(grids),
				string(votes),
				room.CreatedAt.UnixNano(),
				room.UpdatedAt.UnixNano(),
			},
		})
	if err != nil {
		return fmt.Errorf("failed to save room %s: %w", room.Code, err)
	}
	return nil
}

// Load reads one room row
func (sp *SQLitePersistence) Load(ctx context.Context, code string) (*engine.Room, error) {
	conn, err := sp.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to take sqlite connection: %w", err)
	}
	defer sp.pool.Put(conn)

	var room *engine.Room
	var decodeErr error
	err = sqlitex.Execute(conn, `
		SELECT code, player1, player2, current_turn, grids, rematch_votes, created_at, updated_at
		FROM rooms WHERE code = ?`,
		&sqlitex.ExecOptions{
			Args: []any{engine.NormalizeCode(code)},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				room, decodeErr = scanRoom(stmt)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("failed to load room %s: %w", code, err)
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

func scanRoom(stmt *sqlite.Stmt) (*engine.Room, error) {
	room := &engine.Room{
		Code:        stmt.ColumnText(0),
		Player1:     stmt.ColumnText(1),
		Player2:     stmt.ColumnText(2),
		CurrentTurn: engine.Slot(stmt.ColumnText(3)),
		CreatedAt:   time.Unix(0, stmt.ColumnInt64(6)),
		UpdatedAt:   time.Unix(0, stmt.ColumnInt64(7)),
	}
	if err := json.Unmarshal([]byte(stmt.ColumnText(4)), &room.Grids); err != nil {
		return nil, fmt.Errorf("failed to unmarshal grids for %s: %w", room.Code, err)
	}
	if err := json.Unmarshal([]byte(stmt.ColumnText(5)), &room.RematchVotes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rematch votes for %s: %w", room.Code, err)
	}
	if room.Grids == nil {
		room.Grids = make(map[engine.Slot]engine.Grid)
	}
	return room, nil
}

// Delete removes a room row
func (sp *SQLitePersistence) Delete(ctx context.Context, code string) error {
	conn, err := sp.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("failed to take sqlite connection: %w", err)
	}
	defer sp.pool.Put(conn)

	err = sqlitex.Execute(conn, `DELETE FROM rooms WHERE code = ?`, &sqlitex.ExecOptions{
		Args: []any{engine.NormalizeCode(code)},
	})
	if err != nil {
		return fmt.Errorf("failed to delete room %s: %w", code, err)
	}
	if conn.Changes() == 0 {
		return ErrRoomNotFound
	}
	return nil
}

// ListAll returns every stored room code
func (sp *SQLitePersistence) ListAll(ctx context.Context) ([]string, error) {
	conn, err := sp.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to take sqlite connection: %w", err)
	}
	defer sp.pool.Put(conn)

	var codes []string
	err = sqlitex.Execute(conn, `SELECT code FROM rooms ORDER BY created_at`, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			codes = append(codes, stmt.ColumnText(0))
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	return codes, nil
}

// Exists checks if a room row exists
func (sp *SQLitePersistence) Exists(ctx context.Context, code string) bool {
	conn, err := sp.pool.Take(ctx)
	if err != nil {
		return false
	}
	defer sp.pool.Put(conn)

	found := false
	err = sqlitex.Execute(conn, `SELECT 1 FROM rooms WHERE code = ?`, &sqlitex.ExecOptions{
		Args: []any{engine.NormalizeCode(code)},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			found = true
			return nil
		},
	})
	return err == nil && found
}
