// Package session provides room state storage for Bingo Duel.
//
// The session package implements:
//   - Thread-safe room storage and retrieval
//   - Copy-on-read so callers never alias the cached record
//   - Pluggable persistence (JSON files or SQLite)
//   - Room cleanup and expiration
//
// Core Types:
//
// Manager is the store the rest of the server talks to. It keeps every known
// room in memory and writes through to an optional RoomPersistence so rooms
// survive a restart. FilePersistence stores one JSON file per room code;
// SQLitePersistence stores one row per room code.
//
// Room Codes:
//
// Codes are case-insensitive. The manager upper-cases every code it is given,
// so "abc123" and "ABC123" address the same room.
//
// Usage:
//
//	persistence, err := session.NewFilePersistence("rooms")
//	if err != nil {
//		log.Fatal(err)
//	}
//	manager := session.NewManagerWithPersistence(persistence)
//
//	room, err := manager.Load(ctx, "ABC123")
//	if errors.Is(err, session.ErrRoomNotFound) {
//		// handled by the lobby before any connection is made
//	}
//	room.AdvanceTurn()
//	err = manager.Save(ctx, room)
//
// Concurrency:
//
// The manager is safe for concurrent use, but it does not serialize
// read-modify-write sequences on one room. That is the job of the room
// coordinator, which is the only writer of record once a room exists.
package session
