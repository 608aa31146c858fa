// Package service provides the lobby layer for Bingo Duel.
//
// The service package implements:
//   - Room creation with a freshly minted code and player1's card
//   - Joining as player2, including who moves first
//   - Room lookup, listing and deletion
//   - Private card lookup for a seated player
//
// Core Interfaces:
//
// GameService is the interface the REST and MCP transports call.
// RoomStore is the room state store (session.Manager in production).
// LiveRooms is the running-game side (room.Hub in production). Joining a room
// mutates it through LiveRooms.Update so the change is ordered with whatever
// the players in that room are doing at the same time; deleting one goes
// through LiveRooms.Delete for the same reason.
//
// Usage:
//
//	store := session.NewManager()
//	hub := room.NewHub(store, room.NewRegistry(), room.Options{}, 10*time.Minute)
//	svc := service.NewGameService(store, hub)
//
//	host, err := svc.CreateRoom(ctx)
//	guest, err := svc.JoinRoom(ctx, host.Code)
//
// Errors:
//
// Unknown codes return session.ErrRoomNotFound, a malformed code returns
// ErrInvalidRoomCode, and a second join returns ErrRoomFull.
package service
