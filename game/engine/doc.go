// Package engine provides the domain model for Bingo Duel.
//
// The engine package implements:
//   - The Room record shared by the lobby, the store and the coordinator
//   - Player slots and strict turn alternation
//   - Rematch vote bookkeeping
//   - 5x5 grid generation and validation
//   - Room code minting
//
// Core Types:
//
// Room is the persisted state of one game, addressed by a short code. Slot
// identifies one of the two fixed player positions. Grid is a player's private
// 5x5 card holding the numbers 1 to 25 exactly once.
//
// Usage:
//
//	room := engine.NewRoom(engine.NewRoomCode())
//	room.Player1 = "Player 1"
//	room.Grids[engine.Player1] = engine.GenerateGrid()
//
//	if room.IsTurn(engine.Player1) {
//		room.AdvanceTurn()
//	}
//
// Everything in this package is free of I/O and locking. Callers that share a
// Room across goroutines must serialize access themselves.
package engine
