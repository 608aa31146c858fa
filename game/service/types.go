package service

import (
	"time"

	"github.com/wricardo/bingo-duel/game/engine"
)

// JoinInfo is handed to a player when they take a seat
type JoinInfo struct {
	Code        string      `json:"code"`
	Player      engine.Slot `json:"player"`
	PlayerName  string      `json:"player_name"`
	Grid        engine.Grid `json:"grid"`
	CurrentTurn engine.Slot `json:"current_turn"`
}

// RoomInfo is the public view of a room. Grids are private and never included.
type RoomInfo struct {
	Code         string        `json:"code"`
	Player1      string        `json:"player1"`
	Player2      string        `json:"player2"`
	PlayersCount int           `json:"players_count"`
	Connections  int           `json:"connections"`
	CurrentTurn  engine.Slot   `json:"current_turn"`
	RematchVotes []engine.Slot `json:"rematch_votes"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// GridInfo is one player's card
type GridInfo struct {
	Code   string      `json:"code"`
	Player engine.Slot `json:"player"`
	Grid   engine.Grid `json:"grid"`
}
