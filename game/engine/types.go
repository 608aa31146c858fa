package engine

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Slot identifies one of the two player positions in a room.
type Slot string

const (
	// NoSlot is the zero Slot. As a turn it means nobody may play yet.
	NoSlot  Slot = ""
	Player1 Slot = "player1"
	Player2 Slot = "player2"
)

// Slots lists the two valid slots in seating order.
var Slots = [...]Slot{Player1, Player2}

// Valid reports whether s is player1 or player2.
func (s Slot) Valid() bool {
	return s == Player1 || s == Player2
}

// Other returns the opposing slot. NoSlot has no opponent.
func (s Slot) Other() Slot {
	switch s {
	case Player1:
		return Player2
	case Player2:
		return Player1
	}
	return NoSlot
}

// DisplayName is the seat name given to a player when they take the slot.
func (s Slot) DisplayName() string {
	switch s {
	case Player1:
		return "Player 1"
	case Player2:
		return "Player 2"
	}
	return ""
}

// MarshalJSON encodes NoSlot as null so clients can tell "no turn yet" apart
// from a real slot.
func (s Slot) MarshalJSON() ([]byte, error) {
	if s == NoSlot {
		return []byte("null"), nil
	}
	return json.Marshal(string(s))
}

// UnmarshalJSON accepts null, "" or any string. Validation is left to callers.
func (s *Slot) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = NoSlot
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("slot must be a string: %w", err)
	}
	*s = Slot(raw)
	return nil
}

// ParseSlot accepts "player1"/"player2" as well as the display names
// "Player 1"/"Player 2" handed out by the lobby.
func ParseSlot(v string) (Slot, error) {
	norm := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(v), " ", ""))
	switch norm {
	case "player1":
		return Player1, nil
	case "player2":
		return Player2, nil
	}
	return NoSlot, fmt.Errorf("%w: %q", ErrInvalidSlot, v)
}

// Room is the persisted state of one game.
type Room struct {
	Code         string        `json:"code"`
	Player1      string        `json:"player1,omitempty"`
	Player2      string        `json:"player2,omitempty"`
	CurrentTurn  Slot          `json:"current_turn"`
	Grids        map[Slot]Grid `json:"grids,omitempty"`
	RematchVotes []Slot        `json:"rematch_votes"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// NewRoom returns an empty room with no players, no turn and an empty vote set.
func NewRoom(code string) *Room {
	now := time.Now()
	return &Room{
		Code:         NormalizeCode(code),
		Grids:        make(map[Slot]Grid),
		RematchVotes: []Slot{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Clone returns a deep copy of the room.
func (r *Room) Clone() *Room {
	if r == nil {
		return nil
	}
	c := *r
	if r.Grids != nil {
		c.Grids = make(map[Slot]Grid, len(r.Grids))
		for slot, grid := range r.Grids {
			c.Grids[slot] = grid
		}
	}
	if r.RematchVotes != nil {
		c.RematchVotes = append([]Slot{}, r.RematchVotes...)
	}
	return &c
}

// PlayerName returns the display name occupying slot, or "".
func (r *Room) PlayerName(slot Slot) string {
	switch slot {
	case Player1:
		return r.Player1
	case Player2:
		return r.Player2
	}
	return ""
}

// SetPlayer seats name in slot.
func (r *Room) SetPlayer(slot Slot, name string) {
	switch slot {
	case Player1:
		r.Player1 = name
	case Player2:
		r.Player2 = name
	}
}

// Occupied reports whether slot has a player.
func (r *Room) Occupied(slot Slot) bool {
	return r.PlayerName(slot) != ""
}

// PlayersCount is the number of occupied slots (0-2). It counts seats, not
// live connections.
func (r *Room) PlayersCount() int {
	n := 0
	for _, slot := range Slots {
		if r.Occupied(slot) {
			n++
		}
	}
	return n
}

// Full reports whether both slots are taken.
func (r *Room) Full() bool {
	return r.PlayersCount() == len(Slots)
}

// IsTurn reports whether slot may mark a number right now.
func (r *Room) IsTurn(slot Slot) bool {
	return slot.Valid() && r.CurrentTurn == slot
}

// AdvanceTurn hands the turn to the other slot and returns the new turn.
func (r *Room) AdvanceTurn() Slot {
	r.CurrentTurn = r.CurrentTurn.Other()
	return r.CurrentTurn
}

// EnsureVotes initializes an unset vote set. It reports whether anything changed.
func (r *Room) EnsureVotes() bool {
	if r.RematchVotes != nil {
		return false
	}
	r.RematchVotes = []Slot{}
	return true
}

// HasVoted reports whether slot already asked for a rematch.
func (r *Room) HasVoted(slot Slot) bool {
	for _, v := range r.RematchVotes {
		if v == slot {
			return true
		}
	}
	return false
}

// AddVote records a rematch vote for slot. Voting twice is a no-op; the
// return value reports whether the set grew.
func (r *Room) AddVote(slot Slot) (bool, error) {
	if !slot.Valid() {
		return false, fmt.Errorf("%w: %q", ErrInvalidSlot, string(slot))
	}
	r.EnsureVotes()
	if r.HasVoted(slot) {
		return false, nil
	}
	r.RematchVotes = append(r.RematchVotes, slot)
	return true, nil
}

// OnlyVote reports whether slot is the single recorded vote.
func (r *Room) OnlyVote(slot Slot) bool {
	return len(r.RematchVotes) == 1 && r.RematchVotes[0] == slot
}

// RematchAgreed reports whether both slots voted.
func (r *Room) RematchAgreed() bool {
	return r.HasVoted(Player1) && r.HasVoted(Player2)
}

// ResetForRematch clears the votes and gives the first turn to player1.
// Grids are kept as they are.
func (r *Room) ResetForRematch() {
	r.RematchVotes = []Slot{}
	r.CurrentTurn = Player1
}

// Touch bumps UpdatedAt.
func (r *Room) Touch() {
	r.UpdatedAt = time.Now()
}
