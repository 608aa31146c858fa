package engine

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestSlotOther(t *testing.T) {
	tests := []struct {
		slot     Slot
		expected Slot
	}{
		{Player1, Player2},
		{Player2, Player1},
		{NoSlot, NoSlot},
		{Slot("player3"), NoSlot},
	}

	for _, test := range tests {
		if got := test.slot.Other(); got != test.expected {
			t.Errorf("%q.Other(): expected %q, got %q", test.slot, test.expected, got)
		}
	}
}

func TestParseSlot(t *testing.T) {
	tests := []struct {
		input    string
		expected Slot
		wantErr  bool
	}{
		{"player1", Player1, false},
		{"player2", Player2, false},
		{"Player 1", Player1, false},
		{" PLAYER 2 ", Player2, false},
		{"Guest", NoSlot, true},
		{"", NoSlot, true},
	}

	for _, test := range tests {
		got, err := ParseSlot(test.input)
		if test.wantErr {
			if !errors.Is(err, ErrInvalidSlot) {
				t.Errorf("ParseSlot(%q): expected ErrInvalidSlot, got %v", test.input, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseSlot(%q): unexpected error %v", test.input, err)
		}
		if got != test.expected {
			t.Errorf("ParseSlot(%q): expected %q, got %q", test.input, test.expected, got)
		}
	}
}

func TestSlotJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Turn Slot `json:"current_turn"`
	}{})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `{"current_turn":null}` {
		t.Errorf("Expected null turn, got %s", data)
	}

	var decoded struct {
		Turn Slot `json:"current_turn"`
	}
	if err := json.Unmarshal([]byte(`{"current_turn":"player2"}`), &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded.Turn != Player2 {
		t.Errorf("Expected player2, got %q", decoded.Turn)
	}

	if err := json.Unmarshal([]byte(`{"current_turn":null}`), &decoded); err != nil {
		t.Fatalf("Unmarshal null failed: %v", err)
	}
	if decoded.Turn != NoSlot {
		t.Errorf("Expected NoSlot after null, got %q", decoded.Turn)
	}
}

func TestRoomPlayersCount(t *testing.T) {
	room := NewRoom("abc123")

	if room.Code != "ABC123" {
		t.Errorf("Expected normalized code ABC123, got %s", room.Code)
	}
	if room.PlayersCount() != 0 {
		t.Errorf("Expected 0 players, got %d", room.PlayersCount())
	}

	room.SetPlayer(Player1, "Player 1")
	if room.PlayersCount() != 1 || room.Full() {
		t.Errorf("Expected 1 player and not full, got %d", room.PlayersCount())
	}

	room.SetPlayer(Player2, "Player 2")
	if !room.Full() {
		t.Error("Expected room to be full")
	}
}

func TestRoomTurnAlternation(t *testing.T) {
	room := NewRoom("TURN01")
	room.CurrentTurn = Player1

	for i := 0; i < 10; i++ {
		before := room.CurrentTurn
		after := room.AdvanceTurn()
		if after != before.Other() {
			t.Fatalf("Step %d: expected %q, got %q", i, before.Other(), after)
		}
	}
	if room.CurrentTurn != Player1 {
		t.Errorf("Expected player1 after an even number of turns, got %q", room.CurrentTurn)
	}

	if room.IsTurn(Player2) {
		t.Error("player2 should not have the turn")
	}
	if room.IsTurn(NoSlot) {
		t.Error("NoSlot should never have the turn")
	}
}

func TestRoomVotes(t *testing.T) {
	room := &Room{Code: "VOTE01"}

	if !room.EnsureVotes() {
		t.Error("EnsureVotes should initialize a nil vote set")
	}
	if room.EnsureVotes() {
		t.Error("EnsureVotes should be a no-op the second time")
	}

	added, err := room.AddVote(Player1)
	if err != nil || !added {
		t.Fatalf("First vote: added=%v err=%v", added, err)
	}
	added, err = room.AddVote(Player1)
	if err != nil || added {
		t.Fatalf("Duplicate vote: added=%v err=%v", added, err)
	}
	if len(room.RematchVotes) != 1 {
		t.Errorf("Expected 1 vote, got %d", len(room.RematchVotes))
	}
	if !room.OnlyVote(Player1) {
		t.Error("Expected player1 to be the only vote")
	}

	if _, err := room.AddVote(Slot("player9")); !errors.Is(err, ErrInvalidSlot) {
		t.Errorf("Expected ErrInvalidSlot, got %v", err)
	}

	room.AddVote(Player2)
	if !room.RematchAgreed() {
		t.Error("Expected rematch to be agreed")
	}

	room.CurrentTurn = Player2
	room.ResetForRematch()
	if len(room.RematchVotes) != 0 || room.RematchVotes == nil {
		t.Errorf("Expected empty non-nil votes, got %v", room.RematchVotes)
	}
	if room.CurrentTurn != Player1 {
		t.Errorf("Expected player1 after reset, got %q", room.CurrentTurn)
	}
}

func TestRoomClone(t *testing.T) {
	room := NewRoom("CLONE1")
	room.Grids[Player1] = GenerateGrid()
	room.AddVote(Player1)

	clone := room.Clone()
	clone.RematchVotes[0] = Player2
	clone.Grids[Player2] = GenerateGrid()
	clone.Player1 = "someone"

	if room.RematchVotes[0] != Player1 {
		t.Error("Clone shares the vote slice with the original")
	}
	if _, ok := room.Grids[Player2]; ok {
		t.Error("Clone shares the grid map with the original")
	}
	if room.Player1 != "" {
		t.Error("Clone shares scalar fields with the original")
	}

	var nilRoom *Room
	if nilRoom.Clone() != nil {
		t.Error("Clone of nil should be nil")
	}
}
