package room

import (
	"encoding/json"
	"fmt"

	"github.com/wricardo/bingo-duel/game/engine"
)

// Inbound actions
const (
	ActionChat       = "chat"
	ActionMarkNumber = "mark_number"
	ActionCallBingo  = "call_bingo"
	ActionPlayAgain  = "play_again"
)

// Outbound actions not shared with inbound ones
const (
	ActionNotification     = "notification"
	ActionTurnChange       = "turn_change"
	ActionBingoCalled      = "bingo_called"
	ActionGameStart        = "game_start"
	ActionResetGame        = "reset_game"
	ActionPlayersCount     = "players_count"
	ActionPlayAgainRequest = "play_again_request"
	ActionError            = "error"
)

// Error messages sent back to a single connection
const (
	MsgInvalidMessage  = "Invalid message"
	MsgNotYourTurn     = "Not your turn!"
	MsgUnknownPlayer   = "Unknown player"
	MsgRoomUnavailable = "Room unavailable"
	MsgSaveMoveFailed  = "Could not save move"
	MsgSaveVoteFailed  = "Could not save vote"
)

// Inbound is a decoded client frame. Fields that do not apply to the action
// are left at their zero value.
type Inbound struct {
	Action  string  `json:"action"`
	Player  string  `json:"player"`
	Message string  `json:"message,omitempty"`
	Emoji   *string `json:"emoji,omitempty"`
	Number  int     `json:"number,omitempty"`
}

// DecodeInbound parses one client frame. A frame without an action is
// rejected; unknown actions decode fine and are ignored later.
func DecodeInbound(data []byte) (*Inbound, error) {
	var msg Inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode inbound message: %w", err)
	}
	if msg.Action == "" {
		return nil, fmt.Errorf("decode inbound message: missing action")
	}
	return &msg, nil
}

// Slot resolves the claimed player to a slot. Display names are accepted.
func (m *Inbound) Slot() engine.Slot {
	slot, err := engine.ParseSlot(m.Player)
	if err != nil {
		return engine.NoSlot
	}
	return slot
}

type ChatEvent struct {
	Action  string  `json:"action"`
	Player  string  `json:"player"`
	Message string  `json:"message"`
	Emoji   *string `json:"emoji"`
}

type NotificationEvent struct {
	Action  string `json:"action"`
	Message string `json:"message"`
}

type MarkNumberEvent struct {
	Action string      `json:"action"`
	Number int         `json:"number"`
	Player engine.Slot `json:"player"`
}

// TurnEvent carries turn_change, game_start and reset_game.
type TurnEvent struct {
	Action      string      `json:"action"`
	CurrentTurn engine.Slot `json:"current_turn"`
}

type BingoCalledEvent struct {
	Action  string `json:"action"`
	Message string `json:"message"`
}

type PlayersCountEvent struct {
	Action      string      `json:"action"`
	Count       int         `json:"count"`
	CurrentTurn engine.Slot `json:"current_turn"`
}

type PlayAgainRequestEvent struct {
	Action string      `json:"action"`
	Player engine.Slot `json:"player"`
}

type ErrorEvent struct {
	Action  string `json:"action"`
	Message string `json:"message"`
}

func newChat(player, message string, emoji *string) ChatEvent {
	return ChatEvent{Action: ActionChat, Player: player, Message: message, Emoji: emoji}
}

func newNotification(message string) NotificationEvent {
	return NotificationEvent{Action: ActionNotification, Message: message}
}

func newMarkNumber(number int, player engine.Slot) MarkNumberEvent {
	return MarkNumberEvent{Action: ActionMarkNumber, Number: number, Player: player}
}

func newTurnEvent(action string, turn engine.Slot) TurnEvent {
	return TurnEvent{Action: action, CurrentTurn: turn}
}

func newBingoCalled(player string) BingoCalledEvent {
	return BingoCalledEvent{
		Action:  ActionBingoCalled,
		Message: fmt.Sprintf("%s called Bingo! Game Over!", player),
	}
}

func newPlayersCount(room *engine.Room) PlayersCountEvent {
	return PlayersCountEvent{
		Action:      ActionPlayersCount,
		Count:       room.PlayersCount(),
		CurrentTurn: room.CurrentTurn,
	}
}

func newPlayAgainRequest(player engine.Slot) PlayAgainRequestEvent {
	return PlayAgainRequestEvent{Action: ActionPlayAgainRequest, Player: player}
}

func newError(message string) ErrorEvent {
	return ErrorEvent{Action: ActionError, Message: message}
}
