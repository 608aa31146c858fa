package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	mrand "math/rand/v2"

	"github.com/wricardo/bingo-duel/game/engine"
	"github.com/wricardo/bingo-duel/game/session"
)

const maxCodeAttempts = 10

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	rooms RoomStore
	live  LiveRooms
	// newCode mints room codes; replaced in tests
	newCode func() string
}

// NewGameService creates a new lobby service
func NewGameService(rooms RoomStore, live LiveRooms) GameService {
	return &gameServiceImpl{
		rooms:   rooms,
		live:    live,
		newCode: engine.NewRoomCode,
	}
}

func normalizeCode(code string) (string, error) {
	code = engine.NormalizeCode(code)
	if err := engine.ValidateCode(code); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidRoomCode, code)
	}
	return code, nil
}

// CreateRoom mints a fresh code and seats the caller as player1. No turn is
// set until a second player joins.
func (s *gameServiceImpl) CreateRoom(ctx context.Context) (*JoinInfo, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		room := engine.NewRoom(s.newCode())
		room.SetPlayer(engine.Player1, engine.Player1.DisplayName())
		room.Grids[engine.Player1] = engine.GenerateGrid()

		err := s.rooms.Create(ctx, room)
		if errors.Is(err, session.ErrRoomAlreadyExists) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create room: %w", err)
		}

		log.Printf("Created room %s", room.Code)
		return joinInfo(room, engine.Player1), nil
	}

	return nil, fmt.Errorf("failed to create room: no free code after %d attempts", maxCodeAttempts)
}

// JoinRoom seats the caller as player2 and, if no turn was set yet, picks
// who starts at random.
func (s *gameServiceImpl) JoinRoom(ctx context.Context, code string) (*JoinInfo, error) {
	code, err := normalizeCode(code)
	if err != nil {
		return nil, err
	}

	if _, err := s.rooms.Load(ctx, code); err != nil {
		return nil, err
	}

	var joined *engine.Room
	err = s.live.Update(ctx, code, func(room *engine.Room) error {
		if room.Occupied(engine.Player2) {
			return ErrRoomFull
		}
		room.SetPlayer(engine.Player2, engine.Player2.DisplayName())
		room.Grids[engine.Player2] = engine.GenerateGrid()
		if room.CurrentTurn == engine.NoSlot {
			room.CurrentTurn = engine.Slots[mrand.IntN(len(engine.Slots))]
		}
		joined = room.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Player 2 joined room %s (%s starts)", code, joined.CurrentTurn)
	return joinInfo(joined, engine.Player2), nil
}

func joinInfo(room *engine.Room, slot engine.Slot) *JoinInfo {
	return &JoinInfo{
		Code:        room.Code,
		Player:      slot,
		PlayerName:  room.PlayerName(slot),
		Grid:        room.Grids[slot],
		CurrentTurn: room.CurrentTurn,
	}
}

// GetRoom returns the public view of a room
func (s *gameServiceImpl) GetRoom(ctx context.Context, code string) (*RoomInfo, error) {
	code, err := normalizeCode(code)
	if err != nil {
		return nil, err
	}

	room, err := s.rooms.Load(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.roomInfo(room), nil
}

// ListRooms returns every known room, oldest first
func (s *gameServiceImpl) ListRooms(ctx context.Context) ([]*RoomInfo, error) {
	rooms := s.rooms.List()
	result := make([]*RoomInfo, 0, len(rooms))
	for _, room := range rooms {
		result = append(result, s.roomInfo(room))
	}
	return result, nil
}

func (s *gameServiceImpl) roomInfo(room *engine.Room) *RoomInfo {
	votes := room.RematchVotes
	if votes == nil {
		votes = []engine.Slot{}
	}
	return &RoomInfo{
		Code:         room.Code,
		Player1:      room.Player1,
		Player2:      room.Player2,
		PlayersCount: room.PlayersCount(),
		Connections:  s.live.Connections(room.Code),
		CurrentTurn:  room.CurrentTurn,
		RematchVotes: votes,
		CreatedAt:    room.CreatedAt,
		UpdatedAt:    room.UpdatedAt,
	}
}

// DeleteRoom drops every live connection to the room and removes it from storage
func (s *gameServiceImpl) DeleteRoom(ctx context.Context, code string) error {
	code, err := normalizeCode(code)
	if err != nil {
		return err
	}

	if _, err := s.rooms.Load(ctx, code); err != nil {
		return err
	}

	_, err = s.live.Delete(ctx, code, func(ctx context.Context) (bool, error) {
		if err := s.rooms.Delete(ctx, code); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return err
	}

	log.Printf("Deleted room %s", code)
	return nil
}

// GetGrid returns the card of an occupied seat
func (s *gameServiceImpl) GetGrid(ctx context.Context, code string, slot engine.Slot) (*GridInfo, error) {
	code, err := normalizeCode(code)
	if err != nil {
		return nil, err
	}
	if !slot.Valid() {
		return nil, fmt.Errorf("%w: %q", engine.ErrInvalidSlot, string(slot))
	}

	room, err := s.rooms.Load(ctx, code)
	if err != nil {
		return nil, err
	}

	grid, ok := room.Grids[slot]
	if !ok || !room.Occupied(slot) {
		return nil, fmt.Errorf("%w: %s in room %s", ErrSeatEmpty, slot, code)
	}

	return &GridInfo{Code: code, Player: slot, Grid: grid}, nil
}
