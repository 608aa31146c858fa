package service

import (
	"context"
	"errors"

	"github.com/wricardo/bingo-duel/game/engine"
)

var (
	ErrRoomFull        = errors.New("room is full")
	ErrInvalidRoomCode = errors.New("invalid room code")
	ErrSeatEmpty       = errors.New("seat is empty")
)

// GameService defines the lobby operations that happen before and around a
// live game: creating and joining rooms, looking them up and tearing them down.
type GameService interface {
	// Room Lifecycle
	CreateRoom(ctx context.Context) (*JoinInfo, error)
	JoinRoom(ctx context.Context, code string) (*JoinInfo, error)
	DeleteRoom(ctx context.Context, code string) error

	// Room State
	GetRoom(ctx context.Context, code string) (*RoomInfo, error)
	ListRooms(ctx context.Context) ([]*RoomInfo, error)
	GetGrid(ctx context.Context, code string, slot engine.Slot) (*GridInfo, error)
}

// RoomStore defines room storage operations
type RoomStore interface {
	Create(ctx context.Context, room *engine.Room) error
	Load(ctx context.Context, code string) (*engine.Room, error)
	List() []*engine.Room
	Delete(ctx context.Context, code string) error
}

// LiveRooms is the view the lobby has of running games. Mutations of a room
// that may have live players go through Update so they are ordered with the
// players' own actions. Delete runs remove once no action on the room can be
// in flight, and closes the room's connections when remove reports true.
type LiveRooms interface {
	Update(ctx context.Context, code string, fn func(room *engine.Room) error) error
	Delete(ctx context.Context, code string, remove func(ctx context.Context) (bool, error)) (bool, error)
	Connections(code string) int
}
