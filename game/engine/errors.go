package engine

import "errors"

var (
	ErrInvalidSlot = errors.New("invalid player slot")
	ErrInvalidGrid = errors.New("invalid grid")
	ErrInvalidCode = errors.New("invalid room code")
)
