package roomrt

import "errors"

// Typed errors surfaced at the session/HTTP boundary.
var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrInvalidRoomCode = errors.New("invalid room code")
	ErrProtocol        = errors.New("protocol error")
)
