package apperror

import "errors"

var (
	ErrNameRequired = errors.New("name required")
	ErrNoSession    = errors.New("not joined to a room")
	ErrNotYourTurn  = errors.New("not your turn")
	ErrGameFinished = errors.New("game finished")
	ErrCellOccupied = errors.New("cell taken")
	ErrInvalidCell  = errors.New("invalid move")
	ErrRoomFull     = errors.New("room full")
	ErrModeMismatch = errors.New("mode mismatch")
	ErrRoomNotFound = errors.New("room not found")
)
