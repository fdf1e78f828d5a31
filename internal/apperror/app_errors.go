package apperror

import "errors"

// input rejection: never leaves the client.
var (
	ErrIllegalMove      = errors.New("illegal move")
	ErrNotYourTurn      = errors.New("it's not your turn")
	ErrGameFinished     = errors.New("game is already finished")
	ErrGameIsNotStarted = errors.New("game is not started")
)

// lobby.
var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomFull        = errors.New("room is full")
	ErrRoomNotJoinable = errors.New("room is not joinable")
	ErrCreateFailed    = errors.New("could not create room")
	ErrCodeTaken       = errors.New("room code is already taken")
	ErrInvalidCode     = errors.New("invalid room code")
	ErrNotInRoom       = errors.New("not in a room")
)

// store and transport.
var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("state changed concurrently")
	ErrConnectionLost = errors.New("connection lost")
	ErrInvalidBoard   = errors.New("invalid board encoding")
)
