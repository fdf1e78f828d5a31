package websocket

import (
	"encoding/json"
	"errors"

	"github.com/rocketscienceinc/tictactoe-sync/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-sync/internal/codec"
	"github.com/rocketscienceinc/tictactoe-sync/internal/entity"
	"github.com/rocketscienceinc/tictactoe-sync/internal/usecase"
)

const (
	actionRoomCreate = "room:create"
	actionRoomJoin   = "room:join"
	actionRoomLeave  = "room:leave"
	actionGameTurn   = "game:turn"

	actionGameState = "game:state"
	actionError     = "error"
)

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type RequestPayload struct {
	Name    string         `json:"name,omitempty"`
	Variant entity.Variant `json:"variant,omitempty"`
	Code    string         `json:"code,omitempty"`
	Move    *entity.Move   `json:"move,omitempty"`
}

type StatePayload struct {
	PlayerID  string                 `json:"player_id"`
	Room      *codec.RoomDocument    `json:"room,omitempty"`
	Session   *codec.SessionDocument `json:"session,omitempty"`
	Seat      entity.Mark            `json:"seat"`
	IsMyTurn  bool                   `json:"is_my_turn"`
	Result    string                 `json:"result"`
	Connected bool                   `json:"connected"`
	Playable  []int                  `json:"playable,omitempty"`
}

type ErrorPayload struct {
	Action string `json:"action"`
	Code   string `json:"code"`
	Error  string `json:"error"`
}

var errorCodes = []struct {
	err  error
	code string
}{
	{apperror.ErrIllegalMove, "illegal_move"},
	{apperror.ErrNotYourTurn, "not_your_turn"},
	{apperror.ErrGameFinished, "game_finished"},
	{apperror.ErrGameIsNotStarted, "game_not_started"},
	{apperror.ErrRoomNotFound, "room_not_found"},
	{apperror.ErrRoomFull, "room_full"},
	{apperror.ErrRoomNotJoinable, "room_not_joinable"},
	{apperror.ErrInvalidCode, "invalid_code"},
	{apperror.ErrCreateFailed, "create_failed"},
	{apperror.ErrNotInRoom, "not_in_room"},
	{apperror.ErrConnectionLost, "connection_lost"},
}

func newStatePayload(playerID string, state usecase.State) StatePayload {
	payload := StatePayload{
		PlayerID:  playerID,
		Seat:      state.Seat,
		IsMyTurn:  state.IsMyTurn,
		Result:    string(state.Result),
		Connected: state.Connected,
		Playable:  state.Playable,
	}

	if state.Room != nil {
		doc := codec.EncodeRoom(state.Room)
		payload.Room = &doc
	}

	if state.Session != nil {
		doc := codec.EncodeSession(state.Session)
		payload.Session = &doc
	}

	return payload
}

func newErrorPayload(action string, err error) ErrorPayload {
	payload := ErrorPayload{
		Action: action,
		Code:   "internal",
		Error:  err.Error(),
	}

	for _, known := range errorCodes {
		if errors.Is(err, known.err) {
			payload.Code = known.code
			break
		}
	}

	return payload
}
