package codec

import (
	"encoding/json"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-sync/internal/entity"
)

const (
	EventRoom    = "room"
	EventSession = "session"
	EventClosed  = "closed"
	// EventResync - emitted by the subscriber itself after a reconnect, never published.
	EventResync  = "resync"
)

// Event - a change notification published on the room topic after every store write.
type Event struct {
	Kind    string           `json:"kind"`
	Code    string           `json:"code"`
	Room    *RoomDocument    `json:"room,omitempty"`
	Session *SessionDocument `json:"session,omitempty"`
}

func RoomEvent(room *entity.Room) Event {
	doc := EncodeRoom(room)
	return Event{Kind: EventRoom, Code: room.Code, Room: &doc}
}

func SessionEvent(session *entity.Session) Event {
	doc := EncodeSession(session)
	return Event{Kind: EventSession, Code: session.RoomCode, Session: &doc}
}

func ClosedEvent(code string) Event {
	return Event{Kind: EventClosed, Code: code}
}

func ResyncEvent(code string) Event {
	return Event{Kind: EventResync, Code: code}
}

func MarshalEvent(event Event) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("could not marshal event: %w", err)
	}

	return data, nil
}

func UnmarshalEvent(data []byte) (Event, error) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return Event{}, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	return event, nil
}
