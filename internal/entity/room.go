package entity

const (
	StatusWaiting  = "waiting"
	StatusPlaying  = "playing"
	StatusFinished = "finished"
)

// Room - a two-seat lobby keyed by a short shareable code. The host always plays X.
type Room struct {
	Code      string  `json:"code"`
	HostID    string  `json:"host_id"`
	HostName  string  `json:"host_name"`
	GuestID   string  `json:"guest_id,omitempty"`
	GuestName string  `json:"guest_name,omitempty"`
	Status    string  `json:"status"`
	SessionID string  `json:"session_id"`
	Variant   Variant `json:"variant"`
}

func NewRoom(code, hostID, hostName, sessionID string, variant Variant) *Room {
	return &Room{
		Code:      code,
		HostID:    hostID,
		HostName:  hostName,
		Status:    StatusWaiting,
		SessionID: sessionID,
		Variant:   variant,
	}
}

func (that *Room) HasGuest() bool {
	return that.GuestID != ""
}

func (that *Room) IsWaiting() bool {
	return that.Status == StatusWaiting
}

func (that *Room) IsPlaying() bool {
	return that.Status == StatusPlaying
}

func (that *Room) IsFinished() bool {
	return that.Status == StatusFinished
}

// SeatOf - returns the mark of the player or EmptyCell if the player doesn't sit in this room.
func (that *Room) SeatOf(playerID string) Mark {
	switch playerID {
	case "":
		return EmptyCell
	case that.HostID:
		return PlayerX
	case that.GuestID:
		return PlayerO
	default:
		return EmptyCell
	}
}

func SeatFor(isHost bool) Mark {
	if isHost {
		return PlayerX
	}
	return PlayerO
}
