package entity

// Session - the authoritative state of one match.
// MoveCount is the number of moves applied so far and doubles as the compare-and-set token.
type Session struct {
	ID            string
	RoomCode      string
	Board         Board
	CurrentPlayer Mark
	Winner        Result
	MoveCount     int
}

func NewSession(id, roomCode string, board Board) *Session {
	return &Session{
		ID:            id,
		RoomCode:      roomCode,
		Board:         board,
		CurrentPlayer: PlayerX,
		Winner:        ResultNone,
	}
}

func (that *Session) IsFinished() bool {
	return that.Winner.IsResolved()
}

func (that *Session) Variant() Variant {
	if that.Board == nil {
		return ""
	}
	return that.Board.Variant()
}

// Clone - boards are value types, so a shallow copy is a deep one.
func (that *Session) Clone() *Session {
	if that == nil {
		return nil
	}

	clone := *that
	return &clone
}

// SameTurn - reports whether both snapshots describe the same point of the match.
func (that *Session) SameTurn(other *Session) bool {
	return that.ID == other.ID &&
		that.MoveCount == other.MoveCount &&
		that.CurrentPlayer == other.CurrentPlayer &&
		that.Winner == other.Winner
}
