package codec

import (
	"encoding/json"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-sync/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-sync/internal/entity"
)

// SessionDocument - the wire and storage form of a session.
// Board is set for the simple variant, FlatBoard and Auxiliary for the ultimate one.
type SessionDocument struct {
	ID            string     `json:"id"`
	RoomCode      string     `json:"room_code"`
	Variant       string     `json:"variant"`
	Board         []string   `json:"board,omitempty"`
	FlatBoard     []string   `json:"flat_board,omitempty"`
	Auxiliary     *Auxiliary `json:"auxiliary,omitempty"`
	CurrentPlayer string     `json:"current_player"`
	Winner        string     `json:"winner"`
	MoveCount     int        `json:"move_count"`
}

type Auxiliary struct {
	SubWinners     []string `json:"sub_winners"`
	ActiveSubBoard *int     `json:"active_sub_board"`
}

type RoomDocument struct {
	Code      string `json:"code"`
	HostID    string `json:"host_id"`
	HostName  string `json:"host_name"`
	GuestID   string `json:"guest_id,omitempty"`
	GuestName string `json:"guest_name,omitempty"`
	Status    string `json:"status"`
	SessionID string `json:"session_id"`
	Variant   string `json:"variant"`
}

func EncodeSession(session *entity.Session) SessionDocument {
	doc := SessionDocument{
		ID:            session.ID,
		RoomCode:      session.RoomCode,
		Variant:       string(session.Variant()),
		CurrentPlayer: string(session.CurrentPlayer),
		Winner:        encodeWinner(session.Winner),
		MoveCount:     session.MoveCount,
	}

	switch board := session.Board.(type) {
	case entity.SimpleBoard:
		doc.Board = make([]string, 0, len(board))
		for _, cell := range board {
			doc.Board = append(doc.Board, encodeMark(cell))
		}
	case entity.UltimateBoard:
		doc.FlatBoard = Flatten(board)
		doc.Auxiliary = encodeAuxiliary(board)
	}

	return doc
}

func DecodeSession(doc SessionDocument) (*entity.Session, error) {
	winner, err := decodeWinner(doc.Winner)
	if err != nil {
		return nil, err
	}

	current, err := decodeMark(doc.CurrentPlayer)
	if err != nil {
		return nil, fmt.Errorf("current player: %w", err)
	}

	session := &entity.Session{
		ID:            doc.ID,
		RoomCode:      doc.RoomCode,
		CurrentPlayer: current,
		Winner:        winner,
		MoveCount:     doc.MoveCount,
	}

	switch entity.Variant(doc.Variant) {
	case entity.VariantSimple:
		session.Board, err = decodeSimple(doc.Board)
	case entity.VariantUltimate:
		session.Board, err = decodeUltimate(doc.FlatBoard, doc.Auxiliary)
	default:
		err = fmt.Errorf("%w: unknown variant %q", apperror.ErrInvalidBoard, doc.Variant)
	}
	if err != nil {
		return nil, err
	}

	return session, nil
}

func MarshalSession(session *entity.Session) ([]byte, error) {
	data, err := json.Marshal(EncodeSession(session))
	if err != nil {
		return nil, fmt.Errorf("could not marshal session: %w", err)
	}

	return data, nil
}

func UnmarshalSession(data []byte) (*entity.Session, error) {
	var doc SessionDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return DecodeSession(doc)
}

func EncodeRoom(room *entity.Room) RoomDocument {
	return RoomDocument{
		Code:      room.Code,
		HostID:    room.HostID,
		HostName:  room.HostName,
		GuestID:   room.GuestID,
		GuestName: room.GuestName,
		Status:    room.Status,
		SessionID: room.SessionID,
		Variant:   string(room.Variant),
	}
}

func DecodeRoom(doc RoomDocument) *entity.Room {
	return &entity.Room{
		Code:      doc.Code,
		HostID:    doc.HostID,
		HostName:  doc.HostName,
		GuestID:   doc.GuestID,
		GuestName: doc.GuestName,
		Status:    doc.Status,
		SessionID: doc.SessionID,
		Variant:   entity.Variant(doc.Variant),
	}
}

func MarshalRoom(room *entity.Room) ([]byte, error) {
	data, err := json.Marshal(EncodeRoom(room))
	if err != nil {
		return nil, fmt.Errorf("could not marshal room: %w", err)
	}

	return data, nil
}

func UnmarshalRoom(data []byte) (*entity.Room, error) {
	var doc RoomDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room: %w", err)
	}

	return DecodeRoom(doc), nil
}

func encodeAuxiliary(board entity.UltimateBoard) *Auxiliary {
	aux := &Auxiliary{SubWinners: make([]string, 0, len(board.SubWinners))}
	for _, result := range board.SubWinners {
		aux.SubWinners = append(aux.SubWinners, encodeResult(result))
	}

	if board.Active != entity.AnyBoard {
		active := board.Active
		aux.ActiveSubBoard = &active
	}

	return aux
}

func decodeSimple(cells []string) (entity.SimpleBoard, error) {
	var board entity.SimpleBoard

	if len(cells) != len(board) {
		return board, fmt.Errorf("%w: board has %d cells, want %d", apperror.ErrInvalidBoard, len(cells), len(board))
	}

	for i, symbol := range cells {
		mark, err := decodeMark(symbol)
		if err != nil {
			return board, fmt.Errorf("cell %d: %w", i, err)
		}
		board[i] = mark
	}

	return board, nil
}

func decodeUltimate(flat []string, aux *Auxiliary) (entity.UltimateBoard, error) {
	board, err := Unflatten(flat)
	if err != nil {
		return board, err
	}

	// without the auxiliary record legality can't be reconstructed
	if aux == nil {
		return board, fmt.Errorf("%w: missing auxiliary record", apperror.ErrInvalidBoard)
	}

	if len(aux.SubWinners) != len(board.SubWinners) {
		return board, fmt.Errorf("%w: %d sub-board winners, want %d", apperror.ErrInvalidBoard, len(aux.SubWinners), len(board.SubWinners))
	}

	for i, symbol := range aux.SubWinners {
		if board.SubWinners[i], err = decodeResult(symbol); err != nil {
			return board, fmt.Errorf("sub-board %d: %w", i, err)
		}
	}

	board.Active = entity.AnyBoard
	if aux.ActiveSubBoard != nil {
		active := *aux.ActiveSubBoard
		if active < 0 || active >= len(board.Boards) {
			return board, fmt.Errorf("%w: active sub-board %d is out of range", apperror.ErrInvalidBoard, active)
		}
		board.Active = active
	}

	return board, nil
}

func encodeWinner(result entity.Result) string {
	if result == entity.ResultNone {
		return ""
	}
	return encodeResult(result)
}

func decodeWinner(symbol string) (entity.Result, error) {
	result, err := decodeResult(symbol)
	if err != nil {
		return entity.ResultNone, fmt.Errorf("winner: %w", err)
	}
	return result, nil
}
