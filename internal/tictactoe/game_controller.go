package tictactoe

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-sync/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-sync/internal/entity"
)

// ApplyMove - the single authoritative mutation of a session.
// It never touches the given session and depends on nothing but its arguments,
// so two observers replaying the same move get identical snapshots.
func ApplyMove(session *entity.Session, seat entity.Mark, move entity.Move) (*entity.Session, error) {
	if err := validateMove(session, seat, move); err != nil {
		return nil, err
	}

	next := session.Clone()
	next.Board = session.Board.Play(seat, move)
	next.MoveCount++

	updateGameStatus(next, seat)

	return next, nil
}

// validateMove - checks if the move is valid.
func validateMove(session *entity.Session, seat entity.Mark, move entity.Move) error {
	if session == nil || session.Board == nil {
		return fmt.Errorf("%w: no board", apperror.ErrIllegalMove)
	}

	if session.IsFinished() {
		return apperror.ErrGameFinished
	}

	if session.CurrentPlayer != seat {
		return apperror.ErrNotYourTurn
	}

	if err := session.Board.Check(move); err != nil {
		return fmt.Errorf("invalid turn: %w", err)
	}

	return nil
}

// updateGameStatus - checks the game status after a move.
func updateGameStatus(session *entity.Session, seat entity.Mark) {
	switch result := session.Board.Result(); result {
	case entity.ResultX, entity.ResultO, entity.ResultTie:
		session.Winner = result
	default:
		session.CurrentPlayer = seat.Opponent()
	}
}
