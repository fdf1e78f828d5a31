package entity

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-sync/internal/apperror"
)

// AnyBoard - every undecided sub-board is playable.
const AnyBoard = -1

// UltimateBoard - nine nested boards. SubWinners[i] is ResultTie when board i filled up without a line.
type UltimateBoard struct {
	Boards     [9]SimpleBoard
	SubWinners [9]Result
	Active     int
}

func NewUltimateBoard() UltimateBoard {
	return UltimateBoard{Active: AnyBoard}
}

func (that UltimateBoard) Variant() Variant {
	return VariantUltimate
}

func (that UltimateBoard) Check(move Move) error {
	if move.SubBoard < 0 || move.SubBoard >= len(that.Boards) {
		return fmt.Errorf("%w: sub-board %d is out of range", apperror.ErrIllegalMove, move.SubBoard)
	}

	if that.SubWinners[move.SubBoard].IsResolved() {
		return fmt.Errorf("%w: sub-board %d is already decided", apperror.ErrIllegalMove, move.SubBoard)
	}

	if that.Active != AnyBoard && that.Active != move.SubBoard {
		return fmt.Errorf("%w: next move must be in sub-board %d", apperror.ErrIllegalMove, that.Active)
	}

	return that.Boards[move.SubBoard].Check(move)
}

func (that UltimateBoard) Play(mark Mark, move Move) Board {
	sub := that.Boards[move.SubBoard]
	sub[move.Cell] = mark
	that.Boards[move.SubBoard] = sub

	// a filled board without a line is recorded as a tie so it stops being playable
	that.SubWinners[move.SubBoard] = sub.Result()

	that.Active = move.Cell
	if that.SubWinners[move.Cell].IsResolved() || IsFull(that.Boards[move.Cell]) {
		that.Active = AnyBoard
	}

	return that
}

func (that UltimateBoard) Result() Result {
	var owners [9]Mark
	for i, result := range that.SubWinners {
		owners[i] = result.Mark()
	}

	if winner := DetectWinner(owners); winner != EmptyCell {
		return ResultOf(winner)
	}

	for _, result := range that.SubWinners {
		if !result.IsResolved() {
			return ResultNone
		}
	}

	return ResultTie
}

// Playable - sub-boards the next move may target.
func (that UltimateBoard) Playable() []int {
	if that.Active != AnyBoard {
		return []int{that.Active}
	}

	boards := make([]int, 0, len(that.Boards))
	for i, result := range that.SubWinners {
		if !result.IsResolved() {
			boards = append(boards, i)
		}
	}

	return boards
}
