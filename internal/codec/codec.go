// Package codec converts sessions and rooms to the documents that are stored and broadcast.
//
// An ultimate board travels as one flat 81-symbol array plus an auxiliary record with the
// sub-board winners and the active sub-board. Both are always part of the same
// SessionDocument, so they are written and published together.
package codec

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-sync/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-sync/internal/entity"
)

const (
	// EmptySymbol - marks an empty cell. It never collides with a player mark.
	EmptySymbol = "null"
	// TieSymbol - a sub-board that filled up without a line.
	TieSymbol = "draw"

	FlatLength = 81
)

// Flatten - concatenates the nine sub-boards in order.
func Flatten(board entity.UltimateBoard) []string {
	flat := make([]string, 0, FlatLength)
	for _, sub := range board.Boards {
		for _, cell := range sub {
			flat = append(flat, encodeMark(cell))
		}
	}

	return flat
}

// Unflatten - inverse of Flatten. SubWinners and Active are not part of the flat array
// and are left at their zero values; use DecodeSession to rebuild a playable board.
func Unflatten(flat []string) (entity.UltimateBoard, error) {
	board := entity.NewUltimateBoard()

	if len(flat) != FlatLength {
		return board, fmt.Errorf("%w: flat board has %d cells, want %d", apperror.ErrInvalidBoard, len(flat), FlatLength)
	}

	for i, symbol := range flat {
		mark, err := decodeMark(symbol)
		if err != nil {
			return board, fmt.Errorf("cell %d: %w", i, err)
		}
		board.Boards[i/9][i%9] = mark
	}

	return board, nil
}

func encodeMark(mark entity.Mark) string {
	if mark == entity.EmptyCell {
		return EmptySymbol
	}
	return string(mark)
}

func decodeMark(symbol string) (entity.Mark, error) {
	switch symbol {
	case EmptySymbol, "":
		return entity.EmptyCell, nil
	case string(entity.PlayerX):
		return entity.PlayerX, nil
	case string(entity.PlayerO):
		return entity.PlayerO, nil
	default:
		return entity.EmptyCell, fmt.Errorf("%w: unknown symbol %q", apperror.ErrInvalidBoard, symbol)
	}
}

func encodeResult(result entity.Result) string {
	switch result {
	case entity.ResultNone:
		return EmptySymbol
	case entity.ResultTie:
		return TieSymbol
	default:
		return string(result)
	}
}

func decodeResult(symbol string) (entity.Result, error) {
	switch symbol {
	case EmptySymbol, "":
		return entity.ResultNone, nil
	case TieSymbol, string(entity.ResultTie):
		return entity.ResultTie, nil
	case string(entity.ResultX):
		return entity.ResultX, nil
	case string(entity.ResultO):
		return entity.ResultO, nil
	default:
		return entity.ResultNone, fmt.Errorf("%w: unknown result %q", apperror.ErrInvalidBoard, symbol)
	}
}
