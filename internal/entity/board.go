package entity

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-sync/internal/apperror"
)

type Mark string

const (
	EmptyCell Mark = ""
	PlayerX   Mark = "X"
	PlayerO   Mark = "O"
)

// Opponent - returns the mark that moves after this one.
func (m Mark) Opponent() Mark {
	switch m {
	case PlayerX:
		return PlayerO
	case PlayerO:
		return PlayerX
	default:
		return EmptyCell
	}
}

func (m Mark) IsPlayer() bool {
	return m == PlayerX || m == PlayerO
}

// Result - outcome of a board or of a whole session.
type Result string

const (
	ResultNone Result = ""
	ResultX    Result = "X"
	ResultO    Result = "O"
	ResultTie  Result = "-"
)

func ResultOf(mark Mark) Result {
	switch mark {
	case PlayerX:
		return ResultX
	case PlayerO:
		return ResultO
	default:
		return ResultNone
	}
}

// Mark - the player who won, EmptyCell for a tie or no result.
func (r Result) Mark() Mark {
	switch r {
	case ResultX:
		return PlayerX
	case ResultO:
		return PlayerO
	default:
		return EmptyCell
	}
}

func (r Result) IsResolved() bool {
	return r != ResultNone
}

type Variant string

const (
	VariantSimple   Variant = "simple"
	VariantUltimate Variant = "ultimate"
)

func (v Variant) IsValid() bool {
	return v == VariantSimple || v == VariantUltimate
}

// Move - a target on the board. SubBoard is only meaningful for the ultimate variant.
type Move struct {
	SubBoard int `json:"sub_board"`
	Cell     int `json:"cell"`
}

// Board - a game board variant. Implementations are value types, so Play never touches the receiver.
type Board interface {
	Variant() Variant
	// Check - returns apperror.ErrIllegalMove if the move cannot be played on this board.
	Check(move Move) error
	Play(mark Mark, move Move) Board
	Result() Result
}

var WinCombos = [8][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// DetectWinner - returns the owner of the first complete line or EmptyCell.
func DetectWinner(cells [9]Mark) Mark {
	for _, combo := range WinCombos {
		a, b, c := cells[combo[0]], cells[combo[1]], cells[combo[2]]
		if a.IsPlayer() && a == b && b == c {
			return a
		}
	}

	return EmptyCell
}

func IsFull(cells [9]Mark) bool {
	for _, cell := range cells {
		if cell == EmptyCell {
			return false
		}
	}

	return true
}

func NewBoard(variant Variant) (Board, error) {
	switch variant {
	case VariantSimple:
		return SimpleBoard{}, nil
	case VariantUltimate:
		return NewUltimateBoard(), nil
	default:
		return nil, fmt.Errorf("unknown game variant %q", variant)
	}
}

type SimpleBoard [9]Mark

func (that SimpleBoard) Variant() Variant {
	return VariantSimple
}

func (that SimpleBoard) Check(move Move) error {
	if move.Cell < 0 || move.Cell >= len(that) {
		return fmt.Errorf("%w: cell %d is out of range", apperror.ErrIllegalMove, move.Cell)
	}

	if that[move.Cell] != EmptyCell {
		return fmt.Errorf("%w: cell %d is already occupied", apperror.ErrIllegalMove, move.Cell)
	}

	return nil
}

func (that SimpleBoard) Play(mark Mark, move Move) Board {
	that[move.Cell] = mark
	return that
}

func (that SimpleBoard) Result() Result {
	if winner := DetectWinner(that); winner != EmptyCell {
		return ResultOf(winner)
	}

	// the game will continue until all the squares are full
	if !IsFull(that) {
		return ResultNone
	}

	return ResultTie
}
