package usecase

import "github.com/rocketscienceinc/tictactoe-sync/internal/entity"

// State - everything a view needs to draw one participant's screen.
// Playable lists the ultimate sub-boards open to our next move.
type State struct {
	Room      *entity.Room    `json:"room,omitempty"`
	Session   *entity.Session `json:"-"`
	Seat      entity.Mark     `json:"seat"`
	IsMyTurn  bool            `json:"is_my_turn"`
	Result    entity.Result   `json:"result"`
	Connected bool            `json:"connected"`
	Playable  []int           `json:"playable,omitempty"`
}

// View - receives every state change. Render must not call back into the client.
type View interface {
	Render(state State)
}

type ViewFunc func(state State)

func (f ViewFunc) Render(state State) {
	f(state)
}
