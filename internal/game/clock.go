package game

import (
	"fmt"

	"github.com/park285/Cheese-PvP-server/internal/board"
)

const (
	MinMinutes   = 1
	MaxMinutes   = 60
	MinIncrement = 0
	MaxIncrement = 60
)

// TimeControl is fixed at match start.
type TimeControl struct {
	Minutes   int `json:"minutes"`
	Increment int `json:"increment"`
}

// NewTimeControl validates minutes in [1,60] and increment in [0,60].
func NewTimeControl(minutes, increment int) (TimeControl, error) {
	tc := TimeControl{Minutes: minutes, Increment: increment}
	if err := tc.Validate(); err != nil {
		return TimeControl{}, err
	}
	return tc, nil
}

func (tc TimeControl) Validate() error {
	if tc.Minutes < MinMinutes || tc.Minutes > MaxMinutes || tc.Increment < MinIncrement || tc.Increment > MaxIncrement {
		return fmt.Errorf("%w: %d+%d", ErrInvalidTimeControl, tc.Minutes, tc.Increment)
	}
	return nil
}

// String renders the control as "minutes+increment".
func (tc TimeControl) String() string { return fmt.Sprintf("%d+%d", tc.Minutes, tc.Increment) }

// Clock holds the seconds left for each side.
type Clock struct {
	White int `json:"white"`
	Black int `json:"black"`
}

func (c Clock) For(color board.Color) int {
	if color == board.White {
		return c.White
	}
	return c.Black
}

func (c *Clock) set(color board.Color, v int) {
	if color == board.White {
		c.White = v
		return
	}
	c.Black = v
}

// TimeoutStatus is the terminal status written when loser's clock runs out.
func TimeoutStatus(loser board.Color) string {
	return loser.Opponent().Title() + " wins on time"
}

// Tick removes one second from color's clock. The caller drives the clock by
// issuing one tick per elapsed second. A clock reaching zero ends the match.
func Tick(s GameState, color board.Color) (GameState, error) {
	if !color.Valid() {
		return GameState{}, ErrInvalidPlayerColor
	}
	if s.Over() {
		return GameState{}, ErrGameOver
	}
	if s.TimeControl == nil || s.TimeRemaining == nil {
		return GameState{}, ErrTimeControlNotInitialized
	}
	next := s.Clone()
	left := max(0, next.TimeRemaining.For(color)-1)
	next.TimeRemaining.set(color, left)
	if left == 0 {
		next.Status = TimeoutStatus(color)
		next.Winner = color.Opponent()
	}
	next.UpdatedAt = now()
	return next, nil
}
