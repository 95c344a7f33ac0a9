// Package game holds the authoritative match state and the pure transitions
// that produce the next state from a move or a clock tick. Every transition
// returns a fresh GameState and leaves its input untouched.
package game

import (
	"slices"
	"time"

	"github.com/park285/Cheese-PvP-server/internal/board"
)

// now is swapped in tests.
var now = time.Now

// Move asks to relocate one piece. PieceID may also carry the piece's
// current square for older clients.
type Move struct {
	PieceID        string       `json:"pieceId"`
	TargetPosition board.Square `json:"targetPosition"`
}

// CapturedPieces is keyed by the side that made the capture.
type CapturedPieces struct {
	White []board.Piece `json:"white"`
	Black []board.Piece `json:"black"`
}

// By returns the pieces captured by color c.
func (c CapturedPieces) By(color board.Color) []board.Piece {
	if color == board.White {
		return c.White
	}
	return c.Black
}

func (c *CapturedPieces) add(color board.Color, p board.Piece) {
	if color == board.White {
		c.White = append(c.White, p)
		return
	}
	c.Black = append(c.Black, p)
}

// GameState is one match's full position, turn and clock.
type GameState struct {
	GameID         string         `json:"gameId,omitempty"`
	Pieces         []board.Piece  `json:"pieces"`
	ActivePlayer   board.Color    `json:"activePlayer"`
	CapturedPieces CapturedPieces `json:"capturedPieces"`
	Status         string         `json:"status,omitempty"`
	Winner         board.Color    `json:"winner,omitempty"` // set with a terminal Status
	LastMove       *Move          `json:"lastMove,omitempty"`
	TimeControl    *TimeControl   `json:"timeControl,omitempty"`
	TimeRemaining  *Clock         `json:"timeRemaining,omitempty"`
	MoveCount      int            `json:"moveCount"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// NewGame returns the opening position with White to move. A nil tc leaves
// the match untimed.
func NewGame(tc *TimeControl) GameState {
	s := GameState{
		Pieces:         board.StandardLayout(),
		ActivePlayer:   board.White,
		CapturedPieces: CapturedPieces{White: []board.Piece{}, Black: []board.Piece{}},
		UpdatedAt:      now(),
	}
	if tc != nil {
		c := *tc
		s.TimeControl = &c
		s.TimeRemaining = &Clock{White: c.Minutes * 60, Black: c.Minutes * 60}
	}
	return s
}

// Over reports whether the match reached a terminal status.
func (s GameState) Over() bool { return s.Status != "" }

// Clone returns a deep copy that shares no memory with s.
func (s GameState) Clone() GameState {
	out := s
	out.Pieces = slices.Clone(s.Pieces)
	out.CapturedPieces = CapturedPieces{
		White: slices.Clone(s.CapturedPieces.White),
		Black: slices.Clone(s.CapturedPieces.Black),
	}
	if s.LastMove != nil {
		m := *s.LastMove
		out.LastMove = &m
	}
	if s.TimeControl != nil {
		tc := *s.TimeControl
		out.TimeControl = &tc
	}
	if s.TimeRemaining != nil {
		c := *s.TimeRemaining
		out.TimeRemaining = &c
	}
	return out
}

// Find locates a live piece by id, falling back to treating ref as a square
// name. It returns the slice index or -1.
func (s GameState) Find(ref string) int {
	if i := board.IndexByID(s.Pieces, ref); i >= 0 {
		return i
	}
	sq, err := board.ParseSquare(ref)
	if err != nil {
		return -1
	}
	for i := range s.Pieces {
		if s.Pieces[i].Position == sq {
			return i
		}
	}
	return -1
}
