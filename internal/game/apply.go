package game

import (
	"fmt"

	"github.com/park285/Cheese-PvP-server/internal/board"
	"github.com/park285/Cheese-PvP-server/internal/rules"
)

// ApplyMove validates mv for the side color and returns the resulting state.
// On any error the returned state is the zero value and s is unchanged.
func ApplyMove(s GameState, color board.Color, mv Move) (GameState, error) {
	if !color.Valid() {
		return GameState{}, ErrPlayerNotFound
	}
	if s.Over() {
		return GameState{}, ErrGameOver
	}
	if color != s.ActivePlayer {
		return GameState{}, ErrNotYourTurn
	}
	idx := s.Find(mv.PieceID)
	if idx < 0 {
		return GameState{}, fmt.Errorf("%w: %q", ErrPieceNotFound, mv.PieceID)
	}
	piece := s.Pieces[idx]
	if piece.Color != color {
		return GameState{}, ErrCannotMoveOpponentPiece
	}
	target, captured := board.PieceAt(mv.TargetPosition, s.Pieces)
	if captured && target.Color == color {
		return GameState{}, ErrInvalidMove
	}
	if !rules.IsLegal(piece, mv.TargetPosition, s.Pieces) {
		return GameState{}, ErrInvalidMove
	}

	next := s.Clone()
	live := make([]board.Piece, 0, len(next.Pieces))
	for _, p := range next.Pieces {
		switch {
		case captured && p.ID == target.ID:
			continue
		case p.ID == piece.ID:
			live = append(live, p.MovedTo(mv.TargetPosition))
		default:
			live = append(live, p)
		}
	}
	next.Pieces = live
	if captured {
		next.CapturedPieces.add(color, target)
	}
	next.ActivePlayer = color.Opponent()
	last := Move{PieceID: piece.ID, TargetPosition: mv.TargetPosition}
	next.LastMove = &last
	next.MoveCount++
	if next.TimeControl != nil && next.TimeRemaining != nil && next.TimeControl.Increment > 0 {
		next.TimeRemaining.set(color, next.TimeRemaining.For(color)+next.TimeControl.Increment)
	}
	next.UpdatedAt = now()
	return next, nil
}
