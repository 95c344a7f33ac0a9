// Package rules decides whether a piece may move to a square based on its
// movement geometry and board occupancy. It knows nothing about check:
// a king may step onto an attacked square.
package rules

import "github.com/park285/Cheese-PvP-server/internal/board"

// IsLegal reports whether piece may move to target given the live pieces.
func IsLegal(piece board.Piece, target board.Square, pieces []board.Piece) bool {
	if !target.Valid() || target == piece.Position {
		return false
	}
	if occ, ok := board.PieceAt(target, pieces); ok && occ.Color == piece.Color {
		return false
	}
	switch piece.Type {
	case board.Pawn:
		return pawnMove(piece, target, pieces)
	case board.Knight:
		return knightMove(piece, target)
	case board.Bishop:
		return bishopMove(piece, target, pieces)
	case board.Rook:
		return rookMove(piece, target, pieces)
	case board.Queen:
		return rookMove(piece, target, pieces) || bishopMove(piece, target, pieces)
	case board.King:
		return kingMove(piece, target)
	default:
		return false
	}
}

// LegalTargets returns every square piece may move to, in (x, y) order.
func LegalTargets(piece board.Piece, pieces []board.Piece) []board.Square {
	var out []board.Square
	for _, sq := range board.AllSquares() {
		if IsLegal(piece, sq, pieces) {
			out = append(out, sq)
		}
	}
	return out
}

// Forward returns the Y step a pawn of color c advances by.
func Forward(c board.Color) int {
	if c == board.White {
		return -1
	}
	return 1
}

// StartRow is the Y index pawns of color c start on (rank 2 / rank 7).
func StartRow(c board.Color) int8 {
	if c == board.White {
		return 6
	}
	return 1
}

func pawnMove(p board.Piece, target board.Square, pieces []board.Piece) bool {
	dir := Forward(p.Color)
	dx := int(target.X) - int(p.Position.X)
	dy := int(target.Y) - int(p.Position.Y)

	if dx == 0 && dy == dir {
		return !board.Occupied(target, pieces)
	}
	if dx == 0 && dy == 2*dir && p.Position.Y == StartRow(p.Color) {
		mid, ok := p.Position.Offset(0, dir)
		return ok && !board.Occupied(mid, pieces) && !board.Occupied(target, pieces)
	}
	if abs(dx) == 1 && dy == dir {
		occ, ok := board.PieceAt(target, pieces)
		return ok && occ.Color != p.Color
	}
	return false
}

func knightMove(p board.Piece, target board.Square) bool {
	dx := abs(int(target.X) - int(p.Position.X))
	dy := abs(int(target.Y) - int(p.Position.Y))
	return (dx == 1 && dy == 2) || (dx == 2 && dy == 1)
}

func bishopMove(p board.Piece, target board.Square, pieces []board.Piece) bool {
	dx := int(target.X) - int(p.Position.X)
	dy := int(target.Y) - int(p.Position.Y)
	if abs(dx) != abs(dy) {
		return false
	}
	return pathClear(p.Position, target, pieces)
}

func rookMove(p board.Piece, target board.Square, pieces []board.Piece) bool {
	if target.X != p.Position.X && target.Y != p.Position.Y {
		return false
	}
	return pathClear(p.Position, target, pieces)
}

func kingMove(p board.Piece, target board.Square) bool {
	dx := abs(int(target.X) - int(p.Position.X))
	dy := abs(int(target.Y) - int(p.Position.Y))
	return dx <= 1 && dy <= 1
}

// pathClear walks from one square toward another along a straight or
// diagonal line and reports whether every square strictly between is empty.
func pathClear(from, to board.Square, pieces []board.Piece) bool {
	sx := sign(int(to.X) - int(from.X))
	sy := sign(int(to.Y) - int(from.Y))
	cur, ok := from.Offset(sx, sy)
	for ok && cur != to {
		if board.Occupied(cur, pieces) {
			return false
		}
		cur, ok = cur.Offset(sx, sy)
	}
	return ok
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
