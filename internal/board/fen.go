package board

import (
	nchess "github.com/corentings/chess/v2"
)

// ToBoard builds a chess library board from the live piece set. Only the
// occupancy is transferred; no rules of the library are applied.
func ToBoard(pieces []Piece) *nchess.Board {
	m := make(map[nchess.Square]nchess.Piece, len(pieces))
	for _, p := range pieces {
		if !p.Position.Valid() {
			continue
		}
		m[toLibSquare(p.Position)] = toLibPiece(p)
	}
	return nchess.NewBoard(m)
}

// Placement returns the FEN piece-placement field for the live pieces,
// e.g. "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR".
func Placement(pieces []Piece) string {
	return ToBoard(pieces).String()
}

// LibSquare converts to the chess library's square type.
func LibSquare(sq Square) nchess.Square { return toLibSquare(sq) }

func toLibSquare(sq Square) nchess.Square {
	return nchess.NewSquare(nchess.File(sq.X), nchess.Rank(7-sq.Y))
}

func toLibPiece(p Piece) nchess.Piece {
	if p.Color == White {
		switch p.Type {
		case Pawn:
			return nchess.WhitePawn
		case Knight:
			return nchess.WhiteKnight
		case Bishop:
			return nchess.WhiteBishop
		case Rook:
			return nchess.WhiteRook
		case Queen:
			return nchess.WhiteQueen
		case King:
			return nchess.WhiteKing
		}
		return nchess.NoPiece
	}
	switch p.Type {
	case Pawn:
		return nchess.BlackPawn
	case Knight:
		return nchess.BlackKnight
	case Bishop:
		return nchess.BlackBishop
	case Rook:
		return nchess.BlackRook
	case Queen:
		return nchess.BlackQueen
	case King:
		return nchess.BlackKing
	}
	return nchess.NoPiece
}
