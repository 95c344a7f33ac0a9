package board

import "strings"

// Color identifies a chess side.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// ParseColor accepts "white"/"w" and "black"/"b" in any case.
func ParseColor(s string) (Color, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white", "w":
		return White, true
	case "black", "b":
		return Black, true
	default:
		return "", false
	}
}

// Opponent returns the other side.
func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

func (c Color) Valid() bool { return c == White || c == Black }

// Title returns "White" or "Black" for status strings.
func (c Color) Title() string {
	if c == White {
		return "White"
	}
	return "Black"
}

// PieceType is the kind of a chess piece.
type PieceType string

const (
	Pawn   PieceType = "pawn"
	Knight PieceType = "knight"
	Bishop PieceType = "bishop"
	Rook   PieceType = "rook"
	Queen  PieceType = "queen"
	King   PieceType = "king"
)

// Piece is a live or captured chess piece. ID is stable for the whole match.
type Piece struct {
	ID       string    `json:"id"`
	Type     PieceType `json:"type"`
	Color    Color     `json:"color"`
	Position Square    `json:"position"`
}

// MovedTo returns a copy of p placed on sq.
func (p Piece) MovedTo(sq Square) Piece {
	p.Position = sq
	return p
}

// PieceAt returns the piece occupying sq, if any.
func PieceAt(sq Square, pieces []Piece) (Piece, bool) {
	for _, p := range pieces {
		if p.Position == sq {
			return p, true
		}
	}
	return Piece{}, false
}

// Occupied reports whether any piece stands on sq.
func Occupied(sq Square, pieces []Piece) bool {
	_, ok := PieceAt(sq, pieces)
	return ok
}

// IndexByID returns the slice index of the piece with the given id, or -1.
func IndexByID(pieces []Piece, id string) int {
	for i := range pieces {
		if pieces[i].ID == id {
			return i
		}
	}
	return -1
}

var backRank = [8]PieceType{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

// StandardLayout returns the 32 pieces of the opening position.
// Pawn and minor/rook ids carry their starting file, e.g. "white-pawn-e",
// "black-knight-g"; the royal pieces are "white-queen", "black-king".
func StandardLayout() []Piece {
	pieces := make([]Piece, 0, 32)
	for x := 0; x < 8; x++ {
		file := string(rune('a' + x))
		pieces = append(pieces,
			Piece{ID: "white-pawn-" + file, Type: Pawn, Color: White, Position: Square{X: int8(x), Y: 6}},
			Piece{ID: "black-pawn-" + file, Type: Pawn, Color: Black, Position: Square{X: int8(x), Y: 1}},
		)
	}
	for x, t := range backRank {
		file := string(rune('a' + x))
		id := string(t) + "-" + file
		if t == Queen || t == King {
			id = string(t)
		}
		pieces = append(pieces,
			Piece{ID: "white-" + id, Type: t, Color: White, Position: Square{X: int8(x), Y: 7}},
			Piece{ID: "black-" + id, Type: t, Color: Black, Position: Square{X: int8(x), Y: 0}},
		)
	}
	return pieces
}
