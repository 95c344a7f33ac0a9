package board

import (
	"fmt"
	"strings"
)

// Square is a board coordinate. X runs west→east (file a..h), Y runs
// north→south: rank 8 is Y=0 and rank 1 is Y=7.
type Square struct {
	X int8
	Y int8
}

// ErrInvalidSquare is returned for coordinates outside the 8x8 board.
var ErrInvalidSquare = errf("invalid square")

// NewSquare returns the square at (x, y) or ErrInvalidSquare.
func NewSquare(x, y int) (Square, error) {
	if x < 0 || x > 7 || y < 0 || y > 7 {
		return Square{}, fmt.Errorf("%w: (%d,%d)", ErrInvalidSquare, x, y)
	}
	return Square{X: int8(x), Y: int8(y)}, nil
}

// MustSquare parses a known-good algebraic name and panics otherwise.
func MustSquare(name string) Square {
	sq, err := ParseSquare(name)
	if err != nil {
		panic(err)
	}
	return sq
}

// ParseSquare converts algebraic notation ("e4") to a Square.
func ParseSquare(s string) (Square, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 2 {
		return Square{}, fmt.Errorf("%w: %q", ErrInvalidSquare, s)
	}
	file, rank := s[0], s[1]
	if file < 'a' || file > 'h' || rank < '1' || rank > '8' {
		return Square{}, fmt.Errorf("%w: %q", ErrInvalidSquare, s)
	}
	return Square{X: int8(file - 'a'), Y: int8('8' - rank)}, nil
}

// String returns the algebraic name of the square.
func (s Square) String() string {
	if !s.Valid() {
		return "-"
	}
	return string([]byte{'a' + byte(s.X), '8' - byte(s.Y)})
}

func (s Square) Valid() bool { return s.X >= 0 && s.X <= 7 && s.Y >= 0 && s.Y <= 7 }

// File returns 'a'..'h'.
func (s Square) File() byte { return 'a' + byte(s.X) }

// Rank returns the chess rank number 1..8.
func (s Square) Rank() int { return 8 - int(s.Y) }

// Offset returns the square shifted by (dx, dy) and whether it is on the board.
func (s Square) Offset(dx, dy int) (Square, bool) {
	n := Square{X: s.X + int8(dx), Y: s.Y + int8(dy)}
	return n, n.Valid()
}

func (s Square) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: (%d,%d)", ErrInvalidSquare, s.X, s.Y)
	}
	return []byte(s.String()), nil
}

func (s *Square) UnmarshalText(b []byte) error {
	sq, err := ParseSquare(string(b))
	if err != nil {
		return err
	}
	*s = sq
	return nil
}

// AllSquares lists the 64 squares in (x, y) order.
func AllSquares() []Square {
	out := make([]Square, 0, 64)
	for x := int8(0); x < 8; x++ {
		for y := int8(0); y < 8; y++ {
			out = append(out, Square{X: x, Y: y})
		}
	}
	return out
}

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error { return staticErr(s) }
