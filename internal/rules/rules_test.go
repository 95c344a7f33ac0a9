package rules

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/park285/Cheese-PvP-server/internal/board"
)

func sq(name string) board.Square { return board.MustSquare(name) }

func piece(id string, t board.PieceType, c board.Color, at string) board.Piece {
	return board.Piece{ID: id, Type: t, Color: c, Position: sq(at)}
}

func names(list []board.Square) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		out = append(out, s.String())
	}
	return out
}

func mustFind(t *testing.T, pieces []board.Piece, at string) board.Piece {
	t.Helper()
	p, ok := board.PieceAt(sq(at), pieces)
	if !ok {
		t.Fatalf("no piece on %s", at)
	}
	return p
}

func TestOpeningPosition(t *testing.T) {
	pieces := board.StandardLayout()
	cases := []struct {
		from string
		want []string
	}{
		{"a2", []string{"a4", "a3"}},
		{"e7", []string{"e6", "e5"}},
		{"b1", []string{"a3", "c3"}},
		{"g8", []string{"f6", "h6"}},
		{"a1", nil},
		{"c1", nil},
		{"d1", nil},
		{"e1", nil},
	}
	for _, c := range cases {
		p := mustFind(t, pieces, c.from)
		got := names(LegalTargets(p, pieces))
		if len(c.want) == 0 && len(got) == 0 {
			continue
		}
		if diff := cmp.Diff(c.want, got); diff != "" {
			t.Fatalf("%s targets mismatch (-want +got):\n%s", c.from, diff)
		}
	}
}

func TestPawn(t *testing.T) {
	pieces := []board.Piece{
		piece("wp", board.Pawn, board.White, "e4"),
		piece("bp", board.Pawn, board.Black, "d5"),
		piece("bp2", board.Pawn, board.Black, "e5"),
		piece("wp2", board.Pawn, board.White, "c2"),
		piece("bn", board.Knight, board.Black, "c3"),
		piece("wp3", board.Pawn, board.White, "g2"),
		piece("bb", board.Bishop, board.Black, "g4"),
	}
	wp := mustFind(t, pieces, "e4")
	cases := []struct {
		p    board.Piece
		to   string
		want bool
	}{
		{wp, "d5", true},  // diagonal capture
		{wp, "f5", false}, // diagonal onto empty
		{wp, "e5", false}, // forward onto occupied
		{wp, "e3", false}, // backwards
		{wp, "e6", false}, // two steps off start rank
		{mustFind(t, pieces, "c2"), "c4", false}, // intermediate blocked
		{mustFind(t, pieces, "c2"), "c3", false}, // forward blocked
		{mustFind(t, pieces, "g2"), "g3", true},
		{mustFind(t, pieces, "g2"), "g4", false}, // destination blocked
		{mustFind(t, pieces, "d5"), "e4", true},  // black captures downward
		{mustFind(t, pieces, "d5"), "d4", true},
		{mustFind(t, pieces, "d5"), "d6", false},
		{mustFind(t, pieces, "e5"), "e4", false},
	}
	for i, c := range cases {
		if got := IsLegal(c.p, sq(c.to), pieces); got != c.want {
			t.Fatalf("case %d %s->%s: got %v want %v", i, c.p.Position, c.to, got, c.want)
		}
	}
}

func TestBlackPawnDoubleStep(t *testing.T) {
	pieces := []board.Piece{piece("bp", board.Pawn, board.Black, "a7")}
	got := names(LegalTargets(pieces[0], pieces))
	if diff := cmp.Diff([]string{"a6", "a5"}, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestKnightJumps(t *testing.T) {
	pieces := board.StandardLayout()
	n := mustFind(t, pieces, "b1")
	if !IsLegal(n, sq("c3"), pieces) {
		t.Fatalf("knight b1->c3 should be legal despite surrounding pieces")
	}
	if IsLegal(n, sq("d2"), pieces) {
		t.Fatalf("knight b1->d2 lands on own pawn")
	}
	if IsLegal(n, sq("b3"), pieces) {
		t.Fatalf("knight b1->b3 is not a knight offset")
	}
}

func TestSlidersBlocked(t *testing.T) {
	pieces := board.StandardLayout()
	if IsLegal(mustFind(t, pieces, "a1"), sq("a8"), pieces) {
		t.Fatalf("rook a1->a8 must be blocked by a2")
	}
	if IsLegal(mustFind(t, pieces, "c1"), sq("h6"), pieces) {
		t.Fatalf("bishop c1->h6 must be blocked by d2")
	}
	if IsLegal(mustFind(t, pieces, "d1"), sq("d4"), pieces) {
		t.Fatalf("queen d1->d4 must be blocked by d2")
	}
}

func TestSlidersOpenBoard(t *testing.T) {
	pieces := []board.Piece{
		piece("wr", board.Rook, board.White, "d4"),
		piece("wq", board.Queen, board.White, "a1"),
		piece("wb", board.Bishop, board.White, "h1"),
		piece("bp", board.Pawn, board.Black, "d7"),
		piece("wp", board.Pawn, board.White, "g4"),
	}
	rook := mustFind(t, pieces, "d4")
	cases := []struct {
		p    board.Piece
		to   string
		want bool
	}{
		{rook, "d7", true},  // capture at end of clear file
		{rook, "d8", false}, // beyond the capture
		{rook, "f4", true},
		{rook, "g4", false}, // own piece
		{rook, "h4", false}, // through own piece
		{rook, "e5", false}, // diagonal
		{mustFind(t, pieces, "a1"), "c3", true},
		{mustFind(t, pieces, "a1"), "a8", true},
		{mustFind(t, pieces, "a1"), "b3", false},
		{mustFind(t, pieces, "a1"), "h8", false}, // rook on d4 blocks the diagonal
		{mustFind(t, pieces, "h1"), "a8", true},
		{mustFind(t, pieces, "h1"), "h2", false},
	}
	for i, c := range cases {
		if got := IsLegal(c.p, sq(c.to), pieces); got != c.want {
			t.Fatalf("case %d %s %s->%s: got %v want %v", i, c.p.Type, c.p.Position, c.to, got, c.want)
		}
	}
	if got := len(LegalTargets(rook, pieces)); got != 11 {
		t.Fatalf("rook on d4 expected 11 targets, got %d (%v)", got, names(LegalTargets(rook, pieces)))
	}
}

func TestKing(t *testing.T) {
	pieces := []board.Piece{
		piece("wk", board.King, board.White, "e1"),
		piece("br", board.Rook, board.Black, "d8"),
	}
	k := pieces[0]
	got := names(LegalTargets(k, pieces))
	if diff := cmp.Diff([]string{"d2", "d1", "e2", "f2", "f1"}, got); diff != "" {
		t.Fatalf("king targets (-want +got):\n%s", diff)
	}
	if !IsLegal(k, sq("d1"), pieces) {
		t.Fatalf("king may step onto an attacked square")
	}
	if IsLegal(k, sq("g1"), pieces) || IsLegal(k, sq("c1"), pieces) {
		t.Fatalf("no castling geometry")
	}
}

func TestSameSquareNeverLegal(t *testing.T) {
	p := piece("wq", board.Queen, board.White, "d4")
	if IsLegal(p, p.Position, []board.Piece{p}) {
		t.Fatalf("null move accepted")
	}
}
