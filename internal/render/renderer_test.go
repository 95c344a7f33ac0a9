package render

import (
	"bytes"
	"context"
	"image/png"
	"testing"

	"github.com/park285/Cheese-PvP-server/internal/board"
	"github.com/park285/Cheese-PvP-server/internal/game"
)

func TestRenderPNG(t *testing.T) {
	s := game.NewGame(&game.TimeControl{Minutes: 5, Increment: 2})
	s, err := game.ApplyMove(s, board.White, game.Move{PieceID: "white-pawn-e", TargetPosition: board.MustSquare("e4")})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	raw, err := New().RenderPNG(context.Background(), s, Options{Title: "alice vs bob"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != boardSize+sideMargin*2 || b.Dy() != boardSize+topMargin+bottomMargin {
		t.Fatalf("unexpected size %v", b)
	}
}

func TestRenderHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().RenderPNG(ctx, game.NewGame(nil), Options{}); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestEveryGlyphParses(t *testing.T) {
	for _, c := range []board.Color{board.White, board.Black} {
		for _, pt := range []board.PieceType{board.Pawn, board.Knight, board.Bishop, board.Rook, board.Queen, board.King} {
			img, err := pieceImage(pt, c, 32)
			if err != nil {
				t.Fatalf("%s %s: %v", c, pt, err)
			}
			if img.Bounds().Dx() != 32 {
				t.Fatalf("%s %s: bounds %v", c, pt, img.Bounds())
			}
		}
	}
}

func TestMaterial(t *testing.T) {
	c := game.CapturedPieces{
		White: []board.Piece{{Type: board.Queen}, {Type: board.Pawn}},
		Black: []board.Piece{{Type: board.Rook}},
	}
	if got := Material(c); got != 5 {
		t.Fatalf("material = %d, want 5", got)
	}
}

func TestFormatClock(t *testing.T) {
	for in, want := range map[int]string{0: "0:00", 59: "0:59", 300: "5:00", -3: "0:00"} {
		if got := formatClock(in); got != want {
			t.Fatalf("formatClock(%d) = %q, want %q", in, got, want)
		}
	}
}
