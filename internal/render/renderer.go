// Package render draws a match position as a PNG: board, pieces, last-move
// highlight, coordinates and a HUD with clocks, turn and material balance.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/park285/Cheese-PvP-server/internal/board"
	"github.com/park285/Cheese-PvP-server/internal/game"
)

type Options struct {
	// Title heads the HUD, typically "alice vs bob".
	Title string
}

type Renderer struct {
	face font.Face
}

func New() *Renderer { return &Renderer{face: basicfont.Face7x13} }

const (
	squareSize   = 64
	boardSize    = squareSize * 8
	sideMargin   = 32
	topMargin    = 104
	bottomMargin = 32
	panelHeight  = 30
	panelGap     = 10
	panelRadius  = 10
	panelPadding = 18
)

var (
	lightSquare     = color.RGBA{233, 207, 163, 255}
	darkSquare      = color.RGBA{187, 136, 96, 255}
	lastMoveFill    = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	backgroundColor = color.RGBA{22, 24, 36, 255}
	hudPanelColor   = color.NRGBA{R: 40, G: 44, B: 64, A: 250}
	hudShadowColor  = color.NRGBA{0, 0, 0, 60}
	hudTextColor    = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	coordTextColor  = color.NRGBA{R: 8, G: 214, B: 120, A: 255}
)

var pieceValue = map[board.PieceType]int{
	board.Pawn: 1, board.Knight: 3, board.Bishop: 3, board.Rook: 5, board.Queen: 9,
}

// Material returns white's captured value minus black's.
func Material(c game.CapturedPieces) int {
	sum := func(ps []board.Piece) int {
		n := 0
		for _, p := range ps {
			n += pieceValue[p.Type]
		}
		return n
	}
	return sum(c.White) - sum(c.Black)
}

// RenderPNG draws s and encodes it as PNG.
func (r *Renderer) RenderPNG(ctx context.Context, s game.GameState, opts Options) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	width := boardSize + sideMargin*2
	height := boardSize + topMargin + bottomMargin
	origin := image.Point{X: sideMargin, Y: topMargin}
	boardRect := image.Rect(origin.X, origin.Y, origin.X+boardSize, origin.Y+boardSize)

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	r.drawHUD(img, s, opts, boardRect)
	drawSquares(img, origin)
	if s.LastMove != nil && s.LastMove.TargetPosition.Valid() {
		drawOverlay(img, squareRect(board.LibSquare(s.LastMove.TargetPosition), origin), lastMoveFill)
	}
	if err := drawPieces(img, s.Pieces, origin); err != nil {
		return nil, err
	}
	r.drawCoordinates(img, origin)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func squareRect(sq nchess.Square, origin image.Point) image.Rectangle {
	col := int(sq.File())
	row := 7 - int(sq.Rank())
	x := origin.X + col*squareSize
	y := origin.Y + row*squareSize
	return image.Rect(x, y, x+squareSize, y+squareSize)
}

func drawSquares(dst imagedraw.Image, origin image.Point) {
	for _, sq := range board.AllSquares() {
		lib := board.LibSquare(sq)
		clr := lightSquare
		if (int(lib.File())+int(lib.Rank()))%2 == 0 {
			clr = darkSquare
		}
		imagedraw.Draw(dst, squareRect(lib, origin), image.NewUniform(clr), image.Point{}, imagedraw.Src)
	}
}

// drawPieces walks the library board so placement matches the FEN view.
func drawPieces(dst imagedraw.Image, pieces []board.Piece, origin image.Point) error {
	for sq, p := range board.ToBoard(pieces).SquareMap() {
		if p == nchess.NoPiece {
			continue
		}
		t, c := fromLibPiece(p)
		glyph, err := pieceImage(t, c, squareSize)
		if err != nil {
			return err
		}
		imagedraw.Draw(dst, squareRect(sq, origin), glyph, image.Point{}, imagedraw.Over)
	}
	return nil
}

func fromLibPiece(p nchess.Piece) (board.PieceType, board.Color) {
	c := board.White
	if p.Color() == nchess.Black {
		c = board.Black
	}
	switch p.Type() {
	case nchess.King:
		return board.King, c
	case nchess.Queen:
		return board.Queen, c
	case nchess.Rook:
		return board.Rook, c
	case nchess.Bishop:
		return board.Bishop, c
	case nchess.Knight:
		return board.Knight, c
	default:
		return board.Pawn, c
	}
}

func drawOverlay(img *image.RGBA, rect image.Rectangle, clr color.Color) {
	imagedraw.Draw(img, rect, image.NewUniform(clr), image.Point{}, imagedraw.Over)
}

func (r *Renderer) drawHUD(img *image.RGBA, s game.GameState, opts Options, boardRect image.Rectangle) {
	title := strings.TrimSpace(opts.Title)
	if title == "" {
		title = "White vs Black"
	}
	turn := s.ActivePlayer.Title() + " to move"
	if s.Over() {
		turn = s.Status
	}
	score := fmt.Sprintf("%+d", Material(s.CapturedPieces))
	if score == "+0" {
		score = "0"
	}

	turnBottom := boardRect.Min.Y - panelGap*2
	turnTop := turnBottom - panelHeight
	titleBottom := turnTop - panelGap
	titleTop := titleBottom - panelHeight

	titleRect := image.Rect(boardRect.Min.X, titleTop, boardRect.Min.X+r.panelWidth(title, 220), titleBottom)
	scoreW := r.panelWidth(score, 72)
	scoreRect := image.Rect(boardRect.Max.X-scoreW, titleTop, boardRect.Max.X, titleBottom)
	turnRect := image.Rect(boardRect.Min.X, turnTop, boardRect.Min.X+r.panelWidth(turn, 160), turnBottom)

	panels := []struct {
		rect image.Rectangle
		text string
	}{{titleRect, title}, {scoreRect, score}, {turnRect, turn}}

	if s.TimeRemaining != nil {
		clock := fmt.Sprintf("W %s  B %s", formatClock(s.TimeRemaining.White), formatClock(s.TimeRemaining.Black))
		w := r.panelWidth(clock, 140)
		panels = append(panels, struct {
			rect image.Rectangle
			text string
		}{image.Rect(boardRect.Max.X-w, turnTop, boardRect.Max.X, turnBottom), clock})
	}

	for _, p := range panels {
		fillRoundRect(img, p.rect.Add(image.Pt(0, 4)), panelRadius, hudShadowColor)
		fillRoundRect(img, p.rect, panelRadius, hudPanelColor)
		r.drawCenteredString(img, p.rect, p.text, hudTextColor)
	}
}

func (r *Renderer) panelWidth(text string, minWidth int) int {
	d := font.Drawer{Face: r.face}
	return max(minWidth, d.MeasureString(text).Round()+panelPadding*2)
}

func formatClock(sec int) string {
	if sec < 0 {
		sec = 0
	}
	return fmt.Sprintf("%d:%02d", sec/60, sec%60)
}

// fillRoundRect fills rect with rounded corners through the rasterx filler.
func fillRoundRect(img *image.RGBA, rect image.Rectangle, radius float64, clr color.Color) {
	if rect.Empty() {
		return
	}
	b := img.Bounds()
	scanner := rasterx.NewScannerGV(b.Dx(), b.Dy(), img, b)
	filler := rasterx.NewFiller(b.Dx(), b.Dy(), scanner)
	filler.SetColor(clr)
	rasterx.AddRoundRect(float64(rect.Min.X), float64(rect.Min.Y), float64(rect.Max.X), float64(rect.Max.Y),
		radius, radius, 0, rasterx.RoundGap, filler)
	filler.Draw()
}

func (r *Renderer) drawCenteredString(dst imagedraw.Image, rect image.Rectangle, text string, clr color.Color) {
	d := &font.Drawer{Dst: dst, Face: r.face, Src: image.NewUniform(clr)}
	m := r.face.Metrics()
	w := d.MeasureString(text).Round()
	x := max(rect.Min.X, rect.Min.X+(rect.Dx()-w)/2)
	baseline := rect.Min.Y + (rect.Dy()+m.Ascent.Ceil()-m.Descent.Ceil())/2
	d.Dot = fixed.P(x, baseline)
	d.DrawString(text)
}

func (r *Renderer) drawCoordinates(dst imagedraw.Image, origin image.Point) {
	d := &font.Drawer{Dst: dst, Face: r.face, Src: image.NewUniform(coordTextColor)}
	ascent := r.face.Metrics().Ascent.Ceil()
	for i := 0; i < 8; i++ {
		rank := fmt.Sprint(8 - i)
		file := string(rune('a' + i))
		drawCenteredText(d, rank, origin.X-sideMargin/2, origin.Y+i*squareSize+squareSize/2+ascent/2)
		drawCenteredText(d, file, origin.X+i*squareSize+squareSize/2, origin.Y+boardSize+ascent+4)
	}
}

func drawCenteredText(d *font.Drawer, text string, centerX, baseline int) {
	w := d.MeasureString(text).Round()
	d.Dot = fixed.P(centerX-w/2, baseline)
	d.DrawString(text)
}
