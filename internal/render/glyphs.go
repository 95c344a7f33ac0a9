package render

import (
	"fmt"

	"github.com/park285/Cheese-PvP-server/internal/board"
)

// Piece outlines on a 45x45 canvas. %[1]s is the fill, %[2]s the stroke.
var glyphBodies = map[board.PieceType]string{
	board.Pawn: `<circle cx="22.5" cy="14" r="6" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>
<path d="M 15 36 L 18 22 L 27 22 L 30 36 Z" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>
<rect x="11" y="35" width="23" height="5" rx="1.5" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>`,
	board.Rook: `<path d="M 11 9 L 15 9 L 15 12 L 20 12 L 20 9 L 25 9 L 25 12 L 30 12 L 30 9 L 34 9 L 34 15 L 31 18 L 31 31 L 14 31 L 14 18 L 11 15 Z" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>
<rect x="10" y="31" width="25" height="8" rx="1.5" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>`,
	board.Knight: `<path d="M 14 38 L 31 38 C 32 29 31 18 24 10 L 21 7 L 19 11 L 15 14 L 10 23 L 12 26 L 17 23 L 20 22 C 17 28 14 31 14 38 Z" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>
<circle cx="17" cy="15" r="1.2" fill="%[2]s"/>`,
	board.Bishop: `<circle cx="22.5" cy="8" r="2.5" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>
<ellipse cx="22.5" cy="21" rx="7" ry="10" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>
<path d="M 20 18 L 25 18 M 22.5 15.5 L 22.5 20.5" stroke="%[2]s" stroke-width="1.5" fill="none"/>
<rect x="11" y="32" width="23" height="6" rx="1.5" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>`,
	board.Queen: `<path d="M 9 14 L 14 30 L 31 30 L 36 14 L 29 24 L 22.5 10 L 16 24 Z" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>
<circle cx="9" cy="12" r="2.5" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>
<circle cx="22.5" cy="8" r="2.5" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>
<circle cx="36" cy="12" r="2.5" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>
<rect x="12" y="30" width="21" height="8" rx="1.5" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>`,
	board.King: `<path d="M 22.5 4 L 22.5 13 M 18.5 8 L 26.5 8" stroke="%[2]s" stroke-width="2" fill="none"/>
<path d="M 11 20 C 11 14 34 14 34 20 L 30 31 L 15 31 Z" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>
<rect x="12" y="31" width="21" height="7" rx="1.5" fill="%[1]s" stroke="%[2]s" stroke-width="1.5"/>`,
}

func glyphSVG(t board.PieceType, c board.Color) ([]byte, error) {
	body, ok := glyphBodies[t]
	if !ok {
		return nil, fmt.Errorf("no glyph for %q", t)
	}
	fill, stroke := "#ffffff", "#000000"
	if c == board.Black {
		fill, stroke = "#000000", "#ffffff"
	}
	svg := `<svg xmlns="http://www.w3.org/2000/svg" width="45" height="45" viewBox="0 0 45 45">` +
		fmt.Sprintf(body, fill, stroke) + `</svg>`
	return []byte(svg), nil
}
