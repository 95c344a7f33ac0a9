package render

import (
	"bytes"
	"fmt"
	"image"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/park285/Cheese-PvP-server/internal/board"
)

type glyphKey struct {
	kind  board.PieceType
	color board.Color
	size  int
}

var (
	glyphCache   = map[glyphKey]image.Image{}
	glyphCacheMu sync.RWMutex
)

// pieceImage rasterises and caches the glyph for one piece kind at size px.
func pieceImage(t board.PieceType, c board.Color, size int) (image.Image, error) {
	key := glyphKey{kind: t, color: c, size: size}
	glyphCacheMu.RLock()
	img, ok := glyphCache[key]
	glyphCacheMu.RUnlock()
	if ok {
		return img, nil
	}

	data, err := glyphSVG(t, c)
	if err != nil {
		return nil, err
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse %s %s glyph: %w", c, t, err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	rgba := image.NewRGBA(image.Rect(0, 0, size, size))
	scanner := rasterx.NewScannerGV(size, size, rgba, rgba.Bounds())
	icon.Draw(rasterx.NewDasher(size, size, scanner), 1.0)

	glyphCacheMu.Lock()
	glyphCache[key] = rgba
	glyphCacheMu.Unlock()
	return rgba, nil
}
