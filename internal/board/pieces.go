package board

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

const (
	svgHeader = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 45 45" width="45" height="45">`
	svgFooter = `</svg>`
)

// Glyph bodies on a 45x45 canvas; FILL and LINE are replaced per colour.
var glyphs = map[nchess.PieceType]string{
	nchess.Pawn: `<circle cx="22.5" cy="14" r="5.5" fill="FILL" stroke="LINE" stroke-width="1.5"/>
<path d="M17 21 L28 21 L31 33 L14 33 Z" fill="FILL" stroke="LINE" stroke-width="1.5"/>
<rect x="11" y="33" width="23" height="5" fill="FILL" stroke="LINE" stroke-width="1.5"/>`,
	nchess.Rook: `<path d="M11 9 L15 9 L15 12 L20 12 L20 9 L25 9 L25 12 L30 12 L30 9 L34 9 L34 16 L11 16 Z" fill="FILL" stroke="LINE" stroke-width="1.5"/>
<rect x="14" y="16" width="17" height="15" fill="FILL" stroke="LINE" stroke-width="1.5"/>
<rect x="10" y="31" width="25" height="6" fill="FILL" stroke="LINE" stroke-width="1.5"/>`,
	nchess.Knight: `<path d="M22 10 C32 11 36 20 33 37 L14 37 C13 30 21 28 19 23 C16 25 14 27 11 26 C9 24 9 21 12 18 C15 14 17 12 22 10 Z" fill="FILL" stroke="LINE" stroke-width="1.5"/>
<circle cx="17" cy="17" r="1.5" fill="LINE"/>`,
	nchess.Bishop: `<circle cx="22.5" cy="9" r="3" fill="FILL" stroke="LINE" stroke-width="1.5"/>
<ellipse cx="22.5" cy="21" rx="7" ry="9" fill="FILL" stroke="LINE" stroke-width="1.5"/>
<path d="M15 30 L30 30 L32 35 L13 35 Z" fill="FILL" stroke="LINE" stroke-width="1.5"/>
<rect x="10" y="35" width="25" height="4" fill="FILL" stroke="LINE" stroke-width="1.5"/>`,
	nchess.Queen: `<path d="M9 14 L14 29 L17 13 L22.5 28 L28 13 L31 29 L36 14 L33 34 L12 34 Z" fill="FILL" stroke="LINE" stroke-width="1.5"/>
<circle cx="9" cy="12" r="2.5" fill="FILL" stroke="LINE" stroke-width="1.5"/>
<circle cx="17" cy="10" r="2.5" fill="FILL" stroke="LINE" stroke-width="1.5"/>
<circle cx="28" cy="10" r="2.5" fill="FILL" stroke="LINE" stroke-width="1.5"/>
<circle cx="36" cy="12" r="2.5" fill="FILL" stroke="LINE" stroke-width="1.5"/>
<rect x="11" y="34" width="23" height="5" fill="FILL" stroke="LINE" stroke-width="1.5"/>`,
	nchess.King: `<path d="M21 4 L24 4 L24 8 L28 8 L28 11 L24 11 L24 15 L21 15 L21 11 L17 11 L17 8 L21 8 Z" fill="FILL" stroke="LINE" stroke-width="1.2"/>
<path d="M12 20 C12 15 33 15 33 20 L30 34 L15 34 Z" fill="FILL" stroke="LINE" stroke-width="1.5"/>
<rect x="11" y="34" width="23" height="5" fill="FILL" stroke="LINE" stroke-width="1.5"/>`,
}

func pieceSVG(piece nchess.Piece) (string, error) {
	body, ok := glyphs[piece.Type()]
	if !ok {
		return "", fmt.Errorf("no glyph for piece %v", piece)
	}
	fill, line := "#f8f8f8", "#101010"
	if piece.Color() == nchess.Black {
		fill, line = "#262626", "#000000"
	}
	body = strings.ReplaceAll(body, "FILL", fill)
	body = strings.ReplaceAll(body, "LINE", line)
	return svgHeader + body + svgFooter, nil
}

type pieceCacheKey struct {
	piece nchess.Piece
	size  int
}

var (
	pieceCache   = map[pieceCacheKey]image.Image{}
	pieceCacheMu sync.RWMutex
)

func renderPieceImage(piece nchess.Piece, size int) (image.Image, error) {
	key := pieceCacheKey{piece: piece, size: size}

	pieceCacheMu.RLock()
	if img, ok := pieceCache[key]; ok {
		pieceCacheMu.RUnlock()
		return img, nil
	}
	pieceCacheMu.RUnlock()

	src, err := pieceSVG(piece)
	if err != nil {
		return nil, err
	}
	icon, err := oksvg.ReadIconStream(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	pieceCacheMu.Lock()
	pieceCache[key] = img
	pieceCacheMu.Unlock()
	return img, nil
}
