// Package board draws a match position as a PNG.
package board

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"

	nchess "github.com/corentings/chess/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/iammadab/chessbench/internal/adapter/benchpresenter"
	"github.com/iammadab/chessbench/internal/domain"
	"github.com/iammadab/chessbench/internal/rules"
)

const (
	squareSize   = 56
	boardSquares = 8
	boardSize    = squareSize * boardSquares
	sideMargin   = 24
	topMargin    = 40
	bottomMargin = 24
)

var (
	lightSquare     = color.RGBA{233, 207, 163, 255}
	darkSquare      = color.RGBA{187, 136, 96, 255}
	backgroundColor = color.RGBA{38, 36, 33, 255}
	lastMoveFill    = color.NRGBA{R: 246, G: 230, B: 90, A: 110}
	textColor       = color.RGBA{230, 230, 230, 255}
)

type Options struct {
	// LastMove is highlighted when it is a valid long algebraic move.
	LastMove string
	Header   string
}

// RenderState renders the current position of a match with its last move and clocks.
func RenderState(ctx context.Context, state domain.MatchState) ([]byte, error) {
	r := rules.Chess{}
	pos, err := r.Start(state.CurrentFEN)
	if err != nil {
		return nil, err
	}
	opts := Options{
		Header: fmt.Sprintf("%s %s  vs  %s %s",
			state.WhiteEngine, benchpresenter.FormatClock(state.Clock.WhiteMS),
			state.BlackEngine, benchpresenter.FormatClock(state.Clock.BlackMS)),
	}
	if state.LastMove != nil {
		opts.LastMove = state.LastMove.UCI
	}
	return RenderPNG(ctx, r.Board(pos), opts)
}

func RenderPNG(ctx context.Context, board *nchess.Board, opts Options) ([]byte, error) {
	if board == nil {
		return nil, fmt.Errorf("board is nil")
	}
	origin := image.Point{X: sideMargin, Y: topMargin}
	img := image.NewRGBA(image.Rect(0, 0, boardSize+sideMargin*2, boardSize+topMargin+bottomMargin))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	drawSquares(img, origin)
	if from, to, ok := parseSquares(opts.LastMove); ok {
		drawSquareOverlay(img, from, origin, lastMoveFill)
		drawSquareOverlay(img, to, origin, lastMoveFill)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	if err := drawPieces(img, board, origin); err != nil {
		return nil, err
	}
	drawer := &font.Drawer{Dst: img, Src: image.NewUniform(textColor), Face: basicfont.Face7x13}
	drawCoordinates(drawer, origin)
	if opts.Header != "" {
		drawer.Dot = fixed.P(sideMargin, topMargin-14)
		drawer.DrawString(opts.Header)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

var (
	ranks = []nchess.Rank{nchess.Rank8, nchess.Rank7, nchess.Rank6, nchess.Rank5, nchess.Rank4, nchess.Rank3, nchess.Rank2, nchess.Rank1}
	files = []nchess.File{nchess.FileA, nchess.FileB, nchess.FileC, nchess.FileD, nchess.FileE, nchess.FileF, nchess.FileG, nchess.FileH}
)

func drawSquares(dst imagedraw.Image, origin image.Point) {
	for row, rank := range ranks {
		for col, file := range files {
			x := origin.X + col*squareSize
			y := origin.Y + row*squareSize
			imagedraw.Draw(dst, image.Rect(x, y, x+squareSize, y+squareSize), image.NewUniform(squareColor(nchess.NewSquare(file, rank))), image.Point{}, imagedraw.Src)
		}
	}
}

func drawPieces(dst imagedraw.Image, board *nchess.Board, origin image.Point) error {
	for _, rank := range ranks {
		for _, file := range files {
			sq := nchess.NewSquare(file, rank)
			piece := board.Piece(sq)
			if piece == nchess.NoPiece {
				continue
			}
			img, err := renderPieceImage(piece, squareSize)
			if err != nil {
				return err
			}
			imagedraw.Draw(dst, squareRect(sq, origin), img, image.Point{}, imagedraw.Over)
		}
	}
	return nil
}

func drawSquareOverlay(img *image.RGBA, sq nchess.Square, origin image.Point, clr color.Color) {
	imagedraw.Draw(img, squareRect(sq, origin), image.NewUniform(clr), image.Point{}, imagedraw.Over)
}

func drawCoordinates(drawer *font.Drawer, origin image.Point) {
	ascent := drawer.Face.Metrics().Ascent.Ceil()
	for row, rank := range ranks {
		y := origin.Y + row*squareSize + squareSize/2 + ascent/2
		drawCenteredText(drawer, rank.String(), origin.X-sideMargin/2, y)
	}
	for col, file := range files {
		x := origin.X + col*squareSize + squareSize/2
		drawCenteredText(drawer, file.String(), x, origin.Y+boardSize+ascent+4)
	}
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	if text == "" {
		return
	}
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}

func squareRect(sq nchess.Square, origin image.Point) image.Rectangle {
	row := 7 - int(sq.Rank())
	col := int(sq.File())
	x := origin.X + col*squareSize
	y := origin.Y + row*squareSize
	return image.Rect(x, y, x+squareSize, y+squareSize)
}

func squareColor(sq nchess.Square) color.Color {
	if (int(sq.File())+int(sq.Rank()))%2 == 0 {
		return darkSquare
	}
	return lightSquare
}

// parseSquares reads the origin and destination of a long algebraic move.
func parseSquares(uci string) (nchess.Square, nchess.Square, bool) {
	if len(uci) < 4 {
		return nchess.NoSquare, nchess.NoSquare, false
	}
	from, ok1 := parseSquare(uci[0:2])
	to, ok2 := parseSquare(uci[2:4])
	return from, to, ok1 && ok2
}

func parseSquare(s string) (nchess.Square, bool) {
	f, r := s[0], s[1]
	if f < 'a' || f > 'h' || r < '1' || r > '8' {
		return nchess.NoSquare, false
	}
	return nchess.NewSquare(nchess.File(f-'a'), nchess.Rank(r-'1')), true
}
