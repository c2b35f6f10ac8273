package accuracy

import (
	"bytes"
	"fmt"
	goimage "image"
	"image/color"
	"image/png"

	"github.com/notnil/chess"
	"github.com/notnil/chess/image"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// Renderer draws a position after a move.
type Renderer interface {
	Render(pos *chess.Position, move *chess.Move) ([]byte, error)
}

// lastMoveColor highlights the from and to squares of the rendered move.
var lastMoveColor = color.RGBA{R: 205, G: 210, B: 106, A: 255}

// SVGRenderer renders positions as SVG diagrams from White's side.
type SVGRenderer struct{}

var _ Renderer = SVGRenderer{}

// Render returns an SVG document of pos with move's squares marked.
func (SVGRenderer) Render(pos *chess.Position, move *chess.Move) ([]byte, error) {
	var buf bytes.Buffer
	if err := image.SVG(&buf, pos.Board(), image.MarkSquares(lastMoveColor, move.S1(), move.S2())); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DefaultPNGSize is the edge length of PNG snapshots in pixels.
const DefaultPNGSize = 360

// PNGRenderer rasterizes the SVG diagram into a PNG image.
type PNGRenderer struct {
	// Size is the edge length in pixels. Zero means DefaultPNGSize.
	Size int
}

var _ Renderer = PNGRenderer{}

// Render returns a PNG image of pos with move's squares marked.
func (r PNGRenderer) Render(pos *chess.Position, move *chess.Move) ([]byte, error) {
	doc, err := SVGRenderer{}.Render(pos, move)
	if err != nil {
		return nil, err
	}

	size := r.Size
	if size <= 0 {
		size = DefaultPNGSize
	}

	// Piece glyphs use a few SVG features oksvg does not know; they are
	// skipped rather than failing the whole diagram.
	icon, err := oksvg.ReadIconStream(bytes.NewReader(doc), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, fmt.Errorf("parsing diagram: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	rgba := goimage.NewRGBA(goimage.Rect(0, 0, size, size))
	scanner := rasterx.NewScannerGV(size, size, rgba, rgba.Bounds())
	icon.Draw(rasterx.NewDasher(size, size, scanner), 1.0)

	var buf bytes.Buffer
	if err := png.Encode(&buf, rgba); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// RendererFor returns the renderer for a snapshot format, "svg" or "png".
func RendererFor(format string) (Renderer, error) {
	switch format {
	case "svg", "":
		return SVGRenderer{}, nil
	case "png":
		return PNGRenderer{}, nil
	}
	return nil, fmt.Errorf("unknown snapshot format %q", format)
}
