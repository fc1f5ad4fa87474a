// Package icon turns a source SVG into multi-resolution icon containers:
// Apple icon families (.icns) and Windows icon directories (.ico), both
// holding PNG rasters at a fixed set of target dimensions.
package icon

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// ErrNotSquare reports an SVG whose intrinsic width and height differ.
// Rasterisation applies one uniform scale per target dimension, so callers
// must supply square sources.
var ErrNotSquare = errors.New("icon: svg intrinsic size is not square")

// Renderer holds one parsed SVG and rasterises it at arbitrary square
// dimensions. Not safe for concurrent use: the underlying SVG tree carries
// the render target.
type Renderer struct {
	icon   *oksvg.SvgIcon
	source string
	size   float64
}

// NewRendererFromFile parses the SVG at path. Malformed input surfaces as an
// svg-parse error; a non-square intrinsic size surfaces as ErrNotSquare.
func NewRendererFromFile(path string) (*Renderer, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("icon: open svg %s: %w", path, err)
	}
	defer file.Close()

	parsed, err := oksvg.ReadIconStream(file)
	if err != nil {
		return nil, fmt.Errorf("icon: parse svg %s: %w", path, err)
	}
	vb := parsed.ViewBox
	if vb.W != vb.H {
		return nil, fmt.Errorf("icon: %s is %gx%g: %w", path, vb.W, vb.H, ErrNotSquare)
	}
	if vb.W <= 0 {
		return nil, fmt.Errorf("icon: %s has no intrinsic size", path)
	}
	return &Renderer{icon: parsed, source: path, size: vb.W}, nil
}

// Size returns the SVG's intrinsic (square) dimension in pixels.
func (r *Renderer) Size() float64 { return r.size }

// Source returns the path the SVG was parsed from.
func (r *Renderer) Source() string { return r.source }

// RenderAt rasterises the SVG into an opaque dim-by-dim buffer with a
// uniform scale of dim over the intrinsic size.
func (r *Renderer) RenderAt(dim uint) *image.RGBA {
	bounds := image.Rect(0, 0, int(dim), int(dim))
	rgba := image.NewRGBA(bounds)
	// Opaque buffer: the containers carry no separate background, so the
	// raster starts from solid white rather than transparent black.
	draw.Draw(rgba, bounds, image.NewUniform(color.White), image.Point{}, draw.Src)

	r.icon.SetTarget(0, 0, float64(dim), float64(dim))
	scanner := rasterx.NewScannerGV(int(dim), int(dim), rgba, bounds)
	dasher := rasterx.NewDasher(int(dim), int(dim), scanner)
	r.icon.Draw(dasher, 1.0)
	return rgba
}

// EncodePNG encodes img with the stdlib PNG encoder.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("icon: encode png: %w", err)
	}
	return buf.Bytes(), nil
}
