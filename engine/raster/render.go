package raster

import (
	"image"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/rect"

	m "github.com/spaghettifunk/stratum/engine/math"
)

// LitThreshold is the pixel coverage from which a pixel is lit.
const LitThreshold = 0.5

// DeviceMatrix maps build plate millimetres to pixels of a width x height
// image with the given pitch. The plate centre lands in the image centre and
// +Y points up in the image.
func DeviceMatrix(width, height int, pitch float64) matrix.Matrix {
	s := 1 / pitch
	return matrix.Matrix{s, 0, 0, -s, float64(width) / 2, float64(height) / 2}
}

// Renderer rasterises slice paths at a fixed resolution.
type Renderer struct {
	Width  int
	Height int
	Pitch  float64
	Rule   FillRule

	rast *Rasteriser
}

func NewRenderer(width, height int, pitch float64, rule FillRule) *Renderer {
	rast := NewRasteriser(rect.Rect{LLx: 0, LLy: 0, URx: float64(width), URy: float64(height)})
	rast.CTM = DeviceMatrix(width, height, pitch)
	return &Renderer{
		Width:  width,
		Height: height,
		Pitch:  pitch,
		Rule:   rule,
		rast:   rast,
	}
}

// NewBitmap returns an all dark bitmap of the renderer's size.
func (r *Renderer) NewBitmap() *Bitmap {
	return NewBitmap(r.Width, r.Height)
}

// NewCoverage returns a blank edge intensity image of the renderer's size.
func (r *Renderer) NewCoverage() *image.Gray {
	return image.NewGray(image.Rect(0, 0, r.Width, r.Height))
}

// Render clears dst and lights the pixels covered by p. If coverage is not
// nil the 8-bit pixel coverage is merged into it, keeping the brighter value,
// so that several paths can share one preview image.
func (r *Renderer) Render(p *path.Data, dst *Bitmap, coverage *image.Gray) {
	dst.Clear()
	r.rast.Fill(p, r.Rule, func(y, xMin int, span []float32) {
		row := y * dst.Width
		for i, c := range span {
			x := xMin + i
			if c >= LitThreshold {
				dst.Pix[row+x] = Lit
			}
			if coverage == nil {
				continue
			}
			v := uint8(m.Clamp(c, 0, 1)*255 + 0.5)
			off := coverage.PixOffset(x, y)
			if v > coverage.Pix[off] {
				coverage.Pix[off] = v
			}
		}
	})
}
