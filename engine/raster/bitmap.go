// Package raster turns slice loops into binary layer images.
package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/spaghettifunk/stratum/engine/core"
)

const (
	Dark uint8 = 0x00
	Lit  uint8 = 0xFF
)

// Bitmap is a binary layer image. Every pixel is either Dark or Lit, stored
// one byte per pixel in row-major order with row 0 at the top.
type Bitmap struct {
	Width  int
	Height int
	Pix    []uint8
}

func NewBitmap(width, height int) *Bitmap {
	return &Bitmap{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height),
	}
}

func (b *Bitmap) ColorModel() color.Model {
	return color.GrayModel
}

func (b *Bitmap) Bounds() image.Rectangle {
	return image.Rect(0, 0, b.Width, b.Height)
}

func (b *Bitmap) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return color.Gray{}
	}
	return color.Gray{Y: b.Pix[y*b.Width+x]}
}

func (b *Bitmap) IsLit(x, y int) bool {
	return b.Pix[y*b.Width+x] == Lit
}

func (b *Bitmap) Set(x, y int, lit bool) {
	v := Dark
	if lit {
		v = Lit
	}
	b.Pix[y*b.Width+x] = v
}

// Clear turns every pixel dark.
func (b *Bitmap) Clear() {
	clear(b.Pix)
}

// Union lights every pixel that is lit in other. The operation is
// idempotent, commutative and associative.
func (b *Bitmap) Union(other *Bitmap) error {
	if b.Width != other.Width || b.Height != other.Height {
		return fmt.Errorf("union of %dx%d with %dx%d: %w", b.Width, b.Height, other.Width, other.Height, core.ErrSizeMismatch)
	}
	for i, v := range other.Pix {
		b.Pix[i] |= v
	}
	return nil
}

// LitCount returns the number of lit pixels.
func (b *Bitmap) LitCount() int {
	n := 0
	for _, v := range b.Pix {
		if v == Lit {
			n++
		}
	}
	return n
}

func (b *Bitmap) Equal(other *Bitmap) bool {
	return b.Width == other.Width && b.Height == other.Height && bytes.Equal(b.Pix, other.Pix)
}
