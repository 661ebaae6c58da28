package systems

import (
	"fmt"
	"math"

	"github.com/spaghettifunk/stratum/engine/core"
)

// layerEpsilon absorbs the rounding error of depth / thickness so that a
// 20 mm volume sliced at 0.1 mm gives 200 layers and not 201.
const layerEpsilon = 1e-9

/**
 * @brief The printable region and its slicing parameters.
 * The X and Y extents derive from the projector resolution and pixel size;
 * the build plate centre is the world origin.
 */
type BuildVolume struct {
	/** @brief Projector resolution in pixels. */
	ResolutionX int
	ResolutionY int
	/** @brief Edge length of one projected pixel in millimetres. */
	PixelSize float64
	/** @brief Layer thickness in millimetres. */
	LayerThickness float64
	/** @brief Z extent of the volume in millimetres. */
	Depth float64
}

// SizeX is the build area width in millimetres.
func (bv BuildVolume) SizeX() float64 {
	return float64(bv.ResolutionX) * bv.PixelSize
}

// SizeY is the build area length in millimetres.
func (bv BuildVolume) SizeY() float64 {
	return float64(bv.ResolutionY) * bv.PixelSize
}

func (bv BuildVolume) Validate() error {
	switch {
	case bv.ResolutionX <= 0 || bv.ResolutionY <= 0:
		return fmt.Errorf("resolution %dx%d: %w", bv.ResolutionX, bv.ResolutionY, core.ErrInvalidVolume)
	case bv.PixelSize <= 0:
		return fmt.Errorf("pixel size %g mm: %w", bv.PixelSize, core.ErrInvalidVolume)
	case bv.LayerThickness <= 0:
		return fmt.Errorf("layer thickness %g mm: %w", bv.LayerThickness, core.ErrInvalidVolume)
	case bv.Depth < 0:
		return fmt.Errorf("depth %g mm: %w", bv.Depth, core.ErrInvalidVolume)
	}
	return nil
}

// LayerCount returns ceil(depth / thickness), or 0 for an empty volume.
func (bv BuildVolume) LayerCount() int {
	if bv.Depth <= 0 || bv.LayerThickness <= 0 {
		return 0
	}
	q := bv.Depth / bv.LayerThickness
	if r := math.Round(q); math.Abs(q-r) < layerEpsilon {
		return int(r)
	}
	return int(math.Ceil(q))
}

// LayerBase is the bottom of layer l.
func (bv BuildVolume) LayerBase(l int) float64 {
	return float64(l) * bv.LayerThickness
}

// LayerHeight is the height at which layer l is sampled, the middle of the
// layer.
func (bv BuildVolume) LayerHeight(l int) float64 {
	return bv.LayerBase(l) + bv.LayerThickness/2
}
