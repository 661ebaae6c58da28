// Package export writes sliced layers to bitmap job and SLC contour files.
package export

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spaghettifunk/stratum/engine/core"
	m "github.com/spaghettifunk/stratum/engine/math"
	"github.com/spaghettifunk/stratum/engine/raster"
	"github.com/spaghettifunk/stratum/engine/slicing"
)

const (
	JobExtension = ".sjob"
	SLCExtension = ".slc"

	partSuffix = ".part"
)

// Settings describe the job handed to a target before the first layer.
type Settings struct {
	Name           string
	Description    string
	ResolutionX    int
	ResolutionY    int
	PixelSize      float64
	LayerThickness float64
	LayerCount     int
	FillRule       raster.FillRule
	// Extents of the sliced geometry, written to the SLC header.
	Extents m.Extents3D
}

// Target is the destination of a slicing run. It is either a *BitmapExport
// or a *VectorExport; no other implementations exist.
type Target interface {
	// Begin prepares the output for a run.
	Begin(settings Settings) error
	// ExportLayer consumes the slice of one instance at layer l, sampled at
	// height z. Layers arrive per instance in ascending order.
	ExportLayer(l int, z float64, slice *slicing.Slice) error
	// Finish completes the output file.
	Finish() error
	// Abort discards everything written so far.
	Abort() error

	Path() string
	target()
}

// NewTarget picks the target for path by its extension.
func NewTarget(path string) (Target, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case JobExtension:
		return &BitmapExport{path: path}, nil
	case SLCExtension:
		return &VectorExport{path: path}, nil
	}
	return nil, fmt.Errorf("export to '%s': %w", path, core.ErrUnknownFormat)
}

/**
 * @brief Composites every instance into a master job and writes it on Finish.
 * Each layer contribution is rasterised, unioned into the stored layer and
 * compressed again, so only one layer is ever uncompressed.
 */
type BitmapExport struct {
	path string

	job      *MasterJob
	renderer *raster.Renderer
	scratch  *raster.Bitmap
}

func (b *BitmapExport) target() {}

func (b *BitmapExport) Path() string { return b.path }

// Job returns the master job of the current run, or nil outside a run.
func (b *BitmapExport) Job() *MasterJob { return b.job }

func (b *BitmapExport) Begin(s Settings) error {
	b.job = NewMasterJob(s.ResolutionX, s.ResolutionY)
	b.job.Name = s.Name
	b.job.Description = s.Description
	b.job.PixelSize = s.PixelSize
	b.job.LayerThickness = s.LayerThickness
	b.job.ClearAll(s.LayerCount)

	b.renderer = raster.NewRenderer(s.ResolutionX, s.ResolutionY, s.PixelSize, s.FillRule)
	b.scratch = b.renderer.NewBitmap()
	return nil
}

func (b *BitmapExport) ExportLayer(l int, z float64, slice *slicing.Slice) error {
	if slice.IsEmpty() {
		return nil
	}
	b.renderer.Render(slice.Path(), b.scratch, nil)

	if err := b.job.SetCurrentSlice(l); err != nil {
		return err
	}
	master, err := b.job.InflateCurrentSlice()
	if err != nil {
		return err
	}
	if err := master.Union(b.scratch); err != nil {
		return err
	}
	return b.job.CrushCurrentSlice()
}

func (b *BitmapExport) Finish() error {
	defer b.release()
	return writeAtomic(b.path, func(w *bufio.Writer) error {
		_, err := b.job.WriteTo(w)
		return err
	})
}

func (b *BitmapExport) Abort() error {
	b.release()
	return nil
}

func (b *BitmapExport) release() {
	b.job = nil
	b.renderer = nil
	b.scratch = nil
}

/**
 * @brief Streams every instance's contours to an SLC file.
 * Records are written as layers arrive; the file is moved into place on
 * Finish and removed on Abort.
 */
type VectorExport struct {
	path string

	file   *os.File
	writer *SLCWriter
}

func (v *VectorExport) target() {}

func (v *VectorExport) Path() string { return v.path }

func (v *VectorExport) Begin(s Settings) error {
	f, err := os.Create(v.path + partSuffix)
	if err != nil {
		return fmt.Errorf("create '%s': %w", v.path, err)
	}
	v.file = f
	v.writer = NewSLCWriter(f)
	if err := v.writer.WriteHeader(s.Extents, s.LayerThickness); err != nil {
		return errors.Join(err, v.Abort())
	}
	return nil
}

func (v *VectorExport) ExportLayer(l int, z float64, slice *slicing.Slice) error {
	return v.writer.WriteSlice(z, slice)
}

func (v *VectorExport) Finish() error {
	if err := v.writer.WriteTerminator(); err != nil {
		return errors.Join(err, v.Abort())
	}
	err := v.file.Close()
	v.file, v.writer = nil, nil
	if err != nil {
		os.Remove(v.path + partSuffix)
		return err
	}
	return os.Rename(v.path+partSuffix, v.path)
}

func (v *VectorExport) Abort() error {
	if v.file == nil {
		return nil
	}
	v.file.Close()
	v.file, v.writer = nil, nil
	if err := os.Remove(v.path + partSuffix); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// writeAtomic writes to path.part and renames it over path once write
// succeeded.
func writeAtomic(path string, write func(w *bufio.Writer) error) error {
	part := path + partSuffix
	f, err := os.Create(part)
	if err != nil {
		return fmt.Errorf("create '%s': %w", path, err)
	}
	w := bufio.NewWriter(f)
	if err := write(w); err != nil {
		f.Close()
		os.Remove(part)
		return fmt.Errorf("write '%s': %w", path, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(part)
		return fmt.Errorf("write '%s': %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(part)
		return fmt.Errorf("close '%s': %w", path, err)
	}
	return os.Rename(part, path)
}
