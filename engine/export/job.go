package export

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"

	"github.com/spaghettifunk/stratum/engine/core"
	"github.com/spaghettifunk/stratum/engine/raster"
)

const (
	jobMagic   = "SJOB"
	jobVersion = uint16(1)
)

/**
 * @brief The in-memory bitmap job: one compressed record per layer.
 * Only the current slice is ever held uncompressed. A record that was never
 * written decodes to an all dark layer.
 */
type MasterJob struct {
	Name           string
	Description    string
	Width          int
	Height         int
	PixelSize      float64
	LayerThickness float64

	records [][]byte
	current int
	working *raster.Bitmap
}

func NewMasterJob(width, height int) *MasterJob {
	return &MasterJob{
		Width:   width,
		Height:  height,
		current: -1,
	}
}

// ClearAll drops every record and sizes the job to n dark layers. The layer
// count is fixed until the next ClearAll.
func (j *MasterJob) ClearAll(n int) {
	j.records = make([][]byte, n)
	j.current = -1
	j.working = nil
}

func (j *MasterJob) LayerCount() int {
	return len(j.records)
}

// SetCurrentSlice selects the layer that InflateCurrentSlice and
// CrushCurrentSlice work on.
func (j *MasterJob) SetCurrentSlice(l int) error {
	if l < 0 || l >= len(j.records) {
		return fmt.Errorf("layer %d of %d: %w", l, len(j.records), core.ErrLayerOutOfRange)
	}
	j.current = l
	return nil
}

// InflateCurrentSlice decodes the current layer into the working image and
// returns it. The image is reused by the next call.
func (j *MasterJob) InflateCurrentSlice() (*raster.Bitmap, error) {
	if j.current < 0 {
		return nil, fmt.Errorf("no current slice: %w", core.ErrLayerOutOfRange)
	}
	if j.working == nil {
		j.working = raster.NewBitmap(j.Width, j.Height)
	}
	if err := DecodeRLE(j.records[j.current], j.working); err != nil {
		return nil, fmt.Errorf("layer %d: %w", j.current, err)
	}
	return j.working, nil
}

// CrushCurrentSlice compresses the working image back into the current
// layer, replacing its record.
func (j *MasterJob) CrushCurrentSlice() error {
	if j.current < 0 || j.working == nil {
		return fmt.Errorf("no inflated slice: %w", core.ErrLayerOutOfRange)
	}
	j.records[j.current] = EncodeRLE(j.working)
	return nil
}

// Decode returns a fresh image of layer l.
func (j *MasterJob) Decode(l int) (*raster.Bitmap, error) {
	if l < 0 || l >= len(j.records) {
		return nil, fmt.Errorf("layer %d of %d: %w", l, len(j.records), core.ErrLayerOutOfRange)
	}
	img := raster.NewBitmap(j.Width, j.Height)
	if err := DecodeRLE(j.records[l], img); err != nil {
		return nil, fmt.Errorf("layer %d: %w", l, err)
	}
	return img, nil
}

// Encode replaces layer l with img.
func (j *MasterJob) Encode(l int, img *raster.Bitmap) error {
	if l < 0 || l >= len(j.records) {
		return fmt.Errorf("layer %d of %d: %w", l, len(j.records), core.ErrLayerOutOfRange)
	}
	if img.Width != j.Width || img.Height != j.Height {
		return fmt.Errorf("layer %d is %dx%d, job is %dx%d: %w", l, img.Width, img.Height, j.Width, j.Height, core.ErrSizeMismatch)
	}
	j.records[l] = EncodeRLE(img)
	return nil
}

// WriteTo serializes the job. Layers that were never written are stored as
// a single dark run.
func (j *MasterJob) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	bw := bufio.NewWriter(cw)
	le := binary.LittleEndian

	var buf []byte
	buf = append(buf, jobMagic...)
	buf = le.AppendUint16(buf, jobVersion)
	for _, s := range []string{
		j.Name,
		j.Description,
		strconv.FormatFloat(j.PixelSize, 'g', -1, 64),
		strconv.FormatFloat(j.LayerThickness, 'g', -1, 64),
	} {
		buf = le.AppendUint32(buf, uint32(len(s)))
		buf = append(buf, s...)
	}
	buf = le.AppendUint32(buf, uint32(j.Width))
	buf = le.AppendUint32(buf, uint32(j.Height))
	buf = le.AppendUint32(buf, uint32(len(j.records)))
	if _, err := bw.Write(buf); err != nil {
		return cw.n, err
	}

	var dark []byte
	for _, rec := range j.records {
		if rec == nil {
			if dark == nil {
				dark = EncodeRLE(raster.NewBitmap(j.Width, j.Height))
			}
			rec = dark
		}
		var size [4]byte
		le.PutUint32(size[:], uint32(len(rec)))
		if _, err := bw.Write(size[:]); err != nil {
			return cw.n, err
		}
		if _, err := bw.Write(rec); err != nil {
			return cw.n, err
		}
	}
	err := bw.Flush()
	return cw.n, err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
