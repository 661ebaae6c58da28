package export

import (
	"encoding/binary"
	"fmt"

	"github.com/spaghettifunk/stratum/engine/core"
	"github.com/spaghettifunk/stratum/engine/raster"
)

// EncodeRLE compresses a layer into alternating dark and lit runs in
// row-major order. The first run is dark and may be empty; every run length
// is written as a uvarint.
func EncodeRLE(img *raster.Bitmap) []byte {
	out := make([]byte, 0, 64)
	lit := false
	run := uint64(0)
	for _, v := range img.Pix {
		if (v != raster.Dark) != lit {
			out = binary.AppendUvarint(out, run)
			lit = !lit
			run = 0
		}
		run++
	}
	if run > 0 {
		out = binary.AppendUvarint(out, run)
	}
	return out
}

// DecodeRLE expands a record produced by EncodeRLE into dst. An empty record
// decodes to an all dark image.
func DecodeRLE(record []byte, dst *raster.Bitmap) error {
	dst.Clear()
	if len(record) == 0 {
		return nil
	}
	total := uint64(len(dst.Pix))
	pos := uint64(0)
	lit := false
	for len(record) > 0 {
		run, n := binary.Uvarint(record)
		if n <= 0 {
			return fmt.Errorf("bad run length: %w", core.ErrCorruptRecord)
		}
		record = record[n:]
		if run > total-pos {
			return fmt.Errorf("run of %d overflows image of %d pixels: %w", run, total, core.ErrCorruptRecord)
		}
		if lit {
			for i := pos; i < pos+run; i++ {
				dst.Pix[i] = raster.Lit
			}
		}
		pos += run
		lit = !lit
	}
	if pos != total {
		return fmt.Errorf("record covers %d of %d pixels: %w", pos, total, core.ErrCorruptRecord)
	}
	return nil
}
