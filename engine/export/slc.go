package export

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	m "github.com/spaghettifunk/stratum/engine/math"
	"github.com/spaghettifunk/stratum/engine/slicing"
)

const (
	slcReservedSize = 256
	slcTerminator   = uint32(0xFFFFFFFF)
)

// SLCWriter streams contours in the SLC 2.0 layout. Values are little endian
// float32 and uint32.
type SLCWriter struct {
	w   *bufio.Writer
	buf []byte
}

func NewSLCWriter(w io.Writer) *SLCWriter {
	return &SLCWriter{w: bufio.NewWriter(w)}
}

// WriteHeader writes the ASCII header, the reserved block and a sample table
// with a single entry for the whole part.
func (s *SLCWriter) WriteHeader(extents m.Extents3D, thickness float64) error {
	if extents.IsEmpty() {
		extents = m.Extents3D{}
	}
	header := fmt.Sprintf("-SLCVER 2.0 -UNIT MM -PACKAGE stratum -EXTENTS %g,%g %g,%g %g,%g\r\n\x1a",
		extents.Min.X, extents.Max.X, extents.Min.Y, extents.Max.Y, extents.Min.Z, extents.Max.Z)
	s.buf = append(s.buf[:0], header...)
	s.buf = append(s.buf, make([]byte, slcReservedSize)...)

	// sample table: size, then one entry of min z, thickness, line width
	// compensation and a reserved float. The entry is 16 bytes as in SLC 2.0,
	// not a 12 byte triple.
	s.buf = append(s.buf, 1)
	s.buf = appendFloat32(s.buf, 0)
	s.buf = appendFloat32(s.buf, float32(thickness))
	s.buf = appendFloat32(s.buf, 0)
	s.buf = appendFloat32(s.buf, 0)
	_, err := s.w.Write(s.buf)
	return err
}

// WriteSlice writes one layer record. Every loop is closed explicitly by
// repeating its first point.
func (s *SLCWriter) WriteSlice(z float64, slice *slicing.Slice) error {
	le := binary.LittleEndian
	s.buf = appendFloat32(s.buf[:0], float32(z))
	s.buf = le.AppendUint32(s.buf, uint32(len(slice.Loops)))
	for _, loop := range slice.Loops {
		s.buf = le.AppendUint32(s.buf, uint32(len(loop)+1))
		s.buf = le.AppendUint32(s.buf, 0)
		for _, p := range loop {
			s.buf = appendFloat32(s.buf, float32(p.X))
			s.buf = appendFloat32(s.buf, float32(p.Y))
		}
		if len(loop) > 0 {
			s.buf = appendFloat32(s.buf, float32(loop[0].X))
			s.buf = appendFloat32(s.buf, float32(loop[0].Y))
		}
	}
	_, err := s.w.Write(s.buf)
	return err
}

// WriteTerminator ends the record stream and flushes the writer.
func (s *SLCWriter) WriteTerminator() error {
	s.buf = appendFloat32(s.buf[:0], 0)
	s.buf = binary.LittleEndian.AppendUint32(s.buf, slcTerminator)
	if _, err := s.w.Write(s.buf); err != nil {
		return err
	}
	return s.w.Flush()
}

func appendFloat32(b []byte, f float32) []byte {
	return binary.LittleEndian.AppendUint32(b, math.Float32bits(f))
}
