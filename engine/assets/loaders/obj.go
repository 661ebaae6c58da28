package loaders

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spaghettifunk/stratum/engine/math"
)

// OBJLoader reads the geometry of Wavefront OBJ files. Only vertex positions
// and faces are used; polygons are triangulated as fans.
type OBJLoader struct{}

func (ol *OBJLoader) Load(r io.Reader) ([]math.Triangle, error) {
	var positions []math.Vec3
	var tris []math.Triangle

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "v":
			if len(fields) < 4 {
				return nil, fmt.Errorf("obj line %d: vertex needs three coordinates", lineNo)
			}
			var c [3]float32
			for i := 0; i < 3; i++ {
				f, err := strconv.ParseFloat(fields[i+1], 32)
				if err != nil {
					return nil, fmt.Errorf("obj line %d: %w", lineNo, err)
				}
				c[i] = float32(f)
			}
			positions = append(positions, math.NewVec3(c[0], c[1], c[2]))
		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("obj line %d: face needs at least three vertices", lineNo)
			}
			idx := make([]int, 0, len(fields)-1)
			for _, ref := range fields[1:] {
				i, err := objIndex(ref, len(positions))
				if err != nil {
					return nil, fmt.Errorf("obj line %d: %w", lineNo, err)
				}
				idx = append(idx, i)
			}
			for k := 1; k+1 < len(idx); k++ {
				tris = append(tris, math.Triangle{positions[idx[0]], positions[idx[k]], positions[idx[k+1]]})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return tris, nil
}

// objIndex resolves a face reference like "7", "7/1/3" or "-1" to a
// zero-based position index.
func objIndex(ref string, count int) (int, error) {
	if slash := strings.IndexByte(ref, '/'); slash >= 0 {
		ref = ref[:slash]
	}
	i, err := strconv.Atoi(ref)
	if err != nil {
		return 0, err
	}
	switch {
	case i > 0:
		i--
	case i < 0:
		i += count
	default:
		return 0, fmt.Errorf("vertex index 0 is not valid")
	}
	if i < 0 || i >= count {
		return 0, fmt.Errorf("vertex index %s out of range (%d vertices)", ref, count)
	}
	return i, nil
}
