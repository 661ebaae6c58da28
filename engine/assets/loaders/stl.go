package loaders

import (
	"bytes"
	"fmt"
	"io"

	"github.com/hschendel/stl"

	"github.com/spaghettifunk/stratum/engine/math"
)

// STLLoader reads binary and ASCII STL files.
type STLLoader struct{}

func (sl *STLLoader) Load(r io.Reader) ([]math.Triangle, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read stl: %w", err)
	}
	solid, err := stl.ReadAll(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to read stl: %w", err)
	}

	tris := make([]math.Triangle, len(solid.Triangles))
	for i, t := range solid.Triangles {
		for j, v := range t.Vertices {
			tris[i][j] = math.NewVec3(v[0], v[1], v[2])
		}
	}
	return tris, nil
}
