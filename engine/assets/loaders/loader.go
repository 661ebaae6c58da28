package loaders

import (
	"io"

	"github.com/spaghettifunk/stratum/engine/math"
)

// MeshLoader decodes a mesh source into a flat triangle soup.
type MeshLoader interface {
	Load(r io.Reader) ([]math.Triangle, error)
}

// ForExtension returns the loader registered for a lowercase file extension
// including the dot, or nil.
func ForExtension(ext string) MeshLoader {
	switch ext {
	case ".stl":
		return &STLLoader{}
	case ".obj":
		return &OBJLoader{}
	default:
		return nil
	}
}
