package systems

import (
	"errors"

	"github.com/spaghettifunk/stratum/engine/assets"
	"github.com/spaghettifunk/stratum/engine/raster"
)

// SystemManager owns the long lived state of a session with one project: the
// mesh library, the layout placed from it and the shared drawing surface.
type SystemManager struct {
	Library *assets.MeshLibrary
	Layout  *Layout
	Surface *raster.Surface
}

func NewSystemManager(volume BuildVolume) *SystemManager {
	library := assets.NewMeshLibrary()
	return &SystemManager{
		Library: library,
		Layout:  NewLayout(library, volume),
		Surface: raster.NewSurface(),
	}
}

// Shutdown removes every instance, which unloads their meshes, and stops
// watching mesh files.
func (sm *SystemManager) Shutdown() error {
	return errors.Join(sm.Layout.Clear(), sm.Library.Shutdown())
}
