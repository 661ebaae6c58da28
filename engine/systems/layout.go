package systems

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/spaghettifunk/stratum/engine/assets"
	"github.com/spaghettifunk/stratum/engine/core"
	m "github.com/spaghettifunk/stratum/engine/math"
)

// duplicateSpacing is the gap in millimetres between a duplicated instance
// and its neighbours.
const duplicateSpacing = 1.0

/**
 * @brief Holds the instances placed in a build volume.
 * Meshes are acquired from the library when an instance is added and
 * released when it is removed, so a mesh stays loaded exactly as long as an
 * instance uses it. Instances keep the order in which they were added.
 */
type Layout struct {
	Volume BuildVolume

	library   *assets.MeshLibrary
	instances []*Instance
}

func NewLayout(library *assets.MeshLibrary, volume BuildVolume) *Layout {
	return &Layout{
		Volume:  volume,
		library: library,
	}
}

// Library returns the mesh library the layout acquires from.
func (l *Layout) Library() *assets.MeshLibrary {
	return l.library
}

/**
 * @brief Places a new instance of the mesh stored at path.
 * The mesh is loaded on first use and shared afterwards.
 *
 * @param path The mesh source file.
 * @return The new instance, at the origin with identity rotation and scale.
 */
func (l *Layout) AddInstance(path string) (*Instance, error) {
	mesh, err := l.library.Acquire(path)
	if err != nil {
		return nil, fmt.Errorf("add instance of '%s': %w", path, err)
	}
	inst := newInstance(mesh, m.TransformCreate())
	l.instances = append(l.instances, inst)
	core.LogDebug("Added instance %s of '%s'.", inst.ID, mesh.Name)
	return inst, nil
}

// Get returns the instance with the given handle.
func (l *Layout) Get(id uuid.UUID) (*Instance, error) {
	for _, inst := range l.instances {
		if inst.ID == id {
			return inst, nil
		}
	}
	return nil, fmt.Errorf("instance %s: %w", id, core.ErrInstanceNotFound)
}

// Instances returns the instances in insertion order. The slice is a copy.
func (l *Layout) Instances() []*Instance {
	out := make([]*Instance, len(l.instances))
	copy(out, l.instances)
	return out
}

func (l *Layout) Len() int {
	return len(l.instances)
}

/**
 * @brief Removes an instance and releases its mesh.
 *
 * @param id The instance handle.
 * @return ErrInstanceNotFound if no such instance exists.
 */
func (l *Layout) Remove(id uuid.UUID) error {
	for n, inst := range l.instances {
		if inst.ID != id {
			continue
		}
		l.instances = append(l.instances[:n], l.instances[n+1:]...)
		inst.Unbake()
		return l.library.Release(inst.Mesh)
	}
	return fmt.Errorf("remove instance %s: %w", id, core.ErrInstanceNotFound)
}

// Clear removes every instance.
func (l *Layout) Clear() error {
	var first error
	for _, inst := range l.instances {
		inst.Unbake()
		if err := l.library.Release(inst.Mesh); err != nil && first == nil {
			first = err
		}
	}
	l.instances = nil
	return first
}

/**
 * @brief Adds a copy of an instance with the same rotation, scale and height.
 * The copy is placed on the last free spot of a grid spanning the build
 * area, with cells the size of the instance footprint plus a 1 mm gap. When
 * the plate is full it lands in the centre.
 *
 * @param id The instance to copy.
 * @return The new instance.
 */
func (l *Layout) Duplicate(id uuid.UUID) (*Instance, error) {
	src, err := l.Get(id)
	if err != nil {
		return nil, err
	}
	mesh, err := l.library.Acquire(src.Mesh.Path)
	if err != nil {
		return nil, fmt.Errorf("duplicate instance %s: %w", id, err)
	}

	b := src.Bounds()
	size := b.Size()
	xSize, ySize := float64(size.X), float64(size.Y)
	halfX, halfY := l.Volume.SizeX()/2, l.Volume.SizeY()/2

	spotX, spotY, found := 0.0, 0.0, false
	for x := -halfX + xSize/2; x <= halfX-xSize/2; x += xSize + duplicateSpacing {
		for y := -halfY + ySize/2; y <= halfY-ySize/2; y += ySize + duplicateSpacing {
			spot := m.Extents3D{
				Min: m.NewVec3(float32(x-xSize/2), float32(y-ySize/2), 0),
				Max: m.NewVec3(float32(x+xSize/2), float32(y+ySize/2), 0),
			}
			if l.footprintFree(spot) {
				spotX, spotY, found = x, y, true
			}
		}
	}
	if !found {
		core.LogWarn("No free spot for a copy of instance %s, placing it in the centre.", id)
	}

	inst := newInstance(mesh, m.TransformFromPositionRotationScale(src.Position(), src.Rotation(), src.Scale()))
	// move the footprint centre onto the chosen spot
	centreX := float64(b.Min.X+b.Max.X) / 2
	centreY := float64(b.Min.Y+b.Max.Y) / 2
	inst.Translate(m.NewVec3(float32(spotX-centreX), float32(spotY-centreY), 0))

	l.instances = append(l.instances, inst)
	return inst, nil
}

func (l *Layout) footprintFree(spot m.Extents3D) bool {
	for _, inst := range l.instances {
		b := inst.Bounds()
		if !b.IsEmpty() && b.Overlaps2D(spot) {
			return false
		}
	}
	return true
}

// DropToFloor rests the instance on the build plate.
func (l *Layout) DropToFloor(id uuid.UUID) error {
	inst, err := l.Get(id)
	if err != nil {
		return err
	}
	inst.DropToFloor()
	return nil
}

// Bounds returns the extents enclosing every instance.
func (l *Layout) Bounds() m.Extents3D {
	e := m.NewExtentsEmpty()
	for _, inst := range l.instances {
		b := inst.Bounds()
		if b.IsEmpty() {
			continue
		}
		e = e.Grow(b.Min).Grow(b.Max)
	}
	return e
}

// FitHeight sets the volume depth to the top of the tallest instance and
// returns it. The depth is left alone when the layout is empty.
func (l *Layout) FitHeight() float64 {
	b := l.Bounds()
	if b.IsEmpty() || b.Max.Z <= 0 {
		return l.Volume.Depth
	}
	l.Volume.Depth = float64(b.Max.Z)
	return l.Volume.Depth
}

// OutsideBuildArea returns the instances whose footprint is not fully inside
// the build area, or which reach below the plate or above the volume.
func (l *Layout) OutsideBuildArea() []*Instance {
	halfX, halfY := l.Volume.SizeX()/2, l.Volume.SizeY()/2
	var out []*Instance
	for _, inst := range l.instances {
		b := inst.Bounds()
		if b.IsEmpty() {
			continue
		}
		if float64(b.Min.X) < -halfX || float64(b.Max.X) > halfX ||
			float64(b.Min.Y) < -halfY || float64(b.Max.Y) > halfY ||
			b.Min.Z < 0 || float64(b.Max.Z) > l.Volume.Depth+1e-6 {
			out = append(out, inst)
		}
	}
	return out
}
