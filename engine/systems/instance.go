package systems

import (
	"github.com/google/uuid"

	"github.com/spaghettifunk/stratum/engine/assets"
	"github.com/spaghettifunk/stratum/engine/math"
	"github.com/spaghettifunk/stratum/engine/slicing"
)

// Instance is one placement of a mesh in the build volume. The mesh is
// shared; the transform and the baked geometry belong to the instance.
type Instance struct {
	ID   uuid.UUID
	Mesh *assets.Mesh

	transform *math.Transform

	bounds           math.Extents3D
	boundsGeneration uint32

	baked []math.Triangle
	slice *slicing.Slice
}

func newInstance(mesh *assets.Mesh, transform *math.Transform) *Instance {
	inst := &Instance{
		ID:        uuid.New(),
		Mesh:      mesh,
		transform: transform,
	}
	inst.updateBounds()
	return inst
}

func (i *Instance) Position() math.Vec3 { return i.transform.Position }
func (i *Instance) Rotation() math.Vec3 { return i.transform.Rotation }
func (i *Instance) Scale() math.Vec3 { return i.transform.Scale }

func (i *Instance) SetPosition(position math.Vec3) {
	i.transform.SetPosition(position)
	i.updateBounds()
}

func (i *Instance) Translate(translation math.Vec3) {
	i.transform.Translate(translation)
	i.updateBounds()
}

// SetRotation takes Euler angles in degrees.
func (i *Instance) SetRotation(rotation math.Vec3) {
	i.transform.SetRotation(rotation)
	i.updateBounds()
}

func (i *Instance) SetScale(scale math.Vec3) {
	i.transform.SetScale(scale)
	i.updateBounds()
}

func (i *Instance) SetPositionRotationScale(position, rotation, scale math.Vec3) {
	i.transform.SetPositionRotationScale(position, rotation, scale)
	i.updateBounds()
}

// Bounds returns the world space bounding box. It is refreshed when the mesh
// was reloaded since the last transform change.
func (i *Instance) Bounds() math.Extents3D {
	if i.Mesh.Generation() != i.boundsGeneration {
		i.updateBounds()
	}
	return i.bounds
}

func (i *Instance) updateBounds() {
	i.boundsGeneration = i.Mesh.Generation()
	i.bounds = math.TriangleExtents(i.Mesh.Triangles(), i.transform.GetLocal())
}

// DropToFloor moves the instance vertically so that it rests on z = 0.
func (i *Instance) DropToFloor() {
	b := i.Bounds()
	if b.IsEmpty() {
		return
	}
	i.Translate(math.NewVec3(0, 0, -b.Min.Z))
}

// InLayer reports whether layer l of the given thickness can intersect the
// instance: l*t must lie in [minZ - t/2, maxZ].
func (i *Instance) InLayer(l int, thickness float64) bool {
	b := i.Bounds()
	if b.IsEmpty() {
		return false
	}
	base := float64(l) * thickness
	return base <= float64(b.Max.Z) && base >= float64(b.Min.Z)-0.5*thickness
}

// Bake stores the world space triangles until Unbake is called.
func (i *Instance) Bake() {
	if i.baked == nil {
		i.baked = i.worldTriangles()
	}
}

// Unbake drops the baked geometry and the active slice.
func (i *Instance) Unbake() {
	i.baked = nil
	i.slice = nil
}

func (i *Instance) IsBaked() bool {
	return i.baked != nil
}

// GenerateSlice intersects the instance with the plane at z and keeps the
// result as the active slice, replacing the previous one. An instance that
// is not baked is transformed for this call only.
func (i *Instance) GenerateSlice(z float64) *slicing.Slice {
	tris := i.baked
	if tris == nil {
		tris = i.worldTriangles()
	}
	i.slice = slicing.Generate(tris, z)
	return i.slice
}

// ActiveSlice returns the slice from the last GenerateSlice call, or nil.
func (i *Instance) ActiveSlice() *slicing.Slice {
	return i.slice
}

func (i *Instance) worldTriangles() []math.Triangle {
	tris := math.TriangleTransform(i.Mesh.Triangles(), i.transform.GetLocal())
	// A mirroring scale turns the winding inside out; restore it so the
	// normals keep pointing outwards.
	s := i.transform.Scale
	if s.X*s.Y*s.Z < 0 {
		for n := range tris {
			tris[n][1], tris[n][2] = tris[n][2], tris[n][1]
		}
	}
	return tris
}
