package math

// NewExtentsEmpty returns inverted extents that any point will grow.
func NewExtentsEmpty() Extents3D {
	return Extents3D{
		Min: Vec3{K_INFINITY, K_INFINITY, K_INFINITY},
		Max: Vec3{-K_INFINITY, -K_INFINITY, -K_INFINITY},
	}
}

// IsEmpty reports whether no point was ever added to e.
func (e Extents3D) IsEmpty() bool {
	return e.Min.X > e.Max.X || e.Min.Y > e.Max.Y || e.Min.Z > e.Max.Z
}

// Grow returns the extents enlarged to contain p.
func (e Extents3D) Grow(p Vec3) Extents3D {
	e.Min.X = min(e.Min.X, p.X)
	e.Min.Y = min(e.Min.Y, p.Y)
	e.Min.Z = min(e.Min.Z, p.Z)
	e.Max.X = max(e.Max.X, p.X)
	e.Max.Y = max(e.Max.Y, p.Y)
	e.Max.Z = max(e.Max.Z, p.Z)
	return e
}

// Size returns the edge lengths of the box, zero for empty extents.
func (e Extents3D) Size() Vec3 {
	if e.IsEmpty() {
		return NewVec3Zero()
	}
	return e.Max.Sub(e.Min)
}

// Overlaps2D reports whether the XY footprints of both boxes intersect.
func (e Extents3D) Overlaps2D(other Extents3D) bool {
	return e.Min.X < other.Max.X && e.Max.X > other.Min.X &&
		e.Min.Y < other.Max.Y && e.Max.Y > other.Min.Y
}

// Normal returns the unit face normal of the triangle, following the
// counter-clockwise vertex order.
func (t Triangle) Normal() Vec3 {
	edge1 := t[1].Sub(t[0])
	edge2 := t[2].Sub(t[0])
	return edge1.Cross(edge2).Normalized()
}

// TriangleTransform returns a copy of the triangle list with every vertex
// transformed by mt.
func TriangleTransform(tris []Triangle, mt Mat4) []Triangle {
	out := make([]Triangle, len(tris))
	for i, t := range tris {
		out[i] = Triangle{t[0].Transform(mt), t[1].Transform(mt), t[2].Transform(mt)}
	}
	return out
}

// TriangleExtents returns the bounding box of every vertex of tris after
// transforming them by mt.
func TriangleExtents(tris []Triangle, mt Mat4) Extents3D {
	e := NewExtentsEmpty()
	for _, t := range tris {
		for _, v := range t {
			e = e.Grow(v.Transform(mt))
		}
	}
	return e
}
