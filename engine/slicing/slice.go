// Package slicing intersects triangle meshes with horizontal planes and joins
// the resulting segments into closed polygon loops.
package slicing

import (
	"math"

	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/vec"

	m "github.com/spaghettifunk/stratum/engine/math"
)

// JoinTolerance is the distance in millimetres under which two segment
// endpoints are considered the same point.
const JoinTolerance = 1e-5

// Loop is a closed polygon. The closing edge from the last point back to the
// first is implicit.
type Loop []vec.Vec2

// Area returns the signed area of the loop, positive for counter-clockwise
// loops seen from +Z.
func (l Loop) Area() float64 {
	a := 0.0
	for i := range l {
		j := (i + 1) % len(l)
		a += l[i].X*l[j].Y - l[j].X*l[i].Y
	}
	return a / 2
}

// Slice is the cross-section of a mesh at one height.
type Slice struct {
	Z     float64
	Loops []Loop

	// Dropped counts segments that could not be joined into a closed loop,
	// which happens for meshes that are not watertight.
	Dropped int
}

// IsEmpty reports whether the plane missed the geometry.
func (s *Slice) IsEmpty() bool {
	return s == nil || len(s.Loops) == 0
}

// Path converts the loops to a closed path for rasterisation.
func (s *Slice) Path() *path.Data {
	p := &path.Data{}
	if s == nil {
		return p
	}
	for _, loop := range s.Loops {
		if len(loop) < 3 {
			continue
		}
		p = p.MoveTo(loop[0])
		for _, pt := range loop[1:] {
			p = p.LineTo(pt)
		}
		p = p.Close()
	}
	return p
}

// PointCount is the total number of loop vertices in the slice.
func (s *Slice) PointCount() int {
	n := 0
	for _, loop := range s.Loops {
		n += len(loop)
	}
	return n
}

type segment struct {
	a, b vec.Vec2
}

type point3 struct {
	x, y, z float64
}

// Generate intersects the world-space triangles with the plane at height z.
// Triangles that only touch the plane in a point, or whose crossing collapses
// to a point, contribute nothing.
func Generate(tris []m.Triangle, z float64) *Slice {
	segs := make([]segment, 0, 64)
	for _, t := range tris {
		if s, ok := intersect(t, z); ok {
			segs = append(segs, s)
		}
	}
	loops, dropped := join(segs)
	return &Slice{Z: z, Loops: loops, Dropped: dropped}
}

func intersect(t m.Triangle, z float64) (segment, bool) {
	var p [3]point3
	var below [3]bool
	nBelow := 0
	for i, v := range t {
		p[i] = point3{float64(v.X), float64(v.Y), float64(v.Z)}
		// Vertices on the plane count as above, so an edge lying in the plane
		// is produced by exactly one of the two triangles sharing it.
		below[i] = p[i].z < z
		if below[i] {
			nBelow++
		}
	}
	if nBelow == 0 || nBelow == 3 {
		return segment{}, false
	}

	var pts [2]vec.Vec2
	k := 0
	for i := 0; i < 3; i++ {
		j := (i + 1) % 3
		if below[i] == below[j] {
			continue
		}
		lo, hi := p[i], p[j]
		if !below[i] {
			lo, hi = hi, lo
		}
		pts[k] = crossing(lo, hi, z)
		k++
	}

	a, b := pts[0], pts[1]
	if near(a, b) {
		return segment{}, false
	}

	// Orient the segment so the outward normal is on its right; outer
	// contours then run counter-clockwise.
	n := t.Normal()
	nx, ny := float64(n.X), float64(n.Y)
	d := b.Sub(a)
	if d.Y*nx-d.X*ny < 0 {
		a, b = b, a
	}
	return segment{a: a, b: b}, true
}

// crossing interpolates from the lower to the upper vertex, so that the two
// triangles sharing an edge compute bit-identical points.
func crossing(lo, hi point3, z float64) vec.Vec2 {
	t := (z - lo.z) / (hi.z - lo.z)
	return vec.Vec2{
		X: lo.x + (hi.x-lo.x)*t,
		Y: lo.y + (hi.y-lo.y)*t,
	}
}

func near(p, q vec.Vec2) bool {
	return math.Abs(p.X-q.X) <= JoinTolerance && math.Abs(p.Y-q.Y) <= JoinTolerance
}

type cell struct {
	x, y int64
}

func cellOf(p vec.Vec2) cell {
	return cell{int64(math.Floor(p.X / JoinTolerance)), int64(math.Floor(p.Y / JoinTolerance))}
}

// segmentIndex finds unused segments by either endpoint.
type segmentIndex struct {
	segs   []segment
	used   []bool
	starts map[cell][]int
	ends   map[cell][]int
}

func newSegmentIndex(segs []segment) *segmentIndex {
	idx := &segmentIndex{
		segs:   segs,
		used:   make([]bool, len(segs)),
		starts: make(map[cell][]int, len(segs)),
		ends:   make(map[cell][]int, len(segs)),
	}
	for i, s := range segs {
		ca, cb := cellOf(s.a), cellOf(s.b)
		idx.starts[ca] = append(idx.starts[ca], i)
		idx.ends[cb] = append(idx.ends[cb], i)
	}
	return idx
}

// next returns an unused segment continuing at p. Segments running the right
// way are preferred; a reversed one is accepted for meshes with inconsistent
// winding. The returned point is the far end of the segment.
func (idx *segmentIndex) next(p vec.Vec2) (vec.Vec2, bool) {
	if j := idx.lookup(idx.starts, p, func(s segment) vec.Vec2 { return s.a }); j >= 0 {
		idx.used[j] = true
		return idx.segs[j].b, true
	}
	if j := idx.lookup(idx.ends, p, func(s segment) vec.Vec2 { return s.b }); j >= 0 {
		idx.used[j] = true
		return idx.segs[j].a, true
	}
	return vec.Vec2{}, false
}

func (idx *segmentIndex) lookup(table map[cell][]int, p vec.Vec2, end func(segment) vec.Vec2) int {
	c := cellOf(p)
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			for _, j := range table[cell{c.x + dx, c.y + dy}] {
				if !idx.used[j] && near(end(idx.segs[j]), p) {
					return j
				}
			}
		}
	}
	return -1
}

func join(segs []segment) ([]Loop, int) {
	idx := newSegmentIndex(segs)
	var loops []Loop
	dropped := 0

	for i := range segs {
		if idx.used[i] {
			continue
		}
		idx.used[i] = true
		start := segs[i].a
		loop := Loop{start, segs[i].b}
		closed := false
		for {
			end := loop[len(loop)-1]
			if near(end, start) {
				closed = true
				break
			}
			pt, ok := idx.next(end)
			if !ok {
				break
			}
			loop = append(loop, pt)
		}

		segments := len(loop) - 1
		if closed && segments >= 3 {
			loops = append(loops, loop[:len(loop)-1])
			continue
		}
		dropped += segments
	}
	return loops, dropped
}
