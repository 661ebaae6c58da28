package slicing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"seehuhn.de/go/geom/path"

	m "github.com/spaghettifunk/stratum/engine/math"
)

// box returns the twelve triangles of an axis aligned box, wound
// counter-clockwise when seen from outside.
func box(min, max m.Vec3) []m.Triangle {
	corner := func(i int) m.Vec3 {
		v := min
		if i&1 != 0 {
			v.X = max.X
		}
		if i&2 != 0 {
			v.Y = max.Y
		}
		if i&4 != 0 {
			v.Z = max.Z
		}
		return v
	}
	faces := [6][4]int{
		{0, 2, 3, 1}, // -z
		{4, 5, 7, 6}, // +z
		{0, 1, 5, 4}, // -y
		{2, 6, 7, 3}, // +y
		{0, 4, 6, 2}, // -x
		{1, 3, 7, 5}, // +x
	}
	tris := make([]m.Triangle, 0, 12)
	for _, f := range faces {
		a, b, c, d := corner(f[0]), corner(f[1]), corner(f[2]), corner(f[3])
		tris = append(tris, m.Triangle{a, b, c}, m.Triangle{a, c, d})
	}
	return tris
}

func TestCubeSliceIsSquare(t *testing.T) {
	tris := box(m.NewVec3(-1, -1, -1), m.NewVec3(1, 1, 1))

	s := Generate(tris, 0)

	require.Len(t, s.Loops, 1)
	assert.Equal(t, 0, s.Dropped)
	assert.InDelta(t, 4.0, s.Loops[0].Area(), 1e-9, "outer loop runs counter-clockwise")
	for _, p := range s.Loops[0] {
		assert.InDelta(t, 1.0, max(abs(p.X), abs(p.Y)), 1e-9)
	}
}

func TestPlaneMissesGeometry(t *testing.T) {
	tris := box(m.NewVec3(-1, -1, -1), m.NewVec3(1, 1, 1))

	above := Generate(tris, 2)
	assert.True(t, above.IsEmpty())
	assert.Equal(t, 0, above.Dropped)

	below := Generate(tris, -3)
	assert.True(t, below.IsEmpty())
}

func TestPlaneThroughBottomFaceIsEmpty(t *testing.T) {
	tris := box(m.NewVec3(0, 0, 0), m.NewVec3(1, 1, 1))

	assert.True(t, Generate(tris, 0).IsEmpty())
}

func TestPlaneThroughTopFaceGivesOutline(t *testing.T) {
	tris := box(m.NewVec3(0, 0, 0), m.NewVec3(2, 3, 1))

	s := Generate(tris, 1)

	require.Len(t, s.Loops, 1)
	assert.Len(t, s.Loops[0], 4)
	assert.InDelta(t, 6.0, s.Loops[0].Area(), 1e-9)
}

func TestOpenMeshChainsAreDropped(t *testing.T) {
	tris := box(m.NewVec3(-1, -1, -1), m.NewVec3(1, 1, 1))
	// remove the +x face
	tris = tris[:10]

	s := Generate(tris, 0)

	assert.Empty(t, s.Loops)
	assert.Greater(t, s.Dropped, 0)
}

func TestTwoBoxesGiveTwoLoops(t *testing.T) {
	tris := box(m.NewVec3(0, 0, 0), m.NewVec3(1, 1, 1))
	tris = append(tris, box(m.NewVec3(3, 0, 0), m.NewVec3(4, 2, 1))...)

	s := Generate(tris, 0.5)

	require.Len(t, s.Loops, 2)
	total := s.Loops[0].Area() + s.Loops[1].Area()
	assert.InDelta(t, 3.0, total, 1e-9)
}

func TestInvertedWindingGivesClockwiseLoop(t *testing.T) {
	tris := box(m.NewVec3(-1, -1, -1), m.NewVec3(1, 1, 1))
	for i := range tris {
		tris[i][1], tris[i][2] = tris[i][2], tris[i][1]
	}

	s := Generate(tris, 0)

	require.Len(t, s.Loops, 1)
	assert.InDelta(t, -4.0, s.Loops[0].Area(), 1e-9)
}

func TestPathClosesEveryLoop(t *testing.T) {
	tris := box(m.NewVec3(0, 0, 0), m.NewVec3(1, 1, 1))
	tris = append(tris, box(m.NewVec3(3, 0, 0), m.NewVec3(4, 2, 1))...)

	s := Generate(tris, 0.5)
	p := s.Path()

	moves, closes := 0, 0
	for _, cmd := range p.Cmds {
		switch cmd {
		case path.CmdMoveTo:
			moves++
		case path.CmdClose:
			closes++
		}
	}
	assert.Equal(t, 2, moves)
	assert.Equal(t, 2, closes)
	assert.Equal(t, s.PointCount(), len(p.Coords))
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
