package loaders

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/stratum/engine/math"
)

const asciiTetrahedron = `solid tetra
facet normal 0 0 -1
  outer loop
    vertex 0 0 0
    vertex 0 1 0
    vertex 1 0 0
  endloop
endfacet
facet normal 0 -1 0
  outer loop
    vertex 0 0 0
    vertex 1 0 0
    vertex 0 0 1
  endloop
endfacet
facet normal -1 0 0
  outer loop
    vertex 0 0 0
    vertex 0 0 1
    vertex 0 1 0
  endloop
endfacet
facet normal 1 1 1
  outer loop
    vertex 1 0 0
    vertex 0 1 0
    vertex 0 0 1
  endloop
endfacet
endsolid tetra
`

func TestSTLLoaderASCII(t *testing.T) {
	tris, err := (&STLLoader{}).Load(strings.NewReader(asciiTetrahedron))
	require.NoError(t, err)
	require.Len(t, tris, 4)
	assert.Equal(t, math.NewVec3(0, 1, 0), tris[0][1])
	assert.Equal(t, math.NewVec3(0, 0, 1), tris[3][2])
}

func TestOBJLoaderTriangulatesFaces(t *testing.T) {
	src := `# unit square as a quad plus a triangle with relative indices
o square
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vn 0 0 1
f 1/1/1 2/2/1 3/3/1 4/4/1
f -4 -3 -1
`
	tris, err := (&OBJLoader{}).Load(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, tris, 3)
	assert.Equal(t, math.Triangle{
		math.NewVec3(0, 0, 0), math.NewVec3(1, 0, 0), math.NewVec3(1, 1, 0),
	}, tris[0])
	assert.Equal(t, math.Triangle{
		math.NewVec3(0, 0, 0), math.NewVec3(1, 1, 0), math.NewVec3(0, 1, 0),
	}, tris[1])
	assert.Equal(t, math.NewVec3(0, 1, 0), tris[2][2])
}

func TestOBJLoaderRejectsBadIndex(t *testing.T) {
	_, err := (&OBJLoader{}).Load(strings.NewReader("v 0 0 0\nv 1 0 0\nf 1 2 3\n"))
	assert.Error(t, err)

	_, err = (&OBJLoader{}).Load(strings.NewReader("v 0 0 0\nf 0 1 1\n"))
	assert.Error(t, err)
}

func TestForExtension(t *testing.T) {
	assert.IsType(t, &STLLoader{}, ForExtension(".stl"))
	assert.IsType(t, &OBJLoader{}, ForExtension(".obj"))
	assert.Nil(t, ForExtension(".3mf"))
}
