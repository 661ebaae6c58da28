package assets

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/stratum/engine/core"
)

const triangleOBJ = "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"

const quadOBJ = "v 0 0 0\nv 1 0 0\nv 1 1 0\nv 0 1 0\nf 1 2 3 4\n"

func init() {
	core.SetLogOutput(io.Discard)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestAcquireSharesMeshByPath(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "tri.obj", triangleOBJ)

	ml := NewMeshLibrary()
	defer ml.Shutdown()

	a, err := ml.Acquire(path)
	require.NoError(t, err)
	b, err := ml.Acquire(filepath.Join(dir, ".", "tri.obj"))
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Equal(t, "tri", a.Name)
	assert.Len(t, a.Triangles(), 1)
	assert.Equal(t, 1, ml.Count())
	assert.Equal(t, uint32(2), ml.References(path))

	require.NoError(t, ml.Release(a))
	assert.Equal(t, 1, ml.Count())
	require.NoError(t, ml.Release(b))
	assert.Equal(t, 0, ml.Count())

	assert.ErrorIs(t, ml.Release(a), core.ErrMeshNotFound)
}

func TestAcquireErrors(t *testing.T) {
	dir := t.TempDir()
	ml := NewMeshLibrary()
	defer ml.Shutdown()

	_, err := ml.Acquire(filepath.Join(dir, "missing.stl"))
	assert.ErrorIs(t, err, core.ErrMeshNotFound)

	path := writeFile(t, dir, "model.3mf", "")
	_, err = ml.Acquire(path)
	assert.ErrorIs(t, err, core.ErrUnsupportedMesh)

	assert.Equal(t, 0, ml.Count())
}

func TestWatchReloadsChangedMesh(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "part.obj", triangleOBJ)

	ml := NewMeshLibrary()
	defer ml.Shutdown()
	require.NoError(t, ml.Watch())

	mesh, err := ml.Acquire(path)
	require.NoError(t, err)
	before := mesh.Triangles()

	require.NoError(t, os.WriteFile(path, []byte(quadOBJ), 0o644))

	// A write may be observed half way through, so wait for the event that
	// carries the complete file.
	deadline := time.After(5 * time.Second)
	for len(mesh.Triangles()) != 2 {
		select {
		case e := <-ml.Events():
			assert.Equal(t, mesh.Path, e.Path)
		case <-deadline:
			t.Fatal("mesh was not reloaded")
		}
	}
	assert.GreaterOrEqual(t, mesh.Generation(), uint32(1))
	assert.Len(t, before, 1, "earlier triangle lists are never modified")
}
