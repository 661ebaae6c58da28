package engine

import (
	"context"
	"encoding/binary"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/stratum/engine/assets"
	"github.com/spaghettifunk/stratum/engine/core"
	"github.com/spaghettifunk/stratum/engine/export"
	m "github.com/spaghettifunk/stratum/engine/math"
	"github.com/spaghettifunk/stratum/engine/raster"
	"github.com/spaghettifunk/stratum/engine/systems"
)

const unitCubeOBJ = `v 0 0 0
v 1 0 0
v 0 1 0
v 1 1 0
v 0 0 1
v 1 0 1
v 0 1 1
v 1 1 1
f 1 3 4 2
f 5 6 8 7
f 1 2 6 5
f 3 7 8 4
f 1 5 7 3
f 2 4 8 6
`

type fixture struct {
	dir    string
	mesh   string
	layout *systems.Layout
}

// newFixture builds a 20 x 20 mm plate at 0.5 mm pixels with ten layers of
// 0.1 mm.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	mesh := filepath.Join(dir, "cube.obj")
	require.NoError(t, os.WriteFile(mesh, []byte(unitCubeOBJ), 0o644))
	volume := systems.BuildVolume{
		ResolutionX:    40,
		ResolutionY:    40,
		PixelSize:      0.5,
		LayerThickness: 0.1,
		Depth:          1,
	}
	return &fixture{dir: dir, mesh: mesh, layout: systems.NewLayout(assets.NewMeshLibrary(), volume)}
}

// cube places a 2 x 2 x 1 mm box with its lower corner at (x, y, z).
func (f *fixture) cube(t *testing.T, x, y, z float32) *systems.Instance {
	t.Helper()
	inst, err := f.layout.AddInstance(f.mesh)
	require.NoError(t, err)
	inst.SetPositionRotationScale(m.NewVec3(x, y, z), m.NewVec3(0, 0, 0), m.NewVec3(2, 2, 1))
	return inst
}

func (f *fixture) session(t *testing.T, name string, options Options) (*Session, string) {
	t.Helper()
	path := filepath.Join(f.dir, name)
	target, err := export.NewTarget(path)
	require.NoError(t, err)
	return NewSession(f.layout, target, options), path
}

func readLayers(t *testing.T, path string) []*raster.Bitmap {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	le := binary.LittleEndian
	header := make([]byte, 6)
	_, err = io.ReadFull(f, header)
	require.NoError(t, err)
	require.Equal(t, "SJOB", string(header[:4]))
	for i := 0; i < 4; i++ {
		var n uint32
		require.NoError(t, binary.Read(f, le, &n))
		_, err := io.CopyN(io.Discard, f, int64(n))
		require.NoError(t, err)
	}
	var dims [3]uint32
	require.NoError(t, binary.Read(f, le, &dims))

	layers := make([]*raster.Bitmap, dims[2])
	for i := range layers {
		var size uint32
		require.NoError(t, binary.Read(f, le, &size))
		rec := make([]byte, size)
		_, err := io.ReadFull(f, rec)
		require.NoError(t, err)
		layers[i] = raster.NewBitmap(int(dims[0]), int(dims[1]))
		require.NoError(t, export.DecodeRLE(rec, layers[i]))
	}
	return layers
}

func drive(t *testing.T, s *Session) (Step, int) {
	t.Helper()
	steps := 0
	for {
		step := s.Advance()
		if step.Status != StatusProgress {
			return step, steps
		}
		steps++
		require.Less(t, steps, 10000)
	}
}

func TestProgressCountsEveryInstanceLayer(t *testing.T) {
	f := newFixture(t)
	f.cube(t, -4, -4, 0)
	f.cube(t, 2, 2, 5)
	s, _ := f.session(t, "out.sjob", Options{})

	step, steps := drive(t, s)

	require.Equal(t, StatusDone, step.Status, "err: %v", step.Err)
	assert.Equal(t, 20, steps)
	assert.Equal(t, Progress{Done: 20, Total: 20}, step.Progress)
	assert.Equal(t, StageIdle, s.Stage())
	assert.Equal(t, int64(20), s.Metrics().Units())

	// terminal step is sticky
	assert.Equal(t, step, s.Advance())
}

func TestBitmapExportUnionsInstances(t *testing.T) {
	f := newFixture(t)
	a := f.cube(t, -4, -4, 0)
	b := f.cube(t, 2, 2, 0)
	s, path := f.session(t, "out.sjob", Options{Name: "two cubes"})

	step, _ := drive(t, s)
	require.Equal(t, StatusDone, step.Status, "err: %v", step.Err)

	layers := readLayers(t, path)
	require.Len(t, layers, 10)
	for l, img := range layers {
		assert.Equal(t, 32, img.LitCount(), "layer %d", l)
	}
	assert.NoFileExists(t, path+".part")
	assert.False(t, a.IsBaked())
	assert.False(t, b.IsBaked())
}

func TestOutputDoesNotDependOnInstanceOrder(t *testing.T) {
	first := newFixture(t)
	first.cube(t, -4, -4, 0)
	first.cube(t, -5, -3, 0.3)
	s1, path1 := first.session(t, "first.sjob", Options{})
	step, _ := drive(t, s1)
	require.Equal(t, StatusDone, step.Status)

	second := newFixture(t)
	second.cube(t, -5, -3, 0.3)
	second.cube(t, -4, -4, 0)
	s2, path2 := second.session(t, "second.sjob", Options{})
	step, _ = drive(t, s2)
	require.Equal(t, StatusDone, step.Status)

	a, err := os.ReadFile(path1)
	require.NoError(t, err)
	b, err := os.ReadFile(path2)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestInstancesOutsideHeightRangeContributeNothing(t *testing.T) {
	f := newFixture(t)
	f.cube(t, -1, -1, -5)
	f.cube(t, -1, -1, 50)
	s, path := f.session(t, "out.sjob", Options{})

	step, _ := drive(t, s)
	require.Equal(t, StatusDone, step.Status)

	for _, img := range readLayers(t, path) {
		assert.Zero(t, img.LitCount())
	}
}

func TestCancelLeavesNoOutput(t *testing.T) {
	for _, name := range []string{"out.sjob", "out.slc"} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			inst := f.cube(t, -1, -1, 0)
			surface := raster.NewSurface()
			s, path := f.session(t, name, Options{Surface: surface})

			for i := 0; i < 3; i++ {
				require.Equal(t, StatusProgress, s.Advance().Status)
			}
			assert.NotEqual(t, raster.DefaultOwner, surface.Owner())
			s.Cancel()
			step := s.Advance()

			assert.Equal(t, StatusCancelled, step.Status)
			assert.Equal(t, Progress{Done: 3, Total: 10}, step.Progress)
			assert.NoError(t, step.Err)
			assert.NoFileExists(t, path)
			assert.NoFileExists(t, path+".part")
			assert.Equal(t, raster.DefaultOwner, surface.Owner())
			assert.False(t, inst.IsBaked())
			assert.Equal(t, StageIdle, s.Stage())
		})
	}
}

func TestBusySurfaceFailsRun(t *testing.T) {
	f := newFixture(t)
	f.cube(t, -1, -1, 0)
	surface := raster.NewSurface()
	restore, err := surface.MakeCurrent("another export")
	require.NoError(t, err)
	defer restore()
	s, path := f.session(t, "out.sjob", Options{Surface: surface})

	step := s.Advance()

	assert.Equal(t, StatusFailed, step.Status)
	assert.ErrorIs(t, step.Err, core.ErrSurfaceBusy)
	assert.NoFileExists(t, path)
	assert.Equal(t, "another export", surface.Owner())
}

func TestRunStopsWhenContextIsCancelled(t *testing.T) {
	f := newFixture(t)
	f.cube(t, -1, -1, 0)
	s, path := f.session(t, "out.slc", Options{})
	ctx, cancel := context.WithCancel(context.Background())

	var seen []Progress
	err := Run(ctx, s, ProgressFunc(func(p Progress) {
		seen = append(seen, p)
		if p.Done == 2 {
			cancel()
		}
	}))

	assert.ErrorIs(t, err, core.ErrCancelled)
	require.NotEmpty(t, seen)
	assert.Equal(t, 2, seen[len(seen)-1].Done)
	assert.NoFileExists(t, path)
	assert.NoFileExists(t, path+".part")
}

type slcRecord struct {
	z      float32
	loops  uint32
	points []uint32
}

func readSLC(t *testing.T, path string) []slcRecord {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	end := 0
	for i := 0; i+2 < len(data); i++ {
		if data[i] == '\r' && data[i+1] == '\n' && data[i+2] == 0x1a {
			end = i + 3
			break
		}
	}
	require.Positive(t, end)
	rest := data[end+256:]
	require.Equal(t, byte(1), rest[0])
	rest = rest[1+16:]

	le := binary.LittleEndian
	var records []slcRecord
	for {
		z := math.Float32frombits(le.Uint32(rest))
		n := le.Uint32(rest[4:])
		rest = rest[8:]
		if n == 0xFFFFFFFF {
			assert.Zero(t, z)
			break
		}
		rec := slcRecord{z: z, loops: n}
		for i := uint32(0); i < n; i++ {
			count := le.Uint32(rest)
			rec.points = append(rec.points, count)
			rest = rest[8+8*count:]
		}
		records = append(records, rec)
	}
	assert.Empty(t, rest, "terminator is the last record")
	return records
}

func TestVectorExportWritesEveryInstanceLayer(t *testing.T) {
	f := newFixture(t)
	f.cube(t, -4, -4, 0)
	f.cube(t, 2, 2, 0.5)
	s, path := f.session(t, "out.slc", Options{})

	step, _ := drive(t, s)
	require.Equal(t, StatusDone, step.Status, "err: %v", step.Err)

	records := readSLC(t, path)
	// the second cube spans layers 5 to 9 only
	require.Len(t, records, 10+5)
	assert.InDelta(t, 0.05, records[0].z, 1e-6)
	assert.InDelta(t, 0.55, records[10].z, 1e-6)
	for _, rec := range records {
		assert.Equal(t, uint32(1), rec.loops)
		require.Len(t, rec.points, 1)
		assert.GreaterOrEqual(t, rec.points[0], uint32(5))
	}
}

func TestVectorExportWithoutInstances(t *testing.T) {
	f := newFixture(t)
	s, path := f.session(t, "empty.slc", Options{})

	step, steps := drive(t, s)

	require.Equal(t, StatusDone, step.Status)
	assert.Zero(t, steps)
	assert.Empty(t, readSLC(t, path))
}

func TestCancelAfterLastLayerLeavesNoOutput(t *testing.T) {
	for _, name := range []string{"out.sjob", "out.slc"} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			inst := f.cube(t, -1, -1, 0)
			surface := raster.NewSurface()
			s, path := f.session(t, name, Options{Surface: surface})

			for i := 0; i < 10; i++ {
				require.Equal(t, StatusProgress, s.Advance().Status)
			}
			s.Cancel()
			step := s.Advance()

			assert.Equal(t, StatusCancelled, step.Status)
			assert.Equal(t, Progress{Done: 10, Total: 10}, step.Progress)
			assert.NoFileExists(t, path)
			assert.NoFileExists(t, path+".part")
			assert.Equal(t, raster.DefaultOwner, surface.Owner())
			assert.False(t, inst.IsBaked())
		})
	}
}

func TestRunCancelledOnLastProgressReturnsCancelled(t *testing.T) {
	f := newFixture(t)
	f.cube(t, -1, -1, 0)
	s, path := f.session(t, "out.sjob", Options{})
	ctx, cancel := context.WithCancel(context.Background())

	err := Run(ctx, s, ProgressFunc(func(p Progress) {
		if p.Done == p.Total {
			cancel()
		}
	}))

	assert.ErrorIs(t, err, core.ErrCancelled)
	assert.NoFileExists(t, path)
}

func TestUnwritableDestinationFailsRun(t *testing.T) {
	for _, name := range []string{"out.sjob", "out.slc"} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			a := f.cube(t, -4, -4, 0)
			b := f.cube(t, 2, 2, 0)
			surface := raster.NewSurface()
			path := filepath.Join(f.dir, "missing", name)
			target, err := export.NewTarget(path)
			require.NoError(t, err)
			s := NewSession(f.layout, target, Options{Surface: surface})

			step, _ := drive(t, s)

			assert.Equal(t, StatusFailed, step.Status)
			assert.ErrorIs(t, step.Err, fs.ErrNotExist)
			assert.Contains(t, step.Err.Error(), path)
			assert.NoFileExists(t, path)
			assert.NoFileExists(t, path+".part")
			assert.Equal(t, raster.DefaultOwner, surface.Owner())
			assert.False(t, a.IsBaked())
			assert.False(t, b.IsBaked())
			assert.Equal(t, StageIdle, s.Stage())
			assert.Equal(t, step, s.Advance())
		})
	}
}
