package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/stratum/engine/assets/loaders"
	"github.com/spaghettifunk/stratum/engine/core"
	"github.com/spaghettifunk/stratum/engine/math"
)

// Mesh is an immutable triangle soup loaded from one source file. It is shared
// by every instance placed from that file. A reload swaps the whole triangle
// list and bumps Generation; a list handed out earlier is never modified.
type Mesh struct {
	Name string
	Path string

	mutex      sync.RWMutex
	triangles  []math.Triangle
	generation uint32

	referenceCount uint32
}

// Triangles returns the current triangle list. Callers must not modify it.
func (m *Mesh) Triangles() []math.Triangle {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.triangles
}

// Generation is incremented every time the mesh is reloaded from disk.
func (m *Mesh) Generation() uint32 {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.generation
}

func (m *Mesh) replace(tris []math.Triangle) {
	m.mutex.Lock()
	m.triangles = tris
	m.generation++
	m.mutex.Unlock()
}

// MeshEvent reports that a watched mesh was reloaded, or failed to reload.
type MeshEvent struct {
	Path       string
	Generation uint32
	Err        error
}

// MeshLibrary loads each mesh source once and hands out shared references.
// The mesh is unloaded when its last reference is released.
type MeshLibrary struct {
	meshes map[string]*Mesh
	mutex  sync.Mutex

	done     chan struct{}
	fsnotify *fsnotify.Watcher
	watched  map[string]int
	isClosed bool
	events   chan MeshEvent
}

func NewMeshLibrary() *MeshLibrary {
	return &MeshLibrary{
		meshes:  make(map[string]*Mesh),
		watched: make(map[string]int),
		events:  make(chan MeshEvent, 16),
		done:    make(chan struct{}),
	}
}

// Acquire returns the mesh loaded from path, loading it on first use. Every
// successful call must be paired with a Release.
func (ml *MeshLibrary) Acquire(path string) (*Mesh, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	ml.mutex.Lock()
	defer ml.mutex.Unlock()

	if mesh, exists := ml.meshes[abs]; exists {
		mesh.referenceCount++
		return mesh, nil
	}

	tris, err := loadMesh(abs)
	if err != nil {
		return nil, err
	}
	mesh := &Mesh{
		Name:           strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs)),
		Path:           abs,
		triangles:      tris,
		referenceCount: 1,
	}
	ml.meshes[abs] = mesh
	if ml.fsnotify != nil {
		if err := ml.watchDir(filepath.Dir(abs)); err != nil {
			core.LogWarn("Unable to watch '%s': %s", abs, err)
		}
	}
	core.LogDebug("Loaded mesh '%s' with %d triangles.", mesh.Name, len(tris))
	return mesh, nil
}

// Release drops one reference to mesh and unloads it when none are left.
func (ml *MeshLibrary) Release(mesh *Mesh) error {
	if mesh == nil {
		return nil
	}
	ml.mutex.Lock()
	defer ml.mutex.Unlock()

	registered, exists := ml.meshes[mesh.Path]
	if !exists || registered != mesh {
		return fmt.Errorf("release of unknown mesh '%s': %w", mesh.Path, core.ErrMeshNotFound)
	}
	if mesh.referenceCount > 0 {
		mesh.referenceCount--
	}
	if mesh.referenceCount == 0 {
		delete(ml.meshes, mesh.Path)
		if ml.fsnotify != nil {
			ml.unwatchDir(filepath.Dir(mesh.Path))
		}
		core.LogDebug("Unloaded mesh '%s'.", mesh.Name)
	}
	return nil
}

// Count is the number of meshes currently loaded.
func (ml *MeshLibrary) Count() int {
	ml.mutex.Lock()
	defer ml.mutex.Unlock()
	return len(ml.meshes)
}

// References returns how many holders share the mesh loaded from path.
func (ml *MeshLibrary) References(path string) uint32 {
	abs, err := filepath.Abs(path)
	if err != nil {
		return 0
	}
	ml.mutex.Lock()
	defer ml.mutex.Unlock()
	if mesh, exists := ml.meshes[abs]; exists {
		return mesh.referenceCount
	}
	return 0
}

// Watch starts reloading meshes whose source files change on disk. Reloads
// are reported on Events.
func (ml *MeshLibrary) Watch() error {
	ml.mutex.Lock()
	defer ml.mutex.Unlock()

	if ml.isClosed {
		return errors.New("mesh library already closed")
	}
	if ml.fsnotify != nil {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	ml.fsnotify = w
	for path := range ml.meshes {
		if err := ml.watchDir(filepath.Dir(path)); err != nil {
			core.LogWarn("Unable to watch '%s': %s", path, err)
		}
	}
	go ml.start(w)
	return nil
}

// Events delivers reload notifications while watching.
func (ml *MeshLibrary) Events() <-chan MeshEvent {
	return ml.events
}

// Shutdown stops watching. Loaded meshes stay valid for their holders.
func (ml *MeshLibrary) Shutdown() error {
	ml.mutex.Lock()
	defer ml.mutex.Unlock()
	if ml.isClosed {
		return nil
	}
	ml.isClosed = true
	close(ml.done)
	if ml.fsnotify == nil {
		close(ml.events)
	}
	return nil
}

func (ml *MeshLibrary) start(w *fsnotify.Watcher) {
	for {
		select {
		case e, ok := <-w.Events:
			if !ok {
				return
			}
			// Editors often replace the file instead of writing it in place.
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				ml.handleFileEvent(e.Name)
			}
			if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				ml.mutex.Lock()
				_, tracked := ml.meshes[e.Name]
				ml.mutex.Unlock()
				if tracked {
					core.LogWarn("Mesh source '%s' disappeared, keeping the loaded geometry.", e.Name)
				}
			}

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			core.LogError("%s", err.Error())

		case <-ml.done:
			w.Close()
			close(ml.events)
			return
		}
	}
}

func (ml *MeshLibrary) handleFileEvent(path string) {
	ml.mutex.Lock()
	mesh, tracked := ml.meshes[path]
	ml.mutex.Unlock()
	if !tracked {
		return
	}

	tris, err := loadMesh(path)
	if err != nil {
		core.LogError("Failed to reload mesh '%s': %s", path, err)
		ml.notify(MeshEvent{Path: path, Generation: mesh.Generation(), Err: err})
		return
	}
	mesh.replace(tris)
	core.LogInfo("Reloaded mesh '%s' (%d triangles).", mesh.Name, len(tris))
	ml.notify(MeshEvent{Path: path, Generation: mesh.Generation()})
}

func (ml *MeshLibrary) notify(e MeshEvent) {
	select {
	case ml.events <- e:
	default:
		core.LogWarn("Dropped reload event for '%s', nobody is listening.", e.Path)
	}
}

// watchDir and unwatchDir must be called with the mutex held.
func (ml *MeshLibrary) watchDir(dir string) error {
	if ml.watched[dir] == 0 {
		if err := ml.fsnotify.Add(dir); err != nil {
			return err
		}
	}
	ml.watched[dir]++
	return nil
}

func (ml *MeshLibrary) unwatchDir(dir string) {
	if ml.watched[dir] == 0 {
		return
	}
	ml.watched[dir]--
	if ml.watched[dir] == 0 {
		delete(ml.watched, dir)
		if err := ml.fsnotify.Remove(dir); err != nil {
			core.LogDebug("Unable to stop watching '%s': %s", dir, err)
		}
	}
}

func loadMesh(path string) ([]math.Triangle, error) {
	loader := loaders.ForExtension(strings.ToLower(filepath.Ext(path)))
	if loader == nil {
		return nil, fmt.Errorf("'%s': %w", path, core.ErrUnsupportedMesh)
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("'%s': %w", path, core.ErrMeshNotFound)
		}
		return nil, err
	}
	defer f.Close()

	tris, err := loader.Load(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load mesh '%s': %w", path, err)
	}
	return tris, nil
}
