package cli

import (
	"errors"

	"github.com/spaghettifunk/stratum/engine/config"
	"github.com/spaghettifunk/stratum/engine/core"
	"github.com/spaghettifunk/stratum/engine/systems"
)

// workspace is a loaded project with its meshes placed.
type workspace struct {
	project *config.Project
	systems *systems.SystemManager
}

func openWorkspace(path string) (*workspace, error) {
	project, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	level := project.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	if level != "" {
		if err := core.SetLogLevel(level); err != nil {
			return nil, err
		}
	}

	volume, err := project.Volume()
	if err != nil {
		return nil, err
	}
	sm := systems.NewSystemManager(volume)
	layout, err := project.BuildLayout(sm.Library)
	if err != nil {
		return nil, errors.Join(err, sm.Shutdown())
	}
	sm.Layout = layout
	return &workspace{project: project, systems: sm}, nil
}

// relayout places the project again on the meshes as currently loaded. The
// old layout is cleared only after the new one holds its meshes.
func (w *workspace) relayout() error {
	layout, err := w.project.BuildLayout(w.systems.Library)
	if err != nil {
		return err
	}
	old := w.systems.Layout
	w.systems.Layout = layout
	return old.Clear()
}

func (w *workspace) Close() error {
	return w.systems.Shutdown()
}
