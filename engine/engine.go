// Package engine drives slicing runs: it walks every instance of a layout
// through every layer and feeds the slices to an export target.
package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spaghettifunk/stratum/engine/core"
	"github.com/spaghettifunk/stratum/engine/export"
	"github.com/spaghettifunk/stratum/engine/raster"
	"github.com/spaghettifunk/stratum/engine/systems"
)

type Stage uint8

const (
	// Session is not running
	StageIdle Stage = iota
	// Session is deriving the layer count from the build volume
	StageComputingLayerCount
	// Session is picking the next instance to slice
	StageIteratingInstances
	// Session is picking the next layer of the current instance
	StageIteratingLayers
	// Session is slicing one instance at one layer
	StagePerLayerWork
	// Session is completing the output
	StageFinalizing
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageComputingLayerCount:
		return "computing layer count"
	case StageIteratingInstances:
		return "iterating instances"
	case StageIteratingLayers:
		return "iterating layers"
	case StagePerLayerWork:
		return "per layer work"
	case StageFinalizing:
		return "finalizing"
	}
	return fmt.Sprintf("stage(%d)", uint8(s))
}

type Status uint8

const (
	StatusProgress Status = iota
	StatusDone
	StatusCancelled
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusProgress:
		return "progress"
	case StatusDone:
		return "done"
	case StatusCancelled:
		return "cancelled"
	case StatusFailed:
		return "failed"
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// Progress counts units of work; one unit is one instance at one layer.
type Progress struct {
	Done  int
	Total int
}

// Step is the outcome of one Advance call.
type Step struct {
	Status   Status
	Progress Progress
	Err      error
}

// ProgressSink receives the progress after every step of a Run.
type ProgressSink interface {
	OnProgress(p Progress)
}

type ProgressFunc func(p Progress)

func (f ProgressFunc) OnProgress(p Progress) { f(p) }

type Options struct {
	Name        string
	Description string
	FillRule    raster.FillRule
	// Surface is the shared drawing context. A private one is used when nil.
	Surface *raster.Surface
}

/**
 * @brief A single slicing run of a layout into an export target.
 * The run is cooperative: every call to Advance performs at most one unit of
 * work, so the caller stays in control between units. A session runs once;
 * after a terminal step Advance keeps returning that step.
 */
type Session struct {
	layout  *systems.Layout
	target  export.Target
	options Options
	surface *raster.Surface
	restore func()

	stage      Stage
	layerCount int
	instances  []*systems.Instance
	instance   int
	layer      int
	progress   Progress
	cancelled  atomic.Bool
	terminal   *Step

	clock   *core.Clock
	metrics *core.Metrics
}

func NewSession(layout *systems.Layout, target export.Target, options Options) *Session {
	surface := options.Surface
	if surface == nil {
		surface = raster.NewSurface()
	}
	return &Session{
		layout:  layout,
		target:  target,
		options: options,
		surface: surface,
		stage:   StageIdle,
		clock:   core.NewClock(),
		metrics: core.NewMetrics(),
	}
}

func (s *Session) Stage() Stage {
	return s.stage
}

// Cancel asks the session to stop. The flag is level triggered and checked
// before each unit of work; it is safe to call from any goroutine.
func (s *Session) Cancel() {
	s.cancelled.Store(true)
}

// Metrics returns the per unit timings of the run.
func (s *Session) Metrics() *core.Metrics {
	return s.metrics
}

// Advance runs the session up to the end of the next unit of work, or to the
// end of the run.
func (s *Session) Advance() Step {
	if s.terminal != nil {
		return *s.terminal
	}
	for {
		switch s.stage {
		case StageIdle:
			if s.cancelled.Load() {
				return s.end(StatusCancelled, nil)
			}
			restore, err := s.surface.MakeCurrent("export:" + s.target.Path())
			if err != nil {
				return s.end(StatusFailed, err)
			}
			s.restore = restore
			s.clock.Start()
			s.stage = StageComputingLayerCount

		case StageComputingLayerCount:
			if err := s.begin(); err != nil {
				return s.end(StatusFailed, err)
			}
			s.stage = StageIteratingInstances

		case StageIteratingInstances:
			if s.instance >= len(s.instances) {
				s.stage = StageFinalizing
				continue
			}
			s.instances[s.instance].Bake()
			s.layer = 0
			s.stage = StageIteratingLayers

		case StageIteratingLayers:
			if s.layer >= s.layerCount {
				s.instances[s.instance].Unbake()
				s.instance++
				s.stage = StageIteratingInstances
				continue
			}
			s.stage = StagePerLayerWork

		case StagePerLayerWork:
			if s.cancelled.Load() {
				return s.end(StatusCancelled, nil)
			}
			start := time.Now()
			err := s.sliceLayer()
			s.metrics.Update(time.Since(start))
			s.progress.Done++
			s.layer++
			s.stage = StageIteratingLayers
			if err != nil {
				return s.end(StatusFailed, err)
			}
			return Step{Status: StatusProgress, Progress: s.progress}

		case StageFinalizing:
			if s.cancelled.Load() {
				return s.end(StatusCancelled, nil)
			}
			if err := s.target.Finish(); err != nil {
				return s.end(StatusFailed, fmt.Errorf("finish '%s': %w", s.target.Path(), err))
			}
			return s.end(StatusDone, nil)
		}
	}
}

func (s *Session) begin() error {
	volume := s.layout.Volume
	if err := volume.Validate(); err != nil {
		return err
	}
	s.layerCount = volume.LayerCount()
	s.instances = s.layout.Instances()
	s.progress = Progress{Total: s.layerCount * len(s.instances)}

	for _, inst := range s.layout.OutsideBuildArea() {
		core.LogWarn("Instance %s of '%s' is not fully inside the build volume.", inst.ID, inst.Mesh.Name)
	}
	core.LogInfo("Slicing %d instances into %d layers to '%s'.", len(s.instances), s.layerCount, s.target.Path())

	settings := export.Settings{
		Name:           s.options.Name,
		Description:    s.options.Description,
		ResolutionX:    volume.ResolutionX,
		ResolutionY:    volume.ResolutionY,
		PixelSize:      volume.PixelSize,
		LayerThickness: volume.LayerThickness,
		LayerCount:     s.layerCount,
		FillRule:       s.options.FillRule,
		Extents:        s.layout.Bounds(),
	}
	if err := s.target.Begin(settings); err != nil {
		return fmt.Errorf("begin '%s': %w", s.target.Path(), err)
	}
	return nil
}

// sliceLayer is one unit of work: the current instance at the current layer.
// Layers outside the instance's height range are skipped.
func (s *Session) sliceLayer() error {
	inst := s.instances[s.instance]
	thickness := s.layout.Volume.LayerThickness
	if !inst.InLayer(s.layer, thickness) {
		return nil
	}
	z := s.layout.Volume.LayerHeight(s.layer)
	slice := inst.GenerateSlice(z)
	if slice.Dropped > 0 {
		core.LogDebug("Layer %d of instance %s: dropped %d open segments.", s.layer, inst.ID, slice.Dropped)
	}
	if err := s.target.ExportLayer(s.layer, z, slice); err != nil {
		return fmt.Errorf("layer %d of instance %s: %w", s.layer, inst.ID, err)
	}
	return nil
}

// end closes the run on every exit path: the target is finished or aborted,
// baked geometry is dropped and the surface goes back to its owner.
func (s *Session) end(status Status, err error) Step {
	if status != StatusDone && s.stage != StageIdle {
		if abortErr := s.target.Abort(); abortErr != nil {
			core.LogWarn("Unable to discard '%s': %s", s.target.Path(), abortErr)
		}
	}
	for _, inst := range s.instances {
		inst.Unbake()
	}
	if s.restore != nil {
		s.restore()
		s.restore = nil
	}
	s.clock.Stop()
	s.stage = StageIdle

	switch status {
	case StatusDone:
		core.LogInfo("Sliced %d units in %s (%.2f ms per unit, %.0f units/s).", s.progress.Done, s.clock.Elapsed().Round(time.Millisecond), s.metrics.UnitTime(), s.metrics.PerSecond())
	case StatusCancelled:
		core.LogInfo("Slicing to '%s' cancelled after %d of %d units.", s.target.Path(), s.progress.Done, s.progress.Total)
	case StatusFailed:
		core.LogError("Slicing to '%s' failed: %s", s.target.Path(), err)
	}

	s.terminal = &Step{Status: status, Progress: s.progress, Err: err}
	return *s.terminal
}

// Run drives the session to the end. Cancelling ctx cancels the session.
// It returns nil when the output was written, core.ErrCancelled when the run
// was cancelled and the failure otherwise.
func Run(ctx context.Context, s *Session, sink ProgressSink) error {
	done := ctx.Done()
	for {
		select {
		case <-done:
			s.Cancel()
			done = nil
		default:
		}

		step := s.Advance()
		if sink != nil {
			sink.OnProgress(step.Progress)
		}
		switch step.Status {
		case StatusDone:
			return nil
		case StatusCancelled:
			return core.ErrCancelled
		case StatusFailed:
			return step.Err
		}
	}
}
