package config

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/stratum/engine/assets"
	"github.com/spaghettifunk/stratum/engine/core"
	"github.com/spaghettifunk/stratum/engine/math"
	"github.com/spaghettifunk/stratum/engine/systems"
)

// Volume converts the build section into a build volume. A zero height is
// kept as is; BuildLayout fits it to the instances.
func (p *Project) Volume() (systems.BuildVolume, error) {
	res, err := p.Resolution()
	if err != nil {
		return systems.BuildVolume{}, err
	}
	return systems.BuildVolume{
		ResolutionX:    res.X,
		ResolutionY:    res.Y,
		PixelSize:      p.Build.PixelSizeUM / 1000,
		LayerThickness: p.Build.LayerThicknessUM / 1000,
		Depth:          p.Build.HeightMM,
	}, nil
}

// BuildLayout places every instance of the project, acquiring the meshes from
// library. On error the instances placed so far are removed again.
func (p *Project) BuildLayout(library *assets.MeshLibrary) (*systems.Layout, error) {
	volume, err := p.Volume()
	if err != nil {
		return nil, err
	}
	layout := systems.NewLayout(library, volume)
	for i, cfg := range p.Instances {
		inst, err := layout.AddInstance(p.MeshPath(cfg))
		if err != nil {
			return nil, errors.Join(fmt.Errorf("instance %d: %w", i, err), layout.Clear())
		}
		scale := math.NewVec3One()
		if cfg.Scale != nil {
			scale = vec3(*cfg.Scale)
		}
		inst.SetPositionRotationScale(vec3(cfg.Position), vec3(cfg.Rotation), scale)
		if cfg.DropToFloor {
			inst.DropToFloor()
		}
	}
	if volume.Depth == 0 {
		depth := layout.FitHeight()
		core.LogInfo("Build height fitted to %.3f mm.", depth)
	}
	if err := layout.Volume.Validate(); err != nil {
		return nil, errors.Join(err, layout.Clear())
	}
	return layout, nil
}

func vec3(v [3]float32) math.Vec3 {
	return math.NewVec3(v[0], v[1], v[2])
}
