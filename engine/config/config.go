// Package config reads and writes stratum project files.
package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/stratum/engine/core"
	"github.com/spaghettifunk/stratum/engine/raster"
)

// Resolution is a projector resolution in pixels.
type Resolution struct {
	X int
	Y int
}

// Projectors lists the supported projector presets by name.
var Projectors = map[string]Resolution{
	"1024x768":  {1024, 768},
	"1280x768":  {1280, 768},
	"1920x1080": {1920, 1080},
	"1920x1200": {1920, 1200},
}

// PixelSizes lists the pixel size presets in micrometres.
var PixelSizes = []float64{50, 75, 100}

const (
	DefaultProjector        = "1024x768"
	DefaultPixelSizeUM      = 100
	DefaultLayerThicknessUM = 100
)

type Job struct {
	Name        string `toml:"name"`
	Description string `toml:"description,omitempty"`
}

type Build struct {
	// Projector names a preset. Resolution overrides it when set.
	Projector        string  `toml:"projector,omitempty"`
	Resolution       []int   `toml:"resolution,omitempty"`
	PixelSizeUM      float64 `toml:"pixel_size_um"`
	LayerThicknessUM float64 `toml:"layer_thickness_um"`
	// HeightMM is the build depth; zero fits it to the tallest instance.
	HeightMM float64 `toml:"height_mm"`
	FillRule string  `toml:"fill_rule,omitempty"`
}

type Instance struct {
	Mesh string `toml:"mesh"`
	// Position in millimetres.
	Position [3]float32 `toml:"position"`
	// Rotation as Euler angles in degrees, applied X, then Y, then Z.
	Rotation    [3]float32  `toml:"rotation"`
	Scale       *[3]float32 `toml:"scale,omitempty"`
	DropToFloor bool        `toml:"drop_to_floor,omitempty"`
}

// Project is the content of a project file. Mesh paths are relative to the
// directory of the file.
type Project struct {
	LogLevel  string     `toml:"log_level,omitempty"`
	Job       Job        `toml:"job"`
	Build     Build      `toml:"build"`
	Instances []Instance `toml:"instance"`

	dir string
}

// Load reads the project file at path.
func Load(path string) (*Project, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open project: %w", err)
	}
	defer f.Close()

	p, err := Parse(bufio.NewReader(f), filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("project '%s': %w", path, err)
	}
	return p, nil
}

// Parse decodes a project. Relative mesh paths are resolved against dir.
// Unknown keys are rejected so that typos do not go unnoticed.
func Parse(r io.Reader, dir string) (*Project, error) {
	p := &Project{dir: dir}
	if err := toml.NewDecoder(r).DisallowUnknownFields().Decode(p); err != nil {
		return nil, err
	}
	p.applyDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Save writes the project to path.
func (p *Project) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	if err := toml.NewEncoder(f).Encode(p); err != nil {
		f.Close()
		return fmt.Errorf("encode project: %w", err)
	}
	return f.Close()
}

func (p *Project) applyDefaults() {
	if p.Build.Projector == "" && len(p.Build.Resolution) == 0 {
		p.Build.Projector = DefaultProjector
	}
	if p.Build.PixelSizeUM == 0 {
		p.Build.PixelSizeUM = DefaultPixelSizeUM
	}
	if p.Build.LayerThicknessUM == 0 {
		p.Build.LayerThicknessUM = DefaultLayerThicknessUM
	}
	if p.Job.Name == "" {
		p.Job.Name = "untitled"
	}
}

// Validate checks the values a decoder cannot.
func (p *Project) Validate() error {
	if _, err := p.Resolution(); err != nil {
		return err
	}
	if _, err := p.FillRule(); err != nil {
		return err
	}
	if p.Build.PixelSizeUM < 0 || p.Build.LayerThicknessUM < 0 || p.Build.HeightMM < 0 {
		return fmt.Errorf("negative build size: %w", core.ErrInvalidVolume)
	}
	if !slices.Contains(PixelSizes, p.Build.PixelSizeUM) {
		core.LogWarn("Pixel size %gµm is not one of the presets %v.", p.Build.PixelSizeUM, PixelSizes)
	}
	for i, inst := range p.Instances {
		if inst.Mesh == "" {
			return fmt.Errorf("instance %d has no mesh", i)
		}
	}
	return nil
}

// Resolution returns the explicit resolution, or the projector preset.
func (p *Project) Resolution() (Resolution, error) {
	if len(p.Build.Resolution) > 0 {
		if len(p.Build.Resolution) != 2 || p.Build.Resolution[0] <= 0 || p.Build.Resolution[1] <= 0 {
			return Resolution{}, fmt.Errorf("resolution %v: %w", p.Build.Resolution, core.ErrInvalidVolume)
		}
		return Resolution{p.Build.Resolution[0], p.Build.Resolution[1]}, nil
	}
	res, ok := Projectors[p.Build.Projector]
	if !ok {
		return Resolution{}, fmt.Errorf("unknown projector '%s': %w", p.Build.Projector, core.ErrInvalidVolume)
	}
	return res, nil
}

func (p *Project) FillRule() (raster.FillRule, error) {
	switch strings.ToLower(p.Build.FillRule) {
	case "", "evenodd", "even-odd":
		return raster.EvenOdd, nil
	case "nonzero", "non-zero":
		return raster.NonZero, nil
	}
	return 0, fmt.Errorf("unknown fill rule '%s'", p.Build.FillRule)
}

// MeshPath resolves the mesh of an instance against the project directory.
func (p *Project) MeshPath(inst Instance) string {
	if filepath.IsAbs(inst.Mesh) || p.dir == "" {
		return inst.Mesh
	}
	return filepath.Join(p.dir, inst.Mesh)
}

// MeshPaths returns the distinct mesh files the project uses.
func (p *Project) MeshPaths() []string {
	var out []string
	for _, inst := range p.Instances {
		path := p.MeshPath(inst)
		if !slices.Contains(out, path) {
			out = append(out, path)
		}
	}
	return out
}
