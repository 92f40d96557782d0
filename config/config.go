package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/notargets/FDTDKernel/grid"
	"github.com/notargets/FDTDKernel/yee"
)

// ErrInvalid marks every validation failure of a run configuration
var ErrInvalid = errors.New("invalid configuration")

// RunConfig describes one simulation run
type RunConfig struct {
	Mode    string  `yaml:"mode"`
	Shape   []int   `yaml:"shape"`
	Dx      float64 `yaml:"dx"`
	Courant float64 `yaml:"courant"` // Zero selects 0.99 of the stability limit
	Steps   int     `yaml:"steps"`
	Workers int     `yaml:"workers"`
	Backend string  `yaml:"backend"` // "host" or "occa"
	Device  string  `yaml:"device"`  // OCCA device properties as JSON

	PML       []PMLConfig      `yaml:"pml,omitempty"`
	Materials []MaterialRegion `yaml:"materials,omitempty"`
	Sources   []SourceConfig   `yaml:"sources,omitempty"`
	Probes    []ProbeConfig    `yaml:"probes,omitempty"`
}

// PMLConfig places absorbing layers on both ends of one axis
type PMLConfig struct {
	Axis  string  `yaml:"axis"`
	Cells int     `yaml:"cells"`
	Order float64 `yaml:"order"`
	Scale float64 `yaml:"scale"`
}

// ModelConfig selects a registered material model by name
type ModelConfig struct {
	Model  string             `yaml:"model"`
	Params yee.MaterialParams `yaml:"params,omitempty"`
}

// MaterialRegion assigns models to the box of cells [Lo, Hi]
type MaterialRegion struct {
	Lo            []int        `yaml:"lo"`
	Hi            []int        `yaml:"hi"`
	Polarization  *ModelConfig `yaml:"polarization,omitempty"`
	Magnetization *ModelConfig `yaml:"magnetization,omitempty"`
}

// SourceConfig drives one flux component of the cell at At
type SourceConfig struct {
	At        []int   `yaml:"at"`
	Component string  `yaml:"component"`
	Hard      bool    `yaml:"hard"`
	Waveform  string  `yaml:"waveform"` // sinusoid, gaussian or dgaussian
	Amplitude float64 `yaml:"amplitude"`
	Frequency float64 `yaml:"frequency"` // Cycles per step
	Delay     float64 `yaml:"delay"`
	Width     float64 `yaml:"width"`
}

// ProbeConfig records one component of the cell at At every step
type ProbeConfig struct {
	Name      string `yaml:"name"`
	At        []int  `yaml:"at"`
	Component string `yaml:"component"`
}

// Defaults returns the reference scenario: a 50-cell TEM chain driven at
// its center, absorbing layers on both ends, 100 steps
func Defaults() RunConfig {
	return RunConfig{
		Mode:    "TEM",
		Shape:   []int{50},
		Dx:      1,
		Steps:   100,
		Workers: 1,
		Backend: "host",
		Device:  `{"mode": "Serial"}`,
		PML:     []PMLConfig{{Axis: "x", Cells: 10}},
		Sources: []SourceConfig{{
			At: []int{25}, Component: "Dz", Hard: true,
			Waveform: "sinusoid", Amplitude: 1, Frequency: 0.05,
		}},
		Probes: []ProbeConfig{{Name: "center", At: []int{25}, Component: "Ez"}},
	}
}

// Load reads a YAML file over the defaults and validates the result
func Load(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	rc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rc, nil
}

// Parse decodes YAML over the defaults and validates the result. The default
// layers, sources and probes belong to the default geometry, so they are only
// kept when the document leaves mode and shape alone and names none of its own.
func Parse(data []byte) (*RunConfig, error) {
	def := Defaults()
	rc := def
	rc.PML, rc.Sources, rc.Probes = nil, nil, nil
	if err := yaml.Unmarshal(data, &rc); err != nil {
		return nil, fmt.Errorf("decoding YAML: %w", err)
	}
	if rc.Mode == def.Mode && slices.Equal(rc.Shape, def.Shape) &&
		rc.PML == nil && rc.Sources == nil && rc.Probes == nil {
		rc.PML, rc.Sources, rc.Probes = def.PML, def.Sources, def.Probes
	}
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	return &rc, nil
}

// Marshal encodes the configuration as YAML
func (rc *RunConfig) Marshal() ([]byte, error) {
	return yaml.Marshal(rc)
}

// invalid wraps ErrInvalid, and any error passed with a %w verb
func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...)
}

// Validate checks the configuration against the selected mode
func (rc *RunConfig) Validate() error {
	mode, err := yee.ModeByName(rc.Mode)
	if err != nil {
		return invalid("%w", err)
	}
	if len(rc.Shape) != mode.Dim() {
		return invalid("mode %s needs %d extents, got %v", mode.Name(), mode.Dim(), rc.Shape)
	}
	for a, n := range rc.Shape {
		if n < 3 {
			return invalid("extent %d on axis %s leaves no interior", n, yee.Axis(a))
		}
	}
	if rc.Dx <= 0 {
		return invalid("dx must be positive, got %g", rc.Dx)
	}
	if rc.Courant < 0 || (rc.Courant > 0 && !rc.Params(mode).Stable(mode.Dim())) {
		return invalid("courant number %g outside (0, 1/sqrt(%d)]", rc.Courant, mode.Dim())
	}
	if rc.Steps < 1 {
		return invalid("steps must be at least 1, got %d", rc.Steps)
	}
	if rc.Workers < 1 {
		return invalid("workers must be at least 1, got %d", rc.Workers)
	}
	switch rc.Backend {
	case "host", "occa":
	default:
		return invalid("unknown backend %q, expected host or occa", rc.Backend)
	}

	seen := make(map[yee.Axis]bool)
	for _, p := range rc.PML {
		axis, err := ParseAxis(p.Axis)
		if err != nil {
			return invalid("pml: %w", err)
		}
		if !yee.HasAxis(mode, axis) {
			return invalid("pml on axis %s, mode %s has %d axes", axis, mode.Name(), mode.Dim())
		}
		if seen[axis] {
			return invalid("pml axis %s listed twice", axis)
		}
		seen[axis] = true
		if p.Cells < 1 || 2*p.Cells > rc.Shape[axis]-2 {
			return invalid("pml of %d cells does not fit axis %s", p.Cells, axis)
		}
	}

	for k, m := range rc.Materials {
		if err := rc.checkBox(m.Lo, m.Hi); err != nil {
			return invalid("material %d: %w", k, err)
		}
		if m.Polarization == nil && m.Magnetization == nil {
			return invalid("material %d assigns no model", k)
		}
		if _, _, err := m.Allocators(); err != nil {
			return invalid("material %d: %w", k, err)
		}
	}

	for k, s := range rc.Sources {
		if err := rc.checkPoint(s.At, true); err != nil {
			return invalid("source %d: %w", k, err)
		}
		comp, err := rc.component(mode, s.Component)
		if err != nil {
			return invalid("source %d: %w", k, err)
		}
		if !comp.IsFlux() {
			return invalid("source %d drives %s, only D and B components can be driven", k, comp)
		}
		if _, err := s.Build(); err != nil {
			return invalid("source %d: %w", k, err)
		}
	}

	names := make(map[string]bool)
	for k, p := range rc.Probes {
		if p.Name == "" || names[p.Name] {
			return invalid("probe %d needs a unique name, got %q", k, p.Name)
		}
		names[p.Name] = true
		if err := rc.checkPoint(p.At, false); err != nil {
			return invalid("probe %q: %w", p.Name, err)
		}
		if _, err := rc.component(mode, p.Component); err != nil {
			return invalid("probe %q: %w", p.Name, err)
		}
	}
	return nil
}

func (rc *RunConfig) component(mode yee.Mode, name string) (yee.Component, error) {
	comp, err := yee.ComponentByName(name)
	if err != nil {
		return 0, err
	}
	if _, ok := yee.SlotOf(mode, comp); !ok {
		return 0, fmt.Errorf("%s: %w %s", comp, grid.ErrInactiveComponent, mode.Name())
	}
	return comp, nil
}

func (rc *RunConfig) checkPoint(at []int, interior bool) error {
	if len(at) != len(rc.Shape) {
		return fmt.Errorf("location %v needs %d coordinates", at, len(rc.Shape))
	}
	lo := 0
	if interior {
		lo = 1
	}
	for a, c := range at {
		if c < lo || c > rc.Shape[a]-1-lo {
			return fmt.Errorf("location %v outside the updatable cells of %v", at, rc.Shape)
		}
	}
	return nil
}

func (rc *RunConfig) checkBox(lo, hi []int) error {
	if err := rc.checkPoint(lo, false); err != nil {
		return err
	}
	if err := rc.checkPoint(hi, false); err != nil {
		return err
	}
	for a := range lo {
		if lo[a] > hi[a] {
			return fmt.Errorf("box corner %v above %v", lo, hi)
		}
	}
	return nil
}

// ParseAxis accepts x, y or z in either case
func ParseAxis(name string) (yee.Axis, error) {
	switch strings.ToLower(name) {
	case "x":
		return yee.X, nil
	case "y":
		return yee.Y, nil
	case "z":
		return yee.Z, nil
	}
	return 0, fmt.Errorf("unknown axis %q", name)
}

// Params returns the operator scalars; a zero Courant number selects the default
func (rc *RunConfig) Params(mode yee.Mode) yee.Params {
	prm := yee.DefaultParams(mode)
	prm.Dx = rc.Dx
	if rc.Courant > 0 {
		prm.Courant = rc.Courant
	}
	return prm
}

// GridOptions translates the validated configuration for grid.New
func (rc *RunConfig) GridOptions() (grid.Options, error) {
	mode, err := yee.ModeByName(rc.Mode)
	if err != nil {
		return grid.Options{}, invalid("%w", err)
	}
	opts := grid.Options{Params: rc.Params(mode)}
	for _, p := range rc.PML {
		axis, err := ParseAxis(p.Axis)
		if err != nil {
			return grid.Options{}, invalid("pml: %w", err)
		}
		opts.PML[axis] = grid.PMLConfig{Cells: p.Cells, Order: p.Order, Scale: p.Scale}
	}
	return opts, nil
}

// Allocators resolves the region's models into per-cell allocators. The
// parameters are checked once here, so the allocators cannot fail.
func (m MaterialRegion) Allocators() (pol func() yee.Polarization, mag func() yee.Magnetization, err error) {
	if m.Polarization != nil {
		mc := *m.Polarization
		if _, err = yee.NewPolarization(mc.Model, mc.Params); err != nil {
			return nil, nil, err
		}
		pol = func() yee.Polarization {
			p, _ := yee.NewPolarization(mc.Model, mc.Params)
			return p
		}
	}
	if m.Magnetization != nil {
		mc := *m.Magnetization
		if _, err = yee.NewMagnetization(mc.Model, mc.Params); err != nil {
			return nil, nil, err
		}
		mag = func() yee.Magnetization {
			h, _ := yee.NewMagnetization(mc.Model, mc.Params)
			return h
		}
	}
	return
}

// Build returns the source's time function
func (s SourceConfig) Build() (grid.Waveform, error) {
	switch s.Waveform {
	case "sinusoid":
		if s.Frequency <= 0 || s.Frequency >= 0.5 {
			return nil, fmt.Errorf("sinusoid frequency %g outside (0, 0.5) cycles per step", s.Frequency)
		}
		return grid.Sinusoid{Amplitude: s.Amplitude, Frequency: s.Frequency}, nil
	case "gaussian", "dgaussian":
		if s.Width <= 0 {
			return nil, fmt.Errorf("%s width must be positive, got %g", s.Waveform, s.Width)
		}
		if s.Waveform == "gaussian" {
			return grid.GaussianPulse{Amplitude: s.Amplitude, Delay: s.Delay, Width: s.Width}, nil
		}
		return grid.DifferentiatedGaussian{Amplitude: s.Amplitude, Delay: s.Delay, Width: s.Width}, nil
	}
	return nil, fmt.Errorf("unknown waveform %q, expected sinusoid, gaussian or dgaussian", s.Waveform)
}

func (rc *RunConfig) String() string {
	var sb strings.Builder
	sb.WriteString("=== Run configuration ===\n")
	sb.WriteString(fmt.Sprintf("  Mode: %s  Shape: %v  dx: %g  Courant: %g\n", rc.Mode, rc.Shape, rc.Dx, rc.Courant))
	sb.WriteString(fmt.Sprintf("  Steps: %d  Workers: %d  Backend: %s\n", rc.Steps, rc.Workers, rc.Backend))
	for _, p := range rc.PML {
		sb.WriteString(fmt.Sprintf("  PML %s: %d cells\n", p.Axis, p.Cells))
	}
	for _, m := range rc.Materials {
		sb.WriteString(fmt.Sprintf("  Material [%v, %v]\n", m.Lo, m.Hi))
	}
	for _, s := range rc.Sources {
		sb.WriteString(fmt.Sprintf("  Source %s at %v: %s\n", s.Component, s.At, s.Waveform))
	}
	for _, p := range rc.Probes {
		sb.WriteString(fmt.Sprintf("  Probe %q: %s at %v\n", p.Name, p.Component, p.At))
	}
	return sb.String()
}
