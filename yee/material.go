package yee

import (
	"fmt"
	"sort"

	"github.com/notargets/FDTDKernel/constants"
)

// Polarization converts electric flux density into field intensity for one
// cell. It is called once per active electric component per conversion phase
// and may keep auxiliary per-cell state for dispersive media.
type Polarization interface {
	Polarize(axis Axis, d float64) (e float64)
}

// Magnetization converts magnetic flux density into field intensity
type Magnetization interface {
	Magnetize(axis Axis, b float64) (h float64)
}

// ConstantPolarization is implemented by non-dispersive models whose
// conversion is E = D / Permittivity()
type ConstantPolarization interface {
	Polarization
	Permittivity() float64
}

// ConstantMagnetization is implemented by models whose conversion is H = B / Permeability()
type ConstantMagnetization interface {
	Magnetization
	Permeability() float64
}

type VacuumPolarization struct{}

func (VacuumPolarization) Polarize(_ Axis, d float64) float64 { return d / constants.Eps0 }
func (VacuumPolarization) Permittivity() float64              { return constants.Eps0 }

type VacuumMagnetization struct{}

func (VacuumMagnetization) Magnetize(_ Axis, b float64) float64 { return b / constants.Mu0 }
func (VacuumMagnetization) Permeability() float64               { return constants.Mu0 }

// LinearPolarization models a lossless dielectric with relative permittivity EpsR
type LinearPolarization struct {
	EpsR float64
}

func (lp LinearPolarization) Polarize(_ Axis, d float64) float64 {
	return d / (constants.Eps0 * lp.EpsR)
}
func (lp LinearPolarization) Permittivity() float64 { return constants.Eps0 * lp.EpsR }

// LinearMagnetization models a linear magnetic medium with relative permeability MuR
type LinearMagnetization struct {
	MuR float64
}

func (lm LinearMagnetization) Magnetize(_ Axis, b float64) float64 {
	return b / (constants.Mu0 * lm.MuR)
}
func (lm LinearMagnetization) Permeability() float64 { return constants.Mu0 * lm.MuR }

// MaterialParams holds named model parameters, e.g. {"eps_r": 4}
type MaterialParams map[string]float64

func (p MaterialParams) get(name string, def float64) float64 {
	if v, ok := p[name]; ok {
		return v
	}
	return def
}

// NewPolarization allocates a polarization model by name. Models are
// allocated per cell, so stateful models never share state.
func NewPolarization(name string, prms MaterialParams) (Polarization, error) {
	allocator, ok := polarizationAllocators[name]
	if !ok {
		return nil, fmt.Errorf("polarization model %q is not available, have %v",
			name, sortedKeys(polarizationAllocators))
	}
	return allocator(prms)
}

// NewMagnetization allocates a magnetization model by name
func NewMagnetization(name string, prms MaterialParams) (Magnetization, error) {
	allocator, ok := magnetizationAllocators[name]
	if !ok {
		return nil, fmt.Errorf("magnetization model %q is not available, have %v",
			name, sortedKeys(magnetizationAllocators))
	}
	return allocator(prms)
}

// RegisterPolarization adds a model to the database, replacing any model with the same name
func RegisterPolarization(name string, allocator func(MaterialParams) (Polarization, error)) {
	polarizationAllocators[name] = allocator
}

// RegisterMagnetization adds a model to the database
func RegisterMagnetization(name string, allocator func(MaterialParams) (Magnetization, error)) {
	magnetizationAllocators[name] = allocator
}

var polarizationAllocators = map[string]func(MaterialParams) (Polarization, error){
	"vacuum": func(MaterialParams) (Polarization, error) { return VacuumPolarization{}, nil },
	"linear": func(prms MaterialParams) (Polarization, error) {
		epsR := prms.get("eps_r", 1)
		if epsR <= 0 {
			return nil, fmt.Errorf("linear polarization: eps_r must be positive, got %g", epsR)
		}
		return LinearPolarization{EpsR: epsR}, nil
	},
}

var magnetizationAllocators = map[string]func(MaterialParams) (Magnetization, error){
	"vacuum": func(MaterialParams) (Magnetization, error) { return VacuumMagnetization{}, nil },
	"linear": func(prms MaterialParams) (Magnetization, error) {
		muR := prms.get("mu_r", 1)
		if muR <= 0 {
			return nil, fmt.Errorf("linear magnetization: mu_r must be positive, got %g", muR)
		}
		return LinearMagnetization{MuR: muR}, nil
	},
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
