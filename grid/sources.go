package grid

import (
	"fmt"
	"math"

	"github.com/notargets/FDTDKernel/constants"
	"github.com/notargets/FDTDKernel/yee"
)

// Waveform gives the source value at an integer time step
type Waveform interface {
	Value(step int) float64
}

// Sinusoid is A*sin(2*pi*f*step), with f in cycles per time step
type Sinusoid struct {
	Amplitude, Frequency float64
}

func (s Sinusoid) Value(step int) float64 {
	return s.Amplitude * math.Sin(2*constants.Pi*s.Frequency*float64(step))
}

// GaussianPulse is A*exp(-((step-Delay)/Width)^2)
type GaussianPulse struct {
	Amplitude, Delay, Width float64
}

func (g GaussianPulse) Value(step int) float64 {
	arg := (float64(step) - g.Delay) / g.Width
	return g.Amplitude * math.Exp(-arg*arg)
}

// DifferentiatedGaussian is the zero-mean derivative of a Gaussian, normalized
// so its extrema reach +-Amplitude. Used as a soft source in 2-D and 3-D,
// where a pulse with non-zero mean leaves a static charge behind.
type DifferentiatedGaussian struct {
	Amplitude, Delay, Width float64
}

func (g DifferentiatedGaussian) Value(step int) float64 {
	arg := (float64(step) - g.Delay) / g.Width
	return -g.Amplitude * math.Sqrt(2*math.E) * arg * math.Exp(-arg*arg)
}

// Injection drives one flux component of one cell. A hard source overwrites
// the flux after the curl update, a soft source adds to it.
type Injection struct {
	Cell      int
	Component yee.Component
	Hard      bool
	Source    Waveform
}

func (inj Injection) String() string {
	kind := "soft"
	if inj.Hard {
		kind = "hard"
	}
	return fmt.Sprintf("%s %s source at cell %d", kind, inj.Component, inj.Cell)
}

func (inj Injection) apply(fs yee.FieldStorage, step int) {
	v := inj.Source.Value(step)
	if !inj.Hard {
		old, _ := yee.Get(fs, inj.Component)
		v += old
	}
	yee.Set(fs, inj.Component, v)
}
