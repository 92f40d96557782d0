package probe

import (
	"fmt"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Spectrum is the one-sided amplitude spectrum of a probe series. Frequencies
// are in cycles per time step, divide by dt for Hertz.
type Spectrum struct {
	Frequencies []float64
	Amplitudes  []float64
}

// NewSpectrum removes the mean of series, optionally applies a Hann window,
// and transforms it. Amplitudes are scaled so an unwindowed sinusoid that
// fits the record exactly shows its own amplitude.
func NewSpectrum(series []float64, hann bool) (Spectrum, error) {
	n := len(series)
	if n < 4 {
		return Spectrum{}, fmt.Errorf("spectrum needs at least 4 samples, got %d", n)
	}
	x := make([]float64, n)
	copy(x, series)
	floats.AddConst(-stat.Mean(x, nil), x)
	if hann {
		window.Apply(x, window.Hann)
	}
	coeffs := fft.FFTReal(x)

	bins := n/2 + 1
	sp := Spectrum{
		Frequencies: make([]float64, bins),
		Amplitudes:  make([]float64, bins),
	}
	for k := 0; k < bins; k++ {
		sp.Frequencies[k] = float64(k) / float64(n)
		scale := 2 / float64(n)
		if k == 0 || (n%2 == 0 && k == n/2) {
			scale = 1 / float64(n)
		}
		sp.Amplitudes[k] = scale * cmplx.Abs(coeffs[k])
	}
	return sp, nil
}

// Dominant returns the frequency of the strongest non-DC bin
func (sp Spectrum) Dominant() float64 {
	if len(sp.Amplitudes) < 2 {
		return 0
	}
	return sp.Frequencies[1+floats.MaxIdx(sp.Amplitudes[1:])]
}

// Hertz converts the bin frequencies for a time step dt
func (sp Spectrum) Hertz(dt float64) []float64 {
	hz := make([]float64, len(sp.Frequencies))
	floats.ScaleTo(hz, 1/dt, sp.Frequencies)
	return hz
}
