package probe

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/FDTDKernel/grid"
	"github.com/notargets/FDTDKernel/yee"
)

// FieldSource is anything that can be sampled per cell, e.g. a *grid.Grid
type FieldSource interface {
	Field(cell int, comp yee.Component) (float64, bool)
	NumCells() int
}

// Probe names one component of one cell to sample every recorded step
type Probe struct {
	Name      string
	Cell      int
	Component yee.Component
}

// Recorder accumulates probe samples, one row per recorded step
type Recorder struct {
	Probes []Probe

	src   FieldSource
	index map[string]int
	steps []int
	data  []float64
}

// NewRecorder validates the probes against src and returns an empty recorder
func NewRecorder(src FieldSource, probes ...Probe) (*Recorder, error) {
	if len(probes) == 0 {
		return nil, fmt.Errorf("recorder needs at least one probe")
	}
	r := &Recorder{
		Probes: probes,
		src:    src,
		index:  make(map[string]int, len(probes)),
	}
	for j, p := range probes {
		if p.Name == "" {
			return nil, fmt.Errorf("probe %d has no name", j)
		}
		if _, dup := r.index[p.Name]; dup {
			return nil, fmt.Errorf("duplicate probe name %q", p.Name)
		}
		if p.Cell < 0 || p.Cell >= src.NumCells() {
			return nil, fmt.Errorf("probe %q cell %d out of range [0, %d)", p.Name, p.Cell, src.NumCells())
		}
		if _, ok := src.Field(p.Cell, p.Component); !ok {
			return nil, fmt.Errorf("probe %q on %s: %w", p.Name, p.Component, grid.ErrInactiveComponent)
		}
		r.index[p.Name] = j
	}
	return r, nil
}

// Record samples every probe and tags the row with step
func (r *Recorder) Record(step int) {
	for _, p := range r.Probes {
		v, _ := r.src.Field(p.Cell, p.Component)
		r.data = append(r.data, v)
	}
	r.steps = append(r.steps, step)
}

// Observe adapts Record to the stepper's observer signature
func (r *Recorder) Observe(step int) error {
	r.Record(step)
	return nil
}

// Len is the number of recorded rows
func (r *Recorder) Len() int { return len(r.steps) }

// Steps returns the step tag of each row
func (r *Recorder) Steps() []int { return r.steps }

// History returns a copy of the samples as a (rows x probes) matrix
func (r *Recorder) History() *mat.Dense {
	if r.Len() == 0 {
		return nil
	}
	return mat.NewDense(r.Len(), len(r.Probes), append([]float64(nil), r.data...))
}

// Series returns the time series of the named probe
func (r *Recorder) Series(name string) ([]float64, error) {
	j, ok := r.index[name]
	if !ok {
		return nil, fmt.Errorf("no probe named %q", name)
	}
	if r.Len() == 0 {
		return nil, nil
	}
	return mat.Col(nil, j, r.History()), nil
}

// Peak returns the largest magnitude recorded by the named probe
func (r *Recorder) Peak(name string) (float64, error) {
	series, err := r.Series(name)
	if err != nil || len(series) == 0 {
		return 0, err
	}
	return math.Max(floats.Max(series), -floats.Min(series)), nil
}
