package yee

import (
	"math"

	"github.com/notargets/FDTDKernel/constants"
)

// Params carries the scalars shared by the update operators
type Params struct {
	Dx      float64 // Grid spacing
	Courant float64 // c0*dt/dx
	C0      float64 // Propagation speed
}

// DefaultParams returns unit spacing and a time step just inside the Courant
// limit 1/sqrt(dim) for the mode
func DefaultParams(m Mode) Params {
	return Params{
		Dx:      1,
		Courant: 0.99 / math.Sqrt(float64(m.Dim())),
		C0:      constants.C0,
	}
}

// Dt is the time step implied by the Courant number
func (p Params) Dt() float64 { return p.Courant * p.Dx / p.C0 }

// FluxCoefficient is dt/dx, the factor applied to each finite-difference curl
func (p Params) FluxCoefficient() float64 { return p.Dt() / p.Dx }

// Stable reports whether the Courant number respects the limit for dim axes
func (p Params) Stable(dim int) bool {
	return p.Courant > 0 && p.Courant <= 1/math.Sqrt(float64(dim))
}

// CurlTerm is one partial derivative of a discrete curl: Sign * d(partner[Slot])/d(Axis)
type CurlTerm struct {
	Slot int
	Axis Axis
	Sign float64
}

// CurlTable lists, per target slot, the terms of the curl that advances it
type CurlTable [][]CurlTerm

// Curl builds the update table for the flux of a family. Electric flux
// follows Ampere (dD/dt = curl H), magnetic flux follows Faraday
// (dB/dt = -curl E). Partner components not active in the mode contribute
// nothing, which is how the reduced modes drop their derivatives.
func Curl(m Mode, target Family) CurlTable {
	targets, partners, sign := m.EAxes(), m.HAxes(), 1.0
	if target == Magnetic {
		targets, partners, sign = m.HAxes(), m.EAxes(), -1.0
	}
	table := make(CurlTable, len(targets))
	for slot, a := range targets {
		for _, b := range m.Axes() {
			if b == a {
				continue
			}
			c := 3 - a - b
			partner := slotOf(partners, c)
			if partner < 0 {
				continue
			}
			s := sign
			// (curl F)_a = dF_c/db for cyclic (a,b,c), -dF_c/db otherwise
			if (b+3-a)%3 != 1 {
				s = -s
			}
			table[slot] = append(table[slot], CurlTerm{Slot: partner, Axis: b, Sign: s})
		}
	}
	return table
}

// Operator advances one cell of an arena in place. Apply reads the cell and its
// neighbors and writes only the cell at index i.
type Operator[F any, P FieldsPtr[F]] interface {
	Apply(cells []Cell[F, P], i int)
}

// ForEach applies op to every listed cell, one full pass of a phase
func ForEach[F any, P FieldsPtr[F]](cells []Cell[F, P], indices []int, op Operator[F, P]) {
	for _, i := range indices {
		op.Apply(cells, i)
	}
}

// ForRange applies op to cells [lo, hi)
func ForRange[F any, P FieldsPtr[F]](cells []Cell[F, P], lo, hi int, op Operator[F, P]) {
	for i := lo; i < hi; i++ {
		op.Apply(cells, i)
	}
}

func modeOf[F any, P FieldsPtr[F]]() Mode {
	var f F
	return P(&f).Mode()
}

// YeeUpdateD advances every active D component from the backward difference
// of the neighbors' H
type YeeUpdateD[F any, P FieldsPtr[F]] struct {
	coef float64
	curl CurlTable
}

func NewYeeUpdateD[F any, P FieldsPtr[F]](prm Params) YeeUpdateD[F, P] {
	return YeeUpdateD[F, P]{
		coef: prm.FluxCoefficient(),
		curl: Curl(modeOf[F, P](), Electric),
	}
}

func (op YeeUpdateD[F, P]) Apply(cells []Cell[F, P], i int) {
	c := &cells[i]
	_, d := c.Storage().Electric()
	h, _ := c.Storage().Magnetic()
	for slot, terms := range op.curl {
		var sum float64
		for _, t := range terms {
			hm, _ := cells[c.min[t.Axis]].Storage().Magnetic()
			sum += t.Sign * (h[t.Slot] - hm[t.Slot])
		}
		d[slot] += op.coef * sum
	}
}

// YeeUpdateB advances every active B component from the forward difference of
// the neighbors' E
type YeeUpdateB[F any, P FieldsPtr[F]] struct {
	coef float64
	curl CurlTable
}

func NewYeeUpdateB[F any, P FieldsPtr[F]](prm Params) YeeUpdateB[F, P] {
	return YeeUpdateB[F, P]{
		coef: prm.FluxCoefficient(),
		curl: Curl(modeOf[F, P](), Magnetic),
	}
}

func (op YeeUpdateB[F, P]) Apply(cells []Cell[F, P], i int) {
	c := &cells[i]
	e, _ := c.Storage().Electric()
	_, b := c.Storage().Magnetic()
	for slot, terms := range op.curl {
		var sum float64
		for _, t := range terms {
			ep, _ := cells[c.max[t.Axis]].Storage().Electric()
			sum += t.Sign * (ep[t.Slot] - e[t.Slot])
		}
		b[slot] += op.coef * sum
	}
}

// UpdatePML replaces the ordinary update of each curl term whose derivative
// axis carries an active layer with the lossy split-field update. It must run
// after the flux update of its family and before the matching conversion.
type UpdatePML[F any, P FieldsPtr[F]] struct {
	family Family
	coef   float64
	curl   CurlTable
}

// NewUpdatePML returns the electric correction, applied after YeeUpdateD
func NewUpdatePML[F any, P FieldsPtr[F]](prm Params) UpdatePML[F, P] {
	return newUpdatePML[F, P](prm, Electric)
}

// NewUpdatePMLMagnetic returns the magnetic correction, applied after YeeUpdateB
func NewUpdatePMLMagnetic[F any, P FieldsPtr[F]](prm Params) UpdatePML[F, P] {
	return newUpdatePML[F, P](prm, Magnetic)
}

func newUpdatePML[F any, P FieldsPtr[F]](prm Params, family Family) UpdatePML[F, P] {
	return UpdatePML[F, P]{
		family: family,
		coef:   prm.FluxCoefficient(),
		curl:   Curl(modeOf[F, P](), family),
	}
}

func (op UpdatePML[F, P]) Family() Family { return op.family }

func (op UpdatePML[F, P]) Apply(cells []Cell[F, P], i int) {
	c := &cells[i]
	var active bool
	for a := 0; a < c.dim; a++ {
		if c.PML[a].Active() {
			active = true
			break
		}
	}
	if !active {
		return
	}
	flux, partner := op.slices(c)
	for slot, terms := range op.curl {
		var delta float64
		for _, t := range terms {
			layer := c.PML[t.Axis]
			if !layer.Active() {
				continue
			}
			var diff float64
			if op.family == Electric {
				_, hm := op.slices(&cells[c.min[t.Axis]])
				diff = partner[t.Slot] - hm[t.Slot]
			} else {
				_, ep := op.slices(&cells[c.max[t.Axis]])
				diff = ep[t.Slot] - partner[t.Slot]
			}
			delta += layer.Correct(op.family, slot, op.coef*t.Sign*diff)
		}
		if delta != 0 {
			flux[slot] += delta
		}
	}
}

// slices returns the flux being corrected and the partner intensity feeding its curl
func (op UpdatePML[F, P]) slices(c *Cell[F, P]) (flux, partner []float64) {
	if op.family == Electric {
		_, d := c.Storage().Electric()
		h, _ := c.Storage().Magnetic()
		return d, h
	}
	e, _ := c.Storage().Electric()
	_, b := c.Storage().Magnetic()
	return b, e
}

// ConstantUpdateE converts D to E through the cell's polarization model
type ConstantUpdateE[F any, P FieldsPtr[F]] struct {
	axes []Axis
}

func NewConstantUpdateE[F any, P FieldsPtr[F]]() ConstantUpdateE[F, P] {
	return ConstantUpdateE[F, P]{axes: modeOf[F, P]().EAxes()}
}

func (op ConstantUpdateE[F, P]) Apply(cells []Cell[F, P], i int) {
	c := &cells[i]
	e, d := c.Storage().Electric()
	for slot, a := range op.axes {
		e[slot] = c.Polarization.Polarize(a, d[slot])
	}
}

// ConstantUpdateH converts B to H through the cell's magnetization model
type ConstantUpdateH[F any, P FieldsPtr[F]] struct {
	axes []Axis
}

func NewConstantUpdateH[F any, P FieldsPtr[F]]() ConstantUpdateH[F, P] {
	return ConstantUpdateH[F, P]{axes: modeOf[F, P]().HAxes()}
}

func (op ConstantUpdateH[F, P]) Apply(cells []Cell[F, P], i int) {
	c := &cells[i]
	h, b := c.Storage().Magnetic()
	for slot, a := range op.axes {
		h[slot] = c.Magnetization.Magnetize(a, b[slot])
	}
}
