package grid

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/notargets/FDTDKernel/constants"
	"github.com/notargets/FDTDKernel/yee"
)

// Energy returns the discrete field energy per unit cell volume,
// sum(eps*E^2 + mu*H^2)/2. Cells whose material models expose a constant
// permittivity or permeability use it, all others count as vacuum.
// E is at the full step and H half a step earlier, so the sum is not
// exactly conserved step to step; it oscillates by an amount set by the
// field's high-frequency content.
func (g *Grid[F, P]) Energy() float64 {
	var total float64
	for i := range g.Cells {
		c := &g.Cells[i]
		e, _ := c.Storage().Electric()
		h, _ := c.Storage().Magnetic()
		eps, mu := constants.Eps0, constants.Mu0
		if cp, ok := c.Polarization.(yee.ConstantPolarization); ok {
			eps = cp.Permittivity()
		}
		if cm, ok := c.Magnetization.(yee.ConstantMagnetization); ok {
			mu = cm.Permeability()
		}
		total += eps*floats.Dot(e, e) + mu*floats.Dot(h, h)
	}
	return 0.5 * total
}

// Snapshot copies one component of every cell, in arena order, into dst and
// returns it. dst is reallocated when it is too short.
func (g *Grid[F, P]) Snapshot(comp yee.Component, dst []float64) ([]float64, error) {
	if _, ok := yee.SlotOf(g.Mode, comp); !ok {
		return nil, fmt.Errorf("snapshot of %s: %w %s", comp, ErrInactiveComponent, g.Mode.Name())
	}
	if cap(dst) < len(g.Cells) {
		dst = make([]float64, len(g.Cells))
	}
	dst = dst[:len(g.Cells)]
	for i := range g.Cells {
		dst[i], _ = g.Cells[i].Get(comp)
	}
	return dst, nil
}

// MaxAbs returns the largest magnitude of one component over the grid
func (g *Grid[F, P]) MaxAbs(comp yee.Component) (float64, error) {
	vals, err := g.Snapshot(comp, nil)
	if err != nil {
		return 0, err
	}
	return math.Max(floats.Max(vals), -floats.Min(vals)), nil
}

// Finite reports whether every stored field value is a finite number
func (g *Grid[F, P]) Finite() bool {
	for i := range g.Cells {
		e, d := g.Cells[i].Storage().Electric()
		h, b := g.Cells[i].Storage().Magnetic()
		for _, vals := range [][]float64{e, d, h, b} {
			for _, v := range vals {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					return false
				}
			}
		}
	}
	return true
}
