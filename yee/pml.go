package yee

import (
	"math"
)

// AxisPML is the absorbing-boundary behaviour of one cell along one axis.
//
// Correct receives the ordinary flux increment inc that the curl term with a
// derivative along this axis contributed to a slot during the last flux
// update, and returns the adjustment to add to that flux so the term follows
// the lossy (split-field) update instead.
type AxisPML interface {
	Active() bool
	Correct(family Family, slot int, inc float64) float64
}

// NoPML is the pass-through variant
type NoPML struct{}

func (NoPML) Active() bool                         { return false }
func (NoPML) Correct(Family, int, float64) float64 { return 0 }

// StoredPML keeps the split-field accumulators of one axis for one cell.
// Each flux slot is split into per-axis parts; the part driven by a derivative
// along this axis decays with exp(-s) per step, where s = sigma*dt/eps0 is the
// normalized conductivity at the slot's staggered location.
type StoredPML struct {
	eLoss, hLoss   float64
	eDecay, eGain  float64
	hDecay, hGain  float64
	dSplit, bSplit [3]float64
}

// NewStoredPML builds the layer state from normalized electric and magnetic
// losses. Magnetic losses are matched (sigma_m/mu0 == sigma/eps0) so both
// use the same normalization.
func NewStoredPML(electricLoss, magneticLoss float64) *StoredPML {
	p := &StoredPML{eLoss: electricLoss, hLoss: magneticLoss}
	p.eDecay, p.eGain = exponentialCoefficients(electricLoss)
	p.hDecay, p.hGain = exponentialCoefficients(magneticLoss)
	return p
}

// exponentialCoefficients integrates dF/dt = -s F + g exactly over one step
// for constant g, giving F' = decay*F + gain*g*dt
func exponentialCoefficients(s float64) (decay, gain float64) {
	if s <= 0 {
		return 1, 1
	}
	decay = math.Exp(-s)
	gain = -math.Expm1(-s) / s
	return
}

func (p *StoredPML) Active() bool { return p.eLoss > 0 || p.hLoss > 0 }

// Losses returns the normalized electric and magnetic losses
func (p *StoredPML) Losses() (electric, magnetic float64) { return p.eLoss, p.hLoss }

// Coefficients returns decay and gain for the family, used by device backends
func (p *StoredPML) Coefficients(family Family) (decay, gain float64) {
	if family == Electric {
		return p.eDecay, p.eGain
	}
	return p.hDecay, p.hGain
}

// Split returns the accumulated split part of a slot
func (p *StoredPML) Split(family Family, slot int) float64 {
	if family == Electric {
		return p.dSplit[slot]
	}
	return p.bSplit[slot]
}

// SetSplit restores a split part, used when copying state back from a device
func (p *StoredPML) SetSplit(family Family, slot int, v float64) {
	if family == Electric {
		p.dSplit[slot] = v
	} else {
		p.bSplit[slot] = v
	}
}

func (p *StoredPML) Correct(family Family, slot int, inc float64) float64 {
	loss, decay, gain, split := p.eLoss, p.eDecay, p.eGain, &p.dSplit[slot]
	if family == Magnetic {
		loss, decay, gain, split = p.hLoss, p.hDecay, p.hGain, &p.bSplit[slot]
	}
	if loss <= 0 {
		return 0
	}
	old := *split
	*split = decay*old + gain*inc
	return *split - old - inc
}
