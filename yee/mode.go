package yee

import "fmt"

// Axis identifies a Cartesian grid direction
type Axis uint8

const (
	X Axis = iota
	Y
	Z
)

func (a Axis) String() string {
	switch a {
	case X:
		return "x"
	case Y:
		return "y"
	case Z:
		return "z"
	}
	return fmt.Sprintf("Axis(%d)", uint8(a))
}

// Family separates the electric (D/E) and magnetic (B/H) halves of the leapfrog
type Family uint8

const (
	Electric Family = iota
	Magnetic
)

func (f Family) String() string {
	if f == Electric {
		return "electric"
	}
	return "magnetic"
}

// Mode describes a simulation regime: its spatial axes and the orientation of
// each active electric and magnetic field slot. Slices returned are shared and
// must not be modified.
type Mode interface {
	Name() string
	Dim() int
	NumE() int
	NumH() int
	Axes() []Axis  // Spatial axes along which neighbors exist
	EAxes() []Axis // EAxes()[slot] is the orientation of electric slot
	HAxes() []Axis // HAxes()[slot] is the orientation of magnetic slot
}

var (
	axesX   = []Axis{X}
	axesXY  = []Axis{X, Y}
	axesXYZ = []Axis{X, Y, Z}
	axesY   = []Axis{Y}
	axesZ   = []Axis{Z}
)

// TEM is a 1-D transverse electromagnetic wave travelling along x with Ez, Hy
type TEM struct{}

func (TEM) Name() string  { return "TEM" }
func (TEM) Dim() int      { return 1 }
func (TEM) NumE() int     { return 1 }
func (TEM) NumH() int     { return 1 }
func (TEM) Axes() []Axis  { return axesX }
func (TEM) EAxes() []Axis { return axesZ }
func (TEM) HAxes() []Axis { return axesY }

// TE is the 2-D x-y regime carrying Ex, Ey and Hz
type TE struct{}

func (TE) Name() string  { return "TE" }
func (TE) Dim() int      { return 2 }
func (TE) NumE() int     { return 2 }
func (TE) NumH() int     { return 1 }
func (TE) Axes() []Axis  { return axesXY }
func (TE) EAxes() []Axis { return axesXY }
func (TE) HAxes() []Axis { return axesZ }

// TM is the 2-D x-y regime carrying Ez, Hx and Hy
type TM struct{}

func (TM) Name() string  { return "TM" }
func (TM) Dim() int      { return 2 }
func (TM) NumE() int     { return 1 }
func (TM) NumH() int     { return 2 }
func (TM) Axes() []Axis  { return axesXY }
func (TM) EAxes() []Axis { return axesZ }
func (TM) HAxes() []Axis { return axesXY }

// ThreeD carries all six field components
type ThreeD struct{}

func (ThreeD) Name() string  { return "ThreeD" }
func (ThreeD) Dim() int      { return 3 }
func (ThreeD) NumE() int     { return 3 }
func (ThreeD) NumH() int     { return 3 }
func (ThreeD) Axes() []Axis  { return axesXYZ }
func (ThreeD) EAxes() []Axis { return axesXYZ }
func (ThreeD) HAxes() []Axis { return axesXYZ }

// ModeByName resolves a mode tag from its name, used by configuration
func ModeByName(name string) (Mode, error) {
	for _, m := range []Mode{TEM{}, TE{}, TM{}, ThreeD{}} {
		if m.Name() == name {
			return m, nil
		}
	}
	return nil, fmt.Errorf("unknown mode %q, expected one of TEM, TE, TM, ThreeD", name)
}

// HasAxis reports whether neighbors exist along axis in mode m
func HasAxis(m Mode, axis Axis) bool {
	for _, a := range m.Axes() {
		if a == axis {
			return true
		}
	}
	return false
}

func slotOf(axes []Axis, axis Axis) int {
	for slot, a := range axes {
		if a == axis {
			return slot
		}
	}
	return -1
}
