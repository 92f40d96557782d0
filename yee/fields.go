package yee

import "fmt"

// Component names one of the twelve field quantities of a Yee cell
type Component uint8

const (
	Ex Component = iota
	Ey
	Ez
	Dx
	Dy
	Dz
	Hx
	Hy
	Hz
	Bx
	By
	Bz
)

var componentNames = [...]string{"Ex", "Ey", "Ez", "Dx", "Dy", "Dz", "Hx", "Hy", "Hz", "Bx", "By", "Bz"}

func (c Component) String() string {
	if int(c) < len(componentNames) {
		return componentNames[c]
	}
	return fmt.Sprintf("Component(%d)", uint8(c))
}

// Family returns whether the component belongs to the electric or magnetic half
func (c Component) Family() Family {
	if c < Hx {
		return Electric
	}
	return Magnetic
}

// IsFlux is true for D and B components
func (c Component) IsFlux() bool {
	return (c >= Dx && c <= Dz) || c >= Bx
}

// Axis returns the orientation of the component
func (c Component) Axis() Axis {
	return Axis(c % 3)
}

// ComponentByName parses names such as "Ez" or "By"
func ComponentByName(name string) (Component, error) {
	for i, n := range componentNames {
		if n == name {
			return Component(i), nil
		}
	}
	return 0, fmt.Errorf("unknown field component %q", name)
}

// SlotOf returns the storage slot of component c in mode m, or false when the
// component is not active in that mode
func SlotOf(m Mode, c Component) (slot int, ok bool) {
	axes := m.EAxes()
	if c.Family() == Magnetic {
		axes = m.HAxes()
	}
	slot = slotOf(axes, c.Axis())
	return slot, slot >= 0
}

// FieldStorage gives the update operators uniform access to the active field
// slots of a cell. Slot order follows Mode().EAxes() and Mode().HAxes().
type FieldStorage interface {
	Mode() Mode
	Electric() (e, d []float64)
	Magnetic() (h, b []float64)
}

// FieldsPtr is satisfied by a pointer to a field storage type, letting a Cell
// hold its fields inline while the operators call the pointer methods
type FieldsPtr[F any] interface {
	*F
	FieldStorage
}

// FieldsTEM stores Ez, Dz, Hy, By
type FieldsTEM struct {
	e, d, h, b [1]float64
}

func (f *FieldsTEM) Mode() Mode                 { return TEM{} }
func (f *FieldsTEM) Electric() (e, d []float64) { return f.e[:], f.d[:] }
func (f *FieldsTEM) Magnetic() (h, b []float64) { return f.h[:], f.b[:] }

func (f *FieldsTEM) Ez() float64     { return f.e[0] }
func (f *FieldsTEM) SetEz(v float64) { f.e[0] = v }
func (f *FieldsTEM) Dz() float64     { return f.d[0] }
func (f *FieldsTEM) SetDz(v float64) { f.d[0] = v }
func (f *FieldsTEM) Hy() float64     { return f.h[0] }
func (f *FieldsTEM) SetHy(v float64) { f.h[0] = v }
func (f *FieldsTEM) By() float64     { return f.b[0] }
func (f *FieldsTEM) SetBy(v float64) { f.b[0] = v }

// FieldsTE stores Ex, Ey, Dx, Dy, Hz, Bz
type FieldsTE struct {
	e, d [2]float64
	h, b [1]float64
}

func (f *FieldsTE) Mode() Mode                 { return TE{} }
func (f *FieldsTE) Electric() (e, d []float64) { return f.e[:], f.d[:] }
func (f *FieldsTE) Magnetic() (h, b []float64) { return f.h[:], f.b[:] }

func (f *FieldsTE) Ex() float64     { return f.e[0] }
func (f *FieldsTE) SetEx(v float64) { f.e[0] = v }
func (f *FieldsTE) Ey() float64     { return f.e[1] }
func (f *FieldsTE) SetEy(v float64) { f.e[1] = v }
func (f *FieldsTE) Dx() float64     { return f.d[0] }
func (f *FieldsTE) SetDx(v float64) { f.d[0] = v }
func (f *FieldsTE) Dy() float64     { return f.d[1] }
func (f *FieldsTE) SetDy(v float64) { f.d[1] = v }
func (f *FieldsTE) Hz() float64     { return f.h[0] }
func (f *FieldsTE) SetHz(v float64) { f.h[0] = v }
func (f *FieldsTE) Bz() float64     { return f.b[0] }
func (f *FieldsTE) SetBz(v float64) { f.b[0] = v }

// FieldsTM stores Ez, Dz, Hx, Hy, Bx, By
type FieldsTM struct {
	e, d [1]float64
	h, b [2]float64
}

func (f *FieldsTM) Mode() Mode                 { return TM{} }
func (f *FieldsTM) Electric() (e, d []float64) { return f.e[:], f.d[:] }
func (f *FieldsTM) Magnetic() (h, b []float64) { return f.h[:], f.b[:] }

func (f *FieldsTM) Ez() float64     { return f.e[0] }
func (f *FieldsTM) SetEz(v float64) { f.e[0] = v }
func (f *FieldsTM) Dz() float64     { return f.d[0] }
func (f *FieldsTM) SetDz(v float64) { f.d[0] = v }
func (f *FieldsTM) Hx() float64     { return f.h[0] }
func (f *FieldsTM) SetHx(v float64) { f.h[0] = v }
func (f *FieldsTM) Hy() float64     { return f.h[1] }
func (f *FieldsTM) SetHy(v float64) { f.h[1] = v }
func (f *FieldsTM) Bx() float64     { return f.b[0] }
func (f *FieldsTM) SetBx(v float64) { f.b[0] = v }
func (f *FieldsTM) By() float64     { return f.b[1] }
func (f *FieldsTM) SetBy(v float64) { f.b[1] = v }

// Fields3D stores all twelve components
type Fields3D struct {
	e, d, h, b [3]float64
}

func (f *Fields3D) Mode() Mode                 { return ThreeD{} }
func (f *Fields3D) Electric() (e, d []float64) { return f.e[:], f.d[:] }
func (f *Fields3D) Magnetic() (h, b []float64) { return f.h[:], f.b[:] }

func (f *Fields3D) Ex() float64     { return f.e[0] }
func (f *Fields3D) SetEx(v float64) { f.e[0] = v }
func (f *Fields3D) Ey() float64     { return f.e[1] }
func (f *Fields3D) SetEy(v float64) { f.e[1] = v }
func (f *Fields3D) Ez() float64     { return f.e[2] }
func (f *Fields3D) SetEz(v float64) { f.e[2] = v }
func (f *Fields3D) Dx() float64     { return f.d[0] }
func (f *Fields3D) SetDx(v float64) { f.d[0] = v }
func (f *Fields3D) Dy() float64     { return f.d[1] }
func (f *Fields3D) SetDy(v float64) { f.d[1] = v }
func (f *Fields3D) Dz() float64     { return f.d[2] }
func (f *Fields3D) SetDz(v float64) { f.d[2] = v }
func (f *Fields3D) Hx() float64     { return f.h[0] }
func (f *Fields3D) SetHx(v float64) { f.h[0] = v }
func (f *Fields3D) Hy() float64     { return f.h[1] }
func (f *Fields3D) SetHy(v float64) { f.h[1] = v }
func (f *Fields3D) Hz() float64     { return f.h[2] }
func (f *Fields3D) SetHz(v float64) { f.h[2] = v }
func (f *Fields3D) Bx() float64     { return f.b[0] }
func (f *Fields3D) SetBx(v float64) { f.b[0] = v }
func (f *Fields3D) By() float64     { return f.b[1] }
func (f *Fields3D) SetBy(v float64) { f.b[1] = v }
func (f *Fields3D) Bz() float64     { return f.b[2] }
func (f *Fields3D) SetBz(v float64) { f.b[2] = v }

// Get reads any active component through the storage interface. The
// second result is false if the component is not active in the mode.
func Get(fs FieldStorage, c Component) (float64, bool) {
	slot, ok := SlotOf(fs.Mode(), c)
	if !ok {
		return 0, false
	}
	return slice(fs, c)[slot], true
}

// Set writes any active component through the storage interface, returning
// false without effect if the component is not active in the mode
func Set(fs FieldStorage, c Component, v float64) bool {
	slot, ok := SlotOf(fs.Mode(), c)
	if !ok {
		return false
	}
	slice(fs, c)[slot] = v
	return true
}

func slice(fs FieldStorage, c Component) []float64 {
	if c.Family() == Electric {
		e, d := fs.Electric()
		if c.IsFlux() {
			return d
		}
		return e
	}
	h, b := fs.Magnetic()
	if c.IsFlux() {
		return b
	}
	return h
}
