package runner

import (
	"fmt"
	"unsafe"

	"github.com/notargets/gocca"

	"github.com/notargets/FDTDKernel/yee"
)

// Field arrays are laid out slot-major, value(slot, cell) = A[slot*NCELLS + cell].
// Per-axis arrays use the axis in place of the slot, and the split parts use
// (axis*numSlots + slot).
var fieldArrays = []string{"E", "D", "H", "B", "dSplit", "bSplit"}

// flatten builds the host mirrors of every device array from the grid
func (kr *Runner[F, P]) flatten() error {
	g := kr.Grid
	n := len(g.Cells)
	mode := g.Mode
	ne, nh, dim := mode.NumE(), mode.NumH(), mode.Dim()

	kr.hostInt["cells"] = kr.Layout.PaddedCells()
	nbMin := make([]int64, dim*n)
	nbMax := make([]int64, dim*n)
	eps := make([]float64, n)
	mu := make([]float64, n)
	ePML := make([]int64, dim*n)
	hPML := make([]int64, dim*n)
	eDecay, eGain := make([]float64, dim*n), make([]float64, dim*n)
	hDecay, hGain := make([]float64, dim*n), make([]float64, dim*n)

	for i := range g.Cells {
		c := &g.Cells[i]
		cp, ok := c.Polarization.(yee.ConstantPolarization)
		if !ok {
			return fmt.Errorf("cell %d: polarization %T has no constant permittivity", i, c.Polarization)
		}
		cm, ok := c.Magnetization.(yee.ConstantMagnetization)
		if !ok {
			return fmt.Errorf("cell %d: magnetization %T has no constant permeability", i, c.Magnetization)
		}
		eps[i], mu[i] = cp.Permittivity(), cm.Permeability()

		for a := 0; a < dim; a++ {
			axis := yee.Axis(a)
			nbMin[a*n+i], nbMax[a*n+i] = int64(c.Min(axis)), int64(c.Max(axis))
			eDecay[a*n+i], hDecay[a*n+i] = 1, 1
			switch layer := c.PML[a].(type) {
			case yee.NoPML:
			case *yee.StoredPML:
				el, hl := layer.Losses()
				if el > 0 {
					ePML[a*n+i] = 1
				}
				if hl > 0 {
					hPML[a*n+i] = 1
				}
				eDecay[a*n+i], eGain[a*n+i] = layer.Coefficients(yee.Electric)
				hDecay[a*n+i], hGain[a*n+i] = layer.Coefficients(yee.Magnetic)
			default:
				if layer.Active() {
					return fmt.Errorf("cell %d axis %s: layer %T cannot run on a device", i, axis, layer)
				}
			}
		}
	}
	kr.hostInt["nbMin"], kr.hostInt["nbMax"] = nbMin, nbMax
	kr.hostInt["ePML"], kr.hostInt["hPML"] = ePML, hPML
	kr.hostReal["eps"], kr.hostReal["mu"] = eps, mu
	kr.hostReal["eDecay"], kr.hostReal["eGain"] = eDecay, eGain
	kr.hostReal["hDecay"], kr.hostReal["hGain"] = hDecay, hGain

	sizes := map[string]int{"E": ne, "D": ne, "H": nh, "B": nh, "dSplit": dim * ne, "bSplit": dim * nh}
	for _, name := range fieldArrays {
		kr.hostReal[name] = make([]float64, sizes[name]*n)
	}
	kr.gatherFields()

	ns := len(kr.sources)
	srcCell, srcSlot, srcHard := make([]int64, ns), make([]int64, ns), make([]int64, ns)
	for k, inj := range kr.sources {
		slot, ok := yee.SlotOf(mode, inj.Component)
		if !ok {
			return fmt.Errorf("source %s not active in mode %s", inj, mode.Name())
		}
		srcCell[k], srcSlot[k] = int64(inj.Cell), int64(slot)
		if inj.Hard {
			srcHard[k] = 1
		}
	}
	kr.hostInt["srcCell"], kr.hostInt["srcSlot"], kr.hostInt["srcHard"] = srcCell, srcSlot, srcHard
	kr.hostReal["srcVal"] = make([]float64, ns)
	return nil
}

// gatherFields copies cell fields and split parts into the host mirrors
func (kr *Runner[F, P]) gatherFields() {
	g := kr.Grid
	n := len(g.Cells)
	E, D, H, B := kr.hostReal["E"], kr.hostReal["D"], kr.hostReal["H"], kr.hostReal["B"]
	dSplit, bSplit := kr.hostReal["dSplit"], kr.hostReal["bSplit"]
	ne, nh := g.Mode.NumE(), g.Mode.NumH()
	for i := range g.Cells {
		c := &g.Cells[i]
		e, d := c.Storage().Electric()
		h, b := c.Storage().Magnetic()
		for s := 0; s < ne; s++ {
			E[s*n+i], D[s*n+i] = e[s], d[s]
		}
		for s := 0; s < nh; s++ {
			H[s*n+i], B[s*n+i] = h[s], b[s]
		}
		for a := 0; a < g.Mode.Dim(); a++ {
			sp, ok := c.PML[a].(*yee.StoredPML)
			if !ok {
				continue
			}
			for s := 0; s < ne; s++ {
				dSplit[(a*ne+s)*n+i] = sp.Split(yee.Electric, s)
			}
			for s := 0; s < nh; s++ {
				bSplit[(a*nh+s)*n+i] = sp.Split(yee.Magnetic, s)
			}
		}
	}
}

// scatterFields writes the host mirrors back into the cells
func (kr *Runner[F, P]) scatterFields() {
	g := kr.Grid
	n := len(g.Cells)
	E, D, H, B := kr.hostReal["E"], kr.hostReal["D"], kr.hostReal["H"], kr.hostReal["B"]
	dSplit, bSplit := kr.hostReal["dSplit"], kr.hostReal["bSplit"]
	ne, nh := g.Mode.NumE(), g.Mode.NumH()
	for i := range g.Cells {
		c := &g.Cells[i]
		e, d := c.Storage().Electric()
		h, b := c.Storage().Magnetic()
		for s := 0; s < ne; s++ {
			e[s], d[s] = E[s*n+i], D[s*n+i]
		}
		for s := 0; s < nh; s++ {
			h[s], b[s] = H[s*n+i], B[s*n+i]
		}
		for a := 0; a < g.Mode.Dim(); a++ {
			sp, ok := c.PML[a].(*yee.StoredPML)
			if !ok {
				continue
			}
			for s := 0; s < ne; s++ {
				sp.SetSplit(yee.Electric, s, dSplit[(a*ne+s)*n+i])
			}
			for s := 0; s < nh; s++ {
				sp.SetSplit(yee.Magnetic, s, bSplit[(a*nh+s)*n+i])
			}
		}
	}
}

// allocate creates device memory initialized from every host mirror
func (kr *Runner[F, P]) allocate() {
	for name, data := range kr.hostReal {
		if len(data) == 0 {
			// Empty source lists still need a valid kernel argument
			data = make([]float64, 1)
		}
		kr.PooledMemory[name] = kr.Device.Malloc(int64(len(data)*8), unsafe.Pointer(&data[0]), nil)
	}
	for name, data := range kr.hostInt {
		if len(data) == 0 {
			data = make([]int64, 1)
		}
		kr.PooledMemory[name] = kr.Device.Malloc(int64(len(data)*8), unsafe.Pointer(&data[0]), nil)
	}
}

// GetMemory returns the device memory of a named array
func (kr *Runner[F, P]) GetMemory(name string) *gocca.OCCAMemory {
	return kr.PooledMemory[name]
}

func (kr *Runner[F, P]) copyToDevice(name string) error {
	data := kr.hostReal[name]
	mem := kr.PooledMemory[name]
	if mem == nil {
		return fmt.Errorf("no device memory allocated for %s", name)
	}
	if len(data) > 0 {
		mem.CopyFrom(unsafe.Pointer(&data[0]), int64(len(data)*8))
	}
	return nil
}

func (kr *Runner[F, P]) copyFromDevice(name string) error {
	data := kr.hostReal[name]
	mem := kr.PooledMemory[name]
	if mem == nil {
		return fmt.Errorf("no device memory allocated for %s", name)
	}
	if len(data) > 0 {
		mem.CopyTo(unsafe.Pointer(&data[0]), int64(len(data)*8))
	}
	return nil
}

// Upload copies the grid's current fields and split parts to the device
func (kr *Runner[F, P]) Upload() error {
	kr.gatherFields()
	for _, name := range fieldArrays {
		if err := kr.copyToDevice(name); err != nil {
			return fmt.Errorf("upload: %w", err)
		}
	}
	return nil
}

// CopyBack copies the device fields and split parts into the grid's cells
func (kr *Runner[F, P]) CopyBack() error {
	kr.Device.Finish()
	for _, name := range fieldArrays {
		if err := kr.copyFromDevice(name); err != nil {
			return fmt.Errorf("copy back: %w", err)
		}
	}
	kr.scatterFields()
	return nil
}
