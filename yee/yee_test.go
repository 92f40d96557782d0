package yee

import (
	"math"
	"testing"

	"github.com/notargets/FDTDKernel/constants"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChain(n int) []CellTEM {
	cells := make([]CellTEM, n)
	for i := range cells {
		cells[i] = NewCell[FieldsTEM]()
	}
	for i := 1; i < n-1; i++ {
		cells[i].SetNeighborMin(X, i-1)
		cells[i].SetNeighborMax(X, i+1)
	}
	return cells
}

func TestModes(t *testing.T) {
	testCases := []struct {
		mode        Mode
		dim, ne, nh int
	}{
		{TEM{}, 1, 1, 1},
		{TE{}, 2, 2, 1},
		{TM{}, 2, 1, 2},
		{ThreeD{}, 3, 3, 3},
	}
	for _, tc := range testCases {
		t.Run(tc.mode.Name(), func(t *testing.T) {
			assert.Equal(t, tc.dim, tc.mode.Dim())
			assert.Equal(t, tc.ne, tc.mode.NumE())
			assert.Equal(t, tc.nh, tc.mode.NumH())
			assert.Len(t, tc.mode.Axes(), tc.dim)
			assert.Len(t, tc.mode.EAxes(), tc.ne)
			assert.Len(t, tc.mode.HAxes(), tc.nh)
			m, err := ModeByName(tc.mode.Name())
			require.NoError(t, err)
			assert.Equal(t, tc.mode, m)
		})
	}
	_, err := ModeByName("TEM00")
	assert.Error(t, err)
}

func TestFieldStorageMatchesMode(t *testing.T) {
	storages := []FieldStorage{&FieldsTEM{}, &FieldsTE{}, &FieldsTM{}, &Fields3D{}}
	for _, fs := range storages {
		e, d := fs.Electric()
		h, b := fs.Magnetic()
		assert.Len(t, e, fs.Mode().NumE(), fs.Mode().Name())
		assert.Len(t, d, fs.Mode().NumE(), fs.Mode().Name())
		assert.Len(t, h, fs.Mode().NumH(), fs.Mode().Name())
		assert.Len(t, b, fs.Mode().NumH(), fs.Mode().Name())
	}

	var tem FieldsTEM
	tem.SetDz(2)
	tem.SetHy(-3)
	v, ok := Get(&tem, Dz)
	assert.True(t, ok)
	assert.Equal(t, 2.0, v)
	v, ok = Get(&tem, Hy)
	assert.True(t, ok)
	assert.Equal(t, -3.0, v)
	_, ok = Get(&tem, Ex)
	assert.False(t, ok)
	assert.False(t, Set(&tem, Hx, 1))

	var f3 Fields3D
	for c := Ex; c <= Bz; c++ {
		require.True(t, Set(&f3, c, float64(c)+1))
	}
	assert.Equal(t, 1.0, f3.Ex())
	assert.Equal(t, 6.0, f3.Dz())
	assert.Equal(t, 8.0, f3.Hy())
	assert.Equal(t, 12.0, f3.Bz())
}

func TestComponents(t *testing.T) {
	c, err := ComponentByName("By")
	require.NoError(t, err)
	assert.Equal(t, By, c)
	assert.Equal(t, Magnetic, c.Family())
	assert.True(t, c.IsFlux())
	assert.Equal(t, Y, c.Axis())
	assert.False(t, Ez.IsFlux())
	assert.Equal(t, Electric, Dx.Family())
	assert.Equal(t, "Hz", Hz.String())
	_, err = ComponentByName("Jz")
	assert.Error(t, err)

	slot, ok := SlotOf(TM{}, Hy)
	assert.True(t, ok)
	assert.Equal(t, 1, slot)
	_, ok = SlotOf(TE{}, Ez)
	assert.False(t, ok)
}

func TestCurlTables(t *testing.T) {
	testCases := []struct {
		name     string
		mode     Mode
		family   Family
		expected CurlTable
	}{
		{"TEM-D", TEM{}, Electric, CurlTable{{{0, X, 1}}}},
		{"TEM-B", TEM{}, Magnetic, CurlTable{{{0, X, 1}}}},
		{"TE-D", TE{}, Electric, CurlTable{{{0, Y, 1}}, {{0, X, -1}}}},
		{"TE-B", TE{}, Magnetic, CurlTable{{{1, X, -1}, {0, Y, 1}}}},
		{"TM-D", TM{}, Electric, CurlTable{{{1, X, 1}, {0, Y, -1}}}},
		{"TM-B", TM{}, Magnetic, CurlTable{{{0, Y, -1}}, {{0, X, 1}}}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Curl(tc.mode, tc.family))
		})
	}

	// Every 3-D component has two terms of opposite orientation
	for _, family := range []Family{Electric, Magnetic} {
		table := Curl(ThreeD{}, family)
		require.Len(t, table, 3)
		for slot, terms := range table {
			require.Len(t, terms, 2)
			assert.Equal(t, 0.0, terms[0].Sign+terms[1].Sign)
			for _, term := range terms {
				assert.NotEqual(t, Axis(slot), term.Axis)
				assert.NotEqual(t, slot, term.Slot)
			}
		}
	}
}

func TestNeighbors(t *testing.T) {
	n := NewNeighbors(1)
	assert.False(t, n.Complete())
	n.SetNeighborMin(X, 3)
	n.SetNeighborMax(X, 5)
	assert.True(t, n.Complete())
	assert.Equal(t, 3, n.Min(X))
	assert.Equal(t, 5, n.Max(X))
	assert.Panics(t, func() { n.SetNeighborMax(Y, 1) })
	assert.Panics(t, func() { NewNeighbors(4) })

	c := NewCell[FieldsTM]()
	assert.Equal(t, 2, c.NumAxes())
	assert.Equal(t, NoNeighbor, c.Min(Y))
	assert.Panics(t, func() { c.SetPML(Z, NoPML{}) })
}

func TestMaterialRegistry(t *testing.T) {
	p, err := NewPolarization("vacuum", nil)
	require.NoError(t, err)
	assert.InEpsilon(t, 1/constants.Eps0, p.Polarize(X, 1), 1.e-15)

	p, err = NewPolarization("linear", MaterialParams{"eps_r": 4})
	require.NoError(t, err)
	assert.InEpsilon(t, 0.25/constants.Eps0, p.Polarize(Z, 1), 1.e-15)
	assert.InEpsilon(t, 4*constants.Eps0, p.(ConstantPolarization).Permittivity(), 1.e-15)

	_, err = NewPolarization("linear", MaterialParams{"eps_r": -1})
	assert.Error(t, err)
	_, err = NewPolarization("lorentz", nil)
	assert.Error(t, err)

	m, err := NewMagnetization("linear", MaterialParams{"mu_r": 2})
	require.NoError(t, err)
	assert.InEpsilon(t, 0.5/constants.Mu0, m.Magnetize(Y, 1), 1.e-15)
	_, err = NewMagnetization("ferrite", nil)
	assert.Error(t, err)

	RegisterPolarization("test-double", func(MaterialParams) (Polarization, error) {
		return &countingPolarization{calls: map[Axis]int{}}, nil
	})
	p, err = NewPolarization("test-double", nil)
	require.NoError(t, err)
	assert.IsType(t, &countingPolarization{}, p)
}

type countingPolarization struct {
	calls map[Axis]int
	seen  []float64
}

func (cp *countingPolarization) Polarize(a Axis, d float64) float64 {
	cp.calls[a]++
	cp.seen = append(cp.seen, d)
	return d / constants.Eps0
}

func TestConversionUsesFreshFluxOnce(t *testing.T) {
	// 3x3x3 block, only the center cell has all neighbors
	cells := make([]Cell3D, 27)
	for i := range cells {
		cells[i] = NewCell[Fields3D]()
		cells[i].Fields.SetHx(float64(i))
		cells[i].Fields.SetHy(float64(2 * i))
		cells[i].Fields.SetHz(float64(i * i))
	}
	center := 13
	strides := [3]int{1, 3, 9}
	for a, s := range strides {
		cells[center].SetNeighborMin(Axis(a), center-s)
		cells[center].SetNeighborMax(Axis(a), center+s)
	}
	counter := &countingPolarization{calls: map[Axis]int{}}
	cells[center].Polarization = counter

	prm := DefaultParams(ThreeD{})
	updD := NewYeeUpdateD[Fields3D](prm)
	convE := NewConstantUpdateE[Fields3D]()
	for step := 0; step < 3; step++ {
		updD.Apply(cells, center)
		convE.Apply(cells, center)
		_, d := cells[center].Storage().Electric()
		assert.Equal(t, []float64{d[0], d[1], d[2]}, counter.seen[3*step:3*step+3])
	}
	assert.Equal(t, map[Axis]int{X: 3, Y: 3, Z: 3}, counter.calls)

	// Hand evaluated curl H at the center: dHz/dy - dHy/dz etc. with backward differences
	k := prm.FluxCoefficient()
	h := func(i int) (float64, float64, float64) { return float64(i), float64(2 * i), float64(i * i) }
	hx0, hy0, hz0 := h(center)
	_, _, hzY := h(center - 3)
	_, hyZ, _ := h(center - 9)
	hxZ, _, _ := h(center - 9)
	_, _, hzX := h(center - 1)
	hxY, _, _ := h(center - 3)
	_, hyX, _ := h(center - 1)
	assert.InEpsilon(t, 3*k*((hz0-hzY)-(hy0-hyZ)), cells[center].Fields.Dx(), 1.e-12)
	assert.InEpsilon(t, 3*k*((hx0-hxZ)-(hz0-hzX)), cells[center].Fields.Dy(), 1.e-12)
	assert.InEpsilon(t, 3*k*((hy0-hyX)-(hx0-hxY)), cells[center].Fields.Dz(), 1.e-12)
}

func TestStoredPML(t *testing.T) {
	transparent := NewStoredPML(0, 0)
	assert.False(t, transparent.Active())
	assert.Equal(t, 0.0, transparent.Correct(Electric, 0, 1.5))

	s := 0.3
	p := NewStoredPML(s, s)
	require.True(t, p.Active())
	decay, gain := p.Coefficients(Electric)
	assert.InDelta(t, math.Exp(-s), decay, 1.e-15)
	assert.InDelta(t, (1-math.Exp(-s))/s, gain, 1.e-15)

	delta := p.Correct(Electric, 0, 1)
	assert.InDelta(t, gain-1, delta, 1.e-15)
	assert.InDelta(t, gain, p.Split(Electric, 0), 1.e-15)
	delta = p.Correct(Electric, 0, 0)
	assert.InDelta(t, decay*gain-gain, delta, 1.e-15)
	// Magnetic accumulators are independent
	assert.Equal(t, 0.0, p.Split(Magnetic, 0))
}

func stepChain(cells []CellTEM, prm Params, withPML bool, source func(step int, cells []CellTEM), steps int) {
	updD := NewYeeUpdateD[FieldsTEM](prm)
	pmlE := NewUpdatePML[FieldsTEM](prm)
	convE := NewConstantUpdateE[FieldsTEM]()
	updB := NewYeeUpdateB[FieldsTEM](prm)
	pmlH := NewUpdatePMLMagnetic[FieldsTEM](prm)
	convH := NewConstantUpdateH[FieldsTEM]()
	n := len(cells)
	for step := 0; step < steps; step++ {
		ForRange(cells, 1, n-1, updD)
		source(step, cells)
		if withPML {
			ForRange(cells, 1, n-1, pmlE)
		}
		ForRange(cells, 1, n-1, convE)
		ForRange(cells, 1, n-1, updB)
		if withPML {
			ForRange(cells, 1, n-1, pmlH)
		}
		ForRange(cells, 1, n-1, convH)
	}
}

func TestNoOpPMLTransparency(t *testing.T) {
	prm := DefaultParams(TEM{})
	source := func(step int, cells []CellTEM) {
		cells[10].Fields.SetDz(math.Sin(2 * constants.Pi * 0.05 * float64(step)))
	}
	a, b := newChain(30), newChain(30)
	stepChain(a, prm, false, source, 80)
	stepChain(b, prm, true, source, 80)
	for i := range a {
		assert.Equal(t, a[i].Fields, b[i].Fields, "cell %d", i)
	}

	// A stored layer with zero loss is equally transparent
	c := newChain(30)
	for i := range c {
		c[i].SetPML(X, NewStoredPML(0, 0))
	}
	stepChain(c, prm, true, source, 80)
	for i := range a {
		assert.Equal(t, a[i].Fields, c[i].Fields, "cell %d", i)
	}
}

func TestLossyLayerDampsChain(t *testing.T) {
	prm := DefaultParams(TEM{})
	pulse := func(step int, cells []CellTEM) {
		if step == 0 {
			cells[20].Fields.SetDz(1)
		}
	}
	// Uniform loss away from the source, the injected value itself is not
	// curl driven and would never decay inside a layer
	lossless, lossy := newChain(41), newChain(41)
	for i := range lossy {
		if i < 10 || i > 30 {
			lossy[i].SetPML(X, NewStoredPML(0.1, 0.1))
		}
	}
	stepChain(lossless, prm, true, pulse, 60)
	stepChain(lossy, prm, true, pulse, 60)

	var sumLossless, sumLossy float64
	for i := range lossless {
		sumLossless += math.Abs(lossless[i].Fields.Ez())
		sumLossy += math.Abs(lossy[i].Fields.Ez())
	}
	assert.Greater(t, sumLossless, 0.0)
	assert.Less(t, sumLossy, 0.5*sumLossless)
	for i := range lossy {
		assert.False(t, math.IsNaN(lossy[i].Fields.Ez()))
	}
}
