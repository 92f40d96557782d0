package runner

import (
	"math"
	"strings"
	"testing"

	"github.com/notargets/FDTDKernel/grid"
	"github.com/notargets/FDTDKernel/utils"
	"github.com/notargets/FDTDKernel/yee"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKernelGeneration(t *testing.T) {
	t.Run("FluxUpdate", func(t *testing.T) {
		kd := fluxUpdateKernel("updateD", yee.Electric, yee.Curl(yee.TEM{}, yee.Electric))
		src := kd.Source()
		assert.Contains(t, src, "@kernel void updateD(")
		assert.Contains(t, src, "const int_t* cells,\n\tconst int_t* nbMin,\n\tconst real_t* H,\n\treal_t* D")
		assert.Contains(t, src, "sum += (1.0) * (H[0*NCELLS + c] - H[0*NCELLS + nbMin[0*NCELLS + c]]);")
		assert.Contains(t, src, "D[0*NCELLS + c] += COEF * sum;")
		assert.Contains(t, src, "@outer")
		assert.Contains(t, src, "@inner")

		kd = fluxUpdateKernel("updateB", yee.Magnetic, yee.Curl(yee.TEM{}, yee.Magnetic))
		assert.Contains(t, kd.Source(),
			"sum += (1.0) * (E[0*NCELLS + nbMax[0*NCELLS + c]] - E[0*NCELLS + c]);")
	})
	t.Run("ThreeDTermCount", func(t *testing.T) {
		kd := fluxUpdateKernel("updateB", yee.Magnetic, yee.Curl(yee.ThreeD{}, yee.Magnetic))
		// Two derivative terms per slot
		assert.Equal(t, 6, strings.Count(kd.Body, "sum +="))
		assert.Equal(t, 3, strings.Count(kd.Body, "+= COEF * sum"))
		assert.Equal(t, 3, strings.Count(kd.Body, "(-1.0)"))
	})
	t.Run("PML", func(t *testing.T) {
		kd := pmlKernel("pmlD", yee.Electric, yee.Curl(yee.TM{}, yee.Electric), yee.TM{}.NumE())
		src := kd.Source()
		assert.Contains(t, src, "if (ePML[0*NCELLS + c])")
		assert.Contains(t, src, "if (ePML[1*NCELLS + c])")
		assert.Contains(t, src, "dSplit[1*NCELLS + c] = next;")
		assert.Contains(t, src, "D[0*NCELLS + c] += delta;")
		assert.Len(t, kd.Parameters, 8)
	})
	t.Run("Conversion", func(t *testing.T) {
		kd := conversionKernel("updateH", yee.Magnetic, 2)
		assert.Contains(t, kd.Body, "H[1*NCELLS + c] = B[1*NCELLS + c] / mu[c];")
	})
	t.Run("Injection", func(t *testing.T) {
		kd := injectionKernel("injectB", yee.Magnetic, 2, 5)
		assert.Contains(t, kd.Body, "for (int k = 2; k < 5; ++k)")
		assert.Contains(t, kd.Body, "B[at] += srcVal[k];")
	})
}

func newHostStepper[F any, P yee.FieldsPtr[F]](t *testing.T, shape []int, pml int) *grid.Stepper[F, P] {
	opts := grid.Options{}
	for a := range shape {
		opts.PML[a] = grid.PMLConfig{Cells: pml}
	}
	g, err := grid.New[F, P](shape, opts)
	require.NoError(t, err)
	s, err := grid.NewStepper(g, 1)
	require.NoError(t, err)
	return s
}

// assertSameFields compares two grids slot by slot, relative to the largest
// magnitude of each array
func assertSameFields[F any, P yee.FieldsPtr[F]](t *testing.T, want, got *grid.Grid[F, P]) {
	for _, family := range []string{"E", "D", "H", "B"} {
		var scale float64
		pick := func(c *yee.Cell[F, P]) []float64 {
			e, d := c.Storage().Electric()
			h, b := c.Storage().Magnetic()
			return map[string][]float64{"E": e, "D": d, "H": h, "B": b}[family]
		}
		for i := range want.Cells {
			for _, v := range pick(&want.Cells[i]) {
				scale = math.Max(scale, math.Abs(v))
			}
		}
		require.Greater(t, scale, 0., family)
		for i := range want.Cells {
			w, g := pick(&want.Cells[i]), pick(&got.Cells[i])
			for s := range w {
				assert.InDelta(t, w[s], g[s], 1.e-10*scale, "%s cell %d slot %d", family, i, s)
			}
		}
	}
}

func TestRunnerMatchesHost(t *testing.T) {
	device := utils.CreateTestDevice()
	defer device.Free()

	t.Run("TEMChain", func(t *testing.T) {
		host := newHostStepper[yee.FieldsTEM](t, []int{60}, 10)
		dev := newHostStepper[yee.FieldsTEM](t, []int{60}, 10)
		for _, s := range []*grid.Stepper[yee.FieldsTEM, *yee.FieldsTEM]{host, dev} {
			require.NoError(t, s.AddSource(grid.Injection{Cell: 30, Component: yee.Dz, Hard: true,
				Source: grid.Sinusoid{Amplitude: 1, Frequency: 0.05}}))
			require.NoError(t, s.AddSource(grid.Injection{Cell: 20, Component: yee.By,
				Source: grid.GaussianPulse{Amplitude: 100, Delay: 15, Width: 5}}))
		}
		require.NoError(t, host.Run(120, nil))

		kr, err := NewRunner(device, dev, 2)
		require.NoError(t, err)
		defer kr.Free()
		assert.Equal(t, 2, kr.Layout.NumPartitions)
		_, ok := kr.Kernels["injectB"]
		assert.True(t, ok)
		require.NoError(t, kr.Run(120, nil))
		assert.Equal(t, 120, kr.StepCount())
		assertSameFields(t, host.Grid, dev.Grid)
	})

	t.Run("TMWithDielectric", func(t *testing.T) {
		host := newHostStepper[yee.FieldsTM](t, []int{30, 24}, 5)
		dev := newHostStepper[yee.FieldsTM](t, []int{30, 24}, 5)
		slab := func() yee.Polarization { return yee.LinearPolarization{EpsR: 2.5} }
		for _, s := range []*grid.Stepper[yee.FieldsTM, *yee.FieldsTM]{host, dev} {
			require.NoError(t, s.Grid.SetMaterial([]int{18, 6}, []int{22, 18}, slab, nil))
			require.NoError(t, s.AddSource(grid.Injection{Cell: s.Grid.Index(12, 12), Component: yee.Dz,
				Source: grid.DifferentiatedGaussian{Amplitude: 1, Delay: 20, Width: 6}}))
		}
		// Device continues from a partially advanced host state
		require.NoError(t, host.Run(10, nil))
		require.NoError(t, dev.Run(10, nil))
		require.NoError(t, host.Run(70, nil))

		kr, err := NewRunner(device, dev, 3)
		require.NoError(t, err)
		defer kr.Free()
		var observed int
		require.NoError(t, kr.Run(70, func(int) error {
			observed++
			return nil
		}))
		assert.Equal(t, 70, observed)
		assert.Equal(t, 80, kr.StepCount())
		assertSameFields(t, host.Grid, dev.Grid)
	})
}

type scaledPolarization struct{ scale float64 }

func (sp scaledPolarization) Polarize(_ yee.Axis, d float64) float64 { return sp.scale * d }

func TestRunnerRejectsNonConstantModels(t *testing.T) {
	device := utils.CreateTestDevice()
	defer device.Free()

	s := newHostStepper[yee.FieldsTEM](t, []int{20}, 0)
	s.Grid.Cells[5].Polarization = scaledPolarization{scale: 2}
	_, err := NewRunner(device, s, 1)
	assert.Error(t, err)

	assert.Panics(t, func() { _, _ = NewRunner(nil, s, 1) })
}
