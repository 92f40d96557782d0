package grid

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/notargets/FDTDKernel/constants"
	"github.com/notargets/FDTDKernel/yee"
)

// ErrInactiveComponent is returned when a component is not stored by the grid's mode
var ErrInactiveComponent = errors.New("component not active in mode")

// PMLConfig grades the absorbing layer on both ends of one axis. A zero
// Cells value leaves the axis without a layer.
type PMLConfig struct {
	Cells int     // Layer thickness in cells
	Order float64 // Polynomial grading order, default 3
	Scale float64 // Multiplier on the reference peak conductivity, default 1
}

func (pc PMLConfig) withDefaults() PMLConfig {
	if pc.Order == 0 {
		pc.Order = 3
	}
	if pc.Scale == 0 {
		pc.Scale = 1
	}
	return pc
}

// Options configures grid assembly
type Options struct {
	Params yee.Params   // Zero value selects yee.DefaultParams for the mode
	PML    [3]PMLConfig // Indexed by yee.Axis
}

// Grid is a fixed-capacity arena of cells on a structured lattice. Cells are
// allocated once and never move, neighbor links are arena indices, so the
// links stay valid for the lifetime of the grid.
type Grid[F any, P yee.FieldsPtr[F]] struct {
	Cells  []yee.Cell[F, P]
	Shape  []int
	Params yee.Params
	Mode   yee.Mode

	strides  []int
	interior []int
	pml      [3]PMLConfig
	pmlCells int
}

// New allocates and links a grid of the given shape, one extent per axis of
// the mode. Cells without a neighbor on every side form the domain edge, are
// never updated and act as perfect electric conductors.
func New[F any, P yee.FieldsPtr[F]](shape []int, opts Options) (*Grid[F, P], error) {
	var proto yee.Cell[F, P]
	mode := proto.Mode()

	if len(shape) != mode.Dim() {
		return nil, fmt.Errorf("mode %s needs %d extents, got shape %v", mode.Name(), mode.Dim(), shape)
	}
	total := 1
	for a, n := range shape {
		if n < 3 {
			return nil, fmt.Errorf("axis %s: extent %d leaves no interior cells", yee.Axis(a), n)
		}
		total *= n
	}

	prm := opts.Params
	if prm == (yee.Params{}) {
		prm = yee.DefaultParams(mode)
	}
	if prm.Dx <= 0 || prm.C0 <= 0 {
		return nil, fmt.Errorf("grid spacing and propagation speed must be positive, got dx=%g c0=%g",
			prm.Dx, prm.C0)
	}
	if !prm.Stable(mode.Dim()) {
		return nil, fmt.Errorf("courant number %g violates the %d-D stability limit %.4f",
			prm.Courant, mode.Dim(), 1/math.Sqrt(float64(mode.Dim())))
	}

	g := &Grid[F, P]{
		Cells:   make([]yee.Cell[F, P], total),
		Shape:   append([]int(nil), shape...),
		Params:  prm,
		Mode:    mode,
		strides: make([]int, len(shape)),
	}
	stride := 1
	for a := range shape {
		g.strides[a] = stride
		stride *= shape[a]
	}

	for a, pc := range opts.PML {
		if pc.Cells == 0 {
			continue
		}
		if a >= mode.Dim() {
			return nil, fmt.Errorf("PML on axis %s but mode %s has %d axes", yee.Axis(a), mode.Name(), mode.Dim())
		}
		if pc.Cells < 0 || 2*pc.Cells > shape[a]-2 {
			return nil, fmt.Errorf("PML of %d cells does not fit axis %s with %d cells",
				pc.Cells, yee.Axis(a), shape[a])
		}
		if pc.Order < 0 || pc.Scale < 0 {
			return nil, fmt.Errorf("PML on axis %s: order and scale must not be negative", yee.Axis(a))
		}
		g.pml[a] = pc.withDefaults()
	}

	g.link()
	g.installPML()
	return g, nil
}

// link creates every cell and binds its neighbors symmetrically
func (g *Grid[F, P]) link() {
	coords := make([]int, len(g.Shape))
	for i := range g.Cells {
		g.Cells[i] = yee.NewCell[F, P]()
		g.coordsInto(i, coords)
		for a, n := range g.Shape {
			axis := yee.Axis(a)
			if coords[a] > 0 {
				g.Cells[i].SetNeighborMin(axis, i-g.strides[a])
			}
			if coords[a] < n-1 {
				g.Cells[i].SetNeighborMax(axis, i+g.strides[a])
			}
		}
		if g.Cells[i].Complete() {
			g.interior = append(g.interior, i)
		}
	}
}

// installPML gives each interior cell inside a layer its stored state. Cells
// where both the electric and magnetic losses vanish keep the no-op layer.
func (g *Grid[F, P]) installPML() {
	coords := make([]int, len(g.Shape))
	for _, i := range g.interior {
		g.coordsInto(i, coords)
		for a := range g.Shape {
			if g.pml[a].Cells == 0 {
				continue
			}
			// E samples sit on the cell, B samples half a cell toward the plus side
			eLoss := g.Loss(yee.Axis(a), float64(coords[a]))
			hLoss := g.Loss(yee.Axis(a), float64(coords[a])+0.5)
			if eLoss == 0 && hLoss == 0 {
				continue
			}
			g.Cells[i].SetPML(yee.Axis(a), yee.NewStoredPML(eLoss, hLoss))
			g.pmlCells++
		}
	}
}

// Loss returns the normalized conductivity sigma*dt/eps0 at position x along
// axis, graded polynomially from zero at the layer's inner interface to the
// peak at the outer wall
func (g *Grid[F, P]) Loss(axis yee.Axis, x float64) float64 {
	pc := g.pml[axis]
	if pc.Cells == 0 {
		return 0
	}
	thickness := float64(pc.Cells)
	inner := [2]float64{thickness, float64(g.Shape[axis]-1) - thickness}
	var depth float64
	switch {
	case x < inner[0]:
		depth = (inner[0] - x) / thickness
	case x > inner[1]:
		depth = (x - inner[1]) / thickness
	default:
		return 0
	}
	depth = math.Min(depth, 1)
	return g.PeakLoss(axis) * math.Pow(depth, pc.Order)
}

// PeakLoss is the normalized conductivity at the outer wall of the layer on
// axis, 0.8*(order+1)/(imp0*dx) scaled by dt/eps0
func (g *Grid[F, P]) PeakLoss(axis yee.Axis) float64 {
	pc := g.pml[axis]
	if pc.Cells == 0 {
		return 0
	}
	sigmaMax := pc.Scale * 0.8 * (pc.Order + 1) / (constants.Imp0 * g.Params.Dx)
	return sigmaMax * g.Params.Dt() / constants.Eps0
}

// Index returns the arena index of the cell at the given coordinates
func (g *Grid[F, P]) Index(coords ...int) int {
	if len(coords) != len(g.Shape) {
		panic(fmt.Sprintf("grid of %d axes indexed with %d coordinates", len(g.Shape), len(coords)))
	}
	idx := 0
	for a, c := range coords {
		if c < 0 || c >= g.Shape[a] {
			panic(fmt.Sprintf("coordinate %d out of range [0,%d) on axis %s", c, g.Shape[a], yee.Axis(a)))
		}
		idx += c * g.strides[a]
	}
	return idx
}

// Coords returns the lattice coordinates of arena index i
func (g *Grid[F, P]) Coords(i int) []int {
	coords := make([]int, len(g.Shape))
	g.coordsInto(i, coords)
	return coords
}

func (g *Grid[F, P]) coordsInto(i int, coords []int) {
	for a, n := range g.Shape {
		coords[a] = i % n
		i /= n
	}
}

// Interior returns the indices of the updatable cells in arena order. The
// slice is shared and must not be modified.
func (g *Grid[F, P]) Interior() []int { return g.interior }

// Field reads one component of cell i, false if the mode does not store it
func (g *Grid[F, P]) Field(i int, comp yee.Component) (float64, bool) {
	if i < 0 || i >= len(g.Cells) {
		return 0, false
	}
	return g.Cells[i].Get(comp)
}

// NumCells is the arena size
func (g *Grid[F, P]) NumCells() int { return len(g.Cells) }

// HasPML reports whether any cell carries an active layer
func (g *Grid[F, P]) HasPML() bool { return g.pmlCells > 0 }

// NeighborsOf lists the linked neighbors of cell i
func (g *Grid[F, P]) NeighborsOf(i int) []int {
	c := &g.Cells[i]
	out := make([]int, 0, 2*len(g.Shape))
	for a := range g.Shape {
		for _, nb := range [2]int{c.Min(yee.Axis(a)), c.Max(yee.Axis(a))} {
			if nb != yee.NoNeighbor {
				out = append(out, nb)
			}
		}
	}
	return out
}

// SetMaterial assigns freshly allocated material models to every cell whose
// coordinates lie in the box [lo, hi]. Nil allocators leave that model unchanged.
func (g *Grid[F, P]) SetMaterial(lo, hi []int, pol func() yee.Polarization, mag func() yee.Magnetization) error {
	if len(lo) != len(g.Shape) || len(hi) != len(g.Shape) {
		return fmt.Errorf("material box needs %d coordinates per corner", len(g.Shape))
	}
	for a := range g.Shape {
		if lo[a] < 0 || hi[a] >= g.Shape[a] || lo[a] > hi[a] {
			return fmt.Errorf("material box [%v, %v] outside grid %v", lo, hi, g.Shape)
		}
	}
	coords := make([]int, len(g.Shape))
	for i := range g.Cells {
		g.coordsInto(i, coords)
		inside := true
		for a := range coords {
			if coords[a] < lo[a] || coords[a] > hi[a] {
				inside = false
				break
			}
		}
		if !inside {
			continue
		}
		if pol != nil {
			g.Cells[i].Polarization = pol()
		}
		if mag != nil {
			g.Cells[i].Magnetization = mag()
		}
	}
	return nil
}

func (g *Grid[F, P]) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("=== %s Yee grid %v ===\n", g.Mode.Name(), g.Shape))
	sb.WriteString(fmt.Sprintf("  Cells: %d total, %d interior\n", len(g.Cells), len(g.interior)))
	sb.WriteString(fmt.Sprintf("  dx=%.4e  dt=%.4e  Courant=%.4f\n", g.Params.Dx, g.Params.Dt(), g.Params.Courant))
	for a := range g.Shape {
		pc := g.pml[a]
		if pc.Cells == 0 {
			sb.WriteString(fmt.Sprintf("  PML %s: none\n", yee.Axis(a)))
			continue
		}
		sb.WriteString(fmt.Sprintf("  PML %s: %d cells, order %.1f, peak loss %.4f\n",
			yee.Axis(a), pc.Cells, pc.Order, g.PeakLoss(yee.Axis(a))))
	}
	return sb.String()
}
