package grid

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/notargets/FDTDKernel/partitions"
	"github.com/notargets/FDTDKernel/yee"
)

// Stepper advances a grid through the leapfrog sequence
//
//	D, electric sources, electric PML, E, B, magnetic sources, magnetic PML, H
//
// Each phase completes over every interior cell before the next begins. With
// more than one worker the interior is block partitioned and each phase fans
// out one goroutine per partition, joined before the next phase.
type Stepper[F any, P yee.FieldsPtr[F]] struct {
	Grid   *Grid[F, P]
	Logger *slog.Logger

	updateD yee.YeeUpdateD[F, P]
	pmlE    yee.UpdatePML[F, P]
	updateE yee.ConstantUpdateE[F, P]
	updateB yee.YeeUpdateB[F, P]
	pmlH    yee.UpdatePML[F, P]
	updateH yee.ConstantUpdateH[F, P]

	electricSources []Injection
	magneticSources []Injection

	layout *partitions.PartitionLayout
	step   int
}

// NewStepper prepares the operators for g. Workers below 2 run every phase on
// the calling goroutine.
func NewStepper[F any, P yee.FieldsPtr[F]](g *Grid[F, P], workers int) (*Stepper[F, P], error) {
	s := &Stepper[F, P]{
		Grid:    g,
		Logger:  slog.Default(),
		updateD: yee.NewYeeUpdateD[F, P](g.Params),
		pmlE:    yee.NewUpdatePML[F, P](g.Params),
		updateE: yee.NewConstantUpdateE[F, P](),
		updateB: yee.NewYeeUpdateB[F, P](g.Params),
		pmlH:    yee.NewUpdatePMLMagnetic[F, P](g.Params),
		updateH: yee.NewConstantUpdateH[F, P](),
	}
	if workers > 1 {
		pb := partitions.PartitionBuilder{
			Cells:         g.Interior(),
			ArenaSize:     len(g.Cells),
			Neighbors:     g.NeighborsOf,
			NumPartitions: workers,
			Strategy:      partitions.BlockPartition,
		}
		layout, err := pb.BuildPartitions()
		if err != nil {
			return nil, fmt.Errorf("partitioning %d interior cells over %d workers: %w",
				len(g.Interior()), workers, err)
		}
		s.layout = layout
	}
	return s, nil
}

// Workers is the number of goroutines each phase fans out to
func (s *Stepper[F, P]) Workers() int {
	if s.layout == nil {
		return 1
	}
	return s.layout.NumPartitions
}

// Layout returns the partition layout, nil for a serial stepper
func (s *Stepper[F, P]) Layout() *partitions.PartitionLayout { return s.layout }

// StepCount is the number of completed time steps
func (s *Stepper[F, P]) StepCount() int { return s.step }

// AddSource registers an injection. The component must be a flux active in
// the grid's mode and the cell must be an interior cell.
func (s *Stepper[F, P]) AddSource(inj Injection) error {
	g := s.Grid
	if inj.Source == nil {
		return fmt.Errorf("%s: no waveform", inj)
	}
	if _, ok := yee.SlotOf(g.Mode, inj.Component); !ok {
		return fmt.Errorf("%s: %w %s", inj, ErrInactiveComponent, g.Mode.Name())
	}
	if !inj.Component.IsFlux() {
		return fmt.Errorf("%s: sources drive D or B, the intensities are derived", inj)
	}
	if inj.Cell < 0 || inj.Cell >= len(g.Cells) || !g.Cells[inj.Cell].Complete() {
		return fmt.Errorf("%s: cell is not an interior cell", inj)
	}
	if inj.Component.Family() == yee.Electric {
		s.electricSources = append(s.electricSources, inj)
	} else {
		s.magneticSources = append(s.magneticSources, inj)
	}
	return nil
}

// Sources returns the registered injections, electric family first
func (s *Stepper[F, P]) Sources() []Injection {
	out := make([]Injection, 0, len(s.electricSources)+len(s.magneticSources))
	out = append(out, s.electricSources...)
	return append(out, s.magneticSources...)
}

// Step advances the grid by one time step
func (s *Stepper[F, P]) Step() {
	g := s.Grid
	s.phase(s.updateD)
	for _, inj := range s.electricSources {
		inj.apply(g.Cells[inj.Cell].Storage(), s.step)
	}
	if g.HasPML() {
		s.phase(s.pmlE)
	}
	s.phase(s.updateE)

	s.phase(s.updateB)
	for _, inj := range s.magneticSources {
		inj.apply(g.Cells[inj.Cell].Storage(), s.step)
	}
	if g.HasPML() {
		s.phase(s.pmlH)
	}
	s.phase(s.updateH)
	s.step++
}

// Run takes steps time steps, calling observe after each one. A non-nil error
// from observe stops the run and is returned.
func (s *Stepper[F, P]) Run(steps int, observe func(step int) error) error {
	start := time.Now()
	s.Logger.Info("run starting", "mode", s.Grid.Mode.Name(), "shape", s.Grid.Shape,
		"steps", steps, "workers", s.Workers())
	for n := 0; n < steps; n++ {
		s.Step()
		if observe == nil {
			continue
		}
		if err := observe(s.step); err != nil {
			return fmt.Errorf("observer stopped run at step %d: %w", s.step, err)
		}
	}
	elapsed := time.Since(start)
	s.Logger.Info("run complete", "steps", steps, "elapsed", elapsed,
		"cell_updates_per_sec", float64(steps*len(s.Grid.Interior()))/elapsed.Seconds())
	return nil
}

// phase applies op over the interior and returns once every cell is done
func (s *Stepper[F, P]) phase(op yee.Operator[F, P]) {
	cells := s.Grid.Cells
	if s.layout == nil {
		yee.ForEach(cells, s.Grid.Interior(), op)
		return
	}
	var wg sync.WaitGroup
	for _, part := range s.layout.Partitions {
		wg.Add(1)
		go func(indices []int) {
			defer wg.Done()
			yee.ForEach(cells, indices, op)
		}(part.Cells)
	}
	wg.Wait()
}
