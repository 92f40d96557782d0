package runner

import (
	"fmt"
	"strings"

	"github.com/notargets/gocca"

	"github.com/notargets/FDTDKernel/grid"
	"github.com/notargets/FDTDKernel/partitions"
	"github.com/notargets/FDTDKernel/yee"
)

// CUDA caps an @inner loop at 1024 work items
const cudaInnerLimit = 1024

// Runner executes the leapfrog sequence of a grid on an OCCA device. The
// grid's cells are flattened into structure-of-arrays device memory, one
// kernel is generated per phase from the mode's curl tables, and the interior
// is split into partitions that map to @outer iterations.
type Runner[F any, P yee.FieldsPtr[F]] struct {
	Device       *gocca.OCCADevice
	Grid         *grid.Grid[F, P]
	Layout       *partitions.PartitionLayout
	Kernels      map[string]*gocca.OCCAKernel
	PooledMemory map[string]*gocca.OCCAMemory

	definitions map[string]*KernelDefinition
	hostReal    map[string][]float64
	hostInt     map[string][]int64
	sources     []grid.Injection
	numElectric int // Leading electric entries of sources
	kernelOrder []string
	preamble    string
	step        int
}

// NewRunner prepares device memory and kernels for the stepper's grid and
// sources. The stepper's host state at this moment becomes the device's
// initial state.
func NewRunner[F any, P yee.FieldsPtr[F]](device *gocca.OCCADevice, stepper *grid.Stepper[F, P],
	numPartitions int) (kr *Runner[F, P], err error) {
	if device == nil {
		panic("runner needs a device")
	}
	g := stepper.Grid
	pb := partitions.PartitionBuilder{
		Cells:         g.Interior(),
		ArenaSize:     len(g.Cells),
		Neighbors:     g.NeighborsOf,
		NumPartitions: numPartitions,
		Strategy:      partitions.BlockPartition,
	}
	layout, err := pb.BuildPartitions()
	if err != nil {
		return nil, fmt.Errorf("partitioning for device: %w", err)
	}
	if device.Mode() == "CUDA" && layout.MaxCells > cudaInnerLimit {
		return nil, fmt.Errorf("partitions of %d cells exceed the CUDA @inner limit of %d, use more partitions",
			layout.MaxCells, cudaInnerLimit)
	}

	kr = &Runner[F, P]{
		Device:       device,
		Grid:         g,
		Layout:       layout,
		Kernels:      make(map[string]*gocca.OCCAKernel),
		PooledMemory: make(map[string]*gocca.OCCAMemory),
		definitions:  make(map[string]*KernelDefinition),
		hostReal:     make(map[string][]float64),
		hostInt:      make(map[string][]int64),
		step:         stepper.StepCount(),
	}
	for _, inj := range stepper.Sources() {
		if inj.Component.Family() == yee.Electric {
			kr.numElectric++
		}
		kr.sources = append(kr.sources, inj)
	}

	if err = kr.flatten(); err != nil {
		kr.Free()
		return nil, err
	}
	kr.allocate()
	kr.defineKernels()
	for _, name := range kr.kernelOrder {
		if _, err = kr.BuildKernel(kr.definitions[name]); err != nil {
			kr.Free()
			return nil, err
		}
	}
	return kr, nil
}

// GeneratePreamble renders the types and constants shared by every kernel
func (kr *Runner[F, P]) GeneratePreamble() string {
	var sb strings.Builder
	mode := kr.Grid.Mode
	sb.WriteString("typedef double real_t;\n")
	sb.WriteString("typedef long int_t;\n\n")
	sb.WriteString(fmt.Sprintf("#define NPART %d\n", kr.Layout.NumPartitions))
	sb.WriteString(fmt.Sprintf("#define MAXCELLS %d\n", kr.Layout.MaxCells))
	sb.WriteString(fmt.Sprintf("#define NCELLS %d\n", len(kr.Grid.Cells)))
	sb.WriteString(fmt.Sprintf("#define NE %d\n", mode.NumE()))
	sb.WriteString(fmt.Sprintf("#define NH %d\n", mode.NumH()))
	// Seventeen significant digits reproduce the host coefficient exactly
	sb.WriteString(fmt.Sprintf("#define COEF %.17g\n\n", kr.Grid.Params.FluxCoefficient()))
	kr.preamble = sb.String()
	return kr.preamble
}

func (kr *Runner[F, P]) defineKernels() {
	mode := kr.Grid.Mode
	add := func(kd *KernelDefinition) {
		kr.definitions[kd.Name] = kd
		kr.kernelOrder = append(kr.kernelOrder, kd.Name)
	}
	add(fluxUpdateKernel("updateD", yee.Electric, yee.Curl(mode, yee.Electric)))
	if kr.numElectric > 0 {
		add(injectionKernel("injectD", yee.Electric, 0, kr.numElectric))
	}
	if kr.Grid.HasPML() {
		add(pmlKernel("pmlD", yee.Electric, yee.Curl(mode, yee.Electric), mode.NumE()))
	}
	add(conversionKernel("updateE", yee.Electric, mode.NumE()))
	add(fluxUpdateKernel("updateB", yee.Magnetic, yee.Curl(mode, yee.Magnetic)))
	if len(kr.sources) > kr.numElectric {
		add(injectionKernel("injectB", yee.Magnetic, kr.numElectric, len(kr.sources)))
	}
	if kr.Grid.HasPML() {
		add(pmlKernel("pmlB", yee.Magnetic, yee.Curl(mode, yee.Magnetic), mode.NumH()))
	}
	add(conversionKernel("updateH", yee.Magnetic, mode.NumH()))
}

// KernelSource returns the full source a kernel was built from
func (kr *Runner[F, P]) KernelSource(name string) (string, error) {
	kd, ok := kr.definitions[name]
	if !ok {
		return "", fmt.Errorf("kernel %s not defined", name)
	}
	return kr.preamble + kd.Source(), nil
}

// BuildKernel compiles and registers a kernel definition
func (kr *Runner[F, P]) BuildKernel(kd *KernelDefinition) (*gocca.OCCAKernel, error) {
	fullSource := kr.GeneratePreamble() + kd.Source()

	var kernel *gocca.OCCAKernel
	var err error
	if kr.Device.Mode() == "OpenMP" {
		// OCCA does not pass its default -O3 to OpenMP builds
		props := gocca.JsonParse(`{"compiler_flags": "-O3"}`)
		defer props.Free()
		kernel, err = kr.Device.BuildKernelFromString(fullSource, kd.Name, props)
	} else {
		kernel, err = kr.Device.BuildKernelFromString(fullSource, kd.Name, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build kernel %s: %w", kd.Name, err)
	}
	if kernel == nil {
		return nil, fmt.Errorf("kernel build returned nil for %s", kd.Name)
	}
	kr.Kernels[kd.Name] = kernel
	return kernel, nil
}

// Free releases all kernels and device memory
func (kr *Runner[F, P]) Free() {
	for name, kernel := range kr.Kernels {
		kernel.Free()
		delete(kr.Kernels, name)
	}
	for name, mem := range kr.PooledMemory {
		mem.Free()
		delete(kr.PooledMemory, name)
	}
}

func (kr *Runner[F, P]) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("=== %s device runner on %s ===\n", kr.Grid.Mode.Name(), kr.Device.Mode()))
	sb.WriteString(fmt.Sprintf("  Partitions: %d, MaxCells: %d, interior cells: %d\n",
		kr.Layout.NumPartitions, kr.Layout.MaxCells, kr.Layout.TotalCells))
	sb.WriteString(fmt.Sprintf("  Kernels: %s\n", strings.Join(kr.kernelOrder, ", ")))
	sb.WriteString(fmt.Sprintf("  Sources: %d electric, %d magnetic\n",
		kr.numElectric, len(kr.sources)-kr.numElectric))
	return sb.String()
}
