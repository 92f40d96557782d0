package partitions

import (
	"fmt"
	"math"
)

// PartitionBuilder constructs partitions over the updatable cells of an arena
type PartitionBuilder struct {
	// Arena indices of the cells to distribute, e.g. the interior of a grid
	Cells []int
	// Total arena size, so edge cells can be mapped to no partition
	ArenaSize int
	// Neighbors returns the arena indices adjacent to a cell, used to count
	// boundary cells. Optional.
	Neighbors func(cell int) []int

	// Partitioning parameters, NumPartitions takes precedence when set
	NumPartitions       int
	TargetPartitionSize int
	Strategy            PartitionStrategy
}

// PartitionStrategy defines how cells are grouped
type PartitionStrategy int

const (
	BlockPartition PartitionStrategy = iota // Consecutive cells
	RoundRobin                              // Distribute cyclically
)

func (ps PartitionStrategy) String() string {
	switch ps {
	case BlockPartition:
		return "block"
	case RoundRobin:
		return "round-robin"
	}
	return fmt.Sprintf("PartitionStrategy(%d)", int(ps))
}

// BuildPartitions creates a partition layout
func (pb *PartitionBuilder) BuildPartitions() (*PartitionLayout, error) {
	if len(pb.Cells) == 0 {
		return nil, fmt.Errorf("no cells to partition")
	}
	for _, c := range pb.Cells {
		if c < 0 || c >= pb.ArenaSize {
			return nil, fmt.Errorf("cell %d outside arena of %d cells", c, pb.ArenaSize)
		}
	}

	numPartitions := pb.calculateNumPartitions()
	assignment := pb.partitionCells(numPartitions)
	partitions := pb.createPartitions(assignment, numPartitions)

	cToP := make([]int, pb.ArenaSize)
	for i := range cToP {
		cToP[i] = -1
	}
	for k, c := range pb.Cells {
		cToP[c] = assignment[k]
	}
	pb.countBoundaryCells(partitions, cToP)

	maxCells := 0
	for _, p := range partitions {
		if p.NumCells > maxCells {
			maxCells = p.NumCells
		}
	}
	for i := range partitions {
		partitions[i].MaxCells = maxCells
	}

	layout := &PartitionLayout{
		Partitions:    partitions,
		MaxCells:      maxCells,
		TotalCells:    len(pb.Cells),
		NumPartitions: numPartitions,
		CToP:          cToP,
	}
	if err := layout.ValidateLayout(); err != nil {
		return nil, fmt.Errorf("invalid partition layout: %w", err)
	}
	return layout, nil
}

// calculateNumPartitions determines the partition count, never more than the
// number of cells so that no partition is empty
func (pb *PartitionBuilder) calculateNumPartitions() int {
	numPartitions := pb.NumPartitions
	if numPartitions <= 0 && pb.TargetPartitionSize > 0 {
		numPartitions = int(math.Ceil(float64(len(pb.Cells)) / float64(pb.TargetPartitionSize)))
	}
	if numPartitions < 1 {
		numPartitions = 1
	}
	if numPartitions > len(pb.Cells) {
		numPartitions = len(pb.Cells)
	}
	return numPartitions
}

// partitionCells assigns each entry of Cells to a partition
func (pb *PartitionBuilder) partitionCells(numPartitions int) []int {
	n := len(pb.Cells)
	assignment := make([]int, n)

	switch pb.Strategy {
	case RoundRobin:
		for k := range assignment {
			assignment[k] = k % numPartitions
		}
	default:
		// Balanced blocks: sizes differ by at most one
		base, extra := n/numPartitions, n%numPartitions
		k := 0
		for p := 0; p < numPartitions; p++ {
			size := base
			if p < extra {
				size++
			}
			for j := 0; j < size; j++ {
				assignment[k] = p
				k++
			}
		}
	}
	return assignment
}

func (pb *PartitionBuilder) createPartitions(assignment []int, numPartitions int) []Partition {
	partitions := make([]Partition, numPartitions)
	for i := range partitions {
		partitions[i] = Partition{ID: i, Cells: make([]int, 0, len(pb.Cells)/numPartitions+1)}
	}
	for k, part := range assignment {
		partitions[part].Cells = append(partitions[part].Cells, pb.Cells[k])
		partitions[part].NumCells++
	}
	return partitions
}

func (pb *PartitionBuilder) countBoundaryCells(partitions []Partition, cToP []int) {
	if pb.Neighbors == nil {
		return
	}
	for i := range partitions {
		p := &partitions[i]
		for _, c := range p.Cells {
			for _, nb := range pb.Neighbors(c) {
				if nb >= 0 && nb < len(cToP) && cToP[nb] != p.ID {
					p.BoundaryCells++
					break
				}
			}
		}
	}
}
