package partitions

import (
	"fmt"
	"strings"
)

// Partition is a set of cells updated together as one unit of work within a
// phase, by one goroutine on the host or one @outer iteration on a device
type Partition struct {
	ID int

	// Arena indices of the member cells, in traversal order
	Cells    []int
	NumCells int // Actual number of member cells
	MaxCells int // Padded size shared by all partitions, for @inner loop uniformity

	// Member cells with at least one neighbor owned by another partition. Their
	// reads cross the partition boundary, which is safe only behind the phase barrier.
	BoundaryCells int
}

// PartitionLayout manages the complete decomposition of the updatable cells
type PartitionLayout struct {
	Partitions []Partition

	MaxCells      int // max(NumCells) across all partitions
	TotalCells    int // Sum of all member cells
	NumPartitions int

	// Cell to partition mapping, -1 for cells not in any partition (domain edges)
	CToP []int
}

// GetPartition returns the partition containing cell index, or -1
func (pl *PartitionLayout) GetPartition(cell int) int {
	if cell < 0 || cell >= len(pl.CToP) {
		return -1
	}
	return pl.CToP[cell]
}

// ValidateLayout checks partition consistency
func (pl *PartitionLayout) ValidateLayout() error {
	actualMax, total := 0, 0
	for _, p := range pl.Partitions {
		if p.NumCells > actualMax {
			actualMax = p.NumCells
		}
		if p.NumCells != len(p.Cells) {
			return fmt.Errorf("partition %d: NumCells %d != %d member cells",
				p.ID, p.NumCells, len(p.Cells))
		}
		if p.MaxCells != pl.MaxCells {
			return fmt.Errorf("partition %d: MaxCells %d != layout MaxCells %d",
				p.ID, p.MaxCells, pl.MaxCells)
		}
		for _, c := range p.Cells {
			if pl.GetPartition(c) != p.ID {
				return fmt.Errorf("cell %d listed in partition %d but mapped to %d",
					c, p.ID, pl.GetPartition(c))
			}
		}
		total += p.NumCells
	}
	if actualMax != pl.MaxCells {
		return fmt.Errorf("computed MaxCells %d != stored MaxCells %d", actualMax, pl.MaxCells)
	}
	if total != pl.TotalCells {
		return fmt.Errorf("partitions hold %d cells, layout expects %d", total, pl.TotalCells)
	}
	return nil
}

// PaddedCells flattens the member lists into a [NumPartitions x MaxCells]
// row-major array, padding short partitions with -1
func (pl *PartitionLayout) PaddedCells() []int64 {
	out := make([]int64, pl.NumPartitions*pl.MaxCells)
	for p, part := range pl.Partitions {
		row := out[p*pl.MaxCells : (p+1)*pl.MaxCells]
		for k := range row {
			row[k] = -1
		}
		for k, c := range part.Cells {
			row[k] = int64(c)
		}
	}
	return out
}

// Counts returns NumCells for each partition
func (pl *PartitionLayout) Counts() []int64 {
	out := make([]int64, pl.NumPartitions)
	for p, part := range pl.Partitions {
		out[p] = int64(part.NumCells)
	}
	return out
}

func (pl *PartitionLayout) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d partitions over %d cells, MaxCells=%d\n",
		pl.NumPartitions, pl.TotalCells, pl.MaxCells))
	for _, p := range pl.Partitions {
		sb.WriteString(fmt.Sprintf("  partition %d: %d cells, %d on a partition boundary\n",
			p.ID, p.NumCells, p.BoundaryCells))
	}
	return sb.String()
}
