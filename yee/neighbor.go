package yee

import "fmt"

// NoNeighbor marks an unset neighbor slot at a domain edge
const NoNeighbor = -1

// Neighbors holds index links to the adjacent cells of the arena along each
// active axis. Links are assigned once during assembly and the caller keeps
// them symmetric: if i.Max(a) == j then j.Min(a) == i.
type Neighbors struct {
	dim      int
	min, max [3]int
}

// NewNeighbors returns unlinked topology for a cell with dim spatial axes
func NewNeighbors(dim int) Neighbors {
	if dim < 1 || dim > 3 {
		panic(fmt.Sprintf("neighbor topology needs 1 to 3 axes, got %d", dim))
	}
	return Neighbors{
		dim: dim,
		min: [3]int{NoNeighbor, NoNeighbor, NoNeighbor},
		max: [3]int{NoNeighbor, NoNeighbor, NoNeighbor},
	}
}

func (n *Neighbors) NumAxes() int { return n.dim }

func (n *Neighbors) SetNeighborMin(axis Axis, index int) {
	n.checkAxis(axis)
	n.min[axis] = index
}

func (n *Neighbors) SetNeighborMax(axis Axis, index int) {
	n.checkAxis(axis)
	n.max[axis] = index
}

// Min returns the arena index of the neighbor on the minus side of axis
func (n *Neighbors) Min(axis Axis) int { return n.min[axis] }

// Max returns the arena index of the neighbor on the plus side of axis
func (n *Neighbors) Max(axis Axis) int { return n.max[axis] }

// Complete is true when every active axis has both neighbors linked
func (n *Neighbors) Complete() bool {
	for a := 0; a < n.dim; a++ {
		if n.min[a] == NoNeighbor || n.max[a] == NoNeighbor {
			return false
		}
	}
	return true
}

func (n *Neighbors) checkAxis(axis Axis) {
	if int(axis) >= n.dim {
		panic(fmt.Sprintf("axis %s is outside a %d-axis neighbor topology", axis, n.dim))
	}
}
