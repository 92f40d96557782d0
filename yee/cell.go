package yee

// Cell composes field storage, material response, neighbor topology and the
// per-axis absorbing layer into one updatable unit. It has no update logic of
// its own; operators drive every state transition.
//
// Named field accessors are reached through Fields, e.g. cell.Fields.SetDz(v),
// and only exist for the components active in the storage type's mode.
type Cell[F any, P FieldsPtr[F]] struct {
	Fields        F
	Polarization  Polarization
	Magnetization Magnetization
	Neighbors
	PML [3]AxisPML
}

// NewCell returns a vacuum cell with zero fields, no neighbors and no PML
func NewCell[F any, P FieldsPtr[F]]() (c Cell[F, P]) {
	c.Polarization = VacuumPolarization{}
	c.Magnetization = VacuumMagnetization{}
	c.Neighbors = NewNeighbors(c.Storage().Mode().Dim())
	for a := range c.PML {
		c.PML[a] = NoPML{}
	}
	return
}

// Storage exposes the fields through the uniform slot interface
func (c *Cell[F, P]) Storage() P {
	return P(&c.Fields)
}

// Mode returns the mode of the cell's field storage
func (c *Cell[F, P]) Mode() Mode {
	return c.Storage().Mode()
}

// SetPML installs the absorbing layer state for one axis
func (c *Cell[F, P]) SetPML(axis Axis, layer AxisPML) {
	c.Neighbors.checkAxis(axis)
	if layer == nil {
		layer = NoPML{}
	}
	c.PML[axis] = layer
}

// Get and Set access components chosen at run time, e.g. from configuration
func (c *Cell[F, P]) Get(comp Component) (float64, bool) { return Get(c.Storage(), comp) }

func (c *Cell[F, P]) Set(comp Component, v float64) bool { return Set(c.Storage(), comp, v) }

// Cell instantiations for each mode
type (
	CellTEM = Cell[FieldsTEM, *FieldsTEM]
	CellTE  = Cell[FieldsTE, *FieldsTE]
	CellTM  = Cell[FieldsTM, *FieldsTM]
	Cell3D  = Cell[Fields3D, *Fields3D]
)
