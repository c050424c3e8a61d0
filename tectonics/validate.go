package tectonics

import (
	"fmt"

	"github.com/pthm-cable/tecton/mesh"
)

// Inputs bundles the upstream artifacts the pipeline consumes.
type Inputs struct {
	Mesh   *mesh.Mesh
	Plates *PlateGraph
	Motion *PlateMotion
	Crust  *Crust
	Mantle *MantleForcing
}

func requireMesh(stage string, m *mesh.Mesh) error {
	if err := m.Validate(); err != nil {
		return &StageError{Stage: stage, Err: fmt.Errorf("%w: %v", ErrShape, err)}
	}
	return nil
}

func requirePlates(stage string, g *PlateGraph, cellCount int) error {
	if g == nil {
		return &StageError{Stage: stage, Err: fmt.Errorf("%w: plate graph not provided", ErrShape)}
	}
	if err := checkLen(stage, "plateGraph.cellToPlate", len(g.CellToPlate), cellCount); err != nil {
		return err
	}
	if len(g.Plates) == 0 || len(g.Plates) > 32767 {
		return &StageError{Stage: stage, Err: fmt.Errorf("%w: plate count %d outside [1,32767]", ErrShape, len(g.Plates))}
	}
	for k, pl := range g.Plates {
		if int(pl.ID) != k {
			return &StageError{Stage: stage, Err: fmt.Errorf("%w: plates[%d].id = %d, ids must be dense", ErrShape, k, pl.ID)}
		}
	}
	n := int16(len(g.Plates))
	for i, id := range g.CellToPlate {
		if id < Unassigned || id >= n {
			return &StageError{Stage: stage, Err: fmt.Errorf("%w: cellToPlate[%d] = %d outside [-1,%d)", ErrShape, i, id, n)}
		}
	}
	return nil
}

func requireMotion(stage string, pm *PlateMotion, plateCount int) error {
	if pm == nil {
		return &StageError{Stage: stage, Err: fmt.Errorf("%w: plate motion not provided", ErrShape)}
	}
	if err := checkLen(stage, "plateMotion.velocity", len(pm.Velocity), plateCount); err != nil {
		return err
	}
	if len(pm.Omega) != 0 {
		if err := checkLen(stage, "plateMotion.omega", len(pm.Omega), plateCount); err != nil {
			return err
		}
		if err := checkLen(stage, "plateMotion.center", len(pm.Center), plateCount); err != nil {
			return err
		}
	}
	return nil
}

func requireCrust(stage string, c *Crust, cellCount int) error {
	if c == nil {
		return &StageError{Stage: stage, Err: fmt.Errorf("%w: crust not provided", ErrShape)}
	}
	if err := checkLen(stage, "crust.type", len(c.Type), cellCount); err != nil {
		return err
	}
	if err := checkLen(stage, "crust.age", len(c.Age), cellCount); err != nil {
		return err
	}
	return checkLen(stage, "crust.baseElevation", len(c.BaseElevation), cellCount)
}

func requireMantle(stage string, mf *MantleForcing, cellCount int) error {
	if mf == nil {
		return &StageError{Stage: stage, Err: fmt.Errorf("%w: mantle forcing not provided", ErrShape)}
	}
	if err := checkLen(stage, "mantle.upwelling", len(mf.Upwelling), cellCount); err != nil {
		return err
	}
	return checkLen(stage, "mantle.flow", len(mf.Flow), cellCount)
}

func requireEraFields(stage string, eras []*EraFields, eraCount, cellCount int) error {
	if err := checkLen(stage, "eras", len(eras), eraCount); err != nil {
		return err
	}
	for e, f := range eras {
		if f == nil {
			return &StageError{Stage: stage, Err: fmt.Errorf("%w: era %d fields missing", ErrShape, e)}
		}
		if err := f.checkShape(stage, fmt.Sprintf("eras[%d]", e), cellCount); err != nil {
			return err
		}
	}
	return nil
}

func requirePlateIDsByEra(stage string, ids [][]int16, eraCount, cellCount int) error {
	if err := checkLen(stage, "plateIdByEra", len(ids), eraCount); err != nil {
		return err
	}
	for e, arr := range ids {
		if err := checkLen(stage, fmt.Sprintf("plateIdByEra[%d]", e), len(arr), cellCount); err != nil {
			return err
		}
	}
	return nil
}

func (f *EraFields) checkShape(stage, prefix string, cellCount int) error {
	buffers := []struct {
		name string
		n    int
	}{
		{"boundaryType", len(f.BoundaryType)},
		{"upliftPotential", len(f.UpliftPotential)},
		{"riftPotential", len(f.RiftPotential)},
		{"shearStress", len(f.ShearStress)},
		{"volcanism", len(f.Volcanism)},
		{"fracture", len(f.Fracture)},
	}
	for _, b := range buffers {
		if err := checkLen(stage, prefix+"."+b.name, b.n, cellCount); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks every input buffer against the mesh cell count.
func (in *Inputs) Validate() error {
	if err := requireMesh(StageInputs, in.Mesh); err != nil {
		return err
	}
	n := in.Mesh.CellCount
	if err := requirePlates(StageInputs, in.Plates, n); err != nil {
		return err
	}
	if err := requireMotion(StageInputs, in.Motion, len(in.Plates.Plates)); err != nil {
		return err
	}
	if err := requireCrust(StageInputs, in.Crust, n); err != nil {
		return err
	}
	return requireMantle(StageInputs, in.Mantle, n)
}
