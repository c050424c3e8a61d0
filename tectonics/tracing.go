package tectonics

import (
	"fmt"

	"github.com/pthm-cable/tecton/mesh"
	"gonum.org/v1/gonum/spatial/r2"
)

// ComputeTracerIndexByEra advects one tracer per current cell backward
// through the mantle flow. tracer[era][i] is the cell where cell i's crust
// sat in that era. The newest era is the identity. Each older era moves a
// tracer at most one hop from where it sat in the following era.
//
// A tracer keeps a continuous position. Per era it is displaced against
// the flow sampled at its cell, at most one mean edge length, split into
// stepsPerEra sub-steps. stepsPerEra of 0 freezes every tracer.
func ComputeTracerIndexByEra(m *mesh.Mesh, mantle *MantleForcing, eraCount, stepsPerEra int) ([][]int32, error) {
	if err := requireMesh(StageTracers, m); err != nil {
		return nil, err
	}
	if eraCount < MinEras || eraCount > MaxEras {
		return nil, rangeError(StageTracers, "eraCount %d outside [%d,%d]", eraCount, MinEras, MaxEras)
	}
	if stepsPerEra < 0 || stepsPerEra > maxAdvection {
		return nil, rangeError(StageTracers, "advectionStepsPerEra %d outside [0,%d]", stepsPerEra, maxAdvection)
	}
	if err := requireMantle(StageTracers, mantle, m.CellCount); err != nil {
		return nil, err
	}

	n := m.CellCount
	edge := m.MeanEdgeLen()
	scale := edge / meanFlowSpeed(mantle.Flow)

	tracer := make([][]int32, eraCount)
	for e := range tracer {
		tracer[e] = make([]int32, n)
	}
	newest := eraCount - 1
	for i := 0; i < n; i++ {
		tracer[newest][i] = int32(i)
	}
	if stepsPerEra == 0 {
		for e := 0; e < newest; e++ {
			copy(tracer[e], tracer[newest])
		}
		return tracer, nil
	}

	sub := 1 / float64(stepsPerEra)
	for i := 0; i < n; i++ {
		pos := m.Sites[i]
		cell := i
		for e := newest - 1; e >= 0; e-- {
			anchor := cell
			for s := 0; s < stepsPerEra; s++ {
				under := m.SnapStep(anchor, pos)
				d := eraDisplacement(mantle.Flow[under], scale, edge)
				pos = m.Wrap(r2.Sub(pos, r2.Scale(sub, d)))
			}
			cell = m.SnapStep(anchor, pos)
			tracer[e][i] = int32(cell)
		}
	}
	return tracer, nil
}

// eraDisplacement is the per-era displacement along f, capped at one edge length.
func eraDisplacement(f r2.Vec, scale, edge float64) r2.Vec {
	if !finitePoint(f) {
		return r2.Vec{}
	}
	d := r2.Scale(scale, f)
	if l := r2.Norm(d); l > edge {
		d = r2.Scale(edge/l, d)
	}
	return d
}

// meanFlowSpeed is the mean flow magnitude, 1 for a still mantle.
func meanFlowSpeed(flow []r2.Vec) float64 {
	var sum float64
	var count int
	for _, f := range flow {
		s := r2.Norm(f)
		if !finite(s) {
			continue
		}
		sum += s
		count++
	}
	if count == 0 || sum <= 1e-12 {
		return 1
	}
	return sum / float64(count)
}

// checkTracers validates tracer shape and index range.
func checkTracers(stage string, tracer [][]int32, eraCount, cellCount int) error {
	if err := checkLen(stage, "tracerIndex", len(tracer), eraCount); err != nil {
		return err
	}
	for e, row := range tracer {
		if err := checkLen(stage, fmt.Sprintf("tracerIndex[%d]", e), len(row), cellCount); err != nil {
			return err
		}
		for i, c := range row {
			if c < 0 || int(c) >= cellCount {
				return &StageError{Stage: stage, Err: fmt.Errorf("%w: tracerIndex[%d][%d] = %d outside [0,%d)", ErrShape, e, i, c, cellCount)}
			}
		}
	}
	return nil
}
