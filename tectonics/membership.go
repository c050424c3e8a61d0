package tectonics

import (
	"math"

	"github.com/pthm-cable/tecton/mesh"
	"gonum.org/v1/gonum/spatial/r2"
)

// snapSlack is how far, in mean edge lengths, a drifted position may sit from
// its snapped cell before the parcel is treated as off the mesh.
const snapSlack = 1.5

// ComputeEraMembership projects the current plate partition backward through
// time. Era e is reached by stepping every cell driftStepsByEra[e] times against
// its owning plate's velocity and reading the plate id where it lands.
// Era 0 is the oldest; the newest era usually carries the fewest steps.
func ComputeEraMembership(m *mesh.Mesh, graph *PlateGraph, motion *PlateMotion, eraWeights []float64, driftStepsByEra []int) (*Membership, error) {
	if err := ValidateEraKnobs(eraWeights, driftStepsByEra); err != nil {
		return nil, err
	}
	for era, s := range driftStepsByEra {
		if s < 0 || s > maxDriftSteps {
			return nil, rangeError(StageMembership, "driftStepsByEra[%d] = %d outside [0,%d]", era, s, maxDriftSteps)
		}
	}
	if err := requireMesh(StageMembership, m); err != nil {
		return nil, err
	}
	if err := requirePlates(StageMembership, graph, m.CellCount); err != nil {
		return nil, err
	}
	if err := requireMotion(StageMembership, motion, len(graph.Plates)); err != nil {
		return nil, err
	}

	eraCount := len(eraWeights)
	maxSteps := 0
	for _, s := range driftStepsByEra {
		maxSteps = max(maxSteps, s)
	}

	n := m.CellCount
	edge := m.MeanEdgeLen()
	scale := edge / meanPlateSpeed(motion)
	limit2 := (snapSlack * edge) * (snapSlack * edge)

	// atStep[s][i] is the plate found under cell i after s drift steps.
	atStep := make([][]int16, maxSteps+1)
	for s := range atStep {
		atStep[s] = make([]int16, n)
	}

	for i := 0; i < n; i++ {
		plate := graph.CellToPlate[i]
		atStep[0][i] = plate
		if plate < 0 {
			for s := 1; s <= maxSteps; s++ {
				atStep[s][i] = Unassigned
			}
			continue
		}
		pos := m.Sites[i]
		cell := i
		lost := false
		for s := 1; s <= maxSteps; s++ {
			if !lost {
				v := motion.VelocityAt(int(plate), plateOffset(m, motion, int(plate), pos))
				pos = m.Wrap(r2.Sub(pos, r2.Scale(scale, v)))
				if !finitePoint(pos) {
					lost = true
				} else {
					cell = m.Snap(cell, pos)
					lost = m.Dist2(cell, pos) > limit2
				}
			}
			if lost {
				atStep[s][i] = Unassigned
				continue
			}
			atStep[s][i] = graph.CellToPlate[cell]
		}
	}

	out := &Membership{
		EraCount:     eraCount,
		EraWeights:   append([]float64(nil), eraWeights...),
		PlateIDByEra: make([][]int16, eraCount),
	}
	for era, s := range driftStepsByEra {
		out.PlateIDByEra[era] = append([]int16(nil), atStep[s]...)
	}
	return out, nil
}

// plateOffset is the wrapped displacement from a plate's rotation center to p.
func plateOffset(m *mesh.Mesh, motion *PlateMotion, plate int, p r2.Vec) r2.Vec {
	if len(motion.Center) == 0 {
		return r2.Vec{}
	}
	return m.Delta(motion.Center[plate], p)
}

// meanPlateSpeed is the mean translation speed over plates, 1 when all are still.
func meanPlateSpeed(motion *PlateMotion) float64 {
	var sum float64
	var count int
	for _, v := range motion.Velocity {
		s := r2.Norm(v)
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

func finitePoint(p r2.Vec) bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}
