package synth

import (
	"math"
	"math/rand"

	"github.com/pthm-cable/tecton/mesh"
	"github.com/pthm-cable/tecton/tectonics"
	"gonum.org/v1/gonum/spatial/r2"
)

// continentalShare is the probability that a plate carries continental crust.
const continentalShare = 0.4

// PartitionPlates seeds count plates at distinct random cells and grows them
// by multi-source BFS. A cell reached by two plates in the same ring goes to
// whichever was queued first, which is the lower plate id.
func PartitionPlates(m *mesh.Mesh, count int, rng *rand.Rand) *tectonics.PlateGraph {
	count = max(1, min(count, m.CellCount))
	perm := rng.Perm(m.CellCount)

	g := &tectonics.PlateGraph{
		Plates:      make([]tectonics.Plate, count),
		CellToPlate: make([]int16, m.CellCount),
	}
	for i := range g.CellToPlate {
		g.CellToPlate[i] = tectonics.Unassigned
	}

	queue := make([]int32, 0, m.CellCount)
	for k := 0; k < count; k++ {
		seed := perm[k]
		g.Plates[k] = tectonics.Plate{ID: int16(k), Seed: m.Sites[seed]}
		g.CellToPlate[seed] = int16(k)
		queue = append(queue, int32(seed))
	}
	for head := 0; head < len(queue); head++ {
		c := queue[head]
		owner := g.CellToPlate[c]
		for _, n := range m.NeighborsOf(int(c)) {
			if g.CellToPlate[n] != tectonics.Unassigned {
				continue
			}
			g.CellToPlate[n] = owner
			queue = append(queue, n)
		}
	}
	return g
}

// RandomMotion gives each plate a random heading, a speed in [0.5, 1.5) and a
// small spin about its seed.
func RandomMotion(g *tectonics.PlateGraph, rng *rand.Rand) *tectonics.PlateMotion {
	n := len(g.Plates)
	pm := &tectonics.PlateMotion{
		Velocity: make([]r2.Vec, n),
		Omega:    make([]float64, n),
		Center:   make([]r2.Vec, n),
	}
	for k, p := range g.Plates {
		angle := rng.Float64() * 2 * math.Pi
		speed := 0.5 + rng.Float64()
		pm.Velocity[k] = r2.Vec{X: speed * math.Cos(angle), Y: speed * math.Sin(angle)}
		pm.Omega[k] = (rng.Float64()*2 - 1) * 0.02
		pm.Center[k] = p.Seed
	}
	return pm
}

// RandomCrust marks whole plates continental or oceanic. Continental crust is
// old and high-standing, oceanic crust young and low.
func RandomCrust(g *tectonics.PlateGraph, rng *rand.Rand) *tectonics.Crust {
	continental := make([]bool, len(g.Plates))
	for k := range continental {
		continental[k] = rng.Float64() < continentalShare
	}

	n := len(g.CellToPlate)
	c := &tectonics.Crust{
		Type:          make([]tectonics.CrustType, n),
		Age:           make([]uint8, n),
		BaseElevation: make([]float64, n),
	}
	for i, plate := range g.CellToPlate {
		jitter := rng.Float64()
		if plate >= 0 && continental[plate] {
			c.Type[i] = tectonics.CrustContinental
			c.Age[i] = uint8(140 + jitter*115)
			c.BaseElevation[i] = 0.2 + 0.3*jitter
			continue
		}
		c.Type[i] = tectonics.CrustOceanic
		c.Age[i] = uint8(jitter * 120)
		c.BaseElevation[i] = -0.7 + 0.3*jitter
	}
	return c
}
