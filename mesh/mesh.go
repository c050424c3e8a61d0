// Package mesh provides the read-only cell graph the tectonic stages traverse.
//
// Adjacency is stored CSR-style: the neighbors of cell i are
// Neighbors[NeighborOffsets[i]:NeighborOffsets[i+1]]. Positions wrap
// horizontally with period WrapWidth.
package mesh

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Mesh is a cell graph with site positions and periodic X adjacency.
type Mesh struct {
	CellCount       int
	WrapWidth       float64
	Sites           []r2.Vec
	NeighborOffsets []int32
	Neighbors       []int32
}

// Validate checks buffer shapes and that every neighbor index is in range.
func (m *Mesh) Validate() error {
	if m == nil {
		return fmt.Errorf("mesh is nil")
	}
	if m.CellCount <= 0 {
		return fmt.Errorf("mesh cellCount %d must be positive", m.CellCount)
	}
	if !(m.WrapWidth > 0) || math.IsInf(m.WrapWidth, 0) {
		return fmt.Errorf("mesh wrapWidth %v must be finite and positive", m.WrapWidth)
	}
	if len(m.Sites) != m.CellCount {
		return fmt.Errorf("mesh sites length %d != cellCount %d", len(m.Sites), m.CellCount)
	}
	if len(m.NeighborOffsets) != m.CellCount+1 {
		return fmt.Errorf("mesh neighborOffsets length %d != cellCount+1 %d", len(m.NeighborOffsets), m.CellCount+1)
	}
	if m.NeighborOffsets[0] != 0 || int(m.NeighborOffsets[m.CellCount]) != len(m.Neighbors) {
		return fmt.Errorf("mesh neighborOffsets do not span neighbors (0..%d)", len(m.Neighbors))
	}
	for i := 0; i < m.CellCount; i++ {
		if m.NeighborOffsets[i+1] < m.NeighborOffsets[i] {
			return fmt.Errorf("mesh neighborOffsets decrease at cell %d", i)
		}
	}
	for k, n := range m.Neighbors {
		if n < 0 || int(n) >= m.CellCount {
			return fmt.Errorf("mesh neighbor[%d] = %d out of range [0,%d)", k, n, m.CellCount)
		}
	}
	return nil
}

// NeighborsOf returns the neighbor slice of a cell. The slice aliases mesh storage.
func (m *Mesh) NeighborsOf(cell int) []int32 {
	return m.Neighbors[m.NeighborOffsets[cell]:m.NeighborOffsets[cell+1]]
}

// WrapDelta maps a horizontal difference into [-WrapWidth/2, WrapWidth/2].
func (m *Mesh) WrapDelta(dx float64) float64 {
	w := m.WrapWidth
	if w <= 0 {
		return dx
	}
	half := w * 0.5
	if dx > half || dx < -half {
		dx -= w * math.Round(dx/w)
	}
	return dx
}

// Delta returns the shortest displacement from a to b under horizontal wrap.
func (m *Mesh) Delta(a, b r2.Vec) r2.Vec {
	return r2.Vec{X: m.WrapDelta(b.X - a.X), Y: b.Y - a.Y}
}

// Wrap folds a position back into [0, WrapWidth) horizontally.
func (m *Mesh) Wrap(p r2.Vec) r2.Vec {
	if m.WrapWidth > 0 {
		p.X = math.Mod(p.X, m.WrapWidth)
		if p.X < 0 {
			p.X += m.WrapWidth
		}
	}
	return p
}

// Dist2 is the squared wrapped distance between a site and a point.
func (m *Mesh) Dist2(cell int, p r2.Vec) float64 {
	return r2.Norm2(m.Delta(m.Sites[cell], p))
}

// MeanEdgeLen averages the wrapped length of each undirected edge.
// Returns 1 for a mesh without usable edges.
func (m *Mesh) MeanEdgeLen() float64 {
	var sum float64
	var count int
	for i := 0; i < m.CellCount; i++ {
		a := m.Sites[i]
		for _, n := range m.NeighborsOf(i) {
			if int(n) <= i {
				continue
			}
			l := r2.Norm(m.Delta(a, m.Sites[n]))
			if math.IsNaN(l) || math.IsInf(l, 0) || l <= 1e-9 {
				continue
			}
			sum += l
			count++
		}
	}
	if count == 0 {
		return 1
	}
	return sum / float64(count)
}
