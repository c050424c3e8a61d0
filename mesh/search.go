package mesh

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Unreached marks cells outside a bounded search.
const Unreached int32 = -1

// HopField is a reusable scratch buffer for bounded breadth-first searches.
// A cell's distance is valid only when its stamp matches the current token,
// so consecutive searches cost O(reached) instead of O(cellCount).
type HopField struct {
	dist  []int32
	stamp []uint32
	token uint32
	queue []int32
	order []int32
}

// NewHopField allocates scratch for a mesh of cellCount cells.
func NewHopField(cellCount int) *HopField {
	return &HopField{
		dist:  make([]int32, cellCount),
		stamp: make([]uint32, cellCount),
		queue: make([]int32, 0, 64),
		order: make([]int32, 0, 64),
	}
}

// Dist returns the hop distance of cell from the last search, or Unreached.
func (h *HopField) Dist(cell int) int32 {
	if h.stamp[cell] != h.token {
		return Unreached
	}
	return h.dist[cell]
}

// Reached returns the cells visited by the last search in BFS order
// (non-decreasing hop distance, ascending neighbor order within a ring).
// The slice is reused by the next search.
func (h *HopField) Reached() []int32 {
	return h.order
}

// Search runs a multi-source BFS capped at maxHops. Sources out of range are ignored.
func (h *HopField) Search(m *Mesh, sources []int32, maxHops int) {
	h.token++
	if h.token == 0 {
		for i := range h.stamp {
			h.stamp[i] = 0
		}
		h.token = 1
	}
	h.queue = h.queue[:0]
	h.order = h.order[:0]

	for _, s := range sources {
		if s < 0 || int(s) >= m.CellCount || h.stamp[s] == h.token {
			continue
		}
		h.stamp[s] = h.token
		h.dist[s] = 0
		h.queue = append(h.queue, s)
	}

	for head := 0; head < len(h.queue); head++ {
		c := h.queue[head]
		h.order = append(h.order, c)
		d := h.dist[c]
		if int(d) >= maxHops {
			continue
		}
		for _, n := range m.NeighborsOf(int(c)) {
			if h.stamp[n] == h.token {
				continue
			}
			h.stamp[n] = h.token
			h.dist[n] = d + 1
			h.queue = append(h.queue, n)
		}
	}
}

// HopDistances returns the full hop-distance array from sources, Unreached beyond maxHops.
func HopDistances(m *Mesh, sources []int32, maxHops int) []int32 {
	h := NewHopField(m.CellCount)
	h.Search(m, sources, maxHops)
	out := make([]int32, m.CellCount)
	for i := range out {
		out[i] = h.Dist(i)
	}
	return out
}

// Snap walks greedily from start toward target, moving to the neighbor
// closest to target while that strictly improves the distance. Ties between
// neighbors go to the lowest cell index. Cost is proportional to the walk length.
func (m *Mesh) Snap(start int, target r2.Vec) int {
	cell := start
	best := m.Dist2(cell, target)
	for {
		next := -1
		nextDist := best
		for _, n := range m.NeighborsOf(cell) {
			d := m.Dist2(int(n), target)
			if d < nextDist || (d == nextDist && next >= 0 && int(n) < next) {
				nextDist = d
				next = int(n)
			}
		}
		if next < 0 || !(nextDist < best) {
			return cell
		}
		cell = next
		best = nextDist
	}
}

// SnapStep is Snap limited to one hop: it returns start or its best neighbor.
func (m *Mesh) SnapStep(start int, target r2.Vec) int {
	best := start
	bestDist := m.Dist2(start, target)
	for _, n := range m.NeighborsOf(start) {
		d := m.Dist2(int(n), target)
		if d < bestDist || (d == bestDist && int(n) < best) {
			bestDist = d
			best = int(n)
		}
	}
	return best
}

// NearestCell is a global linear scan. Only used for validation and fixtures.
func (m *Mesh) NearestCell(p r2.Vec) int {
	best := -1
	bestDist := math.Inf(1)
	for i := 0; i < m.CellCount; i++ {
		if d := m.Dist2(i, p); d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

// IsAdjacent reports whether b is a or one of a's neighbors.
func (m *Mesh) IsAdjacent(a, b int) bool {
	if a == b {
		return true
	}
	for _, n := range m.NeighborsOf(a) {
		if int(n) == b {
			return true
		}
	}
	return false
}
