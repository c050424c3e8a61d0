package mesh

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

// gridMesh builds a w x h 4-neighbor grid that wraps in X only.
func gridMesh(w, h int) *Mesh {
	m := &Mesh{
		CellCount:       w * h,
		WrapWidth:       float64(w),
		Sites:           make([]r2.Vec, w*h),
		NeighborOffsets: make([]int32, w*h+1),
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			m.Sites[i] = r2.Vec{X: float64(x), Y: float64(y)}
			if y > 0 {
				m.Neighbors = append(m.Neighbors, int32((y-1)*w+x))
			}
			m.Neighbors = append(m.Neighbors, int32(y*w+(x+w-1)%w))
			m.Neighbors = append(m.Neighbors, int32(y*w+(x+1)%w))
			if y < h-1 {
				m.Neighbors = append(m.Neighbors, int32((y+1)*w+x))
			}
			m.NeighborOffsets[i+1] = int32(len(m.Neighbors))
		}
	}
	return m
}

func TestValidate(t *testing.T) {
	good := gridMesh(6, 4)
	if err := good.Validate(); err != nil {
		t.Fatalf("valid mesh rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(m *Mesh)
	}{
		{"zero cells", func(m *Mesh) { m.CellCount = 0 }},
		{"bad wrap", func(m *Mesh) { m.WrapWidth = 0 }},
		{"short sites", func(m *Mesh) { m.Sites = m.Sites[:3] }},
		{"short offsets", func(m *Mesh) { m.NeighborOffsets = m.NeighborOffsets[:5] }},
		{"neighbor out of range", func(m *Mesh) { m.Neighbors[0] = int32(m.CellCount) }},
		{"negative neighbor", func(m *Mesh) { m.Neighbors[1] = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := gridMesh(6, 4)
			tt.mutate(m)
			if err := m.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestWrapDelta(t *testing.T) {
	m := gridMesh(10, 2)
	tests := []struct {
		dx, want float64
	}{
		{0, 0},
		{3, 3},
		{-3, -3},
		{9, -1},
		{-9, 1},
		{5, 5},
		{21, 1},
	}
	for _, tt := range tests {
		if got := m.WrapDelta(tt.dx); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("WrapDelta(%v) = %v, want %v", tt.dx, got, tt.want)
		}
	}

	if w := m.Wrap(r2.Vec{X: -0.5, Y: 1}); math.Abs(w.X-9.5) > 1e-12 || w.Y != 1 {
		t.Errorf("Wrap(-0.5) = %v, want {9.5 1}", w)
	}
}

func TestMeanEdgeLen(t *testing.T) {
	m := gridMesh(8, 5)
	if got := m.MeanEdgeLen(); math.Abs(got-1) > 1e-12 {
		t.Errorf("MeanEdgeLen = %v, want 1 on a unit grid", got)
	}
}

func TestHopDistancesBounded(t *testing.T) {
	m := gridMesh(10, 10)
	src := int32(5*10 + 5)
	dist := HopDistances(m, []int32{src}, 3)

	for i := 0; i < m.CellCount; i++ {
		x, y := i%10, i/10
		dx := x - 5
		if dx < 0 {
			dx = -dx
		}
		if dx > 5 {
			dx = 10 - dx
		}
		dy := y - 5
		if dy < 0 {
			dy = -dy
		}
		manhattan := int32(dx + dy)
		want := manhattan
		if manhattan > 3 {
			want = Unreached
		}
		if dist[i] != want {
			t.Fatalf("dist[%d] (x=%d,y=%d) = %d, want %d", i, x, y, dist[i], want)
		}
	}
}

func TestHopFieldReuse(t *testing.T) {
	m := gridMesh(6, 6)
	h := NewHopField(m.CellCount)

	h.Search(m, []int32{0}, 1)
	if h.Dist(0) != 0 || h.Dist(1) != 1 {
		t.Fatalf("first search distances wrong: %d %d", h.Dist(0), h.Dist(1))
	}
	h.Search(m, []int32{35}, 0)
	if h.Dist(0) != Unreached {
		t.Errorf("stale distance leaked across searches: %d", h.Dist(0))
	}
	if len(h.Reached()) != 1 || h.Reached()[0] != 35 {
		t.Errorf("Reached = %v, want [35]", h.Reached())
	}
}

func TestSnapMatchesNearest(t *testing.T) {
	m := gridMesh(12, 8)
	targets := []r2.Vec{
		{X: 3.2, Y: 4.1},
		{X: 11.6, Y: 2.0}, // wraps to x=0
		{X: 0.2, Y: 7.4},
	}
	for _, p := range targets {
		got := m.Snap(0, p)
		want := m.NearestCell(p)
		if got != want {
			t.Errorf("Snap(0, %v) = %d, NearestCell = %d", p, got, want)
		}
	}
}

func TestSnapStepStaysAdjacent(t *testing.T) {
	m := gridMesh(12, 8)
	start := 3*12 + 3
	got := m.SnapStep(start, r2.Vec{X: 9, Y: 7})
	if !m.IsAdjacent(start, got) {
		t.Errorf("SnapStep moved %d -> %d, not adjacent", start, got)
	}
	if got == start {
		t.Error("SnapStep did not move toward a distant target")
	}
}

func TestSnapTieBreaksLowestIndex(t *testing.T) {
	m := gridMesh(5, 5)
	// From the center, target exactly between the upper and left neighbors.
	center := 2*5 + 2
	target := r2.Vec{X: 1.5, Y: 1.5}
	got := m.SnapStep(center, target)
	// Up neighbor (index 7) and left neighbor (index 11) are equidistant; center is equidistant too
	// but a neighbor only replaces on a strictly closer distance or equal distance with a lower index.
	if got != 7 {
		t.Errorf("SnapStep tie = %d, want 7", got)
	}
}
