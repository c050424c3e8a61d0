package tectonics

import (
	"testing"

	"github.com/pthm-cable/tecton/config"
	"github.com/pthm-cable/tecton/mesh"
	"gonum.org/v1/gonum/spatial/r2"
)

func init() {
	config.MustInit("")
}

// gridMesh builds a w x h 4-neighbor grid that wraps in X only.
func gridMesh(w, h int) *mesh.Mesh {
	m := &mesh.Mesh{
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

// splitPlates assigns columns [0, split) to plate 0 and the rest to plate 1.
func splitPlates(m *mesh.Mesh, w, split int) *PlateGraph {
	g := &PlateGraph{
		Plates:      []Plate{{ID: 0}, {ID: 1}},
		CellToPlate: make([]int16, m.CellCount),
	}
	for i := range g.CellToPlate {
		if i%w >= split {
			g.CellToPlate[i] = 1
		}
	}
	return g
}

func uniformCrust(n int, t CrustType) *Crust {
	c := &Crust{
		Type:          make([]CrustType, n),
		Age:           make([]uint8, n),
		BaseElevation: make([]float64, n),
	}
	for i := range c.Type {
		c.Type[i] = t
	}
	return c
}

func blankEra(n int) *EraFields {
	f := &EraFields{
		BoundaryType:        make([]uint8, n),
		UpliftPotential:     make([]uint8, n),
		RiftPotential:       make([]uint8, n),
		ShearStress:         make([]uint8, n),
		Volcanism:           make([]uint8, n),
		Fracture:            make([]uint8, n),
		CollisionPotential:  make([]uint8, n),
		SubductionPotential: make([]uint8, n),
		BoundaryIntensity:   make([]uint8, n),
		VolcanismSource:     make([]EventType, n),
		VolcanismPlate:      make([]int16, n),
		RiftPlate:           make([]int16, n),
	}
	for i := 0; i < n; i++ {
		f.VolcanismPlate[i] = Unassigned
		f.RiftPlate[i] = Unassigned
	}
	return f
}

func defaultParams(t *testing.T) *Params {
	t.Helper()
	p, err := NewParams(config.Cfg())
	if err != nil {
		t.Fatalf("NewParams: %v", err)
	}
	return p
}
