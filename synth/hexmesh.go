package synth

import (
	"fmt"
	"math"
	"slices"

	"github.com/pthm-cable/tecton/mesh"
	"gonum.org/v1/gonum/spatial/r2"
)

// rowHeight is the vertical spacing of an odd-r offset hex grid with unit edges.
var rowHeight = math.Sqrt(3) / 2

// HexMesh builds a w x h odd-r offset hex grid that wraps in X.
// Cell (x, y) has index y*w + x. Odd rows shift right by half a cell.
func HexMesh(w, h int) (*mesh.Mesh, error) {
	if w < 3 || h < 1 {
		return nil, fmt.Errorf("hex mesh %dx%d: need width >= 3 and height >= 1", w, h)
	}
	n := w * h
	m := &mesh.Mesh{
		CellCount:       n,
		WrapWidth:       float64(w),
		Sites:           make([]r2.Vec, n),
		NeighborOffsets: make([]int32, n+1),
		Neighbors:       make([]int32, 0, n*6),
	}

	wrapX := func(x int) int { return ((x % w) + w) % w }
	var buf []int32
	for y := 0; y < h; y++ {
		shift := y & 1
		for x := 0; x < w; x++ {
			i := y*w + x
			m.Sites[i] = r2.Vec{X: float64(x) + 0.5*float64(shift), Y: float64(y) * rowHeight}

			buf = buf[:0]
			buf = append(buf, int32(y*w+wrapX(x-1)), int32(y*w+wrapX(x+1)))
			for _, dy := range []int{-1, 1} {
				ny := y + dy
				if ny < 0 || ny >= h {
					continue
				}
				// Even rows reach back to x-1, odd rows forward to x+1.
				buf = append(buf, int32(ny*w+wrapX(x-1+shift)), int32(ny*w+wrapX(x+shift)))
			}
			slices.Sort(buf)
			buf = slices.Compact(buf)
			m.Neighbors = append(m.Neighbors, buf...)
			m.NeighborOffsets[i+1] = int32(len(m.Neighbors))
		}
	}
	return m, nil
}
