package tectonics

import (
	"math"

	"github.com/pthm-cable/tecton/mesh"
	"gonum.org/v1/gonum/spatial/r2"
)

// BuildBoundarySegments lists every edge (a < b) whose cells belong to different
// assigned plates in one era, with its regime, polarity and intensities.
// Output order is ascending (a, neighbor slot), so it is deterministic.
func BuildBoundarySegments(m *mesh.Mesh, plateIDs []int16, motion *PlateMotion, crust *Crust, p *Params) []Segment {
	speed := meanPlateSpeed(motion)

	var out []Segment
	for a := 0; a < m.CellCount; a++ {
		pa := plateIDs[a]
		if pa < 0 {
			continue
		}
		for _, bn := range m.NeighborsOf(a) {
			b := int(bn)
			if b <= a {
				continue
			}
			pb := plateIDs[b]
			if pb < 0 || pb == pa {
				continue
			}
			seg, ok := deriveSegment(m, a, b, pa, pb, motion, crust, speed, p)
			if ok {
				out = append(out, seg)
			}
		}
	}
	return out
}

func deriveSegment(m *mesh.Mesh, a, b int, pa, pb int16, motion *PlateMotion, crust *Crust, speed float64, p *Params) (Segment, bool) {
	d := m.Delta(m.Sites[a], m.Sites[b])
	l := r2.Norm(d)
	if !(l > 1e-9) || math.IsInf(l, 0) {
		return Segment{}, false
	}
	normal := r2.Scale(1/l, d) // points from A to B
	tangent := r2.Vec{X: -normal.Y, Y: normal.X}
	mid := m.Wrap(r2.Add(m.Sites[a], r2.Scale(0.5, d)))

	va := motion.VelocityAt(int(pa), plateOffset(m, motion, int(pa), mid))
	vb := motion.VelocityAt(int(pb), plateOffset(m, motion, int(pb), mid))
	rel := r2.Scale(1/speed, r2.Sub(va, vb))

	// Positive closing speed means A moves toward B faster than B retreats.
	vn := r2.Dot(rel, normal)
	vt := r2.Dot(rel, tangent)

	resist := crustResistance(crust, a, b)
	compression := clamp01(math.Max(vn, 0) * p.SegmentIntensityScale * (0.85 + 0.3*resist))
	extension := clamp01(math.Max(-vn, 0) * p.SegmentIntensityScale * (0.85 + 0.3*(1-resist)))
	shear := clamp01(math.Abs(vt) * p.SegmentIntensityScale * (0.9 + 0.2*(1-resist)))

	seg := Segment{
		ACell:       int32(a),
		BCell:       int32(b),
		PlateA:      pa,
		PlateB:      pb,
		Compression: compression,
		Extension:   extension,
		Shear:       shear,
	}
	peak := math.Max(compression, math.Max(extension, shear))
	if peak < p.RegimeMinIntensity || peak <= 0 {
		seg.Regime = BoundaryNone
		return seg, true
	}
	switch {
	case compression >= extension && compression >= shear:
		seg.Regime = BoundaryConvergent
		seg.Polarity = subductionPolarity(crust.Type[a], crust.Type[b])
	case extension >= shear:
		seg.Regime = BoundaryDivergent
	default:
		seg.Regime = BoundaryTransform
	}
	return seg, true
}

// subductionPolarity sends oceanic crust under continental crust.
// Matching crust types collide instead.
func subductionPolarity(a, b CrustType) int8 {
	switch {
	case a == CrustContinental && b == CrustOceanic:
		return 1
	case a == CrustOceanic && b == CrustContinental:
		return -1
	}
	return 0
}

// crustResistance blends crust type, age and buoyancy of both sides into [0,1].
func crustResistance(c *Crust, a, b int) float64 {
	return clamp01(0.5 * (cellStrength(c, a) + cellStrength(c, b)))
}

func cellStrength(c *Crust, i int) float64 {
	s := 0.3 + 0.15*float64(c.Age[i])/255
	if c.Type[i] == CrustContinental {
		s += 0.4
	}
	if be := c.BaseElevation[i]; finite(be) {
		s += 0.15 * clamp01(0.5+0.5*be)
	}
	return s
}
