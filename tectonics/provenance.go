package tectonics

import (
	"github.com/pthm-cable/tecton/mesh"
	"gonum.org/v1/gonum/spatial/r2"
)

// resetLevels are one era's thresholds above which a traced cell counts as
// freshly created crust.
type resetLevels struct {
	rift, arc, hotspot uint8
}

func deriveResetLevels(f *EraFields, p *Params) resetLevels {
	var riftMax, arcMax, hotMax uint8
	for i := range f.BoundaryType {
		switch BoundaryType(f.BoundaryType[i]) {
		case BoundaryDivergent:
			riftMax = max(riftMax, f.RiftPotential[i])
		case BoundaryConvergent:
			if volcanismSource(f, i) == EventConvergentSubduction {
				arcMax = max(arcMax, f.Volcanism[i])
			}
		case BoundaryNone:
			if volcanismSource(f, i) == EventIntraplateHotspot {
				hotMax = max(hotMax, f.Volcanism[i])
			}
		}
	}
	return resetLevels{
		rift:    resetThreshold(riftMax, p.RiftResetFrac, p.ResetMin),
		arc:     resetThreshold(arcMax, p.ArcResetFrac, p.ResetMin),
		hotspot: resetThreshold(hotMax, p.HotspotResetFrac, p.ResetMin),
	}
}

// resetAt reports whether cell i was new crust in this era, and the plate
// tagged on the event that created it.
func (r resetLevels) resetAt(f *EraFields, i int) (bool, int16) {
	switch BoundaryType(f.BoundaryType[i]) {
	case BoundaryDivergent:
		if f.RiftPotential[i] > 0 && f.RiftPotential[i] >= r.rift {
			return true, plateTag(f.RiftPlate, i)
		}
	case BoundaryConvergent:
		if volcanismSource(f, i) == EventConvergentSubduction && f.Volcanism[i] > 0 && f.Volcanism[i] >= r.arc {
			return true, plateTag(f.VolcanismPlate, i)
		}
	case BoundaryNone:
		if volcanismSource(f, i) == EventIntraplateHotspot && f.Volcanism[i] > 0 && f.Volcanism[i] >= r.hotspot {
			return true, plateTag(f.VolcanismPlate, i)
		}
	}
	return false, Unassigned
}

func volcanismSource(f *EraFields, i int) EventType {
	if len(f.VolcanismSource) != len(f.BoundaryType) {
		return NoEvent
	}
	return f.VolcanismSource[i]
}

func plateTag(tags []int16, i int) int16 {
	if i >= len(tags) {
		return Unassigned
	}
	return tags[i]
}

// ComputeTectonicProvenance walks each cell's tracer chain from the newest era
// toward the oldest while the traced cell stays on the same plate, and stops
// early where the traced cell was just created by a rift, subduction arc or
// hotspot. The last era reached is the origin era.
func ComputeTectonicProvenance(m *mesh.Mesh, graph *PlateGraph, eras []*EraFields, plateIDByEra [][]int16, tracer [][]int32, p *Params) (*TectonicProvenance, error) {
	if err := requireMesh(StageProvenance, m); err != nil {
		return nil, err
	}
	n := m.CellCount
	if err := requirePlates(StageProvenance, graph, n); err != nil {
		return nil, err
	}
	eraCount := len(eras)
	if eraCount < MinEras || eraCount > MaxEras {
		return nil, rangeError(StageProvenance, "eraCount %d outside [%d,%d]", eraCount, MinEras, MaxEras)
	}
	if err := requireEraFields(StageProvenance, eras, eraCount, n); err != nil {
		return nil, err
	}
	if err := requirePlateIDsByEra(StageProvenance, plateIDByEra, eraCount, n); err != nil {
		return nil, err
	}
	if err := checkTracers(StageProvenance, tracer, eraCount, n); err != nil {
		return nil, err
	}

	levels := make([]resetLevels, eraCount)
	for e, f := range eras {
		levels[e] = deriveResetLevels(f, p)
	}

	out := &TectonicProvenance{
		EraCount:         eraCount,
		TracerIndex:      tracer,
		OriginEra:        make([]uint8, n),
		OriginPlateID:    make([]int16, n),
		DriftDistance:    make([]uint8, n),
		LastBoundaryEra:  make([]uint8, n),
		LastBoundaryType: make([]uint8, n),
		CrustAge:         make([]uint8, n),
	}

	edge := m.MeanEdgeLen()
	newest := eraCount - 1
	for i := 0; i < n; i++ {
		origin := newest
		plate := plateIDByEra[newest][tracer[newest][i]]
		if plate < 0 {
			plate = graph.CellToPlate[i]
		}
		originPlate := plate

		if reset, tag := levels[newest].resetAt(eras[newest], int(tracer[newest][i])); reset {
			if tag >= 0 {
				originPlate = tag
			}
		} else if plate >= 0 {
			for e := newest - 1; e >= 0; e-- {
				c := int(tracer[e][i])
				if plateIDByEra[e][c] != plate {
					break
				}
				origin = e
				if reset, tag := levels[e].resetAt(eras[e], c); reset {
					if tag >= 0 {
						originPlate = tag
					}
					break
				}
			}
		}

		out.OriginEra[i] = uint8(origin)
		out.OriginPlateID[i] = originPlate
		from := m.Sites[tracer[origin][i]]
		out.DriftDistance[i] = clampByte(r2.Norm(m.Delta(from, m.Sites[i])) / edge)
		if newest > 0 {
			out.CrustAge[i] = clampByte(float64(newest-origin) / float64(newest) * 255)
		}

		out.LastBoundaryEra[i] = NeverActive
		for e := newest; e >= 0; e-- {
			c := tracer[e][i]
			if bt := eras[e].BoundaryType[c]; bt != uint8(BoundaryNone) {
				out.LastBoundaryEra[i] = uint8(e)
				out.LastBoundaryType[i] = bt
				break
			}
		}
	}
	return out, nil
}
