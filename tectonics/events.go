package tectonics

import (
	"github.com/pthm-cable/tecton/mesh"
)

// EventType classifies a tectonic event.
type EventType uint8

const (
	NoEvent EventType = iota
	EventConvergentSubduction
	EventConvergentCollision
	EventDivergentRift
	EventTransformShear
	EventIntraplateHotspot
)

func (t EventType) String() string {
	switch t {
	case NoEvent:
		return "none"
	case EventConvergentSubduction:
		return "convergentSubduction"
	case EventConvergentCollision:
		return "convergentCollision"
	case EventDivergentRift:
		return "divergentRift"
	case EventTransformShear:
		return "transformShear"
	case EventIntraplateHotspot:
		return "intraplateHotspot"
	}
	return "unknown"
}

// Boundary returns the boundary regime an event marks. Hotspots mark none.
func (t EventType) Boundary() BoundaryType {
	switch t {
	case EventConvergentSubduction, EventConvergentCollision:
		return BoundaryConvergent
	case EventDivergentRift:
		return BoundaryDivergent
	case EventTransformShear:
		return BoundaryTransform
	}
	return BoundaryNone
}

// TectonicEventRecord is one emitting event in an era.
type TectonicEventRecord struct {
	Type        EventType
	Origin      int32
	Era         int
	Magnitude   float64
	PlateA      int16
	PlateB      int16
	OriginPlate int16
}

// channelGains is the fraction of an event's strength routed to each channel.
type channelGains struct {
	Uplift    float64
	Rift      float64
	Shear     float64
	Volcanism float64
	Fracture  float64
}

// gainsFor is the single routing table from event type to channel gains.
func gainsFor(t EventType) channelGains {
	switch t {
	case EventConvergentSubduction:
		return channelGains{Uplift: 1, Shear: 0.5, Volcanism: 0.7, Fracture: 0.2}
	case EventConvergentCollision:
		return channelGains{Uplift: 1, Shear: 0.5, Fracture: 0.2}
	case EventDivergentRift:
		return channelGains{Rift: 1, Volcanism: 0.25, Fracture: 0.3}
	case EventTransformShear:
		return channelGains{Shear: 1, Fracture: 0.7}
	case EventIntraplateHotspot:
		return channelGains{Uplift: 0.45, Volcanism: 1, Fracture: 0.35}
	case NoEvent:
		return channelGains{}
	}
	return channelGains{}
}

// BuildSegmentEvents turns one era's segments into boundary events, in segment order.
// Subduction events originate on the overriding side; others at the segment's A cell.
func BuildSegmentEvents(segments []Segment, era int) []TectonicEventRecord {
	events := make([]TectonicEventRecord, 0, len(segments))
	for _, s := range segments {
		ev := TectonicEventRecord{
			Origin:      s.ACell,
			Era:         era,
			PlateA:      s.PlateA,
			PlateB:      s.PlateB,
			OriginPlate: Unassigned,
		}
		switch s.Regime {
		case BoundaryConvergent:
			ev.Magnitude = s.Compression
			switch s.Polarity {
			case 1:
				ev.Type = EventConvergentSubduction
				ev.OriginPlate = s.PlateA
			case -1:
				ev.Type = EventConvergentSubduction
				ev.Origin = s.BCell
				ev.OriginPlate = s.PlateB
			default:
				ev.Type = EventConvergentCollision
				ev.OriginPlate = min(s.PlateA, s.PlateB)
			}
		case BoundaryDivergent:
			ev.Type = EventDivergentRift
			ev.Magnitude = s.Extension
			ev.OriginPlate = min(s.PlateA, s.PlateB)
		case BoundaryTransform:
			ev.Type = EventTransformShear
			ev.Magnitude = s.Shear
		default:
			continue
		}
		if !(ev.Magnitude > 0) {
			continue
		}
		events = append(events, ev)
	}
	return events
}

// BuildHotspotEvents places intraplate hotspots at local upwelling maxima that
// clear every boundary cell of the era by more than the configured hop distance.
// Plateaus resolve to the lowest cell index. Output is in ascending cell order.
func BuildHotspotEvents(m *mesh.Mesh, mantle *MantleForcing, segments []Segment, plateIDs []int16, era int, p *Params) []TectonicEventRecord {
	var boundary []int32
	for _, s := range segments {
		boundary = append(boundary, s.ACell, s.BCell)
	}
	near := mesh.NewHopField(m.CellCount)
	if len(boundary) > 0 {
		near.Search(m, boundary, p.HotspotBoundaryClearance)
	}

	var events []TectonicEventRecord
	for i := 0; i < m.CellCount; i++ {
		up := mantle.Upwelling[i]
		if !finite(up) || up < p.HotspotMinPotential {
			continue
		}
		if plateIDs[i] < 0 {
			continue
		}
		if near.Dist(i) != mesh.Unreached {
			continue
		}
		if !isUpwellingPeak(m, mantle.Upwelling, i) {
			continue
		}
		mag := clamp01(up * p.HotspotGain)
		if mag <= 0 {
			continue
		}
		events = append(events, TectonicEventRecord{
			Type:        EventIntraplateHotspot,
			Origin:      int32(i),
			Era:         era,
			Magnitude:   mag,
			PlateA:      plateIDs[i],
			PlateB:      Unassigned,
			OriginPlate: plateIDs[i],
		})
	}
	return events
}

// isUpwellingPeak reports whether cell is a local maximum. A neighbor with the
// same value only blocks the peak when its index is lower.
func isUpwellingPeak(m *mesh.Mesh, up []float64, cell int) bool {
	v := up[cell]
	for _, n := range m.NeighborsOf(cell) {
		nv := up[n]
		if nv > v || (nv == v && int(n) < cell) {
			return false
		}
	}
	return true
}
