// Package tectonics synthesizes era-by-era plate boundary history over a mesh.
//
// Stages run strictly forward: era membership, boundary segments, segment and
// hotspot events, per-era field synthesis, rollups, tracer advection,
// provenance, and current-state extraction. Every stage allocates fresh output
// buffers and treats its inputs as read-only.
package tectonics

import (
	"gonum.org/v1/gonum/spatial/r2"
)

// Unassigned is the plate id for cells without an owning plate.
const Unassigned int16 = -1

// NeverActive is the lastActiveEra sentinel for cells no era touched.
const NeverActive uint8 = 255

// Era count bounds.
const (
	MinEras = 5
	MaxEras = 8
)

// BoundaryType is the per-cell boundary regime byte. 0 means none.
type BoundaryType uint8

const (
	BoundaryNone BoundaryType = iota
	BoundaryConvergent
	BoundaryDivergent
	BoundaryTransform
)

func (b BoundaryType) String() string {
	switch b {
	case BoundaryNone:
		return "none"
	case BoundaryConvergent:
		return "convergent"
	case BoundaryDivergent:
		return "divergent"
	case BoundaryTransform:
		return "transform"
	}
	return "unknown"
}

// CrustType distinguishes oceanic from continental crust.
type CrustType uint8

const (
	CrustOceanic CrustType = iota
	CrustContinental
)

// Plate is a stable plate id with its seed position.
type Plate struct {
	ID   int16
	Seed r2.Vec
}

// PlateGraph is the current-timestep partition. Plates[k].ID must equal k.
type PlateGraph struct {
	Plates      []Plate
	CellToPlate []int16
}

// PlateMotion holds rigid motion per plate: translation plus rotation about Center.
type PlateMotion struct {
	Velocity []r2.Vec
	Omega    []float64
	Center   []r2.Vec
}

// VelocityAt returns the plate velocity at point p. d is the wrapped displacement
// from the plate center to p.
func (pm *PlateMotion) VelocityAt(plate int, d r2.Vec) r2.Vec {
	v := pm.Velocity[plate]
	if len(pm.Omega) == 0 {
		return v
	}
	omega := pm.Omega[plate]
	if omega == 0 {
		return v
	}
	return r2.Vec{X: v.X - d.Y*omega, Y: v.Y + d.X*omega}
}

// Crust holds the per-cell crust properties the event builder reads.
type Crust struct {
	Type          []CrustType
	Age           []uint8
	BaseElevation []float64
}

// MantleForcing holds per-cell upwelling potential in [0,1] and mantle flow velocity.
type MantleForcing struct {
	Upwelling []float64
	Flow      []r2.Vec
}

// Membership is the era plate-membership projection.
type Membership struct {
	EraCount     int
	EraWeights   []float64
	PlateIDByEra [][]int16
}

// Segment is one mesh edge whose two cells belong to different plates in an era.
type Segment struct {
	ACell, BCell   int32
	PlateA, PlateB int16
	Regime         BoundaryType
	Polarity       int8    // +1: A overrides B, -1: B overrides A, 0: none
	Compression    float64 // [0,1]
	Extension      float64 // [0,1]
	Shear          float64 // [0,1]
}

// FoundationTectonicEraFieldsInternal is one era's synthesized field snapshot.
type FoundationTectonicEraFieldsInternal struct {
	BoundaryType        []uint8
	UpliftPotential     []uint8
	RiftPotential       []uint8
	ShearStress         []uint8
	Volcanism           []uint8
	Fracture            []uint8
	CollisionPotential  []uint8
	SubductionPotential []uint8
	BoundaryIntensity   []uint8
	// VolcanismSource is the event type that contributed most volcanism to a cell, or NoEvent.
	VolcanismSource []EventType
	// VolcanismPlate is the plate tagged on that strongest volcanism event.
	VolcanismPlate []int16
	// RiftPlate is the plate tagged on the strongest rift event reaching a cell.
	RiftPlate []int16
}

// EraFields is shorthand for the per-era field snapshot.
type EraFields = FoundationTectonicEraFieldsInternal

// TectonicHistory is the rollup across all eras.
type TectonicHistory struct {
	EraCount             int
	Eras                 []*EraFields
	PlateIDByEra         [][]int16
	UpliftTotal          []uint8
	CollisionTotal       []uint8
	SubductionTotal      []uint8
	VolcanismTotal       []uint8
	FractureTotal        []uint8
	UpliftRecentFraction []uint8
	LastActiveEra        []uint8
	LastCollisionEra     []uint8
	LastSubductionEra    []uint8
}

// TectonicProvenance records where each cell's crust originated.
type TectonicProvenance struct {
	EraCount         int
	TracerIndex      [][]int32
	OriginEra        []uint8
	OriginPlateID    []int16
	DriftDistance    []uint8
	LastBoundaryEra  []uint8
	LastBoundaryType []uint8
	CrustAge         []uint8
}

// Tectonics is the current-state snapshot consumed downstream.
type Tectonics struct {
	BoundaryType     []uint8
	UpliftPotential  []uint8
	RiftPotential    []uint8
	ShearStress      []uint8
	Volcanism        []uint8
	Fracture         []uint8
	CumulativeUplift []uint8
}
