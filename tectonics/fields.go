package tectonics

import (
	"fmt"
	"math"

	"github.com/pthm-cable/tecton/mesh"
)

// eraAccum holds the unquantized channel sums for one era.
type eraAccum struct {
	uplift, rift, shear, volcanism, fracture []float64
	collision, subduction                    []float64

	nearestDist  []int32
	nearestEvent []int32

	volcanismBest   []float64
	volcanismSource []EventType
	volcanismPlate  []int16
	riftBest        []float64
	riftPlate       []int16
}

func newEraAccum(n int) *eraAccum {
	a := &eraAccum{
		uplift:          make([]float64, n),
		rift:            make([]float64, n),
		shear:           make([]float64, n),
		volcanism:       make([]float64, n),
		fracture:        make([]float64, n),
		collision:       make([]float64, n),
		subduction:      make([]float64, n),
		nearestDist:     make([]int32, n),
		nearestEvent:    make([]int32, n),
		volcanismBest:   make([]float64, n),
		volcanismSource: make([]EventType, n),
		volcanismPlate:  make([]int16, n),
		riftBest:        make([]float64, n),
		riftPlate:       make([]int16, n),
	}
	for i := 0; i < n; i++ {
		a.nearestDist[i] = mesh.Unreached
		a.nearestEvent[i] = -1
		a.volcanismPlate[i] = Unassigned
		a.riftPlate[i] = Unassigned
	}
	return a
}

// decayTable precomputes exp(-decay*d) for d in [0, radius].
func decayTable(em Emission) []float64 {
	lut := make([]float64, em.Radius+1)
	for d := range lut {
		lut[d] = math.Exp(-em.Decay * float64(d))
	}
	return lut
}

// SynthesizeEraFields emits every event into its bounded hop neighborhood and
// quantizes the per-channel sums. A cell d hops from an event receives
// magnitude*weight*eraGain*exp(-decay*d) scaled by the channel gain. Sums
// accumulate in event order, so output depends only on the event list.
// scratch may be nil; pass one to reuse BFS storage across eras.
func SynthesizeEraFields(m *mesh.Mesh, events []TectonicEventRecord, weight, eraGain float64, em Emission, scratch *mesh.HopField) (*EraFields, error) {
	if err := requireMesh(StageFields, m); err != nil {
		return nil, err
	}
	if !finite(weight) || weight < 0 || weight > maxEraWeight {
		return nil, rangeError(StageFields, "era weight %v outside [0,%d]", weight, maxEraWeight)
	}
	if !inRange(eraGain, OrogenyEraGainMin, OrogenyEraGainMax) {
		return nil, rangeError(StageFields, "era gain %v outside [%v,%v]", eraGain, OrogenyEraGainMin, OrogenyEraGainMax)
	}
	if em.Radius < minBeltInfluence || em.Radius > maxBeltInfluence {
		return nil, rangeError(StageFields, "beltInfluenceDistance %d outside [%d,%d]", em.Radius, minBeltInfluence, maxBeltInfluence)
	}
	if !finite(em.Decay) || em.Decay < minBeltDecay || em.Decay > maxBeltDecay {
		return nil, rangeError(StageFields, "beltDecay %v outside [%v,%v]", em.Decay, minBeltDecay, maxBeltDecay)
	}
	if scratch == nil {
		scratch = mesh.NewHopField(m.CellCount)
	}

	n := m.CellCount
	lut := decayTable(em)
	acc := newEraAccum(n)
	src := make([]int32, 1)

	for k, ev := range events {
		if ev.Origin < 0 || int(ev.Origin) >= n {
			return nil, &StageError{Stage: StageFields, Err: fmt.Errorf("%w: event %d origin %d outside [0,%d)", ErrShape, k, ev.Origin, n)}
		}
		base := eventMagnitude(ev.Magnitude) * weight * eraGain
		if !(base > 0) {
			continue
		}
		g := gainsFor(ev.Type)
		boundary := ev.Type.Boundary() != BoundaryNone

		src[0] = ev.Origin
		scratch.Search(m, src, em.Radius)
		for _, c := range scratch.Reached() {
			d := scratch.Dist(int(c))
			v := base * lut[d]

			acc.uplift[c] += v * g.Uplift
			acc.rift[c] += v * g.Rift
			acc.shear[c] += v * g.Shear
			acc.volcanism[c] += v * g.Volcanism
			acc.fracture[c] += v * g.Fracture
			switch ev.Type {
			case EventConvergentCollision:
				acc.collision[c] += v * g.Uplift
			case EventConvergentSubduction:
				acc.subduction[c] += v * g.Uplift
			}

			if boundary && acc.closerThanNearest(c, d, ev.Origin, events) {
				acc.nearestDist[c] = d
				acc.nearestEvent[c] = int32(k)
			}
			if vv := v * g.Volcanism; vv > acc.volcanismBest[c] {
				acc.volcanismBest[c] = vv
				acc.volcanismSource[c] = ev.Type
				acc.volcanismPlate[c] = ev.OriginPlate
			}
			if rv := v * g.Rift; rv > acc.riftBest[c] {
				acc.riftBest[c] = rv
				acc.riftPlate[c] = ev.OriginPlate
			}
		}
	}
	return acc.quantize(events), nil
}

// eventMagnitude passes finite magnitudes through unclamped; only the
// accumulated sums are bounded. NaN and non-positive values emit nothing and
// +Inf counts as 1.
func eventMagnitude(v float64) float64 {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case math.IsInf(v, 1):
		return 1
	}
	return v
}

// closerThanNearest orders candidate boundary events by hop distance, then
// lowest origin cell. Equal keys keep the earlier event.
func (a *eraAccum) closerThanNearest(c int32, d int32, origin int32, events []TectonicEventRecord) bool {
	cur := a.nearestDist[c]
	if cur == mesh.Unreached || d < cur {
		return true
	}
	if d > cur {
		return false
	}
	return origin < events[a.nearestEvent[c]].Origin
}

func (a *eraAccum) quantize(events []TectonicEventRecord) *EraFields {
	n := len(a.uplift)
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
		VolcanismSource:     a.volcanismSource,
		VolcanismPlate:      a.volcanismPlate,
		RiftPlate:           a.riftPlate,
	}
	for i := 0; i < n; i++ {
		f.UpliftPotential[i] = quantize01(a.uplift[i])
		f.RiftPotential[i] = quantize01(a.rift[i])
		f.ShearStress[i] = quantize01(a.shear[i])
		f.Volcanism[i] = quantize01(a.volcanism[i])
		f.Fracture[i] = quantize01(a.fracture[i])
		f.CollisionPotential[i] = quantize01(a.collision[i])
		f.SubductionPotential[i] = quantize01(a.subduction[i])
		f.BoundaryIntensity[i] = maxByte(f.UpliftPotential[i], f.RiftPotential[i], f.ShearStress[i], f.Volcanism[i], f.Fracture[i])
		if k := a.nearestEvent[i]; k >= 0 {
			f.BoundaryType[i] = uint8(events[k].Type.Boundary())
		}
	}
	return f
}
