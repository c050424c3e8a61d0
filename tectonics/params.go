package tectonics

import (
	"math"

	"github.com/pthm-cable/tecton/config"
)

// Knob ranges.
const (
	OrogenyEraGainMin = 0.85
	OrogenyEraGainMax = 1.15

	minBeltInfluence = 1
	maxBeltInfluence = 64
	minBeltDecay     = 0.01
	maxBeltDecay     = 10
	maxDriftSteps    = 16
	maxAdvection     = 16
	maxEraWeight     = 10
)

// Params is the fully resolved, validated knob set. Build it once with NewParams.
type Params struct {
	EraCount              int
	EraWeights            []float64
	DriftStepsByEra       []int
	EraGains              []float64
	BeltInfluenceDistance int
	BeltDecay             float64
	ActivityThreshold     uint8
	AdvectionStepsPerEra  int
	ParallelEvents        bool

	SegmentIntensityScale float64
	RegimeMinIntensity    float64

	HotspotMinPotential      float64
	HotspotBoundaryClearance int
	HotspotGain              float64

	RiftResetFrac    float64
	ArcResetFrac     float64
	HotspotResetFrac float64
	ResetMin         uint8
}

// Emission holds the belt knobs the field synthesizer needs.
type Emission struct {
	Radius int
	Decay  float64
}

// Emission returns the belt emission parameters.
func (p *Params) Emission() Emission {
	return Emission{Radius: p.BeltInfluenceDistance, Decay: p.BeltDecay}
}

// NewParams validates a loaded config and resolves it into Params.
// Nothing is allocated for the pipeline until this succeeds.
func NewParams(cfg *config.Config) (*Params, error) {
	tc := cfg.Tectonics
	if err := ValidateEraKnobs(tc.EraWeights, tc.DriftStepsByEra); err != nil {
		return nil, err
	}
	for era, w := range tc.EraWeights {
		if !finite(w) || w < 0 || w > maxEraWeight {
			return nil, rangeError(StageParams, "eraWeights[%d] = %v outside [0,%d]", era, w, maxEraWeight)
		}
	}
	for era, s := range tc.DriftStepsByEra {
		if s < 0 || s > maxDriftSteps {
			return nil, rangeError(StageParams, "driftStepsByEra[%d] = %d outside [0,%d]", era, s, maxDriftSteps)
		}
	}
	if tc.BeltInfluenceDistance < minBeltInfluence || tc.BeltInfluenceDistance > maxBeltInfluence {
		return nil, rangeError(StageParams, "beltInfluenceDistance %d outside [%d,%d]",
			tc.BeltInfluenceDistance, minBeltInfluence, maxBeltInfluence)
	}
	if !finite(tc.BeltDecay) || tc.BeltDecay < minBeltDecay || tc.BeltDecay > maxBeltDecay {
		return nil, rangeError(StageParams, "beltDecay %v outside [%v,%v]", tc.BeltDecay, minBeltDecay, maxBeltDecay)
	}
	if tc.ActivityThreshold < 0 || tc.ActivityThreshold > 255 {
		return nil, rangeError(StageParams, "activityThreshold %d outside [0,255]", tc.ActivityThreshold)
	}
	if !inRange(tc.EraGainMin, OrogenyEraGainMin, OrogenyEraGainMax) || !inRange(tc.EraGainMax, OrogenyEraGainMin, OrogenyEraGainMax) ||
		tc.EraGainMin > tc.EraGainMax {
		return nil, rangeError(StageParams, "era gain [%v,%v] outside [%v,%v]",
			tc.EraGainMin, tc.EraGainMax, OrogenyEraGainMin, OrogenyEraGainMax)
	}
	if tc.AdvectionStepsPerEra < 0 || tc.AdvectionStepsPerEra > maxAdvection {
		return nil, rangeError(StageParams, "advectionStepsPerEra %d outside [0,%d]", tc.AdvectionStepsPerEra, maxAdvection)
	}

	sc := cfg.Segments
	if !finite(sc.IntensityScale) || sc.IntensityScale < 0 {
		return nil, rangeError(StageParams, "segments.intensityScale %v must be non-negative", sc.IntensityScale)
	}
	if !inRange(sc.RegimeMinIntensity, 0, 1) {
		return nil, rangeError(StageParams, "segments.regimeMinIntensity %v outside [0,1]", sc.RegimeMinIntensity)
	}

	hc := cfg.Hotspots
	if !inRange(hc.MinPotential, 0, 1) {
		return nil, rangeError(StageParams, "hotspots.minPotential %v outside [0,1]", hc.MinPotential)
	}
	if hc.BoundaryClearance < 0 || hc.BoundaryClearance > maxBeltInfluence {
		return nil, rangeError(StageParams, "hotspots.boundaryClearance %d outside [0,%d]", hc.BoundaryClearance, maxBeltInfluence)
	}
	if !finite(hc.Gain) || hc.Gain < 0 {
		return nil, rangeError(StageParams, "hotspots.gain %v must be non-negative", hc.Gain)
	}

	pc := cfg.Provenance
	fracs := []struct {
		name string
		v    float64
	}{
		{"riftResetFrac", pc.RiftResetFrac},
		{"arcResetFrac", pc.ArcResetFrac},
		{"hotspotResetFrac", pc.HotspotResetFrac},
	}
	for _, f := range fracs {
		if !inRange(f.v, 0, 1) {
			return nil, rangeError(StageParams, "provenance.%s %v outside [0,1]", f.name, f.v)
		}
	}
	if pc.ResetMin < 0 || pc.ResetMin > 255 {
		return nil, rangeError(StageParams, "provenance.resetMin %d outside [0,255]", pc.ResetMin)
	}

	n := len(tc.EraWeights)
	p := &Params{
		EraCount:                 n,
		EraWeights:               append([]float64(nil), tc.EraWeights...),
		DriftStepsByEra:          append([]int(nil), tc.DriftStepsByEra...),
		EraGains:                 make([]float64, n),
		BeltInfluenceDistance:    tc.BeltInfluenceDistance,
		BeltDecay:                tc.BeltDecay,
		ActivityThreshold:        uint8(tc.ActivityThreshold),
		AdvectionStepsPerEra:     tc.AdvectionStepsPerEra,
		ParallelEvents:           tc.ParallelEvents,
		SegmentIntensityScale:    sc.IntensityScale,
		RegimeMinIntensity:       sc.RegimeMinIntensity,
		HotspotMinPotential:      hc.MinPotential,
		HotspotBoundaryClearance: hc.BoundaryClearance,
		HotspotGain:              hc.Gain,
		RiftResetFrac:            pc.RiftResetFrac,
		ArcResetFrac:             pc.ArcResetFrac,
		HotspotResetFrac:         pc.HotspotResetFrac,
		ResetMin:                 uint8(pc.ResetMin),
	}
	for era := range p.EraGains {
		p.EraGains[era] = config.EraGain(era, n, tc.EraGainMin, tc.EraGainMax)
	}
	return p, nil
}

// ValidateEraKnobs checks the two parallel era arrays before any mesh work.
func ValidateEraKnobs(eraWeights []float64, driftStepsByEra []int) error {
	if len(eraWeights) != len(driftStepsByEra) {
		return rangeError(StageMembership, "eraWeights length %d != driftStepsByEra length %d",
			len(eraWeights), len(driftStepsByEra))
	}
	if n := len(eraWeights); n < MinEras || n > MaxEras {
		return rangeError(StageMembership, "eraCount %d outside [%d,%d]", n, MinEras, MaxEras)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func inRange(v, lo, hi float64) bool {
	return finite(v) && v >= lo && v <= hi
}
