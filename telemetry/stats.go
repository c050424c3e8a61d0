// Package telemetry summarizes tectonic runs for logs and CSV output.
package telemetry

import (
	"log/slog"
	"math"
	"sort"

	"github.com/pthm-cable/tecton/tectonics"
	"gonum.org/v1/gonum/stat"
)

// ChannelStats summarizes one byte channel over all cells.
type ChannelStats struct {
	Mean float64
	Std  float64
	P50  float64
	P90  float64
	Max  float64
}

// EraStats holds aggregated statistics for a single era.
type EraStats struct {
	Era    int     `csv:"era"`
	Weight float64 `csv:"weight"`
	Gain   float64 `csv:"gain"`

	// Boundary structure
	Segments      int     `csv:"segments"`
	PlatesPresent int     `csv:"plates"`
	Coverage      float64 `csv:"coverage"` // fraction of cells with nonzero boundary intensity

	// Event counts
	Subduction int `csv:"subduction"`
	Collision  int `csv:"collision"`
	Rift       int `csv:"rift"`
	Transform  int `csv:"transform"`
	Hotspot    int `csv:"hotspot"`

	// Channel distributions
	UpliftMean    float64 `csv:"uplift_mean"`
	UpliftStd     float64 `csv:"uplift_std"`
	UpliftP50     float64 `csv:"uplift_p50"`
	UpliftP90     float64 `csv:"uplift_p90"`
	RiftMean      float64 `csv:"rift_mean"`
	RiftP90       float64 `csv:"rift_p90"`
	ShearMean     float64 `csv:"shear_mean"`
	ShearP90      float64 `csv:"shear_p90"`
	VolcanismMean float64 `csv:"volcanism_mean"`
	VolcanismP90  float64 `csv:"volcanism_p90"`
	FractureMean  float64 `csv:"fracture_mean"`
	FractureP90   float64 `csv:"fracture_p90"`
}

// Percentile returns the p-th quantile of an ascending slice using gonum's
// LinInterp estimator. p is clamped to [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	p = math.Min(math.Max(p, 0), 1)
	return stat.Quantile(p, stat.LinInterp, sorted, nil)
}

// ComputeChannelStats calculates mean, std, and percentiles of a byte channel.
func ComputeChannelStats(values []uint8) ChannelStats {
	n := len(values)
	if n == 0 {
		return ChannelStats{}
	}

	sorted := make([]float64, n)
	for i, v := range values {
		sorted[i] = float64(v)
	}
	sort.Float64s(sorted)

	var cs ChannelStats
	if n == 1 {
		cs.Mean = sorted[0]
	} else {
		cs.Mean, cs.Std = stat.MeanStdDev(sorted, nil)
	}
	cs.P50 = Percentile(sorted, 0.50)
	cs.P90 = Percentile(sorted, 0.90)
	cs.Max = sorted[n-1]
	return cs
}

// ComputeEraStats summarizes one era's segments, events, and fields.
func ComputeEraStats(era int, weight, gain float64, plateIDs []int16, segments []tectonics.Segment,
	events []tectonics.TectonicEventRecord, f *tectonics.EraFields) EraStats {
	s := EraStats{
		Era:      era,
		Weight:   weight,
		Gain:     gain,
		Segments: len(segments),
	}

	plates := make(map[int16]struct{})
	for _, id := range plateIDs {
		if id >= 0 {
			plates[id] = struct{}{}
		}
	}
	s.PlatesPresent = len(plates)

	for _, ev := range events {
		switch ev.Type {
		case tectonics.EventConvergentSubduction:
			s.Subduction++
		case tectonics.EventConvergentCollision:
			s.Collision++
		case tectonics.EventDivergentRift:
			s.Rift++
		case tectonics.EventTransformShear:
			s.Transform++
		case tectonics.EventIntraplateHotspot:
			s.Hotspot++
		}
	}

	if f == nil || len(f.BoundaryIntensity) == 0 {
		return s
	}

	var covered int
	for _, v := range f.BoundaryIntensity {
		if v > 0 {
			covered++
		}
	}
	s.Coverage = float64(covered) / float64(len(f.BoundaryIntensity))

	uplift := ComputeChannelStats(f.UpliftPotential)
	s.UpliftMean, s.UpliftStd, s.UpliftP50, s.UpliftP90 = uplift.Mean, uplift.Std, uplift.P50, uplift.P90
	rift := ComputeChannelStats(f.RiftPotential)
	s.RiftMean, s.RiftP90 = rift.Mean, rift.P90
	shear := ComputeChannelStats(f.ShearStress)
	s.ShearMean, s.ShearP90 = shear.Mean, shear.P90
	volc := ComputeChannelStats(f.Volcanism)
	s.VolcanismMean, s.VolcanismP90 = volc.Mean, volc.P90
	frac := ComputeChannelStats(f.Fracture)
	s.FractureMean, s.FractureP90 = frac.Mean, frac.P90
	return s
}

// ComputeRunStats returns one EraStats row per era of a finished run.
func ComputeRunStats(res *tectonics.Result, params *tectonics.Params) []EraStats {
	if res == nil || res.History == nil {
		return nil
	}
	out := make([]EraStats, res.History.EraCount)
	for era := range out {
		var weight, gain float64
		if params != nil && era < len(params.EraWeights) {
			weight, gain = params.EraWeights[era], params.EraGains[era]
		}
		var segs []tectonics.Segment
		if era < len(res.Segments) {
			segs = res.Segments[era]
		}
		var evs []tectonics.TectonicEventRecord
		if era < len(res.Events) {
			evs = res.Events[era]
		}
		out[era] = ComputeEraStats(era, weight, gain, res.History.PlateIDByEra[era], segs, evs, res.History.Eras[era])
	}
	return out
}

// LogValue implements slog.LogValuer for structured logging.
func (s EraStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("era", s.Era),
		slog.Float64("weight", s.Weight),
		slog.Int("segments", s.Segments),
		slog.Int("plates", s.PlatesPresent),
		slog.Float64("coverage", s.Coverage),
		slog.Int("subduction", s.Subduction),
		slog.Int("collision", s.Collision),
		slog.Int("rift", s.Rift),
		slog.Int("transform", s.Transform),
		slog.Int("hotspot", s.Hotspot),
		slog.Float64("uplift_mean", s.UpliftMean),
		slog.Float64("uplift_p90", s.UpliftP90),
		slog.Float64("volcanism_p90", s.VolcanismP90),
	)
}

// LogStats logs the era stats using the default logger.
func (s EraStats) LogStats() {
	slog.Info("era", "stats", s)
}

// HistoryStats summarizes the rollups and provenance of a run.
type HistoryStats struct {
	Cells             int     `csv:"cells"`
	Events            int     `csv:"events"`
	NeverActive       float64 `csv:"never_active"` // fraction of cells no era touched
	UpliftTotalMean   float64 `csv:"uplift_total_mean"`
	UpliftTotalP90    float64 `csv:"uplift_total_p90"`
	VolcanismTotalP90 float64 `csv:"volcanism_total_p90"`
	DriftMean         float64 `csv:"drift_mean"`
	DriftMax          float64 `csv:"drift_max"`
	CrustAgeMean      float64 `csv:"crust_age_mean"`
	OldestOrigin      float64 `csv:"oldest_origin"` // fraction of cells tracing back to era 0
}

// ComputeHistoryStats summarizes the rollups and provenance of a finished run.
func ComputeHistoryStats(res *tectonics.Result) HistoryStats {
	if res == nil || res.History == nil || res.Provenance == nil {
		return HistoryStats{}
	}
	h, p := res.History, res.Provenance
	n := len(h.UpliftTotal)
	hs := HistoryStats{Cells: n, Events: res.EventCount()}
	if n == 0 {
		return hs
	}

	var never, oldest int
	for i := 0; i < n; i++ {
		if h.LastActiveEra[i] == tectonics.NeverActive {
			never++
		}
		if p.OriginEra[i] == 0 {
			oldest++
		}
	}
	hs.NeverActive = float64(never) / float64(n)
	hs.OldestOrigin = float64(oldest) / float64(n)

	uplift := ComputeChannelStats(h.UpliftTotal)
	hs.UpliftTotalMean, hs.UpliftTotalP90 = uplift.Mean, uplift.P90
	hs.VolcanismTotalP90 = ComputeChannelStats(h.VolcanismTotal).P90
	drift := ComputeChannelStats(p.DriftDistance)
	hs.DriftMean, hs.DriftMax = drift.Mean, drift.Max
	hs.CrustAgeMean = ComputeChannelStats(p.CrustAge).Mean
	return hs
}

// LogValue implements slog.LogValuer for structured logging.
func (s HistoryStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("cells", s.Cells),
		slog.Int("events", s.Events),
		slog.Float64("never_active", s.NeverActive),
		slog.Float64("uplift_total_mean", s.UpliftTotalMean),
		slog.Float64("uplift_total_p90", s.UpliftTotalP90),
		slog.Float64("drift_mean", s.DriftMean),
		slog.Float64("drift_max", s.DriftMax),
		slog.Float64("crust_age_mean", s.CrustAgeMean),
		slog.Float64("oldest_origin", s.OldestOrigin),
	)
}
