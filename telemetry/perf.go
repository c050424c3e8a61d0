package telemetry

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/pthm-cable/tecton/tectonics"
)

// Phases in pipeline order.
var Phases = []string{
	tectonics.StageMembership,
	tectonics.StageSegments,
	tectonics.StageEvents,
	tectonics.StageFields,
	tectonics.StageRollups,
	tectonics.StageTracers,
	tectonics.StageProvenance,
	tectonics.StageCurrent,
}

// EraPhaseKey names one per-era stage, e.g. "era_fields/2".
func EraPhaseKey(phase string, era int) string {
	return fmt.Sprintf("%s/%d", phase, era)
}

// PerfSample holds timing data for a single run.
type PerfSample struct {
	RunDuration time.Duration
	Phases      map[string]time.Duration // summed over eras
	EraPhases   map[string]time.Duration // keyed by EraPhaseKey
	Eras        []time.Duration          // per-era stage time, indexed by era
}

// PerfCollector tracks stage timings over a rolling window of runs.
// It satisfies tectonics.PhaseTimer.
type PerfCollector struct {
	windowSize  int
	samples     []PerfSample
	writeIndex  int
	sampleCount int

	current    PerfSample
	runStart   time.Time
	phaseStart time.Time
	lastPhase  string
	lastEra    int
}

// NewPerfCollector creates a new performance collector.
// windowSize: number of runs to average over.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 16
	}
	return &PerfCollector{
		windowSize: windowSize,
		samples:    make([]PerfSample, windowSize),
		lastEra:    tectonics.NoEra,
	}
}

// StartRun begins timing a pipeline run.
func (p *PerfCollector) StartRun() {
	p.runStart = time.Now()
	p.current = PerfSample{
		Phases:    make(map[string]time.Duration),
		EraPhases: make(map[string]time.Duration),
	}
	p.lastPhase = ""
	p.lastEra = tectonics.NoEra
}

// StartPhase closes the running stage and starts timing the next one.
// era is tectonics.NoEra for stages that run once per pipeline.
func (p *PerfCollector) StartPhase(phase string, era int) {
	now := time.Now()
	p.closePhase(now)
	p.phaseStart = now
	p.lastPhase = phase
	p.lastEra = era
}

func (p *PerfCollector) closePhase(now time.Time) {
	if p.lastPhase == "" {
		return
	}
	if p.current.Phases == nil {
		p.current.Phases = make(map[string]time.Duration)
		p.current.EraPhases = make(map[string]time.Duration)
	}
	d := now.Sub(p.phaseStart)
	p.current.Phases[p.lastPhase] += d
	if p.lastEra < 0 {
		return
	}
	p.current.EraPhases[EraPhaseKey(p.lastPhase, p.lastEra)] += d
	for len(p.current.Eras) <= p.lastEra {
		p.current.Eras = append(p.current.Eras, 0)
	}
	p.current.Eras[p.lastEra] += d
}

// EndRun finishes timing the current run and records the sample.
func (p *PerfCollector) EndRun() {
	now := time.Now()
	p.closePhase(now)
	p.current.RunDuration = now.Sub(p.runStart)

	p.samples[p.writeIndex] = p.current
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
	p.current = PerfSample{}
	p.lastPhase = ""
	p.lastEra = tectonics.NoEra
}

// PerfStats holds aggregated performance statistics.
type PerfStats struct {
	Runs           int
	AvgRunDuration time.Duration
	MinRunDuration time.Duration
	MaxRunDuration time.Duration

	// Stage breakdown (average durations, eras merged)
	PhaseAvg map[string]time.Duration

	// Stage percentages of total run time
	PhasePct map[string]float64

	// Per-era stage breakdown keyed by EraPhaseKey
	EraPhaseAvg map[string]time.Duration

	// Average time spent in each era's stages, and the slowest era
	EraAvg     []time.Duration
	SlowestEra int
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	out := PerfStats{
		PhaseAvg:    make(map[string]time.Duration),
		PhasePct:    make(map[string]float64),
		EraPhaseAvg: make(map[string]time.Duration),
		SlowestEra:  tectonics.NoEra,
	}
	if p.sampleCount == 0 {
		return out
	}

	var total time.Duration
	phaseSum := make(map[string]time.Duration)
	eraPhaseSum := make(map[string]time.Duration)
	var eraSum []time.Duration
	for i := 0; i < p.sampleCount; i++ {
		s := p.samples[i]
		total += s.RunDuration
		if i == 0 || s.RunDuration < out.MinRunDuration {
			out.MinRunDuration = s.RunDuration
		}
		if s.RunDuration > out.MaxRunDuration {
			out.MaxRunDuration = s.RunDuration
		}
		for phase, dur := range s.Phases {
			phaseSum[phase] += dur
		}
		for key, dur := range s.EraPhases {
			eraPhaseSum[key] += dur
		}
		for era, dur := range s.Eras {
			for len(eraSum) <= era {
				eraSum = append(eraSum, 0)
			}
			eraSum[era] += dur
		}
	}

	n := time.Duration(p.sampleCount)
	out.Runs = p.sampleCount
	out.AvgRunDuration = total / n
	for phase, sum := range phaseSum {
		out.PhaseAvg[phase] = sum / n
		if out.AvgRunDuration > 0 {
			out.PhasePct[phase] = float64(out.PhaseAvg[phase]) / float64(out.AvgRunDuration) * 100
		}
	}
	for key, sum := range eraPhaseSum {
		out.EraPhaseAvg[key] = sum / n
	}
	out.EraAvg = make([]time.Duration, len(eraSum))
	for era, sum := range eraSum {
		out.EraAvg[era] = sum / n
		if out.SlowestEra < 0 || out.EraAvg[era] > out.EraAvg[out.SlowestEra] {
			out.SlowestEra = era
		}
	}
	return out
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("runs", s.Runs),
		slog.Int64("avg_run_us", s.AvgRunDuration.Microseconds()),
		slog.Int64("min_run_us", s.MinRunDuration.Microseconds()),
		slog.Int64("max_run_us", s.MaxRunDuration.Microseconds()),
	}
	for _, phase := range Phases {
		if pct, ok := s.PhasePct[phase]; ok && pct > 0.1 {
			attrs = append(attrs, slog.Float64(phase+"_pct", float64(int(pct*10))/10))
		}
	}
	for era, d := range s.EraAvg {
		attrs = append(attrs, slog.Int64(fmt.Sprintf("era%d_us", era), d.Microseconds()))
	}
	if s.SlowestEra >= 0 {
		attrs = append(attrs, slog.Int("slowest_era", s.SlowestEra))
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is a flat struct for CSV export of performance stats.
type PerfStatsCSV struct {
	Run           int     `csv:"run"`
	AvgRunUS      int64   `csv:"avg_run_us"`
	MinRunUS      int64   `csv:"min_run_us"`
	MaxRunUS      int64   `csv:"max_run_us"`
	MembershipPct float64 `csv:"era_membership_pct"`
	SegmentsPct   float64 `csv:"segments_pct"`
	EventsPct     float64 `csv:"events_pct"`
	FieldsPct     float64 `csv:"era_fields_pct"`
	RollupsPct    float64 `csv:"rollups_pct"`
	TracersPct    float64 `csv:"tracers_pct"`
	ProvenancePct float64 `csv:"provenance_pct"`
	CurrentPct    float64 `csv:"current_pct"`
	SlowestEra    int     `csv:"slowest_era"`
	SlowestEraUS  int64   `csv:"slowest_era_us"`
}

// ToCSV converts PerfStats to a flat CSV-friendly struct.
func (s PerfStats) ToCSV(run int) PerfStatsCSV {
	row := PerfStatsCSV{
		Run:           run,
		AvgRunUS:      s.AvgRunDuration.Microseconds(),
		MinRunUS:      s.MinRunDuration.Microseconds(),
		MaxRunUS:      s.MaxRunDuration.Microseconds(),
		MembershipPct: s.PhasePct[tectonics.StageMembership],
		SegmentsPct:   s.PhasePct[tectonics.StageSegments],
		EventsPct:     s.PhasePct[tectonics.StageEvents],
		FieldsPct:     s.PhasePct[tectonics.StageFields],
		RollupsPct:    s.PhasePct[tectonics.StageRollups],
		TracersPct:    s.PhasePct[tectonics.StageTracers],
		ProvenancePct: s.PhasePct[tectonics.StageProvenance],
		CurrentPct:    s.PhasePct[tectonics.StageCurrent],
		SlowestEra:    s.SlowestEra,
	}
	if s.SlowestEra >= 0 && s.SlowestEra < len(s.EraAvg) {
		row.SlowestEraUS = s.EraAvg[s.SlowestEra].Microseconds()
	}
	return row
}
