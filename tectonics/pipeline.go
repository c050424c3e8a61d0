package tectonics

import (
	"log/slog"

	"github.com/pthm-cable/tecton/mesh"
	"golang.org/x/sync/errgroup"
)

// NoEra tags stages that run once per pipeline rather than once per era.
const NoEra = -1

// PhaseTimer receives stage boundaries. Per-era stages pass their era index,
// the rest pass NoEra. telemetry.PerfCollector satisfies it.
type PhaseTimer interface {
	StartPhase(phase string, era int)
}

// Options configures a Pipeline. Zero values are usable.
type Options struct {
	Logger *slog.Logger
	Timer  PhaseTimer
}

// Result holds every artifact of one run, in stage order.
type Result struct {
	Membership *Membership
	Segments   [][]Segment
	Events     [][]TectonicEventRecord
	History    *TectonicHistory
	Provenance *TectonicProvenance
	Tectonics  *Tectonics
}

// EventCount is the total number of events over all eras.
func (r *Result) EventCount() int {
	var n int
	for _, evs := range r.Events {
		n += len(evs)
	}
	return n
}

// Pipeline runs the stages in dependency order with one resolved Params.
type Pipeline struct {
	params *Params
	logger *slog.Logger
	timer  PhaseTimer
}

// NewPipeline binds validated params to a runner.
func NewPipeline(params *Params, opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{params: params, logger: logger, timer: opts.Timer}
}

func (p *Pipeline) phase(name string, era int) {
	if p.timer != nil {
		p.timer.StartPhase(name, era)
	}
}

// Run executes every stage. The first failing stage aborts the run.
func (p *Pipeline) Run(in Inputs) (*Result, error) {
	params := p.params
	if err := in.Validate(); err != nil {
		return nil, err
	}
	m := in.Mesh

	p.phase(StageMembership, NoEra)
	membership, err := ComputeEraMembership(m, in.Plates, in.Motion, params.EraWeights, params.DriftStepsByEra)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("stage", "stage", StageMembership, "eras", membership.EraCount)

	res := &Result{
		Membership: membership,
		Segments:   make([][]Segment, membership.EraCount),
		Events:     make([][]TectonicEventRecord, membership.EraCount),
	}
	eras := make([]*EraFields, membership.EraCount)
	scratch := mesh.NewHopField(m.CellCount)

	for era := 0; era < membership.EraCount; era++ {
		plateIDs := membership.PlateIDByEra[era]

		p.phase(StageSegments, era)
		segments := BuildBoundarySegments(m, plateIDs, in.Motion, in.Crust, params)
		res.Segments[era] = segments

		p.phase(StageEvents, era)
		events, err := p.buildEvents(m, in.Mantle, segments, plateIDs, era)
		if err != nil {
			return nil, err
		}
		res.Events[era] = events

		p.phase(StageFields, era)
		fields, err := SynthesizeEraFields(m, events, params.EraWeights[era], params.EraGains[era], params.Emission(), scratch)
		if err != nil {
			return nil, err
		}
		eras[era] = fields
		p.logger.Debug("stage", "stage", StageFields, "era", era, "segments", len(segments), "events", len(events))
	}

	p.phase(StageRollups, NoEra)
	history, err := BuildTectonicHistory(eras, membership.PlateIDByEra, int(params.ActivityThreshold))
	if err != nil {
		return nil, err
	}
	res.History = history

	p.phase(StageTracers, NoEra)
	tracer, err := ComputeTracerIndexByEra(m, in.Mantle, membership.EraCount, params.AdvectionStepsPerEra)
	if err != nil {
		return nil, err
	}

	p.phase(StageProvenance, NoEra)
	prov, err := ComputeTectonicProvenance(m, in.Plates, eras, membership.PlateIDByEra, tracer, params)
	if err != nil {
		return nil, err
	}
	res.Provenance = prov

	p.phase(StageCurrent, NoEra)
	current, err := ExtractCurrentTectonics(eras[membership.EraCount-1], history.UpliftTotal)
	if err != nil {
		return nil, err
	}
	res.Tectonics = current

	p.logger.Info("tectonics_run",
		"cells", m.CellCount,
		"plates", len(in.Plates.Plates),
		"eras", membership.EraCount,
		"events", res.EventCount(),
	)
	return res, nil
}

// buildEvents merges segment events then hotspot events. With ParallelEvents
// the two lists are built concurrently; the merge order does not change.
func (p *Pipeline) buildEvents(m *mesh.Mesh, mantle *MantleForcing, segments []Segment, plateIDs []int16, era int) ([]TectonicEventRecord, error) {
	if !p.params.ParallelEvents {
		events := BuildSegmentEvents(segments, era)
		return append(events, BuildHotspotEvents(m, mantle, segments, plateIDs, era, p.params)...), nil
	}

	var segEvents, hotEvents []TectonicEventRecord
	var g errgroup.Group
	g.Go(func() error {
		segEvents = BuildSegmentEvents(segments, era)
		return nil
	})
	g.Go(func() error {
		hotEvents = BuildHotspotEvents(m, mantle, segments, plateIDs, era, p.params)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, &StageError{Stage: StageEvents, Err: err}
	}
	return append(segEvents, hotEvents...), nil
}

// Run is shorthand for NewPipeline(params, opts).Run(in).
func Run(params *Params, in Inputs, opts Options) (*Result, error) {
	return NewPipeline(params, opts).Run(in)
}
