package main

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"

	"github.com/pthm-cable/tecton/config"
	"github.com/pthm-cable/tecton/synth"
	"github.com/pthm-cable/tecton/tectonics"
	"github.com/pthm-cable/tecton/telemetry"
	"golang.org/x/sync/errgroup"
)

// invalidFitness is returned for knob sets the pipeline rejects.
const invalidFitness = 1e6

// Targets are the belt statistics a calibrated knob set should produce.
type Targets struct {
	Coverage    float64 // mean fraction of cells with boundary intensity per era
	NeverActive float64 // fraction of cells no era touched
}

// Score summarizes one evaluation.
type Score struct {
	Fitness     float64
	Coverage    float64
	NeverActive float64
	Events      float64
}

// FitnessEvaluator runs the pipeline over fixed fixture worlds and scores knob sets.
type FitnessEvaluator struct {
	params     *ParamVector
	baseConfig *config.Config
	targets    Targets
	seeds      []int64
	worlds     []tectonics.Inputs
	logger     *slog.Logger

	mu        sync.Mutex
	lastScore Score
}

// NewFitnessEvaluator builds one fixture world per seed. Worlds do not depend on
// the calibrated knobs, so they are shared by every evaluation.
func NewFitnessEvaluator(params *ParamVector, world config.WorldConfig, seeds []int64, baseCfg *config.Config, targets Targets) (*FitnessEvaluator, error) {
	fe := &FitnessEvaluator{
		params:     params,
		baseConfig: baseCfg,
		targets:    targets,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, seed := range seeds {
		w := world
		w.Seed = seed
		in, err := synth.NewWorld(w)
		if err != nil {
			return nil, fmt.Errorf("building world for seed %d: %w", seed, err)
		}
		fe.seeds = append(fe.seeds, seed)
		fe.worlds = append(fe.worlds, in)
	}
	return fe, nil
}

// LastScore returns the score from the most recent evaluation.
func (fe *FitnessEvaluator) LastScore() Score {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastScore
}

// Evaluate computes fitness for a raw parameter vector (lower = better).
// Rejected knob sets and failed runs score invalidFitness.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	score, err := fe.evaluate(x)
	if err != nil {
		slog.Warn("evaluation rejected", "error", err)
		score = Score{Fitness: invalidFitness}
	}
	fe.record(score)
	return score.Fitness
}

func (fe *FitnessEvaluator) evaluate(x []float64) (Score, error) {
	cfg := fe.baseConfig.Clone()
	fe.params.ApplyToConfig(cfg, x)
	params, err := tectonics.NewParams(cfg)
	if err != nil {
		return Score{}, err
	}

	// Run all worlds in parallel; the first failure cancels the average.
	scores := make([]Score, len(fe.worlds))
	var g errgroup.Group
	for i, in := range fe.worlds {
		g.Go(func() error {
			s, err := fe.scoreWorld(params, in)
			if err != nil {
				return fmt.Errorf("world seed %d: %w", fe.seeds[i], err)
			}
			scores[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Score{}, err
	}

	var avg Score
	for _, s := range scores {
		avg.Fitness += s.Fitness
		avg.Coverage += s.Coverage
		avg.NeverActive += s.NeverActive
		avg.Events += s.Events
	}
	n := float64(len(scores))
	avg.Fitness /= n
	avg.Coverage /= n
	avg.NeverActive /= n
	avg.Events /= n
	return avg, nil
}

func (fe *FitnessEvaluator) scoreWorld(params *tectonics.Params, in tectonics.Inputs) (Score, error) {
	res, err := tectonics.Run(params, in, tectonics.Options{Logger: fe.logger})
	if err != nil {
		return Score{}, err
	}
	eras := telemetry.ComputeRunStats(res, params)
	hist := telemetry.ComputeHistoryStats(res)

	var coverage float64
	for _, e := range eras {
		coverage += e.Coverage
	}
	coverage /= float64(len(eras))

	return Score{
		Fitness:     computeFitness(coverage, hist.NeverActive, fe.targets),
		Coverage:    coverage,
		NeverActive: hist.NeverActive,
		Events:      float64(hist.Events),
	}, nil
}

// computeFitness is the squared distance from the targets.
func computeFitness(coverage, neverActive float64, t Targets) float64 {
	dc := coverage - t.Coverage
	dq := neverActive - t.NeverActive
	f := dc*dc + dq*dq
	if math.IsNaN(f) {
		return invalidFitness
	}
	return f
}

func (fe *FitnessEvaluator) record(s Score) {
	fe.mu.Lock()
	fe.lastScore = s
	fe.mu.Unlock()
}
