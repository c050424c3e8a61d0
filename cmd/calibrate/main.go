// Package main searches belt emission knobs so fixture worlds reach a target
// boundary coverage.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/tecton/config"
)

// EvalRecord is one row of calibrate_log.csv. Values are the clamped knobs actually used.
type EvalRecord struct {
	Eval                  int     `csv:"eval"`
	Fitness               float64 `csv:"fitness"`
	Coverage              float64 `csv:"coverage"`
	NeverActive           float64 `csv:"never_active"`
	Events                float64 `csv:"events"`
	BeltDecay             float64 `csv:"belt_decay"`
	BeltInfluenceDistance float64 `csv:"belt_influence_distance"`
	IntensityScale        float64 `csv:"intensity_scale"`
	HotspotMinPotential   float64 `csv:"hotspot_min_potential"`
}

// formatDuration formats a duration as HH:MM:SS or MM:SS for shorter durations.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	seeds := flag.Int("seeds", 3, "Number of fixture worlds per evaluation")
	maxEvals := flag.Int("max-evals", 150, "Maximum number of evaluations")
	method := flag.String("method", "nelder-mead", "Search method: nelder-mead or cmaes")
	coverage := flag.Float64("coverage", 0.35, "Target mean per-era boundary coverage")
	quiet := flag.Float64("never-active", 0.3, "Target fraction of cells no era touches")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if *outputDir == "" {
		slog.Error("--output is required")
		os.Exit(1)
	}
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		slog.Error("failed to create output directory", "error", err)
		os.Exit(1)
	}

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	baseCfg := config.Cfg()

	params := NewParamVector()

	evalSeeds := make([]int64, *seeds)
	for i := range evalSeeds {
		evalSeeds[i] = baseCfg.World.Seed + int64(i*1000)
	}

	evaluator, err := NewFitnessEvaluator(params, baseCfg.World, evalSeeds, baseCfg, Targets{Coverage: *coverage, NeverActive: *quiet})
	if err != nil {
		slog.Error("failed to build fixture worlds", "error", err)
		os.Exit(1)
	}

	dim := params.Dim()
	initX := params.Normalize(params.ExtractFromConfig(baseCfg))

	var m optimize.Method
	switch *method {
	case "nelder-mead":
		m = &optimize.NelderMead{SimplexSize: 0.2}
	case "cmaes":
		m = &optimize.CmaEsChol{InitStepSize: 0.3, Population: 4 + 3*dim/2}
	default:
		slog.Error("unknown method", "method", *method)
		os.Exit(1)
	}

	logFile, err := os.Create(filepath.Join(*outputDir, "calibrate_log.csv"))
	if err != nil {
		slog.Error("failed to create log file", "error", err)
		os.Exit(1)
	}
	defer logFile.Close()

	evalCount := 0
	bestFitness := invalidFitness
	var bestParams []float64
	startTime := time.Now()

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			clamped := params.Clamp(params.Denormalize(x))
			fitness := evaluator.Evaluate(clamped)
			score := evaluator.LastScore()
			evalCount++

			if fitness < bestFitness {
				bestFitness = fitness
				bestParams = append([]float64(nil), clamped...)
			}

			record := []EvalRecord{{
				Eval:                  evalCount,
				Fitness:               fitness,
				Coverage:              score.Coverage,
				NeverActive:           score.NeverActive,
				Events:                score.Events,
				BeltDecay:             clamped[0],
				BeltInfluenceDistance: clamped[1],
				IntensityScale:        clamped[2],
				HotspotMinPotential:   clamped[3],
			}}
			var werr error
			if evalCount == 1 {
				werr = gocsv.Marshal(record, logFile)
			} else {
				werr = gocsv.MarshalWithoutHeaders(record, logFile)
			}
			if werr != nil {
				slog.Error("failed to write eval", "error", werr)
			}

			elapsed := time.Since(startTime)
			avgPerEval := elapsed / time.Duration(evalCount)
			remaining := time.Duration(*maxEvals-evalCount) * avgPerEval
			slog.Info("eval",
				"n", evalCount,
				"of", *maxEvals,
				"fitness", fitness,
				"coverage", score.Coverage,
				"never_active", score.NeverActive,
				"best", bestFitness,
				"elapsed", formatDuration(elapsed),
				"eta", formatDuration(remaining),
			)
			return fitness
		},
	}

	settings := &optimize.Settings{
		FuncEvaluations: *maxEvals,
		Concurrent:      0, // Sequential evaluation; each eval already fans out over seeds
	}

	slog.Info("starting calibration", "method", *method, "params", dim, "seeds", *seeds, "max_evals", *maxEvals)
	result, err := optimize.Minimize(problem, initX, settings, m)
	if err != nil {
		slog.Warn("optimization ended", "error", err)
	}

	// Use best params found (may be from any evaluation, not just final)
	if bestParams == nil && result != nil {
		bestParams = params.Clamp(params.Denormalize(result.X))
	}
	if bestParams == nil {
		slog.Error("no evaluation completed")
		os.Exit(1)
	}

	attrs := []any{"evals", evalCount, "elapsed", formatDuration(time.Since(startTime)), "fitness", bestFitness}
	for i, spec := range params.Specs {
		attrs = append(attrs, spec.Name, bestParams[i])
	}
	slog.Info("calibration complete", attrs...)

	bestCfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to reload config", "error", err)
		os.Exit(1)
	}
	params.ApplyToConfig(bestCfg, bestParams)
	configOutPath := filepath.Join(*outputDir, "best_config.yaml")
	if err := bestCfg.WriteYAML(configOutPath); err != nil {
		slog.Error("failed to write best config", "error", err)
		os.Exit(1)
	}
	slog.Info("best config saved", "path", configOutPath)
}
