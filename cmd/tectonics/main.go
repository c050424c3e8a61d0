// Command tectonics runs the tectonic history pipeline over synthetic fixture
// worlds and writes per-era statistics, per-cell history, and run fingerprints.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/pthm-cable/tecton/config"
	"github.com/pthm-cable/tecton/synth"
	"github.com/pthm-cable/tecton/tectonics"
	"github.com/pthm-cable/tecton/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot (empty = use config)")
	snapshotDir := flag.String("snapshot-dir", "", "Directory for run snapshot files")
	verifyPath := flag.String("verify", "", "Snapshot file to replay and check")
	seed := flag.Int64("seed", 0, "Base world seed (0 = use config)")
	runs := flag.Int("runs", 1, "Number of consecutive seeds to run")
	width := flag.Int("width", 0, "Hex columns (0 = use config)")
	height := flag.Int("height", 0, "Hex rows (0 = use config)")
	plates := flag.Int("plates", 0, "Plate count (0 = use config)")
	logStats := flag.Bool("log-stats", false, "Output per-era stats via slog")
	cells := flag.Bool("cells", false, "Write per-cell history CSV for each run")
	debug := flag.Bool("debug", false, "Log per-stage debug records")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	if *verifyPath != "" {
		if err := verify(*verifyPath, logger); err != nil {
			slog.Error("verification failed", "snapshot", *verifyPath, "error", err)
			os.Exit(1)
		}
		return
	}

	world := cfg.World
	if *seed != 0 {
		world.Seed = *seed
	}
	if *width > 0 {
		world.Width = *width
	}
	if *height > 0 {
		world.Height = *height
	}
	if *plates > 0 {
		world.PlateCount = *plates
	}
	dir := cfg.Telemetry.OutputDir
	if *outputDir != "" {
		dir = *outputDir
	}

	params, err := tectonics.NewParams(cfg)
	if err != nil {
		slog.Error("invalid tectonics knobs", "error", err)
		os.Exit(1)
	}

	om, err := telemetry.NewOutputManager(dir)
	if err != nil {
		slog.Error("failed to create output", "error", err)
		os.Exit(1)
	}
	defer om.Close()
	if err := om.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config", "error", err)
	}

	perf := telemetry.NewPerfCollector(*runs)
	slog.Info("starting tectonics runs",
		"seed", world.Seed,
		"runs", *runs,
		"width", world.Width,
		"height", world.Height,
		"plates", world.PlateCount,
		"eras", params.EraCount,
	)

	for run := 0; run < *runs; run++ {
		w := world
		w.Seed = world.Seed + int64(run)

		res, err := runOnce(w, params, perf, logger)
		if err != nil {
			slog.Error("run failed", "seed", w.Seed, "error", err)
			os.Exit(1)
		}

		eras := telemetry.ComputeRunStats(res, params)
		if *logStats || cfg.Telemetry.LogStats {
			for _, s := range eras {
				s.LogStats()
			}
		}
		hist := telemetry.ComputeHistoryStats(res)
		fp := telemetry.Fingerprint(res)
		slog.Info("run complete", "seed", w.Seed, "fingerprint", fp, "history", hist)

		if err := om.WriteEras(eras); err != nil {
			slog.Error("failed to write eras", "error", err)
		}
		if err := om.WriteRun(telemetry.RunRecord{Seed: w.Seed, Fingerprint: fp, HistoryStats: hist}); err != nil {
			slog.Error("failed to write run", "error", err)
		}
		if *cells {
			if err := om.WriteCells(fmt.Sprintf("cells_%d.csv", w.Seed), res); err != nil {
				slog.Error("failed to write cells", "error", err)
			}
		}
		if *snapshotDir != "" {
			path, err := telemetry.SaveSnapshot(telemetry.NewSnapshot(cfg, w, res, params), *snapshotDir)
			if err != nil {
				slog.Error("failed to save snapshot", "error", err)
			} else {
				slog.Info("snapshot saved", "path", path)
			}
		}
	}

	stats := perf.Stats()
	slog.Info("perf", "stats", stats)
	if err := om.WritePerf(stats, *runs); err != nil {
		slog.Error("failed to write perf", "error", err)
	}
}

func runOnce(world config.WorldConfig, params *tectonics.Params, perf *telemetry.PerfCollector, logger *slog.Logger) (*tectonics.Result, error) {
	in, err := synth.NewWorld(world)
	if err != nil {
		return nil, fmt.Errorf("building world: %w", err)
	}
	perf.StartRun()
	res, err := tectonics.Run(params, in, tectonics.Options{Logger: logger, Timer: perf})
	perf.EndRun()
	return res, err
}

// verify reruns the world and knobs recorded in a snapshot and compares fingerprints.
func verify(path string, logger *slog.Logger) error {
	snap, err := telemetry.LoadSnapshot(path)
	if err != nil {
		return err
	}
	cfg := snap.Config(config.Cfg())
	params, err := tectonics.NewParams(cfg)
	if err != nil {
		return err
	}
	res, err := runOnce(snap.World, params, telemetry.NewPerfCollector(1), logger)
	if err != nil {
		return err
	}
	if !snap.Matches(res) {
		return fmt.Errorf("fingerprint %s, snapshot recorded %s", telemetry.Fingerprint(res), snap.Fingerprint)
	}
	slog.Info("snapshot verified", "path", path, "fingerprint", snap.Fingerprint)
	return nil
}
