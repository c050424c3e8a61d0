package telemetry

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/gocarina/gocsv"
	"github.com/pthm-cable/tecton/config"
	"github.com/pthm-cable/tecton/synth"
	"github.com/pthm-cable/tecton/tectonics"
)

func init() {
	config.MustInit("")
}

func runWorld(t *testing.T, seed int64) (*tectonics.Result, *tectonics.Params) {
	t.Helper()
	return runWorldWith(t, config.Cfg(), seed)
}

func runWorldWith(t *testing.T, cfg *config.Config, seed int64) (*tectonics.Result, *tectonics.Params) {
	t.Helper()
	in, err := synth.NewWorld(config.WorldConfig{Width: 16, Height: 12, PlateCount: 4, Seed: seed})
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}
	params, err := tectonics.NewParams(cfg)
	if err != nil {
		t.Fatalf("NewParams: %v", err)
	}
	pc := NewPerfCollector(1)
	pc.StartRun()
	res, err := tectonics.Run(params, in, tectonics.Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Timer:  pc,
	})
	pc.EndRun()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return res, params
}

func TestFingerprintStable(t *testing.T) {
	a, _ := runWorld(t, 5)
	b, _ := runWorld(t, 5)
	c, _ := runWorld(t, 6)

	fa, fb, fc := Fingerprint(a), Fingerprint(b), Fingerprint(c)
	if len(fa) != 16 {
		t.Errorf("fingerprint %q is not 16 hex digits", fa)
	}
	if fa != fb {
		t.Errorf("same seed fingerprints differ: %s vs %s", fa, fb)
	}
	if fa == fc {
		t.Errorf("different seeds share fingerprint %s", fa)
	}
}

func TestFingerprintTracksEdits(t *testing.T) {
	res, _ := runWorld(t, 8)
	before := Fingerprint(res)
	res.Provenance.CrustAge[0] ^= 1
	if Fingerprint(res) == before {
		t.Error("fingerprint ignores provenance bytes")
	}
}

func TestOutputManagerDisabled(t *testing.T) {
	om, err := NewOutputManager("")
	if err != nil || om != nil {
		t.Fatalf("NewOutputManager(\"\") = %v, %v", om, err)
	}
	if err := om.WriteEras([]EraStats{{}}); err != nil {
		t.Errorf("nil manager WriteEras: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Errorf("nil manager Close: %v", err)
	}
}

func TestOutputManagerWritesCSV(t *testing.T) {
	res, params := runWorld(t, 3)
	dir := t.TempDir()
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatalf("NewOutputManager: %v", err)
	}

	eras := ComputeRunStats(res, params)
	for run := 0; run < 2; run++ {
		if err := om.WriteEras(eras); err != nil {
			t.Fatalf("WriteEras: %v", err)
		}
		if err := om.WriteRun(RunRecord{Seed: int64(run), Fingerprint: Fingerprint(res), HistoryStats: ComputeHistoryStats(res)}); err != nil {
			t.Fatalf("WriteRun: %v", err)
		}
	}
	if err := om.WriteCells("cells.csv", res); err != nil {
		t.Fatalf("WriteCells: %v", err)
	}
	if err := om.WriteConfig(config.Cfg()); err != nil {
		t.Fatalf("WriteConfig: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	var gotEras []EraStats
	readCSV(t, filepath.Join(dir, "eras.csv"), &gotEras)
	if want := 2 * params.EraCount; len(gotEras) != want {
		t.Errorf("eras.csv rows = %d, want %d", len(gotEras), want)
	}
	for i, row := range gotEras {
		if row.Era != i%params.EraCount {
			t.Errorf("row %d era = %d", i, row.Era)
		}
	}

	var runs []RunRecord
	readCSV(t, filepath.Join(dir, "runs.csv"), &runs)
	if len(runs) != 2 || runs[1].Seed != 1 || runs[1].Cells != len(res.History.UpliftTotal) {
		t.Errorf("runs.csv = %+v", runs)
	}

	var cells []CellRecord
	readCSV(t, filepath.Join(dir, "cells.csv"), &cells)
	if len(cells) != len(res.History.UpliftTotal) {
		t.Fatalf("cells.csv rows = %d", len(cells))
	}
	for i, c := range cells {
		if c.UpliftTotal != res.History.UpliftTotal[i] || c.CrustAge != res.Provenance.CrustAge[i] {
			t.Fatalf("cell %d row %+v does not match result", i, c)
		}
	}

	if _, err := config.Load(filepath.Join(dir, "config.yaml")); err != nil {
		t.Errorf("config.yaml does not reload: %v", err)
	}
}

func readCSV(t *testing.T, path string, out any) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	if err := gocsv.UnmarshalFile(f, out); err != nil {
		t.Fatalf("unmarshal %s: %v", path, err)
	}
}
