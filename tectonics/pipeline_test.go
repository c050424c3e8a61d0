package tectonics_test

import (
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"

	"github.com/pthm-cable/tecton/config"
	"github.com/pthm-cable/tecton/synth"
	"github.com/pthm-cable/tecton/tectonics"
)

func init() {
	config.MustInit("")
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func smallWorld(t *testing.T, seed int64) tectonics.Inputs {
	t.Helper()
	in, err := synth.NewWorld(config.WorldConfig{Width: 24, Height: 16, PlateCount: 5, Seed: seed})
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}
	return in
}

func runWith(t *testing.T, cfg *config.Config, in tectonics.Inputs) *tectonics.Result {
	t.Helper()
	params, err := tectonics.NewParams(cfg)
	if err != nil {
		t.Fatalf("NewParams: %v", err)
	}
	res, err := tectonics.Run(params, in, tectonics.Options{Logger: quietLogger()})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return res
}

func TestPipelineDeterministic(t *testing.T) {
	a := runWith(t, config.Cfg(), smallWorld(t, 7))
	b := runWith(t, config.Cfg(), smallWorld(t, 7))
	if !reflect.DeepEqual(a, b) {
		t.Fatal("two runs with the same seed differ")
	}

	par := config.Cfg().Clone()
	par.Tectonics.ParallelEvents = true
	c := runWith(t, par, smallWorld(t, 7))
	if !reflect.DeepEqual(a.Events, c.Events) || !reflect.DeepEqual(a.History, c.History) {
		t.Fatal("parallel event building changed the output")
	}
}

func TestPipelineInvariants(t *testing.T) {
	in := smallWorld(t, 11)
	res := runWith(t, config.Cfg(), in)
	n := in.Mesh.CellCount
	eraCount := res.Membership.EraCount

	if eraCount != 5 || len(res.History.Eras) != eraCount {
		t.Fatalf("eraCount = %d, eras = %d", eraCount, len(res.History.Eras))
	}
	if res.EventCount() == 0 {
		t.Fatal("no events were produced")
	}

	h := res.History
	for i := 0; i < n; i++ {
		if le := h.LastActiveEra[i]; le != tectonics.NeverActive && int(le) >= eraCount {
			t.Fatalf("lastActiveEra[%d] = %d", i, le)
		}
		var sum int
		for _, f := range h.Eras {
			sum += int(f.UpliftPotential[i])
			if bt := f.BoundaryType[i]; bt > uint8(tectonics.BoundaryTransform) {
				t.Fatalf("boundaryType[%d] = %d", i, bt)
			}
		}
		if want := min(sum, 255); int(h.UpliftTotal[i]) != want {
			t.Fatalf("upliftTotal[%d] = %d, want %d", i, h.UpliftTotal[i], want)
		}
	}

	tr := res.Provenance.TracerIndex
	for i := 0; i < n; i++ {
		if tr[eraCount-1][i] != int32(i) {
			t.Fatalf("newest tracer[%d] = %d", i, tr[eraCount-1][i])
		}
		for e := eraCount - 2; e >= 0; e-- {
			if !in.Mesh.IsAdjacent(int(tr[e+1][i]), int(tr[e][i])) {
				t.Fatalf("tracer for cell %d jumps between eras %d and %d", i, e+1, e)
			}
		}
		if oe := res.Provenance.OriginEra[i]; int(oe) >= eraCount {
			t.Fatalf("originEra[%d] = %d", i, oe)
		}
	}

	newest := h.Eras[eraCount-1]
	if !reflect.DeepEqual(res.Tectonics.UpliftPotential, newest.UpliftPotential) {
		t.Error("current uplift is not the newest era")
	}
	if !reflect.DeepEqual(res.Tectonics.CumulativeUplift, h.UpliftTotal) {
		t.Error("cumulative uplift is not the rollup total")
	}
}

func TestPipelineSeedsDiverge(t *testing.T) {
	a := runWith(t, config.Cfg(), smallWorld(t, 1))
	b := runWith(t, config.Cfg(), smallWorld(t, 2))
	if reflect.DeepEqual(a.History.UpliftTotal, b.History.UpliftTotal) {
		t.Error("different seeds produced identical uplift")
	}
}

func TestPipelineRejectsBadInputs(t *testing.T) {
	params, err := tectonics.NewParams(config.Cfg())
	if err != nil {
		t.Fatalf("NewParams: %v", err)
	}
	in := smallWorld(t, 3)
	in.Crust.Age = in.Crust.Age[:10]
	_, err = tectonics.Run(params, in, tectonics.Options{Logger: quietLogger()})
	if !errors.Is(err, tectonics.ErrShape) {
		t.Fatalf("err = %v, want ErrShape", err)
	}
	var se *tectonics.StageError
	if !errors.As(err, &se) || se.Stage != tectonics.StageInputs {
		t.Errorf("stage = %v, want %s", err, tectonics.StageInputs)
	}
}

type phaseMark struct {
	name string
	era  int
}

type phaseLog []phaseMark

func (p *phaseLog) StartPhase(name string, era int) { *p = append(*p, phaseMark{name, era}) }

func TestPipelineReportsPhases(t *testing.T) {
	params, err := tectonics.NewParams(config.Cfg())
	if err != nil {
		t.Fatalf("NewParams: %v", err)
	}
	var phases phaseLog
	if _, err := tectonics.Run(params, smallWorld(t, 5), tectonics.Options{Logger: quietLogger(), Timer: &phases}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := 1 + 3*params.EraCount + 4; len(phases) != want {
		t.Fatalf("phase count = %d, want %d", len(phases), want)
	}
	if phases[0] != (phaseMark{tectonics.StageMembership, tectonics.NoEra}) ||
		phases[len(phases)-1] != (phaseMark{tectonics.StageCurrent, tectonics.NoEra}) {
		t.Errorf("phases = %v", phases)
	}
	for era := 0; era < params.EraCount; era++ {
		got := []phaseMark(phases[1+3*era : 4+3*era])
		want := []phaseMark{
			{tectonics.StageSegments, era},
			{tectonics.StageEvents, era},
			{tectonics.StageFields, era},
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("era %d phases = %v, want %v", era, got, want)
		}
	}
}
