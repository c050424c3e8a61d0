package tectonics

import (
	"errors"
	"math"
	"testing"
)

func TestSynthesizeDecayScenario(t *testing.T) {
	m := gridMesh(10, 10)
	events := []TectonicEventRecord{
		{Type: EventConvergentCollision, Origin: 10, Magnitude: 1, PlateA: 0, PlateB: 1, OriginPlate: 0},
	}
	f, err := SynthesizeEraFields(m, events, 1, 1, Emission{Radius: 3, Decay: 0.55}, nil)
	if err != nil {
		t.Fatalf("SynthesizeEraFields: %v", err)
	}

	want85 := uint8(math.Round(255 * math.Exp(-1.1)))
	if want85 != 85 {
		t.Fatalf("reference decay = %d, want 85", want85)
	}

	tests := []struct {
		name string
		cell int
		want uint8
	}{
		{"origin", 10, 255},
		{"one hop", 11, uint8(math.Round(255 * math.Exp(-0.55)))},
		{"two hops", 12, 85},
		{"three hops", 13, uint8(math.Round(255 * math.Exp(-1.65)))},
		{"four hops beyond cap", 14, 0},
		{"two hops across wrap", 18, 85},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.UpliftPotential[tt.cell]; got != tt.want {
				t.Errorf("upliftPotential[%d] = %d, want %d", tt.cell, got, tt.want)
			}
		})
	}

	if f.CollisionPotential[10] != 255 || f.SubductionPotential[10] != 0 {
		t.Errorf("collision/subduction split = %d/%d, want 255/0", f.CollisionPotential[10], f.SubductionPotential[10])
	}
	if f.BoundaryType[12] != uint8(BoundaryConvergent) || f.BoundaryType[14] != uint8(BoundaryNone) {
		t.Errorf("boundaryType = %d/%d, want convergent/none", f.BoundaryType[12], f.BoundaryType[14])
	}
}

func TestSynthesizeLocality(t *testing.T) {
	m := gridMesh(12, 12)
	events := []TectonicEventRecord{
		{Type: EventDivergentRift, Origin: 30, Magnitude: 0.8},
		{Type: EventIntraplateHotspot, Origin: 100, Magnitude: 0.6},
	}
	em := Emission{Radius: 2, Decay: 0.55}
	f, err := SynthesizeEraFields(m, events, 0.5, 1, em, nil)
	if err != nil {
		t.Fatalf("SynthesizeEraFields: %v", err)
	}
	near := make([]bool, m.CellCount)
	for _, ev := range events {
		for _, c := range hopCells(m, ev.Origin, em.Radius) {
			near[c] = true
		}
	}
	for i := 0; i < m.CellCount; i++ {
		if near[i] {
			continue
		}
		if f.BoundaryIntensity[i] != 0 || f.BoundaryType[i] != 0 {
			t.Fatalf("cell %d outside every event radius has intensity %d, type %d", i, f.BoundaryIntensity[i], f.BoundaryType[i])
		}
	}
	if f.BoundaryType[100] != uint8(BoundaryNone) {
		t.Errorf("hotspot origin boundaryType = %d, want none", f.BoundaryType[100])
	}
	if f.VolcanismSource[100] != EventIntraplateHotspot {
		t.Errorf("hotspot origin volcanism source = %v", f.VolcanismSource[100])
	}
}

func TestSynthesizeDecayMonotonic(t *testing.T) {
	m := gridMesh(20, 3)
	events := []TectonicEventRecord{{Type: EventTransformShear, Origin: 20, Magnitude: 1}}
	f, err := SynthesizeEraFields(m, events, 1, 1, Emission{Radius: 8, Decay: 0.3}, nil)
	if err != nil {
		t.Fatalf("SynthesizeEraFields: %v", err)
	}
	for x := 1; x <= 8; x++ {
		prev, cur := f.ShearStress[20+x-1], f.ShearStress[20+x]
		if cur > prev {
			t.Errorf("shear at hop %d = %d exceeds hop %d = %d", x, cur, x-1, prev)
		}
	}
}

func TestSynthesizeSaturates(t *testing.T) {
	m := gridMesh(8, 8)
	var events []TectonicEventRecord
	for k := 0; k < 50; k++ {
		events = append(events, TectonicEventRecord{Type: EventConvergentSubduction, Origin: 27, Magnitude: 1})
	}
	f, err := SynthesizeEraFields(m, events, 10, OrogenyEraGainMax, Emission{Radius: 4, Decay: 0.01}, nil)
	if err != nil {
		t.Fatalf("SynthesizeEraFields: %v", err)
	}
	if f.UpliftPotential[27] != 255 || f.Volcanism[27] != 255 {
		t.Errorf("saturated origin = %d/%d, want 255", f.UpliftPotential[27], f.Volcanism[27])
	}
	if f.SubductionPotential[27] != 255 {
		t.Errorf("subduction split = %d, want 255", f.SubductionPotential[27])
	}
}

// The nearest boundary event sets boundaryType. Equal hop distance goes to the
// lower origin cell, then to the earlier event.
func TestBoundaryTypeTieBreak(t *testing.T) {
	m := gridMesh(10, 3)
	em := Emission{Radius: 4, Decay: 0.55}

	tests := []struct {
		name   string
		events []TectonicEventRecord
		cell   int
		want   BoundaryType
	}{
		{
			name: "lower origin wins at equal distance",
			events: []TectonicEventRecord{
				{Type: EventTransformShear, Origin: 15, Magnitude: 0.5},
				{Type: EventDivergentRift, Origin: 13, Magnitude: 0.5},
			},
			cell: 14,
			want: BoundaryDivergent,
		},
		{
			name: "closer event wins over lower origin",
			events: []TectonicEventRecord{
				{Type: EventTransformShear, Origin: 15, Magnitude: 0.5},
				{Type: EventDivergentRift, Origin: 13, Magnitude: 0.5},
			},
			cell: 16,
			want: BoundaryTransform,
		},
		{
			name: "same origin keeps insertion order",
			events: []TectonicEventRecord{
				{Type: EventConvergentCollision, Origin: 13, Magnitude: 0.5},
				{Type: EventDivergentRift, Origin: 13, Magnitude: 0.5},
			},
			cell: 14,
			want: BoundaryConvergent,
		},
		{
			name: "hotspots never set boundary type",
			events: []TectonicEventRecord{
				{Type: EventIntraplateHotspot, Origin: 14, Magnitude: 1},
				{Type: EventDivergentRift, Origin: 11, Magnitude: 0.5},
			},
			cell: 14,
			want: BoundaryDivergent,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := SynthesizeEraFields(m, tt.events, 1, 1, em, nil)
			if err != nil {
				t.Fatalf("SynthesizeEraFields: %v", err)
			}
			if got := BoundaryType(f.BoundaryType[tt.cell]); got != tt.want {
				t.Errorf("boundaryType[%d] = %v, want %v", tt.cell, got, tt.want)
			}
		})
	}
}

func TestSynthesizeRejectsBadKnobs(t *testing.T) {
	m := gridMesh(4, 4)
	tests := []struct {
		name   string
		weight float64
		gain   float64
		em     Emission
		events []TectonicEventRecord
		target error
	}{
		{"gain below range", 1, 0.5, Emission{Radius: 2, Decay: 0.5}, nil, ErrConfigRange},
		{"radius zero", 1, 1, Emission{Radius: 0, Decay: 0.5}, nil, ErrConfigRange},
		{"decay NaN", 1, 1, Emission{Radius: 2, Decay: math.NaN()}, nil, ErrConfigRange},
		{"negative weight", -1, 1, Emission{Radius: 2, Decay: 0.5}, nil, ErrConfigRange},
		{"origin out of range", 1, 1, Emission{Radius: 2, Decay: 0.5},
			[]TectonicEventRecord{{Type: EventDivergentRift, Origin: 99, Magnitude: 1}}, ErrShape},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SynthesizeEraFields(m, tt.events, tt.weight, tt.gain, tt.em, nil)
			if !errors.Is(err, tt.target) {
				t.Fatalf("err = %v, want %v", err, tt.target)
			}
			var se *StageError
			if !errors.As(err, &se) || se.Stage != StageFields {
				t.Errorf("err = %v, want StageError for %s", err, StageFields)
			}
		})
	}
}

func TestSynthesizeNonFiniteMagnitude(t *testing.T) {
	m := gridMesh(6, 6)
	events := []TectonicEventRecord{
		{Type: EventDivergentRift, Origin: 7, Magnitude: math.NaN()},
		{Type: EventDivergentRift, Origin: 28, Magnitude: math.Inf(1)},
		{Type: EventDivergentRift, Origin: 3, Magnitude: -2},
	}
	f, err := SynthesizeEraFields(m, events, 1, 1, Emission{Radius: 1, Decay: 1}, nil)
	if err != nil {
		t.Fatalf("SynthesizeEraFields: %v", err)
	}
	tests := []struct {
		name string
		cell int
		want uint8
	}{
		{"NaN origin", 7, 0},
		{"negative origin", 3, 0},
		{"+Inf origin", 28, 255},
		{"+Inf one hop", 29, uint8(math.Round(255 * math.Exp(-1)))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.RiftPotential[tt.cell]; got != tt.want {
				t.Errorf("riftPotential[%d] = %d, want %d", tt.cell, got, tt.want)
			}
		})
	}
}

// Magnitudes above 1 are not clamped per event; only the accumulated sum is.
func TestSynthesizeStrongEventDecay(t *testing.T) {
	m := gridMesh(10, 10)
	events := []TectonicEventRecord{
		{Type: EventConvergentCollision, Origin: 10, Magnitude: 2, PlateA: 0, PlateB: 1, OriginPlate: 0},
	}
	f, err := SynthesizeEraFields(m, events, 1, 1, Emission{Radius: 3, Decay: 0.55}, nil)
	if err != nil {
		t.Fatalf("SynthesizeEraFields: %v", err)
	}

	tests := []struct {
		name string
		cell int
		want uint8
	}{
		{"origin", 10, 255},
		{"one hop saturates", 11, 255},
		{"two hops", 12, 170},
		{"three hops", 13, 98},
		{"four hops beyond cap", 14, 0},
		{"two hops across wrap", 18, 170},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.UpliftPotential[tt.cell]; got != tt.want {
				t.Errorf("upliftPotential[%d] = %d, want %d", tt.cell, got, tt.want)
			}
		})
	}
	if want := uint8(math.Round(255 * 2 * math.Exp(-1.1))); want != 170 {
		t.Fatalf("reference decay = %d, want 170", want)
	}
}

func hopCells(m interface{ NeighborsOf(int) []int32 }, origin int32, radius int) []int32 {
	seen := map[int32]int{origin: 0}
	queue := []int32{origin}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if seen[c] == radius {
			continue
		}
		for _, n := range m.NeighborsOf(int(c)) {
			if _, ok := seen[n]; !ok {
				seen[n] = seen[c] + 1
				queue = append(queue, n)
			}
		}
	}
	out := make([]int32, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	return out
}
