package tectonics

import (
	"errors"
	"testing"
)

func TestExtractCurrentTectonics(t *testing.T) {
	newest := blankEra(4)
	newest.UpliftPotential[2] = 77
	newest.BoundaryType[1] = uint8(BoundaryTransform)
	total := []uint8{0, 5, 200, 255}

	cur, err := ExtractCurrentTectonics(newest, total)
	if err != nil {
		t.Fatalf("ExtractCurrentTectonics: %v", err)
	}
	if cur.UpliftPotential[2] != 77 || cur.BoundaryType[1] != uint8(BoundaryTransform) {
		t.Errorf("snapshot does not carry the newest era")
	}
	if &cur.CumulativeUplift[0] != &total[0] {
		t.Errorf("cumulative uplift was copied, want shared buffer")
	}

	if _, err := ExtractCurrentTectonics(newest, total[:3]); !errors.Is(err, ErrShape) {
		t.Errorf("short totals: err = %v, want ErrShape", err)
	}
	if _, err := ExtractCurrentTectonics(nil, total); !errors.Is(err, ErrShape) {
		t.Errorf("nil newest: err = %v, want ErrShape", err)
	}
}
