// Package synth builds deterministic fixture worlds for the tectonics pipeline.
package synth

import (
	"math/rand"

	"github.com/pthm-cable/tecton/config"
	"github.com/pthm-cable/tecton/tectonics"
)

// NewWorld returns the upstream inputs for a world described by cfg.
// Every random stream is seeded from cfg.Seed through its own label, so
// changing one generator never shifts another.
func NewWorld(cfg config.WorldConfig) (tectonics.Inputs, error) {
	m, err := HexMesh(cfg.Width, cfg.Height)
	if err != nil {
		return tectonics.Inputs{}, err
	}
	base := uint64(cfg.Seed)
	stream := func(label string) *rand.Rand {
		return rand.New(rand.NewSource(int64(tectonics.DeriveSeed(base, label))))
	}

	plates := PartitionPlates(m, cfg.PlateCount, stream("plates"))
	motion := RandomMotion(plates, stream("motion"))
	crust := RandomCrust(plates, stream("crust"))
	mantle := MantleForcing(m,
		NewFBM(int64(tectonics.DeriveSeed(base, "mantle.upwelling"))),
		NewFBM(int64(tectonics.DeriveSeed(base, "mantle.swirl"))),
	)

	return tectonics.Inputs{
		Mesh:   m,
		Plates: plates,
		Motion: motion,
		Crust:  crust,
		Mantle: mantle,
	}, nil
}
