package tectonics

// BuildTectonicHistory rolls per-era fields (oldest to newest) into cumulative
// totals and last-activity eras. Totals are saturating byte sums.
func BuildTectonicHistory(eras []*EraFields, plateIDByEra [][]int16, activityThreshold int) (*TectonicHistory, error) {
	eraCount := len(eras)
	if eraCount < MinEras || eraCount > MaxEras {
		return nil, rangeError(StageRollups, "eraCount %d outside [%d,%d]", eraCount, MinEras, MaxEras)
	}
	if activityThreshold < 0 || activityThreshold > 255 {
		return nil, rangeError(StageRollups, "activityThreshold %d outside [0,255]", activityThreshold)
	}
	if eras[0] == nil {
		return nil, shapeError(StageRollups, "eras[0]", 0, 1)
	}
	n := len(eras[0].UpliftPotential)
	if err := requireEraFields(StageRollups, eras, eraCount, n); err != nil {
		return nil, err
	}
	if err := requirePlateIDsByEra(StageRollups, plateIDByEra, eraCount, n); err != nil {
		return nil, err
	}
	threshold := uint8(activityThreshold)

	h := &TectonicHistory{
		EraCount:             eraCount,
		Eras:                 eras,
		PlateIDByEra:         plateIDByEra,
		UpliftTotal:          make([]uint8, n),
		CollisionTotal:       make([]uint8, n),
		SubductionTotal:      make([]uint8, n),
		VolcanismTotal:       make([]uint8, n),
		FractureTotal:        make([]uint8, n),
		UpliftRecentFraction: make([]uint8, n),
		LastActiveEra:        make([]uint8, n),
		LastCollisionEra:     make([]uint8, n),
		LastSubductionEra:    make([]uint8, n),
	}
	for i := 0; i < n; i++ {
		h.LastActiveEra[i] = NeverActive
		h.LastCollisionEra[i] = NeverActive
		h.LastSubductionEra[i] = NeverActive
	}

	for era, f := range eras {
		collision := optionalChannel(f.CollisionPotential, n)
		subduction := optionalChannel(f.SubductionPotential, n)
		for i := 0; i < n; i++ {
			h.UpliftTotal[i] = addSat(h.UpliftTotal[i], f.UpliftPotential[i])
			h.VolcanismTotal[i] = addSat(h.VolcanismTotal[i], f.Volcanism[i])
			h.FractureTotal[i] = addSat(h.FractureTotal[i], f.Fracture[i])
			if collision != nil {
				h.CollisionTotal[i] = addSat(h.CollisionTotal[i], collision[i])
				if collision[i] > threshold {
					h.LastCollisionEra[i] = uint8(era)
				}
			}
			if subduction != nil {
				h.SubductionTotal[i] = addSat(h.SubductionTotal[i], subduction[i])
				if subduction[i] > threshold {
					h.LastSubductionEra[i] = uint8(era)
				}
			}
			if activitySignal(f, i) > threshold {
				h.LastActiveEra[i] = uint8(era)
			}
		}
	}

	newest := eras[eraCount-1]
	for i := 0; i < n; i++ {
		if total := h.UpliftTotal[i]; total > 0 {
			h.UpliftRecentFraction[i] = quantize01(float64(newest.UpliftPotential[i]) / float64(total))
		}
	}
	return h, nil
}

// activitySignal is the strongest of the five field channels at a cell.
func activitySignal(f *EraFields, i int) uint8 {
	return maxByte(f.UpliftPotential[i], f.RiftPotential[i], f.ShearStress[i], f.Volcanism[i], f.Fracture[i])
}

// optionalChannel returns ch when it spans every cell. Era fields built
// outside SynthesizeEraFields may omit the split channels.
func optionalChannel(ch []uint8, n int) []uint8 {
	if len(ch) != n {
		return nil
	}
	return ch
}
