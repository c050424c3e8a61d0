package tectonics

// ExtractCurrentTectonics assembles the downstream snapshot from the newest
// era and the cumulative uplift. Buffers are shared, not copied; both inputs
// are immutable once produced.
func ExtractCurrentTectonics(newest *EraFields, upliftTotal []uint8) (*Tectonics, error) {
	if newest == nil {
		return nil, shapeError(StageCurrent, "newestEra", 0, 1)
	}
	n := len(upliftTotal)
	if err := newest.checkShape(StageCurrent, "newestEra", n); err != nil {
		return nil, err
	}
	return &Tectonics{
		BoundaryType:     newest.BoundaryType,
		UpliftPotential:  newest.UpliftPotential,
		RiftPotential:    newest.RiftPotential,
		ShearStress:      newest.ShearStress,
		Volcanism:        newest.Volcanism,
		Fracture:         newest.Fracture,
		CumulativeUplift: upliftTotal,
	}, nil
}
