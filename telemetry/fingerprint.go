package telemetry

import (
	"encoding/binary"
	"fmt"
	"hash"
	"hash/fnv"

	"github.com/pthm-cable/tecton/tectonics"
)

// Fingerprint hashes every output buffer of a run in a fixed order.
// Two runs with the same inputs and knobs produce the same fingerprint.
func Fingerprint(res *tectonics.Result) string {
	h := fnv.New64a()
	if res == nil || res.History == nil {
		return fmt.Sprintf("%016x", h.Sum64())
	}

	hist := res.History
	for _, f := range hist.Eras {
		for _, buf := range [][]uint8{
			f.BoundaryType, f.UpliftPotential, f.RiftPotential, f.ShearStress, f.Volcanism,
			f.Fracture, f.CollisionPotential, f.SubductionPotential, f.BoundaryIntensity,
		} {
			h.Write(buf)
		}
	}
	for _, ids := range hist.PlateIDByEra {
		writeInt16s(h, ids)
	}
	for _, buf := range [][]uint8{
		hist.UpliftTotal, hist.CollisionTotal, hist.SubductionTotal, hist.VolcanismTotal,
		hist.FractureTotal, hist.UpliftRecentFraction, hist.LastActiveEra,
		hist.LastCollisionEra, hist.LastSubductionEra,
	} {
		h.Write(buf)
	}

	if p := res.Provenance; p != nil {
		var b [4]byte
		for _, tr := range p.TracerIndex {
			for _, v := range tr {
				binary.LittleEndian.PutUint32(b[:], uint32(v))
				h.Write(b[:])
			}
		}
		writeInt16s(h, p.OriginPlateID)
		for _, buf := range [][]uint8{p.OriginEra, p.DriftDistance, p.LastBoundaryEra, p.LastBoundaryType, p.CrustAge} {
			h.Write(buf)
		}
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

func writeInt16s(h hash.Hash64, ids []int16) {
	var b [2]byte
	for _, v := range ids {
		binary.LittleEndian.PutUint16(b[:], uint16(v))
		h.Write(b[:])
	}
}
