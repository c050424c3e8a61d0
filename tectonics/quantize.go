package tectonics

import "math"

// clamp01 maps NaN to 0 and clamps to [0,1].
func clamp01(v float64) float64 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 1 {
		return 1
	}
	return v
}

// clampByte rounds to the nearest byte. +Inf saturates, NaN and -Inf give 0.
func clampByte(v float64) uint8 {
	if math.IsInf(v, 1) {
		return 255
	}
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	r := math.Round(v)
	if r >= 255 {
		return 255
	}
	return uint8(r)
}

// quantize01 maps a real-valued [0,1] signal to a byte.
func quantize01(v float64) uint8 {
	return clampByte(255 * clamp01(v))
}

// addSat is a saturating byte add.
func addSat(a, b uint8) uint8 {
	s := uint16(a) + uint16(b)
	if s > 255 {
		return 255
	}
	return uint8(s)
}

func maxByte(vals ...uint8) uint8 {
	var m uint8
	for _, v := range vals {
		if v > m {
			m = v
		}
	}
	return m
}

// resetThreshold derives a per-era threshold as a fraction of the era maximum,
// floored at minThreshold but never above the maximum itself so a quiet era
// does not demand an impossible level.
func resetThreshold(maxValue uint8, frac float64, minThreshold uint8) uint8 {
	derived := clampByte(float64(maxValue) * clamp01(frac))
	floor := minThreshold
	if maxValue < floor {
		floor = maxValue
	}
	if derived < floor {
		return floor
	}
	return derived
}
