package main

import (
	"math"

	"github.com/pthm-cable/tecton/config"
)

// ParamSpec defines a single calibrated knob.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
	Integer bool    // Rounded before use
}

// ParamVector holds the set of all calibrated knobs.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of calibrated knobs.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Belt emission
			{Name: "belt_decay", Path: "tectonics.belt_decay", Min: 0.05, Max: 3.0, Default: 0.55},
			{Name: "belt_influence_distance", Path: "tectonics.belt_influence_distance", Min: 2, Max: 24, Default: 8, Integer: true},
			// Segment scaling
			{Name: "intensity_scale", Path: "segments.intensity_scale", Min: 0.25, Max: 3.0, Default: 1.0},
			// Hotspots
			{Name: "hotspot_min_potential", Path: "hotspots.min_potential", Min: 0.3, Max: 0.95, Default: 0.55},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds and integer knobs are whole.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		val := math.Max(spec.Min, math.Min(spec.Max, v[i]))
		if spec.Integer {
			val = math.Round(val)
		}
		clamped[i] = val
	}
	return clamped
}

// ApplyToConfig applies parameter values to a Config struct.
// Order must match Specs order.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)
	cfg.Tectonics.BeltDecay = clamped[0]
	cfg.Tectonics.BeltInfluenceDistance = int(clamped[1])
	cfg.Segments.IntensityScale = clamped[2]
	cfg.Hotspots.MinPotential = clamped[3]
}

// ExtractFromConfig extracts current parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return []float64{
		cfg.Tectonics.BeltDecay,
		float64(cfg.Tectonics.BeltInfluenceDistance),
		cfg.Segments.IntensityScale,
		cfg.Hotspots.MinPotential,
	}
}
