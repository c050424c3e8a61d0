// Package config provides configuration loading and access for tectonic history synthesis.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all tectonic synthesis configuration parameters.
type Config struct {
	Tectonics  TectonicsConfig  `yaml:"tectonics"`
	Segments   SegmentsConfig   `yaml:"segments"`
	Hotspots   HotspotsConfig   `yaml:"hotspots"`
	Provenance ProvenanceConfig `yaml:"provenance"`
	World      WorldConfig      `yaml:"world"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// TectonicsConfig holds the authored era and belt knobs.
type TectonicsConfig struct {
	EraWeights            []float64 `yaml:"era_weights"`             // Per-era weight, oldest to newest. Length defines eraCount (5..8)
	DriftStepsByEra       []int     `yaml:"drift_steps_by_era"`      // Back-projection steps per era, oldest to newest
	BeltInfluenceDistance int       `yaml:"belt_influence_distance"` // Mesh-hop radius of event influence (1..64)
	BeltDecay             float64   `yaml:"belt_decay"`              // Exponential decay per hop (0.01..10)
	ActivityThreshold     int       `yaml:"activity_threshold"`      // Byte level a channel must exceed to count as active
	EraGainMin            float64   `yaml:"era_gain_min"`            // Orogeny gain for the oldest era
	EraGainMax            float64   `yaml:"era_gain_max"`            // Orogeny gain for the newest era
	AdvectionStepsPerEra  int       `yaml:"advection_steps_per_era"` // Mantle flow sub-steps per era for tracers
	ParallelEvents        bool      `yaml:"parallel_events"`         // Build segment and hotspot events concurrently
}

// SegmentsConfig holds boundary segment classification parameters.
type SegmentsConfig struct {
	IntensityScale     float64 `yaml:"intensity_scale"`      // Relative speed (edge lengths per step) to magnitude
	RegimeMinIntensity float64 `yaml:"regime_min_intensity"` // Segments weaker than this emit no event
}

// HotspotsConfig holds intraplate hotspot detection parameters.
type HotspotsConfig struct {
	MinPotential      float64 `yaml:"min_potential"`      // Upwelling must exceed this to seed a hotspot
	BoundaryClearance int     `yaml:"boundary_clearance"` // Hops a hotspot must keep from any era plate boundary
	Gain              float64 `yaml:"gain"`               // Potential to magnitude multiplier
}

// ProvenanceConfig holds crust-reset thresholds used by the origin walk.
type ProvenanceConfig struct {
	RiftResetFrac    float64 `yaml:"rift_reset_frac"`    // Fraction of the era's max rift potential
	ArcResetFrac     float64 `yaml:"arc_reset_frac"`     // Fraction of the era's max arc volcanism
	HotspotResetFrac float64 `yaml:"hotspot_reset_frac"` // Fraction of the era's max hotspot volcanism
	ResetMin         int     `yaml:"reset_min"`          // Floor for every derived reset threshold
}

// WorldConfig holds fixture world dimensions used by the CLI tools.
type WorldConfig struct {
	Width      int   `yaml:"width"`       // Hex columns (wraps horizontally)
	Height     int   `yaml:"height"`      // Hex rows
	PlateCount int   `yaml:"plate_count"` // Number of plates to partition into
	Seed       int64 `yaml:"seed"`        // Base seed for fixture generation
}

// TelemetryConfig holds output parameters.
type TelemetryConfig struct {
	OutputDir string `yaml:"output_dir"`
	LogStats  bool   `yaml:"log_stats"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	EraCount int       // len(Tectonics.EraWeights)
	EraGains []float64 // Linear ramp from EraGainMin to EraGainMax
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.ComputeDerived()

	return cfg, nil
}

// Clone returns a deep copy so callers can tweak knobs without touching the global.
func (c *Config) Clone() *Config {
	out := *c
	out.Tectonics.EraWeights = append([]float64(nil), c.Tectonics.EraWeights...)
	out.Tectonics.DriftStepsByEra = append([]int(nil), c.Tectonics.DriftStepsByEra...)
	out.ComputeDerived()
	return &out
}

// ComputeDerived recalculates values derived from the loaded config.
// Call after mutating Tectonics fields in place.
func (c *Config) ComputeDerived() {
	n := len(c.Tectonics.EraWeights)
	c.Derived.EraCount = n
	c.Derived.EraGains = make([]float64, n)
	for era := range c.Derived.EraGains {
		c.Derived.EraGains[era] = EraGain(era, n, c.Tectonics.EraGainMin, c.Tectonics.EraGainMax)
	}
}

// EraGain interpolates the orogeny gain for an era between min (oldest) and max (newest).
func EraGain(era, eraCount int, min, max float64) float64 {
	t := 0.0
	if eraCount > 1 {
		t = float64(era) / float64(eraCount-1)
	}
	return min + (max-min)*t
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
