package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pthm-cable/tecton/config"
	"github.com/pthm-cable/tecton/tectonics"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 2

// Snapshot records what a run needs to be reproduced and checked: the world
// fixture, the knobs, and the fingerprint of every output buffer.
type Snapshot struct {
	Version     int                     `json:"version"`
	World       config.WorldConfig      `json:"world"`
	Tectonics   config.TectonicsConfig  `json:"tectonics"`
	Segments    config.SegmentsConfig   `json:"segments"`
	Hotspots    config.HotspotsConfig   `json:"hotspots"`
	Provenance  config.ProvenanceConfig `json:"provenance"`
	EraCount    int                     `json:"era_count"`
	Events      int                     `json:"events"`
	Fingerprint string                  `json:"fingerprint"`
	Eras        []EraStats              `json:"eras,omitempty"`
}

// NewSnapshot captures a finished run.
func NewSnapshot(cfg *config.Config, world config.WorldConfig, res *tectonics.Result, params *tectonics.Params) *Snapshot {
	s := &Snapshot{
		Version:     SnapshotVersion,
		World:       world,
		Tectonics:   cfg.Tectonics,
		Segments:    cfg.Segments,
		Hotspots:    cfg.Hotspots,
		Provenance:  cfg.Provenance,
		Fingerprint: Fingerprint(res),
		Eras:        ComputeRunStats(res, params),
	}
	if res != nil && res.History != nil {
		s.EraCount = res.History.EraCount
		s.Events = res.EventCount()
	}
	return s
}

// Config returns a copy of base with every recorded pipeline knob restored.
// Only telemetry settings come from base.
func (s *Snapshot) Config(base *config.Config) *config.Config {
	cfg := base.Clone()
	cfg.Tectonics = s.Tectonics
	cfg.Tectonics.EraWeights = append([]float64(nil), s.Tectonics.EraWeights...)
	cfg.Tectonics.DriftStepsByEra = append([]int(nil), s.Tectonics.DriftStepsByEra...)
	cfg.Segments = s.Segments
	cfg.Hotspots = s.Hotspots
	cfg.Provenance = s.Provenance
	cfg.World = s.World
	cfg.ComputeDerived()
	return cfg
}

// Matches reports whether a rerun produced the recorded outputs.
func (s *Snapshot) Matches(res *tectonics.Result) bool {
	return s != nil && s.Fingerprint == Fingerprint(res)
}

// SaveSnapshot writes a snapshot to disk.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	name := fmt.Sprintf("snapshot_%d_%dx%d.json", snapshot.World.Seed, snapshot.World.Width, snapshot.World.Height)
	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snapshot.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d", snapshot.Version, SnapshotVersion)
	}

	return &snapshot, nil
}
