package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/pthm-cable/tecton/config"
	"github.com/pthm-cable/tecton/tectonics"
)

// CellRecord is one row of cells.csv: the per-cell history of a run.
type CellRecord struct {
	Cell             int   `csv:"cell"`
	Plate            int16 `csv:"plate"`
	BoundaryType     uint8 `csv:"boundary_type"`
	Uplift           uint8 `csv:"uplift"`
	UpliftTotal      uint8 `csv:"uplift_total"`
	VolcanismTotal   uint8 `csv:"volcanism_total"`
	LastActiveEra    uint8 `csv:"last_active_era"`
	OriginEra        uint8 `csv:"origin_era"`
	OriginPlate      int16 `csv:"origin_plate"`
	DriftDistance    uint8 `csv:"drift"`
	CrustAge         uint8 `csv:"crust_age"`
	LastBoundaryType uint8 `csv:"last_boundary_type"`
}

// CellRecords flattens a run into per-cell rows.
func CellRecords(res *tectonics.Result) []CellRecord {
	if res == nil || res.History == nil || res.Provenance == nil || res.Tectonics == nil {
		return nil
	}
	h, p, cur := res.History, res.Provenance, res.Tectonics
	newestPlates := h.PlateIDByEra[h.EraCount-1]
	out := make([]CellRecord, len(h.UpliftTotal))
	for i := range out {
		out[i] = CellRecord{
			Cell:             i,
			Plate:            newestPlates[i],
			BoundaryType:     cur.BoundaryType[i],
			Uplift:           cur.UpliftPotential[i],
			UpliftTotal:      h.UpliftTotal[i],
			VolcanismTotal:   h.VolcanismTotal[i],
			LastActiveEra:    h.LastActiveEra[i],
			OriginEra:        p.OriginEra[i],
			OriginPlate:      p.OriginPlateID[i],
			DriftDistance:    p.DriftDistance[i],
			CrustAge:         p.CrustAge[i],
			LastBoundaryType: p.LastBoundaryType[i],
		}
	}
	return out
}

// RunRecord is one row of runs.csv.
type RunRecord struct {
	Seed        int64  `csv:"seed"`
	Fingerprint string `csv:"fingerprint"`
	HistoryStats
}

// OutputManager handles structured run output with CSV logging.
type OutputManager struct {
	dir      string
	erasFile *os.File
	runsFile *os.File
	perfFile *os.File

	// Track if headers have been written
	erasHeaderWritten bool
	runsHeaderWritten bool
	perfHeaderWritten bool
}

// NewOutputManager creates a new output manager and initializes the output directory.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}
	files := []struct {
		name string
		dst  **os.File
	}{
		{"eras.csv", &om.erasFile},
		{"runs.csv", &om.runsFile},
		{"perf.csv", &om.perfFile},
	}
	for _, f := range files {
		fh, err := os.Create(filepath.Join(dir, f.name))
		if err != nil {
			om.Close()
			return nil, fmt.Errorf("creating %s: %w", f.name, err)
		}
		*f.dst = fh
	}
	return om, nil
}

// WriteConfig saves the current configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteEras appends era stats rows to eras.csv.
func (om *OutputManager) WriteEras(stats []EraStats) error {
	if om == nil {
		return nil
	}
	if err := appendCSV(om.erasFile, &om.erasHeaderWritten, stats); err != nil {
		return fmt.Errorf("writing eras: %w", err)
	}
	return nil
}

// WriteRun appends a run summary row to runs.csv.
func (om *OutputManager) WriteRun(r RunRecord) error {
	if om == nil {
		return nil
	}
	if err := appendCSV(om.runsFile, &om.runsHeaderWritten, []RunRecord{r}); err != nil {
		return fmt.Errorf("writing run: %w", err)
	}
	return nil
}

// WritePerf writes a performance stats record to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, run int) error {
	if om == nil {
		return nil
	}
	if err := appendCSV(om.perfFile, &om.perfHeaderWritten, []PerfStatsCSV{stats.ToCSV(run)}); err != nil {
		return fmt.Errorf("writing perf: %w", err)
	}
	return nil
}

// WriteCells writes the per-cell history of one run to its own CSV file.
func (om *OutputManager) WriteCells(name string, res *tectonics.Result) error {
	if om == nil {
		return nil
	}
	f, err := os.Create(filepath.Join(om.dir, name))
	if err != nil {
		return fmt.Errorf("creating %s: %w", name, err)
	}
	defer f.Close()

	records := CellRecords(res)
	if err := gocsv.MarshalFile(&records, f); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

// appendCSV marshals records, writing the header only on the first call for a file.
func appendCSV[T any](f *os.File, headerWritten *bool, records []T) error {
	if len(records) == 0 {
		return nil
	}
	if !*headerWritten {
		if err := gocsv.Marshal(records, f); err != nil {
			return err
		}
		*headerWritten = true
		return nil
	}
	return gocsv.MarshalWithoutHeaders(records, f)
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	var firstErr error
	for _, f := range []*os.File{om.erasFile, om.runsFile, om.perfFile} {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
