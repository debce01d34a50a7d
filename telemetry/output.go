package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/nebula/config"
	"github.com/pthm-cable/nebula/field"
)

// ParamRecord is one row of params.csv: a parameter change applied to the field.
type ParamRecord struct {
	Frame      int64  `csv:"frame"`
	Key        string `csv:"key"`
	Value      string `csv:"value"`
	Path       string `csv:"path"`
	Generation string `csv:"generation"`
	DurationUS int64  `csv:"duration_us"`
}

// NewParamRecord flattens a field change for CSV export.
func NewParamRecord(frame int64, c field.Change) ParamRecord {
	return ParamRecord{
		Frame:      frame,
		Key:        string(c.Key),
		Value:      c.Value,
		Path:       string(c.Path),
		Generation: c.Generation.String(),
		DurationUS: c.Duration.Microseconds(),
	}
}

// OutputManager handles run output with CSV logging.
type OutputManager struct {
	dir        string
	perfFile   *os.File
	paramsFile *os.File

	perfHeaderWritten   bool
	paramsHeaderWritten bool
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

	f, err := os.Create(filepath.Join(dir, "perf.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating perf.csv: %w", err)
	}
	om.perfFile = f

	f, err = os.Create(filepath.Join(dir, "params.csv"))
	if err != nil {
		om.perfFile.Close()
		return nil, fmt.Errorf("creating params.csv: %w", err)
	}
	om.paramsFile = f

	return om, nil
}

// WriteConfig saves the current configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WritePerf writes a performance stats record to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, frame int64) error {
	if om == nil {
		return nil
	}
	records := []PerfStatsCSV{stats.ToCSV(frame)}
	if err := writeRows(records, om.perfFile, &om.perfHeaderWritten); err != nil {
		return fmt.Errorf("writing perf: %w", err)
	}
	return nil
}

// WriteParam writes a parameter change to params.csv.
func (om *OutputManager) WriteParam(rec ParamRecord) error {
	if om == nil {
		return nil
	}
	records := []ParamRecord{rec}
	if err := writeRows(records, om.paramsFile, &om.paramsHeaderWritten); err != nil {
		return fmt.Errorf("writing params: %w", err)
	}
	return nil
}

// writeRows appends records, emitting the header only on the first write.
func writeRows(records any, f *os.File, headerWritten *bool) error {
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
	for _, f := range []*os.File{om.perfFile, om.paramsFile} {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ExportParams writes the active parameters as indented JSON to dir/name
// and returns the file path.
func ExportParams(dir, name string, p field.Params) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating export directory: %w", err)
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", name, err)
	}

	if err := p.WriteJSON(f); err != nil {
		f.Close()
		return "", fmt.Errorf("writing %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing %s: %w", name, err)
	}
	return path, nil
}
