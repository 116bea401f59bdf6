package telemetry

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/shoal/config"
)

// Output file names inside a replicate directory.
const (
	DistributionFile = "distribution.csv"
	PerfFile         = "perf.csv"
	ConfigFile       = "config.yaml"
)

// csvStream appends gocsv records to one file, writing the header once.
type csvStream struct {
	file          *os.File
	writer        *csv.Writer
	headerWritten bool
}

func openStream(path string, comma rune) (*csvStream, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := csv.NewWriter(f)
	w.Comma = comma
	return &csvStream{file: f, writer: w}, nil
}

func (s *csvStream) write(records any) error {
	sw := gocsv.NewSafeCSVWriter(s.writer)
	var err error
	if !s.headerWritten {
		// First write includes headers
		err = gocsv.MarshalCSV(records, sw)
		s.headerWritten = true
	} else {
		err = gocsv.MarshalCSVWithoutHeaders(records, sw)
	}
	if err != nil {
		return err
	}
	s.writer.Flush()
	return s.writer.Error()
}

func (s *csvStream) close() error {
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}

// OutputManager handles per-replicate CSV output.
type OutputManager struct {
	dir          string
	distribution *csvStream
	perf         *csvStream
}

// ReplicateDir returns the output directory of replicate r under dir.
func ReplicateDir(dir string, r int) string {
	return filepath.Join(dir, fmt.Sprintf("replicate_%03d", r))
}

// NewOutputManager creates dir and opens the CSV files with the given
// separator. Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string, comma rune) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}

	var err error
	om.distribution, err = openStream(filepath.Join(dir, DistributionFile), comma)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", DistributionFile, err)
	}

	om.perf, err = openStream(filepath.Join(dir, PerfFile), comma)
	if err != nil {
		om.distribution.close()
		return nil, fmt.Errorf("creating %s: %w", PerfFile, err)
	}

	return om, nil
}

// WriteConfig saves the configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, ConfigFile))
}

// WriteStats appends step statistics to distribution.csv.
func (om *OutputManager) WriteStats(stats []StepStats) error {
	if om == nil || len(stats) == 0 {
		return nil
	}
	if err := om.distribution.write(stats); err != nil {
		return fmt.Errorf("writing distribution: %w", err)
	}
	return nil
}

// WritePerf appends a performance record to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, replicate, step int) error {
	if om == nil {
		return nil
	}
	records := []PerfStatsCSV{stats.ToCSV(replicate, step)}
	if err := om.perf.write(records); err != nil {
		return fmt.Errorf("writing perf: %w", err)
	}
	return nil
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
	for _, s := range []*csvStream{om.distribution, om.perf} {
		if s == nil {
			continue
		}
		if err := s.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
