package maps

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gocarina/gocsv"
)

// ChecksDir is the output subdirectory holding movement checks.
const ChecksDir = "movement_checks"

// CheckRecord associates an (age, step) pair with the map source used.
type CheckRecord struct {
	AgeDt   int    `csv:"Age (dt)"`
	Step    int    `csv:"Time Step"`
	File    string `csv:"File"`
	NcIndex string `csv:"Netcdf Index"`
}

func (s *Set) checkRecords(nStep int) []CheckRecord {
	records := make([]CheckRecord, 0, len(s.index)*nStep)
	for a := range s.index {
		for t := 0; t < nStep; t++ {
			src := s.sources[s.index[a][t]]
			nc := "null"
			if src.isNetCDF() {
				nc = strconv.Itoa(src.ncIndex)
			}
			records = append(records, CheckRecord{AgeDt: a, Step: t, File: src.file, NcIndex: nc})
		}
	}
	return records
}

// Checks returns the (age, step) to source table recorded while loading.
func (s *Set) Checks() []CheckRecord { return s.checks }

// ChecksPath returns the movement checks file of a species under dir.
func ChecksPath(dir, prefix, species string) string {
	return filepath.Join(dir, ChecksDir, fmt.Sprintf("%s_movement_checks_%s.csv", prefix, species))
}

// WriteChecks writes the movement checks CSV of the set under dir.
func (s *Set) WriteChecks(dir, prefix string, sep rune) (string, error) {
	path := ChecksPath(dir, prefix, s.species)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating movement checks directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating movement checks: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = sep
	if err := gocsv.MarshalCSV(s.checks, gocsv.NewSafeCSVWriter(w)); err != nil {
		return "", fmt.Errorf("writing movement checks %s: %w", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("writing movement checks %s: %w", path, err)
	}
	return path, f.Close()
}
