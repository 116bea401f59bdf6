package telemetry

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/gocarina/gocsv"
)

func TestNewOutputManagerDisabled(t *testing.T) {
	om, err := NewOutputManager("", ',')
	if err != nil || om != nil {
		t.Fatalf("got %v, %v; want nil, nil", om, err)
	}
	// Nil manager is a no-op
	if err := om.WriteStats([]StepStats{{}}); err != nil {
		t.Error(err)
	}
	if err := om.Close(); err != nil {
		t.Error(err)
	}
}

func TestOutputManagerWritesHeaderOnce(t *testing.T) {
	dir := ReplicateDir(t.TempDir(), 1)
	om, err := NewOutputManager(dir, ';')
	if err != nil {
		t.Fatal(err)
	}

	for step := 0; step < 3; step++ {
		err := om.WriteStats([]StepStats{
			{Replicate: 1, Step: step, Species: "sardine", Located: step},
			{Replicate: 1, Step: step, Species: "hake"},
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	if err := om.WritePerf(PerfStats{}, 1, 2); err != nil {
		t.Fatal(err)
	}
	if err := om.Close(); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(filepath.Join(dir, DistributionFile))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = ';'
	var got []StepStats
	if err := gocsv.UnmarshalCSV(r, &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 6 {
		t.Fatalf("got %d records, want 6", len(got))
	}
	if got[4].Step != 2 || got[4].Species != "sardine" || got[4].Located != 2 {
		t.Errorf("record 4 = %+v", got[4])
	}

	if _, err := os.Stat(filepath.Join(dir, PerfFile)); err != nil {
		t.Error(err)
	}
}
