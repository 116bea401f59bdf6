package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pthm-cable/shoal/population"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds the population state of one replicate at the end of a step.
type Snapshot struct {
	Version   int   `json:"version"`
	Seed      int64 `json:"seed"`
	FixedSeed bool  `json:"fixed_seed"`
	Replicate int   `json:"replicate"`
	Step      int   `json:"step"`

	NX int `json:"nx"`
	NY int `json:"ny"`

	Species []string      `json:"species"`
	Schools []SchoolState `json:"schools"`
}

// SchoolState is one school in a snapshot. Cell is -1 when unlocated.
type SchoolState struct {
	ID      uint32  `json:"id"`
	Species int     `json:"species"`
	AgeDt   int     `json:"age_dt"`
	Cell    int     `json:"cell"`
	I       int     `json:"i"`
	J       int     `json:"j"`
	Lat     float32 `json:"lat"`
	Lon     float32 `json:"lon"`
	Out     bool    `json:"out,omitempty"`
}

// SchoolStates converts population records for a snapshot.
func SchoolStates(records []population.Record) []SchoolState {
	out := make([]SchoolState, len(records))
	for k, r := range records {
		out[k] = SchoolState{
			ID:      r.ID,
			Species: r.Species,
			AgeDt:   r.AgeDt,
			Cell:    r.Cell,
			I:       r.I,
			J:       r.J,
			Lat:     r.Lat,
			Lon:     r.Lon,
			Out:     r.Out,
		}
	}
	return out
}

// SaveSnapshot writes a snapshot to dir.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("snapshot_%d.json", snapshot.Step))

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
		return nil, fmt.Errorf("snapshot %s: version %d, want %d", path, snapshot.Version, SnapshotVersion)
	}

	return &snapshot, nil
}
