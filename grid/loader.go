package grid

import (
	"fmt"

	"github.com/pthm-cable/shoal/config"
)

// Loader produces the raw per-cell arrays a Grid is built from.
type Loader interface {
	Load() (*Fields, error)
}

// NewLoader returns the loader selected by cfg.Kind.
func NewLoader(cfg config.GridConfig) (Loader, error) {
	switch cfg.Kind {
	case config.GridRegular:
		r := cfg.Regular
		return &RegularLoader{
			NLine:       r.NLine,
			NColumn:     r.NColumn,
			UpLeftLat:   r.UpLeftLat,
			UpLeftLon:   r.UpLeftLon,
			LowRightLat: r.LowRightLat,
			LowRightLon: r.LowRightLon,
			MaskFile:    r.MaskFile,
		}, nil
	case config.GridNetCDF:
		n := cfg.NetCDF
		return &NetCDFLoader{
			File:    n.File,
			VarLat:  n.VarLat,
			VarLon:  n.VarLon,
			VarMask: n.VarMask,
			VarSurf: n.VarSurf,
		}, nil
	case config.GridStrided:
		n := cfg.NetCDF
		return &StridedLoader{
			File:    n.File,
			VarLat:  n.VarLat,
			VarLon:  n.VarLon,
			VarMask: n.VarMask,
			Stride:  n.Stride,
		}, nil
	default:
		return nil, fmt.Errorf("grid.kind: unknown grid kind %q", cfg.Kind)
	}
}

// Load builds the grid described by cfg.
func Load(cfg config.GridConfig) (*Grid, error) {
	loader, err := NewLoader(cfg)
	if err != nil {
		return nil, err
	}
	fields, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("loading %s grid: %w", cfg.Kind, err)
	}
	g, err := New(fields)
	if err != nil {
		return nil, fmt.Errorf("building %s grid: %w", cfg.Kind, err)
	}
	return g, nil
}
