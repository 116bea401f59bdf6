package grid

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// RegularLoader builds a regular lat/lon grid between two corners. The land
// mask is a ';'-separated CSV laid out like a map: the first row is the
// northernmost line and negative values are land.
type RegularLoader struct {
	NLine, NColumn int
	UpLeftLat      float64
	UpLeftLon      float64
	LowRightLat    float64
	LowRightLon    float64
	MaskFile       string // Empty = all ocean
}

func (l *RegularLoader) Load() (*Fields, error) {
	ny, nx := l.NLine, l.NColumn
	if ny < 1 || nx < 1 {
		return nil, fmt.Errorf("%w: %d lines x %d columns", ErrShape, ny, nx)
	}

	latMin := float32(min(l.UpLeftLat, l.LowRightLat))
	latMax := float32(max(l.UpLeftLat, l.LowRightLat))
	lonMin := float32(min(l.UpLeftLon, l.LowRightLon))
	lonMax := float32(max(l.UpLeftLon, l.LowRightLon))
	dLat := (latMax - latMin) / float32(ny)
	dLong := (lonMax - lonMin) / float32(nx)

	land := make([]bool, nx*ny)
	if l.MaskFile != "" {
		var err error
		land, err = readMaskCSV(l.MaskFile, nx, ny)
		if err != nil {
			return nil, err
		}
	}

	f := &Fields{
		NX:   nx,
		NY:   ny,
		Lat:  make([]float32, nx*ny),
		Lon:  make([]float32, nx*ny),
		Land: land,
	}
	for j := 0; j < ny; j++ {
		lat := latMin + (float32(j)+0.5)*dLat
		for i := 0; i < nx; i++ {
			f.Lat[j*nx+i] = lat
			f.Lon[j*nx+i] = lonMin + (float32(i)+0.5)*dLong
		}
	}
	return f, nil
}

func readMaskCSV(path string, nx, ny int) ([]bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("grid mask: %w", err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.Comma = ';'
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("grid mask %s: %w", path, err)
	}
	if len(rows) != ny {
		return nil, fmt.Errorf("%w: mask %s has %d rows, want %d", ErrShape, path, len(rows), ny)
	}

	land := make([]bool, nx*ny)
	for l, row := range rows {
		if len(row) != nx {
			return nil, fmt.Errorf("%w: mask %s row %d has %d columns, want %d", ErrShape, path, l+1, len(row), nx)
		}
		// First row of the file is the northernmost line
		j := ny - l - 1
		for i, field := range row {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 32)
			if err != nil {
				return nil, fmt.Errorf("grid mask %s row %d column %d: %w", path, l+1, i+1, err)
			}
			land[j*nx+i] = v < 0
		}
	}
	return land, nil
}
