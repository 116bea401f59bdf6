package grid

import (
	"fmt"

	"github.com/pthm-cable/shoal/ncvar"
)

// StridedLoader aggregates a fine netCDF grid into stride x stride blocks.
// Coordinates are block means and a block is land when its mean mask is at
// most 0.5.
type StridedLoader struct {
	File    string
	VarLat  string
	VarLon  string
	VarMask string
	Stride  int
}

func (l *StridedLoader) Load() (*Fields, error) {
	if l.Stride < 1 {
		return nil, fmt.Errorf("stride must be >= 1, got %d", l.Stride)
	}

	nc, err := ncvar.Open(l.File)
	if err != nil {
		return nil, err
	}
	defer nc.Close()

	mask, err := nc.Read(l.VarMask)
	if err != nil {
		return nil, err
	}
	if mask.Rank() != 2 {
		return nil, fmt.Errorf("%s: %w: strided grids need a 2-D mask, %q has rank %d", l.File, ErrMaskRank, l.VarMask, mask.Rank())
	}
	fnx, fny := mask.Dims[1], mask.Dims[0]

	lat, lon, err := readCoords(nc, l.VarLat, l.VarLon, fnx, fny)
	if err != nil {
		return nil, err
	}

	s := l.Stride
	nx, ny := fnx/s, fny/s
	if nx < 1 || ny < 1 {
		return nil, fmt.Errorf("%w: stride %d larger than %dx%d source grid", ErrShape, s, fnx, fny)
	}

	f := &Fields{
		NX:   nx,
		NY:   ny,
		Lat:  make([]float32, nx*ny),
		Lon:  make([]float32, nx*ny),
		Land: make([]bool, nx*ny),
	}
	area := float64(s * s)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			var sumLat, sumLon, sumMask float64
			for jj := 0; jj < s; jj++ {
				for ii := 0; ii < s; ii++ {
					src := (j*s+jj)*fnx + i*s + ii
					sumLat += float64(lat[src])
					sumLon += float64(lon[src])
					sumMask += mask.Data[src]
				}
			}
			idx := j*nx + i
			f.Lat[idx] = float32(sumLat / area)
			f.Lon[idx] = float32(sumLon / area)
			f.Land[idx] = sumMask/area <= 0.5
		}
	}
	return f, nil
}
