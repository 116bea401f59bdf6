package grid

import (
	"errors"
	"fmt"
	"math"

	"github.com/pthm-cable/shoal/ncvar"
)

// ErrMaskRank is returned when the mask variable is neither 2-D nor 3-D.
var ErrMaskRank = errors.New("mask must be 2-D or 3-D")

// NetCDFLoader reads coordinates, mask and optionally surfaces from a netCDF
// file. Coordinates may be 1-D (lon[x], lat[y]) or 2-D (y, x). A 3-D mask
// (layer, y, x) marks a cell as land when any layer is land.
type NetCDFLoader struct {
	File    string
	VarLat  string
	VarLon  string
	VarMask string
	VarSurf string // Optional
}

func (l *NetCDFLoader) Load() (*Fields, error) {
	nc, err := ncvar.Open(l.File)
	if err != nil {
		return nil, err
	}
	defer nc.Close()

	mask, err := nc.Read(l.VarMask)
	if err != nil {
		return nil, err
	}
	nx, ny, err := maskShape(mask)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", l.File, err)
	}

	lat, lon, err := readCoords(nc, l.VarLat, l.VarLon, nx, ny)
	if err != nil {
		return nil, err
	}

	f := &Fields{
		NX:   nx,
		NY:   ny,
		Lat:  lat,
		Lon:  lon,
		Land: maskLand(mask, nx, ny),
	}

	if l.VarSurf != "" {
		surf, err := nc.Read(l.VarSurf)
		if err != nil {
			return nil, err
		}
		if surf.Len() != nx*ny {
			return nil, fmt.Errorf("%w: %s %q has %d values, want %d", ErrShape, l.File, l.VarSurf, surf.Len(), nx*ny)
		}
		f.Surface = make([]float32, nx*ny)
		for idx, v := range surf.Data {
			f.Surface[idx] = float32(v)
		}
	}
	return f, nil
}

func maskShape(mask *ncvar.Var) (nx, ny int, err error) {
	r := mask.Rank()
	if r != 2 && r != 3 {
		return 0, 0, fmt.Errorf("%w: %q has rank %d", ErrMaskRank, mask.Name, r)
	}
	return mask.Dims[r-1], mask.Dims[r-2], nil
}

func isLandValue(v float64) bool {
	return v <= 0 || math.IsNaN(v)
}

func maskLand(mask *ncvar.Var, nx, ny int) []bool {
	n := nx * ny
	land := make([]bool, n)
	layers := mask.Len() / n
	for idx := 0; idx < n; idx++ {
		for k := 0; k < layers; k++ {
			if isLandValue(mask.Data[k*n+idx]) {
				land[idx] = true
				break
			}
		}
	}
	return land
}

// readCoords returns row-major 2-D latitude and longitude arrays.
func readCoords(nc *ncvar.File, varLat, varLon string, nx, ny int) (lat, lon []float32, err error) {
	latVar, err := nc.Read(varLat)
	if err != nil {
		return nil, nil, err
	}
	lonVar, err := nc.Read(varLon)
	if err != nil {
		return nil, nil, err
	}

	lat = make([]float32, nx*ny)
	lon = make([]float32, nx*ny)
	switch {
	case lonVar.Rank() == 1:
		if lonVar.Len() != nx || latVar.Len() != ny {
			return nil, nil, fmt.Errorf("%w: %s 1-D coordinates have %d lon and %d lat values, want %d and %d",
				ErrShape, nc.Path(), lonVar.Len(), latVar.Len(), nx, ny)
		}
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				lat[j*nx+i] = float32(latVar.Data[j])
				lon[j*nx+i] = float32(lonVar.Data[i])
			}
		}
	default:
		if lonVar.Len() != nx*ny || latVar.Len() != nx*ny {
			return nil, nil, fmt.Errorf("%w: %s 2-D coordinates have %d lon and %d lat values, want %d",
				ErrShape, nc.Path(), lonVar.Len(), latVar.Len(), nx*ny)
		}
		for idx := range lat {
			lat[idx] = float32(latVar.Data[idx])
			lon[idx] = float32(lonVar.Data[idx])
		}
	}
	return lat, lon, nil
}
