// Package ncvar reads and writes whole netCDF-3 variables as float64 arrays.
package ncvar

import (
	"fmt"
	"os"
	"slices"

	"github.com/ctessum/cdf"
)

// Var is a variable read in full, in row-major order.
type Var struct {
	Name string
	Dims []int
	Data []float64
}

// Rank returns the number of dimensions.
func (v *Var) Rank() int { return len(v.Dims) }

// Len returns the number of values.
func (v *Var) Len() int { return len(v.Data) }

// File is an open netCDF file.
type File struct {
	*cdf.File
	f    *os.File
	path string
}

// Open opens a netCDF-3 file for reading.
func Open(path string) (*File, error) {
	ff, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	nc, err := cdf.Open(ff)
	if err != nil {
		ff.Close()
		return nil, fmt.Errorf("reading netcdf header of %s: %w", path, err)
	}
	return &File{File: nc, f: ff, path: path}, nil
}

// Close closes the underlying file.
func (f *File) Close() error {
	return f.f.Close()
}

// Path returns the file path.
func (f *File) Path() string { return f.path }

// Has reports whether the file defines the variable.
func (f *File) Has(name string) bool {
	return slices.Contains(f.Header.Variables(), name)
}

// Read reads a whole variable converted to float64.
func (f *File) Read(name string) (*Var, error) {
	if !f.Has(name) {
		return nil, fmt.Errorf("%s: variable %q not found", f.path, name)
	}
	dims := f.Header.Lengths(name)
	r := f.Reader(name, nil, nil)
	buf := r.Zero(-1)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("%s: reading %q: %w", f.path, name, err)
	}
	data, err := toFloat64(buf)
	if err != nil {
		return nil, fmt.Errorf("%s: variable %q: %w", f.path, name, err)
	}
	return &Var{Name: name, Dims: dims, Data: data}, nil
}

// FillValue returns the _FillValue attribute of a variable, if any.
func (f *File) FillValue(name string) (float64, bool) {
	attr := f.Header.GetAttribute(name, "_FillValue")
	if attr == nil {
		return 0, false
	}
	vals, err := toFloat64(attr)
	if err != nil || len(vals) == 0 {
		return 0, false
	}
	return vals[0], true
}

func toFloat64(buf any) ([]float64, error) {
	switch v := buf.(type) {
	case []float64:
		return v, nil
	case []float32:
		return convert(v), nil
	case []int32:
		return convert(v), nil
	case []int16:
		return convert(v), nil
	case []int8:
		return convert(v), nil
	case []uint8:
		return convert(v), nil
	default:
		return nil, fmt.Errorf("unsupported netcdf type %T", buf)
	}
}

func convert[T float32 | int32 | int16 | int8 | uint8](src []T) []float64 {
	out := make([]float64, len(src))
	for i, x := range src {
		out[i] = float64(x)
	}
	return out
}

// Spec describes a float32 variable to create.
type Spec struct {
	Name      string
	Dims      []string
	Data      []float32
	FillValue *float32
}

// Create writes a netCDF-3 file holding the given float32 variables.
// dims and lens declare the dimensions referenced by the specs.
func Create(path string, dims []string, lens []int, vars []Spec) error {
	h := cdf.NewHeader(dims, lens)
	for _, v := range vars {
		h.AddVariable(v.Name, v.Dims, []float32{0})
		if v.FillValue != nil {
			h.AddAttribute(v.Name, "_FillValue", []float32{*v.FillValue})
		}
	}
	h.Define()

	ff, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer ff.Close()

	f, err := cdf.Create(ff, h)
	if err != nil {
		return fmt.Errorf("writing netcdf header of %s: %w", path, err)
	}
	for _, v := range vars {
		end := f.Header.Lengths(v.Name)
		start := make([]int, len(end))
		w := f.Writer(v.Name, start, end)
		if _, err := w.Write(v.Data); err != nil {
			return fmt.Errorf("writing %q to %s: %w", v.Name, path, err)
		}
	}
	return ff.Close()
}
