// Package ncutil reads NetCDF classic variables as float64 slices.
package ncutil

import (
	"fmt"
	"math"
	"os"

	"github.com/ctessum/cdf"

	"github.com/seatkit/paracousti/internal/errors"
)

// Open opens a NetCDF classic file. The caller closes the returned *os.File.
func Open(path string) (*os.File, *cdf.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.MissingInputError(err, path)
	}
	nc, err := cdf.Open(f)
	if err != nil {
		f.Close()
		return nil, nil, errors.New(fmt.Errorf("open netcdf: %w", err)).
			Category(errors.CategoryFileParsing).
			FileContext(path).
			Build()
	}
	return f, nc, nil
}

// Has reports whether the file defines variable.
func Has(nc *cdf.File, variable string) bool {
	return len(nc.Header.Lengths(variable)) > 0
}

// ReadFloat64 reads a whole variable. Cells equal to the variable's
// _FillValue become NaN.
func ReadFloat64(nc *cdf.File, variable string) ([]float64, error) {
	if !Has(nc, variable) {
		return nil, errors.Newf("variable %q not found", variable).
			Category(errors.CategoryMissingInput).
			Build()
	}
	r := nc.Reader(variable, nil, nil)
	buf := r.Zero(-1)
	if _, err := r.Read(buf); err != nil {
		return nil, errors.New(fmt.Errorf("read %s: %w", variable, err)).
			Category(errors.CategoryFileParsing).
			Build()
	}

	out, err := Float64s(buf)
	if err != nil {
		return nil, err
	}
	if fill, ok := fillValue(nc.Header.GetAttribute(variable, "_FillValue")); ok {
		for i, v := range out {
			if v == fill {
				out[i] = math.NaN()
			}
		}
	}
	return out, nil
}

// Float64s converts a numeric NetCDF buffer to float64.
func Float64s(buf any) ([]float64, error) {
	switch b := buf.(type) {
	case []float64:
		return b, nil
	case []float32:
		return convert(b), nil
	case []int32:
		return convert(b), nil
	case []int16:
		return convert(b), nil
	case []int8:
		return convert(b), nil
	case []uint8:
		return convert(b), nil
	default:
		return nil, errors.Newf("unsupported NetCDF value type %T", buf).
			Category(errors.CategoryUnsupportedFormat).
			Build()
	}
}

func convert[T float32 | int32 | int16 | int8 | uint8](in []T) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

func fillValue(attr any) (float64, bool) {
	if attr == nil {
		return 0, false
	}
	values, err := Float64s(attr)
	if err != nil || len(values) == 0 {
		return 0, false
	}
	return values[0], true
}
