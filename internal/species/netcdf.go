package species

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/ctessum/cdf"
	"gonum.org/v1/gonum/mat"

	"github.com/seatkit/paracousti/internal/errors"
	"github.com/seatkit/paracousti/internal/ncutil"
)

var (
	xAxisNames = []string{"lon", "longitude", "x"}
	yAxisNames = []string{"lat", "latitude", "y"}
)

// ReadNetCDFRaster reads a species raster from a NetCDF classic file: 1-D x
// and y axes and a 2-D value variable named after v, or the first 2-D
// variable when no variable carries that name.
func ReadNetCDFRaster(path string, v Variable) (*Raster, error) {
	f, nc, err := ncutil.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	h := nc.Header

	xName, ok := firstPresent(h, xAxisNames)
	if !ok {
		return nil, rasterError(fmt.Errorf("no x axis (one of %v)", xAxisNames), path, errors.CategoryMissingInput)
	}
	yName, ok := firstPresent(h, yAxisNames)
	if !ok {
		return nil, rasterError(fmt.Errorf("no y axis (one of %v)", yAxisNames), path, errors.CategoryMissingInput)
	}
	valueName, ok := valueVariable(h, string(v))
	if !ok {
		return nil, rasterError(fmt.Errorf("no 2-D value variable"), path, errors.CategoryMissingInput)
	}

	xs, err := ncutil.ReadFloat64(nc, xName)
	if err != nil {
		return nil, rasterError(err, path, errors.CategoryFileParsing)
	}
	ys, err := ncutil.ReadFloat64(nc, yName)
	if err != nil {
		return nil, rasterError(err, path, errors.CategoryFileParsing)
	}
	values, err := ncutil.ReadFloat64(nc, valueName)
	if err != nil {
		return nil, rasterError(err, path, errors.CategoryFileParsing)
	}

	dims := h.Dimensions(valueName)
	lengths := h.Lengths(valueName)
	xDim := h.Dimensions(xName)[0]
	yDim := h.Dimensions(yName)[0]

	var m *mat.Dense
	switch {
	case dims[0] == yDim && dims[1] == xDim:
		m = mat.NewDense(lengths[0], lengths[1], values)
	case dims[0] == xDim && dims[1] == yDim:
		m = mat.DenseCopyOf(mat.NewDense(lengths[0], lengths[1], values).T())
	default:
		return nil, rasterError(fmt.Errorf("%s dimensions %v are not (%s, %s)", valueName, dims, yDim, xDim),
			path, errors.CategoryShapeMismatch)
	}
	return &Raster{X: xs, Y: ys, Values: m}, nil
}

func firstPresent(h *cdf.Header, names []string) (string, bool) {
	vars := h.Variables()
	for _, n := range names {
		if slices.Contains(vars, n) && len(h.Lengths(n)) == 1 {
			return n, true
		}
	}
	return "", false
}

func valueVariable(h *cdf.Header, preferred string) (string, bool) {
	if len(h.Lengths(preferred)) == 2 {
		return preferred, true
	}
	for _, v := range h.Variables() {
		if len(h.Lengths(v)) == 2 {
			return v, true
		}
	}
	return "", false
}

func rasterError(err error, path string, category errors.ErrorCategory) error {
	return errors.New(fmt.Errorf("%s: %w", filepath.Base(path), err)).
		Component("species").
		Category(category).
		FileContext(path).
		Build()
}
