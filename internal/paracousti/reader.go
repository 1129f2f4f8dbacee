// Package paracousti reads modelled underwater-noise volumes from NetCDF
// classic files, one file per operating scenario.
package paracousti

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/mat"

	"github.com/seatkit/paracousti/internal/errors"
	"github.com/seatkit/paracousti/internal/grid"
	"github.com/seatkit/paracousti/internal/logger"
	"github.com/seatkit/paracousti/internal/ncutil"
)

// Extension of scenario files.
const Extension = ".nc"

// NoWeighting selects the unweighted metric variable.
const NoWeighting = "None"

// GetLogger returns the paracousti module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("paracousti")
}

// Field is one metric volume read from a scenario file.
type Field struct {
	Path     string
	Variable string
	Grid     *grid.Grid
	// Volume is laid out (rows, cols, depth).
	Volume *sparse.DenseArray
	// Angular is set when the X coordinate units are degrees. Longitudes are
	// then wrapped into [0, 360).
	Angular bool
	Units   string
}

// Name returns the scenario file name, the key used by the boundary-condition table.
func (f *Field) Name() string {
	return filepath.Base(f.Path)
}

// Reader reads one metric variable from scenario files.
type Reader struct {
	Weighting string
	Metric    string
}

// NewReader returns a Reader for the {weighting}_{metric} variable.
func NewReader(weighting, metric string) *Reader {
	return &Reader{Weighting: weighting, Metric: metric}
}

// VariableName is the variable read from each file: the bare metric name when
// the weighting is empty or "None", otherwise weighting_metric.
func VariableName(weighting, metric string) string {
	if weighting == "" || strings.EqualFold(weighting, NoWeighting) {
		return metric
	}
	return weighting + "_" + metric
}

// ReadFile reads the configured variable from path.
func (r *Reader) ReadFile(path string) (*Field, error) {
	f, nc, err := ncutil.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	variable, err := r.resolveVariable(nc.Header)
	if err != nil {
		return nil, errors.New(err).
			Component("paracousti").
			Category(errors.CategoryMissingInput).
			FileContext(path).
			Context("variable", VariableName(r.Weighting, r.Metric)).
			Build()
	}

	field, err := readField(nc, variable)
	if err != nil {
		return nil, errors.New(fmt.Errorf("%s: %w", filepath.Base(path), err)).
			Component("paracousti").
			Category(errors.CategoryOf(err, errors.CategoryFileParsing)).
			FileContext(path).
			Context("variable", variable).
			Build()
	}
	field.Path = path

	rows, cols := field.Grid.Dims()
	GetLogger().Debug("read scenario volume",
		logger.String("file", field.Name()),
		logger.String("variable", variable),
		logger.Int("rows", rows),
		logger.Int("cols", cols),
		logger.Int("depth", field.Volume.Shape[2]),
		logger.Bool("angular", field.Angular))
	return field, nil
}

// resolveVariable finds the metric variable. A file written with an explicit
// "None_" prefix is accepted for the unweighted metric.
func (r *Reader) resolveVariable(h *cdf.Header) (string, error) {
	want := VariableName(r.Weighting, r.Metric)
	vars := h.Variables()
	if slices.Contains(vars, want) {
		return want, nil
	}
	if want == r.Metric {
		if alt := NoWeighting + "_" + r.Metric; slices.Contains(vars, alt) {
			return alt, nil
		}
	}
	return "", fmt.Errorf("variable %q not found", want)
}

func readField(nc *cdf.File, variable string) (*Field, error) {
	h := nc.Header
	coords, ok := h.GetAttribute(variable, "coordinates").(string)
	if !ok || len(strings.Fields(coords)) < 2 {
		return nil, errors.Newf("variable %s has no coordinates attribute", variable).
			Category(errors.CategoryMissingInput).
			Build()
	}
	names := strings.Fields(coords)
	xName, yName := names[0], names[1]

	values, err := ncutil.ReadFloat64(nc, variable)
	if err != nil {
		return nil, err
	}
	xs, err := ncutil.ReadFloat64(nc, xName)
	if err != nil {
		return nil, err
	}
	ys, err := ncutil.ReadFloat64(nc, yName)
	if err != nil {
		return nil, err
	}

	units, _ := h.GetAttribute(xName, "units").(string)
	angular := strings.Contains(units, "degrees")

	g, volume, err := assemble(values, h.Lengths(variable), xs, h.Lengths(xName), ys, h.Lengths(yName))
	if err != nil {
		return nil, err
	}
	if angular {
		g.X.Apply(func(_, _ int, v float64) float64 { return grid.WrapLongitude(v) }, g.X)
	}

	valueUnits, _ := h.GetAttribute(variable, "units").(string)
	return &Field{
		Variable: variable,
		Grid:     g,
		Volume:   volume,
		Angular:  angular,
		Units:    valueUnits,
	}, nil
}

// assemble lays the values out as (rows, cols, depth) on the horizontal grid
// described by the coordinate variables. Volumes stored depth-first are
// transposed. 2-D fields get a depth of one.
func assemble(values []float64, shape []int, xs []float64, xShape []int, ys []float64, yShape []int) (*grid.Grid, *sparse.DenseArray, error) {
	var rows, cols int
	var g *grid.Grid

	switch {
	case len(xShape) == 2 && len(yShape) == 2:
		if !slices.Equal(xShape, yShape) {
			return nil, nil, shapeError("coordinate shapes %v and %v differ", xShape, yShape)
		}
		rows, cols = xShape[0], xShape[1]
		g = &grid.Grid{
			X: mat.NewDense(rows, cols, xs),
			Y: mat.NewDense(rows, cols, ys),
		}
	case len(xShape) == 1 && len(yShape) == 1:
		var err error
		g, err = expandAxes(xs, ys, shape)
		if err != nil {
			return nil, nil, err
		}
		rows, cols = g.Dims()
	default:
		return nil, nil, shapeError("unsupported coordinate ranks %d and %d", len(xShape), len(yShape))
	}

	switch {
	case len(shape) == 2 && shape[0] == rows && shape[1] == cols:
		v := sparse.ZerosDense(rows, cols, 1)
		copy(v.Elements, values)
		return g, v, nil
	case len(shape) == 3 && shape[0] == rows && shape[1] == cols:
		v := sparse.ZerosDense(rows, cols, shape[2])
		copy(v.Elements, values)
		return g, v, nil
	case len(shape) == 3 && shape[1] == rows && shape[2] == cols:
		return g, depthLast(values, shape[0], rows, cols), nil
	default:
		return nil, nil, shapeError("volume shape %v does not fit a %d×%d grid", shape, rows, cols)
	}
}

// expandAxes builds the coordinate matrices for 1-D axes. X runs along the
// first volume axis it matches.
func expandAxes(xs, ys []float64, shape []int) (*grid.Grid, error) {
	nx, ny := len(xs), len(ys)
	for _, offset := range []int{0, 1} {
		if len(shape) < offset+2 {
			break
		}
		a, b := shape[offset], shape[offset+1]
		switch {
		case a == nx && b == ny:
			x := mat.NewDense(nx, ny, nil)
			y := mat.NewDense(nx, ny, nil)
			for i := range nx {
				for j := range ny {
					x.Set(i, j, xs[i])
					y.Set(i, j, ys[j])
				}
			}
			return &grid.Grid{X: x, Y: y}, nil
		case a == ny && b == nx:
			return grid.Meshgrid(xs, ys), nil
		}
	}
	return nil, shapeError("axes of length %d and %d do not match volume shape %v", nx, ny, shape)
}

// depthLast transposes a (depth, rows, cols) buffer to (rows, cols, depth).
func depthLast(values []float64, depth, rows, cols int) *sparse.DenseArray {
	v := sparse.ZerosDense(rows, cols, depth)
	for k := range depth {
		for i := range rows {
			for j := range cols {
				v.Elements[(i*cols+j)*depth+k] = values[(k*rows+i)*cols+j]
			}
		}
	}
	return v
}

func shapeError(format string, args ...any) error {
	return errors.Newf(format, args...).
		Category(errors.CategoryShapeMismatch).
		Build()
}
