// Package grid holds the structured coordinate lattice shared by every field in
// a run, and the nearest-neighbour regridding and resampling used to put
// scenario fields onto it.
package grid

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/seatkit/paracousti/internal/errors"
	"github.com/seatkit/paracousti/internal/logger"
)

// GetLogger returns the grid module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("grid")
}

// Grid is a structured lattice of coordinate matrices. Rows index Y, columns index X.
type Grid struct {
	X *mat.Dense
	Y *mat.Dense
}

// New validates that x and y share a non-empty shape and wraps them in a Grid.
func New(x, y *mat.Dense) (*Grid, error) {
	if x == nil || y == nil {
		return nil, errors.Newf("grid coordinates must not be nil").
			Component("grid").
			Category(errors.CategoryValidation).
			Build()
	}
	if err := sameShape(x, y, "y"); err != nil {
		return nil, err
	}
	return &Grid{X: x, Y: y}, nil
}

// Meshgrid builds a Grid from 1-D axes: X varies along columns, Y along rows.
func Meshgrid(xs, ys []float64) *Grid {
	rows, cols := len(ys), len(xs)
	x := mat.NewDense(rows, cols, nil)
	y := mat.NewDense(rows, cols, nil)
	for i := range rows {
		x.SetRow(i, xs)
		for j := range cols {
			y.Set(i, j, ys[i])
		}
	}
	return &Grid{X: x, Y: y}
}

// Dims returns the number of rows and columns.
func (g *Grid) Dims() (rows, cols int) {
	return g.X.Dims()
}

// SameShape reports whether g and other have identical dimensions.
func (g *Grid) SameShape(other *Grid) bool {
	r1, c1 := g.Dims()
	r2, c2 := other.Dims()
	return r1 == r2 && c1 == c2
}

// DX is the mean of consecutive differences of X along the axis it varies on.
func (g *Grid) DX() float64 {
	if xAlongRows(g.X) {
		return meanDiff(mat.Col(nil, 0, g.X))
	}
	return meanDiff(g.X.RawRowView(0))
}

// DY is the mean of consecutive differences of Y along the axis it varies on.
func (g *Grid) DY() float64 {
	if xAlongRows(g.X) {
		return meanDiff(g.Y.RawRowView(0))
	}
	return meanDiff(mat.Col(nil, 0, g.Y))
}

// Points flattens the coordinates row-major.
func (g *Grid) Points() (xs, ys []float64) {
	rows, cols := g.Dims()
	xs = make([]float64, 0, rows*cols)
	ys = make([]float64, 0, rows*cols)
	for i := range rows {
		xs = append(xs, g.X.RawRowView(i)...)
		ys = append(ys, g.Y.RawRowView(i)...)
	}
	return xs, ys
}

// Clone returns a deep copy.
func (g *Grid) Clone() *Grid {
	return &Grid{X: mat.DenseCopyOf(g.X), Y: mat.DenseCopyOf(g.Y)}
}

// WrapLongitude moves negative longitudes into [0, 360).
func WrapLongitude(lon float64) float64 {
	if lon < 0 {
		return lon + 360
	}
	return lon
}

// Regridded is the outcome of Regrid.
type Regridded struct {
	Grid  *Grid
	Field *mat.Dense
	// Degenerate is set when spacing was zero or NaN and the input coordinates were kept.
	Degenerate bool
	// Transposed is set when the input had X varying down its rows. Grid and
	// Field are then the transpose of the input so that X runs along columns.
	Transposed bool
}

// Regrid lays a uniform lattice with the same bounding extent as (x, y) and
// samples z onto it by nearest neighbour. The result always has X along
// columns and Y along rows; inputs with X down the rows, as (x, y) indexed
// volumes are, come back transposed. Zero or NaN spacing keeps the original
// coordinates and field.
func Regrid(x, y, z *mat.Dense) (Regridded, error) {
	if err := sameShape(x, y, "y"); err != nil {
		return Regridded{}, err
	}
	if err := sameShape(x, z, "field"); err != nil {
		return Regridded{}, err
	}

	transposed := xAlongRows(x)
	if transposed {
		x = mat.DenseCopyOf(x.T())
		y = mat.DenseCopyOf(y.T())
		z = mat.DenseCopyOf(z.T())
	}

	rows, cols := x.Dims()
	minX, maxX := finiteRange(x.RawMatrix().Data)
	minY, maxY := finiteRange(y.RawMatrix().Data)

	dx := (maxX - minX) / float64(cols-1)
	dy := (maxY - minY) / float64(rows-1)
	if degenerateSpacing(dx) || degenerateSpacing(dy) {
		err := errors.Newf("degenerate grid spacing dx=%v dy=%v", dx, dy).
			Component("grid").
			Category(errors.CategoryDegenerateGrid).
			Context("rows", rows).
			Context("cols", cols).
			Build()
		GetLogger().Warn("keeping original coordinates",
			logger.Error(err),
			logger.Int("rows", rows),
			logger.Int("cols", cols),
			logger.Bool("transposed", transposed))
		return Regridded{
			Grid:       &Grid{X: mat.DenseCopyOf(x), Y: mat.DenseCopyOf(y)},
			Field:      mat.DenseCopyOf(z),
			Degenerate: true,
			Transposed: transposed,
		}, nil
	}

	target := Meshgrid(
		floats.Span(make([]float64, cols), minX, maxX),
		floats.Span(make([]float64, rows), minY, maxY),
	)

	src := &Grid{X: x, Y: y}
	nn, err := NewNearest(src, z)
	if err != nil {
		return Regridded{}, err
	}

	return Regridded{Grid: target, Field: nn.Sample(target), Transposed: transposed}, nil
}

// Resample samples z, defined on src, at every point of dst by nearest
// neighbour. Points outside the convex hull of the finite source points get fill.
// The result always has dst's shape.
func Resample(src *Grid, z *mat.Dense, dst *Grid, fill float64) (*mat.Dense, error) {
	nn, err := NewNearest(src, z)
	if err != nil {
		return nil, err
	}
	return nn.SampleWithin(dst, fill), nil
}

func sameShape(a, b *mat.Dense, name string) error {
	ra, ca := a.Dims()
	rb, cb := b.Dims()
	if ra != rb || ca != cb {
		return errors.Newf("%s shape (%d, %d) does not match coordinate shape (%d, %d)", name, rb, cb, ra, ca).
			Component("grid").
			Category(errors.CategoryShapeMismatch).
			Build()
	}
	return nil
}

// xAlongRows reports whether X spreads further down its first column than
// along its first row.
func xAlongRows(x *mat.Dense) bool {
	return spread(mat.Col(nil, 0, x)) > spread(x.RawRowView(0))
}

// spread is the finite range of v, or 0 when v has no finite values.
func spread(v []float64) float64 {
	lo, hi := finiteRange(v)
	if math.IsNaN(lo) {
		return 0
	}
	return hi - lo
}

func degenerateSpacing(d float64) bool {
	return d == 0 || math.IsNaN(d) || math.IsInf(d, 0)
}

// finiteRange returns the min and max of the finite values, or NaN when there are none.
func finiteRange(data []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo > hi {
		return math.NaN(), math.NaN()
	}
	return lo, hi
}

// meanDiff is the NaN-ignoring mean of consecutive differences.
func meanDiff(v []float64) float64 {
	var sum float64
	var n int
	for i := 1; i < len(v); i++ {
		d := v[i] - v[i-1]
		if math.IsNaN(d) {
			continue
		}
		sum += d
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}
