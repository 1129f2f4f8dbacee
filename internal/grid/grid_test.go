package grid

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/seatkit/paracousti/internal/errors"
)

func linspace(lo, hi float64, n int) []float64 {
	return floats.Span(make([]float64, n), lo, hi)
}

func fieldFrom(g *Grid, f func(x, y float64) float64) *mat.Dense {
	rows, cols := g.Dims()
	z := mat.NewDense(rows, cols, nil)
	for i := range rows {
		for j := range cols {
			z.Set(i, j, f(g.X.At(i, j), g.Y.At(i, j)))
		}
	}
	return z
}

func TestMeshgridAndSpacing(t *testing.T) {
	t.Parallel()

	g := Meshgrid([]float64{0, 2, 4, 6}, []float64{10, 11, 12})
	rows, cols := g.Dims()
	assert.Equal(t, 3, rows)
	assert.Equal(t, 4, cols)
	assert.InDelta(t, 2.0, g.DX(), 1e-12)
	assert.InDelta(t, 1.0, g.DY(), 1e-12)
	assert.InDelta(t, 12.0, g.Y.At(2, 3), 1e-12)
}

func TestNewRejectsMismatchedShapes(t *testing.T) {
	t.Parallel()

	_, err := New(mat.NewDense(2, 3, nil), mat.NewDense(3, 2, nil))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryShapeMismatch))
}

func TestRegridUniformLatticeKeepsShapeAndExtent(t *testing.T) {
	t.Parallel()

	// irregular spacing along x
	src := Meshgrid([]float64{0, 1, 3, 6, 10}, linspace(0, 10, 5))
	z := fieldFrom(src, func(x, y float64) float64 { return math.Sin(x) * math.Cos(y) })

	out, err := Regrid(src.X, src.Y, z)
	require.NoError(t, err)
	assert.False(t, out.Degenerate)

	rows, cols := out.Grid.Dims()
	assert.Equal(t, 5, rows)
	assert.Equal(t, 5, cols)
	zr, zc := out.Field.Dims()
	assert.Equal(t, rows, zr)
	assert.Equal(t, cols, zc)

	assert.InDelta(t, 0.0, out.Grid.X.At(0, 0), 1e-12)
	assert.InDelta(t, 10.0, out.Grid.X.At(0, 4), 1e-12)
	assert.InDelta(t, 2.5, out.Grid.DX(), 1e-12)
	assert.InDelta(t, 2.5, out.Grid.DY(), 1e-12)

	// corners coincide with source corners, so values carry over exactly
	assert.InDelta(t, z.At(0, 0), out.Field.At(0, 0), 1e-12)
	assert.InDelta(t, z.At(4, 4), out.Field.At(4, 4), 1e-12)
}

func TestRegridOnRegularGridIsIdentity(t *testing.T) {
	t.Parallel()

	src := Meshgrid(linspace(0, 10, 5), linspace(0, 10, 5))
	z := fieldFrom(src, func(x, y float64) float64 { return x*10 + y })

	out, err := Regrid(src.X, src.Y, z)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(z, out.Field, 1e-12))
}

func TestRegridDegenerateSpacingFallsBack(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		x, y *mat.Dense
	}{
		{
			name: "zero x spacing",
			x:    mat.NewDense(2, 2, []float64{1, 1, 1, 1}),
			y:    mat.NewDense(2, 2, []float64{0, 0, 1, 1}),
		},
		{
			name: "single row",
			x:    mat.NewDense(1, 3, []float64{0, 1, 2}),
			y:    mat.NewDense(1, 3, []float64{5, 5, 5}),
		},
		{
			name: "all NaN coordinates",
			x:    mat.NewDense(2, 2, []float64{math.NaN(), math.NaN(), math.NaN(), math.NaN()}),
			y:    mat.NewDense(2, 2, []float64{0, 0, 1, 1}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r, c := tt.x.Dims()
			z := mat.NewDense(r, c, nil)
			z.Apply(func(i, j int, _ float64) float64 { return float64(i*c + j) }, z)

			out, err := Regrid(tt.x, tt.y, z)
			require.NoError(t, err)
			assert.True(t, out.Degenerate)
			assert.True(t, mat.Equal(z, out.Field))
			assert.True(t, mat.Equal(tt.y, out.Grid.Y))
		})
	}
}

// xDownRows builds a rows×cols grid with X varying down the rows, the layout
// of volumes indexed (x, y, depth).
func xDownRows(rows, cols int, dx, dy float64) *Grid {
	x := mat.NewDense(rows, cols, nil)
	y := mat.NewDense(rows, cols, nil)
	for i := range rows {
		for j := range cols {
			x.Set(i, j, float64(i)*dx)
			y.Set(i, j, float64(j)*dy)
		}
	}
	return &Grid{X: x, Y: y}
}

func TestRegridXDownRowsKeepsEveryColumn(t *testing.T) {
	t.Parallel()

	src := xDownRows(6, 2, 1, 1)
	z := fieldFrom(src, func(x, _ float64) float64 { return 10 * x })

	out, err := Regrid(src.X, src.Y, z)
	require.NoError(t, err)
	assert.False(t, out.Degenerate)
	assert.True(t, out.Transposed)

	rows, cols := out.Grid.Dims()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 6, cols)
	assert.InDelta(t, 1.0, out.Grid.DX(), 1e-12)
	assert.InDelta(t, 1.0, out.Grid.DY(), 1e-12)

	for i := range rows {
		assert.Equal(t, []float64{0, 10, 20, 30, 40, 50}, out.Field.RawRowView(i))
	}
	assert.True(t, mat.Equal(mat.DenseCopyOf(z.T()), out.Field))
}

func TestRegridXDownRowsDegenerateStillTransposes(t *testing.T) {
	t.Parallel()

	// a single y position leaves dy undefined
	src := xDownRows(4, 1, 2, 1)
	z := fieldFrom(src, func(x, _ float64) float64 { return x })

	out, err := Regrid(src.X, src.Y, z)
	require.NoError(t, err)
	assert.True(t, out.Degenerate)
	assert.True(t, out.Transposed)
	assert.Equal(t, []float64{0, 2, 4, 6}, out.Grid.X.RawRowView(0))
	assert.Equal(t, []float64{0, 2, 4, 6}, out.Field.RawRowView(0))
	assert.InDelta(t, 2.0, out.Grid.DX(), 1e-12)
}

func TestSpacingFollowsXAxis(t *testing.T) {
	t.Parallel()

	g := xDownRows(5, 3, 2, 0.5)
	assert.InDelta(t, 2.0, g.DX(), 1e-12)
	assert.InDelta(t, 0.5, g.DY(), 1e-12)
}

func TestRegridShapeMismatch(t *testing.T) {
	t.Parallel()

	g := Meshgrid(linspace(0, 1, 3), linspace(0, 1, 3))
	_, err := Regrid(g.X, g.Y, mat.NewDense(2, 3, nil))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryShapeMismatch))
}

func TestResampleOutputMatchesTargetShape(t *testing.T) {
	t.Parallel()

	src := Meshgrid(linspace(0, 10, 5), linspace(0, 10, 5))
	z := fieldFrom(src, func(x, y float64) float64 { return math.Sin(x) * math.Cos(y) })

	targets := []*Grid{
		Meshgrid(linspace(0, 10, 10), linspace(0, 10, 10)),
		Meshgrid(linspace(2, 8, 3), linspace(0, 10, 7)),
		Meshgrid(linspace(-5, 15, 4), linspace(-5, 15, 2)),
	}
	for _, dst := range targets {
		out, err := Resample(src, z, dst, 0)
		require.NoError(t, err)
		r, c := out.Dims()
		dr, dc := dst.Dims()
		assert.Equal(t, dr, r)
		assert.Equal(t, dc, c)
	}
}

func TestResampleFillsOutsideHull(t *testing.T) {
	t.Parallel()

	src := Meshgrid(linspace(0, 4, 5), linspace(0, 4, 5))
	z := fieldFrom(src, func(x, y float64) float64 { return 7 })
	dst := Meshgrid([]float64{-1, 0, 2, 4, 5}, []float64{2})

	out, err := Resample(src, z, dst, -99)
	require.NoError(t, err)
	assert.Equal(t, []float64{-99, 7, 7, 7, -99}, out.RawRowView(0))
}

func TestResamplePicksNearestValue(t *testing.T) {
	t.Parallel()

	src := Meshgrid([]float64{0, 10}, []float64{0, 10})
	z := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	dst := Meshgrid([]float64{1, 9}, []float64{1, 9})

	out, err := Resample(src, z, dst, 0)
	require.NoError(t, err)
	assert.True(t, mat.Equal(z, out))
}

func TestNearestInsideHull(t *testing.T) {
	t.Parallel()

	// triangle with an interior point that must not become a hull vertex
	nn, err := NewNearestPoints(
		[]float64{0, 4, 0, 1},
		[]float64{0, 0, 4, 1},
		[]float64{1, 2, 3, 4},
	)
	require.NoError(t, err)

	tests := []struct {
		name   string
		x, y   float64
		inside bool
	}{
		{"interior", 1, 1.5, true},
		{"vertex", 4, 0, true},
		{"on hypotenuse", 2, 2, true},
		{"just past hypotenuse within tolerance", 2, 2 + 1e-12, true},
		{"beyond hypotenuse", 2.5, 2.5, false},
		{"left of hull", -0.5, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.inside, nn.Inside(tt.x, tt.y))
		})
	}
}

func TestNearestPropagatesNaNValues(t *testing.T) {
	t.Parallel()

	nn, err := NewNearestPoints([]float64{0, 1}, []float64{0, 0}, []float64{math.NaN(), 5})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(nn.At(0.1, 0)))
	assert.InDelta(t, 5.0, nn.At(0.9, 0), 0)
	assert.True(t, nn.Inside(0.5, 0), "points on a degenerate segment hull are inside")
	assert.False(t, nn.Inside(0.5, 0.5))
}

func TestNearestRejectsNoFinitePoints(t *testing.T) {
	t.Parallel()

	_, err := NewNearestPoints([]float64{math.NaN()}, []float64{0}, []float64{1})
	require.Error(t, err)

	_, err = NewNearestPoints([]float64{0, 1}, []float64{0}, []float64{1})
	require.Error(t, err)
}

func TestWrapLongitude(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 350.0, WrapLongitude(-10), 1e-12)
	assert.InDelta(t, 10.0, WrapLongitude(10), 1e-12)
	assert.InDelta(t, 0.0, WrapLongitude(0), 1e-12)
}
