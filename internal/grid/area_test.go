package grid

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestCellAreaPlanar(t *testing.T) {
	t.Parallel()

	g := &Grid{
		X: mat.NewDense(2, 2, []float64{0, 1, 0, 1}),
		Y: mat.NewDense(2, 2, []float64{0, 0, 1, 1}),
	}

	areas, ok := CellArea(g, false)
	require.True(t, ok)
	assert.InDelta(t, 1.0, areas.Area.At(0, 0), 1e-12)
	assert.InDelta(t, 0.5, areas.X.At(0, 0), 1e-12)
	assert.InDelta(t, 0.5, areas.Y.At(0, 0), 1e-12)
}

func TestCellAreaGeographicOneDegreeAtEquator(t *testing.T) {
	t.Parallel()

	g := &Grid{
		X: mat.NewDense(2, 2, []float64{0, 1, 0, 1}),
		Y: mat.NewDense(2, 2, []float64{0, 0, 1, 1}),
	}

	areas, ok := CellArea(g, true)
	require.True(t, ok)
	assert.InEpsilon(t, 1.230722e10, areas.Area.At(0, 0), 1e-3)
	assert.InDelta(t, 0.5, areas.X.At(0, 0), 1e-12)
}

func TestCellAreaShrinksTowardsPoles(t *testing.T) {
	t.Parallel()

	g := Meshgrid([]float64{0, 1}, []float64{0, 1, 60, 61})
	areas, ok := CellArea(g, true)
	require.True(t, ok)
	assert.Greater(t, areas.Area.At(0, 0), areas.Area.At(2, 0))
}

func TestCellAreaIgnoresAxisOrder(t *testing.T) {
	t.Parallel()

	// X down the rows, Y along the columns
	g := &Grid{
		X: mat.NewDense(3, 2, []float64{0, 0, 2, 2, 4, 4}),
		Y: mat.NewDense(3, 2, []float64{0, 3, 0, 3, 0, 3}),
	}
	areas, ok := CellArea(g, false)
	require.True(t, ok)
	assert.Equal(t, []float64{6, 6}, areas.Area.RawMatrix().Data)
	assert.InDelta(t, 6.0, MeanCellArea(g, false), 1e-12)
}

func TestCellAreaGeographicMatchesAcrossAntimeridian(t *testing.T) {
	t.Parallel()

	east := Meshgrid([]float64{10, 11}, []float64{40, 41})
	wrapped := Meshgrid([]float64{359.5, 360.5}, []float64{40, 41})

	a, ok := CellArea(east, true)
	require.True(t, ok)
	b, ok := CellArea(wrapped, true)
	require.True(t, ok)
	assert.InEpsilon(t, a.Area.At(0, 0), b.Area.At(0, 0), 1e-6)
	assert.InEpsilon(t, 9.41e9, a.Area.At(0, 0), 1e-2)
}

func TestMeanCellAreaWithoutCells(t *testing.T) {
	t.Parallel()

	assert.True(t, math.IsNaN(MeanCellArea(Meshgrid([]float64{0, 1, 2}, []float64{0}), false)))
	assert.InDelta(t, 4.0, MeanCellArea(Meshgrid([]float64{0, 2, 4}, []float64{0, 2}), false), 1e-12)
}

func TestEstimateSpacingEvenlySpaced(t *testing.T) {
	t.Parallel()

	g := Meshgrid(linspace(0, 9, 10), linspace(0, 9, 10))
	xs, ys := g.Points()
	assert.InDelta(t, 1.0, EstimateSpacing(xs, ys), 0.1)
}

func TestEstimateSpacingRandomPoints(t *testing.T) {
	t.Parallel()

	r := rand.New(rand.NewPCG(1, 2))
	xs := make([]float64, 100)
	ys := make([]float64, 100)
	for i := range xs {
		xs[i] = r.Float64()
		ys[i] = r.Float64()
	}
	// the expected nearest-neighbour distance for 100 uniform points is about 0.05
	assert.InDelta(t, 0.045, EstimateSpacing(xs, ys), 0.025)
}

func TestEstimateSpacingTooFewPoints(t *testing.T) {
	t.Parallel()

	assert.True(t, math.IsNaN(EstimateSpacing([]float64{1, 1}, []float64{2, 2})))
}
