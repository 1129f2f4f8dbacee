package report

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/seatkit/paracousti/internal/errors"
	"github.com/seatkit/paracousti/internal/grid"
)

// Layer is a field sampled at cell centres, ready for binning.
type Layer struct {
	Values []float64
	Area   []float64
}

// LayerOf samples field at the cell centres of g and pairs each value with
// its cell area (square metres on angular grids).
func LayerOf(field *mat.Dense, g *grid.Grid, angular bool) (Layer, error) {
	cells, ok := grid.CellArea(g, angular)
	if !ok {
		rows, cols := g.Dims()
		return Layer{}, errors.Newf("grid %d×%d has no cells to bin", rows, cols).
			Component("report").
			Category(errors.CategoryDegenerateGrid).
			Build()
	}
	values, err := atCentres(field, g, cells)
	if err != nil {
		return Layer{}, err
	}
	return Layer{Values: values, Area: mat.DenseCopyOf(cells.Area).RawMatrix().Data}, nil
}

// ReceptorOf samples a receptor field at the cell centres of g. Values are
// clipped to [0, +Inf).
func ReceptorOf(receptor *mat.Dense, g *grid.Grid, angular bool) ([]float64, error) {
	cells, ok := grid.CellArea(g, angular)
	if !ok {
		return nil, errors.Newf("grid has no cells to bin").
			Component("report").
			Category(errors.CategoryDegenerateGrid).
			Build()
	}
	values, err := atCentres(receptor, g, cells)
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		if !math.IsNaN(v) {
			values[i] = math.Max(v, 0)
		}
	}
	return values, nil
}

func atCentres(field *mat.Dense, g *grid.Grid, cells grid.CellAreas) ([]float64, error) {
	nn, err := grid.NewNearest(g, field)
	if err != nil {
		return nil, err
	}
	sampled := nn.Sample(&grid.Grid{X: cells.X, Y: cells.Y})
	return sampled.RawMatrix().Data, nil
}
