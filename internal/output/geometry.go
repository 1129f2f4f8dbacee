package output

import (
	"math"

	"github.com/seatkit/paracousti/internal/grid"
)

// EPSGWGS84 is the geographic CRS whose longitudes are written in [-180, 180).
const EPSGWGS84 = 4326

// Geometry places a north-up raster: X0 and Y0 are the upper-left origin,
// DX and DY the cell size.
type Geometry struct {
	DX  float64 `yaml:"dx"`
	DY  float64 `yaml:"dy"`
	X0  float64 `yaml:"x0"`
	Y0  float64 `yaml:"y0"`
	CRS int     `yaml:"crs"`
}

// GeometryOf derives the raster geometry of g. The origin sits half a cell
// left of the smallest X and half a cell below the largest Y, which keeps
// rasters aligned with those produced by earlier tool versions.
func GeometryOf(g *grid.Grid, crs int) Geometry {
	xs, ys := g.Points()
	minX := math.Inf(1)
	maxY := math.Inf(-1)
	for i := range xs {
		x := xs[i]
		if crs == EPSGWGS84 && x > 180 {
			x -= 360
		}
		if !math.IsNaN(x) {
			minX = math.Min(minX, x)
		}
		if !math.IsNaN(ys[i]) {
			maxY = math.Max(maxY, ys[i])
		}
	}
	dx, dy := g.DX(), g.DY()
	return Geometry{
		DX:  dx,
		DY:  dy,
		X0:  minX - dx/2,
		Y0:  maxY - dy/2,
		CRS: crs,
	}
}

// axes returns the x coordinates of the first row and the y coordinates of
// the first column, the latter reversed for north-up storage.
func axes(g *grid.Grid, crs int) (xs, ys []float64) {
	rows, cols := g.Dims()
	xs = make([]float64, cols)
	for j := range cols {
		x := g.X.At(0, j)
		if crs == EPSGWGS84 && x > 180 {
			x -= 360
		}
		xs[j] = x
	}
	ys = make([]float64, rows)
	for i := range rows {
		ys[rows-1-i] = g.Y.At(i, 0)
	}
	return xs, ys
}
