package grid

import (
	"fmt"
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
	"gonum.org/v1/gonum/mat"

	"github.com/seatkit/paracousti/internal/logger"
)

// edgeSegments is how many pieces each cell edge is split into before
// projecting, so that parallels keep their curvature.
const edgeSegments = 4

// CellAreas holds the cell-centre coordinates and areas of a Grid. They have
// one fewer row and column than the Grid because cells sit between nodes.
type CellAreas struct {
	X    *mat.Dense
	Y    *mat.Dense
	Area *mat.Dense // square metres when angular, squared coordinate units otherwise
}

// Mean returns the NaN-ignoring mean cell area.
func (c CellAreas) Mean() float64 {
	var sum float64
	var n int
	for _, v := range c.Area.RawMatrix().Data {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// CellArea computes the area of every cell of g as the area of the
// quadrilateral spanned by its four nodes. Angular grids (degrees) are first
// projected onto a WGS84 Albers equal-area cone centred on the grid, so areas
// are in square metres. Grids with fewer than two rows or columns have no
// cells and yield ok=false.
func CellArea(g *Grid, angular bool) (areas CellAreas, ok bool) {
	rows, cols := g.Dims()
	if rows < 2 || cols < 2 {
		return CellAreas{}, false
	}

	var toMetres proj.Transformer
	if angular {
		t, err := equalAreaTransform(g)
		if err != nil {
			GetLogger().Warn("cell areas unavailable",
				logger.Error(err),
				logger.Int("rows", rows),
				logger.Int("cols", cols))
		}
		toMetres = t
	}

	xm := mat.NewDense(rows-1, cols-1, nil)
	ym := mat.NewDense(rows-1, cols-1, nil)
	area := mat.NewDense(rows-1, cols-1, nil)

	for i := range rows - 1 {
		for j := range cols - 1 {
			corners := [4]geom.Point{
				{X: g.X.At(i, j), Y: g.Y.At(i, j)},
				{X: g.X.At(i, j+1), Y: g.Y.At(i, j+1)},
				{X: g.X.At(i+1, j+1), Y: g.Y.At(i+1, j+1)},
				{X: g.X.At(i+1, j), Y: g.Y.At(i+1, j)},
			}
			var cx, cy float64
			for _, c := range corners {
				cx += c.X / 4
				cy += c.Y / 4
			}
			xm.Set(i, j, cx)
			ym.Set(i, j, cy)

			switch {
			case !angular:
				area.Set(i, j, math.Abs(geom.Polygon{append(corners[:], corners[0])}.Area()))
			case toMetres == nil:
				area.Set(i, j, math.NaN())
			default:
				area.Set(i, j, projectedArea(densify(corners), toMetres))
			}
		}
	}

	return CellAreas{X: xm, Y: ym, Area: area}, true
}

// MeanCellArea is the mean of CellArea, or NaN when the grid has no cells.
func MeanCellArea(g *Grid, angular bool) float64 {
	areas, ok := CellArea(g, angular)
	if !ok {
		return math.NaN()
	}
	return areas.Mean()
}

// equalAreaTransform maps lon/lat degrees to metres on an Albers equal-area
// cone whose central meridian is the middle of the grid's longitudes.
func equalAreaTransform(g *Grid) (proj.Transformer, error) {
	lo, hi := finiteRange(g.X.RawMatrix().Data)
	if math.IsNaN(lo) {
		return nil, fmt.Errorf("grid has no finite longitudes")
	}
	_, maxLat := finiteRange(g.Y.RawMatrix().Data)
	lat1, lat2 := 29.5, 45.5
	if maxLat < 0 {
		lat1, lat2 = -29.5, -45.5
	}

	src, err := proj.Parse("+proj=longlat +ellps=WGS84 +datum=WGS84 +no_defs")
	if err != nil {
		return nil, fmt.Errorf("parsing geographic projection: %w", err)
	}
	dst, err := proj.Parse(fmt.Sprintf(
		"+proj=aea +lat_1=%g +lat_2=%g +lat_0=0 +lon_0=%g +x_0=0 +y_0=0 +ellps=WGS84 +datum=WGS84 +units=m +no_defs",
		lat1, lat2, (lo+hi)/2))
	if err != nil {
		return nil, fmt.Errorf("parsing equal-area projection: %w", err)
	}
	t, err := src.NewTransform(dst)
	if err != nil {
		return nil, fmt.Errorf("creating equal-area transform: %w", err)
	}
	return t, nil
}

// densify walks the cell outline and inserts edgeSegments-1 points along each edge.
func densify(corners [4]geom.Point) geom.Polygon {
	ring := make(geom.Path, 0, 4*edgeSegments+1)
	for k := range corners {
		a, b := corners[k], corners[(k+1)%4]
		for s := range edgeSegments {
			f := float64(s) / edgeSegments
			ring = append(ring, geom.Point{X: a.X + f*(b.X-a.X), Y: a.Y + f*(b.Y-a.Y)})
		}
	}
	return geom.Polygon{append(ring, corners[0])}
}

// projectedArea is the area of poly after transforming it with t, or NaN when
// any vertex cannot be projected.
func projectedArea(poly geom.Polygon, t proj.Transformer) float64 {
	projected, err := poly.Transform(t)
	if err != nil {
		return math.NaN()
	}
	p, ok := projected.(geom.Polygonal)
	if !ok {
		return math.NaN()
	}
	return math.Abs(p.Area())
}
