package grid

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/seatkit/paracousti/internal/errors"
)

// Nearest answers nearest-neighbour queries over a scattered set of samples.
// Samples with non-finite coordinates are dropped; NaN values are kept and
// propagate to the points that select them.
type Nearest struct {
	tree   *kdtree.Tree
	values []float64
	hull   hull
}

// NewNearest indexes the field z defined on g.
func NewNearest(g *Grid, z *mat.Dense) (*Nearest, error) {
	if err := sameShape(g.X, z, "field"); err != nil {
		return nil, err
	}
	xs, ys := g.Points()
	rows, cols := z.Dims()
	values := make([]float64, 0, rows*cols)
	for i := range rows {
		values = append(values, z.RawRowView(i)...)
	}
	return NewNearestPoints(xs, ys, values)
}

// NewNearestPoints indexes scattered samples (xs[i], ys[i]) -> values[i].
func NewNearestPoints(xs, ys, values []float64) (*Nearest, error) {
	if len(xs) != len(ys) || len(xs) != len(values) {
		return nil, errors.Newf("sample lengths differ: x=%d y=%d values=%d", len(xs), len(ys), len(values)).
			Component("grid").
			Category(errors.CategoryShapeMismatch).
			Build()
	}

	pts := make(samplePoints, 0, len(xs))
	kept := make([]float64, 0, len(values))
	for i := range xs {
		if !isFinite(xs[i]) || !isFinite(ys[i]) {
			continue
		}
		pts = append(pts, samplePoint{x: xs[i], y: ys[i], idx: len(kept)})
		kept = append(kept, values[i])
	}
	if len(pts) == 0 {
		return nil, errors.Newf("no finite sample coordinates").
			Component("grid").
			Category(errors.CategoryDegenerateGrid).
			Build()
	}

	h := newHull(pts)
	return &Nearest{
		tree:   kdtree.New(pts, false),
		values: kept,
		hull:   h,
	}, nil
}

// Len returns the number of indexed samples.
func (n *Nearest) Len() int {
	return len(n.values)
}

// At returns the value of the sample nearest to (x, y).
func (n *Nearest) At(x, y float64) float64 {
	got, _ := n.tree.Nearest(samplePoint{x: x, y: y})
	return n.values[got.(samplePoint).idx]
}

// Inside reports whether (x, y) lies in the convex hull of the samples.
func (n *Nearest) Inside(x, y float64) bool {
	return n.hull.contains(x, y)
}

// Sample evaluates the nearest sample at every point of dst.
func (n *Nearest) Sample(dst *Grid) *mat.Dense {
	rows, cols := dst.Dims()
	out := mat.NewDense(rows, cols, nil)
	for i := range rows {
		for j := range cols {
			out.Set(i, j, n.At(dst.X.At(i, j), dst.Y.At(i, j)))
		}
	}
	return out
}

// SampleWithin is Sample with points outside the hull set to fill.
func (n *Nearest) SampleWithin(dst *Grid, fill float64) *mat.Dense {
	rows, cols := dst.Dims()
	out := mat.NewDense(rows, cols, nil)
	for i := range rows {
		for j := range cols {
			x, y := dst.X.At(i, j), dst.Y.At(i, j)
			if !isFinite(x) || !isFinite(y) || !n.Inside(x, y) {
				out.Set(i, j, fill)
				continue
			}
			out.Set(i, j, n.At(x, y))
		}
	}
	return out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// samplePoint is a 2-D kdtree.Comparable carrying the index of its value.
type samplePoint struct {
	x, y float64
	idx  int
}

func (p samplePoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(samplePoint)
	if d == 0 {
		return p.x - q.x
	}
	return p.y - q.y
}

func (p samplePoint) Dims() int { return 2 }

// Distance is the squared Euclidean distance, as kdtree expects.
func (p samplePoint) Distance(c kdtree.Comparable) float64 {
	q := c.(samplePoint)
	dx, dy := p.x-q.x, p.y-q.y
	return dx*dx + dy*dy
}

func (p samplePoint) coord(d kdtree.Dim) float64 {
	if d == 0 {
		return p.x
	}
	return p.y
}

type samplePoints []samplePoint

func (p samplePoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p samplePoints) Len() int                              { return len(p) }
func (p samplePoints) Slice(start, end int) kdtree.Interface { return p[start:end] }
func (p samplePoints) Pivot(d kdtree.Dim) int {
	return plane{Dim: d, samplePoints: p}.Pivot()
}

// plane sorts samplePoints along one dimension for kdtree partitioning.
type plane struct {
	kdtree.Dim
	samplePoints
}

func (p plane) Less(i, j int) bool {
	return p.samplePoints[i].coord(p.Dim) < p.samplePoints[j].coord(p.Dim)
}

func (p plane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }

func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.samplePoints = p.samplePoints[start:end]
	return p
}

func (p plane) Swap(i, j int) {
	p.samplePoints[i], p.samplePoints[j] = p.samplePoints[j], p.samplePoints[i]
}
