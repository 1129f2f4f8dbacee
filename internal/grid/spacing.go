package grid

import (
	"math"
	"slices"

	"github.com/ctessum/geom"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// EstimateSpacing returns the median nearest-neighbour distance of the distinct
// finite points. It is NaN when fewer than two distinct points remain.
func EstimateSpacing(xs, ys []float64) float64 {
	seen := make(map[geom.Point]struct{}, len(xs))
	pts := make(samplePoints, 0, len(xs))
	for i := range min(len(xs), len(ys)) {
		v := geom.Point{X: xs[i], Y: ys[i]}
		if !isFinite(v.X) || !isFinite(v.Y) {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		pts = append(pts, samplePoint{x: v.X, y: v.Y, idx: len(pts)})
	}
	if len(pts) < 2 {
		return math.NaN()
	}

	queries := slices.Clone(pts)
	tree := kdtree.New(pts, false)

	dists := make([]float64, 0, len(queries))
	for _, q := range queries {
		keeper := kdtree.NewNKeeper(2)
		tree.NearestSet(keeper, q)
		best := math.Inf(1)
		for _, cd := range keeper.Heap {
			if cd.Comparable == nil || cd.Dist <= 0 {
				continue
			}
			best = math.Min(best, cd.Dist)
		}
		if !math.IsInf(best, 1) {
			dists = append(dists, math.Sqrt(best))
		}
	}

	return median(dists)
}

func median(v []float64) float64 {
	if len(v) == 0 {
		return math.NaN()
	}
	s := slices.Clone(v)
	slices.Sort(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}
