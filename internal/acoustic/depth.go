package acoustic

import (
	"math"
	"strings"

	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/mat"

	"github.com/seatkit/paracousti/internal/errors"
)

// DepthPolicy collapses the depth axis of a metric volume.
type DepthPolicy int

const (
	// DepthMaximum takes the largest value over depth; NaN loses to any number.
	DepthMaximum DepthPolicy = iota
	// DepthAverage takes the mean over depth, ignoring NaN.
	DepthAverage
	// BottomBin takes the last depth index.
	BottomBin
	// TopBin takes the first depth index.
	TopBin
)

func (p DepthPolicy) String() string {
	switch p {
	case DepthAverage:
		return "depth_average"
	case BottomBin:
		return "bottom_bin"
	case TopBin:
		return "top_bin"
	default:
		return "depth_maximum"
	}
}

// ParseDepthPolicy accepts canonical names ("depth_average") and display labels
// ("Depth Average"). Unknown values give DepthMaximum and ok=false.
func ParseDepthPolicy(s string) (policy DepthPolicy, ok bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	switch key {
	case "depth_maximum", "maximum", "max":
		return DepthMaximum, true
	case "depth_average", "average", "mean":
		return DepthAverage, true
	case "bottom_bin", "bottom":
		return BottomBin, true
	case "top_bin", "top":
		return TopBin, true
	default:
		return DepthMaximum, false
	}
}

// ReduceDepth collapses a (rows, cols, depth) volume to a rows×cols field.
func ReduceDepth(volume *sparse.DenseArray, policy DepthPolicy) (*mat.Dense, error) {
	if volume == nil || len(volume.Shape) != 3 {
		var shape []int
		if volume != nil {
			shape = volume.Shape
		}
		return nil, errors.Newf("depth reduction needs a 3-D volume, got shape %v", shape).
			Component("acoustic").
			Category(errors.CategoryShapeMismatch).
			Build()
	}

	rows, cols, depth := volume.Shape[0], volume.Shape[1], volume.Shape[2]
	if rows == 0 || cols == 0 || depth == 0 {
		return nil, errors.Newf("depth reduction needs a non-empty volume, got shape %v", volume.Shape).
			Component("acoustic").
			Category(errors.CategoryShapeMismatch).
			Build()
	}

	out := mat.NewDense(rows, cols, nil)
	for i := range rows {
		for j := range cols {
			base := (i*cols + j) * depth
			column := volume.Elements[base : base+depth]
			out.Set(i, j, reduceColumn(column, policy))
		}
	}
	return out, nil
}

func reduceColumn(column []float64, policy DepthPolicy) float64 {
	switch policy {
	case TopBin:
		return column[0]
	case BottomBin:
		return column[len(column)-1]
	case DepthAverage:
		return nanMean(column)
	default:
		return nanMax(column)
	}
}

// nanMax returns the largest non-NaN value, or NaN when every value is NaN.
func nanMax(v []float64) float64 {
	best := math.NaN()
	for _, x := range v {
		if math.IsNaN(x) {
			continue
		}
		if math.IsNaN(best) || x > best {
			best = x
		}
	}
	return best
}

// nanMean returns the mean of the non-NaN values, or NaN when there are none.
func nanMean(v []float64) float64 {
	var sum float64
	var n int
	for _, x := range v {
		if math.IsNaN(x) {
			continue
		}
		sum += x
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}
