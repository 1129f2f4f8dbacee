package species

import (
	"math"
	"path/filepath"

	"github.com/patrickmn/go-cache"
	"gonum.org/v1/gonum/mat"

	"github.com/seatkit/paracousti/internal/errors"
	"github.com/seatkit/paracousti/internal/grid"
	"github.com/seatkit/paracousti/internal/logger"
)

// SquareMetresPerKm2 converts the configured species resolution.
const SquareMetresPerKm2 = 1e6

// Scaler interpolates species layers onto one grid and scales them by the
// ratio of the grid's mean cell area to the species resolution.
// Interpolated layers are cached for the lifetime of the Scaler.
type Scaler struct {
	dir     string
	grid    *grid.Grid
	angular bool
	ratio   float64
	layers  *cache.Cache
}

// NewScaler prepares a Scaler for files under dir. A resolution of zero (or
// less) leaves values unscaled, as does a grid without a usable cell area.
func NewScaler(dir string, g *grid.Grid, angular bool, resolutionKm2 float64) *Scaler {
	ratio := 1.0
	if resolutionKm2 > 0 {
		mean := grid.MeanCellArea(g, angular)
		if math.IsNaN(mean) || math.IsInf(mean, 0) || mean <= 0 {
			rows, cols := g.Dims()
			err := errors.Newf("grid %d×%d has no usable cell area (%v)", rows, cols, mean).
				Component("species").
				Category(errors.CategoryDegenerateGrid).
				Build()
			GetLogger().Warn("species layers left unscaled",
				logger.Error(err),
				logger.Float64("resolution_km2", resolutionKm2))
		} else {
			ratio = mean / (resolutionKm2 * SquareMetresPerKm2)
		}
	}
	GetLogger().Debug("species scaling ratio",
		logger.Float64("ratio", ratio),
		logger.Float64("resolution_km2", resolutionKm2))
	return &Scaler{
		dir:     dir,
		grid:    g,
		angular: angular,
		ratio:   ratio,
		// no janitor: entries live as long as the run
		layers: cache.New(cache.NoExpiration, 0),
	}
}

// Ratio returns the area scaling factor.
func (s *Scaler) Ratio() float64 { return s.ratio }

// Layer returns the scaled layer for a species file named in the
// boundary-condition table. The returned matrix is shared; callers must not modify it.
func (s *Scaler) Layer(file string, v Variable) (*mat.Dense, error) {
	if file == "" {
		return nil, errors.Newf("no species %s file for this scenario", v).
			Component("species").
			Category(errors.CategoryMissingInput).
			Build()
	}
	key := string(v) + "|" + file
	if cached, ok := s.layers.Get(key); ok {
		return cached.(*mat.Dense), nil
	}

	path := file
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.dir, file)
	}
	pts, err := Load(path, v, s.angular)
	if err != nil {
		return nil, err
	}
	nn, err := grid.NewNearestPoints(pts.X, pts.Y, pts.Values)
	if err != nil {
		// an empty species source cannot be interpolated
		return nil, errors.New(err).
			Component("species").
			Category(errors.CategoryMissingInput).
			FileContext(path).
			Build()
	}

	layer := nn.Sample(s.grid)
	layer.Scale(s.ratio, layer)
	s.layers.Set(key, layer, cache.NoExpiration)
	return layer, nil
}

// Accumulator holds the probability-weighted species totals of a run.
type Accumulator struct {
	rows, cols int
	percent    []float64
	density    []float64
}

// NewAccumulator returns zeroed totals of the given shape.
func NewAccumulator(rows, cols int) *Accumulator {
	return &Accumulator{
		rows:    rows,
		cols:    cols,
		percent: make([]float64, rows*cols),
		density: make([]float64, rows*cols),
	}
}

// Add folds one scenario: p·value is added wherever mask is set.
func (a *Accumulator) Add(mask []bool, p float64, percent, density *mat.Dense) {
	for i, hit := range mask {
		if !hit {
			continue
		}
		r, c := i/a.cols, i%a.cols
		a.percent[i] += p * percent.At(r, c)
		a.density[i] += p * density.At(r, c)
	}
}

// Result returns copies of the totals.
func (a *Accumulator) Result() (percent, density *mat.Dense) {
	return mat.NewDense(a.rows, a.cols, append([]float64(nil), a.percent...)),
		mat.NewDense(a.rows, a.cols, append([]float64(nil), a.density...))
}

// Masked returns layer where mask is set and zero elsewhere.
func Masked(mask []bool, layer *mat.Dense) *mat.Dense {
	rows, cols := layer.Dims()
	out := mat.NewDense(rows, cols, nil)
	for i, hit := range mask {
		if hit {
			r, c := i/cols, i%cols
			out.Set(r, c, layer.At(r, c))
		}
	}
	return out
}
