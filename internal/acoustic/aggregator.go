package acoustic

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/seatkit/paracousti/internal/errors"
)

// Contribution is one scenario's share of the fold.
type Contribution struct {
	// Probability is the scenario's fraction of the year, 0–1.
	Probability float64
	Device      *mat.Dense
	Baseline    *mat.Dense
}

// Totals is the frozen outcome of a fold.
type Totals struct {
	Device   *mat.Dense
	Baseline *mat.Dense
	Stressor *mat.Dense // Device − Baseline
	Exceeded *mat.Dense // percent of the year above threshold
}

// Aggregator folds scenario contributions into probability-weighted totals.
//
// SPL totals accumulate p·field linearly. SEL fields are first extended to the
// scenario's share of a day and then summed as energies, so the accumulator
// starts at linear zero and the first scenario needs no special case.
// The exceedance accumulator adds p·100 wherever the entered device field is
// above the threshold.
type Aggregator struct {
	metric    Metric
	threshold float64
	rows      int
	cols      int

	device   []float64
	baseline []float64
	exceeded []float64

	folded int
	frozen bool
}

// NewAggregator returns an Aggregator with zero accumulators of the given shape.
func NewAggregator(metric Metric, threshold float64, rows, cols int) *Aggregator {
	n := rows * cols
	return &Aggregator{
		metric:    metric,
		threshold: threshold,
		rows:      rows,
		cols:      cols,
		device:    make([]float64, n),
		baseline:  make([]float64, n),
		exceeded:  make([]float64, n),
	}
}

// Metric returns the aggregation regime.
func (a *Aggregator) Metric() Metric { return a.metric }

// Folded returns the number of contributions folded so far.
func (a *Aggregator) Folded() int { return a.folded }

// Enter returns the field as it enters the fold: SPL fields unchanged, SEL
// fields converted to cumulative exposure over probability·SecondsPerDay.
func (a *Aggregator) Enter(field *mat.Dense, probability float64) *mat.Dense {
	if a.metric == SEL {
		return CumulativeSEL(field, probability*SecondsPerDay)
	}
	return field
}

// Fold adds one scenario and returns its threshold mask.
// Shapes are checked before any accumulator is touched.
func (a *Aggregator) Fold(c Contribution) ([]bool, error) {
	if a.frozen {
		return nil, errors.Newf("aggregator already produced its result").
			Component("acoustic").
			Category(errors.CategoryValidation).
			Build()
	}
	if err := a.checkShape(c.Device, "device"); err != nil {
		return nil, err
	}
	if err := a.checkShape(c.Baseline, "baseline"); err != nil {
		return nil, err
	}

	p := c.Probability
	device := a.Enter(c.Device, p)
	baseline := a.Enter(c.Baseline, p)
	dev := flatten(device)
	base := flatten(baseline)

	switch a.metric {
	case SEL:
		for i := range a.device {
			a.device[i] += toEnergy(dev[i])
			a.baseline[i] += toEnergy(base[i])
		}
	default:
		floats.AddScaled(a.device, p, dev)
		floats.AddScaled(a.baseline, p, base)
	}

	mask := ExceedanceMask(device, a.threshold)
	for i, hit := range mask {
		if hit {
			a.exceeded[i] += p * 100
		}
	}

	a.folded++
	return mask, nil
}

// Result freezes the aggregator and returns the totals.
func (a *Aggregator) Result() Totals {
	a.frozen = true

	device := make([]float64, len(a.device))
	baseline := make([]float64, len(a.baseline))
	switch a.metric {
	case SEL:
		for i := range device {
			device[i] = fromEnergy(a.device[i])
			baseline[i] = fromEnergy(a.baseline[i])
		}
	default:
		copy(device, a.device)
		copy(baseline, a.baseline)
	}

	stressor := make([]float64, len(device))
	floats.SubTo(stressor, device, baseline)

	return Totals{
		Device:   mat.NewDense(a.rows, a.cols, device),
		Baseline: mat.NewDense(a.rows, a.cols, baseline),
		Stressor: mat.NewDense(a.rows, a.cols, stressor),
		Exceeded: mat.NewDense(a.rows, a.cols, append([]float64(nil), a.exceeded...)),
	}
}

func (a *Aggregator) checkShape(m *mat.Dense, name string) error {
	if m == nil {
		return errors.Newf("%s field is missing", name).
			Component("acoustic").
			Category(errors.CategoryMissingInput).
			Build()
	}
	r, c := m.Dims()
	if r != a.rows || c != a.cols {
		return errors.Newf("%s field shape (%d, %d) does not match accumulator shape (%d, %d)", name, r, c, a.rows, a.cols).
			Component("acoustic").
			Category(errors.CategoryShapeMismatch).
			Context("field", name).
			Build()
	}
	return nil
}

// ExceedanceMask marks cells strictly above threshold. NaN cells are never marked.
func ExceedanceMask(field *mat.Dense, threshold float64) []bool {
	data := flatten(field)
	mask := make([]bool, len(data))
	for i, v := range data {
		mask[i] = v > threshold
	}
	return mask
}

// Indicator turns a mask into a 100/0 field of the given shape.
func Indicator(mask []bool, rows, cols int) *mat.Dense {
	out := make([]float64, rows*cols)
	for i, hit := range mask {
		if hit {
			out[i] = 100
		}
	}
	return mat.NewDense(rows, cols, out)
}

// CountNonFinite returns the number of NaN or infinite cells.
func CountNonFinite(m *mat.Dense) int {
	var n int
	for _, v := range flatten(m) {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			n++
		}
	}
	return n
}

// flatten returns the row-major contents of m without copying when possible.
func flatten(m *mat.Dense) []float64 {
	raw := m.RawMatrix()
	if raw.Stride == raw.Cols {
		return raw.Data[:raw.Rows*raw.Cols]
	}
	out := make([]float64, 0, raw.Rows*raw.Cols)
	for i := range raw.Rows {
		out = append(out, m.RawRowView(i)...)
	}
	return out
}
