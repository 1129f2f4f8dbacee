package acoustic

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestMetricFromName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want Metric
	}{
		{"SPL", SPL},
		{"rms_spl", SPL},
		{"SPLrms_flat", SPL},
		{"SEL", SEL},
		{"SEL_flat", SEL},
		{"peak", SEL},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MetricFromName(tt.name), tt.name)
	}
	assert.Equal(t, "SPL", SPL.String())
	assert.Equal(t, "SEL", SEL.String())
}

func TestCumulativeSELStrictlyIncreasingInDuration(t *testing.T) {
	t.Parallel()

	prev := math.Inf(-1)
	for _, d := range []float64{0.5, 1, 2, 60, 3600, 86400, 1e7} {
		got := CumulativeSELValue(100, d)
		assert.Greater(t, got, prev, "duration %v", d)
		prev = got
	}
	assert.InDelta(t, 100.0, CumulativeSELValue(100, 1), 1e-12)
	assert.InDelta(t, 135.563, CumulativeSELValue(100, 3600), 1e-3)
}

func TestSumSELValuesProperties(t *testing.T) {
	t.Parallel()

	r := rand.New(rand.NewPCG(7, 11))
	for range 50 {
		a := 60 + 100*r.Float64()
		b := 60 + 100*r.Float64()
		c := 60 + 100*r.Float64()

		assert.InDelta(t, SumSELValues(a, b), SumSELValues(b, a), 1e-9)
		assert.InDelta(t, SumSELValues(SumSELValues(a, b), c), SumSELValues(a, SumSELValues(b, c)), 1e-9)
		assert.InDelta(t, a, SumSELValues(a), 1e-9)
		assert.Greater(t, SumSELValues(a, b), math.Max(a, b))
	}

	// doubling the energy adds 10·log10(2) dB
	assert.InDelta(t, 100+10*math.Log10(2), SumSELValues(100, 100), 1e-9)
}

func TestSumSELFields(t *testing.T) {
	t.Parallel()

	a := mat.NewDense(2, 2, []float64{100, 90, 80, math.NaN()})
	b := mat.NewDense(2, 2, []float64{100, 70, 95, 60})

	ab := SumSEL(a, b)
	ba := SumSEL(b, a)
	assert.InDelta(t, SumSELValues(100, 100), ab.At(0, 0), 1e-9)
	assert.InDelta(t, SumSELValues(90, 70), ab.At(0, 1), 1e-9)
	assert.InDelta(t, ab.At(1, 0), ba.At(1, 0), 1e-9)
	assert.True(t, math.IsNaN(ab.At(1, 1)), "NaN propagates")

	single := SumSEL(a)
	assert.InDelta(t, 90.0, single.At(0, 1), 1e-9)
	assert.Nil(t, SumSEL())
}

func TestCumulativeSELField(t *testing.T) {
	t.Parallel()

	got := CumulativeSEL(mat.NewDense(1, 2, []float64{100, 50}), 10)
	assert.Equal(t, []float64{110, 60}, got.RawRowView(0))
}
