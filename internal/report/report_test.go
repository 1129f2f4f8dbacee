package report

import (
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/seatkit/paracousti/internal/acoustic"
	"github.com/seatkit/paracousti/internal/errors"
	"github.com/seatkit/paracousti/internal/grid"
	"github.com/seatkit/paracousti/internal/observability/metrics"
	"github.com/seatkit/paracousti/internal/stressor"
)

var (
	oneToTen  = []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	wantStart = []float64{1, 2.8, 4.6, 6.4, 8.2}
	wantEnd   = []float64{2.8, 4.6, 6.4, 8.2, 10}
	wantMid   = []float64{1.9, 3.7, 5.5, 7.3, 9.1}
)

func TestBinData(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		area     []float64
		wantArea []float64
	}{
		{"unit area", []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}, []float64{2, 2, 2, 2, 2}},
		{"varying area", []float64{1, 1, 2, 2, 3, 3, 4, 4, 5, 5}, []float64{2, 4, 6, 8, 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b, err := BinData(oneToTen, tt.area, 5)
			require.NoError(t, err)
			assert.InDeltaSlice(t, wantStart, b.Start, 1e-9)
			assert.InDeltaSlice(t, wantEnd, b.End, 1e-9)
			assert.InDeltaSlice(t, wantMid, b.Center, 1e-9)
			assert.Equal(t, []float64{2, 2, 2, 2, 2}, b.Count)
			assert.InDeltaSlice(t, tt.wantArea, b.Area, 1e-9)
			var sum float64
			for _, p := range b.AreaPercent {
				sum += p
			}
			assert.InDelta(t, 100.0, sum, 1e-9)
		})
	}
}

func TestBinDataSkipsNaNAndHandlesConstants(t *testing.T) {
	t.Parallel()

	b, err := BinData([]float64{math.NaN(), 7, 7, math.Inf(1)}, []float64{1, 1, 1, 1}, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{6.5, 7}, b.Start)
	assert.Equal(t, []float64{0, 2}, b.Count)

	b, err = BinData([]float64{math.NaN()}, []float64{1}, 3)
	require.NoError(t, err)
	assert.Zero(t, b.Len())
}

func TestBinDataErrors(t *testing.T) {
	t.Parallel()

	_, err := BinData(oneToTen, oneToTen, 0)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))

	_, err = BinData(oneToTen, []float64{1}, 3)
	assert.True(t, errors.IsCategory(err, errors.CategoryShapeMismatch))
}

func TestBinReceptor(t *testing.T) {
	t.Parallel()

	receptor := []float64{0, 0, 1, 1, 2, 2, 3, 3, 4, 4}
	area := []float64{1, 1, 2, 2, 3, 3, 4, 4, 5, 5}

	rb, err := BinReceptor(oneToTen, receptor, area, 5)
	require.NoError(t, err)
	assert.InDeltaSlice(t, wantStart, rb.Start, 1e-9)
	require.Len(t, rb.Receptors, 5)

	table := rb.Table()
	for i, r := range rb.Receptors {
		assert.InDelta(t, float64(i), r.Value, 0)
		wantArea := make([]float64, 5)
		wantArea[i] = area[2*i] * 2
		wantPct := make([]float64, 5)
		wantPct[i] = 100

		got, ok := table.Column("Area, receptor value " + ReceptorLabel(r.Value))
		require.True(t, ok)
		assert.InDeltaSlice(t, wantArea, got, 1e-9)
		got, ok = table.Column("Area percent, receptor value " + ReceptorLabel(r.Value))
		require.True(t, ok)
		assert.InDeltaSlice(t, wantPct, got, 1e-9)
	}

	_, err = BinReceptor(oneToTen, []float64{1}, area, 5)
	assert.True(t, errors.IsCategory(err, errors.CategoryShapeMismatch))
}

func TestBinReceptorSkipsInfiniteValues(t *testing.T) {
	t.Parallel()

	z := []float64{1, 2, 3, math.Inf(-1), math.Inf(1)}
	receptor := []float64{1, 1, 2, 2, 1}
	area := []float64{1, 1, 1, 1, 1}

	var rb ReceptorBins
	require.NotPanics(t, func() {
		var err error
		rb, err = BinReceptor(z, receptor, area, 2)
		require.NoError(t, err)
	})
	require.Len(t, rb.Receptors, 2)

	var total float64
	for _, r := range rb.Receptors {
		for _, a := range r.Area {
			total += a
		}
	}
	assert.InDelta(t, 3.0, total, 1e-12, "only the three finite cells are binned")
}

func TestReceptorLabel(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "3", ReceptorLabel(3))
	assert.Equal(t, "0.5", ReceptorLabel(0.5))
}

func TestLayerOfPlanarGrid(t *testing.T) {
	t.Parallel()

	g := grid.Meshgrid([]float64{0, 10, 20}, []float64{0, 5})
	field := mat.NewDense(2, 3, []float64{1, 1, 1, 1, 1, 1})
	layer, err := LayerOf(field, g, false)
	require.NoError(t, err)
	assert.Equal(t, []float64{50, 50}, layer.Area)
	assert.Equal(t, []float64{1, 1}, layer.Values)

	_, err = LayerOf(mat.NewDense(1, 3, nil), grid.Meshgrid([]float64{0, 1, 2}, []float64{0}), false)
	assert.True(t, errors.IsCategory(err, errors.CategoryDegenerateGrid))

	rec, err := ReceptorOf(mat.NewDense(2, 3, []float64{-4, -4, -4, -4, -4, -4}), g, false)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, rec)
}

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	b, err := BinData(oneToTen, oneToTen, 5)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "bins.csv")
	require.NoError(t, b.Table().WriteCSV(path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 6)
	assert.Equal(t, []string{"bin start", "bin end", "bin center", "count", "Area", "Area percent"}, records[0])
	assert.Equal(t, "1", records[1][0])
	assert.Equal(t, "2", records[1][3])

	err = b.Table().WriteCSV(filepath.Join(t.TempDir(), "missing", "x.csv"))
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))
}

func TestWriterWriteResult(t *testing.T) {
	t.Parallel()

	g := grid.Meshgrid([]float64{0, 10, 20}, []float64{0, 10, 20})
	ramp := mat.NewDense(3, 3, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9})
	b := stressor.Bundle{Baseline: ramp, Device: ramp, Stressor: ramp, Exceeded: ramp}
	res := &stressor.Result{
		Metric:      acoustic.SPL,
		Grid:        g,
		Weighted:    b,
		RiskLayer:   mat.NewDense(3, 3, []float64{0, 0, 0, 1, 1, 1, 1, 1, 1}),
		PerScenario: []stressor.ScenarioBundle{{ID: "s1", Bundle: b}},
	}

	dir := t.TempDir()
	rec := metrics.NewMemoryRecorder()
	files, err := NewWriter(dir, 4, rec).WriteResult(res)
	require.NoError(t, err)

	// four fields each, stressor and exceeded also per receptor
	require.Len(t, files, 12)
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Path
		assert.FileExists(t, filepath.Join(dir, f.Path))
	}
	assert.Contains(t, names, "paracousti_stressor.csv")
	assert.Contains(t, names, "paracousti_stressor_at_paracousti_risk_layer.csv")
	assert.Contains(t, names, "species_threshold_exceeded_s1_at_paracousti_risk_layer.csv")
	assert.NotContains(t, names, "paracousti_with_devices_at_paracousti_risk_layer.csv")
	assert.Equal(t, 12, rec.OperationCount(metrics.OpReportWrite, metrics.StatusSuccess))
}
