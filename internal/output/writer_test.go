package output

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/seatkit/paracousti/internal/acoustic"
	"github.com/seatkit/paracousti/internal/errors"
	"github.com/seatkit/paracousti/internal/grid"
	"github.com/seatkit/paracousti/internal/ncutil"
	"github.com/seatkit/paracousti/internal/observability/metrics"
	"github.com/seatkit/paracousti/internal/stressor"
)

// testGrid is 2 rows × 3 columns with x = 10, 20, 30 and y = 100, 105.
func testGrid() *grid.Grid {
	return grid.Meshgrid([]float64{10, 20, 30}, []float64{100, 105})
}

func readBack(t *testing.T, path, variable string) ([]float64, func(string) []float64) {
	t.Helper()
	f, nc, err := ncutil.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })

	data, err := ncutil.ReadFloat64(nc, variable)
	require.NoError(t, err)
	attr := func(name string) []float64 {
		v, err := ncutil.Float64s(nc.Header.GetAttribute("", name))
		require.NoError(t, err, name)
		return v
	}
	return data, attr
}

func TestWriteFieldNorthUp(t *testing.T) {
	t.Parallel()

	w, err := NewNetCDFWriter(t.TempDir(), 32610)
	require.NoError(t, err)

	field := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, math.NaN()})
	path, err := w.WriteField(stressor.KeyStressor, "", field, testGrid())
	require.NoError(t, err)
	assert.Equal(t, "paracousti_stressor.nc", filepath.Base(path))

	data, attr := readBack(t, path, stressor.KeyStressor)
	assert.Equal(t, []float64{4, 5}, data[:2], "northern row first")
	assert.True(t, math.IsNaN(data[2]))
	assert.Equal(t, []float64{1, 2, 3}, data[3:])

	assert.Equal(t, []float64{10}, attr("dx"))
	assert.Equal(t, []float64{5}, attr("dy"))
	assert.Equal(t, []float64{5}, attr("x0"))
	assert.Equal(t, []float64{102.5}, attr("y0"))

	ys, _ := readBack(t, path, "y")
	assert.Equal(t, []float64{105, 100}, ys)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestGeometryShiftsLongitudesForWGS84(t *testing.T) {
	t.Parallel()

	g := grid.Meshgrid([]float64{358, 359, 360, 361}, []float64{40, 41})
	geo := GeometryOf(g, EPSGWGS84)
	assert.InDelta(t, -2.5, geo.X0, 1e-12)
	assert.InDelta(t, 40.5, geo.Y0, 1e-12)

	planar := GeometryOf(g, 32610)
	assert.InDelta(t, 357.5, planar.X0, 1e-12)

	xs, _ := axes(g, EPSGWGS84)
	assert.Equal(t, []float64{-2, -1, 0, 1}, xs)
}

func TestWriteFieldShapeMismatch(t *testing.T) {
	t.Parallel()

	rec := metrics.NewMemoryRecorder()
	w, err := NewNetCDFWriter(t.TempDir(), 4326, WithRecorder(rec))
	require.NoError(t, err)

	_, err = w.WriteField("x", "", mat.NewDense(3, 3, nil), testGrid())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryShapeMismatch))
	assert.Equal(t, 1, rec.OperationCount(metrics.OpNetCDFWrite, metrics.StatusError))
	assert.Equal(t, 1, rec.ErrorCount(metrics.OpNetCDFWrite, string(errors.CategoryShapeMismatch)))
	assert.Empty(t, w.Files())
}

func TestNewNetCDFWriterErrors(t *testing.T) {
	t.Parallel()

	_, err := NewNetCDFWriter("", 4326)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))
	_, err = NewNetCDFWriter(filepath.Join(blocker, "out"), 4326)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))
}

func constant(v float64) *mat.Dense {
	return mat.NewDense(2, 3, []float64{v, v, v, v, v, v})
}

func TestWriteResultAndManifest(t *testing.T) {
	t.Parallel()

	res := &stressor.Result{
		Metric: acoustic.SPL,
		Grid:   testGrid(),
		Weighted: stressor.Bundle{
			Baseline: constant(1), Device: constant(2), Stressor: constant(1), Exceeded: constant(100),
		},
		RiskLayer: constant(3),
		PerScenario: []stressor.ScenarioBundle{
			{ID: "winter", Bundle: stressor.Bundle{
				Baseline: constant(1), Device: constant(2), Stressor: constant(1), Exceeded: constant(0),
			}},
		},
	}

	rec := metrics.NewMemoryRecorder()
	dir := t.TempDir()
	w, err := NewNetCDFWriter(dir, 4326, WithRecorder(rec))
	require.NoError(t, err)
	require.NoError(t, w.WriteResult(res))

	files := w.Files()
	require.Len(t, files, 9)
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Path
		assert.Positive(t, f.Bytes)
		assert.FileExists(t, filepath.Join(dir, f.Path))
	}
	assert.Contains(t, names, "paracousti_risk_layer.nc")
	assert.Contains(t, names, "paracousti_with_devices_winter.nc")
	assert.Contains(t, names, "species_threshold_exceeded_winter.nc")
	assert.NotContains(t, names, "species_percent.nc")
	assert.Equal(t, 9, rec.OperationCount(metrics.OpNetCDFWrite, metrics.StatusSuccess))

	data, _ := readBack(t, filepath.Join(dir, "paracousti_risk_layer.nc"), stressor.KeyRiskLayer)
	assert.Equal(t, []float64{3, 3, 3, 3, 3, 3}, data)

	info := RunInfo{
		RunID:     "0b7e",
		Finished:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Metric:    "SPL",
		Weighting: "None",
		Threshold: 120,
		Scenarios: []string{"winter"},
	}
	report := File{Key: "paracousti_stressor", Path: "paracousti_stressor.csv", Bytes: 12}
	path, err := w.WriteManifest(info, GeometryOf(res.Grid, 4326), report)
	require.NoError(t, err)
	assert.Equal(t, ManifestName, filepath.Base(path))

	m, err := ReadManifest(path)
	require.NoError(t, err)
	assert.True(t, info.Finished.Equal(m.Finished))
	m.Finished = info.Finished
	assert.Equal(t, info, m.RunInfo)
	assert.InDelta(t, 10.0, m.Geometry.DX, 0)
	assert.Equal(t, 4326, m.Geometry.CRS)
	require.Len(t, m.Files, 10)
	assert.Equal(t, "winter", m.Files[5].Scenario)
	assert.Equal(t, report, m.Files[9])
	assert.Equal(t, 1, rec.OperationCount(metrics.OpManifestWrite, metrics.StatusSuccess))
}

func TestReadManifestErrors(t *testing.T) {
	t.Parallel()

	_, err := ReadManifest(filepath.Join(t.TempDir(), "none.yaml"))
	assert.True(t, errors.IsCategory(err, errors.CategoryMissingInput))

	bad := filepath.Join(t.TempDir(), ManifestName)
	require.NoError(t, os.WriteFile(bad, []byte("files: [unterminated"), 0o600))
	_, err = ReadManifest(bad)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileParsing))
}
