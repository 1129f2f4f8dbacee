package paracousti

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seatkit/paracousti/internal/errors"
	"github.com/seatkit/paracousti/internal/testutil"
)

func TestVariableName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "SPL", VariableName("None", "SPL"))
	assert.Equal(t, "SPL", VariableName("", "SPL"))
	assert.Equal(t, "SPL", VariableName("none", "SPL"))
	assert.Equal(t, "HFC_SEL_weighted", VariableName("HFC", "SEL_weighted"))
}

func TestReadFileRowsColsDepth(t *testing.T) {
	t.Parallel()

	xs, ys := testutil.Lattice(2, 3, 100, 200, 10, 10)
	values := make([]float64, 2*3*2)
	for i := range values {
		values[i] = float64(i)
	}
	path := filepath.Join(t.TempDir(), "scenario_1.nc")
	testutil.WriteScenario(t, path, testutil.Scenario{
		Variable: "SPL", X: xs, Y: ys, Rows: 2, Cols: 3, Depth: 2, Values: values,
	})

	f, err := NewReader("None", "SPL").ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "scenario_1.nc", f.Name())
	assert.Equal(t, "SPL", f.Variable)
	assert.False(t, f.Angular)
	assert.Equal(t, []int{2, 3, 2}, f.Volume.Shape)
	assert.InDelta(t, 7.0, f.Volume.Get(1, 0, 1), 1e-12)

	rows, cols := f.Grid.Dims()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 3, cols)
	assert.InDelta(t, 120.0, f.Grid.X.At(0, 2), 1e-12)
	assert.InDelta(t, 210.0, f.Grid.Y.At(1, 0), 1e-12)
}

func TestReadFileTransposesDepthFirstVolumes(t *testing.T) {
	t.Parallel()

	const rows, cols, depth = 2, 2, 3
	xs, ys := testutil.Lattice(rows, cols, 0, 0, 1, 1)
	// stored (depth, rows, cols): value encodes k*100 + i*10 + j
	values := make([]float64, 0, rows*cols*depth)
	for k := range depth {
		for i := range rows {
			for j := range cols {
				values = append(values, float64(k*100+i*10+j))
			}
		}
	}
	path := filepath.Join(t.TempDir(), "depth_first.nc")
	testutil.WriteScenario(t, path, testutil.Scenario{
		Variable: "SEL", X: xs, Y: ys, Rows: rows, Cols: cols, Depth: depth,
		Values: values, DepthFirst: true,
	})

	f, err := NewReader("", "SEL").ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, []int{rows, cols, depth}, f.Volume.Shape)
	for k := range depth {
		for i := range rows {
			for j := range cols {
				assert.InDelta(t, float64(k*100+i*10+j), f.Volume.Get(i, j, k), 1e-12)
			}
		}
	}
}

func TestReadFileWrapsDegreeLongitudes(t *testing.T) {
	t.Parallel()

	xs, ys := testutil.Lattice(2, 2, -124.5, 44.5, 0.5, 0.5)
	path := filepath.Join(t.TempDir(), "geo.nc")
	testutil.WriteScenario(t, path, testutil.Scenario{
		Variable: "SPL", X: xs, Y: ys, Rows: 2, Cols: 2, Depth: 1,
		Values: testutil.Fill(4, 120), XUnits: "degrees_east",
	})

	f, err := NewReader("None", "SPL").ReadFile(path)
	require.NoError(t, err)
	assert.True(t, f.Angular)
	assert.InDelta(t, 235.5, f.Grid.X.At(0, 0), 1e-9)
	assert.InDelta(t, 236.0, f.Grid.X.At(0, 1), 1e-9)
}

func TestReadFileFillValueBecomesNaN(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "fill.nc")
	testutil.WriteNetCDF(t, path, testutil.Dataset{
		Dims:    []string{"x", "y"},
		Lengths: []int{2, 3},
		Variables: []testutil.Variable{
			{Name: "x", Dims: []string{"x"}, Data: []float64{0, 1}, Attrs: map[string]any{"units": "m"}},
			{Name: "y", Dims: []string{"y"}, Data: []float64{0, 5, 10}, Attrs: map[string]any{"units": "m"}},
			{Name: "SPL", Dims: []string{"x", "y"}, Data: []float64{1, -999, 3, 4, 5, 6}, Attrs: map[string]any{
				"coordinates": "x y",
				"_FillValue":  []float64{-999},
			}},
		},
	})

	f, err := NewReader("None", "SPL").ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 1}, f.Volume.Shape)
	assert.True(t, math.IsNaN(f.Volume.Get(0, 1, 0)))

	// 1-D axes: x runs along the first axis
	assert.InDelta(t, 1.0, f.Grid.X.At(1, 2), 1e-12)
	assert.InDelta(t, 10.0, f.Grid.Y.At(1, 2), 1e-12)
}

func TestReadFileErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	xs, ys := testutil.Lattice(2, 2, 0, 0, 1, 1)
	path := filepath.Join(dir, "s.nc")
	testutil.WriteScenario(t, path, testutil.Scenario{
		Variable: "SPL", X: xs, Y: ys, Rows: 2, Cols: 2, Depth: 1, Values: testutil.Fill(4, 1),
	})

	_, err := NewReader("HFC", "SPL").ReadFile(path)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryMissingInput))

	_, err = NewReader("None", "SPL").ReadFile(filepath.Join(dir, "absent.nc"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryMissingInput))
}

func TestAssembleRejectsMismatchedVolume(t *testing.T) {
	t.Parallel()

	_, _, err := assemble(make([]float64, 12), []int{4, 3}, make([]float64, 4), []int{2, 2}, make([]float64, 4), []int{2, 2})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryShapeMismatch))
}
