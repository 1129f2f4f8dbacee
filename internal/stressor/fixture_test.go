package stressor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/ctessum/sparse"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/seatkit/paracousti/internal/errors"
	"github.com/seatkit/paracousti/internal/grid"
	"github.com/seatkit/paracousti/internal/paracousti"
	"github.com/seatkit/paracousti/internal/testutil"
)

const (
	testRows = 3
	testCols = 4
)

// memorySource serves fields by path and counts reads.
type memorySource struct {
	mu     sync.Mutex
	fields map[string]*paracousti.Field
	reads  int
}

func (m *memorySource) ReadFile(path string) (*paracousti.Field, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	f, ok := m.fields[path]
	if !ok {
		return nil, errors.Newf("no field for %s", filepath.Base(path)).
			Category(errors.CategoryMissingInput).
			Build()
	}
	return f, nil
}

// constantField is a single-depth field of value v on a rows×cols 10 m lattice.
func constantField(rows, cols int, v float64) *paracousti.Field {
	return fieldFrom(rows, cols, func(_, _ int) float64 { return v })
}

func fieldFrom(rows, cols int, fn func(i, j int) float64) *paracousti.Field {
	xs, ys := testutil.Lattice(rows, cols, 0, 0, 10, 10)
	vol := sparse.ZerosDense(rows, cols, 1)
	for i := range rows {
		for j := range cols {
			vol.Set(fn(i, j), i, j, 0)
		}
	}
	return &paracousti.Field{
		Grid:   mustGrid(rows, cols, xs, ys),
		Volume: vol,
	}
}

func mustGrid(rows, cols int, xs, ys []float64) *grid.Grid {
	return &grid.Grid{X: mat.NewDense(rows, cols, xs), Y: mat.NewDense(rows, cols, ys)}
}

// fixture lays out device and baseline directories, a boundary table and an
// in-memory source for a pipeline run.
type fixture struct {
	t           *testing.T
	deviceDir   string
	baselineDir string
	speciesDir  string
	table       string
	rows        []string
	source      *memorySource
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	f := &fixture{
		t:           t,
		deviceDir:   filepath.Join(root, "devices"),
		baselineDir: filepath.Join(root, "baseline"),
		speciesDir:  filepath.Join(root, "species"),
		table:       filepath.Join(root, "boundary_conditions.csv"),
		source:      &memorySource{fields: map[string]*paracousti.Field{}},
	}
	for _, d := range []string{f.deviceDir, f.baselineDir, f.speciesDir} {
		require.NoError(t, os.MkdirAll(d, 0o755))
	}
	return f
}

// add registers a scenario. A nil baseline leaves no baseline file.
func (f *fixture) add(name string, percent float64, device, baseline *paracousti.Field, speciesFiles ...string) {
	f.t.Helper()
	devPath := filepath.Join(f.deviceDir, name)
	require.NoError(f.t, os.WriteFile(devPath, nil, 0o600))
	f.source.fields[devPath] = device
	if baseline != nil {
		basePath := filepath.Join(f.baselineDir, name)
		require.NoError(f.t, os.WriteFile(basePath, nil, 0o600))
		f.source.fields[basePath] = baseline
	}
	row := fmt.Sprintf("%s,%g", name, percent)
	for _, s := range speciesFiles {
		row += "," + s
	}
	f.rows = append(f.rows, row)
}

func (f *fixture) species(name, content string) {
	f.t.Helper()
	require.NoError(f.t, os.WriteFile(filepath.Join(f.speciesDir, name), []byte(content), 0o600))
}

func (f *fixture) config() Config {
	f.t.Helper()
	header := "Paracousti File,% of yr,Species Percent Occurance File,Species Density File"
	content := header + "\n" + strings.Join(f.rows, "\n") + "\n"
	require.NoError(f.t, os.WriteFile(f.table, []byte(content), 0o600))
	return Config{
		DeviceDir:            f.deviceDir,
		BaselineDir:          f.baselineDir,
		Probabilities:        f.table,
		Weighting:            "None",
		Metric:               "SPL",
		Threshold:            120,
		SingleConditionHours: 24,
		Workers:              2,
	}
}

func (f *fixture) pipeline(cfg Config, opts ...Option) *Pipeline {
	return New(cfg, append([]Option{WithSource(f.source)}, opts...)...)
}
