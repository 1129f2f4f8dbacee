// Package testutil provides shared test fixtures for the paracousti packages.
package testutil

import (
	"os"
	"slices"
	"testing"

	"github.com/ctessum/cdf"
	"github.com/stretchr/testify/require"
)

// Variable is one NetCDF variable of a fixture. Data is written as doubles.
type Variable struct {
	Name  string
	Dims  []string
	Data  []float64
	Attrs map[string]any
}

// Dataset describes a NetCDF classic fixture file.
type Dataset struct {
	Dims      []string
	Lengths   []int
	Variables []Variable
	Global    map[string]any
}

// WriteNetCDF writes ds to path and fails the test on any error.
func WriteNetCDF(tb testing.TB, path string, ds Dataset) {
	tb.Helper()

	h := cdf.NewHeader(ds.Dims, ds.Lengths)
	for _, k := range sortedKeys(ds.Global) {
		h.AddAttribute("", k, ds.Global[k])
	}
	for _, v := range ds.Variables {
		h.AddVariable(v.Name, v.Dims, []float64{0})
		for _, k := range sortedKeys(v.Attrs) {
			h.AddAttribute(v.Name, k, v.Attrs[k])
		}
	}
	h.Define()

	f, err := os.Create(path)
	require.NoError(tb, err)
	defer func() { require.NoError(tb, f.Close()) }()

	nc, err := cdf.Create(f, h)
	require.NoError(tb, err)

	for _, v := range ds.Variables {
		end := nc.Header.Lengths(v.Name)
		w := nc.Writer(v.Name, make([]int, len(end)), end)
		_, err := w.Write(v.Data)
		require.NoError(tb, err, "write %s", v.Name)
	}
	require.NoError(tb, cdf.UpdateNumRecs(f))
}

// Scenario describes a single-metric scenario file on a 2-D coordinate grid.
// Values are laid out (rows, cols, depth) unless DepthFirst is set.
type Scenario struct {
	Variable   string
	X, Y       []float64 // row-major, rows×cols
	Rows, Cols int
	Depth      int
	Values     []float64
	DepthFirst bool
	XUnits     string
}

// WriteScenario writes s in the layout scenario files use: XCOR/YCOR
// coordinate matrices referenced from the metric's coordinates attribute.
func WriteScenario(tb testing.TB, path string, s Scenario) {
	tb.Helper()

	units := s.XUnits
	if units == "" {
		units = "m"
	}
	dims := []string{"Nx", "Ny", "Nz"}
	lengths := []int{s.Rows, s.Cols, s.Depth}
	valueDims := []string{"Nx", "Ny", "Nz"}
	if s.DepthFirst {
		valueDims = []string{"Nz", "Nx", "Ny"}
	}

	WriteNetCDF(tb, path, Dataset{
		Dims:    dims,
		Lengths: lengths,
		Variables: []Variable{
			{Name: "XCOR", Dims: []string{"Nx", "Ny"}, Data: s.X, Attrs: map[string]any{"units": units}},
			{Name: "YCOR", Dims: []string{"Nx", "Ny"}, Data: s.Y, Attrs: map[string]any{"units": units}},
			{Name: s.Variable, Dims: valueDims, Data: s.Values, Attrs: map[string]any{
				"coordinates": "XCOR YCOR",
				"units":       "dB re 1 uPa",
			}},
		},
	})
}

// Lattice returns row-major X and Y coordinates for a rows×cols grid with X
// varying along columns.
func Lattice(rows, cols int, x0, y0, dx, dy float64) (xs, ys []float64) {
	xs = make([]float64, 0, rows*cols)
	ys = make([]float64, 0, rows*cols)
	for i := range rows {
		for j := range cols {
			xs = append(xs, x0+float64(j)*dx)
			ys = append(ys, y0+float64(i)*dy)
		}
	}
	return xs, ys
}

// LatticeXFirst returns row-major X and Y coordinates for an nx×ny grid with X
// varying along the first axis, the (Nx, Ny) layout scenario files use.
func LatticeXFirst(nx, ny int, x0, y0, dx, dy float64) (xs, ys []float64) {
	xs = make([]float64, 0, nx*ny)
	ys = make([]float64, 0, nx*ny)
	for i := range nx {
		for j := range ny {
			xs = append(xs, x0+float64(i)*dx)
			ys = append(ys, y0+float64(j)*dy)
		}
	}
	return xs, ys
}

// Fill returns n copies of v.
func Fill(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
