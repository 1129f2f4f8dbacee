// Package output writes the rasters and manifest of a stressor run.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ctessum/cdf"
	"gonum.org/v1/gonum/mat"

	"github.com/seatkit/paracousti/internal/errors"
	"github.com/seatkit/paracousti/internal/grid"
	"github.com/seatkit/paracousti/internal/logger"
	"github.com/seatkit/paracousti/internal/observability/metrics"
	"github.com/seatkit/paracousti/internal/stressor"
)

// Extension of every raster written.
const Extension = ".nc"

// PermOutputFile is the mode of written files.
const PermOutputFile = 0o644

// GetLogger returns the output module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("output")
}

// File describes one written file.
type File struct {
	Key      string `yaml:"key"`
	Scenario string `yaml:"scenario,omitempty"`
	Path     string `yaml:"path"`
	Bytes    int64  `yaml:"bytes"`
}

// byteRecorder is implemented by recorders that track file sizes.
type byteRecorder interface {
	RecordBytes(operation string, n int64)
}

// Option customises a NetCDFWriter.
type Option func(*NetCDFWriter)

// WithRecorder attaches output metrics.
func WithRecorder(r metrics.Recorder) Option {
	return func(w *NetCDFWriter) { w.recorder = r }
}

// NetCDFWriter writes each field as its own north-up NetCDF raster and keeps
// a record of everything written for the manifest.
type NetCDFWriter struct {
	dir      string
	crs      int
	recorder metrics.Recorder

	mu    sync.Mutex
	files []File
}

// NewNetCDFWriter creates dir when needed.
func NewNetCDFWriter(dir string, crs int, opts ...Option) (*NetCDFWriter, error) {
	if dir == "" {
		return nil, errors.ValidationError("output directory is not set")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.New(err).
			Component("output").
			Category(errors.CategoryFileIO).
			FileContext(dir).
			Build()
	}
	w := &NetCDFWriter{dir: dir, crs: crs, recorder: metrics.NopRecorder{}}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Dir returns the output directory.
func (w *NetCDFWriter) Dir() string { return w.dir }

// Files returns a copy of the files written so far.
func (w *NetCDFWriter) Files() []File {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]File(nil), w.files...)
}

// FileName is the base name of a raster: <key>.nc for weighted fields and
// <key>_<scenario>.nc for per-scenario ones.
func FileName(key, scenario string) string {
	if scenario == "" {
		return key + Extension
	}
	return key + "_" + scenario + Extension
}

// WriteResult writes the weighted fields, the risk layer and every
// per-scenario field of res.
func (w *NetCDFWriter) WriteResult(res *stressor.Result) error {
	for _, f := range res.WeightedFields() {
		if _, err := w.WriteField(f.Key, "", f.Field, res.Grid); err != nil {
			return err
		}
	}
	for _, sb := range res.PerScenario {
		for _, f := range sb.Fields() {
			if _, err := w.WriteField(f.Key, sb.ID, f.Field, res.Grid); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteField writes one field on g and returns the written path.
func (w *NetCDFWriter) WriteField(key, scenario string, field *mat.Dense, g *grid.Grid) (string, error) {
	start := time.Now()
	path := filepath.Join(w.dir, FileName(key, scenario))

	n, err := w.writeRaster(path, key, field, g)
	if err != nil {
		w.recorder.RecordOperation(metrics.OpNetCDFWrite, metrics.StatusError)
		w.recorder.RecordError(metrics.OpNetCDFWrite, string(errors.CategoryOf(err, errors.CategoryFileIO)))
		return "", err
	}

	w.recorder.RecordOperation(metrics.OpNetCDFWrite, metrics.StatusSuccess)
	w.recorder.RecordDuration(metrics.OpNetCDFWrite, time.Since(start).Seconds())
	if br, ok := w.recorder.(byteRecorder); ok {
		br.RecordBytes(metrics.OpNetCDFWrite, n)
	}

	w.mu.Lock()
	w.files = append(w.files, File{Key: key, Scenario: scenario, Path: filepath.Base(path), Bytes: n})
	w.mu.Unlock()

	GetLogger().Debug("raster written",
		logger.String("path", path),
		logger.Int64("bytes", n))
	return path, nil
}

func (w *NetCDFWriter) writeRaster(path, key string, field *mat.Dense, g *grid.Grid) (int64, error) {
	rows, cols := field.Dims()
	if gr, gc := g.Dims(); gr != rows || gc != cols {
		return 0, errors.Newf("field %s is %d×%d but grid is %d×%d", key, rows, cols, gr, gc).
			Component("output").
			Category(errors.CategoryShapeMismatch).
			Build()
	}

	geo := GeometryOf(g, w.crs)
	xs, ys := axes(g, w.crs)

	h := cdf.NewHeader([]string{"y", "x"}, []int{rows, cols})
	h.AddAttribute("", "dx", []float64{geo.DX})
	h.AddAttribute("", "dy", []float64{geo.DY})
	h.AddAttribute("", "x0", []float64{geo.X0})
	h.AddAttribute("", "y0", []float64{geo.Y0})
	h.AddAttribute("", "crs", fmt.Sprintf("EPSG:%d", geo.CRS))
	h.AddVariable("x", []string{"x"}, []float64{0})
	h.AddVariable("y", []string{"y"}, []float64{0})
	h.AddVariable(key, []string{"y", "x"}, []float64{0})
	h.AddAttribute(key, "coordinates", "x y")
	h.Define()

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_RDWR, PermOutputFile)
	if err != nil {
		return 0, fileError(err, path)
	}

	werr := func() error {
		nc, err := cdf.Create(f, h)
		if err != nil {
			return err
		}
		if err := writeVariable(nc, "x", xs); err != nil {
			return err
		}
		if err := writeVariable(nc, "y", ys); err != nil {
			return err
		}
		if err := writeVariable(nc, key, northUp(field)); err != nil {
			return err
		}
		return cdf.UpdateNumRecs(f)
	}()
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		if rmErr := os.Remove(tmp); rmErr != nil {
			GetLogger().Warn("failed to remove temporary raster", logger.String("path", tmp), logger.Error(rmErr))
		}
		return 0, fileError(werr, path)
	}

	if err := os.Rename(tmp, path); err != nil {
		return 0, fileError(err, path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, fileError(err, path)
	}
	return info.Size(), nil
}

func writeVariable(nc *cdf.File, name string, data []float64) error {
	end := nc.Header.Lengths(name)
	if _, err := nc.Writer(name, make([]int, len(end)), end).Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// northUp flattens m with its rows reversed so the largest Y comes first.
func northUp(m *mat.Dense) []float64 {
	rows, cols := m.Dims()
	out := make([]float64, 0, rows*cols)
	for i := rows - 1; i >= 0; i-- {
		out = append(out, mat.Row(nil, i, m)...)
	}
	return out
}

func fileError(err error, path string) error {
	return errors.New(err).
		Component("output").
		Category(errors.CategoryFileIO).
		FileContext(path).
		Build()
}
