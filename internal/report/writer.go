package report

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/seatkit/paracousti/internal/errors"
	"github.com/seatkit/paracousti/internal/logger"
	"github.com/seatkit/paracousti/internal/observability/metrics"
	"github.com/seatkit/paracousti/internal/output"
	"github.com/seatkit/paracousti/internal/stressor"
)

// ReceptorSuffix is appended to reports binned by the risk layer.
const ReceptorSuffix = "_at_" + stressor.KeyRiskLayer

// GetLogger returns the report module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("report")
}

// receptorKeys are the fields also binned per risk layer value.
var receptorKeys = map[string]bool{
	stressor.KeyStressor: true,
	stressor.KeyExceeded: true,
	stressor.KeyPercent:  true,
	stressor.KeyDensity:  true,
}

// Writer writes binned CSV reports for a result.
type Writer struct {
	dir      string
	bins     int
	recorder metrics.Recorder
}

// NewWriter returns a Writer placing reports in dir.
func NewWriter(dir string, bins int, recorder metrics.Recorder) *Writer {
	if recorder == nil {
		recorder = metrics.NopRecorder{}
	}
	return &Writer{dir: dir, bins: bins, recorder: recorder}
}

// WriteResult writes one table per weighted and per-scenario field, plus
// receptor tables when the result carries a risk layer.
func (w *Writer) WriteResult(res *stressor.Result) ([]output.File, error) {
	var receptor []float64
	if res.RiskLayer != nil {
		var err error
		if receptor, err = ReceptorOf(res.RiskLayer, res.Grid, res.Angular); err != nil {
			return nil, err
		}
	}

	var written []output.File
	emit := func(key, scenario string, field *mat.Dense) error {
		files, err := w.writeField(res, key, scenario, field, receptor)
		written = append(written, files...)
		return err
	}

	for _, f := range res.Weighted.Fields() {
		if err := emit(f.Key, "", f.Field); err != nil {
			return written, err
		}
	}
	for _, sb := range res.PerScenario {
		for _, f := range sb.Fields() {
			if err := emit(f.Key, sb.ID, f.Field); err != nil {
				return written, err
			}
		}
	}
	return written, nil
}

func (w *Writer) writeField(res *stressor.Result, key, scenario string, field *mat.Dense, receptor []float64) ([]output.File, error) {
	layer, err := LayerOf(field, res.Grid, res.Angular)
	if err != nil {
		return nil, err
	}
	base := strings.TrimSuffix(output.FileName(key, scenario), output.Extension)

	bins, err := BinData(layer.Values, layer.Area, w.bins)
	if err != nil {
		return nil, err
	}
	f, err := w.write(bins.Table(), key, scenario, base+".csv")
	if err != nil {
		return nil, err
	}
	files := []output.File{f}

	if receptor == nil || !receptorKeys[key] {
		return files, nil
	}
	rb, err := BinReceptor(layer.Values, receptor, layer.Area, w.bins)
	if err != nil {
		return files, err
	}
	f, err = w.write(rb.Table(), key, scenario, base+ReceptorSuffix+".csv")
	if err != nil {
		return files, err
	}
	return append(files, f), nil
}

func (w *Writer) write(t Table, key, scenario, name string) (output.File, error) {
	start := time.Now()
	path := filepath.Join(w.dir, name)
	if err := t.WriteCSV(path); err != nil {
		w.recorder.RecordOperation(metrics.OpReportWrite, metrics.StatusError)
		w.recorder.RecordError(metrics.OpReportWrite, string(errors.CategoryOf(err, errors.CategoryFileIO)))
		return output.File{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return output.File{}, csvError(err, path)
	}
	w.recorder.RecordOperation(metrics.OpReportWrite, metrics.StatusSuccess)
	w.recorder.RecordDuration(metrics.OpReportWrite, time.Since(start).Seconds())
	GetLogger().Debug("report written", logger.String("path", path))
	return output.File{Key: key, Scenario: scenario, Path: name, Bytes: info.Size()}, nil
}
