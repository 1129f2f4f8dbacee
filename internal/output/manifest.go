package output

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/seatkit/paracousti/internal/errors"
	"github.com/seatkit/paracousti/internal/logger"
	"github.com/seatkit/paracousti/internal/observability/metrics"
)

// ManifestName is the file name of the run manifest.
const ManifestName = "manifest.yaml"

// RunInfo describes the run a manifest belongs to.
type RunInfo struct {
	RunID       string    `yaml:"run_id"`
	Finished    time.Time `yaml:"finished"`
	Metric      string    `yaml:"metric"`
	Weighting   string    `yaml:"weighting"`
	Threshold   float64   `yaml:"threshold"`
	DepthPolicy string    `yaml:"depth_policy"`
	Scenarios   []string  `yaml:"scenarios"`
}

// Manifest lists every file a run produced.
type Manifest struct {
	RunInfo  `yaml:",inline"`
	Geometry Geometry `yaml:"geometry"`
	Files    []File   `yaml:"files"`
}

// WriteManifest writes manifest.yaml next to the rasters and returns its path.
// Report files written by others can be added through extra.
func (w *NetCDFWriter) WriteManifest(info RunInfo, geo Geometry, extra ...File) (string, error) {
	start := time.Now()
	path := filepath.Join(w.dir, ManifestName)

	m := Manifest{
		RunInfo:  info,
		Geometry: geo,
		Files:    append(w.Files(), extra...),
	}
	data, err := yaml.Marshal(&m)
	if err != nil {
		w.recorder.RecordError(metrics.OpManifestWrite, string(errors.CategoryFileIO))
		return "", errors.New(err).
			Component("output").
			Category(errors.CategoryFileIO).
			Build()
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, PermOutputFile); err != nil {
		w.recorder.RecordOperation(metrics.OpManifestWrite, metrics.StatusError)
		return "", fileError(err, path)
	}
	if err := os.Rename(tmp, path); err != nil {
		if rmErr := os.Remove(tmp); rmErr != nil {
			GetLogger().Warn("failed to remove temporary manifest", logger.String("path", tmp), logger.Error(rmErr))
		}
		w.recorder.RecordOperation(metrics.OpManifestWrite, metrics.StatusError)
		return "", fileError(err, path)
	}

	w.recorder.RecordOperation(metrics.OpManifestWrite, metrics.StatusSuccess)
	w.recorder.RecordDuration(metrics.OpManifestWrite, time.Since(start).Seconds())
	GetLogger().Info("manifest written",
		logger.String("path", path),
		logger.Int("files", len(m.Files)))
	return path, nil
}

// ReadManifest loads a manifest written by WriteManifest.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.MissingInputError(err, path)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.New(err).
			Component("output").
			Category(errors.CategoryFileParsing).
			FileContext(path).
			Build()
	}
	return &m, nil
}
