package stressor

import (
	"path/filepath"
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/seatkit/paracousti/internal/acoustic"
	"github.com/seatkit/paracousti/internal/boundary"
	"github.com/seatkit/paracousti/internal/errors"
	"github.com/seatkit/paracousti/internal/grid"
	"github.com/seatkit/paracousti/internal/logger"
)

// scenario is one device file with its boundary-condition row and matching baseline.
type scenario struct {
	index        int
	devicePath   string
	baselinePath string // empty means a zero baseline
	row          boundary.Row
}

func (s scenario) file() string { return filepath.Base(s.devicePath) }

// id is the file name without its extension.
func (s scenario) id() string {
	name := s.file()
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// prepared is a scenario reduced to 2-D and placed on its regridded lattice.
type prepared struct {
	scenario
	grid     *grid.Grid
	angular  bool
	device   *mat.Dense
	baseline *mat.Dense
}

// prepare reads, depth-reduces and regrids one scenario. The baseline is
// resampled onto the device's regridded lattice.
func (p *Pipeline) prepare(sc scenario) (*prepared, error) {
	start := time.Now()
	log := GetLogger().With(logger.String("scenario", sc.file()))

	dev, err := p.source.ReadFile(sc.devicePath)
	if err != nil {
		return nil, scenarioError(err, sc, "prepare_scenario", start)
	}
	devField, err := acoustic.ReduceDepth(dev.Volume, p.cfg.DepthPolicy)
	if err != nil {
		return nil, scenarioError(err, sc, "prepare_scenario", start)
	}

	rg, err := grid.Regrid(dev.Grid.X, dev.Grid.Y, devField)
	if err != nil {
		return nil, scenarioError(err, sc, "prepare_scenario", start)
	}
	if rg.Degenerate {
		p.recorder.RecordDegenerateGrid()
	}

	rows, cols := rg.Grid.Dims()
	baseline := mat.NewDense(rows, cols, nil)
	if sc.baselinePath != "" {
		base, err := p.source.ReadFile(sc.baselinePath)
		if err != nil {
			return nil, scenarioError(err, sc, "prepare_scenario", start)
		}
		baseField, err := acoustic.ReduceDepth(base.Volume, p.cfg.DepthPolicy)
		if err != nil {
			return nil, scenarioError(err, sc, "prepare_scenario", start)
		}
		baseline, err = grid.Resample(base.Grid, baseField, rg.Grid, 0)
		if err != nil {
			return nil, scenarioError(err, sc, "prepare_scenario", start)
		}
	}

	elapsed := time.Since(start)
	p.recorder.RecordScenarioPrepared(elapsed)
	log.Debug("scenario prepared",
		logger.Int("rows", rows),
		logger.Int("cols", cols),
		logger.Bool("degenerate", rg.Degenerate),
		logger.Duration("elapsed", elapsed))

	return &prepared{
		scenario: sc,
		grid:     rg.Grid,
		angular:  dev.Angular,
		device:   rg.Field,
		baseline: baseline,
	}, nil
}

func scenarioError(err error, sc scenario, operation string, start time.Time) error {
	return errors.New(err).
		Component("stressor").
		Category(errors.CategoryOf(err, errors.CategoryProcessing)).
		ScenarioContext(sc.file(), sc.index).
		Timing(operation, time.Since(start)).
		Build()
}
