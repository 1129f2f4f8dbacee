// Package stressor runs the acoustic stressor aggregation: scenario files are
// prepared in parallel, then folded in input order into probability-weighted
// and per-scenario results.
package stressor

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/seatkit/paracousti/internal/acoustic"
	"github.com/seatkit/paracousti/internal/boundary"
	"github.com/seatkit/paracousti/internal/conf"
	"github.com/seatkit/paracousti/internal/errors"
	"github.com/seatkit/paracousti/internal/grid"
	"github.com/seatkit/paracousti/internal/logger"
	"github.com/seatkit/paracousti/internal/paracousti"
	"github.com/seatkit/paracousti/internal/species"
)

// GetLogger returns the stressor module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("stressor")
}

// ScenarioSource reads one metric volume from a scenario file.
type ScenarioSource interface {
	ReadFile(path string) (*paracousti.Field, error)
}

// Recorder receives run measurements.
type Recorder interface {
	RecordScenarioPrepared(d time.Duration)
	RecordFold(d time.Duration)
	RecordDegenerateGrid()
	RecordNonFinite(field string, cells int)
	RecordError(category string)
}

type noopRecorder struct{}

func (noopRecorder) RecordScenarioPrepared(time.Duration) {}
func (noopRecorder) RecordFold(time.Duration)             {}
func (noopRecorder) RecordDegenerateGrid()                {}
func (noopRecorder) RecordNonFinite(string, int)          {}
func (noopRecorder) RecordError(string)                   {}

// Config holds the inputs of a run.
type Config struct {
	DeviceDir     string
	BaselineDir   string // empty: baseline is zero
	Probabilities string
	SpeciesDir    string // empty: no species layers
	RiskLayer     string // empty: no risk layer

	Weighting            string
	Metric               string
	Threshold            float64
	DepthPolicy          acoustic.DepthPolicy
	SpeciesResolutionKm2 float64
	SingleConditionHours float64
	Workers              int
}

// ConfigFromSettings maps loaded settings onto a run Config. An unknown
// depth policy falls back to depth maximum with a warning.
func ConfigFromSettings(s *conf.Settings) Config {
	policy, ok := acoustic.ParseDepthPolicy(s.Analysis.DepthPolicy)
	if !ok {
		GetLogger().Warn("unknown depth policy, using depth maximum",
			logger.String("depth_policy", s.Analysis.DepthPolicy))
	}
	return Config{
		DeviceDir:            s.Input.DeviceDir,
		BaselineDir:          s.Input.BaselineDir,
		Probabilities:        s.Input.Probabilities,
		SpeciesDir:           s.Input.SpeciesDir,
		RiskLayer:            s.Input.RiskLayer,
		Weighting:            s.Analysis.Weighting,
		Metric:               s.Analysis.Metric,
		Threshold:            s.Analysis.Threshold,
		DepthPolicy:          policy,
		SpeciesResolutionKm2: s.Analysis.SpeciesResolutionKm2,
		SingleConditionHours: s.Analysis.SingleConditionHours,
		Workers:              s.Analysis.Workers,
	}
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithSource replaces the NetCDF scenario reader.
func WithSource(src ScenarioSource) Option {
	return func(p *Pipeline) { p.source = src }
}

// WithRecorder attaches run metrics.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// WithProgress registers a callback invoked after each scenario is prepared.
// It may be called from several goroutines at once.
func WithProgress(fn func(done, total int)) Option {
	return func(p *Pipeline) { p.progress = fn }
}

// Pipeline aggregates one set of scenario files.
type Pipeline struct {
	cfg      Config
	source   ScenarioSource
	recorder Recorder
	progress func(done, total int)
}

// New returns a Pipeline for cfg.
func New(cfg Config, opts ...Option) *Pipeline {
	if cfg.SingleConditionHours <= 0 {
		cfg.SingleConditionHours = conf.DefaultSingleConditionHours
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	p := &Pipeline{
		cfg:      cfg,
		source:   paracousti.NewReader(cfg.Weighting, cfg.Metric),
		recorder: noopRecorder{},
		progress: func(int, int) {},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// scenarios resolves the device files, their boundary-condition rows and
// their baselines without reading any volume.
func (p *Pipeline) scenarios() ([]scenario, error) {
	files, err := paracousti.ListFiles(p.cfg.DeviceDir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.Newf("no %s files in the device directory", paracousti.Extension).
			Component("stressor").
			Category(errors.CategoryMissingInput).
			Build()
	}

	table, err := boundary.Load(p.cfg.Probabilities)
	if err != nil {
		return nil, err
	}
	baselines, err := matchBaselines(files, p.cfg.BaselineDir)
	if err != nil {
		return nil, err
	}

	scenarios := make([]scenario, len(files))
	for i, f := range files {
		row, err := table.Lookup(f)
		if err != nil {
			return nil, err
		}
		scenarios[i] = scenario{index: i, devicePath: f, baselinePath: baselines[i], row: row}
	}
	return scenarios, nil
}

// matchBaselines pairs each device file with the baseline of the same name,
// falling back to the baseline at the same position.
func matchBaselines(devices []string, dir string) ([]string, error) {
	out := make([]string, len(devices))
	if dir == "" {
		return out, nil
	}
	files, err := paracousti.ListFiles(dir)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]string, len(files))
	for _, f := range files {
		byName[filepath.Base(f)] = f
	}
	for i, d := range devices {
		if b, ok := byName[filepath.Base(d)]; ok {
			out[i] = b
			continue
		}
		if i < len(files) {
			GetLogger().Debug("baseline matched by position",
				logger.String("device", filepath.Base(d)),
				logger.String("baseline", filepath.Base(files[i])))
			out[i] = files[i]
			continue
		}
		return nil, errors.Newf("no baseline file for scenario %s", filepath.Base(d)).
			Component("stressor").
			Category(errors.CategoryMissingInput).
			ScenarioContext(filepath.Base(d), i).
			Build()
	}
	return out, nil
}

// Run executes the pipeline. Any fatal error aborts the run and no result is returned.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	res, err := p.run(ctx)
	if err != nil {
		p.recorder.RecordError(string(errors.CategoryOf(err, errors.CategoryGeneric)))
		return nil, err
	}
	return res, nil
}

func (p *Pipeline) run(ctx context.Context) (*Result, error) {
	start := time.Now()
	log := GetLogger().WithContext(ctx)

	if p.cfg.SpeciesDir != "" {
		if _, err := os.Stat(p.cfg.SpeciesDir); err != nil {
			return nil, errors.MissingInputError(err, p.cfg.SpeciesDir)
		}
	}

	scenarios, err := p.scenarios()
	if err != nil {
		return nil, err
	}
	log.Info("starting stressor run",
		logger.Int("scenarios", len(scenarios)),
		logger.String("metric", p.cfg.Metric),
		logger.String("weighting", p.cfg.Weighting),
		logger.Float64("threshold", p.cfg.Threshold),
		logger.String("depth_policy", p.cfg.DepthPolicy.String()))

	prepared, err := p.prepareAll(ctx, scenarios)
	if err != nil {
		return nil, err
	}

	runGrid := prepared[0].grid
	for _, sc := range prepared[1:] {
		if !sc.grid.SameShape(runGrid) {
			r0, c0 := runGrid.Dims()
			r, c := sc.grid.Dims()
			return nil, errors.Newf("scenario grid %d×%d does not match run grid %d×%d", r, c, r0, c0).
				Component("stressor").
				Category(errors.CategoryShapeMismatch).
				ScenarioContext(sc.file(), sc.index).
				Build()
		}
	}

	res, err := p.fold(ctx, prepared)
	if err != nil {
		return nil, err
	}

	if p.cfg.RiskLayer != "" {
		if res.RiskLayer, err = riskLayer(p.cfg.RiskLayer, runGrid, res.Angular); err != nil {
			return nil, err
		}
	}

	for _, f := range res.WeightedFields() {
		if n := acoustic.CountNonFinite(f.Field); n > 0 {
			p.recorder.RecordNonFinite(f.Key, n)
			log.Warn("field contains non-finite cells",
				logger.String("field", f.Key),
				logger.Int("cells", n),
				logger.String("category", string(errors.CategoryNumericAnomaly)))
		}
	}

	log.Info("stressor run complete",
		logger.Int("scenarios", len(prepared)),
		logger.String("metric", res.Metric.String()),
		logger.Duration("elapsed", time.Since(start)))
	return res, nil
}

// prepareAll prepares every scenario on a bounded worker group. The first
// error cancels the remaining work.
func (p *Pipeline) prepareAll(ctx context.Context, scenarios []scenario) ([]*prepared, error) {
	out := make([]*prepared, len(scenarios))
	var done atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for i, sc := range scenarios {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return cancelled(err)
			}
			prep, err := p.prepare(sc)
			if err != nil {
				return err
			}
			out[i] = prep
			p.progress(int(done.Add(1)), len(scenarios))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, cancelled(err)
	}
	return out, nil
}

// fold accumulates the prepared scenarios in input order on the first
// scenario's grid.
func (p *Pipeline) fold(ctx context.Context, prepared []*prepared) (*Result, error) {
	first := prepared[0]
	rows, cols := first.grid.Dims()
	metric := acoustic.MetricFromName(p.cfg.Metric)
	agg := acoustic.NewAggregator(metric, p.cfg.Threshold, rows, cols)

	var scaler *species.Scaler
	var acc *species.Accumulator
	if p.cfg.SpeciesDir != "" {
		scaler = species.NewScaler(p.cfg.SpeciesDir, first.grid, first.angular, p.cfg.SpeciesResolutionKm2)
		acc = species.NewAccumulator(rows, cols)
	}

	ids := make([]string, len(prepared))
	for i, sc := range prepared {
		ids[i] = sc.id()
	}
	res := newResult(metric, first.grid, first.angular, ids)

	for i, sc := range prepared {
		if err := ctx.Err(); err != nil {
			return nil, cancelled(err)
		}
		start := time.Now()

		mask, err := agg.Fold(acoustic.Contribution{
			Probability: sc.row.Probability(),
			Device:      sc.device,
			Baseline:    sc.baseline,
		})
		if err != nil {
			return nil, scenarioError(err, sc.scenario, "fold_scenario", start)
		}

		in := SingleInput{Device: sc.device, Baseline: sc.baseline}
		if scaler != nil {
			if in.Percent, err = scaler.Layer(sc.row.SpeciesPercentFile, species.Percent); err != nil {
				return nil, scenarioError(err, sc.scenario, "fold_scenario", start)
			}
			if in.Density, err = scaler.Layer(sc.row.SpeciesDensityFile, species.Density); err != nil {
				return nil, scenarioError(err, sc.scenario, "fold_scenario", start)
			}
			acc.Add(mask, sc.row.Probability(), in.Percent, in.Density)
		}

		res.PerScenario[i].Bundle = EvaluateSingle(in, metric, p.cfg.Threshold, p.cfg.SingleConditionHours)
		p.recorder.RecordFold(time.Since(start))
	}

	totals := agg.Result()
	res.Weighted = Bundle{
		Baseline: totals.Baseline,
		Device:   totals.Device,
		Stressor: totals.Stressor,
		Exceeded: totals.Exceeded,
	}
	if acc != nil {
		res.Weighted.Percent, res.Weighted.Density = acc.Result()
	}
	return res, nil
}

// riskLayer reads the secondary constraint layer and samples it onto g.
func riskLayer(path string, g *grid.Grid, angular bool) (*mat.Dense, error) {
	pts, err := species.Load(path, species.Risk, angular)
	if err != nil {
		return nil, err
	}
	nn, err := grid.NewNearestPoints(pts.X, pts.Y, pts.Values)
	if err != nil {
		return nil, errors.New(err).
			Component("stressor").
			Category(errors.CategoryMissingInput).
			FileContext(path).
			Build()
	}
	return nn.Sample(g), nil
}

func cancelled(err error) error {
	return errors.New(err).
		Component("stressor").
		Category(errors.CategoryCancellation).
		Build()
}
