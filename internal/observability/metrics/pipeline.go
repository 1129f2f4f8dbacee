package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/seatkit/paracousti/internal/logger"
)

// PipelineMetrics contains Prometheus metrics for a stressor run.
// It satisfies stressor.Recorder.
type PipelineMetrics struct {
	registry *prometheus.Registry

	scenariosPrepared prometheus.Counter
	scenariosFolded   prometheus.Counter
	prepareDuration   prometheus.Histogram
	foldDuration      prometheus.Histogram
	degenerateGrids   prometheus.Counter
	nonFiniteCells    *prometheus.GaugeVec
	runErrors         *prometheus.CounterVec
	lastRunSuccess    prometheus.Gauge
	lastRunTimestamp  prometheus.Gauge
	lastRunScenarios  prometheus.Gauge
}

// NewPipelineMetrics creates and registers new pipeline metrics.
func NewPipelineMetrics(registry *prometheus.Registry) (*PipelineMetrics, error) {
	m := &PipelineMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, err
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *PipelineMetrics) initMetrics() error {
	m.scenariosPrepared = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "paracousti_scenarios_prepared_total",
		Help: "Scenarios read, depth-reduced and regridded",
	})
	m.scenariosFolded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "paracousti_scenarios_folded_total",
		Help: "Scenarios accumulated into the weighted result",
	})
	m.prepareDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "paracousti_scenario_prepare_duration_seconds",
		Help: "Time taken to prepare one scenario",
		// 10ms to ~5s; large model runs take seconds to read and regrid
		Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount10),
	})
	m.foldDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "paracousti_scenario_fold_duration_seconds",
		Help:    "Time taken to fold one scenario",
		Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount10),
	})
	m.degenerateGrids = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "paracousti_degenerate_grids_total",
		Help: "Scenarios whose coordinates could not be regridded",
	})
	m.nonFiniteCells = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "paracousti_non_finite_cells",
		Help: "NaN or infinite cells in a weighted output field",
	}, []string{"field"})
	m.runErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "paracousti_run_errors_total",
		Help: "Runs aborted by a fatal error",
	}, []string{"category"})
	m.lastRunSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "paracousti_last_run_success",
		Help: "1 when the last run completed, 0 when it failed",
	})
	m.lastRunTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "paracousti_last_run_timestamp_seconds",
		Help: "Unix time at which the last run finished",
	})
	m.lastRunScenarios = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "paracousti_last_run_scenarios",
		Help: "Scenarios in the last run",
	})
	return nil
}

// Describe implements the Collector interface
func (m *PipelineMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.scenariosPrepared.Describe(ch)
	m.scenariosFolded.Describe(ch)
	m.prepareDuration.Describe(ch)
	m.foldDuration.Describe(ch)
	m.degenerateGrids.Describe(ch)
	m.nonFiniteCells.Describe(ch)
	m.runErrors.Describe(ch)
	m.lastRunSuccess.Describe(ch)
	m.lastRunTimestamp.Describe(ch)
	m.lastRunScenarios.Describe(ch)
}

// Collect implements the Collector interface
func (m *PipelineMetrics) Collect(ch chan<- prometheus.Metric) {
	m.scenariosPrepared.Collect(ch)
	m.scenariosFolded.Collect(ch)
	m.prepareDuration.Collect(ch)
	m.foldDuration.Collect(ch)
	m.degenerateGrids.Collect(ch)
	m.nonFiniteCells.Collect(ch)
	m.runErrors.Collect(ch)
	m.lastRunSuccess.Collect(ch)
	m.lastRunTimestamp.Collect(ch)
	m.lastRunScenarios.Collect(ch)
}

// RecordScenarioPrepared records one prepared scenario.
func (m *PipelineMetrics) RecordScenarioPrepared(d time.Duration) {
	m.scenariosPrepared.Inc()
	m.prepareDuration.Observe(d.Seconds())
}

// RecordFold records one folded scenario.
func (m *PipelineMetrics) RecordFold(d time.Duration) {
	m.scenariosFolded.Inc()
	m.foldDuration.Observe(d.Seconds())
}

// RecordDegenerateGrid records a scenario kept on its original coordinates.
func (m *PipelineMetrics) RecordDegenerateGrid() {
	m.degenerateGrids.Inc()
}

// RecordNonFinite sets the number of non-finite cells of a weighted field.
func (m *PipelineMetrics) RecordNonFinite(field string, cells int) {
	m.nonFiniteCells.WithLabelValues(field).Set(float64(cells))
}

// RecordError records a fatal run error by category.
func (m *PipelineMetrics) RecordError(category string) {
	m.runErrors.WithLabelValues(category).Inc()
	log.Debug("run error recorded", logger.String("category", category))
}

// RecordRunFinished stamps the outcome of a run.
func (m *PipelineMetrics) RecordRunFinished(at time.Time, scenarios int, success bool) {
	m.lastRunTimestamp.Set(float64(at.Unix()))
	m.lastRunScenarios.Set(float64(scenarios))
	if success {
		m.lastRunSuccess.Set(1)
	} else {
		m.lastRunSuccess.Set(0)
	}
}
