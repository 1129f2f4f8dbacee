package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/seatkit/paracousti/internal/logger"
)

// OutputMetrics contains Prometheus metrics for the output writers.
type OutputMetrics struct {
	registry *prometheus.Registry

	operationsTotal *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	bytesWritten    *prometheus.HistogramVec
}

// NewOutputMetrics creates and registers new output metrics.
func NewOutputMetrics(registry *prometheus.Registry) (*OutputMetrics, error) {
	m := &OutputMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, err
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *OutputMetrics) initMetrics() error {
	m.operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paracousti_output_operations_total",
			Help: "Output files written",
		},
		[]string{"operation", "status"},
	)
	m.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paracousti_output_errors_total",
			Help: "Output write errors",
		},
		[]string{"operation", "error_type"},
	)
	m.duration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "paracousti_output_duration_seconds",
			Help:    "Time taken to write one output file",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount12),
		},
		[]string{"operation"},
	)
	m.bytesWritten = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "paracousti_output_file_bytes",
			Help: "Size of written output files",
			// 1KB to ~4GB
			Buckets: prometheus.ExponentialBuckets(BucketStart1KB, BucketFactor4, BucketCount12),
		},
		[]string{"operation"},
	)
	return nil
}

// Describe implements the Collector interface
func (m *OutputMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.operationsTotal.Describe(ch)
	m.errorsTotal.Describe(ch)
	m.duration.Describe(ch)
	m.bytesWritten.Describe(ch)
}

// Collect implements the Collector interface
func (m *OutputMetrics) Collect(ch chan<- prometheus.Metric) {
	m.operationsTotal.Collect(ch)
	m.errorsTotal.Collect(ch)
	m.duration.Collect(ch)
	m.bytesWritten.Collect(ch)
}

// RecordOperation implements Recorder.
func (m *OutputMetrics) RecordOperation(operation, status string) {
	m.operationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordDuration implements Recorder.
func (m *OutputMetrics) RecordDuration(operation string, seconds float64) {
	m.duration.WithLabelValues(operation).Observe(seconds)
}

// RecordError implements Recorder.
func (m *OutputMetrics) RecordError(operation, errorType string) {
	m.errorsTotal.WithLabelValues(operation, errorType).Inc()
	log.Debug("output error recorded",
		logger.String("operation", operation),
		logger.String("error_type", errorType))
}

// RecordBytes records the size of a written file.
func (m *OutputMetrics) RecordBytes(operation string, n int64) {
	m.bytesWritten.WithLabelValues(operation).Observe(float64(n))
}
