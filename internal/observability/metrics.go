// Package observability collects the metrics of a paracousti run and exports
// them for node_exporter's textfile collector.
package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/seatkit/paracousti/internal/errors"
	"github.com/seatkit/paracousti/internal/logger"
	"github.com/seatkit/paracousti/internal/observability/metrics"
)

// Metrics holds all the metric collectors for a run.
type Metrics struct {
	registry *prometheus.Registry
	Pipeline *metrics.PipelineMetrics
	Output   *metrics.OutputMetrics
}

// NewMetrics creates a new instance of Metrics on a private registry.
// It returns an error if any metric collector fails to initialize.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	pipelineMetrics, err := metrics.NewPipelineMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
	}

	outputMetrics, err := metrics.NewOutputMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create output metrics: %w", err)
	}

	return &Metrics{
		registry: registry,
		Pipeline: pipelineMetrics,
		Output:   outputMetrics,
	}, nil
}

// Gatherer exposes the registry, mainly for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile writes every collected metric to path in the text exposition
// format. The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return errors.New(err).
			Component("observability").
			Category(errors.CategoryFileIO).
			FileContext(path).
			Build()
	}
	log.Info("metrics written", logger.String("path", path))
	return nil
}
