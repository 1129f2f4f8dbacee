package stressor

import (
	"gonum.org/v1/gonum/mat"

	"github.com/seatkit/paracousti/internal/acoustic"
	"github.com/seatkit/paracousti/internal/grid"
)

// Output field keys.
const (
	KeyWithoutDevices = "paracousti_without_devices"
	KeyWithDevices    = "paracousti_with_devices"
	KeyStressor       = "paracousti_stressor"
	KeyExceeded       = "species_threshold_exceeded"
	KeyPercent        = "species_percent"
	KeyDensity        = "species_density"
	KeyRiskLayer      = "paracousti_risk_layer"
)

// Bundle holds the six named fields of one aggregation. Percent and Density
// are nil when the run has no species layers.
type Bundle struct {
	Baseline *mat.Dense
	Device   *mat.Dense
	Stressor *mat.Dense
	Exceeded *mat.Dense
	Percent  *mat.Dense
	Density  *mat.Dense
}

// NamedField pairs an output key with its field.
type NamedField struct {
	Key   string
	Field *mat.Dense
}

// Fields returns the populated fields in output order.
func (b Bundle) Fields() []NamedField {
	fields := []NamedField{
		{KeyWithoutDevices, b.Baseline},
		{KeyWithDevices, b.Device},
		{KeyStressor, b.Stressor},
		{KeyExceeded, b.Exceeded},
	}
	if b.Percent != nil {
		fields = append(fields, NamedField{KeyPercent, b.Percent})
	}
	if b.Density != nil {
		fields = append(fields, NamedField{KeyDensity, b.Density})
	}
	return fields
}

// ScenarioBundle is the unweighted result of one scenario.
type ScenarioBundle struct {
	// ID is the scenario file name without its extension.
	ID string
	Bundle
}

// Result is the outcome of a pipeline run.
type Result struct {
	Metric   acoustic.Metric
	Grid     *grid.Grid
	Angular  bool
	Weighted Bundle
	// PerScenario follows the input order.
	PerScenario []ScenarioBundle
	// RiskLayer is nil unless a risk layer was configured.
	RiskLayer *mat.Dense

	index map[string]int
}

func newResult(metric acoustic.Metric, g *grid.Grid, angular bool, ids []string) *Result {
	r := &Result{
		Metric:      metric,
		Grid:        g,
		Angular:     angular,
		PerScenario: make([]ScenarioBundle, len(ids)),
		index:       make(map[string]int, len(ids)),
	}
	for i, id := range ids {
		r.PerScenario[i].ID = id
		r.index[id] = i
	}
	return r
}

// Scenario looks up a per-scenario bundle by ID.
func (r *Result) Scenario(id string) (Bundle, bool) {
	i, ok := r.index[id]
	if !ok {
		return Bundle{}, false
	}
	return r.PerScenario[i].Bundle, true
}

// WeightedFields returns the weighted fields plus the risk layer when present.
func (r *Result) WeightedFields() []NamedField {
	fields := r.Weighted.Fields()
	if r.RiskLayer != nil {
		fields = append(fields, NamedField{KeyRiskLayer, r.RiskLayer})
	}
	return fields
}
