package stressor

import (
	"gonum.org/v1/gonum/mat"

	"github.com/seatkit/paracousti/internal/acoustic"
	"github.com/seatkit/paracousti/internal/species"
)

// SingleInput is one scenario on the run grid. Percent and Density are the
// area-scaled species layers, or nil when the run has none.
type SingleInput struct {
	Device   *mat.Dense
	Baseline *mat.Dense
	Percent  *mat.Dense
	Density  *mat.Dense
}

// EvaluateSingle computes the unweighted bundle of one scenario. SEL fields
// are extended to a fixed exposure of hours; SPL fields are used as given.
// Exceeded is 100 where the device field is above threshold and 0 elsewhere,
// and the species layers are zeroed outside that mask.
func EvaluateSingle(in SingleInput, metric acoustic.Metric, threshold, hours float64) Bundle {
	var device, baseline *mat.Dense
	if metric == acoustic.SEL {
		seconds := hours * 60 * 60
		device = acoustic.CumulativeSEL(in.Device, seconds)
		baseline = acoustic.CumulativeSEL(in.Baseline, seconds)
	} else {
		device = mat.DenseCopyOf(in.Device)
		baseline = mat.DenseCopyOf(in.Baseline)
	}

	var stressor mat.Dense
	stressor.Sub(device, baseline)

	rows, cols := device.Dims()
	mask := acoustic.ExceedanceMask(device, threshold)
	b := Bundle{
		Baseline: baseline,
		Device:   device,
		Stressor: &stressor,
		Exceeded: acoustic.Indicator(mask, rows, cols),
	}
	if in.Percent != nil {
		b.Percent = species.Masked(mask, in.Percent)
	}
	if in.Density != nil {
		b.Density = species.Masked(mask, in.Density)
	}
	return b
}
