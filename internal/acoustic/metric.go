// Package acoustic implements the decibel arithmetic of the stressor
// aggregation: depth reduction, SPL probability weighting, SEL energy-domain
// accumulation and threshold exceedance.
package acoustic

import (
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// SecondsPerDay converts a fraction of a day into an exposure duration.
const SecondsPerDay = 24 * 60 * 60

// Metric selects the arithmetic regime for a run.
type Metric int

const (
	// SPL is an instantaneous level, combined by linear probability weighting.
	SPL Metric = iota
	// SEL is an exposure level, combined in the energy domain.
	SEL
)

func (m Metric) String() string {
	switch m {
	case SPL:
		return "SPL"
	case SEL:
		return "SEL"
	default:
		return "unknown"
	}
}

// MetricFromName classifies a metric variable name: anything containing "spl"
// (case-insensitive) is SPL, everything else SEL.
func MetricFromName(name string) Metric {
	if strings.Contains(strings.ToLower(name), "spl") {
		return SPL
	}
	return SEL
}

// CumulativeSELValue converts a single-second SEL into the exposure over durationSeconds.
func CumulativeSELValue(sel, durationSeconds float64) float64 {
	return sel + 10*math.Log10(durationSeconds)
}

// CumulativeSEL applies CumulativeSELValue to every cell.
func CumulativeSEL(sel *mat.Dense, durationSeconds float64) *mat.Dense {
	var out mat.Dense
	offset := 10 * math.Log10(durationSeconds)
	out.Apply(func(_, _ int, v float64) float64 { return v + offset }, sel)
	return &out
}

// SumSELValues combines decibel values in the energy domain: 10·log10(Σ 10^(dB/10)).
func SumSELValues(dbs ...float64) float64 {
	var energy float64
	for _, db := range dbs {
		energy += toEnergy(db)
	}
	return fromEnergy(energy)
}

// SumSEL combines fields cell by cell in the energy domain. All fields must share a shape.
func SumSEL(fields ...*mat.Dense) *mat.Dense {
	if len(fields) == 0 {
		return nil
	}
	rows, cols := fields[0].Dims()
	energy := mat.NewDense(rows, cols, nil)
	for _, f := range fields {
		energy.Apply(func(i, j int, v float64) float64 { return v + toEnergy(f.At(i, j)) }, energy)
	}
	energy.Apply(func(_, _ int, v float64) float64 { return fromEnergy(v) }, energy)
	return energy
}

// toEnergy converts dB to linear µPa²·s.
func toEnergy(db float64) float64 {
	return math.Pow(10, db/10)
}

func fromEnergy(e float64) float64 {
	return 10 * math.Log10(e)
}
