// Package report bins output fields by value into area tables.
package report

import (
	"cmp"
	"math"
	"slices"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/seatkit/paracousti/internal/errors"
)

// Bins is an equal-width histogram of a field weighted by cell area.
// Bin i covers [Start[i], End[i]); the last bin also holds End.
type Bins struct {
	Start       []float64
	End         []float64
	Center      []float64
	Count       []float64
	Area        []float64
	AreaPercent []float64
}

// Len returns the number of bins.
func (b Bins) Len() int { return len(b.Start) }

// ReceptorArea is the binned area of the cells carrying one receptor value.
type ReceptorArea struct {
	Value   float64
	Area    []float64
	Percent []float64 // share of this receptor's total area per bin
}

// ReceptorBins bins a field separately for every receptor value on common edges.
type ReceptorBins struct {
	Start     []float64
	End       []float64
	Center    []float64
	Receptors []ReceptorArea
}

type sample struct {
	z, area float64
}

// BinData histograms the finite values of z into nbins equal-width bins
// spanning their range, summing area per bin. With no finite values the
// result has no bins.
func BinData(z, area []float64, nbins int) (Bins, error) {
	samples, err := collect(z, area, nbins)
	if err != nil {
		return Bins{}, err
	}
	edges := binEdges(samples, nbins)
	if edges == nil {
		return Bins{}, nil
	}
	count, binArea := histogram(samples, edges)
	b := Bins{Count: count, Area: binArea, AreaPercent: percentOf(binArea)}
	b.Start, b.End, b.Center = bounds(edges)
	return b, nil
}

// BinReceptor bins z once per distinct finite receptor value. Edges come
// from all finite values of z so the receptor tables line up.
func BinReceptor(z, receptor, area []float64, nbins int) (ReceptorBins, error) {
	if len(receptor) != len(z) {
		return ReceptorBins{}, lengthError("receptor", len(receptor), len(z))
	}
	all, err := collect(z, area, nbins)
	if err != nil {
		return ReceptorBins{}, err
	}
	edges := binEdges(all, nbins)
	if edges == nil {
		return ReceptorBins{}, nil
	}

	var out ReceptorBins
	out.Start, out.End, out.Center = bounds(edges)
	for _, value := range distinct(receptor) {
		var subset []sample
		for i, r := range receptor {
			if r == value && usable(z[i], area[i]) {
				subset = append(subset, sample{z: z[i], area: area[i]})
			}
		}
		_, binArea := histogram(subset, edges)
		out.Receptors = append(out.Receptors, ReceptorArea{
			Value:   value,
			Area:    binArea,
			Percent: percentOf(binArea),
		})
	}
	return out, nil
}

// ReceptorLabel formats a receptor value the way table headers show it.
func ReceptorLabel(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func collect(z, area []float64, nbins int) ([]sample, error) {
	if nbins <= 0 {
		return nil, errors.Newf("bin count must be positive, got %d", nbins).
			Component("report").
			Category(errors.CategoryValidation).
			Build()
	}
	if len(area) != len(z) {
		return nil, lengthError("area", len(area), len(z))
	}
	samples := make([]sample, 0, len(z))
	for i, v := range z {
		if !usable(v, area[i]) {
			continue
		}
		samples = append(samples, sample{z: v, area: area[i]})
	}
	return samples, nil
}

// usable reports whether a cell takes part in binning: a finite value with a known area.
func usable(z, area float64) bool {
	return !math.IsNaN(z) && !math.IsInf(z, 0) && !math.IsNaN(area)
}

// binEdges returns nbins+1 edges over the sample range. A constant field is
// widened by half a unit either side.
func binEdges(samples []sample, nbins int) []float64 {
	if len(samples) == 0 {
		return nil
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range samples {
		lo = math.Min(lo, s.z)
		hi = math.Max(hi, s.z)
	}
	if lo == hi {
		lo -= 0.5
		hi += 0.5
	}
	return floats.Span(make([]float64, nbins+1), lo, hi)
}

// histogram returns the sample count and the summed area per bin.
func histogram(samples []sample, edges []float64) (count, area []float64) {
	nbins := len(edges) - 1
	count = make([]float64, nbins)
	area = make([]float64, nbins)
	if len(samples) == 0 {
		return count, area
	}

	sorted := slices.Clone(samples)
	slices.SortFunc(sorted, func(a, b sample) int { return cmp.Compare(a.z, b.z) })
	xs := make([]float64, len(sorted))
	ws := make([]float64, len(sorted))
	for i, s := range sorted {
		xs[i], ws[i] = s.z, s.area
	}

	// the last bin is closed on the right
	dividers := slices.Clone(edges)
	dividers[nbins] = math.Nextafter(edges[nbins], math.Inf(1))
	stat.Histogram(count, dividers, xs, nil)
	stat.Histogram(area, dividers, xs, ws)
	return count, area
}

func bounds(edges []float64) (start, end, center []float64) {
	n := len(edges) - 1
	start = slices.Clone(edges[:n])
	end = slices.Clone(edges[1:])
	center = make([]float64, n)
	for i := range n {
		center[i] = (start[i] + end[i]) / 2
	}
	return start, end, center
}

func percentOf(v []float64) []float64 {
	out := make([]float64, len(v))
	total := floats.Sum(v)
	if total == 0 {
		return out
	}
	for i, x := range v {
		out[i] = 100 * x / total
	}
	return out
}

func distinct(v []float64) []float64 {
	var out []float64
	for _, x := range v {
		if !math.IsNaN(x) {
			out = append(out, x)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func lengthError(name string, got, want int) error {
	return errors.Newf("%s has %d values, field has %d", name, got, want).
		Component("report").
		Category(errors.CategoryShapeMismatch).
		Build()
}
