package paracousti

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/seatkit/paracousti/internal/errors"
	"github.com/seatkit/paracousti/internal/ncutil"
)

// auxiliaryVariables are coordinate and spectral variables that are never a
// selectable metric.
var auxiliaryVariables = []string{"octSPL", "XCOR", "YCOR", "ZCOR", "Hw", "Fc", "press_muPa"}

const weightedSuffix = "_weighted"

// Metrics lists what a scenario file offers.
type Metrics struct {
	// Weightings always starts with "None", followed by the weighting
	// prefixes of the weighted variables in sorted order.
	Weightings []string
	// Unweighted holds the remaining variable names in file order.
	Unweighted []string
	// Weighted holds the weighted metric names with the weighting prefix
	// removed, sorted and deduplicated.
	Weighted []string
}

// DiscoverMetrics inspects the variables of a scenario file.
func DiscoverMetrics(path string) (Metrics, error) {
	f, nc, err := ncutil.Open(path)
	if err != nil {
		return Metrics{}, err
	}
	defer f.Close()
	return classify(nc.Header.Variables()), nil
}

func classify(vars []string) Metrics {
	m := Metrics{Weightings: []string{NoWeighting}}
	var weightings, weighted []string
	for _, v := range vars {
		if slices.Contains(auxiliaryVariables, v) {
			continue
		}
		if !strings.HasSuffix(v, weightedSuffix) {
			m.Unweighted = append(m.Unweighted, v)
			continue
		}
		prefix, rest, found := strings.Cut(v, "_")
		weightings = append(weightings, prefix)
		if found {
			weighted = append(weighted, rest)
		}
	}
	slices.Sort(weightings)
	slices.Sort(weighted)
	m.Weightings = append(m.Weightings, slices.Compact(weightings)...)
	m.Weighted = slices.Compact(weighted)
	return m
}

// ListFiles returns the scenario files in dir sorted by name.
func ListFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.New(err).
			Component("paracousti").
			Category(errors.CategoryMissingInput).
			Context("directory", filepath.Base(dir)).
			Build()
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), Extension) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}
