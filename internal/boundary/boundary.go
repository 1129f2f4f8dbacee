// Package boundary loads the boundary-condition table that assigns each
// scenario file its share of the year and its species layers.
package boundary

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/seatkit/paracousti/internal/errors"
	"github.com/seatkit/paracousti/internal/logger"
)

// Column headers of the boundary-condition CSV.
const (
	ColumnFile           = "Paracousti File"
	ColumnPercent        = "% of yr"
	ColumnSpeciesPercent = "Species Percent Occurance File"
	ColumnSpeciesDensity = "Species Density File"
)

// GetLogger returns the boundary module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("boundary")
}

// Row is one scenario entry.
type Row struct {
	File               string
	Percent            float64 // share of the year after normalisation, 0–100
	SpeciesPercentFile string
	SpeciesDensityFile string
}

// Probability returns Percent as a fraction.
func (r Row) Probability() float64 {
	return r.Percent / 100
}

// Table is an ordered set of rows keyed by scenario file name.
type Table struct {
	rows  []Row
	index map[string]int
}

// Load reads and normalises the table at path.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(err).
			Component("boundary").
			Category(errors.CategoryMissingInput).
			FileContext(path).
			Context("operation", "open_boundary_conditions").
			Build()
	}
	defer f.Close()

	t, err := Parse(f)
	if err != nil {
		return nil, err
	}
	GetLogger().Debug("loaded boundary conditions",
		logger.String("path", path),
		logger.Int("rows", t.Len()))
	return t, nil
}

// Parse reads a boundary-condition CSV. Empty numeric cells count as 0 and
// columns other than the four known ones are ignored.
func Parse(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, parseError(err, 0)
	}
	if len(records) == 0 {
		return nil, errors.Newf("boundary condition table is empty").
			Component("boundary").
			Category(errors.CategoryMissingInput).
			Build()
	}

	cols := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, required := range []string{ColumnFile, ColumnPercent} {
		if _, ok := cols[required]; !ok {
			return nil, errors.Newf("boundary condition table has no %q column", required).
				Component("boundary").
				Category(errors.CategoryMissingInput).
				Context("column", required).
				Build()
		}
	}

	field := func(record []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	rows := make([]Row, 0, len(records)-1)
	for line, record := range records[1:] {
		file := field(record, ColumnFile)
		if file == "" {
			continue
		}
		var percent float64
		if s := field(record, ColumnPercent); s != "" {
			percent, err = strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, parseError(err, line+2)
			}
		}
		rows = append(rows, Row{
			File:               file,
			Percent:            percent,
			SpeciesPercentFile: field(record, ColumnSpeciesPercent),
			SpeciesDensityFile: field(record, ColumnSpeciesDensity),
		})
	}
	return New(rows)
}

// New builds a table from rows, re-normalising Percent so the column sums to 100.
func New(rows []Row) (*Table, error) {
	t := &Table{
		rows:  make([]Row, len(rows)),
		index: make(map[string]int, len(rows)),
	}

	var total float64
	for i, r := range rows {
		if r.Percent < 0 {
			return nil, errors.Newf("scenario %s has a negative share of the year (%g)", r.File, r.Percent).
				Component("boundary").
				Category(errors.CategoryValidation).
				Build()
		}
		if _, dup := t.index[r.File]; dup {
			return nil, errors.Newf("scenario %s is listed more than once", r.File).
				Component("boundary").
				Category(errors.CategoryValidation).
				Build()
		}
		t.index[r.File] = i
		t.rows[i] = r
		total += r.Percent
	}

	if len(rows) > 0 && total <= 0 {
		return nil, errors.Newf("boundary condition weights sum to %g", total).
			Component("boundary").
			Category(errors.CategoryValidation).
			Build()
	}
	for i := range t.rows {
		t.rows[i].Percent = 100 * t.rows[i].Percent / total
	}
	return t, nil
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Rows returns a copy of the rows in file order.
func (t *Table) Rows() []Row {
	return append([]Row(nil), t.rows...)
}

// Lookup returns the row for a scenario file. Only the base name is compared.
// A scenario without a row is a missing-input error.
func (t *Table) Lookup(file string) (Row, error) {
	name := filepath.Base(file)
	i, ok := t.index[name]
	if !ok {
		return Row{}, errors.Newf("scenario %s has no row in the boundary condition table", name).
			Component("boundary").
			Category(errors.CategoryMissingInput).
			Context("scenario", name).
			Build()
	}
	return t.rows[i], nil
}

// Total returns the sum of the normalised percentages.
func (t *Table) Total() float64 {
	var sum float64
	for _, r := range t.rows {
		sum += r.Percent
	}
	return sum
}

func parseError(err error, line int) error {
	b := errors.New(err).
		Component("boundary").
		Category(errors.CategoryFileParsing)
	if line > 0 {
		b = b.Context("line", line)
	}
	return b.Build()
}
