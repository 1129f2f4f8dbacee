package report

import (
	"bufio"
	"encoding/csv"
	"os"
	"strconv"

	"github.com/seatkit/paracousti/internal/errors"
)

// Table is a set of equally long named columns.
type Table struct {
	Headers []string
	Columns [][]float64
}

// Table lays the bins out as "bin start", "bin end", "bin center", "count",
// "Area" and "Area percent" columns.
func (b Bins) Table() Table {
	return Table{
		Headers: []string{"bin start", "bin end", "bin center", "count", "Area", "Area percent"},
		Columns: [][]float64{b.Start, b.End, b.Center, b.Count, b.Area, b.AreaPercent},
	}
}

// Table lays out one area and one area percent column per receptor value.
func (r ReceptorBins) Table() Table {
	t := Table{
		Headers: []string{"bin start", "bin end", "bin center"},
		Columns: [][]float64{r.Start, r.End, r.Center},
	}
	for _, rec := range r.Receptors {
		label := ReceptorLabel(rec.Value)
		t.Headers = append(t.Headers, "Area, receptor value "+label, "Area percent, receptor value "+label)
		t.Columns = append(t.Columns, rec.Area, rec.Percent)
	}
	return t
}

// Column returns the column with the given header.
func (t Table) Column(header string) ([]float64, bool) {
	for i, h := range t.Headers {
		if h == header {
			return t.Columns[i], true
		}
	}
	return nil, false
}

// WriteCSV writes t to path with a header row.
func (t Table) WriteCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return csvError(err, path)
	}
	bw := bufio.NewWriter(f)
	w := csv.NewWriter(bw)

	werr := func() error {
		if err := w.Write(t.Headers); err != nil {
			return err
		}
		rows := 0
		if len(t.Columns) > 0 {
			rows = len(t.Columns[0])
		}
		record := make([]string, len(t.Columns))
		for i := range rows {
			for j, col := range t.Columns {
				record[j] = strconv.FormatFloat(col[i], 'g', -1, 64)
			}
			if err := w.Write(record); err != nil {
				return err
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return err
		}
		return bw.Flush()
	}()
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return csvError(werr, path)
	}
	return nil
}

func csvError(err error, path string) error {
	return errors.New(err).
		Component("report").
		Category(errors.CategoryFileIO).
		FileContext(path).
		Build()
}
