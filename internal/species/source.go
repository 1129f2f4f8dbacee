// Package species interpolates species occurrence and density layers onto the
// run grid and accumulates them where the acoustic threshold is exceeded.
package species

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/seatkit/paracousti/internal/errors"
	"github.com/seatkit/paracousti/internal/grid"
	"github.com/seatkit/paracousti/internal/logger"
)

// GetLogger returns the species module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("species")
}

// Variable names the species quantity read from a source.
type Variable string

const (
	Percent Variable = "percent"
	Density Variable = "density"
	// Risk is the column or variable of a secondary constraint layer.
	Risk Variable = "risk"
)

// Raster is a gridded layer on 1-D axes. Values has len(Y) rows and len(X) columns.
type Raster struct {
	X      []float64
	Y      []float64
	Values *mat.Dense
}

// RasterReader reads variable v from a raster file.
type RasterReader func(path string, v Variable) (*Raster, error)

var (
	readersMu     sync.RWMutex
	rasterReaders = map[string]RasterReader{
		".nc": ReadNetCDFRaster,
	}
)

// RegisterRasterReader installs a reader for a file extension such as ".tif".
func RegisterRasterReader(ext string, r RasterReader) {
	readersMu.Lock()
	defer readersMu.Unlock()
	rasterReaders[strings.ToLower(ext)] = r
}

func rasterReader(ext string) (RasterReader, bool) {
	readersMu.RLock()
	defer readersMu.RUnlock()
	r, ok := rasterReaders[strings.ToLower(ext)]
	return r, ok
}

// Points is a scattered sample set.
type Points struct {
	X, Y, Values []float64
}

// Load reads a species source as scattered points. CSV files are point
// sources; any extension with a registered raster reader is read as a
// raster with negative values clamped to zero. Longitudes are wrapped into
// [0, 360) when angular is set.
func Load(path string, v Variable, angular bool) (*Points, error) {
	ext := strings.ToLower(filepath.Ext(path))

	var pts *Points
	if ext == ".csv" {
		var err error
		if pts, err = ReadCSV(path, v); err != nil {
			return nil, err
		}
	} else {
		read, ok := rasterReader(ext)
		if !ok {
			return nil, errors.Newf("species file %s must be .csv or a registered raster type", filepath.Base(path)).
				Component("species").
				Category(errors.CategoryUnsupportedFormat).
				FileContext(path).
				Build()
		}
		r, err := read(path, v)
		if err != nil {
			return nil, err
		}
		pts = r.points()
	}

	if angular {
		for i, x := range pts.X {
			pts.X[i] = grid.WrapLongitude(x)
		}
	}
	return pts, nil
}

func (r *Raster) points() *Points {
	rows, cols := len(r.Y), len(r.X)
	pts := &Points{
		X:      make([]float64, 0, rows*cols),
		Y:      make([]float64, 0, rows*cols),
		Values: make([]float64, 0, rows*cols),
	}
	for i := range rows {
		for j := range cols {
			pts.X = append(pts.X, r.X[j])
			pts.Y = append(pts.Y, r.Y[i])
			pts.Values = append(pts.Values, max(r.Values.At(i, j), 0))
		}
	}
	return pts
}

// ReadCSV reads a point source with latitude, longitude and v columns.
func ReadCSV(path string, v Variable) (*Points, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.MissingInputError(err, path)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, csvError(err, path)
	}
	if len(records) == 0 {
		return nil, csvError(fmt.Errorf("no header row"), path)
	}

	header := records[0]
	lat := slices.Index(header, "latitude")
	lon := slices.Index(header, "longitude")
	val := slices.Index(header, string(v))
	if lat < 0 || lon < 0 || val < 0 {
		return nil, errors.Newf("species file %s needs latitude, longitude and %s columns", filepath.Base(path), v).
			Component("species").
			Category(errors.CategoryMissingInput).
			FileContext(path).
			Build()
	}

	pts := &Points{}
	for line, rec := range records[1:] {
		var nums [3]float64
		for k, idx := range []int{lon, lat, val} {
			if idx >= len(rec) {
				return nil, csvError(fmt.Errorf("line %d is short", line+2), path)
			}
			n, err := strconv.ParseFloat(strings.TrimSpace(rec[idx]), 64)
			if err != nil {
				return nil, csvError(fmt.Errorf("line %d: %w", line+2, err), path)
			}
			nums[k] = n
		}
		pts.X = append(pts.X, nums[0])
		pts.Y = append(pts.Y, nums[1])
		pts.Values = append(pts.Values, nums[2])
	}

	GetLogger().Debug("read species points",
		logger.String("file", filepath.Base(path)),
		logger.Int("points", len(pts.X)),
		logger.Float64("spacing", grid.EstimateSpacing(pts.X, pts.Y)))
	return pts, nil
}

func csvError(err error, path string) error {
	return errors.New(err).
		Component("species").
		Category(errors.CategoryFileParsing).
		FileContext(path).
		Build()
}
