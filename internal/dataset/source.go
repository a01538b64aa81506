package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"strconv"

	"gonum.org/v1/gonum/mat"
)

// Source produces the raw feature matrix and target vector.
type Source interface {
	Load() (*mat.Dense, []float64, error)
}

// CSVSource reads a numeric CSV file. One column is the target and every
// other column, in order, is a feature.
type CSVSource struct {
	Path string
	// TargetColumn is zero-based; negative values count from the end.
	TargetColumn int
	HasHeader    bool
}

// Load reads the whole file.
func (s CSVSource) Load() (*mat.Dense, []float64, error) {
	file, err := os.Open(s.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	defer file.Close()

	x, y, err := ReadCSV(file, s.TargetColumn, s.HasHeader)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", s.Path, err)
	}
	return x, y, nil
}

// ReadCSV parses numeric CSV records from r and splits off the target
// column.
func ReadCSV(r io.Reader, targetColumn int, hasHeader bool) (*mat.Dense, []float64, error) {
	all, err := ReadFeatures(r, hasHeader)
	if err != nil {
		return nil, nil, err
	}
	rows, numCols := all.Dims()
	if numCols < 2 {
		return nil, nil, fmt.Errorf("%w: need a target and at least one feature, got %d columns", ErrFeatureIndex, numCols)
	}
	target := targetColumn
	if target < 0 {
		target += numCols
	}
	if target < 0 || target >= numCols {
		return nil, nil, fmt.Errorf("%w: target column %d with %d columns", ErrFeatureIndex, targetColumn, numCols)
	}

	x := mat.NewDense(rows, numCols-1, nil)
	y := make([]float64, rows)
	for i := 0; i < rows; i++ {
		src, dst := all.RawRowView(i), x.RawRowView(i)
		y[i] = src[target]
		copy(dst, src[:target])
		copy(dst[target:], src[target+1:])
	}
	return x, y, nil
}

// ReadFeatures parses numeric CSV records from r into a matrix with one
// column per field.
func ReadFeatures(r io.Reader, hasHeader bool) (*mat.Dense, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return nil, fmt.Errorf("%w: %v", ErrMalformedData, err)
		}
		return nil, fmt.Errorf("%w: failed to read csv: %v", ErrDataUnavailable, err)
	}

	startRow := 0
	if hasHeader {
		startRow = 1
	}
	if len(records) <= startRow {
		return nil, fmt.Errorf("%w: csv file has no data rows", ErrDataUnavailable)
	}

	numCols := len(records[startRow])
	x := mat.NewDense(len(records)-startRow, numCols, nil)
	for i := startRow; i < len(records); i++ {
		record := records[i]
		if len(record) != numCols {
			return nil, fmt.Errorf("%w: inconsistent number of columns at row %d", ErrShapeMismatch, i)
		}
		row := x.RawRowView(i - startRow)
		for j, valStr := range record {
			val, err := strconv.ParseFloat(valStr, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: value at row %d, col %d: %v", ErrMalformedData, i, j, err)
			}
			row[j] = val
		}
	}
	return x, nil
}

// SyntheticColumns is the feature layout produced by SyntheticSource.
var SyntheticColumns = []string{
	"longitude",
	"latitude",
	"housing_median_age",
	"total_rooms",
	"total_bedrooms",
	"population",
	"households",
	"median_income",
}

// SyntheticSource generates housing-like rows from a seeded RNG. The
// target is median house value in units of 100k and is always positive.
type SyntheticSource struct {
	Rows int
	Seed int64
}

// Load generates Rows samples. The same seed yields the same data.
func (s SyntheticSource) Load() (*mat.Dense, []float64, error) {
	if s.Rows <= 0 {
		return nil, nil, fmt.Errorf("%w: synthetic source needs a positive row count, got %d", ErrDataUnavailable, s.Rows)
	}
	rng := rand.New(rand.NewSource(s.Seed))

	x := mat.NewDense(s.Rows, len(SyntheticColumns), nil)
	y := make([]float64, s.Rows)
	for i := 0; i < s.Rows; i++ {
		lon := -124 + rng.Float64()*10
		lat := 32.5 + rng.Float64()*9.5
		age := 1 + math.Floor(rng.Float64()*51)
		households := 50 + math.Floor(rng.ExpFloat64()*450)
		rooms := households * (3 + rng.Float64()*4)
		bedrooms := rooms * (0.15 + rng.Float64()*0.1)
		population := households * (1.5 + rng.Float64()*2.5)
		income := 0.5 + rng.ExpFloat64()*3.5

		x.SetRow(i, []float64{lon, lat, age, rooms, bedrooms, population, households, income})

		value := 0.4 + 0.42*income + 0.004*age + 0.3*(rooms/households-5)/2 - 0.05*(population/households-2.75) +
			0.25*math.Exp(-math.Abs(lon+122)) + rng.NormFloat64()*0.1
		y[i] = math.Max(value, 0.15)
	}
	return x, y, nil
}
