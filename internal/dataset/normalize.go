package dataset

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// MinStd floors the standard deviation so constant columns map to 0
// instead of NaN.
const MinStd = 1e-8

// Normalizer holds per-column statistics fitted on training data.
// The zero value is not fitted.
type Normalizer struct {
	Mean []float64
	Std  []float64
}

// Fit computes column means and population standard deviations of x.
func Fit(x *mat.Dense) (Normalizer, error) {
	if x == nil || x.IsEmpty() {
		return Normalizer{}, fmt.Errorf("%w: cannot fit on an empty matrix", ErrShapeMismatch)
	}
	rows, cols := x.Dims()
	n := Normalizer{
		Mean: make([]float64, cols),
		Std:  make([]float64, cols),
	}
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, x)
		mean, std := stat.PopMeanStdDev(col, nil)
		n.Mean[j] = mean
		n.Std[j] = max(std, MinStd)
	}
	return n, nil
}

// Fitted reports whether the statistics are populated.
func (n Normalizer) Fitted() bool {
	return len(n.Mean) > 0 && len(n.Mean) == len(n.Std)
}

// Apply returns (x - mean) / std as a new matrix. x is not modified.
func (n Normalizer) Apply(x *mat.Dense) (*mat.Dense, error) {
	if !n.Fitted() {
		return nil, ErrStatisticsNotInitialized
	}
	if x == nil || x.IsEmpty() {
		return nil, fmt.Errorf("%w: empty feature matrix", ErrShapeMismatch)
	}
	rows, cols := x.Dims()
	if cols != len(n.Mean) {
		return nil, fmt.Errorf("%w: matrix has %d columns, statistics have %d", ErrFeatureIndex, cols, len(n.Mean))
	}

	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		src, dst := x.RawRowView(i), out.RawRowView(i)
		for j, v := range src {
			dst[j] = (v - n.Mean[j]) / n.Std[j]
		}
	}
	return out, nil
}

// ApplyRow normalizes a single sample in place.
func (n Normalizer) ApplyRow(row []float64) error {
	if !n.Fitted() {
		return ErrStatisticsNotInitialized
	}
	if len(row) != len(n.Mean) {
		return fmt.Errorf("%w: row has %d values, statistics have %d", ErrFeatureIndex, len(row), len(n.Mean))
	}
	for j := range row {
		row[j] = (row[j] - n.Mean[j]) / n.Std[j]
	}
	return nil
}
