// Package dataset loads tabular (features, target) data, splits it into
// training and validation sets and prepares the feature matrices for the
// network: ratio features and z-score normalization.
package dataset

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrDataUnavailable is returned when a source cannot produce data.
	ErrDataUnavailable = errors.New("dataset unavailable")
	// ErrFeatureIndex is returned when a matrix lacks a referenced column.
	ErrFeatureIndex = errors.New("feature index out of range")
	// ErrStatisticsNotInitialized is returned when normalizing with
	// statistics that were never fitted.
	ErrStatisticsNotInitialized = errors.New("normalization statistics not initialized")
	// ErrShapeMismatch is returned when features and targets disagree.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrMalformedData is returned when a source is readable but its
	// content cannot be parsed.
	ErrMalformedData = errors.New("malformed data")
)

// Split is one (features, target) pair. Row i of X belongs to Y[i].
type Split struct {
	X *mat.Dense
	Y []float64
}

// Validate checks that the split is non-empty and rows match targets.
func (s Split) Validate() error {
	if s.X == nil || s.X.IsEmpty() {
		return fmt.Errorf("%w: empty feature matrix", ErrShapeMismatch)
	}
	rows, _ := s.X.Dims()
	if rows != len(s.Y) {
		return fmt.Errorf("%w: %d feature rows vs %d targets", ErrShapeMismatch, rows, len(s.Y))
	}
	return nil
}

// Rows returns the number of samples in the split.
func (s Split) Rows() int {
	if s.X == nil || s.X.IsEmpty() {
		return 0
	}
	rows, _ := s.X.Dims()
	return rows
}
