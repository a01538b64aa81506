package dataset

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ratioFeatures lists the (numerator, denominator) column pairs appended by
// AddFeatures, in order. With the California housing layout these are
// population per bedroom, rooms per person and age per room.
var ratioFeatures = [][2]int{
	{5, 4},
	{3, 5},
	{2, 3},
}

// MinFeatureColumns is the smallest input AddFeatures accepts.
const MinFeatureColumns = 6

// AddFeatures returns a new matrix with one ratio column appended per
// entry of ratioFeatures. A zero denominator yields 0. x is not modified.
func AddFeatures(x *mat.Dense) (*mat.Dense, error) {
	if x == nil || x.IsEmpty() {
		return nil, fmt.Errorf("%w: empty feature matrix", ErrFeatureIndex)
	}
	rows, cols := x.Dims()
	if cols < MinFeatureColumns {
		return nil, fmt.Errorf("%w: ratio features need at least %d columns, got %d", ErrFeatureIndex, MinFeatureColumns, cols)
	}

	extra := mat.NewDense(rows, len(ratioFeatures), nil)
	for i := 0; i < rows; i++ {
		row := x.RawRowView(i)
		for k, pair := range ratioFeatures {
			if den := row[pair[1]]; den != 0 {
				extra.Set(i, k, row[pair[0]]/den)
			}
		}
	}

	out := mat.NewDense(rows, cols+len(ratioFeatures), nil)
	out.Augment(x, extra)
	return out, nil
}
