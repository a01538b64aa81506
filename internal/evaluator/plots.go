package evaluator

import (
	"fmt"
	"math"

	"gonum.org/v1/plot/vg"

	"github.com/FlavioCFOliveira/housenet/internal/chart"
)

// PlotPredictions draws true and predicted values per sample.
func PlotPredictions(yTrue, yPred []float64, path string) error {
	if len(yTrue) != len(yPred) {
		return fmt.Errorf("%w: y_true has %d values, y_pred has %d", ErrLengthMismatch, len(yTrue), len(yPred))
	}
	return chart.Save(path, 10*vg.Inch, 5*vg.Inch, chart.Panel{
		Title:  "Predictions vs True",
		XLabel: "Sample",
		YLabel: "Value",
		Series: []chart.Series{
			{Name: "True", Values: yTrue},
			{Name: "Pred", Values: yPred},
		},
	})
}

// PlotAbsoluteError draws |y_true - y_pred| per sample.
func PlotAbsoluteError(yTrue, yPred []float64, path string) error {
	if len(yTrue) != len(yPred) {
		return fmt.Errorf("%w: y_true has %d values, y_pred has %d", ErrLengthMismatch, len(yTrue), len(yPred))
	}
	errs := make([]float64, len(yTrue))
	for i := range yTrue {
		errs[i] = math.Abs(yTrue[i] - yPred[i])
	}
	return chart.Save(path, 8*vg.Inch, 5*vg.Inch, chart.Panel{
		Title:  "Absolute Error",
		XLabel: "Sample",
		YLabel: "|y_true - y_pred|",
		Series: []chart.Series{{Name: "Absolute Error", Values: errs}},
	})
}
