// Package evaluator computes regression metrics on held-out predictions
// and writes the evaluation report.
package evaluator

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/FlavioCFOliveira/housenet/internal/config"
)

var (
	// ErrLengthMismatch is returned when true and predicted vectors differ
	// in length.
	ErrLengthMismatch = errors.New("length mismatch")
	// ErrEmptyInput is returned for empty vectors.
	ErrEmptyInput = errors.New("empty input")
)

// mapeEpsilon floors |y_true| in the MAPE denominator so zero targets give
// a large finite error instead of +Inf.
const mapeEpsilon = 2.220446049250313e-16

// Report holds the final regression metrics. MAPE is a fraction.
type Report struct {
	MAE  float64
	MAPE float64
	RMSE float64
	R2   float64
}

// String renders the report in its on-disk format.
func (r Report) String() string {
	var b strings.Builder
	b.WriteString("Evaluation Results:\n")
	fmt.Fprintf(&b, "Mean Absolute Error (MAE): %s\n", formatFloat(r.MAE))
	fmt.Fprintf(&b, "Mean Absolute Percentage Error (MAPE): %.2f%%\n", r.MAPE*100)
	fmt.Fprintf(&b, "Root Mean Squared Error (RMSE): %s\n", formatFloat(r.RMSE))
	fmt.Fprintf(&b, "R-squared (R^2): %s\n", formatFloat(r.R2))
	return b.String()
}

// Evaluate computes MAE, MAPE, RMSE and R² of yPred against yTrue.
// Lengths are checked before anything is computed.
func Evaluate(yTrue, yPred []float64) (Report, error) {
	if len(yTrue) != len(yPred) {
		return Report{}, fmt.Errorf("%w: y_true has %d values, y_pred has %d", ErrLengthMismatch, len(yTrue), len(yPred))
	}
	if len(yTrue) == 0 {
		return Report{}, ErrEmptyInput
	}
	n := float64(len(yTrue))

	var mape float64
	for i, y := range yTrue {
		mape += math.Abs(y-yPred[i]) / math.Max(math.Abs(y), mapeEpsilon)
	}

	return Report{
		MAE:  floats.Distance(yTrue, yPred, 1) / n,
		MAPE: mape / n,
		RMSE: floats.Distance(yTrue, yPred, 2) / math.Sqrt(n),
		R2:   rSquared(yTrue, yPred),
	}, nil
}

// rSquared is 1 - SS_res/SS_tot. A constant target scores 1 when it is
// predicted exactly and 0 otherwise.
func rSquared(yTrue, yPred []float64) float64 {
	if stat.Variance(yTrue, nil) == 0 || len(yTrue) < 2 {
		if floats.Equal(yTrue, yPred) {
			return 1
		}
		return 0
	}
	return stat.RSquaredFrom(yPred, yTrue, nil)
}

// EvaluateModel evaluates the predictions and writes the report to
// cfg.Output.EvaluationPath.
func EvaluateModel(yTrue, yPred []float64, cfg config.Config, log logrus.FieldLogger) (Report, error) {
	if log == nil {
		log = logrus.New()
	}
	report, err := Evaluate(yTrue, yPred)
	if err != nil {
		return Report{}, err
	}

	path := cfg.Output.EvaluationPath
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return report, fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(report.String()), 0o644); err != nil {
		return report, fmt.Errorf("failed to write evaluation report: %w", err)
	}

	log.WithFields(logrus.Fields{
		"mae":  report.MAE,
		"mape": report.MAPE,
		"rmse": report.RMSE,
		"r2":   report.R2,
	}).Infof("Evaluation results saved at %s", path)
	return report, nil
}

// formatFloat prints the shortest representation that round-trips,
// always with a decimal point or exponent.
func formatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	if abs := math.Abs(v); v != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
