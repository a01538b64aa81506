package evaluator

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FlavioCFOliveira/housenet/internal/config"
)

func TestEvaluateIdenticalVectors(t *testing.T) {
	y := []float64{1.5, 2.5, 3.25, 4, 10}
	r, err := Evaluate(y, append([]float64(nil), y...))
	require.NoError(t, err)

	assert.Equal(t, 0.0, r.MAE)
	assert.Equal(t, 0.0, r.RMSE)
	assert.Equal(t, 0.0, r.MAPE)
	assert.Equal(t, 1.0, r.R2)
}

func TestEvaluateKnownValues(t *testing.T) {
	yTrue := []float64{1, 2, 3, 4}
	yPred := []float64{2, 2, 3, 2}

	r, err := Evaluate(yTrue, yPred)
	require.NoError(t, err)

	assert.InDelta(t, 0.75, r.MAE, 1e-12)
	assert.InDelta(t, (1.0/1+2.0/4)/4, r.MAPE, 1e-12)
	assert.InDelta(t, math.Sqrt(5.0/4), r.RMSE, 1e-12)
	// SS_res = 5, SS_tot = 5
	assert.InDelta(t, 0, r.R2, 1e-12)
}

func TestEvaluateLengthMismatch(t *testing.T) {
	_, err := Evaluate(make([]float64, 5), make([]float64, 4))
	assert.ErrorIs(t, err, ErrLengthMismatch)

	_, err = Evaluate(nil, nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestEvaluateZeroTargetStaysFinite(t *testing.T) {
	r, err := Evaluate([]float64{0, 1}, []float64{0.5, 1})
	require.NoError(t, err)
	assert.False(t, math.IsInf(r.MAPE, 0))
	assert.Greater(t, r.MAPE, 1e10)
}

func TestEvaluateConstantTarget(t *testing.T) {
	r, err := Evaluate([]float64{2, 2, 2}, []float64{2, 2, 2})
	require.NoError(t, err)
	assert.Equal(t, 1.0, r.R2)

	r, err = Evaluate([]float64{2, 2, 2}, []float64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 0.0, r.R2)
}

func TestReportFormat(t *testing.T) {
	r := Report{MAE: 0.5, MAPE: 0.123456, RMSE: 2, R2: 0.875}
	want := "Evaluation Results:\n" +
		"Mean Absolute Error (MAE): 0.5\n" +
		"Mean Absolute Percentage Error (MAPE): 12.35%\n" +
		"Root Mean Squared Error (RMSE): 2.0\n" +
		"R-squared (R^2): 0.875\n"
	assert.Equal(t, want, r.String())
}

func TestFormatFloat(t *testing.T) {
	tests := map[float64]string{
		0:         "0.0",
		-3:        "-3.0",
		0.1:       "0.1",
		123456789: "123456789.0",
		1e-5:      "1e-05",
		1e20:      "1e+20",
	}
	for in, want := range tests {
		assert.Equal(t, want, formatFloat(in), "formatFloat(%v)", in)
	}
	assert.Equal(t, "nan", formatFloat(math.NaN()))
}

func TestEvaluateModelWritesReport(t *testing.T) {
	cfg := config.Default().WithOutputDir(t.TempDir())
	log, hook := test.NewNullLogger()

	_, err := EvaluateModel([]float64{1, 2, 3}, []float64{1, 2, 2.5}, cfg, log)
	require.NoError(t, err)

	data, err := os.ReadFile(cfg.Output.EvaluationPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "Evaluation Results:", lines[0])
	for i, prefix := range []string{
		"Mean Absolute Error (MAE): ",
		"Mean Absolute Percentage Error (MAPE): ",
		"Root Mean Squared Error (RMSE): ",
		"R-squared (R^2): ",
	} {
		assert.True(t, strings.HasPrefix(lines[i+1], prefix), lines[i+1])
	}
	assert.True(t, strings.HasSuffix(lines[2], "%"))

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "Evaluation results saved at "+cfg.Output.EvaluationPath, hook.LastEntry().Message)
}

func TestEvaluateModelMismatchWritesNothing(t *testing.T) {
	cfg := config.Default().WithOutputDir(t.TempDir())
	log, _ := test.NewNullLogger()

	_, err := EvaluateModel([]float64{1, 2, 3, 4, 5}, []float64{1, 2, 3, 4}, cfg, log)
	assert.ErrorIs(t, err, ErrLengthMismatch)
	assert.NoFileExists(t, cfg.Output.EvaluationPath)
}

func TestPredictionPlots(t *testing.T) {
	dir := t.TempDir()
	yTrue := []float64{1, 2, 3, 4}
	yPred := []float64{1.1, 1.8, 3.3, 3.9}

	for name, plot := range map[string]func([]float64, []float64, string) error{
		"predictions.png":    PlotPredictions,
		"absolute_error.png": PlotAbsoluteError,
	} {
		path := filepath.Join(dir, name)
		require.NoError(t, plot(yTrue, yPred, path))
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")), name)

		assert.ErrorIs(t, plot(yTrue, yPred[:2], path), ErrLengthMismatch)
	}
}
