package pipeline

import (
	"encoding/csv"
	"errors"
	"os"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/housenet/internal/config"
	"github.com/FlavioCFOliveira/housenet/internal/dataset"
	"github.com/FlavioCFOliveira/housenet/internal/net"
	"github.com/FlavioCFOliveira/housenet/internal/opt"
)

func smallConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default().WithOutputDir(t.TempDir())
	cfg.HiddenLayers = []int{4, 2}
	cfg.Epochs = 5
	cfg.BatchSize = 16
	cfg.Patience = 2
	cfg.Dataset.Source = config.SourceSynthetic
	cfg.Dataset.SyntheticRows = 100
	return cfg
}

func TestRunEndToEnd(t *testing.T) {
	cfg := smallConfig(t)
	log, _ := test.NewNullLogger()

	res, err := Run(cfg, dataset.SyntheticSource{Rows: 100, Seed: 7}, log)
	require.NoError(t, err)
	assert.NotEmpty(t, res.RunID)

	// history: <= epochs rows, 4 columns
	f, err := os.Open(cfg.Output.HistoryCSVPath)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, records)
	assert.ElementsMatch(t, []string{"loss", "val_loss", "mae", "val_mae"}, records[0])
	assert.LessOrEqual(t, len(records)-1, cfg.Epochs)
	for _, row := range records[1:] {
		assert.Len(t, row, 4)
	}

	// report: all four metric lines
	report, err := os.ReadFile(cfg.Output.EvaluationPath)
	require.NoError(t, err)
	for _, prefix := range []string{"Mean Absolute Error (MAE)", "Mean Absolute Percentage Error (MAPE)", "Root Mean Squared Error (RMSE)", "R-squared (R^2)"} {
		assert.Contains(t, string(report), prefix+": ")
	}

	for _, path := range []string{cfg.Output.PlotPath, cfg.Output.PredictionPlotPath, cfg.Output.ErrorPlotPath, cfg.Output.MetricsPath} {
		assert.FileExists(t, path)
	}

	// model reloads and predicts one value per validation row
	network, info, err := net.Load(cfg.Output.ModelPath)
	require.NoError(t, err)
	assert.Equal(t, res.RunID, info.RunID)
	assert.Equal(t, net.CodecZstd, info.Codec)

	valX, valY := validationSplit(t, cfg, res)
	preds, err := network.PredictMatrix(valX)
	require.NoError(t, err)
	assert.Len(t, preds, len(valY))
	assert.Equal(t, res.Predictions, preds)
}

// validationSplit rebuilds the normalized validation matrix the run used.
func validationSplit(t *testing.T, cfg config.Config, res *Result) (*mat.Dense, []float64) {
	t.Helper()
	log, _ := test.NewNullLogger()
	_, val, err := dataset.NewLoader(cfg, dataset.SyntheticSource{Rows: 100, Seed: 7}, log).LoadData()
	require.NoError(t, err)
	x, err := dataset.AddFeatures(val.X)
	require.NoError(t, err)
	x, err = res.Normalizer.Apply(x)
	require.NoError(t, err)
	require.Equal(t, res.Targets, val.Y)
	return x, val.Y
}

func TestPredictorUsesSavedStatistics(t *testing.T) {
	cfg := smallConfig(t)
	log, _ := test.NewNullLogger()
	source := dataset.SyntheticSource{Rows: 100, Seed: 3}

	res, err := Run(cfg, source, log)
	require.NoError(t, err)

	p, err := LoadPredictor(cfg.Output.ModelPath)
	require.NoError(t, err)
	assert.Equal(t, res.Normalizer, p.Normalizer)
	assert.Equal(t, 8, p.RawFeatures())

	_, val, err := dataset.NewLoader(cfg, source, log).LoadData()
	require.NoError(t, err)
	preds, err := p.Predict(val.X)
	require.NoError(t, err)
	assert.InDeltaSlice(t, res.Predictions, preds, 1e-12)

	_, err = p.Predict(mat.NewDense(2, 7, nil))
	assert.ErrorIs(t, err, dataset.ErrFeatureIndex)
}

func TestRunUnsupportedOptimizerAbortsBeforeLoading(t *testing.T) {
	cfg := smallConfig(t)
	cfg.Optimizer = "rmsprop"
	log, _ := test.NewNullLogger()

	res, err := Run(cfg, failingSource{}, log)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, opt.ErrUnsupportedOptimizer)

	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, StageConfig, stageErr.Stage)
	assert.Contains(t, err.Error(), "rmsprop")
	assert.NoFileExists(t, cfg.Output.ModelPath)
}

func TestRunStageErrors(t *testing.T) {
	log, _ := test.NewNullLogger()

	t.Run("load", func(t *testing.T) {
		_, err := Run(smallConfig(t), failingSource{}, log)
		var stageErr *StageError
		require.True(t, errors.As(err, &stageErr))
		assert.Equal(t, StageLoad, stageErr.Stage)
		assert.ErrorIs(t, err, dataset.ErrDataUnavailable)
	})

	t.Run("features", func(t *testing.T) {
		_, err := Run(smallConfig(t), narrowSource{}, log)
		var stageErr *StageError
		require.True(t, errors.As(err, &stageErr))
		assert.Equal(t, StageFeatures, stageErr.Stage)
		assert.ErrorIs(t, err, dataset.ErrFeatureIndex)
	})

	t.Run("codec", func(t *testing.T) {
		cfg := smallConfig(t)
		cfg.Output.ModelCodec = "brotli"
		_, err := Run(cfg, dataset.SyntheticSource{Rows: 100}, log)
		var stageErr *StageError
		require.True(t, errors.As(err, &stageErr))
		assert.Equal(t, StageConfig, stageErr.Stage)
	})
}

func TestRunAbortsOnArtifactWriteFailure(t *testing.T) {
	log, _ := test.NewNullLogger()
	tests := []struct {
		stage string
		path  func(config.Config) string
	}{
		{StageHistory, func(c config.Config) string { return c.Output.HistoryCSVPath }},
		{StagePlot, func(c config.Config) string { return c.Output.PlotPath }},
		{StagePredictionPlot, func(c config.Config) string { return c.Output.PredictionPlotPath }},
		{StageMetrics, func(c config.Config) string { return c.Output.MetricsPath }},
	}
	for _, tt := range tests {
		t.Run(tt.stage, func(t *testing.T) {
			cfg := smallConfig(t)
			// a directory where the artifact should go makes the write fail
			require.NoError(t, os.MkdirAll(tt.path(cfg), 0o755))

			res, err := Run(cfg, dataset.SyntheticSource{Rows: 100, Seed: 1}, log)
			require.Error(t, err)
			assert.Nil(t, res)

			var stageErr *StageError
			require.True(t, errors.As(err, &stageErr))
			assert.Equal(t, tt.stage, stageErr.Stage)
		})
	}
}

type failingSource struct{}

func (failingSource) Load() (*mat.Dense, []float64, error) {
	return nil, nil, errors.New("connection refused")
}

type narrowSource struct{}

func (narrowSource) Load() (*mat.Dense, []float64, error) {
	x := mat.NewDense(20, 4, nil)
	y := make([]float64, 20)
	for i := range y {
		x.Set(i, 0, float64(i))
		y[i] = float64(i)
	}
	return x, y, nil
}
