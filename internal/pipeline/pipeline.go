// Package pipeline wires loading, feature engineering, normalization,
// model construction, training, evaluation and persistence into one run.
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/FlavioCFOliveira/housenet/internal/builder"
	"github.com/FlavioCFOliveira/housenet/internal/config"
	"github.com/FlavioCFOliveira/housenet/internal/dataset"
	"github.com/FlavioCFOliveira/housenet/internal/evaluator"
	"github.com/FlavioCFOliveira/housenet/internal/net"
	"github.com/FlavioCFOliveira/housenet/internal/trainer"
)

// Stage names reported in StageError.
const (
	StageConfig         = "config"
	StageLoad           = "load"
	StageFeatures       = "features"
	StageNormalize      = "normalize"
	StageBuild          = "build"
	StageTrain          = "train"
	StageHistory        = "history"
	StagePlot           = "plot"
	StagePredict        = "predict"
	StageEvaluate       = "evaluate"
	StagePredictionPlot = "prediction_plot"
	StageSaveModel      = "save_model"
	StageMetrics        = "metrics"
)

// Snapshot metadata keys.
const (
	MetaFeatureMean = "feature_mean"
	MetaFeatureStd  = "feature_std"
	MetaRawFeatures = "raw_features"
)

// StageError is a failure that aborted the run.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Result collects what a successful run produced.
type Result struct {
	RunID       string
	Network     *net.Network
	Normalizer  dataset.Normalizer
	History     *net.History
	Report      evaluator.Report
	Predictions []float64
	Targets     []float64
	BestEpoch   int
	Stopped     bool
}

type runner struct {
	cfg    config.Config
	log    logrus.FieldLogger
	result *Result
}

// abort wraps err as a StageError.
func (r *runner) abort(stage string, err error) error {
	r.log.WithField("stage", stage).WithError(err).Error("stage failed")
	return &StageError{Stage: stage, Err: err}
}

// Run executes the full pipeline against source. The first failing stage
// aborts the run with a *StageError. Saving or plotting history before
// training is not a failure: the trainer logs a warning and skips it.
func Run(cfg config.Config, source dataset.Source, log logrus.FieldLogger) (*Result, error) {
	if log == nil {
		log = logrus.New()
	}
	runID := uuid.NewString()
	log = log.WithField("run_id", runID)
	r := &runner{cfg: cfg, log: log, result: &Result{RunID: runID}}

	if err := cfg.Validate(); err != nil {
		return nil, r.abort(StageConfig, err)
	}
	codec, err := net.ParseCodec(cfg.Output.ModelCodec)
	if err != nil {
		return nil, r.abort(StageConfig, err)
	}
	modelBuilder := builder.New(cfg.HiddenLayers, cfg.Activation, cfg.Optimizer, cfg.LearningRate).WithSeed(cfg.Seed)
	if _, err := modelBuilder.Optimizer(); err != nil {
		return nil, r.abort(StageConfig, err)
	}

	train, validate, err := dataset.NewLoader(cfg, source, log).LoadData()
	if err != nil {
		return nil, r.abort(StageLoad, err)
	}
	_, rawFeatures := train.X.Dims()

	if train.X, err = dataset.AddFeatures(train.X); err != nil {
		return nil, r.abort(StageFeatures, err)
	}
	if validate.X, err = dataset.AddFeatures(validate.X); err != nil {
		return nil, r.abort(StageFeatures, err)
	}

	normalizer, err := dataset.Fit(train.X)
	if err != nil {
		return nil, r.abort(StageNormalize, err)
	}
	if train.X, err = normalizer.Apply(train.X); err != nil {
		return nil, r.abort(StageNormalize, err)
	}
	if validate.X, err = normalizer.Apply(validate.X); err != nil {
		return nil, r.abort(StageNormalize, err)
	}
	r.result.Normalizer = normalizer

	_, inputDim := train.X.Dims()
	network, err := modelBuilder.Build(inputDim)
	if err != nil {
		return nil, r.abort(StageBuild, err)
	}
	log.Debug("\n" + network.Summary())

	tr := trainer.New(network, cfg, log).WithRunID(runID)
	if err := tr.Train(train.X, train.Y, validate.X, validate.Y); err != nil {
		return nil, r.abort(StageTrain, err)
	}
	r.result.Network = network
	r.result.History, _ = tr.History()
	_, r.result.BestEpoch = tr.EarlyStopping().Best()
	r.result.Stopped = tr.EarlyStopping().StopTraining()

	if err := tr.SaveTrainingHistory(); err != nil {
		return nil, r.abort(StageHistory, err)
	}
	if err := tr.PlotTrainingHistory(); err != nil {
		return nil, r.abort(StagePlot, err)
	}

	preds, err := network.PredictMatrix(validate.X)
	if err != nil {
		return nil, r.abort(StagePredict, err)
	}
	r.result.Predictions = preds
	r.result.Targets = validate.Y

	report, err := evaluator.EvaluateModel(validate.Y, preds, cfg, log)
	if err != nil {
		return nil, r.abort(StageEvaluate, err)
	}
	r.result.Report = report

	if path := cfg.Output.PredictionPlotPath; path != "" {
		if err := evaluator.PlotPredictions(validate.Y, preds, path); err != nil {
			return nil, r.abort(StagePredictionPlot, err)
		}
	}
	if path := cfg.Output.ErrorPlotPath; path != "" {
		if err := evaluator.PlotAbsoluteError(validate.Y, preds, path); err != nil {
			return nil, r.abort(StagePredictionPlot, err)
		}
	}

	if err := saveModel(network, cfg.Output.ModelPath, net.SaveOptions{
		Codec: codec,
		RunID: runID,
		Metadata: map[string][]float64{
			MetaFeatureMean: normalizer.Mean,
			MetaFeatureStd:  normalizer.Std,
			MetaRawFeatures: {float64(rawFeatures)},
		},
	}); err != nil {
		return nil, r.abort(StageSaveModel, err)
	}
	log.Infof("Model saved at %s", cfg.Output.ModelPath)

	if err := tr.WriteMetrics(cfg.Output.MetricsPath); err != nil {
		return nil, r.abort(StageMetrics, err)
	}
	return r.result, nil
}

func saveModel(network *net.Network, path string, opts net.SaveOptions) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}
	return network.Save(path, opts)
}
