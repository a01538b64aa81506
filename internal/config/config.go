// Package config holds the hyperparameters and artifact paths of a
// training run.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml"
	"github.com/sirupsen/logrus"
)

// ErrInvalidConfig is returned by Validate and Load.
var ErrInvalidConfig = errors.New("invalid configuration")

// Dataset sources.
const (
	SourceCSV       = "csv"
	SourceSynthetic = "synthetic"
)

type Config struct {
	HiddenLayers    []int   `toml:"hidden_layers"`
	Activation      string  `toml:"activation"`
	Optimizer       string  `toml:"optimizer"`
	LearningRate    float64 `toml:"learning_rate"`
	Epochs          int     `toml:"epochs"`
	BatchSize       int     `toml:"batch_size"`
	Patience        int     `toml:"patience"`
	ValidationSplit float64 `toml:"validation_split"`
	Seed            int64   `toml:"seed"`
	LogLevel        string  `toml:"log_level"`

	Dataset DatasetConfig `toml:"dataset"`
	Output  OutputConfig  `toml:"output"`
}

type DatasetConfig struct {
	Source string `toml:"source"`
	Path   string `toml:"path"`
	// TargetColumn is the zero-based column holding the target.
	// A negative value counts from the end.
	TargetColumn  int  `toml:"target_column"`
	HasHeader     bool `toml:"has_header"`
	SyntheticRows int  `toml:"synthetic_rows"`
}

type OutputConfig struct {
	Dir                string `toml:"dir"`
	ModelPath          string `toml:"model_path"`
	ModelCodec         string `toml:"model_codec"`
	HistoryCSVPath     string `toml:"history_csv_path"`
	PlotPath           string `toml:"plot_path"`
	PredictionPlotPath string `toml:"prediction_plot_path"`
	ErrorPlotPath      string `toml:"error_plot_path"`
	EvaluationPath     string `toml:"evaluation_path"`
	MetricsPath        string `toml:"metrics_path"`
}

// Default returns the compiled-in configuration.
func Default() Config {
	return Config{
		HiddenLayers:    []int{128, 64, 32},
		Activation:      "relu",
		Optimizer:       "adam",
		LearningRate:    0.001,
		Epochs:          200,
		BatchSize:       32,
		Patience:        20,
		ValidationSplit: 0.2,
		Seed:            42,
		LogLevel:        "info",
		Dataset: DatasetConfig{
			Source:        SourceCSV,
			Path:          "data/housing.csv",
			TargetColumn:  -1,
			HasHeader:     true,
			SyntheticRows: 20640,
		},
		Output: OutputConfig{
			Dir:                "artifacts",
			ModelPath:          "artifacts/trained_model.hnet",
			ModelCodec:         "zstd",
			HistoryCSVPath:     "artifacts/training_history.csv",
			PlotPath:           "artifacts/training_history.png",
			PredictionPlotPath: "artifacts/predictions.png",
			ErrorPlotPath:      "artifacts/absolute_error.png",
			EvaluationPath:     "artifacts/evaluation_results.txt",
			MetricsPath:        "artifacts/training_metrics.prom",
		},
	}
}

// WithOutputDir returns a copy with every artifact path moved under dir.
func (c Config) WithOutputDir(dir string) Config {
	c.HiddenLayers = append([]int(nil), c.HiddenLayers...)
	c.Output.Dir = dir
	for _, p := range []*string{
		&c.Output.ModelPath,
		&c.Output.HistoryCSVPath,
		&c.Output.PlotPath,
		&c.Output.PredictionPlotPath,
		&c.Output.ErrorPlotPath,
		&c.Output.EvaluationPath,
		&c.Output.MetricsPath,
	} {
		if *p != "" {
			*p = filepath.Join(dir, filepath.Base(*p))
		}
	}
	return c
}

// Validate checks every field that would otherwise fail deep inside a run.
// The optimizer and activation names are checked by the model builder.
func (c Config) Validate() error {
	var problems []string
	if len(c.HiddenLayers) == 0 {
		problems = append(problems, "hidden_layers must not be empty")
	}
	for i, size := range c.HiddenLayers {
		if size <= 0 {
			problems = append(problems, fmt.Sprintf("hidden_layers[%d] must be positive, got %d", i, size))
		}
	}
	if c.LearningRate <= 0 {
		problems = append(problems, fmt.Sprintf("learning_rate must be positive, got %g", c.LearningRate))
	}
	if c.Epochs <= 0 {
		problems = append(problems, fmt.Sprintf("epochs must be positive, got %d", c.Epochs))
	}
	if c.BatchSize <= 0 {
		problems = append(problems, fmt.Sprintf("batch_size must be positive, got %d", c.BatchSize))
	}
	if c.Patience < 0 {
		problems = append(problems, fmt.Sprintf("patience must not be negative, got %d", c.Patience))
	}
	if c.ValidationSplit <= 0 || c.ValidationSplit >= 1 {
		problems = append(problems, fmt.Sprintf("validation_split must be in (0, 1), got %g", c.ValidationSplit))
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, fmt.Sprintf("log_level: %v", err))
	}
	switch c.Dataset.Source {
	case SourceCSV:
		if c.Dataset.Path == "" {
			problems = append(problems, "dataset.path is required for the csv source")
		}
	case SourceSynthetic:
		if c.Dataset.SyntheticRows <= 0 {
			problems = append(problems, fmt.Sprintf("dataset.synthetic_rows must be positive, got %d", c.Dataset.SyntheticRows))
		}
	default:
		problems = append(problems, fmt.Sprintf("dataset.source '%s' is not supported", c.Dataset.Source))
	}
	if c.Output.ModelPath == "" || c.Output.EvaluationPath == "" {
		problems = append(problems, "output.model_path and output.evaluation_path are required")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// Level returns the parsed log level, falling back to info.
func (c Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// Load reads a TOML file and overlays the keys it sets on Default.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("error reading config file: %w", err)
	}

	tree, err := toml.Load(string(data))
	if err != nil {
		return Config{}, fmt.Errorf("%w: error parsing config file: %v", ErrInvalidConfig, err)
	}

	var file Config
	if err := tree.Unmarshal(&file); err != nil {
		return Config{}, fmt.Errorf("%w: error unmarshaling config: %v", ErrInvalidConfig, err)
	}

	cfg := Default()
	for _, f := range fields {
		if tree.Has(f.key) {
			f.set(&cfg, &file)
		}
	}

	return cfg, cfg.Validate()
}

// fields maps TOML keys to the Config field they set. Keys absent from
// the file keep their default.
var fields = []struct {
	key string
	set func(dst, src *Config)
}{
	{"hidden_layers", func(d, s *Config) { d.HiddenLayers = s.HiddenLayers }},
	{"activation", func(d, s *Config) { d.Activation = s.Activation }},
	{"optimizer", func(d, s *Config) { d.Optimizer = s.Optimizer }},
	{"learning_rate", func(d, s *Config) { d.LearningRate = s.LearningRate }},
	{"epochs", func(d, s *Config) { d.Epochs = s.Epochs }},
	{"batch_size", func(d, s *Config) { d.BatchSize = s.BatchSize }},
	{"patience", func(d, s *Config) { d.Patience = s.Patience }},
	{"validation_split", func(d, s *Config) { d.ValidationSplit = s.ValidationSplit }},
	{"seed", func(d, s *Config) { d.Seed = s.Seed }},
	{"log_level", func(d, s *Config) { d.LogLevel = s.LogLevel }},

	{"dataset.source", func(d, s *Config) { d.Dataset.Source = s.Dataset.Source }},
	{"dataset.path", func(d, s *Config) { d.Dataset.Path = s.Dataset.Path }},
	{"dataset.target_column", func(d, s *Config) { d.Dataset.TargetColumn = s.Dataset.TargetColumn }},
	{"dataset.has_header", func(d, s *Config) { d.Dataset.HasHeader = s.Dataset.HasHeader }},
	{"dataset.synthetic_rows", func(d, s *Config) { d.Dataset.SyntheticRows = s.Dataset.SyntheticRows }},

	{"output.dir", func(d, s *Config) { *d = d.WithOutputDir(s.Output.Dir) }},
	{"output.model_path", func(d, s *Config) { d.Output.ModelPath = s.Output.ModelPath }},
	{"output.model_codec", func(d, s *Config) { d.Output.ModelCodec = s.Output.ModelCodec }},
	{"output.history_csv_path", func(d, s *Config) { d.Output.HistoryCSVPath = s.Output.HistoryCSVPath }},
	{"output.plot_path", func(d, s *Config) { d.Output.PlotPath = s.Output.PlotPath }},
	{"output.prediction_plot_path", func(d, s *Config) { d.Output.PredictionPlotPath = s.Output.PredictionPlotPath }},
	{"output.error_plot_path", func(d, s *Config) { d.Output.ErrorPlotPath = s.Output.ErrorPlotPath }},
	{"output.evaluation_path", func(d, s *Config) { d.Output.EvaluationPath = s.Output.EvaluationPath }},
	{"output.metrics_path", func(d, s *Config) { d.Output.MetricsPath = s.Output.MetricsPath }},
}
