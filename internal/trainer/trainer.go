// Package trainer runs the fit loop with early stopping and persists the
// per-epoch history.
package trainer

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot/vg"

	"github.com/FlavioCFOliveira/housenet/internal/chart"
	"github.com/FlavioCFOliveira/housenet/internal/config"
	"github.com/FlavioCFOliveira/housenet/internal/net"
)

// ErrNoHistory is returned when history is requested before training.
var ErrNoHistory = errors.New("training history is empty, train the model first")

// Trainer owns a network while it is being fitted.
type Trainer struct {
	network *net.Network
	cfg     config.Config
	log     logrus.FieldLogger
	runID   string

	history  *net.History
	stopper  *net.EarlyStopping
	recorder *recorder
}

// New creates a trainer for network. A nil logger is replaced by
// logrus.New().
func New(network *net.Network, cfg config.Config, log logrus.FieldLogger) *Trainer {
	if log == nil {
		log = logrus.New()
	}
	return &Trainer{
		network: network,
		cfg:     cfg,
		log:     log,
	}
}

// WithRunID labels the exported metrics with id.
func (t *Trainer) WithRunID(id string) *Trainer {
	t.runID = id
	return t
}

// Train fits the network on the training split for up to cfg.Epochs
// epochs. The validation split is only used to monitor val_loss for early
// stopping; when it stops improving for cfg.Patience epochs training ends
// and the weights of the best epoch are restored.
func (t *Trainer) Train(xTrain *mat.Dense, yTrain []float64, xVal *mat.Dense, yVal []float64) error {
	stopper := net.NewEarlyStopping(t.cfg.Patience, 0)
	stopper.Log = t.log
	rec := newRecorder(t.runID)

	t.log.WithFields(logrus.Fields{
		"epochs":     t.cfg.Epochs,
		"batch_size": t.cfg.BatchSize,
		"patience":   t.cfg.Patience,
	}).Info("training started")

	history, err := t.network.Fit(xTrain, yTrain, net.FitOptions{
		Epochs:      t.cfg.Epochs,
		BatchSize:   t.cfg.BatchSize,
		Shuffle:     true,
		Rand:        rand.New(rand.NewSource(t.cfg.Seed)),
		ValidationX: xVal,
		ValidationY: yVal,
		Callbacks: []net.Callback{
			rec,
			net.Logger{Log: t.log, Interval: 1, Epochs: t.cfg.Epochs},
			stopper,
		},
	})
	if err != nil {
		return fmt.Errorf("fit: %w", err)
	}

	t.history = history
	t.stopper = stopper
	t.recorder = rec
	rec.finish(stopper)

	best, bestEpoch := stopper.Best()
	t.log.WithFields(logrus.Fields{
		"epochs_run":    history.Len(),
		"best_epoch":    bestEpoch + 1,
		"best_val_loss": best,
		"early_stopped": stopper.StopTraining(),
	}).Info("training finished")
	return nil
}

// History returns the recorded epochs.
func (t *Trainer) History() (*net.History, error) {
	if t.history.Len() == 0 {
		return nil, ErrNoHistory
	}
	return t.history, nil
}

// EarlyStopping returns the monitor used by the last Train call, or nil.
func (t *Trainer) EarlyStopping() *net.EarlyStopping {
	return t.stopper
}

// SaveTrainingHistory writes one CSV row per epoch to
// cfg.Output.HistoryCSVPath. Called before training it logs a warning and
// does nothing.
func (t *Trainer) SaveTrainingHistory() error {
	history, err := t.History()
	if err != nil {
		t.log.Warn(err.Error())
		return nil
	}
	path := t.cfg.Output.HistoryCSVPath
	if err := ensureDir(path); err != nil {
		return err
	}
	if err := history.SaveCSV(path); err != nil {
		return err
	}
	t.log.WithField("path", path).Info("training history saved")
	return nil
}

// PlotTrainingHistory renders the loss and MAE curves side by side to
// cfg.Output.PlotPath. Called before training it logs a warning and does
// nothing.
func (t *Trainer) PlotTrainingHistory() error {
	history, err := t.History()
	if err != nil {
		t.log.Warn(err.Error())
		return nil
	}

	lossPanel := chart.Panel{
		Title:  "Model Loss (MSE)",
		XLabel: "Epoch",
		YLabel: "Loss (MSE)",
		Series: []chart.Series{{Name: "Training Loss", Values: history.Series("loss")}},
	}
	maePanel := chart.Panel{
		Title:  "Model MAE",
		XLabel: "Epoch",
		YLabel: "Mean Absolute Error (MAE)",
		Series: []chart.Series{{Name: "Training MAE", Values: history.Series("mae")}},
	}
	if history.Epochs[0].HasValidation {
		lossPanel.Series = append(lossPanel.Series, chart.Series{Name: "Validation Loss", Values: history.Series("val_loss")})
		maePanel.Series = append(maePanel.Series, chart.Series{Name: "Validation MAE", Values: history.Series("val_mae")})
	}

	path := t.cfg.Output.PlotPath
	if err := chart.Save(path, 14*vg.Inch, 5*vg.Inch, lossPanel, maePanel); err != nil {
		return err
	}
	t.log.WithField("path", path).Info("training plot saved")
	return nil
}

// WriteMetrics exports the training gauges in the Prometheus text format.
// An empty path is a no-op.
func (t *Trainer) WriteMetrics(path string) error {
	if path == "" {
		return nil
	}
	if t.recorder == nil {
		t.log.Warn(ErrNoHistory.Error())
		return nil
	}
	if err := ensureDir(path); err != nil {
		return err
	}
	if err := t.recorder.writeTextfile(path); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	t.log.WithField("path", path).Info("training metrics saved")
	return nil
}

func ensureDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	return nil
}
