package net

import (
	"math"

	"github.com/sirupsen/logrus"
)

// Callback defines the interface for training callbacks.
type Callback interface {
	OnTrainBegin(n *Network)
	OnTrainEnd(n *Network)
	OnEpochBegin(epoch int, n *Network)
	OnEpochEnd(epoch int, logs EpochLogs, n *Network)
}

// Stopper is implemented by callbacks that can end training early.
type Stopper interface {
	StopTraining() bool
}

// BaseCallback provides default empty implementations for Callback.
type BaseCallback struct{}

func (c BaseCallback) OnTrainBegin(n *Network)                          {}
func (c BaseCallback) OnTrainEnd(n *Network)                            {}
func (c BaseCallback) OnEpochBegin(epoch int, n *Network)               {}
func (c BaseCallback) OnEpochEnd(epoch int, logs EpochLogs, n *Network) {}

// StopStatus is the state of an EarlyStopping monitor.
type StopStatus int

const (
	// StatusRunning: no epoch evaluated yet.
	StatusRunning StopStatus = iota
	// StatusImproved: the last epoch set a new best.
	StatusImproved
	// StatusStalled: Wait() consecutive epochs without improvement.
	StatusStalled
	// StatusTerminated: patience exhausted.
	StatusTerminated
)

func (s StopStatus) String() string {
	switch s {
	case StatusImproved:
		return "improved"
	case StatusStalled:
		return "stalled"
	case StatusTerminated:
		return "terminated"
	default:
		return "running"
	}
}

// EarlyStopping stops training when a monitored metric has stopped improving.
// With RestoreBestWeights the network is rolled back to the best epoch's
// parameters when training ends.
type EarlyStopping struct {
	BaseCallback
	Patience           int
	MinDelta           float64
	Monitor            string // "val_loss" (default), "loss", "mae", "val_mae"
	RestoreBestWeights bool
	Log                logrus.FieldLogger

	best         float64
	bestEpoch    int
	bestParams   []float64
	wait         int
	status       StopStatus
	stoppedEpoch int
}

// NewEarlyStopping monitors val_loss and restores the best weights.
func NewEarlyStopping(patience int, minDelta float64) *EarlyStopping {
	return &EarlyStopping{
		Patience:           patience,
		MinDelta:           minDelta,
		Monitor:            "val_loss",
		RestoreBestWeights: true,
		best:               math.Inf(1),
		bestEpoch:          -1,
		stoppedEpoch:       -1,
	}
}

func (c *EarlyStopping) OnTrainBegin(n *Network) {
	c.best = math.Inf(1)
	c.bestEpoch = -1
	c.bestParams = nil
	c.wait = 0
	c.status = StatusRunning
	c.stoppedEpoch = -1
}

func (c *EarlyStopping) OnEpochEnd(epoch int, logs EpochLogs, n *Network) {
	current := logs.Value(c.monitor())

	// NaN never counts as an improvement
	if current < c.best-c.MinDelta {
		c.best = current
		c.bestEpoch = epoch
		c.wait = 0
		c.status = StatusImproved
		if c.RestoreBestWeights {
			c.bestParams = n.Params()
		}
		return
	}

	c.wait++
	c.status = StatusStalled
	if c.wait >= c.Patience {
		c.status = StatusTerminated
		c.stoppedEpoch = epoch
		if c.Log != nil {
			c.Log.WithFields(logrus.Fields{
				"epoch":      epoch,
				"monitor":    c.monitor(),
				"best":       c.best,
				"best_epoch": c.bestEpoch,
				"patience":   c.Patience,
			}).Info("early stopping")
		}
	}
}

func (c *EarlyStopping) OnTrainEnd(n *Network) {
	if c.RestoreBestWeights && c.bestParams != nil {
		n.SetParams(c.bestParams)
		if c.Log != nil {
			c.Log.WithField("best_epoch", c.bestEpoch).Debug("restored best weights")
		}
	}
}

// StopTraining reports whether patience has been exhausted.
func (c *EarlyStopping) StopTraining() bool {
	return c.status == StatusTerminated
}

// Status returns the current monitor state.
func (c *EarlyStopping) Status() StopStatus { return c.status }

// Wait returns the number of consecutive non-improving epochs.
func (c *EarlyStopping) Wait() int { return c.wait }

// Best returns the best monitored value and the epoch it was seen at.
func (c *EarlyStopping) Best() (float64, int) { return c.best, c.bestEpoch }

// StoppedEpoch returns the epoch training was stopped at, or -1.
func (c *EarlyStopping) StoppedEpoch() int { return c.stoppedEpoch }

func (c *EarlyStopping) monitor() string {
	if c.Monitor == "" {
		return "val_loss"
	}
	return c.Monitor
}

// Logger logs training progress.
type Logger struct {
	BaseCallback
	Log      logrus.FieldLogger
	Interval int
	Epochs   int
}

func (c Logger) OnEpochEnd(epoch int, logs EpochLogs, n *Network) {
	if c.Log == nil || c.Interval <= 0 || epoch%c.Interval != 0 {
		return
	}
	fields := logrus.Fields{
		"epoch": epoch + 1,
		"loss":  logs.Loss,
		"mae":   logs.MAE,
	}
	if c.Epochs > 0 {
		fields["epochs"] = c.Epochs
	}
	if logs.HasValidation {
		fields["val_loss"] = logs.ValLoss
		fields["val_mae"] = logs.ValMAE
	}
	c.Log.WithFields(fields).Info("epoch finished")
}

// FuncCallback adapts a function to the Callback interface.
type FuncCallback struct {
	BaseCallback
	EpochEnd func(epoch int, logs EpochLogs, n *Network)
}

func (c FuncCallback) OnEpochEnd(epoch int, logs EpochLogs, n *Network) {
	if c.EpochEnd != nil {
		c.EpochEnd(epoch, logs, n)
	}
}
