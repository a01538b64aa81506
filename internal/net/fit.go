package net

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// FitOptions configures Network.Fit.
type FitOptions struct {
	Epochs    int
	BatchSize int

	// Shuffle reorders training rows every epoch using Rand
	// (or a fixed-seed source when Rand is nil).
	Shuffle bool
	Rand    *rand.Rand

	// Validation data is only forward-passed, never trained on.
	ValidationX *mat.Dense
	ValidationY []float64

	Callbacks []Callback
}

// Fit trains the network on (x, y) for up to opts.Epochs mini-batch passes.
// A Stopper callback can end training early. The returned history holds
// one record per completed epoch.
func (n *Network) Fit(x *mat.Dense, y []float64, opts FitOptions) (*History, error) {
	if opts.Epochs <= 0 {
		return nil, fmt.Errorf("epochs must be positive, got %d", opts.Epochs)
	}
	if opts.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", opts.BatchSize)
	}
	if err := n.checkInput(x); err != nil {
		return nil, err
	}
	rows, _ := x.Dims()
	if rows == 0 || rows != len(y) {
		return nil, fmt.Errorf("%w: %d training rows vs %d targets", ErrShapeMismatch, rows, len(y))
	}
	hasValidation := opts.ValidationX != nil
	if hasValidation {
		if err := n.checkInput(opts.ValidationX); err != nil {
			return nil, fmt.Errorf("validation: %w", err)
		}
		vr, _ := opts.ValidationX.Dims()
		if vr == 0 || vr != len(opts.ValidationY) {
			return nil, fmt.Errorf("%w: %d validation rows vs %d targets", ErrShapeMismatch, vr, len(opts.ValidationY))
		}
	}

	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	order := make([]int, rows)
	for i := range order {
		order[i] = i
	}
	targets := make([][]float64, rows)
	for i := range targets {
		targets[i] = []float64{y[i]}
	}

	history := &History{}
	for _, cb := range opts.Callbacks {
		cb.OnTrainBegin(n)
	}

	batchX := make([][]float64, 0, opts.BatchSize)
	batchY := make([][]float64, 0, opts.BatchSize)

	for epoch := 0; epoch < opts.Epochs; epoch++ {
		for _, cb := range opts.Callbacks {
			cb.OnEpochBegin(epoch, n)
		}

		if opts.Shuffle {
			rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		}

		var sumLoss, sumMetric float64
		for start := 0; start < rows; start += opts.BatchSize {
			end := min(start+opts.BatchSize, rows)
			batchX, batchY = batchX[:0], batchY[:0]
			for _, idx := range order[start:end] {
				batchX = append(batchX, x.RawRowView(idx))
				batchY = append(batchY, targets[idx])
			}
			l, m := n.TrainBatch(batchX, batchY)
			size := float64(end - start)
			sumLoss += l * size
			sumMetric += m * size
		}

		logs := EpochLogs{
			Epoch: epoch,
			Loss:  sumLoss / float64(rows),
			MAE:   sumMetric / float64(rows),
		}
		if hasValidation {
			vl, vm, err := n.Evaluate(opts.ValidationX, opts.ValidationY)
			if err != nil {
				return history, fmt.Errorf("validation at epoch %d: %w", epoch, err)
			}
			logs.ValLoss, logs.ValMAE, logs.HasValidation = vl, vm, true
		}
		history.Append(logs)

		stop := false
		for _, cb := range opts.Callbacks {
			cb.OnEpochEnd(epoch, logs, n)
			if s, ok := cb.(Stopper); ok && s.StopTraining() {
				stop = true
			}
		}
		if stop {
			break
		}
	}

	for _, cb := range opts.Callbacks {
		cb.OnTrainEnd(n)
	}
	return history, nil
}
