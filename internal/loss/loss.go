// Package loss provides loss functions and regression metrics.
package loss

import "math"

// BackwardInPlacer is an optional interface for loss functions that support
// in-place gradient computation to avoid allocations.
type BackwardInPlacer interface {
	BackwardInPlace(yPred, yTrue, grad []float64)
}

// Loss is a loss function with derivative.
type Loss interface {
	// Forward computes the loss between predicted and true values.
	Forward(yPred, yTrue []float64) float64

	// Backward computes the gradient of the loss w.r.t. prediction.
	// This creates a new slice and should be avoided in hot loops.
	Backward(yPred, yTrue []float64) []float64

	// Name is the identifier written to model snapshots.
	Name() string
}

// Metric is a monitored quantity that is never differentiated.
type Metric interface {
	Forward(yPred, yTrue []float64) float64
	Name() string
}

// MSE (Mean Squared Error) loss.
type MSE struct{}

// Forward computes mean squared error: (1/n) * sum((y_pred - y_true)^2)
func (m MSE) Forward(yPred, yTrue []float64) float64 {
	n := len(yPred)
	if n != len(yTrue) {
		panic("MSE: prediction and target must have same length")
	}

	var sum float64
	for i := 0; i < n; i++ {
		diff := yPred[i] - yTrue[i]
		sum += diff * diff
	}
	return sum / float64(n)
}

// Backward computes gradient: dL/dy_pred = (2/n) * (y_pred - y_true)
func (m MSE) Backward(yPred, yTrue []float64) []float64 {
	grad := make([]float64, len(yPred))
	m.BackwardInPlace(yPred, yTrue, grad)
	return grad
}

// BackwardInPlace computes gradient and stores it in the grad slice.
func (m MSE) BackwardInPlace(yPred, yTrue, grad []float64) {
	n := len(yPred)
	if n != len(yTrue) || n != len(grad) {
		panic("MSE: slices must have same length")
	}

	factor := 2.0 / float64(n)
	for i := 0; i < n; i++ {
		grad[i] = factor * (yPred[i] - yTrue[i])
	}
}

func (m MSE) Name() string { return "mse" }

// MAE (Mean Absolute Error), tracked as a metric alongside the loss.
type MAE struct{}

// Forward computes mean absolute error: (1/n) * sum(|y_pred - y_true|)
func (l MAE) Forward(yPred, yTrue []float64) float64 {
	n := len(yPred)
	if n != len(yTrue) {
		panic("MAE: prediction and target must have same length")
	}

	var sum float64
	for i := 0; i < n; i++ {
		sum += math.Abs(yPred[i] - yTrue[i])
	}
	return sum / float64(n)
}

// Backward computes the subgradient sign(y_pred - y_true) / n.
func (l MAE) Backward(yPred, yTrue []float64) []float64 {
	n := len(yPred)
	if n != len(yTrue) {
		panic("MAE: prediction and target must have same length")
	}

	grad := make([]float64, n)
	for i := 0; i < n; i++ {
		diff := yPred[i] - yTrue[i]
		switch {
		case diff > 0:
			grad[i] = 1 / float64(n)
		case diff < 0:
			grad[i] = -1 / float64(n)
		}
	}
	return grad
}

func (l MAE) Name() string { return "mae" }
