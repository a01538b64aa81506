// Package net provides core neural network types.
package net

import (
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/housenet/internal/layer"
	"github.com/FlavioCFOliveira/housenet/internal/loss"
	"github.com/FlavioCFOliveira/housenet/internal/opt"
)

// ErrShapeMismatch is returned when inputs do not agree with the network
// or with each other.
var ErrShapeMismatch = errors.New("shape mismatch")

// Network is a collection of layers that can be forwarded and backwarded.
type Network struct {
	layers []layer.Layer
	loss   loss.Loss
	metric loss.Metric
	opt    opt.Optimizer

	// Pre-allocated gradient buffer for training
	lossGradBuf []float64
}

// New creates a new neural network with the given layers.
func New(layers []layer.Layer, lossFn loss.Loss, optimizer opt.Optimizer) *Network {
	return &Network{
		layers: layers,
		loss:   lossFn,
		metric: loss.MAE{},
		opt:    optimizer,
	}
}

// Compile configures the optimizer, loss and tracked metric.
func (n *Network) Compile(optimizer opt.Optimizer, lossFn loss.Loss, metric loss.Metric) {
	n.opt = optimizer
	n.loss = lossFn
	n.metric = metric
}

// Forward performs a forward pass through all layers.
// The returned slice aliases the last layer's buffer.
func (n *Network) Forward(x []float64) []float64 {
	curr := x
	for i := range n.layers {
		curr = n.layers[i].Forward(curr)
	}
	return curr
}

// Backward performs a backward pass through all layers.
func (n *Network) Backward(grad []float64) []float64 {
	curr := grad
	for i := len(n.layers) - 1; i >= 0; i-- {
		curr = n.layers[i].Backward(curr)
	}
	return curr
}

// Step performs one optimization step using the stored optimizer.
func (n *Network) Step() {
	for i, l := range n.layers {
		params := l.Params()
		n.opt.StepInPlace(i, params, l.Gradients())
		l.SetParams(params)
	}
}

// ZeroGrad clears the gradient buffers of every layer.
func (n *Network) ZeroGrad() {
	for _, l := range n.layers {
		l.ZeroGrad()
	}
}

// Train performs a training step on a single sample.
func (n *Network) Train(x []float64, y []float64) float64 {
	l, _ := n.TrainBatch([][]float64{x}, [][]float64{y})
	return l
}

// TrainBatch performs training on a batch of samples.
// Gradients are accumulated and averaged over the batch before a single
// optimizer step. Returns the mean loss and mean metric of the batch,
// both measured before the update.
func (n *Network) TrainBatch(batchX [][]float64, batchY [][]float64) (float64, float64) {
	if len(batchX) == 0 {
		return 0, 0
	}
	batchSize := float64(len(batchX))
	var totalLoss, totalMetric float64

	n.ZeroGrad()
	for i := range batchX {
		yPred := n.Forward(batchX[i])
		totalLoss += n.loss.Forward(yPred, batchY[i])
		if n.metric != nil {
			totalMetric += n.metric.Forward(yPred, batchY[i])
		}

		yPredLen := len(yPred)
		if cap(n.lossGradBuf) < yPredLen {
			n.lossGradBuf = make([]float64, yPredLen)
		}
		grad := n.lossGradBuf[:yPredLen]

		if backwardInPlace, ok := n.loss.(loss.BackwardInPlacer); ok {
			backwardInPlace.BackwardInPlace(yPred, batchY[i], grad)
		} else {
			grad = n.loss.Backward(yPred, batchY[i])
		}

		_ = n.Backward(grad)
	}

	for _, l := range n.layers {
		l.ScaleGradients(1 / batchSize)
	}
	n.Step()

	return totalLoss / batchSize, totalMetric / batchSize
}

// Predict runs a forward pass and returns a copy of the output.
func (n *Network) Predict(x []float64) []float64 {
	out := n.Forward(x)
	res := make([]float64, len(out))
	copy(res, out)
	return res
}

// PredictMatrix returns the scalar prediction for every row of x.
// The network must have a single output unit.
func (n *Network) PredictMatrix(x *mat.Dense) ([]float64, error) {
	if err := n.checkInput(x); err != nil {
		return nil, err
	}
	if n.OutSize() != 1 {
		return nil, fmt.Errorf("%w: network has %d outputs, want 1", ErrShapeMismatch, n.OutSize())
	}
	rows, _ := x.Dims()
	preds := make([]float64, rows)
	for i := 0; i < rows; i++ {
		preds[i] = n.Forward(x.RawRowView(i))[0]
	}
	return preds, nil
}

// Evaluate returns the mean loss and mean metric over (x, y).
func (n *Network) Evaluate(x *mat.Dense, y []float64) (float64, float64, error) {
	preds, err := n.PredictMatrix(x)
	if err != nil {
		return 0, 0, err
	}
	if len(preds) != len(y) {
		return 0, 0, fmt.Errorf("%w: %d rows vs %d targets", ErrShapeMismatch, len(preds), len(y))
	}
	var metric float64
	if n.metric != nil {
		metric = n.metric.Forward(preds, y)
	}
	return n.loss.Forward(preds, y), metric, nil
}

func (n *Network) checkInput(x *mat.Dense) error {
	if len(n.layers) == 0 {
		return fmt.Errorf("%w: network has no layers", ErrShapeMismatch)
	}
	_, cols := x.Dims()
	if cols != n.InSize() {
		return fmt.Errorf("%w: input has %d columns, network expects %d", ErrShapeMismatch, cols, n.InSize())
	}
	return nil
}

// Params returns all network parameters flattened (copy).
func (n *Network) Params() []float64 {
	var params []float64
	for _, l := range n.layers {
		params = append(params, l.Params()...)
	}
	return params
}

// SetParams loads a flattened parameter vector produced by Params.
func (n *Network) SetParams(params []float64) {
	offset := 0
	for _, l := range n.layers {
		size := len(l.Params())
		l.SetParams(params[offset : offset+size])
		offset += size
	}
}

// Gradients returns all network gradients flattened (copy).
func (n *Network) Gradients() []float64 {
	var gradients []float64
	for _, l := range n.layers {
		gradients = append(gradients, l.Gradients()...)
	}
	return gradients
}

// Layers returns the network's layers slice.
func (n *Network) Layers() []layer.Layer {
	return n.layers
}

// Loss returns the training loss.
func (n *Network) Loss() loss.Loss {
	return n.loss
}

// Optimizer returns the bound optimizer.
func (n *Network) Optimizer() opt.Optimizer {
	return n.opt
}

// InSize is the input width of the first layer.
func (n *Network) InSize() int {
	if len(n.layers) == 0 {
		return 0
	}
	return n.layers[0].InSize()
}

// OutSize is the output width of the last layer.
func (n *Network) OutSize() int {
	if len(n.layers) == 0 {
		return 0
	}
	return n.layers[len(n.layers)-1].OutSize()
}

// Summary renders the network architecture as a table.
func (n *Network) Summary() string {
	var b strings.Builder
	b.WriteString("Model: Sequential\n")
	fmt.Fprintf(&b, "%-25s %-20s %-10s\n", "Layer (type)", "Output Shape", "Param #")

	totalParams := 0
	for i, l := range n.layers {
		lType := fmt.Sprintf("%T", l)
		if j := strings.LastIndexByte(lType, '.'); j >= 0 {
			lType = lType[j+1:]
		}
		params := len(l.Params())
		totalParams += params
		fmt.Fprintf(&b, "%-25s %-20s %-10d\n", fmt.Sprintf("%s_%d", lType, i), fmt.Sprintf("(%d)", l.OutSize()), params)
	}
	fmt.Fprintf(&b, "Total params: %d", totalParams)
	return b.String()
}
