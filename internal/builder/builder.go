// Package builder assembles untrained regression networks from
// hyperparameters.
package builder

import (
	"fmt"
	"math/rand"

	"github.com/FlavioCFOliveira/housenet/internal/activations"
	"github.com/FlavioCFOliveira/housenet/internal/layer"
	"github.com/FlavioCFOliveira/housenet/internal/loss"
	"github.com/FlavioCFOliveira/housenet/internal/net"
	"github.com/FlavioCFOliveira/housenet/internal/opt"
)

// Builder holds the architecture and optimizer settings. It does no I/O.
type Builder struct {
	hiddenLayers []int
	activation   string
	optimizer    string
	learningRate float64
	seed         *int64
}

// New creates a builder. hiddenLayers is copied.
func New(hiddenLayers []int, activation, optimizer string, learningRate float64) *Builder {
	return &Builder{
		hiddenLayers: append([]int(nil), hiddenLayers...),
		activation:   activation,
		optimizer:    optimizer,
		learningRate: learningRate,
	}
}

// WithSeed makes weight initialization reproducible.
func (b *Builder) WithSeed(seed int64) *Builder {
	b.seed = &seed
	return b
}

// Optimizer resolves the configured optimizer. Only "adam" and "sgd" are
// accepted.
func (b *Builder) Optimizer() (opt.Optimizer, error) {
	return opt.Resolve(b.optimizer, b.learningRate)
}

// Build returns a network with one Dense layer per hidden size using the
// configured activation, followed by a single linear output unit. It is
// compiled with MSE loss and an MAE metric.
func (b *Builder) Build(inputDim int) (*net.Network, error) {
	if inputDim <= 0 {
		return nil, fmt.Errorf("input dimension must be positive, got %d", inputDim)
	}
	optimizer, err := b.Optimizer()
	if err != nil {
		return nil, err
	}
	act, err := activations.Resolve(b.activation)
	if err != nil {
		return nil, err
	}

	var rng *rand.Rand
	if b.seed != nil {
		rng = rand.New(rand.NewSource(*b.seed))
	}

	layers := make([]layer.Layer, 0, len(b.hiddenLayers)+1)
	in := inputDim
	for i, units := range b.hiddenLayers {
		if units <= 0 {
			return nil, fmt.Errorf("hidden layer %d must have a positive size, got %d", i, units)
		}
		layers = append(layers, layer.NewDenseRand(in, units, act, rng))
		in = units
	}
	layers = append(layers, layer.NewDenseRand(in, 1, activations.Linear{}, rng))

	network := net.New(layers, nil, nil)
	network.Compile(optimizer, loss.MSE{}, loss.MAE{})
	return network, nil
}
