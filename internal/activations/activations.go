// Package activations provides activation functions optimized for performance.
package activations

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrUnsupportedActivation is returned by Resolve for unknown activation names.
var ErrUnsupportedActivation = errors.New("unsupported activation")

// Activation is an activation function with derivative.
type Activation interface {
	// Activate computes f(x)
	Activate(x float64) float64

	// Derivative computes f'(x) given the pre-activation x
	Derivative(x float64) float64

	// Name returns the canonical name used in configuration and snapshots.
	Name() string
}

// Resolve maps a configuration name to an activation.
// Names are case-insensitive.
func Resolve(name string) (Activation, error) {
	switch strings.ToLower(name) {
	case "relu":
		return ReLU{}, nil
	case "sigmoid":
		return Sigmoid{}, nil
	case "tanh":
		return Tanh{}, nil
	case "leaky_relu", "leakyrelu":
		return NewLeakyReLU(0.01), nil
	case "linear", "":
		return Linear{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedActivation, name)
	}
}

// ReLU activation function.
type ReLU struct{}

// Activate computes max(0, x)
func (r ReLU) Activate(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}

// Derivative returns 1 if x > 0, else 0
func (r ReLU) Derivative(x float64) float64 {
	if x > 0 {
		return 1
	}
	return 0
}

func (r ReLU) Name() string { return "relu" }

// Sigmoid activation function.
type Sigmoid struct{}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// Activate computes sigmoid(x)
func (s Sigmoid) Activate(x float64) float64 {
	return sigmoid(x)
}

// Derivative computes sigmoid(x) * (1 - sigmoid(x))
func (s Sigmoid) Derivative(x float64) float64 {
	sigma := sigmoid(x)
	return sigma * (1 - sigma)
}

func (s Sigmoid) Name() string { return "sigmoid" }

// LeakyReLU activation function to prevent dying neurons.
type LeakyReLU struct {
	Alpha float64 // Slope for x <= 0
}

// NewLeakyReLU creates a LeakyReLU with the given alpha value.
func NewLeakyReLU(alpha float64) *LeakyReLU {
	return &LeakyReLU{Alpha: alpha}
}

// Activate computes x if x > 0, else alpha*x
func (l *LeakyReLU) Activate(x float64) float64 {
	if x > 0 {
		return x
	}
	return l.Alpha * x
}

// Derivative returns 1 if x > 0, else alpha
func (l *LeakyReLU) Derivative(x float64) float64 {
	if x > 0 {
		return 1
	}
	return l.Alpha
}

func (l *LeakyReLU) Name() string { return "leaky_relu" }

// Tanh activation function.
type Tanh struct{}

// Activate computes tanh(x)
func (t Tanh) Activate(x float64) float64 {
	return math.Tanh(x)
}

// Derivative computes 1 - tanh(x)^2
func (t Tanh) Derivative(x float64) float64 {
	tanhX := math.Tanh(x)
	return 1 - tanhX*tanhX
}

func (t Tanh) Name() string { return "tanh" }

// Linear is the identity activation used by regression output layers.
type Linear struct{}

// Activate returns x unchanged.
func (l Linear) Activate(x float64) float64 {
	return x
}

// Derivative is always 1.
func (l Linear) Derivative(x float64) float64 {
	return 1
}

func (l Linear) Name() string { return "linear" }
