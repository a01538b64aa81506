// Package activations provides unit tests for activation functions.
package activations

import (
	"errors"
	"math"
	"testing"
)

// TestReLU tests ReLU activation.
func TestReLU(t *testing.T) {
	relu := ReLU{}

	tests := []struct {
		input    float64
		expected float64
	}{
		{-1.0, 0.0},
		{0.0, 0.0},
		{1.0, 1.0},
		{2.5, 2.5},
		{-0.1, 0.0},
	}

	for _, tt := range tests {
		output := relu.Activate(tt.input)
		if math.Abs(output-tt.expected) > 1e-12 {
			t.Errorf("ReLU(%v) = %v, want %v", tt.input, output, tt.expected)
		}
	}
}

// TestReLUDerivative tests ReLU derivative.
func TestReLUDerivative(t *testing.T) {
	relu := ReLU{}

	tests := []struct {
		input    float64
		expected float64
	}{
		{-1.0, 0.0},
		{0.0, 0.0}, // x must be > 0
		{1.0, 1.0},
		{2.5, 1.0},
	}

	for _, tt := range tests {
		output := relu.Derivative(tt.input)
		if output != tt.expected {
			t.Errorf("ReLU.Derivative(%v) = %v, want %v", tt.input, output, tt.expected)
		}
	}
}

// TestSigmoid tests Sigmoid activation and its derivative.
func TestSigmoid(t *testing.T) {
	s := Sigmoid{}

	if got := s.Activate(0); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("Sigmoid(0) = %v, want 0.5", got)
	}
	if got := s.Activate(math.Inf(1)); got != 1 {
		t.Errorf("Sigmoid(+inf) = %v, want 1", got)
	}
	if got := s.Derivative(0); math.Abs(got-0.25) > 1e-12 {
		t.Errorf("Sigmoid.Derivative(0) = %v, want 0.25", got)
	}
	if got := s.Derivative(10); got > 1e-4 {
		t.Errorf("Sigmoid.Derivative(10) = %v, should be near 0", got)
	}
}

// TestTanh tests Tanh activation.
func TestTanh(t *testing.T) {
	tanh := Tanh{}

	for _, x := range []float64{-2, -1, 0, 1, 2} {
		if got := tanh.Activate(x); math.Abs(got-math.Tanh(x)) > 1e-12 {
			t.Errorf("Tanh(%v) = %v, want %v", x, got, math.Tanh(x))
		}
	}
	if got := tanh.Derivative(0); got != 1 {
		t.Errorf("Tanh.Derivative(0) = %v, want 1", got)
	}
}

func TestLeakyReLU(t *testing.T) {
	l := NewLeakyReLU(0.01)

	if got := l.Activate(-2); math.Abs(got+0.02) > 1e-12 {
		t.Errorf("LeakyReLU(-2) = %v, want -0.02", got)
	}
	if got := l.Derivative(-2); got != 0.01 {
		t.Errorf("LeakyReLU.Derivative(-2) = %v, want 0.01", got)
	}
	if got := l.Activate(3); got != 3 {
		t.Errorf("LeakyReLU(3) = %v, want 3", got)
	}
}

func TestLinear(t *testing.T) {
	l := Linear{}
	for _, x := range []float64{-3.5, 0, 7} {
		if l.Activate(x) != x || l.Derivative(x) != 1 {
			t.Errorf("Linear at %v is not the identity", x)
		}
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"relu", "relu"},
		{"ReLU", "relu"},
		{"tanh", "tanh"},
		{"sigmoid", "sigmoid"},
		{"leaky_relu", "leaky_relu"},
		{"linear", "linear"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			act, err := Resolve(tt.name)
			if err != nil {
				t.Fatalf("Resolve(%q) error: %v", tt.name, err)
			}
			if act.Name() != tt.want {
				t.Errorf("Resolve(%q).Name() = %q, want %q", tt.name, act.Name(), tt.want)
			}
		})
	}

	if _, err := Resolve("softplus"); !errors.Is(err, ErrUnsupportedActivation) {
		t.Errorf("Resolve(softplus) error = %v, want ErrUnsupportedActivation", err)
	}
}
