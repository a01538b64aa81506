// Package opt provides optimization algorithms.
package opt

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrUnsupportedOptimizer is returned by Resolve for names outside the
// supported set.
var ErrUnsupportedOptimizer = errors.New("unsupported optimizer")

// Optimizer updates network parameters based on gradients.
//
// Parameters are passed per group (one group per layer). Stateful
// optimizers key their moment estimates by group index.
type Optimizer interface {
	// StepInPlace updates params in-place from gradients.
	StepInPlace(group int, params, gradients []float64)

	// Reset drops any accumulated state.
	Reset()

	// Name is the identifier written to model snapshots.
	Name() string

	// LearningRate returns the configured step size.
	LearningRate() float64
}

// Resolve returns the optimizer registered under name, parameterized by
// learningRate. Only "adam" and "sgd" are supported.
func Resolve(name string, learningRate float64) (Optimizer, error) {
	if learningRate <= 0 {
		return nil, fmt.Errorf("optimizer %q: learning rate must be positive, got %v", name, learningRate)
	}
	switch strings.ToLower(name) {
	case "adam":
		return NewAdam(learningRate), nil
	case "sgd":
		return NewSGD(learningRate), nil
	default:
		return nil, fmt.Errorf("%w: optimizer '%s' is not supported", ErrUnsupportedOptimizer, name)
	}
}

// SGD (Stochastic Gradient Descent) optimizer.
type SGD struct {
	LR float64
}

// NewSGD creates a plain SGD optimizer.
func NewSGD(learningRate float64) *SGD {
	return &SGD{LR: learningRate}
}

// Step computes updated parameters: params - lr * gradients
// Returns a new slice with updated values.
func (s *SGD) Step(params, gradients []float64) []float64 {
	result := make([]float64, len(params))
	copy(result, params)
	s.StepInPlace(0, result, gradients)
	return result
}

// StepInPlace updates params in-place: params = params - lr * gradients
func (s *SGD) StepInPlace(_ int, params, gradients []float64) {
	for i := range params {
		params[i] -= s.LR * gradients[i]
	}
}

func (s *SGD) Reset() {}

func (s *SGD) Name() string { return "sgd" }

func (s *SGD) LearningRate() float64 { return s.LR }

// Adam optimizer.
//
//	m_t = beta1 * m_{t-1} + (1-beta1) * g
//	v_t = beta2 * v_{t-1} + (1-beta2) * g²
//	param -= lr * m_hat / (sqrt(v_hat) + eps)
type Adam struct {
	LR      float64
	Beta1   float64 // Exponential decay rate for first moment
	Beta2   float64 // Exponential decay rate for second moment
	Epsilon float64 // Small constant for numerical stability

	m map[int][]float64
	v map[int][]float64
	t map[int]int
}

// NewAdam creates a new Adam optimizer with default values.
func NewAdam(learningRate float64) *Adam {
	return &Adam{
		LR:      learningRate,
		Beta1:   0.9,
		Beta2:   0.999,
		Epsilon: 1e-7,
		m:       make(map[int][]float64),
		v:       make(map[int][]float64),
		t:       make(map[int]int),
	}
}

// StepInPlace applies one bias-corrected Adam update to the group.
func (a *Adam) StepInPlace(group int, params, gradients []float64) {
	m, ok := a.m[group]
	if !ok || len(m) != len(params) {
		m = make([]float64, len(params))
		a.m[group] = m
		a.v[group] = make([]float64, len(params))
		a.t[group] = 0
	}
	v := a.v[group]

	a.t[group]++
	step := float64(a.t[group])
	bc1 := 1 - math.Pow(a.Beta1, step)
	bc2 := 1 - math.Pow(a.Beta2, step)

	for i, g := range gradients {
		m[i] = a.Beta1*m[i] + (1-a.Beta1)*g
		v[i] = a.Beta2*v[i] + (1-a.Beta2)*g*g
		mHat := m[i] / bc1
		vHat := v[i] / bc2
		params[i] -= a.LR * mHat / (math.Sqrt(vHat) + a.Epsilon)
	}
}

// Reset clears the moment estimates.
func (a *Adam) Reset() {
	a.m = make(map[int][]float64)
	a.v = make(map[int][]float64)
	a.t = make(map[int]int)
}

func (a *Adam) Name() string { return "adam" }

func (a *Adam) LearningRate() float64 { return a.LR }
