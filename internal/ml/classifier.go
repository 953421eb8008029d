package ml

import (
	"fmt"
	"math"
)

// LogisticClassifier is a binary logistic model trained by full-batch
// gradient descent with a fixed step count, so training is deterministic.
type LogisticClassifier struct {
	Weights   []float64 `json:"weights"`
	Intercept float64   `json:"intercept"`
}

const (
	logisticIterations = 500
	logisticRate       = 0.1
)

// FitLogistic fits the classifier on rows X against 0/1 labels y.
func FitLogistic(x [][]float64, y []float64) (*LogisticClassifier, error) {
	if len(x) == 0 || len(x) != len(y) {
		return nil, fmt.Errorf("logistic: need equal non-zero rows, got %d/%d", len(x), len(y))
	}
	cols := len(x[0])
	for _, v := range y {
		if v != 0 && v != 1 {
			return nil, fmt.Errorf("logistic: labels must be 0 or 1, got %v", v)
		}
	}

	w := make([]float64, cols)
	b := 0.0
	n := float64(len(x))

	gradW := make([]float64, cols)
	for it := 0; it < logisticIterations; it++ {
		for j := range gradW {
			gradW[j] = 0
		}
		gradB := 0.0
		for i, row := range x {
			if len(row) != cols {
				return nil, fmt.Errorf("logistic: ragged matrix")
			}
			z := b
			for j, v := range row {
				z += w[j] * v
			}
			err := sigmoid(z) - y[i]
			for j, v := range row {
				gradW[j] += err * v
			}
			gradB += err
		}
		for j := range w {
			w[j] -= logisticRate * gradW[j] / n
		}
		b -= logisticRate * gradB / n
	}

	return &LogisticClassifier{Weights: w, Intercept: b}, nil
}

// Score returns the probability of the positive (up) class.
func (c *LogisticClassifier) Score(row []float64) (float64, error) {
	if len(row) != len(c.Weights) {
		return 0, fmt.Errorf("logistic: expected %d values, got %d", len(c.Weights), len(row))
	}
	z := c.Intercept
	for j, v := range row {
		z += c.Weights[j] * v
	}
	return sigmoid(z), nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
