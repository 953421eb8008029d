package ml

import (
	"fmt"
	"math"
)

// StandardScaler centers each column to zero mean and unit variance.
// Parameters are fixed at Fit time; Transform never mutates them.
type StandardScaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// FitScaler computes per-column mean and standard deviation over rows.
func FitScaler(rows [][]float64) (*StandardScaler, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("scaler: empty matrix")
	}
	cols := len(rows[0])
	mean := make([]float64, cols)
	std := make([]float64, cols)

	for _, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("scaler: ragged matrix")
		}
		for j, v := range row {
			mean[j] += v
		}
	}
	n := float64(len(rows))
	for j := range mean {
		mean[j] /= n
	}
	for _, row := range rows {
		for j, v := range row {
			d := v - mean[j]
			std[j] += d * d
		}
	}
	for j := range std {
		std[j] = math.Sqrt(std[j] / n)
		// constant columns pass through unscaled
		if std[j] == 0 {
			std[j] = 1
		}
	}

	return &StandardScaler{Mean: mean, Std: std}, nil
}

// Transform returns the scaled copy of one row.
func (s *StandardScaler) Transform(row []float64) ([]float64, error) {
	if len(row) != len(s.Mean) {
		return nil, fmt.Errorf("scaler: expected %d values, got %d", len(s.Mean), len(row))
	}
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = (v - s.Mean[j]) / s.Std[j]
	}
	return out, nil
}

// TransformAll scales every row of the matrix.
func (s *StandardScaler) TransformAll(rows [][]float64) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		t, err := s.Transform(row)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}
