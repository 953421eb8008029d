package ml

import (
	"fmt"
	"math"
)

// RidgeRegressor is a linear model fit by the closed-form ridge solution
// (X'X + lambda*I) w = X'y. Small feature counts make the dense solve cheap,
// and the result is fully deterministic.
type RidgeRegressor struct {
	Weights   []float64 `json:"weights"`
	Intercept float64   `json:"intercept"`
	Lambda    float64   `json:"lambda"`
}

// FitRidge fits the regressor on rows X against targets y.
func FitRidge(x [][]float64, y []float64, lambda float64) (*RidgeRegressor, error) {
	if len(x) == 0 || len(x) != len(y) {
		return nil, fmt.Errorf("ridge: need equal non-zero rows, got %d/%d", len(x), len(y))
	}
	if lambda < 0 {
		return nil, fmt.Errorf("ridge: negative lambda")
	}
	cols := len(x[0])

	// augment with a bias column
	d := cols + 1
	xtx := make([][]float64, d)
	for i := range xtx {
		xtx[i] = make([]float64, d)
	}
	xty := make([]float64, d)

	row := make([]float64, d)
	for i, r := range x {
		if len(r) != cols {
			return nil, fmt.Errorf("ridge: ragged matrix")
		}
		copy(row, r)
		row[cols] = 1
		for a := 0; a < d; a++ {
			for b := 0; b < d; b++ {
				xtx[a][b] += row[a] * row[b]
			}
			xty[a] += row[a] * y[i]
		}
	}
	for a := 0; a < cols; a++ { // bias term is not regularized
		xtx[a][a] += lambda
	}

	w, err := solveLinear(xtx, xty)
	if err != nil {
		return nil, fmt.Errorf("ridge: %w", err)
	}

	return &RidgeRegressor{Weights: w[:cols], Intercept: w[cols], Lambda: lambda}, nil
}

// Predict evaluates the linear model on one row.
func (r *RidgeRegressor) Predict(row []float64) (float64, error) {
	if len(row) != len(r.Weights) {
		return 0, fmt.Errorf("ridge: expected %d values, got %d", len(r.Weights), len(row))
	}
	out := r.Intercept
	for j, v := range row {
		out += r.Weights[j] * v
	}
	return out, nil
}

// solveLinear solves A w = b by Gaussian elimination with partial pivoting.
func solveLinear(a [][]float64, b []float64) ([]float64, error) {
	n := len(a)
	// work on copies; callers keep their matrices
	m := make([][]float64, n)
	for i := range a {
		m[i] = append([]float64(nil), a[i]...)
		m[i] = append(m[i], b[i])
	}

	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(m[r][col]) > math.Abs(m[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(m[pivot][col]) < 1e-12 {
			return nil, fmt.Errorf("singular system at column %d", col)
		}
		m[col], m[pivot] = m[pivot], m[col]

		for r := col + 1; r < n; r++ {
			f := m[r][col] / m[col][col]
			for k := col; k <= n; k++ {
				m[r][k] -= f * m[col][k]
			}
		}
	}

	w := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := m[i][n]
		for k := i + 1; k < n; k++ {
			sum -= m[i][k] * w[k]
		}
		w[i] = sum / m[i][i]
	}
	return w, nil
}
