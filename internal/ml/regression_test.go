package ml

import (
	"math"
	"testing"
)

func TestFitRidgeRecoversLinearTarget(t *testing.T) {
	// y = 2*x0 - x1 + 3
	x := [][]float64{
		{0, 0}, {1, 0}, {0, 1}, {1, 1}, {2, 1}, {1, 2}, {3, 2}, {2, 3},
	}
	y := make([]float64, len(x))
	for i, row := range x {
		y[i] = 2*row[0] - row[1] + 3
	}

	r, err := FitRidge(x, y, 1e-8)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if math.Abs(r.Weights[0]-2) > 1e-4 || math.Abs(r.Weights[1]+1) > 1e-4 {
		t.Fatalf("unexpected weights %v", r.Weights)
	}
	if math.Abs(r.Intercept-3) > 1e-4 {
		t.Fatalf("unexpected intercept %v", r.Intercept)
	}

	got, err := r.Predict([]float64{4, 5})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if math.Abs(got-6) > 1e-3 {
		t.Fatalf("predict(4,5)=%v, want 6", got)
	}
}

func TestFitRidgeDeterministic(t *testing.T) {
	x := [][]float64{{1, 2}, {3, 1}, {2, 2}, {0, 1}, {4, 3}}
	y := []float64{1, 2, 1.5, 0.5, 3}

	a, err := FitRidge(x, y, 1.0)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	b, err := FitRidge(x, y, 1.0)
	if err != nil {
		t.Fatalf("refit: %v", err)
	}
	for j := range a.Weights {
		if a.Weights[j] != b.Weights[j] {
			t.Fatalf("weights differ between identical fits: %v vs %v", a.Weights, b.Weights)
		}
	}
	if a.Intercept != b.Intercept {
		t.Fatalf("intercepts differ: %v vs %v", a.Intercept, b.Intercept)
	}
}

func TestFitRidgeRejectsBadInput(t *testing.T) {
	if _, err := FitRidge(nil, nil, 1); err == nil {
		t.Fatalf("expected error on empty input")
	}
	if _, err := FitRidge([][]float64{{1}}, []float64{1, 2}, 1); err == nil {
		t.Fatalf("expected error on length mismatch")
	}
	if _, err := FitRidge([][]float64{{1}}, []float64{1}, -1); err == nil {
		t.Fatalf("expected error on negative lambda")
	}

	r, err := FitRidge([][]float64{{1, 2}, {2, 1}}, []float64{1, 2}, 1)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if _, err := r.Predict([]float64{1}); err == nil {
		t.Fatalf("expected error on width mismatch")
	}
}
