package stats

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestFitTrend(t *testing.T) {
	series := []float64{10, 12, 14, 16, 18, 20}
	fit, err := FitTrend(series)
	if err != nil {
		t.Fatalf("FitTrend() error = %v", err)
	}
	if math.Abs(fit.Slope-2) > 1e-6 || math.Abs(fit.Intercept-10) > 1e-6 {
		t.Errorf("unexpected fit %+v", fit)
	}
	if fit.Mean != 15 {
		t.Errorf("Mean = %v, want 15", fit.Mean)
	}
	if drift := fit.RelativeDrift(30); math.Abs(drift-4) > 1e-6 {
		t.Errorf("RelativeDrift(30) = %v, want 4", drift)
	}

	if _, err := FitTrend([]float64{1, 2}); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}

func TestEstimateElasticity(t *testing.T) {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	// units = 1000 * price^-1.5
	var points []PricePoint
	for i, price := range []float64{10, 20, 40, 80} {
		points = append(points, PricePoint{
			ProductID: "p",
			Date:      day.AddDate(0, 0, i),
			Price:     price,
			Units:     1000 * math.Pow(price, -1.5),
		})
	}

	fit, err := EstimateElasticity(points)
	if err != nil {
		t.Fatalf("EstimateElasticity() error = %v", err)
	}
	if math.Abs(fit.Elasticity-1.5) > 1e-6 {
		t.Errorf("Elasticity = %v, want 1.5", fit.Elasticity)
	}
	if fit.Points != 4 {
		t.Errorf("Points = %d, want 4", fit.Points)
	}

	flat := []PricePoint{{Price: 10, Units: 1}, {Price: 10, Units: 2}, {Price: 10, Units: 3}}
	if _, err := EstimateElasticity(flat); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData for a single price, got %v", err)
	}
}

func TestPercentileAndClamp(t *testing.T) {
	values := []float64{5, 1, 4, 2, 3}
	if got := Percentile(values, 80); got != 4 {
		t.Errorf("Percentile(80) = %v, want 4", got)
	}
	if got := Percentile(values, 100); got != 5 {
		t.Errorf("Percentile(100) = %v, want 5", got)
	}
	if got := Percentile(nil, 50); got != 0 {
		t.Errorf("Percentile(nil) = %v, want 0", got)
	}
	if Clamp(1.5, 0.8, 1.3) != 1.3 || Clamp(-2, 0, 10) != 0 {
		t.Error("Clamp did not bound the value")
	}
	if Mean([]float64{1, 2, 3}) != 2 {
		t.Error("Mean([1 2 3]) != 2")
	}
}
