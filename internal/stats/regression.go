package stats

import (
	"errors"
	"fmt"
	"math"

	"github.com/sajari/regression"
)

// ErrInsufficientData is returned when a fit has too few usable points.
var ErrInsufficientData = errors.New("insufficient data for regression")

// TrendFit is a least-squares line over a series indexed 0..n-1.
type TrendFit struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	R2        float64 `json:"r2"`
	Mean      float64 `json:"mean"`
}

// RelativeDrift returns the fitted change over the given number of steps relative to the mean.
func (f TrendFit) RelativeDrift(steps float64) float64 {
	if f.Mean == 0 {
		return 0
	}
	return f.Slope * steps / f.Mean
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// FitTrend regresses the series on its index. At least three points are required.
func FitTrend(series []float64) (TrendFit, error) {
	if len(series) < 3 {
		return TrendFit{}, fmt.Errorf("%w: %d points", ErrInsufficientData, len(series))
	}

	var r regression.Regression
	r.SetObserved("value")
	r.SetVar(0, "index")
	for i, v := range series {
		r.Train(regression.DataPoint(v, []float64{float64(i)}))
	}
	if err := r.Run(); err != nil {
		return TrendFit{}, fmt.Errorf("trend regression: %w", err)
	}

	fit := TrendFit{
		Intercept: finiteOrZero(r.Coeff(0)),
		Slope:     finiteOrZero(r.Coeff(1)),
		R2:        finiteOrZero(r.R2),
		Mean:      Mean(series),
	}
	return fit, nil
}

// ElasticityFit is a constant-elasticity demand curve fitted on log price and log units.
type ElasticityFit struct {
	// Elasticity is reported as a positive number for normal goods.
	Elasticity float64 `json:"elasticity"`
	R2         float64 `json:"r2"`
	Points     int     `json:"points"`
}

// EstimateElasticity fits ln(units) = a + b*ln(price) and returns -b.
// It needs three positive points with at least two distinct prices.
func EstimateElasticity(points []PricePoint) (ElasticityFit, error) {
	var usable []PricePoint
	distinct := make(map[float64]struct{})
	for _, p := range points {
		if p.Price <= 0 || p.Units <= 0 {
			continue
		}
		usable = append(usable, p)
		distinct[p.Price] = struct{}{}
	}
	if len(usable) < 3 || len(distinct) < 2 {
		return ElasticityFit{}, fmt.Errorf("%w: %d points, %d distinct prices", ErrInsufficientData, len(usable), len(distinct))
	}

	var r regression.Regression
	r.SetObserved("log units")
	r.SetVar(0, "log price")
	for _, p := range usable {
		r.Train(regression.DataPoint(math.Log(p.Units), []float64{math.Log(p.Price)}))
	}
	if err := r.Run(); err != nil {
		return ElasticityFit{}, fmt.Errorf("elasticity regression: %w", err)
	}

	slope := r.Coeff(1)
	if math.IsNaN(slope) || math.IsInf(slope, 0) {
		return ElasticityFit{}, fmt.Errorf("%w: degenerate price variation", ErrInsufficientData)
	}
	return ElasticityFit{
		Elasticity: -slope,
		R2:         finiteOrZero(r.R2),
		Points:     len(usable),
	}, nil
}
