package models

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"smartbiz-ml/internal/business"
	"smartbiz-ml/internal/stats"
)

const (
	defaultBaselineDemand = 75.0
	defaultDemandTrend    = 1.05
	demandReferenceAcc    = 0.87
	minTrendFitPoints     = 14
	maxForecastDays       = 365
)

// DemandTrainingData is the context captured by the demand model.
type DemandTrainingData struct {
	SalesHistory    []business.SalesRecord
	Seasonality     stats.Seasonality
	ExternalFactors business.ExternalFactors
}

// DemandRequest asks for a daily forecast of one product.
type DemandRequest struct {
	ProductID    string
	ForecastDays int
	CurrentDate  time.Time
	// HistoricalData overrides the trained history of the product when non-empty.
	HistoricalData []business.SalesRecord
}

// DemandPoint is one forecast day.
type DemandPoint struct {
	Date            time.Time `json:"date"`
	PredictedDemand int       `json:"predictedDemand"`
	Confidence      float64   `json:"confidence"`
	Seasonal        float64   `json:"seasonal"`
}

// DemandFactors reports the multipliers behind a forecast.
type DemandFactors struct {
	// Seasonal is the mean seasonal multiplier over the horizon; each point carries its own.
	Seasonal float64 `json:"seasonal"`
	Trend    float64 `json:"trend"`
	// External is the contextual impact estimate. It is reported, not applied.
	External float64 `json:"external"`
}

// DemandForecast is the result of DemandForecaster.Predict.
type DemandForecast struct {
	ProductID string        `json:"productId"`
	Forecast  []DemandPoint `json:"forecast"`
	Accuracy  float64       `json:"accuracy"`
	Baseline  float64       `json:"baseline"`
	Factors   DemandFactors `json:"factors"`
}

// DemandModel is the default heuristic DemandForecaster.
type DemandModel struct {
	state
	rng      Random
	history  []business.SalesRecord
	external business.ExternalFactors
}

func NewDemandModel(rng Random) *DemandModel {
	return &DemandModel{rng: rng}
}

func (m *DemandModel) Train(ctx context.Context, data DemandTrainingData) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.history = data.SalesHistory
	m.external = data.ExternalFactors
	m.trained = true

	log.Debug().Str("model", ModelDemand).Int("sales", len(data.SalesHistory)).Int("festivals", len(data.ExternalFactors.Festivals)).Msg("Model trained")
	return nil
}

// DemandSeasonalMultiplier is the festival uplift for a calendar date.
func DemandSeasonalMultiplier(date time.Time) float64 {
	switch date.Month() {
	case time.October, time.November, time.December:
		return 1.3
	case time.March, time.April:
		return 1.1
	}
	return 1.0
}

// DemandTrendMultiplier fits the historical slope when enough days exist and
// otherwise returns the reference 5% growth.
func DemandTrendMultiplier(series stats.DailySeries) float64 {
	if len(series.Values) < minTrendFitPoints {
		return defaultDemandTrend
	}
	fit, err := stats.FitTrend(series.Values)
	if err != nil || fit.Mean <= 0 {
		return defaultDemandTrend
	}
	return stats.Clamp(1+fit.RelativeDrift(30), 0.8, 1.3)
}

// ExternalImpact estimates the combined effect of festivals in the window and
// market events naming the product.
func ExternalImpact(factors business.ExternalFactors, productID string, from time.Time, days int) float64 {
	impact := 1.0
	end := from.AddDate(0, 0, days)
	for _, f := range factors.Festivals {
		if f.Date.Before(from) || !f.Date.Before(end) {
			continue
		}
		switch f.Impact {
		case "high":
			impact += 0.05
		case "medium":
			impact += 0.03
		default:
			impact += 0.01
		}
	}
	id := strings.ToLower(productID)
	for _, ev := range factors.MarketEvents {
		for _, p := range ev.Products {
			if p == "" || !strings.Contains(id, strings.ToLower(p)) {
				continue
			}
			if ev.Impact == "negative" {
				impact -= 0.02
			} else {
				impact += 0.02
			}
		}
	}
	return impact
}

func (m *DemandModel) Predict(ctx context.Context, req DemandRequest) (DemandForecast, error) {
	m.mu.RLock()
	trained, history, external := m.trained, m.history, m.external
	m.mu.RUnlock()

	if !trained {
		return DemandForecast{}, &NotTrainedError{Model: ModelDemand}
	}
	if err := ctx.Err(); err != nil {
		return DemandForecast{}, err
	}
	switch {
	case req.ProductID == "":
		return DemandForecast{}, business.Invalid("productId", "missing")
	case req.ForecastDays < 1 || req.ForecastDays > maxForecastDays:
		return DemandForecast{}, business.Invalid("forecastDays", "must be between 1 and %d, got %d", maxForecastDays, req.ForecastDays)
	case req.CurrentDate.IsZero():
		return DemandForecast{}, business.Invalid("currentDate", "missing")
	}

	source := req.HistoricalData
	if len(source) == 0 {
		source = history
	}
	series := stats.DailyDemand(source, req.ProductID)

	baseline := defaultBaselineDemand
	if len(series.Values) > 0 {
		baseline = stats.Mean(series.Values)
	}
	trend := DemandTrendMultiplier(series)
	// Points keep the caller's instant; the festival window is counted in whole days.
	start := req.CurrentDate

	points := make([]DemandPoint, req.ForecastDays)
	seasonalSum := 0.0
	for i := range points {
		day := start.AddDate(0, 0, i)
		seasonal := DemandSeasonalMultiplier(day)
		noise := between(m.rng, -0.1, 0.1)
		points[i] = DemandPoint{
			Date:            day,
			PredictedDemand: roundInt(baseline * seasonal * trend * (1 + noise)),
			Confidence:      between(m.rng, 0.85, 0.95),
			Seasonal:        seasonal,
		}
		seasonalSum += seasonal
	}

	return DemandForecast{
		ProductID: req.ProductID,
		Forecast:  points,
		Accuracy:  holdoutAccuracy(series, DemandSeasonalMultiplier, demandReferenceAcc),
		Baseline:  baseline,
		Factors: DemandFactors{
			Seasonal: seasonalSum / float64(len(points)),
			Trend:    trend,
			External: ExternalImpact(external, req.ProductID, business.Day(start), req.ForecastDays),
		},
	}, nil
}
