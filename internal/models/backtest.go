package models

import (
	"math"
	"time"

	"smartbiz-ml/internal/stats"
)

const (
	minBacktestPoints = 10
	holdoutShare      = 0.2
)

// holdoutAccuracy scores a seasonal-mean forecaster against the tail of a daily series.
// The first 80% of the series is the training window; accuracy is 1 - MAPE on the rest.
// Short series and series with no positive actuals in the holdout return reference.
func holdoutAccuracy(series stats.DailySeries, seasonal func(time.Time) float64, reference float64) float64 {
	n := len(series.Values)
	if n < minBacktestPoints {
		return reference
	}
	cut := n - int(math.Ceil(float64(n)*holdoutShare))
	train := series.Values[:cut]

	// De-seasonalise the training mean so the holdout can be re-seasonalised per date.
	seasonSum := 0.0
	for i := range train {
		seasonSum += seasonal(series.Start.AddDate(0, 0, i))
	}
	level := stats.Mean(train) / (seasonSum / float64(len(train)))

	errSum, count := 0.0, 0
	for i := cut; i < n; i++ {
		actual := series.Values[i]
		if actual <= 0 {
			continue
		}
		predicted := level * seasonal(series.Start.AddDate(0, 0, i))
		errSum += math.Abs(actual-predicted) / actual
		count++
	}
	if count == 0 {
		return reference
	}
	return stats.Clamp(1-errSum/float64(count), 0, 1)
}
