package engine

import (
	"time"

	"smartbiz-ml/internal/models"
	"smartbiz-ml/internal/retry"
	"smartbiz-ml/internal/telemetry"
)

const (
	DefaultCallTimeout      = 5 * time.Second
	DefaultTrainConcurrency = 3
)

type options struct {
	seed             int64
	clock            func() time.Time
	callTimeout      time.Duration
	retry            retry.Config
	trainConcurrency int
	metrics          *telemetry.Metrics

	demand       models.DemandForecaster
	segmentation models.CustomerSegmenter
	price        models.PriceOptimizer
	inventory    models.InventoryOptimizer
	churn        models.ChurnPredictor
	sales        models.SalesForecaster
}

// Option configures an Engine.
type Option func(*options)

// WithSeed seeds the noise of the default models. Zero seeds from the clock.
func WithSeed(seed int64) Option {
	return func(o *options) { o.seed = seed }
}

// WithClock replaces time.Now as the reference instant of every call.
func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

// WithCallTimeout bounds each model call including its retries.
func WithCallTimeout(d time.Duration) Option {
	return func(o *options) { o.callTimeout = d }
}

func WithRetry(cfg retry.Config) Option {
	return func(o *options) { o.retry = cfg }
}

// WithTrainConcurrency limits how many models train at once.
func WithTrainConcurrency(n int) Option {
	return func(o *options) { o.trainConcurrency = n }
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func WithDemandModel(m models.DemandForecaster) Option {
	return func(o *options) { o.demand = m }
}

func WithSegmentationModel(m models.CustomerSegmenter) Option {
	return func(o *options) { o.segmentation = m }
}

func WithPriceModel(m models.PriceOptimizer) Option {
	return func(o *options) { o.price = m }
}

func WithInventoryModel(m models.InventoryOptimizer) Option {
	return func(o *options) { o.inventory = m }
}

func WithChurnModel(m models.ChurnPredictor) Option {
	return func(o *options) { o.churn = m }
}

func WithSalesModel(m models.SalesForecaster) Option {
	return func(o *options) { o.sales = m }
}
