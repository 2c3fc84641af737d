package models

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
)

// Model names, also used as metric and log labels.
const (
	ModelDemand       = "demand_forecasting"
	ModelSegmentation = "customer_segmentation"
	ModelPrice        = "price_optimization"
	ModelInventory    = "inventory_optimization"
	ModelChurn        = "churn_prediction"
	ModelSales        = "sales_forecasting"
)

// Names lists every model in the order the engine trains and reports them.
var Names = []string{ModelDemand, ModelSegmentation, ModelPrice, ModelInventory, ModelChurn, ModelSales}

// ErrNotTrained matches every NotTrainedError through errors.Is.
var ErrNotTrained = errors.New("model not trained")

// NotTrainedError is returned by an inference call made before Train.
type NotTrainedError struct {
	Model string
}

func (e *NotTrainedError) Error() string {
	return fmt.Sprintf("model not trained: %s", e.Model)
}

func (e *NotTrainedError) Is(target error) bool {
	return target == ErrNotTrained
}

// DemandForecaster predicts per-product daily demand.
type DemandForecaster interface {
	Train(ctx context.Context, data DemandTrainingData) error
	Predict(ctx context.Context, req DemandRequest) (DemandForecast, error)
	Trained() bool
}

// CustomerSegmenter partitions customers into named segments.
type CustomerSegmenter interface {
	Train(ctx context.Context, data SegmentationTrainingData) error
	Analyze(ctx context.Context, req InsightsRequest) (CustomerInsights, error)
	Trained() bool
}

// PriceOptimizer recommends a price for one product.
type PriceOptimizer interface {
	Train(ctx context.Context, data PriceTrainingData) error
	Optimize(ctx context.Context, req PriceRequest) (PriceOptimization, error)
	Trained() bool
}

// InventoryOptimizer recommends stock actions for the current inventory.
type InventoryOptimizer interface {
	Train(ctx context.Context, data InventoryTrainingData) error
	Optimize(ctx context.Context, req InventoryRequest) (InventoryOptimization, error)
	Trained() bool
}

// ChurnPredictor scores customers by churn probability.
type ChurnPredictor interface {
	Train(ctx context.Context, data ChurnTrainingData) error
	Predict(ctx context.Context, req ChurnRequest) (ChurnPrediction, error)
	Trained() bool
}

// SalesForecaster projects total sales for a period granularity.
type SalesForecaster interface {
	Train(ctx context.Context, data SalesTrainingData) error
	Forecast(ctx context.Context, req SalesRequest) (SalesForecast, error)
	Trained() bool
}

// Random is the noise source of the heuristic models.
type Random interface {
	Float64() float64
}

// LockedRand is a seeded generator that is safe for concurrent use.
type LockedRand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewLockedRand(seed int64) *LockedRand {
	return &LockedRand{rng: rand.New(rand.NewSource(seed))}
}

func (l *LockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.Float64()
}

// state is the trained flag shared by every default model. Fitted parameters
// live next to it and are guarded by the same lock.
type state struct {
	mu      sync.RWMutex
	trained bool
}

func (s *state) Trained() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.trained
}

// between returns lo + r*(hi-lo).
func between(r Random, lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}

func roundInt(v float64) int {
	return int(math.Round(v))
}
