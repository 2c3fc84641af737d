package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"smartbiz-ml/internal/business"
	"smartbiz-ml/internal/models"
	"smartbiz-ml/internal/sources"
	"smartbiz-ml/internal/stats"
	"smartbiz-ml/internal/telemetry"
)

// TrainingRun records the outcome of one TrainModels call.
type TrainingRun struct {
	ID        string            `json:"id"`
	StartedAt time.Time         `json:"startedAt"`
	Duration  time.Duration     `json:"duration"`
	Records   int               `json:"records"`
	Models    map[string]string `json:"models"` // model -> "ok" or error text
}

// trainingInputs are the derived inputs of every model.
type trainingInputs struct {
	demand       models.DemandTrainingData
	segmentation models.SegmentationTrainingData
	price        models.PriceTrainingData
	inventory    models.InventoryTrainingData
	churn        models.ChurnTrainingData
	sales        models.SalesTrainingData
}

func (e *Engine) deriveInputs(ctx context.Context, data business.Data, now time.Time) trainingInputs {
	external, err := e.src.Context.ExternalFactors(ctx, now)
	if err != nil {
		log.Warn().Err(err).Msg("External factors unavailable, training without context")
	}

	competitors := data.CompetitorPrices
	if len(competitors) == 0 {
		if competitors, err = e.src.Market.CompetitorPrices(ctx, ""); err != nil {
			log.Warn().Err(err).Msg("Competitor prices unavailable")
		}
	}
	suppliers := data.Suppliers
	if len(suppliers) == 0 {
		if suppliers, err = e.src.Market.Suppliers(ctx); err != nil {
			log.Warn().Err(err).Msg("Supplier terms unavailable")
		}
	}

	seasonality := stats.ExtractSeasonality(data.Sales)
	metrics := stats.CalculateCustomerMetrics(data.Customers, data.Transactions, now)

	names := make(map[string]string, len(data.Inventory))
	costs := make(map[string]float64, len(data.Inventory))
	for _, r := range data.Inventory {
		names[r.ProductID] = r.DisplayName()
		if r.UnitCost > 0 {
			costs[r.ProductID] = r.UnitCost
		}
	}

	history := stats.ExtractPriceHistory(data.Sales)
	byProduct := make(map[string][]stats.PricePoint)
	for _, p := range history {
		byProduct[p.ProductID] = append(byProduct[p.ProductID], p)
	}
	elasticity := make(map[string]float64)
	for id, points := range byProduct {
		fit, err := stats.EstimateElasticity(points)
		if err != nil || fit.Elasticity <= 0 {
			continue
		}
		elasticity[id] = fit.Elasticity
	}

	return trainingInputs{
		demand: models.DemandTrainingData{
			SalesHistory:    data.Sales,
			Seasonality:     seasonality,
			ExternalFactors: external,
		},
		segmentation: models.SegmentationTrainingData{
			Customers:    data.Customers,
			Transactions: data.Transactions,
			Metrics:      metrics,
			ProductNames: names,
			Now:          now,
		},
		price: models.PriceTrainingData{
			PriceHistory:   history,
			DemandResponse: elasticity,
			CompetitorData: competitors,
			CostData:       costs,
		},
		inventory: models.InventoryTrainingData{
			InventoryHistory:    data.Inventory,
			SalesVelocity:       stats.SalesVelocity(data.Sales),
			StockoutEvents:      stats.IdentifyStockouts(data.Inventory, data.Sales),
			SupplierPerformance: suppliers,
		},
		churn: models.ChurnTrainingData{
			CustomerFeatures: metrics,
			ChurnLabels:      stats.IdentifyChurnedCustomers(metrics),
			EngagementData:   stats.EngagementScores(data.Customers, data.Transactions, now),
			Customers:        data.Customers,
			LastPurchases:    stats.LastPurchaseDates(data.Transactions),
		},
		sales: models.SalesTrainingData{
			HistoricalSales: data.Sales,
			SeasonalFactors: seasonality,
			MarketTrends:    sources.MarketTrendsFrom(external),
		},
	}
}

// TrainModels validates data, derives every model's inputs and trains the six
// models concurrently. A failing model does not stop the others; all failures
// are joined into the returned error.
func (e *Engine) TrainModels(ctx context.Context, data business.Data) error {
	if err := data.Validate(); err != nil {
		return fmt.Errorf("invalid business data: %w", err)
	}

	started := e.clock()
	wall := time.Now()
	run := &TrainingRun{
		ID:        uuid.NewString(),
		StartedAt: started,
		Records:   len(data.Sales) + len(data.Transactions) + len(data.Inventory) + len(data.Customers),
		Models:    make(map[string]string, len(models.Names)),
	}
	logger := log.With().Str("run", run.ID).Logger()
	logger.Info().Int("sales", len(data.Sales)).Int("customers", len(data.Customers)).Int("inventory", len(data.Inventory)).Msg("Training models")

	in := e.deriveInputs(ctx, data, started)
	jobs := []struct {
		model string
		train func(context.Context) error
	}{
		{models.ModelDemand, func(ctx context.Context) error { return e.demand.Train(ctx, in.demand) }},
		{models.ModelSegmentation, func(ctx context.Context) error { return e.segmentation.Train(ctx, in.segmentation) }},
		{models.ModelPrice, func(ctx context.Context) error { return e.price.Train(ctx, in.price) }},
		{models.ModelInventory, func(ctx context.Context) error { return e.inventory.Train(ctx, in.inventory) }},
		{models.ModelChurn, func(ctx context.Context) error { return e.churn.Train(ctx, in.churn) }},
		{models.ModelSales, func(ctx context.Context) error { return e.sales.Train(ctx, in.sales) }},
	}

	var (
		mu   sync.Mutex
		errs []error
		g    errgroup.Group
	)
	g.SetLimit(e.trainConcurrency)
	for _, job := range jobs {
		g.Go(func() error {
			t0 := time.Now()
			err := job.train(ctx)
			d := time.Since(t0)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				e.metrics.ObserveTrain(job.model, telemetry.OutcomeError, d)
				errs = append(errs, fmt.Errorf("%s: %w", job.model, err))
				run.Models[job.model] = err.Error()
				logger.Error().Err(err).Str("model", job.model).Msg("Model training failed")
				return nil
			}
			e.metrics.ObserveTrain(job.model, telemetry.OutcomeOK, d)
			run.Models[job.model] = "ok"
			return nil
		})
	}
	_ = g.Wait()

	run.Duration = time.Since(wall)
	e.mu.Lock()
	e.lastRun = run
	e.mu.Unlock()
	e.metrics.TrainingCompleted(e.clock())

	if err := errors.Join(errs...); err != nil {
		return err
	}
	logger.Info().Dur("duration", run.Duration).Msg("Models trained")
	return nil
}
