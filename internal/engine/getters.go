package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"smartbiz-ml/internal/business"
	"smartbiz-ml/internal/models"
	"smartbiz-ml/internal/sources"
	"smartbiz-ml/internal/stats"
)

const (
	// inventoryDemandHorizon is the forecast window averaged into a daily demand for inventory.
	inventoryDemandHorizon = 7
	activityWindow         = 30 * 24 * time.Hour
)

// DemandForecast forecasts daily demand of one product for days days from today.
func (e *Engine) DemandForecast(ctx context.Context, productID string, days int) (models.DemandForecast, error) {
	sales, err := e.src.Sales.Sales(ctx)
	if err != nil {
		return models.DemandForecast{}, fmt.Errorf("%s: sales history: %w", models.ModelDemand, err)
	}
	req := models.DemandRequest{
		ProductID:      productID,
		ForecastDays:   days,
		CurrentDate:    e.clock(),
		HistoricalData: business.SalesFor(sales, productID),
	}
	return invoke(ctx, e, models.ModelDemand, func(ctx context.Context) (models.DemandForecast, error) {
		return e.demand.Predict(ctx, req)
	})
}

// CustomerInsights returns the segmentation and, when customerID is set, that
// customer's segment and recommendations.
func (e *Engine) CustomerInsights(ctx context.Context, customerID string) (models.CustomerInsights, error) {
	req := models.InsightsRequest{
		CustomerID:          customerID,
		IncludeSegmentation: true,
		IncludePredictions:  true,
		Now:                 e.clock(),
	}
	return invoke(ctx, e, models.ModelSegmentation, func(ctx context.Context) (models.CustomerInsights, error) {
		return e.segmentation.Analyze(ctx, req)
	})
}

// PriceOptimization recommends a price for productID against current competitor prices.
func (e *Engine) PriceOptimization(ctx context.Context, productID string) (models.PriceOptimization, error) {
	competitors, err := e.src.Market.CompetitorPrices(ctx, productID)
	if err != nil {
		return models.PriceOptimization{}, fmt.Errorf("%s: competitor prices: %w", models.ModelPrice, err)
	}
	external, err := e.src.Context.ExternalFactors(ctx, e.clock())
	if err != nil {
		return models.PriceOptimization{}, fmt.Errorf("%s: market context: %w", models.ModelPrice, err)
	}
	inventory, err := e.src.Inventory.Inventory(ctx)
	if err != nil {
		return models.PriceOptimization{}, fmt.Errorf("%s: inventory: %w", models.ModelPrice, err)
	}

	req := models.PriceRequest{
		ProductID:        productID,
		MarketConditions: sources.MarketConditionsFrom(external),
		CompetitorPrices: competitors,
	}
	for _, r := range inventory {
		if r.ProductID == productID && r.UnitPrice > 0 {
			req.CurrentPrice = r.UnitPrice
		}
	}
	return invoke(ctx, e, models.ModelPrice, func(ctx context.Context) (models.PriceOptimization, error) {
		return e.price.Optimize(ctx, req)
	})
}

// dailyDemand averages a short demand forecast per product. Products the
// demand model cannot forecast are left out so inventory falls back to sales velocity.
func (e *Engine) dailyDemand(ctx context.Context, inventory []business.InventoryRecord, now time.Time) map[string]float64 {
	out := make(map[string]float64, len(inventory))
	for _, r := range inventory {
		f, err := e.demand.Predict(ctx, models.DemandRequest{ProductID: r.ProductID, ForecastDays: inventoryDemandHorizon, CurrentDate: now})
		if err != nil {
			log.Debug().Err(err).Str("product", r.ProductID).Msg("No demand forecast, using sales velocity")
			continue
		}
		total := 0
		for _, p := range f.Forecast {
			total += p.PredictedDemand
		}
		out[r.ProductID] = float64(total) / float64(len(f.Forecast))
	}
	return out
}

// InventoryOptimization proposes stock actions for the current inventory.
func (e *Engine) InventoryOptimization(ctx context.Context) (models.InventoryOptimization, error) {
	inventory, err := e.src.Inventory.Inventory(ctx)
	if err != nil {
		return models.InventoryOptimization{}, fmt.Errorf("%s: inventory: %w", models.ModelInventory, err)
	}
	suppliers, err := e.src.Market.Suppliers(ctx)
	if err != nil {
		return models.InventoryOptimization{}, fmt.Errorf("%s: suppliers: %w", models.ModelInventory, err)
	}
	storage, err := e.src.Market.StorageConstraints(ctx)
	if err != nil {
		return models.InventoryOptimization{}, fmt.Errorf("%s: storage constraints: %w", models.ModelInventory, err)
	}

	now := e.clock()
	req := models.InventoryRequest{
		CurrentInventory:   inventory,
		DemandForecast:     e.dailyDemand(ctx, inventory, now),
		SupplierData:       suppliers,
		StorageConstraints: storage,
		Now:                now,
	}
	return invoke(ctx, e, models.ModelInventory, func(ctx context.Context) (models.InventoryOptimization, error) {
		return e.inventory.Optimize(ctx, req)
	})
}

// ChurnPrediction scores the current customer base. With no customers in the
// store it scores the customers seen at training time.
func (e *Engine) ChurnPrediction(ctx context.Context) (models.ChurnPrediction, error) {
	customers, err := e.src.Customers.Customers(ctx)
	if err != nil {
		return models.ChurnPrediction{}, fmt.Errorf("%s: customers: %w", models.ModelChurn, err)
	}
	txs, err := e.src.Customers.Transactions(ctx)
	if err != nil {
		return models.ChurnPrediction{}, fmt.Errorf("%s: transactions: %w", models.ModelChurn, err)
	}

	now := e.clock()
	metrics := stats.CalculateCustomerMetrics(customers, txs, now)
	byCustomer := make(map[string][]business.TransactionRecord)
	for _, t := range txs {
		byCustomer[t.CustomerID] = append(byCustomer[t.CustomerID], t)
	}

	req := models.ChurnRequest{
		Customers:         make([]models.ChurnCustomer, len(customers)),
		RecentActivity:    make(map[string]stats.OrderTrend, len(customers)),
		EngagementMetrics: stats.EngagementScores(customers, txs, now),
	}
	for i, c := range customers {
		var last time.Time
		for _, t := range byCustomer[c.ID] {
			if t.Date.After(last) {
				last = t.Date
			}
		}
		req.Customers[i] = models.ChurnCustomer{Customer: c, Metrics: metrics[i], LastPurchase: last}
		req.RecentActivity[c.ID] = stats.CalculateOrderTrend(byCustomer[c.ID], now, activityWindow)
	}
	return invoke(ctx, e, models.ModelChurn, func(ctx context.Context) (models.ChurnPrediction, error) {
		return e.churn.Predict(ctx, req)
	})
}

// SalesForecast projects total sales for a daily, weekly or monthly period.
func (e *Engine) SalesForecast(ctx context.Context, period string) (models.SalesForecast, error) {
	p, err := models.ParsePeriod(period)
	if err != nil {
		return models.SalesForecast{}, fmt.Errorf("%s: %w", models.ModelSales, err)
	}
	now := e.clock()
	external, err := e.src.Context.ExternalFactors(ctx, now)
	if err != nil {
		return models.SalesForecast{}, fmt.Errorf("%s: market context: %w", models.ModelSales, err)
	}
	req := models.SalesRequest{
		Period:       p,
		Start:        now,
		MarketTrends: sources.MarketTrendsFrom(external),
	}
	return invoke(ctx, e, models.ModelSales, func(ctx context.Context) (models.SalesForecast, error) {
		return e.sales.Forecast(ctx, req)
	})
}
