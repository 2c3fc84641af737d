package engine

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"smartbiz-ml/internal/models"
)

// DashboardRequest selects the parameters of the per-model getters.
type DashboardRequest struct {
	ProductID    string `json:"productId"`
	ForecastDays int    `json:"forecastDays"`
	CustomerID   string `json:"customerId,omitempty"`
	Period       string `json:"period"`
}

// Dashboard collects every insight. A model that fails leaves its field nil
// and records the error under its name.
type Dashboard struct {
	Demand    *models.DemandForecast        `json:"demandForecast,omitempty"`
	Customers *models.CustomerInsights      `json:"customerInsights,omitempty"`
	Price     *models.PriceOptimization     `json:"priceOptimization,omitempty"`
	Inventory *models.InventoryOptimization `json:"inventoryOptimization,omitempty"`
	Churn     *models.ChurnPrediction       `json:"churnPrediction,omitempty"`
	Sales     *models.SalesForecast         `json:"salesForecast,omitempty"`
	Errors    map[string]string             `json:"errors,omitempty"`
}

// collect runs one getter and stores either its result or its error.
func collect[T any](dst **T, model string, record func(string, error), call func() (T, error)) func() error {
	return func() error {
		v, err := call()
		if err != nil {
			record(model, err)
			return nil
		}
		*dst = &v
		return nil
	}
}

// Dashboard runs all six getters concurrently. A failure in one never blocks
// or cancels the others.
func (e *Engine) Dashboard(ctx context.Context, req DashboardRequest) Dashboard {
	if req.ForecastDays <= 0 {
		req.ForecastDays = 30
	}
	if req.Period == "" {
		req.Period = string(models.PeriodDaily)
	}

	var (
		out Dashboard
		mu  sync.Mutex
		g   errgroup.Group
	)
	record := func(model string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if out.Errors == nil {
			out.Errors = make(map[string]string)
		}
		out.Errors[model] = err.Error()
	}

	g.Go(collect(&out.Demand, models.ModelDemand, record, func() (models.DemandForecast, error) {
		return e.DemandForecast(ctx, req.ProductID, req.ForecastDays)
	}))
	g.Go(collect(&out.Customers, models.ModelSegmentation, record, func() (models.CustomerInsights, error) {
		return e.CustomerInsights(ctx, req.CustomerID)
	}))
	g.Go(collect(&out.Price, models.ModelPrice, record, func() (models.PriceOptimization, error) {
		return e.PriceOptimization(ctx, req.ProductID)
	}))
	g.Go(collect(&out.Inventory, models.ModelInventory, record, func() (models.InventoryOptimization, error) {
		return e.InventoryOptimization(ctx)
	}))
	g.Go(collect(&out.Churn, models.ModelChurn, record, func() (models.ChurnPrediction, error) {
		return e.ChurnPrediction(ctx)
	}))
	g.Go(collect(&out.Sales, models.ModelSales, record, func() (models.SalesForecast, error) {
		return e.SalesForecast(ctx, req.Period)
	}))
	_ = g.Wait()
	return out
}
