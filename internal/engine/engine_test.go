package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"smartbiz-ml/internal/business"
	"smartbiz-ml/internal/models"
	"smartbiz-ml/internal/retry"
	"smartbiz-ml/internal/sources"
)

var testNow = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

func fastRetry() retry.Config {
	return retry.Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, BackoffFactor: 2}
}

func newTestEngine(src Sources, opts ...Option) *Engine {
	base := []Option{WithSeed(42), WithClock(func() time.Time { return testNow }), WithRetry(fastRetry())}
	return New(src, append(base, opts...)...)
}

func singleSale() business.Data {
	return business.Data{
		Sales: []business.SalesRecord{
			{Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Amount: 500, ProductID: "rice-1kg", CustomerID: "c1"},
		},
	}
}

func TestEngine_SalesForecastAfterSingleSale(t *testing.T) {
	e := newTestEngine(Sources{})
	if err := e.TrainModels(context.Background(), singleSale()); err != nil {
		t.Fatalf("TrainModels() error = %v", err)
	}

	res, err := e.SalesForecast(context.Background(), "daily")
	if err != nil {
		t.Fatalf("SalesForecast() error = %v", err)
	}
	if len(res.Forecast) != 30 {
		t.Fatalf("expected 30 points, got %d", len(res.Forecast))
	}
	for i, p := range res.Forecast {
		if p.PredictedSales <= 0 {
			t.Errorf("point %d: predictedSales = %d", i, p.PredictedSales)
		}
		if p.Confidence < 0.85 || p.Confidence > 0.95 {
			t.Errorf("point %d: confidence = %v", i, p.Confidence)
		}
	}
}

func TestEngine_InsightsWithZeroCustomers(t *testing.T) {
	e := newTestEngine(Sources{})
	if err := e.TrainModels(context.Background(), business.Data{}); err != nil {
		t.Fatalf("TrainModels() error = %v", err)
	}

	res, err := e.CustomerInsights(context.Background(), "")
	if err != nil {
		t.Fatalf("CustomerInsights() error = %v", err)
	}
	want := []string{models.SegmentVIP, models.SegmentRegular, models.SegmentNew, models.SegmentAtRisk}
	if len(res.Segments) != len(want) {
		t.Fatalf("expected %d segments, got %d", len(want), len(res.Segments))
	}
	for i, s := range res.Segments {
		if s.Name != want[i] || s.Size != 0 {
			t.Errorf("segment %d = %q (size %d)", i, s.Name, s.Size)
		}
	}
}

func TestEngine_GettersBeforeTraining(t *testing.T) {
	e := newTestEngine(Sources{})
	ctx := context.Background()

	calls := map[string]func() error{
		models.ModelDemand:       func() error { _, err := e.DemandForecast(ctx, "rice-1kg", 7); return err },
		models.ModelSegmentation: func() error { _, err := e.CustomerInsights(ctx, ""); return err },
		models.ModelPrice:        func() error { _, err := e.PriceOptimization(ctx, "rice-1kg"); return err },
		models.ModelInventory:    func() error { _, err := e.InventoryOptimization(ctx); return err },
		models.ModelChurn:        func() error { _, err := e.ChurnPrediction(ctx); return err },
		models.ModelSales:        func() error { _, err := e.SalesForecast(ctx, "weekly"); return err },
	}
	for model, call := range calls {
		t.Run(model, func(t *testing.T) {
			err := call()
			var nt *models.NotTrainedError
			if !errors.As(err, &nt) || nt.Model != model {
				t.Fatalf("expected NotTrainedError for %s, got %v", model, err)
			}
			if !strings.HasPrefix(err.Error(), model+": ") {
				t.Errorf("error not wrapped with model name: %v", err)
			}
		})
	}

	for model, trained := range e.Status().Models {
		if trained {
			t.Errorf("%s reported trained before TrainModels", model)
		}
	}
}

func TestEngine_RejectsInvalidData(t *testing.T) {
	e := newTestEngine(Sources{})
	err := e.TrainModels(context.Background(), business.Data{
		Inventory: []business.InventoryRecord{{ProductID: "rice-1kg", CurrentStock: -1}},
	})
	var inv *business.InvalidInputError
	if !errors.As(err, &inv) || inv.Field != "currentStock" {
		t.Fatalf("expected invalid currentStock, got %v", err)
	}
	if e.Status().LastRun != nil {
		t.Error("a rejected snapshot must not record a training run")
	}
}

func TestEngine_StatusAfterTraining(t *testing.T) {
	e := newTestEngine(Sources{})
	if err := e.TrainModels(context.Background(), singleSale()); err != nil {
		t.Fatalf("TrainModels() error = %v", err)
	}
	st := e.Status()
	if st.LastRun == nil || st.LastRun.ID == "" || len(st.LastRun.Models) != len(models.Names) {
		t.Fatalf("unexpected last run %+v", st.LastRun)
	}
	for model, trained := range st.Models {
		if !trained {
			t.Errorf("%s not trained", model)
		}
		if st.LastRun.Models[model] != "ok" {
			t.Errorf("%s run status = %q", model, st.LastRun.Models[model])
		}
	}
}

func TestEngine_DeterministicWithSeed(t *testing.T) {
	run := func() []int {
		e := newTestEngine(Sources{})
		if err := e.TrainModels(context.Background(), singleSale()); err != nil {
			t.Fatalf("TrainModels() error = %v", err)
		}
		res, err := e.DemandForecast(context.Background(), "rice-1kg", 14)
		if err != nil {
			t.Fatalf("DemandForecast() error = %v", err)
		}
		out := make([]int, len(res.Forecast))
		for i, p := range res.Forecast {
			out[i] = p.PredictedDemand
		}
		return out
	}
	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("forecasts differ at %d: %v vs %v", i, a, b)
		}
	}
}

func TestEngine_UsesStoreCollaborators(t *testing.T) {
	store := sources.NewStore()
	store.Append(business.Data{
		Inventory: []business.InventoryRecord{
			{ProductID: "rice-1kg", Name: "Rice 1kg", CurrentStock: 2, MinStock: 10, MaxStock: 200, UnitCost: 80, UnitPrice: 120},
		},
		CompetitorPrices: []business.CompetitorPrice{
			{ProductID: "rice-1kg", Competitor: "A", Price: 90},
			{ProductID: "rice-1kg", Competitor: "B", Price: 110},
		},
	})
	e := newTestEngine(FromStore(store, sources.NewStaticContext()))
	if err := e.TrainModels(context.Background(), store.Snapshot()); err != nil {
		t.Fatalf("TrainModels() error = %v", err)
	}

	price, err := e.PriceOptimization(context.Background(), "rice-1kg")
	if err != nil {
		t.Fatalf("PriceOptimization() error = %v", err)
	}
	if price.CurrentPrice != 120 || price.RecommendedPrice != 95 {
		t.Errorf("unexpected price result %+v", price)
	}

	inv, err := e.InventoryOptimization(context.Background())
	if err != nil {
		t.Fatalf("InventoryOptimization() error = %v", err)
	}
	if len(inv.Recommendations) != 1 {
		t.Fatalf("expected one recommendation, got %+v", inv.Recommendations)
	}
	rec := inv.Recommendations[0]
	if rec.CurrentStock >= rec.ReorderPoint || (rec.Action != models.ActionUrgentReorder && rec.Action != models.ActionIncrease) {
		t.Errorf("stock below reorder point must be replenished, got %+v", rec)
	}
}

func TestEngine_ChurnFromStore(t *testing.T) {
	store := sources.NewStore()
	store.Append(business.Data{
		Customers: []business.CustomerRecord{
			{ID: "loyal", Name: "Asha", RegistrationDate: testNow.AddDate(-2, 0, 0)},
			{ID: "gone", Name: "Ravi", RegistrationDate: testNow.AddDate(-2, 0, 0)},
		},
		Transactions: []business.TransactionRecord{
			{ID: "t1", CustomerID: "loyal", Amount: 500, Date: testNow.AddDate(0, 0, -3)},
			{ID: "t2", CustomerID: "loyal", Amount: 500, Date: testNow.AddDate(0, 0, -10)},
			{ID: "t3", CustomerID: "loyal", Amount: 500, Date: testNow.AddDate(0, 0, -20)},
			{ID: "t4", CustomerID: "gone", Amount: 900, Date: testNow.AddDate(0, 0, -300)},
			{ID: "t5", CustomerID: "gone", Amount: 900, Date: testNow.AddDate(0, 0, -320)},
		},
	})
	e := newTestEngine(FromStore(store, nil))
	if err := e.TrainModels(context.Background(), store.Snapshot()); err != nil {
		t.Fatalf("TrainModels() error = %v", err)
	}

	res, err := e.ChurnPrediction(context.Background())
	if err != nil {
		t.Fatalf("ChurnPrediction() error = %v", err)
	}
	if len(res.HighRiskCustomers) != 1 || res.HighRiskCustomers[0].CustomerID != "gone" {
		t.Fatalf("expected only the lapsed customer at risk, got %+v", res.HighRiskCustomers)
	}
	if res.HighRiskCustomers[0].LastPurchase == nil {
		t.Error("LastPurchase should be set from transactions")
	}
}
