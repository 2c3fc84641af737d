package models

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fixedRand always returns the same value.
type fixedRand float64

func (f fixedRand) Float64() float64 { return float64(f) }

var testNow = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

func TestInferenceBeforeTrain(t *testing.T) {
	ctx := context.Background()
	rng := fixedRand(0.5)

	tests := []struct {
		name  string
		model string
		infer func() error
	}{
		{"Demand", ModelDemand, func() error {
			_, err := NewDemandModel(rng).Predict(ctx, DemandRequest{ProductID: "p", ForecastDays: 7, CurrentDate: testNow})
			return err
		}},
		{"Segmentation", ModelSegmentation, func() error {
			_, err := NewSegmentationModel().Analyze(ctx, InsightsRequest{IncludeSegmentation: true})
			return err
		}},
		{"Price", ModelPrice, func() error {
			_, err := NewPriceModel().Optimize(ctx, PriceRequest{ProductID: "p", CurrentPrice: 10})
			return err
		}},
		{"Inventory", ModelInventory, func() error {
			_, err := NewInventoryModel().Optimize(ctx, InventoryRequest{})
			return err
		}},
		{"Churn", ModelChurn, func() error {
			_, err := NewChurnModel().Predict(ctx, ChurnRequest{})
			return err
		}},
		{"Sales", ModelSales, func() error {
			_, err := NewSalesModel(rng).Forecast(ctx, SalesRequest{Period: PeriodDaily, Start: testNow})
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.infer()
			if !errors.Is(err, ErrNotTrained) {
				t.Fatalf("expected ErrNotTrained, got %v", err)
			}
			var nt *NotTrainedError
			if !errors.As(err, &nt) || nt.Model != tt.model {
				t.Errorf("expected NotTrainedError for %s, got %v", tt.model, err)
			}
		})
	}
}

func TestInferenceAfterEmptyTrain(t *testing.T) {
	ctx := context.Background()
	rng := fixedRand(0.5)

	demand := NewDemandModel(rng)
	seg := NewSegmentationModel()
	price := NewPriceModel()
	inv := NewInventoryModel()
	churn := NewChurnModel()
	sales := NewSalesModel(rng)

	for _, err := range []error{
		demand.Train(ctx, DemandTrainingData{}),
		seg.Train(ctx, SegmentationTrainingData{Now: testNow}),
		price.Train(ctx, PriceTrainingData{}),
		inv.Train(ctx, InventoryTrainingData{}),
		churn.Train(ctx, ChurnTrainingData{}),
		sales.Train(ctx, SalesTrainingData{}),
	} {
		if err != nil {
			t.Fatalf("Train() error = %v", err)
		}
	}

	for name, trained := range map[string]bool{
		"demand": demand.Trained(), "segmentation": seg.Trained(), "price": price.Trained(),
		"inventory": inv.Trained(), "churn": churn.Trained(), "sales": sales.Trained(),
	} {
		if !trained {
			t.Errorf("%s should be trained", name)
		}
	}

	if _, err := demand.Predict(ctx, DemandRequest{ProductID: "p", ForecastDays: 3, CurrentDate: testNow}); err != nil {
		t.Errorf("demand: %v", err)
	}
	if _, err := seg.Analyze(ctx, InsightsRequest{IncludeSegmentation: true}); err != nil {
		t.Errorf("segmentation: %v", err)
	}
	if _, err := price.Optimize(ctx, PriceRequest{ProductID: "p", CurrentPrice: 10}); err != nil {
		t.Errorf("price: %v", err)
	}
	if _, err := inv.Optimize(ctx, InventoryRequest{Now: testNow}); err != nil {
		t.Errorf("inventory: %v", err)
	}
	if _, err := churn.Predict(ctx, ChurnRequest{}); err != nil {
		t.Errorf("churn: %v", err)
	}
	if _, err := sales.Forecast(ctx, SalesRequest{Period: PeriodMonthly, Start: testNow}); err != nil {
		t.Errorf("sales: %v", err)
	}
}

func TestTrainHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewSalesModel(fixedRand(0))
	if err := m.Train(ctx, SalesTrainingData{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if m.Trained() {
		t.Error("model must stay untrained after a cancelled Train")
	}
}

func TestLockedRand_Deterministic(t *testing.T) {
	a, b := NewLockedRand(42), NewLockedRand(42)
	for i := 0; i < 100; i++ {
		x, y := a.Float64(), b.Float64()
		if x != y {
			t.Fatalf("draw %d differs: %v != %v", i, x, y)
		}
		if x < 0 || x >= 1 {
			t.Fatalf("draw %d out of [0,1): %v", i, x)
		}
	}
}
