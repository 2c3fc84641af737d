package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"smartbiz-ml/internal/business"
	"smartbiz-ml/internal/models"
)

// stubPrice is a PriceOptimizer whose behaviour the tests script.
type stubPrice struct {
	trained  atomic.Bool
	calls    atomic.Int32
	failures int32 // calls that fail before one succeeds
	err      error
	delay    time.Duration
	trainErr error
}

func (s *stubPrice) Train(ctx context.Context, _ models.PriceTrainingData) error {
	if s.trainErr != nil {
		return s.trainErr
	}
	s.trained.Store(true)
	return nil
}

func (s *stubPrice) Trained() bool { return s.trained.Load() }

func (s *stubPrice) Optimize(ctx context.Context, req models.PriceRequest) (models.PriceOptimization, error) {
	n := s.calls.Add(1)
	if !s.trained.Load() {
		return models.PriceOptimization{}, &models.NotTrainedError{Model: models.ModelPrice}
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil && n <= s.failures {
		return models.PriceOptimization{}, s.err
	}
	return models.PriceOptimization{ProductID: req.ProductID, RecommendedPrice: 42}, nil
}

func TestInvoke_RetriesTransientFailures(t *testing.T) {
	stub := &stubPrice{err: errors.New("backend hiccup"), failures: 2}
	e := newTestEngine(Sources{}, WithPriceModel(stub))
	if err := e.TrainModels(context.Background(), singleSale()); err != nil {
		t.Fatalf("TrainModels() error = %v", err)
	}

	res, err := e.PriceOptimization(context.Background(), "rice-1kg")
	if err != nil {
		t.Fatalf("PriceOptimization() error = %v", err)
	}
	if res.RecommendedPrice != 42 {
		t.Errorf("RecommendedPrice = %v", res.RecommendedPrice)
	}
	if got := stub.calls.Load(); got != 3 {
		t.Errorf("expected 3 calls, got %d", got)
	}
}

func TestInvoke_GivesUpAfterMaxAttempts(t *testing.T) {
	stub := &stubPrice{err: errors.New("backend down"), failures: 100}
	e := newTestEngine(Sources{}, WithPriceModel(stub))
	if err := e.TrainModels(context.Background(), singleSale()); err != nil {
		t.Fatalf("TrainModels() error = %v", err)
	}

	_, err := e.PriceOptimization(context.Background(), "rice-1kg")
	if !errors.Is(err, stub.err) {
		t.Fatalf("expected the model error, got %v", err)
	}
	if got := stub.calls.Load(); got != 3 {
		t.Errorf("expected 3 calls, got %d", got)
	}
}

func TestInvoke_NotTrainedIsNotRetried(t *testing.T) {
	stub := &stubPrice{}
	e := newTestEngine(Sources{}, WithPriceModel(stub))

	_, err := e.PriceOptimization(context.Background(), "rice-1kg")
	if !errors.Is(err, models.ErrNotTrained) {
		t.Fatalf("expected ErrNotTrained, got %v", err)
	}
	if got := stub.calls.Load(); got != 1 {
		t.Errorf("expected a single call, got %d", got)
	}
}

func TestInvoke_InvalidInputIsNotRetried(t *testing.T) {
	stub := &stubPrice{err: business.Invalid("productId", "unknown"), failures: 100}
	e := newTestEngine(Sources{}, WithPriceModel(stub))
	if err := e.TrainModels(context.Background(), singleSale()); err != nil {
		t.Fatalf("TrainModels() error = %v", err)
	}

	_, err := e.PriceOptimization(context.Background(), "ghost")
	var inv *business.InvalidInputError
	if !errors.As(err, &inv) {
		t.Fatalf("expected InvalidInputError, got %v", err)
	}
	if got := stub.calls.Load(); got != 1 {
		t.Errorf("expected a single call, got %d", got)
	}
}

func TestInvoke_Timeout(t *testing.T) {
	stub := &stubPrice{delay: 500 * time.Millisecond}
	e := newTestEngine(Sources{}, WithPriceModel(stub), WithCallTimeout(20*time.Millisecond))
	if err := e.TrainModels(context.Background(), singleSale()); err != nil {
		t.Fatalf("TrainModels() error = %v", err)
	}

	start := time.Now()
	_, err := e.PriceOptimization(context.Background(), "rice-1kg")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 400*time.Millisecond {
		t.Errorf("call returned after %v, timeout not honoured", elapsed)
	}
}

func TestInvoke_CancelledContext(t *testing.T) {
	e := newTestEngine(Sources{})
	if err := e.TrainModels(context.Background(), singleSale()); err != nil {
		t.Fatalf("TrainModels() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := e.SalesForecast(ctx, "weekly"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestTrainModels_FailureDoesNotStopOthers(t *testing.T) {
	stub := &stubPrice{trainErr: errors.New("no price feed")}
	e := newTestEngine(Sources{}, WithPriceModel(stub))

	err := e.TrainModels(context.Background(), singleSale())
	if !errors.Is(err, stub.trainErr) {
		t.Fatalf("expected joined training error, got %v", err)
	}

	st := e.Status()
	for _, model := range models.Names {
		want := model != models.ModelPrice
		if st.Models[model] != want {
			t.Errorf("%s trained = %v, want %v", model, st.Models[model], want)
		}
	}
	if st.LastRun == nil || st.LastRun.Models[models.ModelPrice] != "no price feed" {
		t.Errorf("unexpected run record %+v", st.LastRun)
	}
}

func TestDashboard_IsolatesFailingModel(t *testing.T) {
	stub := &stubPrice{err: errors.New("price service down"), failures: 100}
	e := newTestEngine(Sources{}, WithPriceModel(stub))
	if err := e.TrainModels(context.Background(), singleSale()); err != nil {
		t.Fatalf("TrainModels() error = %v", err)
	}

	d := e.Dashboard(context.Background(), DashboardRequest{ProductID: "rice-1kg"})
	if d.Price != nil {
		t.Errorf("failed model should leave its result empty, got %+v", d.Price)
	}
	if len(d.Errors) != 1 || d.Errors[models.ModelPrice] == "" {
		t.Fatalf("expected only the price error, got %v", d.Errors)
	}
	if d.Demand == nil || d.Customers == nil || d.Inventory == nil || d.Churn == nil || d.Sales == nil {
		t.Fatalf("healthy models missing from dashboard: %+v", d)
	}
	if len(d.Demand.Forecast) != 30 || len(d.Sales.Forecast) != 30 {
		t.Errorf("defaults not applied: %d demand, %d sales points", len(d.Demand.Forecast), len(d.Sales.Forecast))
	}
}

func TestEngine_ConcurrentGetters(t *testing.T) {
	e := newTestEngine(Sources{})
	if err := e.TrainModels(context.Background(), singleSale()); err != nil {
		t.Fatalf("TrainModels() error = %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 10; i++ {
		wg.Add(4)
		go func() {
			defer wg.Done()
			_, err := e.DemandForecast(context.Background(), "rice-1kg", 7)
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := e.SalesForecast(context.Background(), "monthly")
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := e.CustomerInsights(context.Background(), "")
			errs <- err
		}()
		go func() {
			defer wg.Done()
			errs <- e.TrainModels(context.Background(), singleSale())
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("concurrent call failed: %v", err)
		}
	}
}
