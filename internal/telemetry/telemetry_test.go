package telemetry

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Result().Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(body)
}

func TestMetricsExposition(t *testing.T) {
	m := New()
	m.ObserveTrain("demand_forecasting", OutcomeOK, 2*time.Millisecond)
	m.ObserveInference("demand_forecasting", OutcomeOK, time.Millisecond)
	m.ObserveInference("demand_forecasting", OutcomeNotTrained, time.Millisecond)
	m.TrainingCompleted(time.Unix(1700000000, 0))

	body := scrape(t, m)
	for _, want := range []string{
		`smartbiz_model_train_total{model="demand_forecasting",outcome="ok"} 1`,
		`smartbiz_model_inference_total{model="demand_forecasting",outcome="not_trained"} 1`,
		`smartbiz_model_trained{model="demand_forecasting"} 1`,
		`smartbiz_model_call_duration_seconds_count{model="demand_forecasting",op="inference"} 2`,
		`smartbiz_last_training_timestamp_seconds 1.7e+09`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("missing %q in exposition:\n%s", want, body)
		}
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveTrain("x", OutcomeError, time.Second)
	m.ObserveInference("x", OutcomeError, time.Second)
	m.TrainingCompleted(time.Now())
}
