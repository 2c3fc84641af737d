// Package telemetry exposes Prometheus metrics for model training and inference.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Call outcomes.
const (
	OutcomeOK         = "ok"
	OutcomeError      = "error"
	OutcomeNotTrained = "not_trained"
	OutcomeInvalid    = "invalid_input"
	OutcomeTimeout    = "timeout"
)

// Metrics holds the engine collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	trainTotal     *prometheus.CounterVec
	inferenceTotal *prometheus.CounterVec
	callDuration   *prometheus.HistogramVec
	modelTrained   *prometheus.GaugeVec
	lastTrainRun   prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.trainTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartbiz_model_train_total",
			Help: "Model training calls by outcome",
		},
		[]string{"model", "outcome"},
	)
	m.inferenceTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smartbiz_model_inference_total",
			Help: "Model inference calls by outcome",
		},
		[]string{"model", "outcome"},
	)
	m.callDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "smartbiz_model_call_duration_seconds",
			Help:    "Duration of model train and inference calls",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		},
		[]string{"model", "op"},
	)
	m.modelTrained = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "smartbiz_model_trained",
			Help: "1 when the model has been trained",
		},
		[]string{"model"},
	)
	m.lastTrainRun = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "smartbiz_last_training_timestamp_seconds",
		Help: "Unix time of the last completed training run",
	})

	m.registry.MustRegister(m.trainTotal, m.inferenceTotal, m.callDuration, m.modelTrained, m.lastTrainRun)
	return m
}

// ObserveTrain records one training call. A nil receiver is a no-op.
func (m *Metrics) ObserveTrain(model, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.trainTotal.WithLabelValues(model, outcome).Inc()
	m.callDuration.WithLabelValues(model, "train").Observe(d.Seconds())
	trained := 0.0
	if outcome == OutcomeOK {
		trained = 1
	}
	m.modelTrained.WithLabelValues(model).Set(trained)
}

// ObserveInference records one inference call. A nil receiver is a no-op.
func (m *Metrics) ObserveInference(model, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.inferenceTotal.WithLabelValues(model, outcome).Inc()
	m.callDuration.WithLabelValues(model, "inference").Observe(d.Seconds())
}

// TrainingCompleted stamps the end of a training run.
func (m *Metrics) TrainingCompleted(at time.Time) {
	if m == nil {
		return
	}
	m.lastTrainRun.Set(float64(at.Unix()))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
