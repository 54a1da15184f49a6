package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "aieval"

// Metrics holds the counters for one run on a private registry, so tests
// and repeated runs in one process do not share state. A nil *Metrics
// records nothing.
type Metrics struct {
	reg *prometheus.Registry

	evaluations   *prometheus.CounterVec
	tokens        *prometheus.CounterVec
	cost          *prometheus.CounterVec
	judgeScore    *prometheus.HistogramVec
	piiDetections *prometheus.CounterVec
	retries       *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		evaluations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Evaluated (test case, model) pairs by outcome.",
		}, []string{"model", "status"}),
		tokens: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_total",
			Help:      "Tokens consumed by model calls.",
		}, []string{"model", "direction"}),
		cost: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cost_usd_total",
			Help:      "Estimated spend in USD.",
		}, []string{"model"}),
		judgeScore: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "judge_score",
			Help:      "Judge scores (0.0-1.0).",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		}, []string{"model"}),
		piiDetections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pii_detections_total",
			Help:      "Responses matching a PII pattern.",
		}, []string{"model", "type"}),
		retries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_retries_total",
			Help:      "Retried backend calls.",
		}, []string{"provider"}),
	}
}

// Registry exposes the gatherer, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

// ObserveEvaluation counts one pair; status is "ok" or "error".
func (m *Metrics) ObserveEvaluation(model, status string) {
	if m == nil {
		return
	}
	m.evaluations.WithLabelValues(model, status).Inc()
}

func (m *Metrics) AddTokens(model string, input, output int) {
	if m == nil {
		return
	}
	m.tokens.WithLabelValues(model, "input").Add(float64(input))
	m.tokens.WithLabelValues(model, "output").Add(float64(output))
}

func (m *Metrics) AddCost(model string, usd float64) {
	if m == nil || usd <= 0 {
		return
	}
	m.cost.WithLabelValues(model).Add(usd)
}

func (m *Metrics) ObserveJudgeScore(model string, score float64) {
	if m == nil {
		return
	}
	m.judgeScore.WithLabelValues(model).Observe(score)
}

func (m *Metrics) IncPII(model, piiType string) {
	if m == nil {
		return
	}
	m.piiDetections.WithLabelValues(model, piiType).Inc()
}

func (m *Metrics) IncRetry(provider string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(provider).Inc()
}

// WriteTextfile dumps the registry in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.reg); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
