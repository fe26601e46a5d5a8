// Package metrics holds the Prometheus collectors for the scoring service.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Repair outcomes.
const (
	RepairSucceeded = "succeeded"
	RepairFailed    = "failed"
)

type Metrics struct {
	requests *prometheus.CounterVec
	repairs  *prometheus.CounterVec
	llmCalls *prometheus.HistogramVec
}

// New registers the collectors with reg. A nil reg leaves them unregistered,
// which is what tests usually want.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "essaygrader_score_requests_total",
				Help: "Scoring requests by route and outcome kind",
			},
			[]string{"route", "outcome"},
		),
		repairs: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "essaygrader_repair_calls_total",
				Help: "Repair calls issued after an unparseable model response",
			},
			[]string{"outcome"},
		),
		llmCalls: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "essaygrader_llm_call_seconds",
				Help:    "Latency of completion calls to the model provider",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 45},
			},
			[]string{"provider"},
		),
	}
}

// Request counts one finished request. outcome is "ok" or an error kind.
func (m *Metrics) Request(route, outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, outcome).Inc()
}

func (m *Metrics) Repair(outcome string) {
	if m == nil {
		return
	}
	m.repairs.WithLabelValues(outcome).Inc()
}

func (m *Metrics) LLMCall(provider string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.llmCalls.WithLabelValues(provider).Observe(elapsed.Seconds())
}
