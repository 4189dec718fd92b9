package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"listing-fraud-detector/models"
)

// Metrics holds the collectors exported on /metrics. Each server owns its
// own registry.
type Metrics struct {
	Registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	verdictsTotal   *prometheus.CounterVec
	scores          prometheus.Histogram
	rateLimited     prometheus.Counter
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "listing_fraud",
				Subsystem: "api",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "handler", "status"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "listing_fraud",
				Subsystem: "api",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
			},
			[]string{"method", "handler"},
		),
		verdictsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "listing_fraud",
				Subsystem: "scoring",
				Name:      "verdicts_total",
				Help:      "Verdicts issued by label",
			},
			[]string{"label"},
		),
		scores: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "listing_fraud",
				Subsystem: "scoring",
				Name:      "fraud_score",
				Help:      "Distribution of fraud scores",
				Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
			},
		),
		rateLimited: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "listing_fraud",
				Subsystem: "api",
				Name:      "rate_limited_total",
				Help:      "Requests rejected by the rate limiter",
			},
		),
	}
}

// ObserveVerdict records one issued verdict.
func (m *Metrics) ObserveVerdict(v models.Verdict) {
	m.verdictsTotal.WithLabelValues(string(v.Label)).Inc()
	m.scores.Observe(v.Score)
}
