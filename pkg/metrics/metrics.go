// Package metrics provides Prometheus metrics for the cost report job.
package metrics

import (
	"time"

	"github.com/de-tools/cost-notifier/pkg/models/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "cost_notifier"

// Collector holds all Prometheus metrics for the job.
type Collector struct {
	Invocations     *prometheus.CounterVec
	FetchAttempts   *prometheus.CounterVec
	InvocationTime  prometheus.Histogram
	LastReportTotal prometheus.Gauge
	LastSuccessTime prometheus.Gauge
}

// NewWithRegistry creates a collector with a custom registerer.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		Invocations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "invocations_total",
				Help:      "Job invocations by outcome and error kind",
			},
			[]string{"outcome", "kind"},
		),
		FetchAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_attempts_total",
				Help:      "Billing API attempts by result",
			},
			[]string{"result"},
		),
		InvocationTime: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "invocation_duration_seconds",
				Help:      "Wall time of one job invocation",
				Buckets:   []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
		),
		LastReportTotal: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_report_total",
				Help:      "Total cost of the last published report",
			},
		),
		LastSuccessTime: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_success_timestamp_seconds",
				Help:      "Unix time of the last successful invocation",
			},
		),
	}
}

// RecordFetchAttempt counts one billing API attempt. An empty kind is a success.
func (c *Collector) RecordFetchAttempt(kind domain.ErrorKind) {
	result := "success"
	if kind != "" {
		result = string(kind)
	}
	c.FetchAttempts.WithLabelValues(result).Inc()
}

// RecordInvocation records the end of one invocation.
func (c *Collector) RecordInvocation(result domain.InvocationResult, elapsed time.Duration, finishedAt time.Time) {
	c.Invocations.WithLabelValues(string(result.Outcome), string(domain.KindOf(result.Err))).Inc()
	c.InvocationTime.Observe(elapsed.Seconds())

	if result.Outcome == domain.OutcomeFailed {
		return
	}
	c.LastSuccessTime.Set(float64(finishedAt.Unix()))
	if result.Outcome == domain.OutcomePublished && result.Message != nil {
		total, _ := result.Message.Amount.Total.Float64()
		c.LastReportTotal.Set(total)
	}
}
