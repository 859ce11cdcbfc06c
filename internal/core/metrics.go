// AngelaMos | 2026
// metrics.go

package core

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "portal"

// Metrics holds the process-wide prometheus collectors.
type Metrics struct {
	Registry        *prometheus.Registry
	Recommendations *prometheus.CounterVec
	Conversions     *prometheus.CounterVec
	WebhookEvents   *prometheus.CounterVec
	Notifications   *prometheus.CounterVec
	ConvertDuration prometheus.Histogram
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Recommendations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "recommendations_total",
			Help:      "Tier recommendations computed, by tier and confidence.",
		}, []string{"tier", "confidence"}),
		Conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "conversions_total",
			Help:      "Lead conversions attempted, by outcome.",
		}, []string{"outcome"}),
		WebhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "webhook_events_total",
			Help:      "Inbound payment events, by kind and result.",
		}, []string{"kind", "result"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "access_notices_total",
			Help:      "Access notices dispatched, by result.",
		}, []string{"result"}),
		ConvertDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "conversion_duration_seconds",
			Help:      "Time spent in the provisioning transaction.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	m.Registry.MustRegister(
		m.Recommendations,
		m.Conversions,
		m.WebhookEvents,
		m.Notifications,
		m.ConvertDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// NopMetrics returns a private, unexposed set of collectors for tests.
func NopMetrics() *Metrics {
	return NewMetrics()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}
