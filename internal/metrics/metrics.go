// Package metrics exposes Prometheus counters for page sessions and
// redirect attempts. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/ashureev/inapp-redirector/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	PagesActive            prometheus.Gauge
	Sessions               *prometheus.CounterVec
	Redirects              *prometheus.CounterVec
	ClassificationFailures prometheus.Counter
	NavigationFailures     prometheus.Counter
	StoreRedirects         *prometheus.CounterVec
}

// New creates the collectors and registers them with a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		PagesActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "redirector_pages_active",
			Help: "Number of open page sessions",
		}),
		Sessions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "redirector_sessions_total",
			Help: "Closed page sessions by final redirect state",
		}, []string{"state"}),
		Redirects: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "redirector_redirect_attempts_total",
			Help: "Navigation attempts by platform and target mode",
		}, []string{"platform", "mode"}),
		ClassificationFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "redirector_classification_failures_total",
			Help: "User agent classifications that failed and defaulted to non-embedded",
		}),
		NavigationFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "redirector_navigation_failures_total",
			Help: "Navigation attempts that failed synchronously",
		}),
		StoreRedirects: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "redirector_store_redirects_total",
			Help: "Store redirect endpoint responses by result",
		}, []string{"result"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// PageOpened records a new page session.
func (m *Metrics) PageOpened() {
	if m == nil {
		return
	}
	m.PagesActive.Inc()
}

// PageClosed records the end of a page session.
func (m *Metrics) PageClosed(state domain.RedirectState) {
	if m == nil {
		return
	}
	m.PagesActive.Dec()
	m.Sessions.WithLabelValues(state.String()).Inc()
}

// RedirectAttempted records a navigation attempt.
func (m *Metrics) RedirectAttempted(p domain.Platform, mode domain.TargetMode) {
	if m == nil {
		return
	}
	m.Redirects.WithLabelValues(p.String(), mode.String()).Inc()
}

// ClassificationFailed records a classification failure.
func (m *Metrics) ClassificationFailed() {
	if m == nil {
		return
	}
	m.ClassificationFailures.Inc()
}

// NavigationFailed records a failed navigation attempt.
func (m *Metrics) NavigationFailed() {
	if m == nil {
		return
	}
	m.NavigationFailures.Inc()
}

// StoreRedirect records a store endpoint response.
func (m *Metrics) StoreRedirect(result string) {
	if m == nil {
		return
	}
	m.StoreRedirects.WithLabelValues(result).Inc()
}
