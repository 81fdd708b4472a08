// Package metrics exposes Prometheus counters for resolutions and orders.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Resolution outcomes.
const (
	OutcomeResolved         = "resolved"
	OutcomeNeedsChoice      = "needs_choice"
	OutcomeNoCommonReceiver = "no_common_receiver"
	OutcomeNoCollector      = "no_default_collector"
	OutcomeExempt           = "exempt"
)

// Metrics holds the collectors registered on one registry.
type Metrics struct {
	registry      *prometheus.Registry
	resolutions   *prometheus.CounterVec
	ordersCreated *prometheus.CounterVec
	rpcRequests   *prometheus.CounterVec
}

// New registers the wastedesk collectors, plus Go and process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wastedesk",
			Name:      "resolution_total",
			Help:      "Agreement resolutions by reporting mode and outcome.",
		}, []string{"mode", "outcome"}),
		ordersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wastedesk",
			Name:      "orders_created_total",
			Help:      "Orders created by reporting mode.",
		}, []string{"mode"}),
		rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wastedesk",
			Name:      "grpc_requests_total",
			Help:      "gRPC requests by method and status code.",
		}, []string{"method", "code"}),
	}
	m.registry.MustRegister(
		m.resolutions,
		m.ordersCreated,
		m.rpcRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveResolution counts one resolution.
func (m *Metrics) ObserveResolution(mode, outcome string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(mode, outcome).Inc()
}

// ObserveOrderCreated counts one created order.
func (m *Metrics) ObserveOrderCreated(mode string) {
	if m == nil {
		return
	}
	m.ordersCreated.WithLabelValues(mode).Inc()
}

// ObserveRPC counts one gRPC call.
func (m *Metrics) ObserveRPC(method, code string) {
	if m == nil {
		return
	}
	m.rpcRequests.WithLabelValues(method, code).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
