// Package metrics exposes wallet daemon metrics in the Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Klingon-tech/zwalletd/internal/chainsync"
	"github.com/Klingon-tech/zwalletd/pkg/types"
)

const namespace = "zwalletd"

// Metrics holds the daemon's collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	accounts        prometheus.Gauge
	addressesIssued *prometheus.CounterVec
	nodeHeight      prometheus.Gauge
	targetHeight    prometheus.Gauge
	synced          prometheus.Gauge
	nodeFailures    prometheus.Counter
	requests        *prometheus.CounterVec
}

// New creates the collectors and registers them, plus the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		accounts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "accounts",
			Help:      "Number of wallet accounts.",
		}),
		addressesIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "addresses_issued_total",
			Help:      "Addresses issued since start, by family.",
		}, []string{"family"}),
		nodeHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "height",
			Help:      "Best block height of the chain node.",
		}),
		targetHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "target_height",
			Help:      "Best known network height.",
		}),
		synced: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "synced",
			Help:      "1 when the node is within tolerance of the network height.",
		}),
		nodeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "node_failures_total",
			Help:      "Failed chain node queries.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "requests_total",
			Help:      "API requests by method and outcome.",
		}, []string{"method", "outcome"}),
	}
	m.registry.MustRegister(
		m.accounts,
		m.addressesIssued,
		m.nodeHeight,
		m.targetHeight,
		m.synced,
		m.nodeFailures,
		m.requests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// SetAccounts sets the account gauge.
func (m *Metrics) SetAccounts(n int) {
	m.accounts.Set(float64(n))
}

// AccountCreated implements accounts.Observer.
func (m *Metrics) AccountCreated(uint32) {
	m.accounts.Inc()
}

// AddressIssued implements accounts.Observer.
func (m *Metrics) AddressIssued(_ uint32, family types.Family) {
	m.addressesIssued.WithLabelValues(family.String()).Inc()
}

// SyncObserved implements chainsync.Observer.
func (m *Metrics) SyncObserved(s *chainsync.Snapshot) {
	m.nodeHeight.Set(float64(s.Height))
	m.targetHeight.Set(float64(s.TargetHeight))
	if s.Synced {
		m.synced.Set(1)
	} else {
		m.synced.Set(0)
	}
}

// SyncFailed implements chainsync.Observer.
func (m *Metrics) SyncFailed() {
	m.nodeFailures.Inc()
}

// ObserveRequest counts one API request.
func (m *Metrics) ObserveRequest(method string, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.requests.WithLabelValues(method, outcome).Inc()
}
