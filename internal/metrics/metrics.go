// Package metrics provides Prometheus instruments for inventory requests
// and discovery calls.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the hostscope instruments. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	DiscoveriesTotal  *prometheus.CounterVec
	DiscoveryDuration prometheus.Histogram
	HostsDiscovered   prometheus.Histogram
}

// New creates the instruments and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hostscope_inventory_requests_total",
				Help: "Total number of inventory requests",
			},
			[]string{"endpoint", "transport", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hostscope_inventory_request_duration_seconds",
				Help:    "Duration of inventory requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint", "transport"},
		),
		DiscoveriesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hostscope_discoveries_total",
				Help: "Total number of discovery calls",
			},
			[]string{"result"},
		),
		DiscoveryDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "hostscope_discovery_duration_seconds",
				Help:    "Duration of discovery calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		HostsDiscovered: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "hostscope_discovered_hosts",
				Help:    "Number of hosts returned by successful discovery calls",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8),
			},
		),
	}
}

// RecordRequest records one inventory request. status is the HTTP status,
// or 0 when no response was received.
func (m *Metrics) RecordRequest(endpoint, transport string, status int, d time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.RequestsTotal.WithLabelValues(endpoint, transport, label).Inc()
	m.RequestDuration.WithLabelValues(endpoint, transport).Observe(d.Seconds())
}

// RecordDiscovery records one discovery call.
func (m *Metrics) RecordDiscovery(hosts int, err error, d time.Duration) {
	if m == nil {
		return
	}
	if err != nil {
		m.DiscoveriesTotal.WithLabelValues("error").Inc()
		m.DiscoveryDuration.Observe(d.Seconds())
		return
	}
	m.DiscoveriesTotal.WithLabelValues("ok").Inc()
	m.DiscoveryDuration.Observe(d.Seconds())
	m.HostsDiscovered.Observe(float64(hosts))
}
