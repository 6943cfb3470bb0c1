// Package metrics holds the Prometheus collectors of every binary.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gigledger/internal/cache"
)

const namespace = "gigledger"

// Registry satisfies the recorder interfaces of the insights client, the
// AMQP publisher and the export worker.
type Registry struct {
	reg *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	ledgerSaves     prometheus.Counter
	insightCalls    *prometheus.CounterVec
	insightDuration *prometheus.HistogramVec
	publishes       *prometheus.CounterVec
	exports         *prometheus.CounterVec
	rateLimited     prometheus.Counter
	suspicious      prometheus.Counter
}

// New builds a registry with the Go runtime and process collectors.
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by method, route and status code.",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route"},
		),
		ledgerSaves: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_saves_total",
			Help:      "Ledger days saved.",
		}),
		insightCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "insights_requests_total",
				Help:      "Insights backend calls by endpoint and outcome (ok, error, open).",
			},
			[]string{"endpoint", "outcome"},
		),
		insightDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "insights_request_duration_seconds",
				Help:      "Insights backend latency.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30},
			},
			[]string{"endpoint"},
		),
		publishes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "amqp_publish_total",
				Help:      "Ledger sync messages published by outcome.",
			},
			[]string{"outcome"},
		),
		exports: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sheet_exports_total",
				Help:      "Ledger days exported to the spreadsheet by outcome.",
			},
			[]string{"outcome"},
		),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_requests_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
		suspicious: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suspicious_requests_total",
			Help:      "Requests flagged by the security detector.",
		}),
	}

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.requests,
		r.requestDuration,
		r.ledgerSaves,
		r.insightCalls,
		r.insightDuration,
		r.publishes,
		r.exports,
		r.rateLimited,
		r.suspicious,
	)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// Gatherer exposes the underlying registry for tests.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

func (r *Registry) ObserveRequest(method, route string, status int, d time.Duration) {
	r.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (r *Registry) IncLedgerSave() { r.ledgerSaves.Inc() }

func (r *Registry) ObserveInsights(endpoint, outcome string, d time.Duration) {
	r.insightCalls.WithLabelValues(endpoint, outcome).Inc()
	if outcome != "open" {
		r.insightDuration.WithLabelValues(endpoint).Observe(d.Seconds())
	}
}

func (r *Registry) ObservePublish(outcome string) { r.publishes.WithLabelValues(outcome).Inc() }

func (r *Registry) ObserveExport(outcome string) { r.exports.WithLabelValues(outcome).Inc() }

func (r *Registry) IncRateLimited() { r.rateLimited.Inc() }

func (r *Registry) IncSuspicious() { r.suspicious.Inc() }

// StatsSource is anything reporting cache.Stats, such as cache.LRUCache.
type StatsSource interface {
	Stats() cache.Stats
}

// RegisterCache exports hit, miss and size figures of a named cache. The
// values are read at scrape time.
func (r *Registry) RegisterCache(name string, src StatsSource) error {
	labels := prometheus.Labels{"cache": name}
	cs := []prometheus.Collector{
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "cache_hits_total",
			Help:        "Cache lookups that found a live entry.",
			ConstLabels: labels,
		}, func() float64 { return float64(src.Stats().Hits) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "cache_misses_total",
			Help:        "Cache lookups that found nothing or an expired entry.",
			ConstLabels: labels,
		}, func() float64 { return float64(src.Stats().Misses) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "cache_entries",
			Help:        "Entries currently held.",
			ConstLabels: labels,
		}, func() float64 { return float64(src.Stats().Size) }),
	}
	for _, c := range cs {
		if err := r.reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
