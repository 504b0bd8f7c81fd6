// Package metrics exposes reconciliation and query counters for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/catalogrecon/internal/core"
)

// Registry owns its own prometheus.Registry so tests and multiple servers
// in one process never collide on the default registerer.
type Registry struct {
	reg *prometheus.Registry

	Passes         prometheus.Counter
	CacheHits      prometheus.Counter
	PassDuration   prometheus.Histogram
	Records        *prometheus.GaugeVec
	Queries        *prometheus.CounterVec
	Uploads        *prometheus.CounterVec
	SessionsActive prometheus.Gauge
}

var _ core.Recorder = (*Registry)(nil)

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	passes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "recon_passes_total",
		Help: "Reconciliation passes run.",
	})
	hits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "recon_cache_hits_total",
		Help: "Loads served from the snapshot cache.",
	})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "recon_pass_duration_seconds",
		Help:    "Duration of reconciliation passes.",
		Buckets: prometheus.DefBuckets,
	})
	records := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "recon_records",
		Help: "Records per source view in the current snapshot.",
	}, []string{"source"})
	queries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "recon_queries_total",
		Help: "Queries answered, by operation.",
	}, []string{"op"})
	uploads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "recon_uploads_total",
		Help: "Source uploads, by source and outcome.",
	}, []string{"source", "outcome"})
	sessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "recon_sessions_active",
		Help: "Live filter sessions.",
	})

	r.MustRegister(passes, hits, duration, records, queries, uploads, sessions)
	return &Registry{
		reg:            r,
		Passes:         passes,
		CacheHits:      hits,
		PassDuration:   duration,
		Records:        records,
		Queries:        queries,
		Uploads:        uploads,
		SessionsActive: sessions,
	}
}

// ObservePass records a completed reconciliation pass.
func (r *Registry) ObservePass(d time.Duration, records map[core.SourceKind]int) {
	r.Passes.Inc()
	r.PassDuration.Observe(d.Seconds())
	r.Records.Reset()
	for kind, n := range records {
		r.Records.WithLabelValues(string(kind)).Set(float64(n))
	}
}

func (r *Registry) CacheHit() { r.CacheHits.Inc() }

func (r *Registry) Query(op string) { r.Queries.WithLabelValues(op).Inc() }

// Upload counts a staged source. Outcome is "ok" or "error".
func (r *Registry) Upload(kind core.SourceKind, outcome string) {
	r.Uploads.WithLabelValues(string(kind), outcome).Inc()
}

// SetSessions reports the number of live filter sessions.
func (r *Registry) SetSessions(n int) { r.SessionsActive.Set(float64(n)) }

func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
