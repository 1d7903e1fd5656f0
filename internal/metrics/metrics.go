// Package metrics exposes Prometheus collectors for the scoring service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Engine label values.
const (
	EngineRisk  = "risk"
	EngineAudit = "audit"
	EngineRules = "rules"
)

// Metrics holds the service collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	assessments   *prometheus.CounterVec
	riskScores    prometheus.Histogram
	flags         *prometheus.CounterVec
	audits        *prometheus.CounterVec
	auditTotals   prometheus.Histogram
	engineSeconds *prometheus.HistogramVec
	cacheHits     prometheus.Counter
	cacheMisses   prometheus.Counter
	sideEffects   *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// New creates the collectors on a dedicated registry.
func New(namespace string) *Metrics {
	scoreBuckets := prometheus.LinearBuckets(0, 10, 11)

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		assessments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "risk_assessments_total",
			Help:      "Customer risk assessments by resulting risk level.",
		}, []string{"level"}),
		riskScores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "risk_overall_score",
			Help:      "Distribution of customer overall risk scores.",
			Buckets:   scoreBuckets,
		}),
		flags: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "escalation_flags_total",
			Help:      "Escalation rule outcomes attached to assessments.",
		}, []string{"outcome"}),
		audits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_scores_total",
			Help:      "Audit readiness scores by label.",
		}, []string{"label"}),
		auditTotals: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "audit_total_score",
			Help:      "Distribution of audit readiness totals.",
			Buckets:   scoreBuckets,
		}),
		engineSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "engine_duration_seconds",
			Help:      "Time spent in each engine.",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		}, []string{"engine"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Score lookups served from cache.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Score lookups that fell through to the repository.",
		}),
		sideEffects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "side_effect_failures_total",
			Help:      "Failed persist, cache or publish steps after scoring.",
		}, []string{"step"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request durations by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.assessments,
		m.riskScores,
		m.flags,
		m.audits,
		m.auditTotals,
		m.engineSeconds,
		m.cacheHits,
		m.cacheMisses,
		m.sideEffects,
		m.httpRequests,
		m.httpDuration,
	)

	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Assessment records a customer risk assessment.
func (m *Metrics) Assessment(level string, score int, flagOutcomes []string) {
	if m == nil {
		return
	}
	m.assessments.WithLabelValues(level).Inc()
	m.riskScores.Observe(float64(score))
	for _, outcome := range flagOutcomes {
		m.flags.WithLabelValues(outcome).Inc()
	}
}

// Audit records an audit readiness score.
func (m *Metrics) Audit(label string, total int) {
	if m == nil {
		return
	}
	m.audits.WithLabelValues(label).Inc()
	m.auditTotals.Observe(float64(total))
}

// EngineDuration records time spent in an engine.
func (m *Metrics) EngineDuration(engine string, d time.Duration) {
	if m == nil {
		return
	}
	m.engineSeconds.WithLabelValues(engine).Observe(d.Seconds())
}

// CacheHit records a cache hit.
func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

// CacheMiss records a cache miss.
func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Inc()
}

// SideEffectFailed records a failed persist, cache or publish step.
func (m *Metrics) SideEffectFailed(step string) {
	if m == nil {
		return
	}
	m.sideEffects.WithLabelValues(step).Inc()
}

// Request records a served HTTP request.
func (m *Metrics) Request(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
