package telemetry

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics exposes the application instruments on a dedicated registry so
// the /metrics endpoint only carries what we register.
type Metrics struct {
	registry *prometheus.Registry

	checkIns          *prometheus.CounterVec
	redemptions       *prometheus.CounterVec
	moderationActions *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		checkIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "punchcard_check_ins_total",
			Help: "Check-in attempts by resulting status.",
		}, []string{"status"}),
		redemptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "punchcard_redemptions_total",
			Help: "Reward redemptions by tier.",
		}, []string{"tier"}),
		moderationActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "punchcard_moderation_actions_total",
			Help: "Moderation decisions by action.",
		}, []string{"action"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "punchcard_http_requests_total",
			Help: "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "punchcard_http_request_duration_seconds",
			Help:    "HTTP request latency by route and method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}

	registry.MustRegister(
		m.checkIns,
		m.redemptions,
		m.moderationActions,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) RecordCheckIn(status string) {
	if m == nil {
		return
	}
	m.checkIns.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordRedemption(tier int) {
	if m == nil {
		return
	}
	m.redemptions.WithLabelValues(strconv.Itoa(tier)).Inc()
}

func (m *Metrics) RecordModeration(action string) {
	if m == nil {
		return
	}
	m.moderationActions.WithLabelValues(action).Inc()
}

// GinMiddleware records request counts and latency keyed by the matched
// route template, never the raw path.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		m.httpRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}
