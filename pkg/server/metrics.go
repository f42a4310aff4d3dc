package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/ccollicutt/chatclean/pkg/parser"
)

// Upload results used as the "result" label.
const (
	resultSuccess     = "success"
	resultBadRequest  = "bad_request"
	resultTooLarge    = "too_large"
	resultRateLimited = "rate_limited"
	resultError       = "error"
)

// Metrics holds the ingress collectors. Each Server owns its own registry so
// several servers can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	uploads       *prometheus.CounterVec
	messages      prometheus.Counter
	droppedLines  *prometheus.CounterVec
	parseDuration prometheus.Histogram
}

// NewMetrics creates and registers the ingress collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		uploads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatclean_uploads_total",
				Help: "Transcript uploads by result.",
			},
			[]string{"result"},
		),
		messages: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "chatclean_messages_cleaned_total",
				Help: "Messages emitted across all uploads.",
			},
		),
		droppedLines: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatclean_dropped_lines_total",
				Help: "Transcript lines discarded by reason.",
			},
			[]string{"reason"},
		),
		parseDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "chatclean_parse_duration_seconds",
				Help:    "Time spent parsing one uploaded transcript.",
				Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
			},
		),
	}

	m.registry.MustRegister(
		m.uploads,
		m.messages,
		m.droppedLines,
		m.parseDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) observeUpload(result string) {
	m.uploads.WithLabelValues(result).Inc()
}

func (m *Metrics) observeParse(seconds float64, s parser.Stats) {
	m.parseDuration.Observe(seconds)
	m.messages.Add(float64(s.Messages))
	m.droppedLines.WithLabelValues("system_message").Add(float64(s.SystemMessages))
	m.droppedLines.WithLabelValues("bad_timestamp").Add(float64(s.BadTimestamps))
	m.droppedLines.WithLabelValues("orphan_continuation").Add(float64(s.DroppedLines))
}

// handler serves the Prometheus exposition format over fasthttp.
func (m *Metrics) handler() fasthttp.RequestHandler {
	return fasthttpadaptor.NewFastHTTPHandler(
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}),
	)
}
