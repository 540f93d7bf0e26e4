package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Collector holds all Prometheus metrics for the application.
// A nil *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Graph metrics
	RelationEdits   *prometheus.CounterVec
	NodesRemoved    prometheus.Counter
	RemovalsRefused prometheus.Counter
	CascadeSize     prometheus.Histogram

	// Event metrics
	EventsPublished *prometheus.CounterVec
}

// NewCollector creates a collector with its own registry under namespace.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		RelationEdits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "relation_edits_total",
				Help:      "Bulk relation edits by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		NodesRemoved: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "nodes_removed_total",
				Help:      "Nodes destroyed, including cascaded children",
			},
		),
		RemovalsRefused: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "removals_refused_total",
				Help:      "Removals refused because a workflow was active in the cascade",
			},
		),
		CascadeSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "removal_cascade_nodes",
				Help:      "Number of nodes destroyed per removal",
				Buckets:   []float64{1, 2, 4, 8, 16, 32, 64, 128},
			},
		),
		EventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "node_events_published_total",
				Help:      "Node lifecycle events by name and outcome",
			},
			[]string{"event", "outcome"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.HTTPRequests,
		c.HTTPDuration,
		c.RelationEdits,
		c.NodesRemoved,
		c.RemovalsRefused,
		c.CascadeSize,
		c.EventsPublished,
	)

	return c
}

// Registry exposes the underlying registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records one served request.
func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordRelationEdit records a bulk relation edit.
func (c *Collector) RecordRelationEdit(operation string, err error) {
	if c == nil {
		return
	}
	c.RelationEdits.WithLabelValues(operation, outcome(err)).Inc()
}

// RecordRemoval records a finished removal. refused marks a workflow-gate rejection.
func (c *Collector) RecordRemoval(destroyed int, refused bool) {
	if c == nil {
		return
	}
	if refused {
		c.RemovalsRefused.Inc()
	}
	if destroyed > 0 {
		c.NodesRemoved.Add(float64(destroyed))
		c.CascadeSize.Observe(float64(destroyed))
	}
}

// RecordEventPublish records one node event publish attempt.
func (c *Collector) RecordEventPublish(event string, err error) {
	if c == nil {
		return
	}
	c.EventsPublished.WithLabelValues(event, outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}
