// Package metrics exports Prometheus collectors fed by bridge events.
package metrics

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hanpama/gqlbridge/internal/eventbus"
	"github.com/hanpama/gqlbridge/internal/events"
)

const namespace = "gqlbridge"

// Metrics holds the bridge collectors.
type Metrics struct {
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	Operations       *prometheus.CounterVec
	OperationLatency *prometheus.HistogramVec
	Resolvers        *prometheus.CounterVec
	ResolverLatency  *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests served, by method and status code.",
		}, []string{"method", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "graphql", Name: "operations_total",
			Help: "GraphQL operations executed, by type and outcome.",
		}, []string{"type", "outcome"}),
		OperationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "graphql", Name: "operation_duration_seconds",
			Help:    "GraphQL operation latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"type"}),
		Resolvers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "resolver", Name: "calls_total",
			Help: "Bound resolver calls, by field, calling convention and outcome.",
		}, []string{"field", "kind", "outcome"}),
		ResolverLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "resolver", Name: "duration_seconds",
			Help:    "Bound resolver latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"field"}),
	}
	for _, c := range []prometheus.Collector{
		m.HTTPRequests, m.HTTPDuration,
		m.Operations, m.OperationLatency,
		m.Resolvers, m.ResolverLatency,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Subscribe updates the collectors from events published on bus.
func (m *Metrics) Subscribe(bus *eventbus.Bus) (unsubscribe func()) {
	unsubs := []func(){
		eventbus.SubscribeTo(bus, func(ctx context.Context, e events.HTTPFinish) {
			m.HTTPRequests.WithLabelValues(e.Request.Method, strconv.Itoa(e.Status)).Inc()
			m.HTTPDuration.WithLabelValues(e.Request.Method).Observe(e.Duration.Seconds())
		}),
		eventbus.SubscribeTo(bus, func(ctx context.Context, e events.GraphQLFinish) {
			m.Operations.WithLabelValues(e.OperationType, outcome(len(e.Errors) > 0)).Inc()
			m.OperationLatency.WithLabelValues(e.OperationType).Observe(e.Duration.Seconds())
		}),
		eventbus.SubscribeTo(bus, func(ctx context.Context, e events.ResolverFinish) {
			field := e.ObjectType + "." + e.Field
			m.Resolvers.WithLabelValues(field, e.Kind, outcome(e.Err != nil)).Inc()
			m.ResolverLatency.WithLabelValues(field).Observe(e.Duration.Seconds())
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func outcome(failed bool) string {
	if failed {
		return "error"
	}
	return "ok"
}
