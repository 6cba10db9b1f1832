// Package otel turns bridge events into OpenTelemetry spans.
package otel

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/hanpama/gqlbridge/internal/eventbus"
	"github.com/hanpama/gqlbridge/internal/events"
	"github.com/hanpama/gqlbridge/internal/reqid"
)

const tracerName = "github.com/hanpama/gqlbridge"

// Setup configures OpenTelemetry with an OTLP gRPC exporter and attaches
// span subscribers to bus. If endpoint is empty, no telemetry is configured.
func Setup(ctx context.Context, bus *eventbus.Bus, endpoint, service string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	otel.SetTracerProvider(tp)

	unsubscribe := Subscribe(bus, tp)
	return func(ctx context.Context) error {
		unsubscribe()
		return tp.Shutdown(ctx)
	}, nil
}

// Subscribe records spans for bus events with tracers from tp.
func Subscribe(bus *eventbus.Bus, tp trace.TracerProvider) (unsubscribe func()) {
	s := &subscriber{tracer: tp.Tracer(tracerName)}
	return s.register(bus)
}

type subscriber struct {
	tracer    trace.Tracer
	httpSpans sync.Map // request key -> trace.Span
	gqlSpans  sync.Map // request key -> trace.Span
}

// parent returns ctx carrying the innermost open span of the request.
func (s *subscriber) parent(ctx context.Context, maps ...*sync.Map) context.Context {
	k, ok := reqid.KeyFromContext(ctx)
	if !ok {
		return ctx
	}
	for _, m := range maps {
		if v, ok := m.Load(k); ok {
			return trace.ContextWithSpan(ctx, v.(trace.Span))
		}
	}
	return ctx
}

func (s *subscriber) register(bus *eventbus.Bus) func() {
	unsubs := []func(){
		eventbus.SubscribeTo(bus, func(ctx context.Context, e events.HTTPStart) {
			k, ok := reqid.KeyFromContext(ctx)
			if !ok {
				return
			}
			rid, _ := reqid.FromContext(ctx)
			_, span := s.tracer.Start(ctx, "http.request", trace.WithSpanKind(trace.SpanKindServer))
			span.SetAttributes(
				semconv.HTTPMethodKey.String(e.Request.Method),
				attribute.String("http.target", e.Request.URL.Path),
				attribute.String("http.request_id", rid),
			)
			s.httpSpans.Store(k, span)
		}),

		eventbus.SubscribeTo(bus, func(ctx context.Context, e events.HTTPFinish) {
			k, _ := reqid.KeyFromContext(ctx)
			v, ok := s.httpSpans.LoadAndDelete(k)
			if !ok {
				return
			}
			span := v.(trace.Span)
			span.SetAttributes(semconv.HTTPStatusCodeKey.Int(e.Status))
			if e.Status >= 500 {
				span.SetStatus(codes.Error, "server error")
			}
			span.End()
		}),

		eventbus.SubscribeTo(bus, func(ctx context.Context, e events.GraphQLStart) {
			k, ok := reqid.KeyFromContext(ctx)
			if !ok {
				return
			}
			_, span := s.tracer.Start(s.parent(ctx, &s.httpSpans), "graphql.operation")
			span.SetAttributes(
				attribute.String("graphql.operation.name", e.OperationName),
				attribute.String("graphql.operation.type", e.OperationType),
			)
			s.gqlSpans.Store(k, span)
		}),

		eventbus.SubscribeTo(bus, func(ctx context.Context, e events.GraphQLFinish) {
			k, _ := reqid.KeyFromContext(ctx)
			v, ok := s.gqlSpans.LoadAndDelete(k)
			if !ok {
				return
			}
			span := v.(trace.Span)
			span.SetAttributes(attribute.Int("graphql.error_count", len(e.Errors)))
			if len(e.Errors) > 0 {
				span.SetStatus(codes.Error, e.Errors[0].Error())
			}
			span.End()
		}),

		// resolver spans are recorded after the fact, backdated by their duration
		eventbus.SubscribeTo(bus, func(ctx context.Context, e events.ResolverFinish) {
			end := time.Now()
			_, span := s.tracer.Start(s.parent(ctx, &s.gqlSpans, &s.httpSpans), "graphql.resolve",
				trace.WithTimestamp(end.Add(-e.Duration)))
			span.SetAttributes(
				attribute.String("graphql.field.parent", e.ObjectType),
				attribute.String("graphql.field.name", e.Field),
				attribute.String("graphql.resolver.kind", e.Kind),
			)
			if e.Err != nil {
				span.RecordError(e.Err)
				span.SetStatus(codes.Error, e.Err.Error())
			}
			span.End(trace.WithTimestamp(end))
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
