// Package logging builds the zap logger and logs bridge events.
package logging

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hanpama/gqlbridge/internal/eventbus"
	"github.com/hanpama/gqlbridge/internal/events"
	"github.com/hanpama/gqlbridge/internal/reqid"
)

// New builds a logger at level ("debug", "info", "warn", "error").
// Development loggers write human-readable console output.
func New(level string, development bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

// Subscribe logs finished HTTP requests, GraphQL operations that reported
// errors and failed resolvers published on bus.
func Subscribe(bus *eventbus.Bus, log *zap.Logger) (unsubscribe func()) {
	unsubs := []func(){
		eventbus.SubscribeTo(bus, func(ctx context.Context, e events.HTTPFinish) {
			log.Info("http request",
				requestID(ctx),
				zap.String("method", e.Request.Method),
				zap.String("path", e.Request.URL.Path),
				zap.Int("status", e.Status),
				zap.Duration("duration", e.Duration),
			)
		}),
		eventbus.SubscribeTo(bus, func(ctx context.Context, e events.GraphQLFinish) {
			if len(e.Errors) == 0 {
				return
			}
			log.Warn("graphql operation finished with errors",
				requestID(ctx),
				zap.String("operation", e.OperationName),
				zap.String("type", e.OperationType),
				zap.Errors("errors", e.Errors),
				zap.Duration("duration", e.Duration),
			)
		}),
		eventbus.SubscribeTo(bus, func(ctx context.Context, e events.ResolverFinish) {
			if e.Err == nil {
				return
			}
			log.Warn("resolver failed",
				requestID(ctx),
				zap.String("field", e.ObjectType+"."+e.Field),
				zap.String("kind", e.Kind),
				zap.Error(e.Err),
			)
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func requestID(ctx context.Context) zap.Field {
	id, _ := reqid.FromContext(ctx)
	return zap.String("request_id", id)
}
