package logging

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hanpama/gqlbridge/internal/eventbus"
	"github.com/hanpama/gqlbridge/internal/events"
	"github.com/hanpama/gqlbridge/internal/reqid"
)

func TestNew(t *testing.T) {
	log, err := New("warn", false)
	require.NoError(t, err)
	require.False(t, log.Core().Enabled(zapcore.InfoLevel))
	require.True(t, log.Core().Enabled(zapcore.WarnLevel))

	log, err = New("debug", true)
	require.NoError(t, err)
	require.True(t, log.Core().Enabled(zapcore.DebugLevel))

	_, err = New("loud", false)
	require.Error(t, err)
}

func TestSubscribe(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	bus := eventbus.New()
	eventbus.Use(bus)
	t.Cleanup(func() { eventbus.Use(nil) })
	unsubscribe := Subscribe(bus, zap.New(core))

	ctx, _ := reqid.WithID(context.Background(), "r1")
	eventbus.Publish(ctx, events.ResolverFinish{ObjectType: "Query", Field: "ok", Kind: "direct"})
	eventbus.Publish(ctx, events.ResolverFinish{ObjectType: "Query", Field: "broken", Kind: "callback", Err: errors.New("boom")})
	eventbus.Publish(ctx, events.GraphQLFinish{OperationType: "query"})
	eventbus.Publish(ctx, events.GraphQLFinish{OperationType: "query", Errors: []error{errors.New("boom")}})
	eventbus.Publish(ctx, events.HTTPFinish{Request: httptest.NewRequest("GET", "/graphql", nil), Status: 200})

	entries := logs.AllUntimed()
	require.Len(t, entries, 3)
	require.Equal(t, "resolver failed", entries[0].Message)
	require.Equal(t, "Query.broken", entries[0].ContextMap()["field"])
	require.Equal(t, "r1", entries[0].ContextMap()["request_id"])
	require.Equal(t, "graphql operation finished with errors", entries[1].Message)
	require.Equal(t, zapcore.WarnLevel, entries[1].Level)
	require.Equal(t, "http request", entries[2].Message)
	require.Equal(t, int64(200), entries[2].ContextMap()["status"])

	unsubscribe()
	eventbus.Publish(ctx, events.HTTPFinish{Request: httptest.NewRequest("GET", "/graphql", nil), Status: 200})
	require.Equal(t, 3, logs.Len())
}
