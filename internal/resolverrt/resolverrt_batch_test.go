package resolverrt

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hanpama/gqlbridge/internal/eventbus"
	"github.com/hanpama/gqlbridge/internal/events"
	"github.com/hanpama/gqlbridge/internal/executor"
	"github.com/hanpama/gqlbridge/resolver"
	"github.com/hanpama/gqlbridge/schema"
)

const personSDL = `
type Query {
  person(id: ID!): Person
  people: [Person]
}
type Person {
  id: ID!
  name: String
  friends: [Person]
}
`

func TestBatchResolveAsync_OrderAndPartialFailure(t *testing.T) {
	sch := schema.MustAssemble(personSDL, resolver.Table{
		"person": func(ctx context.Context, p resolver.Params) (any, error) {
			if p.Args["id"] == "bad" {
				return nil, errors.New("not found")
			}
			return map[string]any{"id": p.Args["id"]}, nil
		},
	})
	rt := NewRuntime(sch)

	tasks := []executor.AsyncResolveTask{
		{ObjectType: "Query", Field: "person", Args: map[string]any{"id": "1"}, Path: executor.Path{"a"}},
		{ObjectType: "Query", Field: "person", Args: map[string]any{"id": "bad"}, Path: executor.Path{"b"}},
		{ObjectType: "Query", Field: "person", Args: map[string]any{"id": "3"}, Path: executor.Path{"c"}},
	}
	results := rt.BatchResolveAsync(t.Context(), tasks)

	require.Len(t, results, 3)
	require.Equal(t, map[string]any{"id": "1"}, results[0].Value)
	require.EqualError(t, results[1].Error, "not found")
	require.Equal(t, map[string]any{"id": "3"}, results[2].Value)
}

type crashy struct{}

func (crashy) Name() string { panic("name getter exploded") }

func TestBatchResolveAsync_DefaultResolverPanic(t *testing.T) {
	rt := NewRuntime(schema.MustAssemble(personSDL, nil))
	results := rt.BatchResolveAsync(t.Context(), []executor.AsyncResolveTask{
		{ObjectType: "Person", Field: "name", Source: crashy{}},
		{ObjectType: "Person", Field: "id", Source: map[string]any{"id": "2"}},
	})
	require.Len(t, results, 2)
	var pe *resolver.PanicError
	require.ErrorAs(t, results[0].Error, &pe)
	require.Equal(t, "name getter exploded", pe.Value)
	require.Equal(t, "2", results[1].Value)
}

func TestBatchResolveAsync_PassesParams(t *testing.T) {
	var got resolver.Params
	sch := schema.MustAssemble(personSDL, resolver.Table{
		"Person.friends": func(ctx context.Context, p resolver.Params) (any, error) {
			got = p
			return nil, nil
		},
	})
	rt := NewRuntime(sch)

	src := map[string]any{"id": "1"}
	rt.BatchResolveAsync(t.Context(), []executor.AsyncResolveTask{{
		ObjectType: "Person", Field: "friends", Source: src, Args: map[string]any{},
		Path: executor.Path{"person", "friends"},
	}})

	require.Equal(t, resolver.Params{
		ObjectType: "Person",
		Field:      "friends",
		Source:     src,
		Args:       map[string]any{},
		Path:       []any{"person", "friends"},
	}, got)
}

func TestBatchResolveAsync_RunsConcurrently(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(2)
	sch := schema.MustAssemble(personSDL, resolver.Table{
		"person": func(ctx context.Context, p resolver.Params) (any, error) {
			// both resolvers must be running for either to return
			wg.Done()
			wg.Wait()
			return p.Args["id"], nil
		},
	})
	rt := NewRuntime(sch)

	done := make(chan []executor.AsyncResolveResult)
	go func() {
		done <- rt.BatchResolveAsync(t.Context(), []executor.AsyncResolveTask{
			{ObjectType: "Query", Field: "person", Args: map[string]any{"id": "1"}},
			{ObjectType: "Query", Field: "person", Args: map[string]any{"id": "2"}},
		})
	}()
	select {
	case results := <-done:
		require.Equal(t, "1", results[0].Value)
		require.Equal(t, "2", results[1].Value)
	case <-time.After(5 * time.Second):
		t.Fatal("resolvers did not run concurrently")
	}
}

func TestBatchResolveAsync_ConcurrencyLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	sch := schema.MustAssemble(personSDL, resolver.Table{
		"person": func(ctx context.Context, p resolver.Params) (any, error) {
			n := inFlight.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			inFlight.Add(-1)
			return nil, nil
		},
	})
	rt := NewRuntime(sch, WithConcurrency(2))

	tasks := make([]executor.AsyncResolveTask, 8)
	for i := range tasks {
		tasks[i] = executor.AsyncResolveTask{ObjectType: "Query", Field: "person", Args: map[string]any{"id": "x"}}
	}
	rt.BatchResolveAsync(t.Context(), tasks)
	require.LessOrEqual(t, peak.Load(), int32(2))
}

func TestBatchResolveAsync_UnboundFieldFallsBackToProperty(t *testing.T) {
	sch := schema.MustAssemble(personSDL, nil)
	rt := NewRuntime(sch)
	results := rt.BatchResolveAsync(t.Context(), []executor.AsyncResolveTask{
		{ObjectType: "Person", Field: "name", Source: map[string]any{"name": "tom"}},
		{ObjectType: "Person", Field: "nope", Source: map[string]any{}},
	})
	require.Equal(t, "tom", results[0].Value)
	require.ErrorContains(t, results[1].Error, "no field Person.nope")
}

func TestBatchResolveAsync_PublishesResolverFinish(t *testing.T) {
	eventbus.Use(eventbus.New())
	t.Cleanup(func() { eventbus.Use(nil) })

	var mu sync.Mutex
	var seen []events.ResolverFinish
	unsubscribe := eventbus.Subscribe(func(ctx context.Context, e events.ResolverFinish) {
		mu.Lock()
		seen = append(seen, e)
		mu.Unlock()
	})
	defer unsubscribe()

	boom := errors.New("boom")
	sch := schema.MustAssemble(personSDL, resolver.Table{
		"person": func(ctx context.Context, p resolver.Params, done resolver.Callback) { done(boom, nil) },
	})
	NewRuntime(sch).BatchResolveAsync(t.Context(), []executor.AsyncResolveTask{
		{ObjectType: "Query", Field: "person", Args: map[string]any{"id": "1"}},
	})

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 1)
	require.Equal(t, "Query", seen[0].ObjectType)
	require.Equal(t, "person", seen[0].Field)
	require.Equal(t, "callback", seen[0].Kind)
	require.ErrorIs(t, seen[0].Err, boom)
}
