package executor_test

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/gqlbridge/internal/executor"
	"github.com/hanpama/gqlbridge/internal/language"
	"github.com/hanpama/gqlbridge/internal/resolverrt"
	"github.com/hanpama/gqlbridge/resolver"
	"github.com/hanpama/gqlbridge/schema"
)

// run executes query against sdl with the resolver table bound, through the
// resolver-table runtime.
func run(t *testing.T, sdl string, table resolver.Table, query string, vars map[string]any, root any) *executor.ExecutionResult {
	t.Helper()
	sch := schema.MustAssemble(sdl, table)
	return runWith(t, resolverrt.NewRuntime(sch), sch, query, vars, root)
}

func runWith(t *testing.T, rt executor.Runtime, sch *schema.Schema, query string, vars map[string]any, root any) *executor.ExecutionResult {
	t.Helper()
	doc, err := language.ParseQuery(query)
	require.NoError(t, err)
	return executor.NewExecutor(rt, sch).ExecuteRequest(context.Background(), doc, "", vars, root)
}

// plain turns ordered response objects into maps and drops error locations
// so results compare against literals.
func plain(res *executor.ExecutionResult) *executor.ExecutionResult {
	out := &executor.ExecutionResult{Data: executor.Plain(res.Data)}
	for _, e := range res.Errors {
		e.Locations = nil
		out.Errors = append(out.Errors, e)
	}
	return out
}

func requireResult(t *testing.T, want, got *executor.ExecutionResult) {
	t.Helper()
	if diff := cmp.Diff(want, plain(got), cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

// value is a direct resolver returning v.
func value(v any) resolver.Func {
	return func(ctx context.Context, p resolver.Params) (any, error) { return v, nil }
}

func failing(err error) resolver.Func {
	return func(ctx context.Context, p resolver.Params) (any, error) { return nil, err }
}

// recorder wraps a Runtime and records how the executor drives it.
type recorder struct {
	executor.Runtime

	mu      sync.Mutex
	syncs   []string   // "Type.field" per ResolveSync call
	batches [][]string // sorted "Type.field@path" per BatchResolveAsync call
}

func record(rt executor.Runtime) *recorder { return &recorder{Runtime: rt} }

func (r *recorder) ResolveSync(ctx context.Context, objectType, field string, source any, args map[string]any) (any, error) {
	r.mu.Lock()
	r.syncs = append(r.syncs, objectType+"."+field)
	r.mu.Unlock()
	return r.Runtime.ResolveSync(ctx, objectType, field, source, args)
}

func (r *recorder) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	batch := make([]string, len(tasks))
	for i, task := range tasks {
		batch[i] = task.ObjectType + "." + task.Field + "@" + pathKey(task.Path)
	}
	sort.Strings(batch)
	r.mu.Lock()
	r.batches = append(r.batches, batch)
	r.mu.Unlock()
	return r.Runtime.BatchResolveAsync(ctx, tasks)
}

func pathKey(p executor.Path) string {
	parts := make([]string, len(p))
	for i, e := range p {
		switch v := e.(type) {
		case int:
			parts[i] = "[" + strconv.Itoa(v) + "]"
		default:
			parts[i] = fmt.Sprint(v)
		}
	}
	return strings.Join(parts, ".")
}
