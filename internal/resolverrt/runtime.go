package resolverrt

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hanpama/gqlbridge/internal/eventbus"
	"github.com/hanpama/gqlbridge/internal/events"
	"github.com/hanpama/gqlbridge/internal/executor"
	"github.com/hanpama/gqlbridge/resolver"
	"github.com/hanpama/gqlbridge/schema"
)

// Runtime implements executor.Runtime over the resolvers bound to a schema.
//   - Fields without a resolver are projected from the parent value and never
//     block (ResolveSync).
//   - Resolver-backed fields of one depth run concurrently, at most limit at a
//     time when a limit is set. Results keep task order and fail independently.
//   - Abstract values name their concrete type with a "__typename" key or a
//     TypeName() string method.
type Runtime struct {
	schema *schema.Schema
	limit  int
}

var _ executor.Runtime = (*Runtime)(nil)

// Option configures a Runtime.
type Option func(*Runtime)

// WithConcurrency caps the number of resolvers running at once within one
// depth. Zero or less means no cap.
func WithConcurrency(n int) Option {
	return func(r *Runtime) { r.limit = n }
}

func NewRuntime(sch *schema.Schema, opts ...Option) *Runtime {
	r := &Runtime{schema: sch}
	for _, o := range opts {
		o(r)
	}
	return r
}

// ResolveSync reads the field from the parent value. A missing property is a
// null, not an error.
func (r *Runtime) ResolveSync(ctx context.Context, objectType string, field string, source any, args map[string]any) (any, error) {
	return property(source, field)
}

// BatchResolveAsync runs the resolver bound to each task's field.
func (r *Runtime) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	results := make([]executor.AsyncResolveResult, len(tasks))
	if len(tasks) == 0 {
		return results
	}
	if len(tasks) == 1 {
		results[0] = r.resolve(ctx, tasks[0])
		return results
	}

	var g errgroup.Group
	if r.limit > 0 {
		g.SetLimit(r.limit)
	}
	for i := range tasks {
		g.Go(func() error {
			results[i] = r.resolve(ctx, tasks[i])
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (r *Runtime) resolve(ctx context.Context, task executor.AsyncResolveTask) executor.AsyncResolveResult {
	f := r.schema.Field(task.ObjectType, task.Field)
	if f == nil {
		return executor.AsyncResolveResult{Error: fmt.Errorf("no field %s.%s", task.ObjectType, task.Field)}
	}
	if f.Resolver == nil {
		v, err := property(task.Source, task.Field)
		return executor.AsyncResolveResult{Value: v, Error: err}
	}

	start := time.Now()
	v, err := f.Resolver.Resolve(ctx, resolver.Params{
		ObjectType: task.ObjectType,
		Field:      task.Field,
		Source:     task.Source,
		Args:       task.Args,
		Path:       pathOf(task.Path),
	})
	eventbus.Publish(ctx, events.ResolverFinish{
		ObjectType: task.ObjectType,
		Field:      task.Field,
		Kind:       f.Resolver.Kind().String(),
		Err:        err,
		Duration:   time.Since(start),
	})
	if err != nil {
		return executor.AsyncResolveResult{Error: err}
	}
	return executor.AsyncResolveResult{Value: v}
}

func pathOf(p executor.Path) []any {
	out := make([]any, len(p))
	for i, e := range p {
		out[i] = e
	}
	return out
}

type typeNamer interface {
	TypeName() string
}

// ResolveType names the concrete object type of an interface or union value.
func (r *Runtime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	if n, ok := value.(typeNamer); ok {
		return n.TypeName(), nil
	}
	if v, err := property(value, "__typename"); err == nil {
		if name, ok := v.(string); ok && name != "" {
			return name, nil
		}
	}
	// a single possible type needs no hint
	if t := r.schema.Types[abstractType]; t != nil && len(t.PossibleTypes) == 1 {
		return t.PossibleTypes[0], nil
	}
	return "", fmt.Errorf("cannot determine the concrete type of %s value %T; provide __typename", abstractType, value)
}

// SerializeLeafValue converts a resolved scalar or enum to its JSON form.
// Custom scalars are passed through.
func (r *Runtime) SerializeLeafValue(ctx context.Context, typeName string, value any) (any, error) {
	switch typeName {
	case "Int":
		return serializeInt(value)
	case "Float":
		return serializeFloat(value)
	case "String":
		return serializeString(value)
	case "Boolean":
		if b, ok := value.(bool); ok {
			return b, nil
		}
		return nil, fmt.Errorf("Boolean cannot represent a non boolean value: %v", value)
	case "ID":
		return serializeID(value)
	}
	t := r.schema.Types[typeName]
	if t != nil && t.Kind == schema.TypeKindEnum {
		name := fmt.Sprint(value)
		for _, ev := range t.EnumValues {
			if ev.Name == name {
				return name, nil
			}
		}
		return nil, fmt.Errorf("Enum %q cannot represent value: %v", typeName, value)
	}
	return value, nil
}

func serializeInt(value any) (any, error) {
	switch v := value.(type) {
	case int:
		if v >= math.MinInt32 && v <= math.MaxInt32 {
			return v, nil
		}
	case int8, int16, int32, uint8, uint16:
		return serializeInt(toInt(v))
	case int64:
		if v >= math.MinInt32 && v <= math.MaxInt32 {
			return int(v), nil
		}
	case uint32:
		if v <= math.MaxInt32 {
			return int(v), nil
		}
	case float32:
		return serializeInt(float64(v))
	case float64:
		if v == math.Trunc(v) && v >= math.MinInt32 && v <= math.MaxInt32 {
			return int(v), nil
		}
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return serializeInt(i)
		}
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	}
	return nil, fmt.Errorf("Int cannot represent value: %v", value)
}

func toInt(v any) int {
	switch n := v.(type) {
	case int8:
		return int(n)
	case int16:
		return int(n)
	case int32:
		return int(n)
	case uint8:
		return int(n)
	case uint16:
		return int(n)
	}
	return 0
}

func serializeFloat(value any) (any, error) {
	switch v := value.(type) {
	case float64:
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			return v, nil
		}
	case float32:
		return serializeFloat(float64(v))
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f, nil
		}
	case bool:
		if v {
			return 1.0, nil
		}
		return 0.0, nil
	}
	return nil, fmt.Errorf("Float cannot represent value: %v", value)
}

func serializeString(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case fmt.Stringer:
		return v.String(), nil
	case bool, int, int32, int64, float32, float64, json.Number:
		return fmt.Sprint(v), nil
	}
	return nil, fmt.Errorf("String cannot represent value: %v", value)
}

func serializeID(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case int, int32, int64, uint, uint32, uint64, json.Number:
		return fmt.Sprint(v), nil
	case fmt.Stringer:
		return v.String(), nil
	}
	return nil, fmt.Errorf("ID cannot represent value: %v", value)
}
