// Package introspection answers the __schema and __type meta fields on top of
// another executor.Runtime.
package introspection

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hanpama/gqlbridge/internal/executor"
	"github.com/hanpama/gqlbridge/schema"
)

// Wrap returns a Runtime that serves introspection and delegates everything
// else to base, along with the schema to execute against. sch is not
// modified.
func Wrap(base executor.Runtime, sch *schema.Schema) (executor.Runtime, *schema.Schema) {
	view := withIntrospectionTypes(sch)
	return &runtime{base: base, view: view}, withMetaFields(view)
}

type runtime struct {
	base executor.Runtime
	// view is the described schema: user types plus the __ types
	view *schema.Schema
}

func (r *runtime) ResolveSync(ctx context.Context, objectType, field string, source any, args map[string]any) (any, error) {
	if objectType == r.view.QueryType {
		switch field {
		case "__schema":
			return r.view, nil
		case "__type":
			name, _ := args["name"].(string)
			return r.named(name), nil
		}
	}
	if !strings.HasPrefix(objectType, "__") {
		return r.base.ResolveSync(ctx, objectType, field, source, args)
	}
	resolve, ok := metaFields[objectType+"."+field]
	if !ok {
		return nil, fmt.Errorf("introspection: no field %s.%s", objectType, field)
	}
	return resolve(r, source, args)
}

func (r *runtime) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	return r.base.BatchResolveAsync(ctx, tasks)
}

func (r *runtime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	return r.base.ResolveType(ctx, abstractType, value)
}

func (r *runtime) SerializeLeafValue(ctx context.Context, typ string, value any) (any, error) {
	switch typ {
	case "__TypeKind", "__DirectiveLocation":
		return fmt.Sprint(value), nil
	}
	if p, ok := value.(*string); ok {
		if p == nil {
			return nil, nil
		}
		value = *p
	}
	return r.base.SerializeLeafValue(ctx, typ, value)
}

// Every __Type value handed to the executor is a *schema.TypeRef. Named refs
// are looked up in the view; list and non-null refs describe the wrapper.

// named returns a ref to the named type, or an untyped nil when the view has
// no such type.
func (r *runtime) named(name string) any {
	if name == "" || r.view.Types[name] == nil {
		return nil
	}
	return schema.NamedType(name)
}

func (r *runtime) definition(ref *schema.TypeRef) *schema.Type {
	if ref.Kind != schema.TypeRefKindNamed {
		return nil
	}
	return r.view.Types[ref.Named]
}

func (r *runtime) refs(names []string) []*schema.TypeRef {
	out := make([]*schema.TypeRef, 0, len(names))
	for _, name := range names {
		if r.view.Types[name] != nil {
			out = append(out, schema.NamedType(name))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Named < out[j].Named })
	return out
}

type metaField func(r *runtime, source any, args map[string]any) (any, error)

// on adapts a resolver over a concrete source type.
func on[T any](fn func(r *runtime, src T, args map[string]any) any) metaField {
	return func(r *runtime, source any, args map[string]any) (any, error) {
		src, ok := source.(T)
		if !ok {
			return nil, fmt.Errorf("introspection: unexpected source %T", source)
		}
		return fn(r, src, args), nil
	}
}

// onDefinition resolves a __Type field that only named types carry. Wrappers
// and unknown names answer null.
func onDefinition(fn func(r *runtime, t *schema.Type, args map[string]any) any) metaField {
	return on(func(r *runtime, ref *schema.TypeRef, args map[string]any) any {
		t := r.definition(ref)
		if t == nil {
			return nil
		}
		return fn(r, t, args)
	})
}

var metaFields = map[string]metaField{
	"__Schema.description": on(func(_ *runtime, s *schema.Schema, _ map[string]any) any { return optional(s.Description) }),
	"__Schema.types": on(func(r *runtime, s *schema.Schema, _ map[string]any) any {
		names := make([]string, 0, len(s.Types))
		for name := range s.Types {
			names = append(names, name)
		}
		return r.refs(names)
	}),
	"__Schema.queryType":        on(func(r *runtime, s *schema.Schema, _ map[string]any) any { return r.named(s.QueryType) }),
	"__Schema.mutationType":     on(func(r *runtime, s *schema.Schema, _ map[string]any) any { return r.named(s.MutationType) }),
	"__Schema.subscriptionType": on(func(r *runtime, s *schema.Schema, _ map[string]any) any { return r.named(s.SubscriptionType) }),
	"__Schema.directives": on(func(_ *runtime, s *schema.Schema, _ map[string]any) any {
		out := make([]*schema.Directive, 0, len(s.Directives))
		for _, d := range s.Directives {
			out = append(out, d)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return out
	}),

	"__Type.kind": on(func(r *runtime, ref *schema.TypeRef, _ map[string]any) any {
		if ref.Kind != schema.TypeRefKindNamed {
			return string(ref.Kind)
		}
		if t := r.definition(ref); t != nil {
			return string(t.Kind)
		}
		return nil
	}),
	"__Type.name": on(func(_ *runtime, ref *schema.TypeRef, _ map[string]any) any {
		if ref.Kind != schema.TypeRefKindNamed {
			return nil
		}
		return ref.Named
	}),
	"__Type.ofType": on(func(_ *runtime, ref *schema.TypeRef, _ map[string]any) any {
		if ref.Kind == schema.TypeRefKindNamed || ref.OfType == nil {
			return nil
		}
		return ref.OfType
	}),
	"__Type.description": onDefinition(func(_ *runtime, t *schema.Type, _ map[string]any) any { return optional(t.Description) }),
	"__Type.specifiedByURL": onDefinition(func(_ *runtime, t *schema.Type, _ map[string]any) any {
		if t.SpecifiedByURL == nil {
			return nil
		}
		return *t.SpecifiedByURL
	}),
	"__Type.isOneOf": onDefinition(func(_ *runtime, t *schema.Type, _ map[string]any) any {
		if t.Kind != schema.TypeKindInputObject {
			return nil
		}
		return t.OneOf
	}),
	"__Type.fields": onDefinition(func(_ *runtime, t *schema.Type, args map[string]any) any {
		if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
			return nil
		}
		return visible(t.GetOrderedFields(), args, func(f *schema.Field) bool { return f.IsDeprecated })
	}),
	"__Type.interfaces": onDefinition(func(r *runtime, t *schema.Type, _ map[string]any) any {
		if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
			return nil
		}
		return r.refs(t.Interfaces)
	}),
	"__Type.possibleTypes": onDefinition(func(r *runtime, t *schema.Type, _ map[string]any) any {
		if t.Kind != schema.TypeKindInterface && t.Kind != schema.TypeKindUnion {
			return nil
		}
		return r.refs(t.PossibleTypes)
	}),
	"__Type.enumValues": onDefinition(func(_ *runtime, t *schema.Type, args map[string]any) any {
		if t.Kind != schema.TypeKindEnum {
			return nil
		}
		return visible(t.EnumValues, args, func(v *schema.EnumValue) bool { return v.IsDeprecated })
	}),
	"__Type.inputFields": onDefinition(func(_ *runtime, t *schema.Type, args map[string]any) any {
		if t.Kind != schema.TypeKindInputObject {
			return nil
		}
		return visible(t.GetOrderedInputFields(), args, deprecatedInput)
	}),

	"__Field.name":        on(func(_ *runtime, f *schema.Field, _ map[string]any) any { return f.Name }),
	"__Field.description": on(func(_ *runtime, f *schema.Field, _ map[string]any) any { return optional(f.Description) }),
	"__Field.args": on(func(_ *runtime, f *schema.Field, args map[string]any) any {
		return visible(f.GetOrderedArguments(), args, deprecatedInput)
	}),
	"__Field.type":         on(func(_ *runtime, f *schema.Field, _ map[string]any) any { return f.Type }),
	"__Field.isDeprecated": on(func(_ *runtime, f *schema.Field, _ map[string]any) any { return f.IsDeprecated }),
	"__Field.deprecationReason": on(func(_ *runtime, f *schema.Field, _ map[string]any) any {
		return reason(f.IsDeprecated, f.DeprecationReason)
	}),

	"__InputValue.name":        on(func(_ *runtime, v *schema.InputValue, _ map[string]any) any { return v.Name }),
	"__InputValue.description": on(func(_ *runtime, v *schema.InputValue, _ map[string]any) any { return optional(v.Description) }),
	"__InputValue.type":        on(func(_ *runtime, v *schema.InputValue, _ map[string]any) any { return v.Type }),
	"__InputValue.defaultValue": on(func(_ *runtime, v *schema.InputValue, _ map[string]any) any {
		if v.DefaultValue == nil {
			return nil
		}
		return schema.RenderValue(v.DefaultValue)
	}),
	"__InputValue.isDeprecated": on(func(_ *runtime, v *schema.InputValue, _ map[string]any) any { return v.IsDeprecated }),
	"__InputValue.deprecationReason": on(func(_ *runtime, v *schema.InputValue, _ map[string]any) any {
		return reason(v.IsDeprecated, v.DeprecationReason)
	}),

	"__EnumValue.name":         on(func(_ *runtime, v *schema.EnumValue, _ map[string]any) any { return v.Name }),
	"__EnumValue.description":  on(func(_ *runtime, v *schema.EnumValue, _ map[string]any) any { return optional(v.Description) }),
	"__EnumValue.isDeprecated": on(func(_ *runtime, v *schema.EnumValue, _ map[string]any) any { return v.IsDeprecated }),
	"__EnumValue.deprecationReason": on(func(_ *runtime, v *schema.EnumValue, _ map[string]any) any {
		return reason(v.IsDeprecated, v.DeprecationReason)
	}),

	"__Directive.name":         on(func(_ *runtime, d *schema.Directive, _ map[string]any) any { return d.Name }),
	"__Directive.description":  on(func(_ *runtime, d *schema.Directive, _ map[string]any) any { return optional(d.Description) }),
	"__Directive.isRepeatable": on(func(_ *runtime, d *schema.Directive, _ map[string]any) any { return d.IsRepeatable }),
	"__Directive.locations": on(func(_ *runtime, d *schema.Directive, _ map[string]any) any {
		locs := append([]string(nil), d.Locations...)
		sort.Strings(locs)
		return locs
	}),
	"__Directive.args": on(func(_ *runtime, d *schema.Directive, args map[string]any) any {
		return visible(d.Arguments, args, deprecatedInput)
	}),
}

// visible drops deprecated items unless includeDeprecated is true. The result
// is never nil so non-null lists stay lists.
func visible[T any](items []T, args map[string]any, deprecated func(T) bool) []T {
	include, _ := args["includeDeprecated"].(bool)
	out := make([]T, 0, len(items))
	for _, item := range items {
		if include || !deprecated(item) {
			out = append(out, item)
		}
	}
	return out
}

func deprecatedInput(v *schema.InputValue) bool { return v.IsDeprecated }

// optional and reason return a plain string or an untyped nil, so nullable
// String fields never reach the serializer as a *string.
func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func reason(deprecated bool, why string) any {
	if !deprecated {
		return nil
	}
	return why
}
