package resolverrt

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/hanpama/gqlbridge/resolver"
)

// property reads name from a parent value the way a default GraphQL resolver
// does: a map key, a struct field (json tag first, then the field name in any
// case) or a method with no arguments.
func property(source any, name string) (any, error) {
	if source == nil {
		return nil, nil
	}
	if m, ok := source.(map[string]any); ok {
		return m[name], nil
	}

	rv := reflect.ValueOf(source)
	if rv.Kind() == reflect.Ptr && rv.IsNil() {
		return nil, nil
	}
	if m, ok := methodByName(rv, name); ok {
		return callGetter(m, name)
	}
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, nil
		}
		v := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if !v.IsValid() {
			return nil, nil
		}
		return v.Interface(), nil
	case reflect.Struct:
		idx, ok := structFields(rv.Type())[name]
		if !ok {
			idx, ok = structFields(rv.Type())[strings.ToLower(name)]
		}
		if !ok {
			return nil, nil
		}
		f, err := rv.FieldByIndexErr(idx)
		if err != nil {
			// nil embedded pointer
			return nil, nil
		}
		return f.Interface(), nil
	}
	return nil, nil
}

func methodByName(rv reflect.Value, name string) (reflect.Value, bool) {
	if name == "" || !rv.IsValid() {
		return reflect.Value{}, false
	}
	m := rv.MethodByName(strings.ToUpper(name[:1]) + name[1:])
	if !m.IsValid() || m.Type().NumIn() != 0 {
		return reflect.Value{}, false
	}
	switch m.Type().NumOut() {
	case 1:
		return m, true
	case 2:
		return m, m.Type().Out(1) == errorType
	}
	return reflect.Value{}, false
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// callGetter runs a getter method. A panic inside it is returned as a
// *resolver.PanicError like any other resolver panic.
func callGetter(m reflect.Value, name string) (value any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			value, err = nil, &resolver.PanicError{Value: rec}
		}
	}()
	out := m.Call(nil)
	if len(out) == 2 && !out[1].IsNil() {
		return nil, fmt.Errorf("%s: %w", name, out[1].Interface().(error))
	}
	return out[0].Interface(), nil
}

var fieldCache sync.Map // reflect.Type -> map[string][]int

// structFields indexes the exported fields of t by json name and by lower
// cased Go name. Embedded structs are flattened.
func structFields(t reflect.Type) map[string][]int {
	if v, ok := fieldCache.Load(t); ok {
		return v.(map[string][]int)
	}
	out := map[string][]int{}
	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() || f.Anonymous {
			continue
		}
		if tag, ok := f.Tag.Lookup("json"); ok {
			name, _, _ := strings.Cut(tag, ",")
			if name == "-" {
				continue
			}
			if name != "" {
				out[name] = f.Index
			}
		}
		if _, ok := out[strings.ToLower(f.Name)]; !ok {
			out[strings.ToLower(f.Name)] = f.Index
		}
	}
	fieldCache.Store(t, out)
	return out
}
