package schema

import (
	"sort"
	"strings"

	"github.com/hanpama/gqlbridge/resolver"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

// Assemble builds an executable schema from input and binds the resolver
// table to it.
//
// input is SDL text (string or []byte) or a *Schema built with the helpers in
// this package. A pre-built schema keeps the resolvers already bound to its
// fields; entries in table override them. The argument is never modified.
//
// Table keys are either "Type.field", bound to exactly that field, or a bare
// field name, bound to every object field of that name that has no qualified
// entry. A key that matches no field is an error.
func Assemble(input any, table resolver.Table) (*Schema, error) {
	var (
		s   *Schema
		err error
	)
	switch in := input.(type) {
	case string:
		s, err = fromSDL(in)
	case []byte:
		s, err = fromSDL(string(in))
	case *Schema:
		if in == nil {
			return nil, &BuildError{Reason: "schema is nil"}
		}
		s, err = fromSchema(in)
	case nil:
		return nil, &BuildError{Reason: "schema is required"}
	default:
		return nil, buildErrorf(nil, "unsupported schema input %T", input)
	}
	if err != nil {
		return nil, err
	}
	if err := bind(s, table); err != nil {
		return nil, err
	}
	return s, nil
}

// MustAssemble is like Assemble but panics on error.
func MustAssemble(input any, table resolver.Table) *Schema {
	s, err := Assemble(input, table)
	if err != nil {
		panic(err)
	}
	return s
}

func fromSDL(sdl string) (*Schema, error) {
	if strings.TrimSpace(sdl) == "" {
		return nil, &BuildError{Reason: "schema definition is empty"}
	}
	doc, err := gqlparser.LoadSchema(&ast.Source{Name: "schema.graphql", Input: sdl})
	if err != nil {
		return nil, buildErrorf(err, "invalid schema definition")
	}
	if doc.Query == nil {
		return nil, &BuildError{Reason: "schema has no query root type"}
	}
	s := fromAST(doc)
	s.doc = doc
	return s, nil
}

func fromSchema(in *Schema) (*Schema, error) {
	s := in.Clone()
	for name, t := range s.Types {
		s.Types[name] = copyType(t)
	}
	s.AddBuiltins()
	if s.GetQueryType() == nil {
		return nil, buildErrorf(nil, "query root type %q is not defined", s.QueryType)
	}
	doc, err := gqlparser.LoadSchema(&ast.Source{Name: "schema.graphql", Input: Render(s)})
	if err != nil {
		return nil, buildErrorf(err, "invalid schema")
	}
	s.doc = doc
	return s, nil
}

func copyType(t *Type) *Type {
	out := *t
	if t.Fields != nil {
		out.Fields = make([]*Field, len(t.Fields))
		for i, f := range t.Fields {
			fc := *f
			out.Fields[i] = &fc
		}
	}
	return &out
}

func bind(s *Schema, table resolver.Table) error {
	qualified := map[*Field]bool{}
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		typeName, fieldName, ok := strings.Cut(key, ".")
		if !ok {
			continue
		}
		t := s.Types[typeName]
		if t == nil || t.Kind != TypeKindObject {
			return buildErrorf(nil, "resolver %q: %q is not an object type", key, typeName)
		}
		f := t.GetField(fieldName)
		if f == nil {
			return buildErrorf(nil, "resolver %q: type %s has no field %q", key, typeName, fieldName)
		}
		r, err := resolver.Adapt(table[key])
		if err != nil {
			return buildErrorf(err, "resolver %q", key)
		}
		f.Bind(r)
		qualified[f] = true
	}

	typeNames := make([]string, 0, len(s.Types))
	for name := range s.Types {
		typeNames = append(typeNames, name)
	}
	sort.Strings(typeNames)

	for _, key := range keys {
		if strings.Contains(key, ".") {
			continue
		}
		r, err := resolver.Adapt(table[key])
		if err != nil {
			return buildErrorf(err, "resolver %q", key)
		}
		matched := false
		for _, name := range typeNames {
			t := s.Types[name]
			if t.Kind != TypeKindObject {
				continue
			}
			f := t.GetField(key)
			if f == nil {
				continue
			}
			matched = true
			if !qualified[f] {
				f.Bind(r)
			}
		}
		if !matched {
			return buildErrorf(nil, "resolver %q matches no field in the schema", key)
		}
	}
	return nil
}
