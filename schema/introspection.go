package schema

import (
	"sort"
	"strings"
	"sync"

	"github.com/vektah/gqlparser/v2"
)

var introspection struct {
	once  sync.Once
	types []*Type
}

// IntrospectionTypes returns the __ types (__Schema, __Type and the rest) as
// gqlparser's prelude declares them, sorted by name. The definitions are
// shared and must not be modified.
func IntrospectionTypes() []*Type {
	introspection.once.Do(func() {
		doc := gqlparser.MustLoadSchema()
		for name, def := range doc.Types {
			if strings.HasPrefix(name, "__") {
				introspection.types = append(introspection.types, buildType(doc, def))
			}
		}
		sort.Slice(introspection.types, func(i, j int) bool {
			return introspection.types[i].Name < introspection.types[j].Name
		})
	})
	return append([]*Type(nil), introspection.types...)
}
