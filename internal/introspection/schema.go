package introspection

import (
	"github.com/hanpama/gqlbridge/schema"
)

// withIntrospectionTypes returns a copy of sch that also holds the __ types.
// It is the schema that __schema and __type describe.
func withIntrospectionTypes(sch *schema.Schema) *schema.Schema {
	out := sch.Clone()
	for _, t := range schema.IntrospectionTypes() {
		out.Types[t.Name] = t
	}
	return out
}

// withMetaFields returns a copy of view whose query root additionally
// declares __schema and __type, so the executor can run them.
func withMetaFields(view *schema.Schema) *schema.Schema {
	out := view.Clone()
	query := view.GetQueryType()
	if query == nil {
		return out
	}
	q := *query
	q.Fields = append(append([]*schema.Field{}, query.Fields...),
		schema.NewField("__schema", "Access the current type schema of this server.",
			schema.NonNullType(schema.NamedType("__Schema"))),
		schema.NewField("__type", "Request the type information of a single type.", schema.NamedType("__Type")).
			AddArgument(schema.NewInputValue("name", "The name of the type to look up.",
				schema.NonNullType(schema.NamedType("String")))),
	)
	out.Types[q.Name] = &q
	return out
}
