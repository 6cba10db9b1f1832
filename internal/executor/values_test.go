package executor

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanpama/gqlbridge/schema"
)

func coercionSchema() *schema.Schema {
	sch := schema.NewSchema("")
	sch.AddType(schema.NewType("Order", schema.TypeKindEnum, "").
		AddEnumValue(schema.NewEnumValue("ASC", "")).
		AddEnumValue(schema.NewEnumValue("DESC", "")))
	sch.AddType(schema.NewType("Filter", schema.TypeKindInputObject, "").
		AddInputField(schema.NewInputValue("order", "", schema.NamedType("Order")).SetDefault(schema.EnumLiteral("ASC"))).
		AddInputField(schema.NewInputValue("limit", "", schema.NamedType("Int"))))
	sch.AddType(schema.NewType("Lookup", schema.TypeKindInputObject, "").
		AddInputField(schema.NewInputValue("id", "", schema.NamedType("ID"))).
		AddInputField(schema.NewInputValue("email", "", schema.NamedType("String"))).
		SetOneOf(true))
	return sch
}

func TestCoerceInputObjects(t *testing.T) {
	sch := coercionSchema()

	got, err := coerceValue(sch, map[string]any{"limit": json.Number("3")}, schema.NamedType("Filter"))
	require.NoError(t, err)
	require.Equal(t, map[string]any{"order": "ASC", "limit": 3}, got)

	_, err = coerceValue(sch, "SIDEWAYS", schema.NamedType("Order"))
	require.EqualError(t, err, "value SIDEWAYS is not a member of enum Order")

	_, err = coerceValue(sch, map[string]any{"bogus": 1}, schema.NamedType("Filter"))
	require.EqualError(t, err, `unknown field "bogus" for input Filter`)

	_, err = coerceValue(sch, map[string]any{"limit": "many"}, schema.NamedType("Filter"))
	require.ErrorContains(t, err, "field Filter.limit:")

	got, err = coerceValue(sch, map[string]any{"id": 9}, schema.NamedType("Lookup"))
	require.NoError(t, err)
	require.Equal(t, map[string]any{"id": "9"}, got)

	_, err = coerceValue(sch, map[string]any{"id": "9", "email": "a@b"}, schema.NamedType("Lookup"))
	require.EqualError(t, err, "exactly one field must be specified for Lookup")
}

func TestCoerceLists(t *testing.T) {
	sch := coercionSchema()
	listOfInts := schema.ListType(schema.NonNullType(schema.NamedType("Int")))

	got, err := coerceValue(sch, []any{json.Number("1"), 2}, listOfInts)
	require.NoError(t, err)
	require.Equal(t, []any{1, 2}, got)

	// a single value is accepted where a list is expected
	got, err = coerceValue(sch, "DESC", schema.ListType(schema.NamedType("Order")))
	require.NoError(t, err)
	require.Equal(t, []any{"DESC"}, got)

	_, err = coerceValue(sch, []any{1, nil}, listOfInts)
	require.EqualError(t, err, "cannot provide null for non-null type")
}

func TestPathToString(t *testing.T) {
	require.Equal(t, "people.[1].name", pathToString(Path{"people", 1, "name"}))
	require.Equal(t, "", pathToString(nil))
}
