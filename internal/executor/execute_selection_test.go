package executor_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanpama/gqlbridge/internal/executor"
	"github.com/hanpama/gqlbridge/resolver"
)

const castSDL = `
type Query {
  hero: Character
  search: [Result]
  node: Node
  greeting(name: String = "world"): String
}
interface Character { name: String }
type Human implements Character { name: String height: Float }
type Droid implements Character { name: String model: String }
union Result = Human | Droid
interface Node { id: ID! }
type Only implements Node { id: ID! }
`

type droid struct {
	Name  string
	Model string
}

func (droid) TypeName() string { return "Droid" }

func castTable() resolver.Table {
	return resolver.Table{
		"hero": value(droid{Name: "R2-D2", Model: "astromech"}),
		"search": value([]any{
			map[string]any{"__typename": "Human", "name": "Luke", "height": 1.72},
			droid{Name: "C-3PO", Model: "protocol"},
		}),
		"node": value(map[string]any{"id": 7}),
		"greeting": func(ctx context.Context, p resolver.Params) (any, error) {
			return "hello " + p.Args["name"].(string), nil
		},
	}
}

func TestFragmentsAliasesAndDirectives(t *testing.T) {
	query := `query($withModel: Boolean!) {
		hero { ...Named ... on Droid { model @include(if: $withModel) } name }
		other: greeting(name: "tom")
		greeting
		skipped: greeting @skip(if: true)
	}
	fragment Named on Character { name }`

	got := run(t, castSDL, castTable(), query, map[string]any{"withModel": true}, nil)
	requireResult(t, &executor.ExecutionResult{Data: map[string]any{
		"hero":     map[string]any{"name": "R2-D2", "model": "astromech"},
		"other":    "hello tom",
		"greeting": "hello world",
	}}, got)

	got = run(t, castSDL, castTable(), query, map[string]any{"withModel": false}, nil)
	requireResult(t, &executor.ExecutionResult{Data: map[string]any{
		"hero":     map[string]any{"name": "R2-D2"},
		"other":    "hello tom",
		"greeting": "hello world",
	}}, got)
}

func TestAbstractTypes(t *testing.T) {
	got := run(t, castSDL, castTable(), `{
		search {
			__typename
			... on Character { name }
			... on Human { height }
			...DroidFields
		}
		node { __typename id }
	}
	fragment DroidFields on Droid { model }`, nil, nil)

	requireResult(t, &executor.ExecutionResult{Data: map[string]any{
		"search": []any{
			map[string]any{"__typename": "Human", "name": "Luke", "height": 1.72},
			map[string]any{"__typename": "Droid", "name": "C-3PO", "model": "protocol"},
		},
		// Node has one implementation, so no hint is needed
		"node": map[string]any{"__typename": "Only", "id": "7"},
	}}, got)
}

func TestAbstractTypeErrors(t *testing.T) {
	table := castTable()
	table["search"] = value([]any{
		map[string]any{"__typename": "Starship"},
		map[string]any{"__typename": "Only"},
		map[string]any{"name": "nobody"},
	})
	got := run(t, castSDL, table, `{ search { __typename } }`, nil, nil)

	requireResult(t, &executor.ExecutionResult{
		Data: map[string]any{"search": []any{nil, nil, nil}},
		Errors: []executor.GraphQLError{
			{Message: "Abstract type Result must resolve to an Object type at runtime. Got: Starship", Path: executor.Path{"search", 0}},
			{Message: "Runtime Object type Only is not a possible type for Result", Path: executor.Path{"search", 1}},
			{Message: "cannot determine the concrete type of Result value map[string]interface {}; provide __typename", Path: executor.Path{"search", 2}},
		},
	}, got)
}

func TestResponseKeepsSelectionOrder(t *testing.T) {
	sdl := `type Query { zeta: String alpha: String mid: String }`
	// alpha has no resolver and is read from the root value
	table := resolver.Table{"zeta": value("z"), "mid": value("m")}
	res := run(t, sdl, table, `{ zeta alpha renamed: mid zeta }`, nil, map[string]any{"alpha": "a"})

	out, err := json.Marshal(res)
	require.NoError(t, err)
	require.Equal(t, `{"data":{"zeta":"z","alpha":"a","renamed":"m"}}`, string(out))
}

func TestDuplicateFieldsMergeSubselections(t *testing.T) {
	got := run(t, castSDL, castTable(), `{
		hero { name }
		... on Query { hero { ... on Droid { model } } }
	}`, nil, nil)
	res, err := json.Marshal(got)
	require.NoError(t, err)
	require.Equal(t, `{"data":{"hero":{"name":"R2-D2","model":"astromech"}}}`, string(res))
}
