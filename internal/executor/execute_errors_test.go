package executor_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanpama/gqlbridge/internal/executor"
	"github.com/hanpama/gqlbridge/resolver"
)

const viewerSDL = `
type Query {
  viewer: Viewer
  people: [Person!]
  must: String!
  other: String
}
type Viewer { profile: Profile name: String }
type Profile { email: String! }
type Person { name: String! }
`

func TestNullPropagatesToNearestNullableAncestor(t *testing.T) {
	got := run(t, viewerSDL, resolver.Table{
		"viewer":         value(map[string]any{"name": "tom"}),
		"Viewer.profile": value(map[string]any{}),
		"email":          failing(errors.New("no email")),
	}, `{ viewer { profile { email } name } }`, nil, nil)

	requireResult(t, &executor.ExecutionResult{
		Data:   map[string]any{"viewer": map[string]any{"profile": nil, "name": "tom"}},
		Errors: []executor.GraphQLError{{Message: "no email", Path: executor.Path{"viewer", "profile", "email"}}},
	}, got)
}

func TestNullListItemNullsTheList(t *testing.T) {
	got := run(t, viewerSDL, resolver.Table{
		"people": value([]any{map[string]any{"n": "a"}, map[string]any{"n": ""}}),
		"Person.name": func(ctx context.Context, p resolver.Params) (any, error) {
			if n := p.Source.(map[string]any)["n"].(string); n != "" {
				return n, nil
			}
			return nil, nil
		},
	}, `{ people { name } }`, nil, nil)

	requireResult(t, &executor.ExecutionResult{
		Data: map[string]any{"people": nil},
		Errors: []executor.GraphQLError{
			{Message: "Cannot return null for non-nullable field people.[1].name", Path: executor.Path{"people", 1, "name"}},
		},
	}, got)
}

func TestNonNullRootNullsData(t *testing.T) {
	got := run(t, viewerSDL, resolver.Table{
		"must":  failing(errors.New("boom")),
		"other": value("fine"),
	}, `{ must other }`, nil, nil)

	requireResult(t, &executor.ExecutionResult{
		Data:   nil,
		Errors: []executor.GraphQLError{{Message: "boom", Path: executor.Path{"must"}}},
	}, got)
}

func TestNullifiedBranchIsNotResolved(t *testing.T) {
	var resolvedEmail bool
	sdl := `
type Query { viewer: Viewer }
type Viewer { name: String! profile: Profile }
type Profile { email: String }
`
	got := run(t, sdl, resolver.Table{
		"viewer":  value(map[string]any{}),
		"name":    failing(errors.New("nameless")),
		"profile": value(map[string]any{}),
		"email": func(ctx context.Context, p resolver.Params) (any, error) {
			resolvedEmail = true
			return "x", nil
		},
	}, `{ viewer { name profile { email } } }`, nil, nil)

	requireResult(t, &executor.ExecutionResult{
		Data:   map[string]any{"viewer": nil},
		Errors: []executor.GraphQLError{{Message: "nameless", Path: executor.Path{"viewer", "name"}}},
	}, got)
	require.False(t, resolvedEmail)
}

type notFound struct{ id string }

func (e notFound) Error() string              { return e.id + " not found" }
func (e notFound) Extensions() map[string]any { return map[string]any{"code": "NOT_FOUND", "id": e.id} }

type sulky struct{}

func (sulky) Name() (string, error) { return "", errors.New("no name today") }

func TestErrorPathsAndExtensions(t *testing.T) {
	got := run(t, viewerSDL, resolver.Table{
		"people": value([]any{map[string]any{"name": "a"}, sulky{}}),
		"other":  failing(fmt.Errorf("wrapped: %w", notFound{id: "7"})),
	}, `{ people { name } other }`, nil, nil)

	requireResult(t, &executor.ExecutionResult{
		Data: map[string]any{"people": nil, "other": nil},
		Errors: []executor.GraphQLError{
			// a failing getter is reported like a failing resolver
			{Message: "name: no name today", Path: executor.Path{"people", 1, "name"}},
			{
				Message:    "wrapped: 7 not found",
				Path:       executor.Path{"other"},
				Extensions: map[string]any{"code": "NOT_FOUND", "id": "7"},
			},
		},
	}, got)
}

func TestErrorLocations(t *testing.T) {
	got := run(t, viewerSDL, resolver.Table{"other": failing(errors.New("boom"))}, "{\n  other\n}", nil, nil)
	require.Len(t, got.Errors, 1)
	require.Equal(t, []executor.Location{{Line: 2, Column: 3}}, got.Errors[0].Locations)
}

func TestResolverPanicIsAFieldError(t *testing.T) {
	got := run(t, viewerSDL, resolver.Table{
		"other": func(ctx context.Context, p resolver.Params) (any, error) { panic("kaboom") },
		"viewer": func(ctx context.Context, p resolver.Params) resolver.Future {
			return resolver.NewPromise(func(resolve func(any), reject func(error)) {
				panic("deferred kaboom")
			})
		},
	}, `{ other viewer { name } }`, nil, nil)

	requireResult(t, &executor.ExecutionResult{
		Data: map[string]any{"other": nil, "viewer": nil},
		Errors: []executor.GraphQLError{
			{Message: "resolver panic: kaboom", Path: executor.Path{"other"}},
			{Message: "resolver panic: deferred kaboom", Path: executor.Path{"viewer"}},
		},
	}, got)
}
