package resolverrt

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanpama/gqlbridge/resolver"
)

type person struct {
	ID       string `json:"id"`
	FullName string `json:"name"`
	Age      int
	Hidden   string `json:"-"`
	*address
}

type address struct {
	City string
}

func (p person) Greeting() string { return "hi " + p.FullName }

func (p *person) Fail() (string, error) { return "", errors.New("unavailable") }

func (p *person) Crash() string { panic("getter exploded") }

func TestResolveSync_MapKey(t *testing.T) {
	rt := NewRuntime(nil)
	v, err := rt.ResolveSync(t.Context(), "Person", "name", map[string]any{"name": "tom"}, nil)
	require.NoError(t, err)
	require.Equal(t, "tom", v)

	v, err = rt.ResolveSync(t.Context(), "Person", "missing", map[string]any{"name": "tom"}, nil)
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestResolveSync_TypedMap(t *testing.T) {
	rt := NewRuntime(nil)
	v, err := rt.ResolveSync(t.Context(), "Person", "name", map[string]string{"name": "tom"}, nil)
	require.NoError(t, err)
	require.Equal(t, "tom", v)
}

func TestResolveSync_StructFields(t *testing.T) {
	rt := NewRuntime(nil)
	p := &person{ID: "1", FullName: "tom", Age: 30, Hidden: "x", address: &address{City: "Seoul"}}

	cases := map[string]any{
		"id":       "1",
		"name":     "tom",
		"age":      30,
		"Age":      30,
		"city":     "Seoul",
		"hidden":   nil,
		"nope":     nil,
		"greeting": "hi tom",
	}
	for field, want := range cases {
		got, err := rt.ResolveSync(t.Context(), "Person", field, p, nil)
		require.NoError(t, err, field)
		require.Equal(t, want, got, field)
	}
}

func TestResolveSync_NilEmbeddedPointer(t *testing.T) {
	rt := NewRuntime(nil)
	got, err := rt.ResolveSync(t.Context(), "Person", "city", person{FullName: "tom"}, nil)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestResolveSync_MethodError(t *testing.T) {
	rt := NewRuntime(nil)
	_, err := rt.ResolveSync(t.Context(), "Person", "fail", &person{}, nil)
	require.ErrorContains(t, err, "unavailable")
}

func TestResolveSync_MethodPanic(t *testing.T) {
	rt := NewRuntime(nil)
	v, err := rt.ResolveSync(t.Context(), "Person", "crash", &person{}, nil)
	require.Nil(t, v)
	var pe *resolver.PanicError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, "getter exploded", pe.Value)
}

func TestResolveSync_NilSources(t *testing.T) {
	rt := NewRuntime(nil)
	var p *person
	for _, src := range []any{nil, p, 42} {
		got, err := rt.ResolveSync(t.Context(), "Person", "name", src, nil)
		require.NoError(t, err)
		require.Nil(t, got)
	}
}
