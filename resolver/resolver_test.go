package resolver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func personArgs(name string) Params {
	return Params{ObjectType: "Query", Field: "person", Args: map[string]any{"firstname": name}}
}

func lookup(p Params) (any, error) {
	if p.Args["firstname"] == "tom" {
		return map[string]any{"firstname": "tom", "lastname": "arnold"}, nil
	}
	return nil, errors.New("person not found")
}

func conventions() map[string]any {
	return map[string]any{
		"direct": func(ctx context.Context, p Params) (any, error) {
			return lookup(p)
		},
		"direct returning future": func(ctx context.Context, p Params) (any, error) {
			v, err := lookup(p)
			if err != nil {
				return Rejected(err), nil
			}
			return Resolved(v), nil
		},
		"deferred": func(ctx context.Context, p Params) Future {
			return NewPromise(func(resolve func(any), reject func(error)) {
				time.Sleep(time.Millisecond)
				v, err := lookup(p)
				if err != nil {
					reject(err)
					return
				}
				resolve(v)
			})
		},
		"deferred channel": func(ctx context.Context, p Params) <-chan Result {
			ch := make(chan Result, 1)
			go func() {
				v, err := lookup(p)
				ch <- Result{Value: v, Err: err}
			}()
			return ch
		},
		"callback": func(ctx context.Context, p Params, done Callback) {
			go func() {
				v, err := lookup(p)
				done(err, v)
			}()
		},
		"callback literal": func(ctx context.Context, p Params, done func(error, any)) {
			v, err := lookup(p)
			done(err, v)
		},
	}
}

func TestConventionTransparency(t *testing.T) {
	want := map[string]any{"firstname": "tom", "lastname": "arnold"}
	for name, fn := range conventions() {
		t.Run(name, func(t *testing.T) {
			r, err := Adapt(fn)
			require.NoError(t, err)

			got, err := r.Resolve(context.Background(), personArgs("tom"))
			require.NoError(t, err)
			require.Equal(t, want, got)

			got, err = r.Resolve(context.Background(), personArgs("nobody"))
			require.EqualError(t, err, "person not found")
			require.Nil(t, got)
		})
	}
}

func TestAdaptKinds(t *testing.T) {
	cases := map[string]Kind{
		"direct":                  KindDirect,
		"direct returning future": KindDirect,
		"deferred":                KindDeferred,
		"deferred channel":        KindDeferred,
		"callback":                KindCallback,
		"callback literal":        KindCallback,
	}
	fns := conventions()
	for name, kind := range cases {
		r, err := Adapt(fns[name])
		require.NoError(t, err, name)
		require.Equal(t, kind, r.Kind(), name)
	}
}

func TestAdaptRejectsUnsupported(t *testing.T) {
	_, err := Adapt("not a func")
	require.ErrorContains(t, err, "must be a function")

	_, err = Adapt(func(a, b, c int) {})
	require.ErrorContains(t, err, "takes 3 parameters")

	_, err = Adapt(func() string { return "" })
	require.ErrorContains(t, err, "unsupported resolver signature")

	_, err = Adapt(nil)
	require.Error(t, err)
}

func TestCallbackFiresOnce(t *testing.T) {
	r := MustAdapt(func(ctx context.Context, p Params, done Callback) {
		done(nil, "first")
		done(errors.New("second"), nil)
		done(nil, "third")
	})
	got, err := r.Resolve(context.Background(), Params{})
	require.NoError(t, err)
	require.Equal(t, "first", got)
}

func TestPanicBecomesError(t *testing.T) {
	r := MustAdapt(func(ctx context.Context, p Params) (any, error) {
		panic("boom")
	})
	_, err := r.Resolve(context.Background(), Params{})
	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, "boom", pe.Value)

	d := MustAdapt(func(ctx context.Context, p Params) Future {
		return NewPromise(func(resolve func(any), reject func(error)) { panic("later") })
	})
	_, err = d.Resolve(context.Background(), Params{})
	require.ErrorAs(t, err, &pe)
}

func TestAwaitHonoursContext(t *testing.T) {
	r := MustAdapt(func(ctx context.Context, p Params, done Callback) {})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := r.Resolve(ctx, Params{})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNilFutureResolvesToNull(t *testing.T) {
	r := MustAdapt(func(ctx context.Context, p Params) Future { return nil })
	got, err := r.Resolve(context.Background(), Params{})
	require.NoError(t, err)
	require.Nil(t, got)

	var typed *Promise
	r = MustAdapt(func(ctx context.Context, p Params) Future { return typed })
	got, err = r.Resolve(context.Background(), Params{})
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestRequestContext(t *testing.T) {
	_, ok := RequestFromContext(context.Background())
	require.False(t, ok)

	ctx := WithRequest(context.Background(), &RequestInfo{Method: "GET", Path: "/graphql"})
	info, ok := RequestFromContext(ctx)
	require.True(t, ok)
	require.Equal(t, "/graphql", info.Path)
}
