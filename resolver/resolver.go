// Package resolver adapts user-supplied field resolvers to a single calling
// contract.
//
// Three shapes are accepted and told apart by signature when the resolver is
// bound, never per call:
//
//   - Direct:   func(ctx, Params) (any, error). A returned Future is awaited.
//   - Deferred: func(ctx, Params) Future, or func(ctx, Params) <-chan Result.
//   - Callback: func(ctx, Params, Callback). Only the first callback counts.
//
// Every shape collapses into Resolve(ctx, Params) (any, error). A panic inside
// the resolver body is reported as a *PanicError instead of unwinding the
// request.
package resolver

import (
	"context"
	"fmt"
	"reflect"
	"sync"
)

// Params carries the inputs for one field resolution.
type Params struct {
	// ObjectType is the GraphQL type that owns the field (e.g. "Query").
	ObjectType string
	// Field is the GraphQL field name.
	Field string
	// Source is the resolved parent value; nil (or the root value) for root fields.
	Source any
	// Args are the coerced field arguments.
	Args map[string]any
	// Path is the response path of the field, e.g. ["person", "friends", 0].
	Path []any
}

// Func is a direct-return resolver.
type Func func(ctx context.Context, p Params) (any, error)

// DeferredFunc returns an eventual value.
type DeferredFunc func(ctx context.Context, p Params) Future

// Callback completes a callback-style resolver. A non-nil err fails the field.
type Callback func(err error, value any)

// CallbackFunc reports its outcome through done.
type CallbackFunc func(ctx context.Context, p Params, done Callback)

// Table maps field names to resolvers of any supported shape. A key is either
// a bare field name, bound to every object field of that name, or a qualified
// "Type.field" name, bound to that field only.
type Table map[string]any

// Kind identifies the calling convention of a bound resolver.
type Kind int

const (
	KindDirect Kind = iota
	KindDeferred
	KindCallback
)

func (k Kind) String() string {
	switch k {
	case KindDirect:
		return "direct"
	case KindDeferred:
		return "deferred"
	case KindCallback:
		return "callback"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Resolver is an adapted resolver. It is immutable and safe for concurrent use.
type Resolver struct {
	kind     Kind
	direct   Func
	deferred DeferredFunc
	callback CallbackFunc
}

// PanicError reports a resolver that panicked.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string { return fmt.Sprintf("resolver panic: %v", e.Value) }

// Adapt classifies fn and wraps it. It fails for signatures that match none of
// the supported shapes.
func Adapt(fn any) (*Resolver, error) {
	switch f := fn.(type) {
	case nil:
		return nil, fmt.Errorf("resolver is nil")
	case *Resolver:
		if f == nil {
			return nil, fmt.Errorf("resolver is nil")
		}
		return f, nil
	case Func:
		return &Resolver{kind: KindDirect, direct: f}, nil
	case func(context.Context, Params) (any, error):
		return &Resolver{kind: KindDirect, direct: f}, nil
	case DeferredFunc:
		return &Resolver{kind: KindDeferred, deferred: f}, nil
	case func(context.Context, Params) Future:
		return &Resolver{kind: KindDeferred, deferred: f}, nil
	case func(context.Context, Params) <-chan Result:
		return &Resolver{kind: KindDeferred, deferred: func(ctx context.Context, p Params) Future {
			ch := f(ctx, p)
			if ch == nil {
				return nil
			}
			return ChanFuture(ch)
		}}, nil
	case CallbackFunc:
		return &Resolver{kind: KindCallback, callback: f}, nil
	case func(context.Context, Params, Callback):
		return &Resolver{kind: KindCallback, callback: f}, nil
	case func(context.Context, Params, func(error, any)):
		return &Resolver{kind: KindCallback, callback: func(ctx context.Context, p Params, done Callback) {
			f(ctx, p, done)
		}}, nil
	}

	rt := reflect.TypeOf(fn)
	if rt.Kind() != reflect.Func {
		return nil, fmt.Errorf("resolver must be a function, got %T", fn)
	}
	if rt.NumIn() == 3 {
		return nil, fmt.Errorf("resolver %s takes 3 parameters but is not func(context.Context, resolver.Params, resolver.Callback)", rt)
	}
	return nil, fmt.Errorf("unsupported resolver signature %s", rt)
}

// MustAdapt is like Adapt but panics on error.
func MustAdapt(fn any) *Resolver {
	r, err := Adapt(fn)
	if err != nil {
		panic(err)
	}
	return r
}

// Kind reports the calling convention detected at binding time.
func (r *Resolver) Kind() Kind { return r.kind }

// Resolve invokes the underlying resolver once and waits for its outcome.
// Waiting stops when ctx is done; the resolver itself is not interrupted.
func (r *Resolver) Resolve(ctx context.Context, p Params) (value any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			value, err = nil, &PanicError{Value: rec}
		}
	}()

	switch r.kind {
	case KindDirect:
		v, err := r.direct(ctx, p)
		if err != nil {
			return nil, err
		}
		if f, ok := v.(Future); ok {
			return await(ctx, f)
		}
		return v, nil
	case KindDeferred:
		f := r.deferred(ctx, p)
		if f == nil {
			return nil, nil
		}
		return await(ctx, f)
	case KindCallback:
		return r.resolveCallback(ctx, p)
	default:
		return nil, fmt.Errorf("unknown resolver kind %v", r.kind)
	}
}

func (r *Resolver) resolveCallback(ctx context.Context, p Params) (any, error) {
	done := make(chan Result, 1)
	var once sync.Once
	r.callback(ctx, p, func(err error, value any) {
		once.Do(func() { done <- Result{Value: value, Err: err} })
	})
	select {
	case res := <-done:
		return res.Value, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func await(ctx context.Context, f Future) (any, error) {
	// a nil pointer stored in the interface is an absent value
	if rv := reflect.ValueOf(f); rv.Kind() == reflect.Ptr && rv.IsNil() {
		return nil, nil
	}
	return f.Await(ctx)
}
