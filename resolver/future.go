package resolver

import (
	"context"
	"sync"
)

// Future is an eventual value. Await blocks until the value settles or ctx is
// done, whichever happens first.
type Future interface {
	Await(ctx context.Context) (any, error)
}

// Result is a settled outcome.
type Result struct {
	Value any
	Err   error
}

// ChanFuture adapts a result channel to a Future. The first received Result
// wins; a channel closed without a value resolves to nil.
type ChanFuture <-chan Result

func (c ChanFuture) Await(ctx context.Context) (any, error) {
	select {
	case res, ok := <-c:
		if !ok {
			return nil, nil
		}
		return res.Value, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Promise is a Future settled by its executor function.
type Promise struct {
	once sync.Once
	done chan struct{}
	res  Result
}

// NewPromise runs fn on a new goroutine. The first call to resolve or reject
// settles the promise; later calls are ignored. A panic in fn rejects it.
func NewPromise(fn func(resolve func(any), reject func(error))) *Promise {
	p := &Promise{done: make(chan struct{})}
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				p.settle(Result{Err: &PanicError{Value: rec}})
			}
		}()
		fn(
			func(v any) { p.settle(Result{Value: v}) },
			func(err error) { p.settle(Result{Err: err}) },
		)
	}()
	return p
}

// Resolved returns a promise already fulfilled with v.
func Resolved(v any) *Promise {
	p := &Promise{done: make(chan struct{})}
	p.settle(Result{Value: v})
	return p
}

// Rejected returns a promise already rejected with err.
func Rejected(err error) *Promise {
	p := &Promise{done: make(chan struct{})}
	p.settle(Result{Err: err})
	return p
}

func (p *Promise) settle(r Result) {
	p.once.Do(func() {
		p.res = r
		close(p.done)
	})
}

func (p *Promise) Await(ctx context.Context) (any, error) {
	select {
	case <-p.done:
		return p.res.Value, p.res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
