// Package dispatch runs one GraphQL request envelope against an assembled
// schema: parse, validate, choose the operation, execute.
package dispatch

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/hanpama/gqlbridge/internal/eventbus"
	"github.com/hanpama/gqlbridge/internal/events"
	"github.com/hanpama/gqlbridge/internal/executor"
	"github.com/hanpama/gqlbridge/internal/introspection"
	"github.com/hanpama/gqlbridge/internal/language"
	"github.com/hanpama/gqlbridge/internal/reqid"
	"github.com/hanpama/gqlbridge/internal/request"
	"github.com/hanpama/gqlbridge/internal/resolverrt"
	"github.com/hanpama/gqlbridge/schema"
)

// Response is the {data, errors} envelope of an executed request.
type Response = executor.ExecutionResult

// Dispatcher executes requests against one schema. It is safe for concurrent
// use.
type Dispatcher struct {
	schema        *schema.Schema
	exec          *executor.Executor
	introspection bool
	rootValue     any
	concurrency   int
}

type Option func(*Dispatcher)

// WithIntrospection enables or disables the __schema and __type fields.
// Enabled by default.
func WithIntrospection(enabled bool) Option { return func(d *Dispatcher) { d.introspection = enabled } }

// WithRootValue sets the parent value of root fields.
func WithRootValue(v any) Option { return func(d *Dispatcher) { d.rootValue = v } }

// WithConcurrency caps how many resolvers run at once per execution depth.
func WithConcurrency(n int) Option { return func(d *Dispatcher) { d.concurrency = n } }

// New creates a Dispatcher for sch, which must come from schema.Assemble.
func New(sch *schema.Schema, opts ...Option) *Dispatcher {
	d := &Dispatcher{schema: sch, introspection: true}
	for _, o := range opts {
		o(d)
	}
	var rt executor.Runtime = resolverrt.NewRuntime(sch, resolverrt.WithConcurrency(d.concurrency))
	execSchema := sch
	if d.introspection {
		rt, execSchema = introspection.Wrap(rt, sch)
	}
	d.exec = executor.NewExecutor(rt, execSchema)
	return d
}

// Dispatch runs env as received with the given HTTP method. It fails with an
// *ExecutionError when the query cannot run at all; once execution starts,
// every failure is reported inside the returned Response.
func (d *Dispatcher) Dispatch(ctx context.Context, method string, env request.Envelope) (*Response, error) {
	if env.Query == "" {
		return nil, request.ErrMissingQuery
	}
	doc, err := language.ParseQuery(env.Query)
	if err != nil {
		return nil, newExecutionError(KindSyntax, asGQLError(err))
	}
	if errs := language.Validate(d.schema.AST(), doc); len(errs) > 0 {
		return nil, &ExecutionError{Kind: KindValidation, Errors: errs}
	}
	if !d.introspection {
		if err := rejectIntrospection(doc); err != nil {
			return nil, err
		}
	}

	op, err := selectOperation(doc, env.OperationName)
	if err != nil {
		return nil, err
	}
	if method == http.MethodGet && op.Operation != language.Query {
		return nil, newExecutionError(KindMethod, gqlerror.Errorf("Can only perform a %s operation from a POST request.", op.Operation))
	}

	if _, ok := reqid.KeyFromContext(ctx); !ok {
		ctx, _ = reqid.WithID(ctx, "")
	}
	start := time.Now()
	eventbus.Publish(ctx, events.GraphQLStart{Query: env.Query, OperationName: op.Name, OperationType: string(op.Operation)})
	res, err := d.exec.Execute(ctx, doc, op.Name, env.Variables, d.rootValue)
	if err != nil {
		var reqErr *executor.RequestError
		if !errors.As(err, &reqErr) {
			return nil, err
		}
		res = &Response{Errors: []executor.GraphQLError{{Message: reqErr.Message}}}
	}
	errs := make([]error, len(res.Errors))
	for i := range res.Errors {
		errs[i] = res.Errors[i]
	}
	eventbus.Publish(ctx, events.GraphQLFinish{
		Query:         env.Query,
		OperationName: op.Name,
		OperationType: string(op.Operation),
		Errors:        errs,
		Duration:      time.Since(start),
	})
	return res, nil
}

func asGQLError(err error) *gqlerror.Error {
	var gerr *gqlerror.Error
	if errors.As(err, &gerr) {
		return gerr
	}
	return gqlerror.Errorf("%s", err.Error())
}

func selectOperation(doc *language.QueryDocument, name string) (*language.OperationDefinition, error) {
	if name == "" {
		switch len(doc.Operations) {
		case 0:
			return nil, newExecutionError(KindOperation, gqlerror.Errorf("Must provide an operation."))
		case 1:
			return checkOperation(doc.Operations[0])
		default:
			return nil, newExecutionError(KindOperation, gqlerror.Errorf("Must provide operation name if query contains multiple operations."))
		}
	}
	op := doc.Operations.ForName(name)
	if op == nil {
		return nil, newExecutionError(KindOperation, gqlerror.Errorf("Unknown operation named %q.", name))
	}
	return checkOperation(op)
}

func checkOperation(op *language.OperationDefinition) (*language.OperationDefinition, error) {
	if op.Operation == language.Subscription {
		return nil, newExecutionError(KindOperation, gqlerror.ErrorPosf(op.Position, "Subscriptions are not supported."))
	}
	return op, nil
}

// rejectIntrospection fails when any selection in doc reads __schema or
// __type.
func rejectIntrospection(doc *language.QueryDocument) error {
	var found *language.Field
	var walk func(language.SelectionSet)
	walk = func(set language.SelectionSet) {
		for _, sel := range set {
			if found != nil {
				return
			}
			switch s := sel.(type) {
			case *language.Field:
				if s.Name == "__schema" || s.Name == "__type" {
					found = s
					return
				}
				walk(s.SelectionSet)
			case *language.InlineFragment:
				walk(s.SelectionSet)
			}
		}
	}
	for _, op := range doc.Operations {
		walk(op.SelectionSet)
	}
	for _, frag := range doc.Fragments {
		walk(frag.SelectionSet)
	}
	if found == nil {
		return nil
	}
	return newExecutionError(KindValidation, gqlerror.ErrorPosf(found.Position, "GraphQL introspection is not allowed, but the query contained %s.", found.Name))
}
