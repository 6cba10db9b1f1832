// Package gqlbridge serves a GraphQL schema over HTTP.
//
// A Bridge is assembled once from SDL (or a schema built with package schema)
// and a flat resolver table, then registered on a host router:
//
//	b, err := gqlbridge.New(sdl, resolver.Table{
//		"person": func(ctx context.Context, p resolver.Params) (any, error) { ... },
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	mux := http.NewServeMux()
//	b.Register(mux)
//
// The endpoint accepts GET and POST requests and answers {data, errors} with
// status 200 once a query runs, even when resolvers fail. Requests that cannot
// run get a 4xx status and a {message, errors} body. The GraphiQL page is
// served next to the endpoint unless disabled.
package gqlbridge

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/hanpama/gqlbridge/internal/dispatch"
	"github.com/hanpama/gqlbridge/internal/graphiql"
	"github.com/hanpama/gqlbridge/internal/server"
	"github.com/hanpama/gqlbridge/resolver"
	"github.com/hanpama/gqlbridge/schema"
)

const (
	DefaultPath         = "/graphql"
	DefaultGraphiQLPath = "/graphiql"
	DefaultTimeout      = server.DefaultTimeout
)

// Router is the part of a host router a Bridge registers on.
// *http.ServeMux satisfies it.
type Router interface {
	Handle(pattern string, handler http.Handler)
}

// Bridge is an assembled schema with its HTTP handlers. It is safe for
// concurrent use.
type Bridge struct {
	schema   *schema.Schema
	opt      options
	handler  *server.Handler
	graphiql *graphiql.Page
}

// New assembles schemaInput with resolvers and builds the handlers. It fails
// with a *schema.BuildError when the schema cannot be assembled, and when the
// GraphiQL page would share the endpoint's route.
func New(schemaInput any, resolvers resolver.Table, opts ...Option) (*Bridge, error) {
	op := defaultOptions()
	for _, f := range opts {
		f(&op)
	}
	if op.graphiql {
		if p := joinRoute(op.routePrefix, op.path); p == joinRoute(op.routePrefix, op.graphiqlPath) {
			return nil, fmt.Errorf("gqlbridge: GraphiQL path %q collides with the endpoint path", p)
		}
	}
	sch, err := schema.Assemble(schemaInput, resolvers)
	if err != nil {
		return nil, err
	}

	disp := dispatch.New(sch,
		dispatch.WithIntrospection(op.introspection),
		dispatch.WithRootValue(op.rootValue),
		dispatch.WithConcurrency(op.maxConcurrency),
	)
	srvOpts := []server.Option{
		server.WithTimeout(op.timeout),
		server.WithMaxBodyBytes(op.maxBodyBytes),
		server.WithLogger(op.logger),
	}
	if op.pretty {
		srvOpts = append(srvOpts, server.WithPretty())
	}
	if len(op.corsOrigins) > 0 {
		srvOpts = append(srvOpts, server.WithCORS(op.corsOrigins...))
	}

	b := &Bridge{schema: sch, opt: op, handler: server.New(disp, srvOpts...)}
	if op.graphiql {
		b.graphiql = graphiql.New(b.Path())
	}
	return b, nil
}

// Register mounts the endpoint and, when enabled, the GraphiQL page on r.
func (b *Bridge) Register(r Router) {
	r.Handle(b.Path(), b.handler)
	if b.graphiql != nil {
		r.Handle(b.GraphiQLPath(), b.graphiql)
	}
}

// Handler returns the GraphQL endpoint handler.
func (b *Bridge) Handler() http.Handler { return b.handler }

// GraphiQLHandler returns the GraphiQL page handler, or nil when disabled.
func (b *Bridge) GraphiQLHandler() http.Handler {
	if b.graphiql == nil {
		return nil
	}
	return b.graphiql
}

// Schema returns the assembled schema.
func (b *Bridge) Schema() *schema.Schema { return b.schema }

// Path returns the route of the endpoint, including the route prefix.
func (b *Bridge) Path() string { return joinRoute(b.opt.routePrefix, b.opt.path) }

// GraphiQLPath returns the route of the GraphiQL page, including the route
// prefix, or "" when disabled.
func (b *Bridge) GraphiQLPath() string {
	if !b.opt.graphiql {
		return ""
	}
	return joinRoute(b.opt.routePrefix, b.opt.graphiqlPath)
}

func joinRoute(prefix, p string) string {
	prefix = strings.Trim(prefix, "/")
	p = strings.Trim(p, "/")
	switch {
	case prefix == "" && p == "":
		return "/"
	case prefix == "":
		return "/" + p
	case p == "":
		return "/" + prefix
	default:
		return "/" + prefix + "/" + p
	}
}
