package gqlbridge

import (
	"time"

	"go.uber.org/zap"
)

type options struct {
	path           string
	routePrefix    string
	graphiqlPath   string
	graphiql       bool
	introspection  bool
	rootValue      any
	logger         *zap.Logger
	timeout        time.Duration
	pretty         bool
	maxBodyBytes   int64
	corsOrigins    []string
	maxConcurrency int
}

func defaultOptions() options {
	return options{
		path:          DefaultPath,
		graphiqlPath:  DefaultGraphiQLPath,
		graphiql:      true,
		introspection: true,
		timeout:       DefaultTimeout,
		logger:        zap.NewNop(),
	}
}

// Option configures a Bridge.
type Option func(*options)

// WithPath sets the route of the GraphQL endpoint. Default "/graphql".
func WithPath(p string) Option { return func(o *options) { o.path = p } }

// WithRoutePrefix mounts both the endpoint and the UI under prefix.
func WithRoutePrefix(prefix string) Option { return func(o *options) { o.routePrefix = prefix } }

// WithGraphiQLPath sets the route of the GraphiQL page. Default "/graphiql".
func WithGraphiQLPath(p string) Option { return func(o *options) { o.graphiqlPath = p } }

// WithoutGraphiQL leaves the GraphiQL route unregistered.
func WithoutGraphiQL() Option { return func(o *options) { o.graphiql = false } }

// WithIntrospection enables or disables __schema and __type. Enabled by
// default; GraphiQL needs it.
func WithIntrospection(enabled bool) Option { return func(o *options) { o.introspection = enabled } }

// WithRootValue sets the parent value passed to root field resolvers.
func WithRootValue(v any) Option { return func(o *options) { o.rootValue = v } }

// WithLogger sets the logger for server-side failures.
func WithLogger(l *zap.Logger) Option { return func(o *options) { o.logger = l } }

// WithTimeout bounds requests that arrive without a deadline. Zero disables
// the default.
func WithTimeout(d time.Duration) Option { return func(o *options) { o.timeout = d } }

// WithPretty indents JSON responses.
func WithPretty() Option { return func(o *options) { o.pretty = true } }

// WithMaxBodyBytes refuses POST bodies larger than n bytes with 413.
func WithMaxBodyBytes(n int64) Option { return func(o *options) { o.maxBodyBytes = n } }

// WithCORS allows cross-origin requests from origins ("*" for any).
func WithCORS(origins ...string) Option { return func(o *options) { o.corsOrigins = origins } }

// WithMaxConcurrency caps the resolvers running at once for one execution
// depth of a request. Zero means no cap.
func WithMaxConcurrency(n int) Option { return func(o *options) { o.maxConcurrency = n } }
