package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/hanpama/gqlbridge/internal/dispatch"
	"github.com/hanpama/gqlbridge/internal/eventbus"
	"github.com/hanpama/gqlbridge/internal/events"
	"github.com/hanpama/gqlbridge/internal/reqid"
	"github.com/hanpama/gqlbridge/internal/request"
	"github.com/hanpama/gqlbridge/resolver"
)

// Handler is an http.Handler that serves a GraphQL endpoint.
// It parses requests, runs the dispatcher, and writes either the
// {data, errors} envelope or a classified error body.
type Handler struct {
	disp  *dispatch.Dispatcher
	opt   Options
	inner http.Handler
}

type Options struct {
	// Timeout sets a default timeout if the incoming request context has none.
	// 0 means no default timeout.
	Timeout time.Duration

	// Pretty enables indented JSON responses (useful for dev).
	Pretty bool

	// MaxBodyBytes limits the size of the request body. 0 means unlimited.
	MaxBodyBytes int64

	// CORS configuration. If AllowedOrigins is empty, CORS is disabled.
	CORS CORSOptions

	// Logger receives failures classified as server errors.
	Logger *zap.Logger
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                 { return func(o *Options) { o.Pretty = true } }
func WithMaxBodyBytes(n int64) Option    { return func(o *Options) { o.MaxBodyBytes = n } }
func WithCORS(origins ...string) Option {
	return func(o *Options) { o.CORS.AllowedOrigins = origins }
}
func WithLogger(l *zap.Logger) Option { return func(o *Options) { o.Logger = l } }

// CORSOptions holds simple CORS settings.
type CORSOptions struct {
	AllowedOrigins []string
}

// DefaultTimeout applies to requests whose context carries no deadline.
const DefaultTimeout = 10 * time.Second

// New creates a GraphQL HTTP handler running requests through d.
func New(d *dispatch.Dispatcher, opts ...Option) *Handler {
	op := Options{Timeout: DefaultTimeout}
	for _, f := range opts {
		f(&op)
	}
	if op.Logger == nil {
		op.Logger = zap.NewNop()
	}
	h := &Handler{disp: d, opt: op}
	h.inner = http.HandlerFunc(h.serve)
	if len(op.CORS.AllowedOrigins) > 0 {
		h.inner = cors.New(cors.Options{
			AllowedOrigins:       op.CORS.AllowedOrigins,
			AllowedMethods:       []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:       []string{"*"},
			ExposedHeaders:       []string{reqid.Header},
			OptionsSuccessStatus: http.StatusNoContent,
		}).Handler(h.inner)
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}

	ctx, rid := reqid.WithID(ctx, r.Header.Get(reqid.Header))
	ctx = resolver.WithRequest(ctx, &resolver.RequestInfo{
		Method:     r.Method,
		Path:       r.URL.Path,
		Header:     r.Header.Clone(),
		Query:      r.URL.Query(),
		RemoteAddr: r.RemoteAddr,
		RequestID:  rid,
	})
	r = r.WithContext(ctx)
	w.Header().Set(reqid.Header, rid)

	sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
	start := time.Now()
	eventbus.Publish(ctx, events.HTTPStart{Request: r})
	defer func() {
		eventbus.Publish(ctx, events.HTTPFinish{Request: r, Status: sw.status, Duration: time.Since(start)})
	}()

	h.inner.ServeHTTP(sw, r)
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	env, batch, err := request.Parse(r, h.opt.MaxBodyBytes)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if batch != nil {
		out := make([]any, len(batch))
		for i := range batch {
			out[i] = h.executeBatchItem(r, batch[i])
		}
		writeJSON(w, http.StatusOK, out, h.opt.Pretty)
		return
	}

	res, err := h.disp.Dispatch(r.Context(), r.Method, env)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res, h.opt.Pretty)
}

// executeBatchItem runs one entry of a batch. A refused entry is answered
// with its error body in place; the batch itself still succeeds.
func (h *Handler) executeBatchItem(r *http.Request, env request.Envelope) any {
	res, err := h.disp.Dispatch(r.Context(), r.Method, env)
	if err != nil {
		status, body := dispatch.Classify(err)
		h.logFailure(r, status, err)
		return body
	}
	return res
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := dispatch.Classify(err)
	h.logFailure(r, status, err)
	if status == http.StatusMethodNotAllowed {
		w.Header().Set("Allow", "GET, POST")
	}
	writeJSON(w, status, body, h.opt.Pretty)
}

func (h *Handler) logFailure(r *http.Request, status int, err error) {
	if status < http.StatusInternalServerError {
		return
	}
	rid, _ := reqid.FromContext(r.Context())
	h.opt.Logger.Error("graphql request failed",
		zap.String("request_id", rid),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.Error(err),
	)
}

func writeJSON(w http.ResponseWriter, status int, v any, pretty bool) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}

// statusWriter remembers the status code written through it.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
