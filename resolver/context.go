package resolver

import (
	"context"
	"net/http"
	"net/url"
)

// RequestInfo is the per-request execution context visible to resolvers.
// Resolvers must treat it as read-only.
type RequestInfo struct {
	Method     string
	Path       string
	Header     http.Header
	Query      url.Values
	RemoteAddr string
	RequestID  string
}

type requestKey struct{}

// WithRequest returns a copy of parent carrying info.
func WithRequest(parent context.Context, info *RequestInfo) context.Context {
	return context.WithValue(parent, requestKey{}, info)
}

// RequestFromContext returns the request the current operation executes for.
func RequestFromContext(ctx context.Context) (*RequestInfo, bool) {
	info, ok := ctx.Value(requestKey{}).(*RequestInfo)
	return info, ok && info != nil
}
