// Package reqid carries a per-request identifier through a context.
package reqid

import (
	"context"

	"github.com/google/uuid"
)

// key is the context key for the request ID.
type key struct{}

type ids struct {
	id  string // echoed to the client, possibly chosen by it
	key string // always generated, unique per request
}

// Header is the HTTP header an incoming request id is read from and echoed to.
const Header = "X-Request-Id"

// WithID stores id in a copy of parent. An empty id is replaced by a new one.
// The copy also gets a fresh key, so two requests sharing an id stay apart.
func WithID(parent context.Context, id string) (context.Context, string) {
	if id == "" {
		id = uuid.NewString()
	}
	return context.WithValue(parent, key{}, ids{id: id, key: uuid.NewString()}), id
}

// FromContext extracts the request ID from ctx.
// It returns the ID and whether it was present.
func FromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(key{}).(ids)
	return v.id, ok
}

// KeyFromContext returns the key WithID generated for the request. Unlike
// the request ID it is never taken from the client.
func KeyFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(key{}).(ids)
	return v.key, ok
}
