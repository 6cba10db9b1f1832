package gqlbridge

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterGin mounts b on a gin router or route group.
func RegisterGin(r gin.IRoutes, b *Bridge) {
	h := gin.WrapH(b.handler)
	for _, m := range []string{http.MethodGet, http.MethodPost, http.MethodOptions} {
		r.Handle(m, b.Path(), h)
	}
	if b.graphiql != nil {
		r.GET(b.GraphiQLPath(), gin.WrapH(b.graphiql))
	}
}
