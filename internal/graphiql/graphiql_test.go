package graphiql

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRender_Prepopulates(t *testing.T) {
	html := New("/api/graphql").Render(`{ person(firstname: "tom") { lastname } }`, `{"n":1}`)
	require.Contains(t, html, `var endpoint = "/api/graphql";`)
	require.Contains(t, html, `var query = "{ person(firstname: \"tom\") { lastname } }";`)
	require.Contains(t, html, `var variables = "{\"n\":1}";`)
}

func TestRender_Empty(t *testing.T) {
	html := New("/graphql").Render("", "")
	require.Contains(t, html, `var query = "";`)
	require.Contains(t, html, `var variables = "";`)
	require.NotContains(t, html, "{%")
}

func TestRender_EscapesScript(t *testing.T) {
	html := New("/graphql").Render(`</script><script>alert(1)</script>`, "")
	require.NotContains(t, html, "<script>alert(1)")
	require.Contains(t, html, `</script>`)
}

func TestServeHTTP(t *testing.T) {
	p := New("/graphql")
	q := url.Values{"query": {"{ a }"}, "variables": {"{}"}}
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/graphiql?"+q.Encode(), nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	require.True(t, strings.HasPrefix(rec.Body.String(), "<!DOCTYPE html>"))
	require.Contains(t, rec.Body.String(), `var query = "{ a }";`)

	rec = httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/graphiql", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
