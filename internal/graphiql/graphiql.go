// Package graphiql renders the GraphiQL exploration page for a GraphQL
// endpoint.
package graphiql

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/valyala/fasttemplate"
)

// Page renders GraphiQL bound to one endpoint. It is safe for concurrent use.
type Page struct {
	tpl      *fasttemplate.Template
	endpoint string
}

// New returns the page for the GraphQL endpoint at the given URL path.
func New(endpoint string) *Page {
	return &Page{
		tpl:      fasttemplate.New(page, "{%", "%}"),
		endpoint: endpoint,
	}
}

// Render returns the page with the editor prepopulated with query and
// variables. Empty values leave the editor empty.
func (p *Page) Render(query, variables string) string {
	values := map[string]string{
		"endpoint":  p.endpoint,
		"query":     query,
		"variables": variables,
	}
	return p.tpl.ExecuteFuncString(func(w io.Writer, tag string) (int, error) {
		return w.Write(jsLiteral(values[tag]))
	})
}

// ServeHTTP serves the page, prepopulated from the query and variables
// parameters of the request URL.
func (p *Page) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, p.Render(q.Get("query"), q.Get("variables")))
}

// jsLiteral encodes s as a JavaScript string literal that is safe inside a
// <script> element: <, > and & are escaped by encoding/json.
func jsLiteral(s string) []byte {
	b, _ := json.Marshal(s)
	return b
}

const page = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>GraphiQL</title>
  <style>
    body { height: 100%; margin: 0; width: 100%; overflow: hidden; }
    #graphiql { height: 100vh; }
  </style>
  <link rel="stylesheet" href="https://unpkg.com/graphiql@3/graphiql.min.css" />
  <script crossorigin src="https://unpkg.com/react@18/umd/react.production.min.js"></script>
  <script crossorigin src="https://unpkg.com/react-dom@18/umd/react-dom.production.min.js"></script>
  <script crossorigin src="https://unpkg.com/graphiql@3/graphiql.min.js"></script>
</head>
<body>
  <div id="graphiql">Loading...</div>
  <script>
    var endpoint = {%endpoint%};
    var query = {%query%};
    var variables = {%variables%};
    var fetcher = GraphiQL.createFetcher({ url: endpoint });
    var root = ReactDOM.createRoot(document.getElementById("graphiql"));
    root.render(React.createElement(GraphiQL, {
      fetcher: fetcher,
      defaultEditorToolsVisibility: variables !== "",
      query: query || undefined,
      variables: variables || undefined
    }));
  </script>
</body>
</html>
`
