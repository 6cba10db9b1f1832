package request

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func get(query url.Values) *http.Request {
	return httptest.NewRequest(http.MethodGet, "/graphql?"+query.Encode(), nil)
}

func post(contentType, body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(body))
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	return r
}

func requireShape(t *testing.T, err error, status int, msg string) {
	t.Helper()
	var se *ShapeError
	require.True(t, errors.As(err, &se), "expected *ShapeError, got %v", err)
	require.Equal(t, status, se.Status)
	require.Contains(t, se.Message, msg)
}

func TestParse_Get(t *testing.T) {
	env, batch, err := Parse(get(url.Values{
		"query":         {`query P($n: String!) { person(firstname: $n) { lastname } }`},
		"variables":     {`{"n":"tom","age":30}`},
		"operationName": {"P"},
	}), 0)
	require.NoError(t, err)
	require.Nil(t, batch)

	want := Envelope{
		Query:         `query P($n: String!) { person(firstname: $n) { lastname } }`,
		OperationName: "P",
		Variables:     map[string]any{"n": "tom", "age": json.Number("30")},
	}
	if diff := cmp.Diff(want, env); diff != "" {
		t.Fatalf("Envelope mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_Get_InvalidVariables(t *testing.T) {
	for _, vars := range []string{"invalid", `{"a":1} trailing`, `[1,2]`, `"str"`} {
		_, _, err := Parse(get(url.Values{"query": {"{ a }"}, "variables": {vars}}), 0)
		requireShape(t, err, http.StatusBadRequest, "Variables")
	}
}

func TestParse_Get_NullVariables(t *testing.T) {
	env, _, err := Parse(get(url.Values{"query": {"{ a }"}, "variables": {"null"}}), 0)
	require.NoError(t, err)
	require.Nil(t, env.Variables)
}

func TestParse_MissingQuery(t *testing.T) {
	_, _, err := Parse(get(url.Values{"variables": {"{}"}}), 0)
	requireShape(t, err, http.StatusBadRequest, "Must provide query string.")

	_, _, err = Parse(post("application/json", `{"variables":{}}`), 0)
	requireShape(t, err, http.StatusBadRequest, "Must provide query string.")

	_, _, err = Parse(post("application/json", `{"query":""}`), 0)
	requireShape(t, err, http.StatusBadRequest, "Must provide query string.")
}

func TestParse_Post_JSON(t *testing.T) {
	env, batch, err := Parse(post("application/json; charset=utf-8",
		`{"query":"{ a }","variables":{"id":12345678901234567},"operationName":null}`), 0)
	require.NoError(t, err)
	require.Nil(t, batch)
	require.Equal(t, "{ a }", env.Query)
	require.Equal(t, "", env.OperationName)
	require.Equal(t, map[string]any{"id": json.Number("12345678901234567")}, env.Variables)
}

func TestParse_Post_StringVariables(t *testing.T) {
	env, _, err := Parse(post("application/json", `{"query":"{ a }","variables":"{\"x\":true}"}`), 0)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"x": true}, env.Variables)

	env, _, err = Parse(post("application/json", `{"query":"{ a }","variables":""}`), 0)
	require.NoError(t, err)
	require.Nil(t, env.Variables)
}

func TestParse_Post_DefaultsToJSON(t *testing.T) {
	env, _, err := Parse(post("", `{"query":"{ a }"}`), 0)
	require.NoError(t, err)
	require.Equal(t, "{ a }", env.Query)
}

func TestParse_Post_MissingBody(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/graphql", nil)
	_, _, err := Parse(r, 0)
	requireShape(t, err, http.StatusBadRequest, "POST body is missing")

	_, _, err = Parse(post("application/json", "   "), 0)
	requireShape(t, err, http.StatusBadRequest, "POST body is missing")
}

func TestParse_Post_InvalidJSON(t *testing.T) {
	_, _, err := Parse(post("application/json", `{"query":`), 0)
	requireShape(t, err, http.StatusBadRequest, "invalid JSON")
}

func TestParse_Post_Batch(t *testing.T) {
	env, batch, err := Parse(post("application/json", `[{"query":"{ a }"},{"query":"{ b }","variables":{"v":1}}]`), 0)
	require.NoError(t, err)
	require.Equal(t, Envelope{}, env)
	require.Equal(t, []Envelope{
		{Query: "{ a }"},
		{Query: "{ b }", Variables: map[string]any{"v": json.Number("1")}},
	}, batch)

	_, _, err = Parse(post("application/json", `[]`), 0)
	requireShape(t, err, http.StatusBadRequest, "batch request is empty")

	// an entry without a query is refused on its own when it is dispatched
	_, batch, err = Parse(post("application/json", `[{"query":"{ a }"},{"operationName":"Q"}]`), 0)
	require.NoError(t, err)
	require.Equal(t, []Envelope{{Query: "{ a }"}, {OperationName: "Q"}}, batch)
}

func TestParse_Post_GraphQLBody(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/graphql?operationName=Q&variables=%7B%22a%22%3A1%7D", strings.NewReader("query Q { a }"))
	r.Header.Set("Content-Type", "application/graphql")
	env, _, err := Parse(r, 0)
	require.NoError(t, err)
	require.Equal(t, Envelope{Query: "query Q { a }", OperationName: "Q", Variables: map[string]any{"a": json.Number("1")}}, env)
}

func TestParse_Post_Form(t *testing.T) {
	body := url.Values{"query": {"{ a }"}, "operationName": {"X"}}.Encode()
	env, _, err := Parse(post("application/x-www-form-urlencoded", body), 0)
	require.NoError(t, err)
	require.Equal(t, Envelope{Query: "{ a }", OperationName: "X"}, env)
}

func TestParse_Post_UnsupportedContentType(t *testing.T) {
	_, _, err := Parse(post("text/plain", "{ a }"), 0)
	requireShape(t, err, http.StatusUnsupportedMediaType, "unsupported Content-Type")
}

func TestParse_Post_BodyTooLarge(t *testing.T) {
	body := `{"query":"{ ` + strings.Repeat("a ", 100) + `}"}`
	_, _, err := Parse(post("application/json", body), 64)
	requireShape(t, err, http.StatusRequestEntityTooLarge, "exceeds 64 bytes")

	_, _, err = Parse(post("application/json", body), int64(len(body)))
	require.NoError(t, err)
}

func TestParse_MethodNotAllowed(t *testing.T) {
	_, _, err := Parse(httptest.NewRequest(http.MethodPut, "/graphql", nil), 0)
	requireShape(t, err, http.StatusMethodNotAllowed, "GET and POST")
}
