// Package request turns an HTTP request into GraphQL request envelopes.
package request

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
)

// Envelope is one GraphQL request: the query text, its variables and the
// operation to run.
type Envelope struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
	Extensions    map[string]any `json:"extensions,omitempty"`
}

// ShapeError reports a request that does not carry a usable GraphQL request.
type ShapeError struct {
	Status  int
	Message string
	Err     error
}

func (e *ShapeError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ShapeError) Unwrap() error { return e.Err }

func shapeError(status int, err error, format string, args ...any) *ShapeError {
	return &ShapeError{Status: status, Message: fmt.Sprintf(format, args...), Err: err}
}

const (
	contentJSON    = "application/json"
	contentGraphQL = "application/graphql"
	contentForm    = "application/x-www-form-urlencoded"
)

// Parse reads the GraphQL request carried by r. A POST body holding a JSON
// array is a batch and is returned as the second value; otherwise the first
// value is the single request. Bodies larger than maxBody bytes are refused
// when maxBody is positive.
func Parse(r *http.Request, maxBody int64) (Envelope, []Envelope, error) {
	switch r.Method {
	case http.MethodGet:
		env, err := fromValues(r.URL.Query())
		return env, nil, err
	case http.MethodPost:
		return parsePost(r, maxBody)
	default:
		return Envelope{}, nil, shapeError(http.StatusMethodNotAllowed, nil, "GraphQL only supports GET and POST requests")
	}
}

func parsePost(r *http.Request, maxBody int64) (Envelope, []Envelope, error) {
	body, err := readBody(r, maxBody)
	if err != nil {
		return Envelope{}, nil, err
	}

	ct := contentJSON
	if h := r.Header.Get("Content-Type"); h != "" {
		mt, _, err := mime.ParseMediaType(h)
		if err != nil {
			return Envelope{}, nil, shapeError(http.StatusUnsupportedMediaType, err, "invalid Content-Type %q", h)
		}
		ct = mt
	}

	switch ct {
	case contentGraphQL:
		// the body is the query; other fields come from the URL
		env, err := fromValues(r.URL.Query(), string(body))
		return env, nil, err
	case contentForm:
		form, err := url.ParseQuery(string(body))
		if err != nil {
			return Envelope{}, nil, shapeError(http.StatusBadRequest, err, "POST body is not a valid form")
		}
		env, err := fromValues(form)
		return env, nil, err
	case contentJSON:
	default:
		return Envelope{}, nil, shapeError(http.StatusUnsupportedMediaType, nil, "unsupported Content-Type %q", ct)
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var raws []json.RawMessage
		if err := json.Unmarshal(trimmed, &raws); err != nil {
			return Envelope{}, nil, shapeError(http.StatusBadRequest, err, "POST body sent invalid JSON")
		}
		if len(raws) == 0 {
			return Envelope{}, nil, shapeError(http.StatusBadRequest, nil, "batch request is empty")
		}
		batch := make([]Envelope, len(raws))
		for i, raw := range raws {
			env, err := fromJSON(raw)
			if err != nil {
				return Envelope{}, nil, err
			}
			batch[i] = env
		}
		return Envelope{}, batch, nil
	}

	env, err := fromJSON(trimmed)
	if err != nil {
		return Envelope{}, nil, err
	}
	if env.Query == "" {
		// a query in the URL is accepted alongside a JSON body
		if q := r.URL.Query().Get("query"); q != "" {
			env.Query = q
		} else {
			return Envelope{}, nil, ErrMissingQuery
		}
	}
	return env, nil, nil
}

// ErrMissingQuery reports an envelope without query text. Batch entries are
// checked one by one when they are dispatched.
var ErrMissingQuery = &ShapeError{Status: http.StatusBadRequest, Message: "Must provide query string."}

func readBody(r *http.Request, maxBody int64) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, shapeError(http.StatusBadRequest, nil, "POST body is missing")
	}
	defer r.Body.Close()

	reader := io.Reader(r.Body)
	if maxBody > 0 {
		reader = http.MaxBytesReader(nil, r.Body, maxBody)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, shapeError(http.StatusRequestEntityTooLarge, nil, "request body exceeds %d bytes", tooLarge.Limit)
		}
		return nil, shapeError(http.StatusBadRequest, err, "failed to read POST body")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, shapeError(http.StatusBadRequest, nil, "POST body is missing")
	}
	return body, nil
}

// fromValues reads query, variables and operationName from url values. An
// explicit query, when given, takes the place of the "query" value.
func fromValues(v url.Values, query ...string) (Envelope, error) {
	env := Envelope{Query: v.Get("query"), OperationName: v.Get("operationName")}
	if len(query) > 0 {
		env.Query = query[0]
	}
	if env.Query == "" {
		return Envelope{}, ErrMissingQuery
	}
	if raw := v.Get("variables"); raw != "" {
		vars, err := decodeVariables([]byte(raw))
		if err != nil {
			return Envelope{}, err
		}
		env.Variables = vars
	}
	return env, nil
}

type jsonEnvelope struct {
	Query         string          `json:"query"`
	OperationName *string         `json:"operationName"`
	Variables     json.RawMessage `json:"variables"`
	Extensions    map[string]any  `json:"extensions"`
}

func fromJSON(raw []byte) (Envelope, error) {
	var in jsonEnvelope
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&in); err != nil {
		return Envelope{}, shapeError(http.StatusBadRequest, err, "POST body sent invalid JSON")
	}
	env := Envelope{Query: in.Query, Extensions: in.Extensions}
	if in.OperationName != nil {
		env.OperationName = *in.OperationName
	}
	if len(in.Variables) > 0 {
		raw := in.Variables
		// some clients send variables as a JSON encoded string
		var s string
		if json.Unmarshal(raw, &s) == nil {
			raw = []byte(s)
		}
		if len(bytes.TrimSpace(raw)) > 0 {
			vars, err := decodeVariables(raw)
			if err != nil {
				return Envelope{}, err
			}
			env.Variables = vars
		}
	}
	return env, nil
}

// decodeVariables decodes a JSON object. Numbers are kept as json.Number so
// Int and Float inputs coerce without float rounding.
func decodeVariables(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, shapeError(http.StatusBadRequest, err, "Variables are invalid JSON")
	}
	if dec.More() {
		return nil, shapeError(http.StatusBadRequest, nil, "Variables are invalid JSON")
	}
	switch vars := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return vars, nil
	default:
		return nil, shapeError(http.StatusBadRequest, nil, "Variables must be a JSON object")
	}
}
