package dispatch

import (
	"errors"
	"net/http"

	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/hanpama/gqlbridge/internal/request"
)

// Kind classifies a request that was refused before execution.
type Kind int

const (
	// KindSyntax is a query that does not parse.
	KindSyntax Kind = iota + 1
	// KindValidation is a query that does not validate against the schema.
	KindValidation
	// KindOperation is a document in which no operation can be selected.
	KindOperation
	// KindMethod is an operation the HTTP method may not run.
	KindMethod
)

func (k Kind) String() string {
	switch k {
	case KindSyntax:
		return "syntax"
	case KindValidation:
		return "validation"
	case KindOperation:
		return "operation"
	case KindMethod:
		return "method"
	default:
		return "unknown"
	}
}

// ExecutionError reports a query refused before any resolver ran.
type ExecutionError struct {
	Kind   Kind
	Errors gqlerror.List
}

func (e *ExecutionError) Error() string {
	if len(e.Errors) == 0 {
		return e.Kind.String() + " error"
	}
	return e.Errors.Error()
}

func newExecutionError(kind Kind, errs ...*gqlerror.Error) *ExecutionError {
	return &ExecutionError{Kind: kind, Errors: errs}
}

// ErrorBody is the response body for a request that was not executed.
type ErrorBody struct {
	Message string        `json:"message"`
	Errors  gqlerror.List `json:"errors,omitempty"`
}

// Classify maps a failure from request parsing or dispatch to an HTTP status
// and body. Unknown failures are reported as 500 without their details.
func Classify(err error) (int, ErrorBody) {
	var shape *request.ShapeError
	if errors.As(err, &shape) {
		return shape.Status, ErrorBody{Message: shape.Message}
	}

	var exec *ExecutionError
	if errors.As(err, &exec) {
		body := ErrorBody{Message: exec.Error(), Errors: exec.Errors}
		if len(exec.Errors) > 0 {
			body.Message = exec.Errors[0].Message
		}
		if exec.Kind == KindMethod {
			return http.StatusMethodNotAllowed, body
		}
		return http.StatusBadRequest, body
	}

	return http.StatusInternalServerError, ErrorBody{Message: "Internal server error"}
}
