package dispatch

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/hanpama/gqlbridge/internal/request"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "shape",
			err:        &request.ShapeError{Status: http.StatusBadRequest, Message: "Variables are invalid JSON", Err: errors.New("invalid character")},
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Variables are invalid JSON",
		},
		{
			name:       "shape too large",
			err:        &request.ShapeError{Status: http.StatusRequestEntityTooLarge, Message: "too big"},
			wantStatus: http.StatusRequestEntityTooLarge,
			wantMsg:    "too big",
		},
		{
			name:       "syntax",
			err:        newExecutionError(KindSyntax, gqlerror.Errorf("Expected Name, found <EOF>")),
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Expected Name, found <EOF>",
		},
		{
			name:       "validation wrapped",
			err:        fmt.Errorf("dispatch: %w", newExecutionError(KindValidation, gqlerror.Errorf(`Unknown directive "@cached".`))),
			wantStatus: http.StatusBadRequest,
			wantMsg:    `Unknown directive "@cached".`,
		},
		{
			name:       "method",
			err:        newExecutionError(KindMethod, gqlerror.Errorf("Can only perform a mutation operation from a POST request.")),
			wantStatus: http.StatusMethodNotAllowed,
			wantMsg:    "Can only perform a mutation operation from a POST request.",
		},
		{
			name:       "unknown",
			err:        errors.New("database password is hunter2"),
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "Internal server error",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := Classify(tc.err)
			require.Equal(t, tc.wantStatus, status)
			require.Equal(t, tc.wantMsg, body.Message)
		})
	}
}

func TestClassify_CarriesErrors(t *testing.T) {
	errs := gqlerror.List{gqlerror.Errorf("a"), gqlerror.Errorf("b")}
	_, body := Classify(&ExecutionError{Kind: KindValidation, Errors: errs})
	require.Equal(t, "a", body.Message)
	require.Equal(t, errs, body.Errors)
}
