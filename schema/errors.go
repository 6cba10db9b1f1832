package schema

import "fmt"

// BuildError reports a schema that cannot be assembled. It is returned at
// startup, before any request is served.
type BuildError struct {
	// Reason is a human readable summary.
	Reason string
	// Err is the underlying parser or binding failure, if any.
	Err error
}

func (e *BuildError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("schema: %s: %v", e.Reason, e.Err)
	}
	return "schema: " + e.Reason
}

func (e *BuildError) Unwrap() error { return e.Err }

func buildErrorf(err error, format string, args ...any) *BuildError {
	return &BuildError{Reason: fmt.Sprintf(format, args...), Err: err}
}
