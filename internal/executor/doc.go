// Package executor runs a validated GraphQL operation against a schema.Schema
// and produces the {data, errors} result.
//
// Execution is breadth-first. Fields whose schema.Field.Async flag is false
// are resolved in place through Runtime.ResolveSync and expanded without
// adding depth. Async fields met while expanding one depth are queued and
// handed to Runtime.BatchResolveAsync together, once per depth, so a query
// whose deepest chain crosses d async fields costs d batch calls. Root fields
// of a mutation are the exception: each one is resolved and completed,
// children included, before the next starts.
//
// # Response shape
//
// Objects in the response are *ResultMap values, which marshal their keys in
// selection order. An async field reserves its key when it is queued, so the
// order does not depend on when its batch finishes. Plain converts a result
// tree into ordinary maps for comparison.
//
// # Errors
//
// Failures that stop an operation from starting (no matching operation,
// variables that do not coerce, a missing root type) are returned by Execute
// as *RequestError. Everything else is a field error: it is recorded with its
// response path and query location, the field becomes null and execution
// continues. A null in a Non-Null position is propagated to the nearest
// nullable ancestor and any work queued below that ancestor is dropped. When
// no such ancestor exists, data itself is null.
//
// Resolver errors that implement
//
//	Extensions() map[string]any
//
// have those extensions copied onto the reported error.
//
// # Fragments
//
// Inline fragments and fragment spreads apply when their type condition names
// the object type itself, an interface it implements or a union containing it.
// Abstract values are narrowed with Runtime.ResolveType before their selection
// set is collected.
package executor
