package executor

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/hanpama/gqlbridge/internal/language"
	"github.com/hanpama/gqlbridge/schema"
)

type Path []PathElement

type PathElement any

type NodeID uint64

// RequestError reports a request that could not start executing: no
// matching operation, bad variables or a missing root type. No data is
// produced for it.
type RequestError struct {
	Message string
}

func (e *RequestError) Error() string { return e.Message }

// executionState holds the state during query execution
type executionState struct {
	runtime        Runtime
	schema         *schema.Schema
	document       *language.QueryDocument
	variableValues map[string]any
	context        context.Context
	asyncTaskGroup []asyncTask
	errors         []GraphQLError
	// Store async tasks by ID for completion
	asyncTaskInfo map[NodeID]asyncTask
	// simple incremental id generator
	nextID uint64
	// prefixes of paths that have been nullified (tombstoned)
	nullifiedPrefix map[string]struct{}
	// response positions declared Non-Null
	nonNull map[string]struct{}
	// set when null propagated past the root fields
	dataNull bool
}

// asyncTask represents a pending async field resolution
type asyncTask struct {
	ID           NodeID
	Task         AsyncResolveTask
	ResponsePath Path
	FieldType    *schema.TypeRef
	Fields       []*language.Field
}

// asyncPending reserves the key position of an async field until it completes.
type asyncPending struct{}

type Executor struct {
	runtime Runtime
	schema  *schema.Schema
}

func NewExecutor(runtime Runtime, schema *schema.Schema) *Executor {
	return &Executor{runtime: runtime, schema: schema}
}

// ExecuteRequest runs the operation and always returns a result. Request
// level failures are reported as a result without data.
func (e *Executor) ExecuteRequest(
	ctx context.Context,
	document *language.QueryDocument,
	operationName string,
	variableValues map[string]any,
	initialValue any,
) *ExecutionResult {
	res, err := e.Execute(ctx, document, operationName, variableValues, initialValue)
	if err != nil {
		return &ExecutionResult{Errors: []GraphQLError{{Message: err.Error()}}}
	}
	return res
}

// Execute runs the operation. It fails with a *RequestError when execution
// cannot start; field failures are reported in the result instead.
func (e *Executor) Execute(
	ctx context.Context,
	document *language.QueryDocument,
	operationName string,
	variableValues map[string]any,
	initialValue any,
) (*ExecutionResult, error) {
	operation, err := getOperation(document, operationName)
	if err != nil {
		return nil, err
	}

	coercedVariableValues, err := coerceVariableValues(e.schema, operation, variableValues)
	if err != nil {
		return nil, &RequestError{Message: err.Error()}
	}

	var rootType *schema.Type
	switch operation.Operation {
	case language.Query:
		rootType = e.schema.GetQueryType()
	case language.Mutation:
		rootType = e.schema.GetMutationType()
	case language.Subscription:
		rootType = e.schema.GetSubscriptionType()
	default:
		return nil, &RequestError{Message: fmt.Sprintf("unsupported operation type: %s", operation.Operation)}
	}

	if rootType == nil {
		return nil, &RequestError{Message: fmt.Sprintf("root type not found for %s operation", operation.Operation)}
	}

	state := &executionState{
		runtime:         e.runtime,
		schema:          e.schema,
		document:        document,
		variableValues:  coercedVariableValues,
		context:         ctx,
		asyncTaskGroup:  []asyncTask{},
		errors:          []GraphQLError{},
		asyncTaskInfo:   make(map[NodeID]asyncTask),
		nextID:          1,
		nullifiedPrefix: make(map[string]struct{}),
		nonNull:         make(map[string]struct{}),
	}

	// Root selection set: sync immediate expansion, async queued
	responseRoot := executeSelectionSet(state, rootType, operation.SelectionSet, initialValue, Path{})
	if responseRoot == nil {
		state.dataNull = true
	}

	rootTasks := state.asyncTaskGroup
	state.asyncTaskGroup = nil
	if operation.Operation == language.Mutation {
		// mutation root fields run one after another, each to completion
		for _, at := range rootTasks {
			state.asyncTaskGroup = []asyncTask{at}
			state.drain(responseRoot)
		}
	} else {
		state.asyncTaskGroup = rootTasks
		state.drain(responseRoot)
	}

	if state.dataNull {
		return &ExecutionResult{Data: nil, Errors: state.errors}, nil
	}
	return &ExecutionResult{Data: responseRoot, Errors: state.errors}, nil
}

// drain runs the depth-wise batch loop until no async work is left.
func (state *executionState) drain(responseRoot *ResultMap) {
	for len(state.asyncTaskGroup) > 0 && !state.dataNull {
		filtered, results := flushAsyncTasks(state)
		for i, r := range results {
			if i >= len(filtered) {
				break
			}
			completeAsyncField(state, filtered[i], r, responseRoot)
		}
	}
}

type Node struct {
	ObjectType   *schema.Type
	SelectionSet language.SelectionSet
	SourceValue  any
	ResponsePath Path
}

// executeSelectionSet executes a selection set without flushing. It returns
// nil when a Non-Null field of the object completed to null.
func executeSelectionSet(state *executionState, objectType *schema.Type, selectionSet language.SelectionSet, objectValue any, path Path) *ResultMap {
	groupedFields := collectFields(state, objectType, selectionSet)
	resultMap := newResultMap(len(groupedFields.orderedFields()))

	for _, collectedField := range groupedFields.orderedFields() {
		responseName := collectedField.ResponseName
		fields := collectedField.Fields
		fieldPath := appendPath(path, responseName)

		fieldResult := executeFieldGroup(state, objectType, objectValue, fields, fieldPath)

		// Handle __typename special case
		if fields[0].Name == "__typename" {
			resultMap.Set(responseName, fieldResult)
			continue
		}

		fieldDef := getFieldDefinition(objectType, fields[0].Name)
		if fieldDef == nil {
			// Unknown field – error was already recorded in executeFieldGroup; do not include it
			continue
		}

		// Handle non-null child behavior with nullish detection
		if schema.IsNonNull(fieldDef.Type) && isNullish(fieldResult) {
			state.markNullifiedPrefix(path)
			return nil
		}

		// For nullable fields, coerce typed-nil to interface-nil
		if isNullish(fieldResult) {
			resultMap.Set(responseName, nil)
		} else {
			resultMap.Set(responseName, fieldResult)
		}
	}

	return resultMap
}

func executeFieldGroup(state *executionState, objectType *schema.Type, objectValue any, fields []*language.Field, path Path) any {
	field := fields[0]
	fieldName := field.Name

	// Handle __typename meta field
	if fieldName == "__typename" {
		return objectType.Name
	}

	fieldDef := getFieldDefinition(objectType, fieldName)
	if fieldDef == nil {
		state.addError(fmt.Sprintf("Cannot query field '%s' on type '%s'", fieldName, objectType.Name), path, fields)
		return nil
	}
	if schema.IsNonNull(fieldDef.Type) {
		state.markNonNull(path)
	}

	argumentValues, ok := coerceArgumentValues(fieldDef, field.Arguments, state.variableValues, state, path, fields)
	if !ok {
		return completeValue(state, fieldDef.Type, fields, nil, path)
	}

	async := fieldDef.Async
	if !async {
		resolvedValue := resolveSyncField(state, objectType.Name, fieldName, objectValue, argumentValues, path, fields)
		completed := completeValue(state, fieldDef.Type, fields, resolvedValue, path)
		return completed
	} else {
		id := NodeID(state.nextID)
		state.nextID++
		at := asyncTask{
			ID: id,
			Task: AsyncResolveTask{
				ObjectType: objectType.Name,
				Field:      fieldName,
				Source:     objectValue,
				Args:       argumentValues,
				Path:       path,
			},
			ResponsePath: path,
			FieldType:    fieldDef.Type,
			Fields:       fields,
		}
		state.asyncTaskGroup = append(state.asyncTaskGroup, at)
		state.asyncTaskInfo[id] = at
		return asyncPending{}
	}
}

// flushAsyncTasks flushes tasks and returns results (filtered by tombstones)
func flushAsyncTasks(state *executionState) ([]asyncTask, []AsyncResolveResult) {
	// Filter out tasks under nullified prefixes
	filtered := make([]asyncTask, 0, len(state.asyncTaskGroup))
	for _, at := range state.asyncTaskGroup {
		if state.hasNullifiedPrefix(at.ResponsePath) {
			// Drop this task; also forget it for completion
			delete(state.asyncTaskInfo, at.ID)
			continue
		}
		filtered = append(filtered, at)
	}

	// Extract tasks
	tasks := make([]AsyncResolveTask, len(filtered))
	for i, at := range filtered {
		tasks[i] = at.Task
	}

	// Clear group before executing
	state.asyncTaskGroup = nil
	if len(tasks) == 0 {
		return nil, nil
	}

	// Execute batch
	results := state.runtime.BatchResolveAsync(state.context, tasks)
	return filtered, results
}

// completeAsyncField completes a single async result, with non-null propagation and pruning
func completeAsyncField(state *executionState, at asyncTask, res AsyncResolveResult, responseRoot *ResultMap) {
	delete(state.asyncTaskInfo, at.ID)

	path := at.ResponsePath
	// If this path is already nullified by an ancestor, ignore
	if state.hasNullifiedPrefix(path) {
		return
	}

	// Handle error case first
	if res.Error != nil {
		state.addResolverError(res.Error, path, at.Fields)
		if schema.IsNonNull(at.FieldType) {
			state.propagateNull(responseRoot, path)
			return
		}
		setValueAtPath(responseRoot, path, nil)
		return
	}

	completed := completeValue(state, at.FieldType, at.Fields, res.Value, path)

	// If non-null type but completion yielded nullish → propagate
	if schema.IsNonNull(at.FieldType) && isNullish(completed) {
		state.propagateNull(responseRoot, path)
		return
	}

	// Normal write; coerce typed-nil to interface nil
	if isNullish(completed) {
		setValueAtPath(responseRoot, path, nil)
	} else {
		setValueAtPath(responseRoot, path, completed)
	}
}

// propagateNull nulls the nearest nullable ancestor of the Non-Null position
// at path and prunes any work queued below it.
func (state *executionState) propagateNull(responseRoot *ResultMap, path Path) {
	target, ok := state.nullableAncestor(path)
	if !ok {
		state.dataNull = true
		state.asyncTaskGroup = nil
		return
	}
	setValueAtPath(responseRoot, target, nil)
	state.markNullifiedPrefix(target)
}

func (state *executionState) nullableAncestor(p Path) (Path, bool) {
	for len(p) > 1 {
		p = p[:len(p)-1]
		if !state.isNonNull(p) {
			return p, true
		}
	}
	return nil, false
}

// completeValue completes a value
func completeValue(state *executionState, fieldType *schema.TypeRef, fields []*language.Field, result any, path Path) any {
	if schema.IsNonNull(fieldType) {
		if isNullish(result) {
			if !state.hasErrorAtPath(path) {
				state.addError(fmt.Sprintf("Cannot return null for non-nullable field %s", pathToString(path)), path, fields)
			}
			return nil
		}
		inner := schema.Unwrap(fieldType)
		completed := completeValue(state, inner, fields, result, path)
		if isNullish(completed) {
			// Error already recorded at original path; propagate only
			return nil
		}
		return completed
	}

	if isNullish(result) {
		return nil
	}

	if schema.IsList(fieldType) {
		return completeListValue(state, fieldType, fields, result, path)
	}
	namedType := schema.GetNamedType(fieldType)
	typeObj := state.schema.Types[namedType]
	if typeObj == nil {
		state.addError(fmt.Sprintf("Unknown type: %s", namedType), path, fields)
		return nil
	}

	switch typeObj.Kind {
	case schema.TypeKindScalar, schema.TypeKindEnum:
		serialized, err := state.runtime.SerializeLeafValue(state.context, namedType, result)
		if err != nil {
			state.addError(err.Error(), path, fields)
			return nil
		}
		return serialized
	case schema.TypeKindObject:
		return completeObjectValue(state, typeObj, fields, result, path)
	case schema.TypeKindInterface, schema.TypeKindUnion:
		return completeAbstractValue(state, namedType, fields, result, path)
	default:
		state.addError(fmt.Sprintf("Cannot complete value of unexpected type: %s", typeObj.Kind), path, fields)
		return nil
	}
}

// completeListValue completes a list value
func completeListValue(state *executionState, listType *schema.TypeRef, fields []*language.Field, result any, path Path) any {
	var items []any
	if direct, ok := result.([]any); ok {
		items = direct
	} else {
		rv := reflect.ValueOf(result)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			state.addError(fmt.Sprintf("Expected list value, got %T", result), path, fields)
			return nil
		}
		items = make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			items[i] = rv.Index(i).Interface()
		}
	}

	inner := schema.Unwrap(listType)
	completed := make([]any, len(items))
	for i, item := range items {
		p := appendPath(path, i)
		if schema.IsNonNull(inner) {
			state.markNonNull(p)
		}
		v := completeValue(state, inner, fields, item, p)
		if schema.IsNonNull(inner) && isNullish(v) {
			// Propagate null to the list field; error already recorded by inner completion
			state.markNullifiedPrefix(path)
			return nil
		}
		completed[i] = v
	}
	return completed
}

func completeObjectValue(state *executionState, objectType *schema.Type, fields []*language.Field, result any, path Path) any {
	sub := mergeSelectionSets(fields)
	m := executeSelectionSet(state, objectType, sub, result, path)
	if m == nil {
		return nil
	}
	return m
}

func completeAbstractValue(state *executionState, abstractTypeName string, fields []*language.Field, result any, path Path) any {
	typeName, err := state.runtime.ResolveType(state.context, abstractTypeName, result)
	if err != nil {
		state.addError(err.Error(), path, fields)
		return nil
	}
	objectType := state.schema.Types[typeName]
	if objectType == nil || objectType.Kind != schema.TypeKindObject {
		state.addError(fmt.Sprintf("Abstract type %s must resolve to an Object type at runtime. Got: %s", abstractTypeName, typeName), path, fields)
		return nil
	}
	if !state.schema.Implements(typeName, abstractTypeName) {
		state.addError(fmt.Sprintf("Runtime Object type %s is not a possible type for %s", typeName, abstractTypeName), path, fields)
		return nil
	}
	return completeObjectValue(state, objectType, fields, result, path)
}

func pathToString(path Path) string {
	result := ""
	for i, elem := range path {
		if i > 0 {
			result += "."
		}
		switch v := elem.(type) {
		case string:
			result += v
		case int:
			result += fmt.Sprintf("[%d]", v)
		}
	}
	return result
}

func appendPath(path Path, elem PathElement) Path {
	newPath := make(Path, len(path)+1)
	copy(newPath, path)
	newPath[len(path)] = elem
	return newPath
}

// Prefix tombstone helpers
func (s *executionState) markNullifiedPrefix(p Path) {
	key := pathToString(p)
	if key != "" {
		s.nullifiedPrefix[key] = struct{}{}
	}
}

func (s *executionState) hasNullifiedPrefix(p Path) bool {
	if len(s.nullifiedPrefix) == 0 {
		return false
	}
	// Build prefixes progressively
	cur := Path{}
	for _, elem := range p {
		cur = append(cur, elem)
		key := pathToString(cur)
		if _, ok := s.nullifiedPrefix[key]; ok {
			return true
		}
	}
	return false
}

func (s *executionState) markNonNull(p Path) { s.nonNull[pathToString(p)] = struct{}{} }

func (s *executionState) isNonNull(p Path) bool {
	_, ok := s.nonNull[pathToString(p)]
	return ok
}

// getOperation retrieves the operation from the document
func getOperation(document *language.QueryDocument, operationName string) (*language.OperationDefinition, error) {
	if operationName == "" {
		switch len(document.Operations) {
		case 0:
			return nil, &RequestError{Message: "Must provide an operation."}
		case 1:
			return document.Operations[0], nil
		default:
			return nil, &RequestError{Message: "Must provide operation name if query contains multiple operations."}
		}
	}
	for _, op := range document.Operations {
		if op.Name == operationName {
			return op, nil
		}
	}
	return nil, &RequestError{Message: fmt.Sprintf("Unknown operation named %q.", operationName)}
}

func typeRefFromAST(t *language.Type) *schema.TypeRef {
	if t == nil {
		return nil
	}
	if t.NonNull {
		return schema.NonNullType(typeRefFromAST(&language.Type{NamedType: t.NamedType, Elem: t.Elem}))
	}
	if t.NamedType != "" {
		return schema.NamedType(t.NamedType)
	}
	if t.Elem != nil {
		return schema.ListType(typeRefFromAST(t.Elem))
	}
	return nil
}

// addError records a located error for the field at path.
func (state *executionState) addError(message string, path Path, fields []*language.Field) {
	state.errors = append(state.errors, GraphQLError{Message: message, Path: path, Locations: locationsOf(fields)})
}

// extensionError is implemented by resolver errors that carry extensions.
type extensionError interface {
	Extensions() map[string]any
}

func (state *executionState) addResolverError(err error, path Path, fields []*language.Field) {
	gerr := GraphQLError{Message: err.Error(), Path: path, Locations: locationsOf(fields)}
	var ext extensionError
	if errors.As(err, &ext) {
		gerr.Extensions = ext.Extensions()
	}
	state.errors = append(state.errors, gerr)
}

func locationsOf(fields []*language.Field) []Location {
	if len(fields) == 0 || fields[0].Position == nil {
		return nil
	}
	return []Location{{Line: fields[0].Position.Line, Column: fields[0].Position.Column}}
}

// hasErrorAtPath reports whether an error with the given path already exists.
func (state *executionState) hasErrorAtPath(path Path) bool {
	for _, err := range state.errors {
		if reflect.DeepEqual(err.Path, path) {
			return true
		}
	}
	return false
}

// resolveSyncField resolves a field synchronously
func resolveSyncField(state *executionState, objectType string, fieldName string, source any, args map[string]any, path Path, fields []*language.Field) any {
	value, err := state.runtime.ResolveSync(state.context, objectType, fieldName, source, args)
	if err != nil {
		state.addResolverError(err, path, fields)
		return nil
	}
	return value
}

// setValueAtPath writes value into the response tree. Paths through missing
// or null containers are ignored.
func setValueAtPath(responseRoot *ResultMap, path Path, value any) {
	if len(path) == 0 {
		return
	}
	var current any = responseRoot
	for _, elem := range path[:len(path)-1] {
		switch e := elem.(type) {
		case string:
			m, ok := current.(*ResultMap)
			if !ok || m == nil {
				return
			}
			next, exists := m.Get(e)
			if !exists {
				return
			}
			current = next
		case int:
			slice, ok := current.([]any)
			if !ok || e < 0 || e >= len(slice) {
				return
			}
			current = slice[e]
		}
	}
	switch fe := path[len(path)-1].(type) {
	case string:
		if m, ok := current.(*ResultMap); ok && m != nil {
			m.Set(fe, value)
		}
	case int:
		if slice, ok := current.([]any); ok && fe >= 0 && fe < len(slice) {
			slice[fe] = value
		}
	}
}

// mergeSelectionSets merges selection sets from multiple fields
func mergeSelectionSets(fields []*language.Field) language.SelectionSet {
	var merged language.SelectionSet
	for _, f := range fields {
		merged = append(merged, f.SelectionSet...)
	}
	return merged
}

// isNullish returns true for nil interfaces and typed nils (map, slice, ptr, interface)
func isNullish(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Interface, reflect.Ptr, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
