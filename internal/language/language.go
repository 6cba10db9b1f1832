package language

import (
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"
	"github.com/vektah/gqlparser/v2/validator"
	// registers the standard validation rules
	_ "github.com/vektah/gqlparser/v2/validator/rules"
)

func ParseQuery(source string) (*QueryDocument, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Validate checks doc against schema with the standard validation rules.
// Unknown directives, fields and type mismatches are reported here.
func Validate(schema *ast.Schema, doc *QueryDocument) gqlerror.List {
	return validator.Validate(schema, doc)
}
