package transport

import (
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// Operation describes the operation a request will run.
type Operation struct {
	Type   ast.Operation
	Name   string
	Fields []string
}

func (o Operation) IsSubscription() bool {
	return o.Type == ast.Subscription
}

// ParseOperation finds the operation selected by operationName. A document
// that does not parse is left to the executor to report.
func ParseOperation(query, operationName string) (Operation, bool) {
	doc, err := parser.ParseQuery(&ast.Source{Input: query})
	if err != nil {
		return Operation{}, false
	}
	def := doc.Operations.ForName(operationName)
	if def == nil {
		return Operation{}, false
	}
	op := Operation{Type: def.Operation, Name: def.Name}
	for _, sel := range def.SelectionSet {
		if field, ok := sel.(*ast.Field); ok {
			op.Fields = append(op.Fields, field.Name)
		}
	}
	return op, true
}
