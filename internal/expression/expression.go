package expression

import (
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// Root variables visible to expressions
const (
	VarValue = "value"
	VarCells = "cells"
	VarRow   = "row"
)

// Expression is a parsed HCL expression evaluated against one row, e.g.
// upper(value) or "${cells.first} ${cells["last name"]}"
type Expression struct {
	source string
	expr   hclsyntax.Expression
}

// Parse compiles an expression
func Parse(source string) (*Expression, error) {
	expr, diags := hclsyntax.ParseExpression([]byte(source), "expression", hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse expression %q: %w", source, diags)
	}
	for _, tr := range expr.Variables() {
		switch tr.RootName() {
		case VarValue, VarCells, VarRow:
		default:
			return nil, fmt.Errorf("unknown variable %q in expression %q", tr.RootName(), source)
		}
	}
	return &Expression{source: source, expr: expr}, nil
}

// Source returns the expression text
func (e *Expression) Source() string { return e.source }

// ColumnDependencies lists the columns the expression reads. baseColumn is
// the column bound to value. The boolean is false when the expression
// reads cells dynamically and may depend on any column.
func (e *Expression) ColumnDependencies(baseColumn string) ([]string, bool) {
	seen := make(map[string]bool)
	for _, tr := range e.expr.Variables() {
		switch tr.RootName() {
		case VarValue:
			if baseColumn != "" {
				seen[baseColumn] = true
			}
		case VarCells:
			if len(tr) < 2 {
				return nil, false
			}
			switch step := tr[1].(type) {
			case hcl.TraverseAttr:
				seen[step.Name] = true
			case hcl.TraverseIndex:
				if step.Key.Type() != cty.String || !step.Key.IsKnown() || step.Key.IsNull() {
					return nil, false
				}
				seen[step.Key.AsString()] = true
			default:
				return nil, false
			}
		}
	}
	deps := make([]string, 0, len(seen))
	for name := range seen {
		deps = append(deps, name)
	}
	sort.Strings(deps)
	return deps, true
}

// Bindings are the values an expression is evaluated with
type Bindings struct {
	Value    interface{}
	Cells    map[string]interface{}
	RowIndex int64
	Flagged  bool
	Starred  bool
}

// Evaluate runs the expression. Evaluation errors are returned, never
// panicked.
func (e *Expression) Evaluate(b Bindings) (interface{}, error) {
	cells := make(map[string]cty.Value, len(b.Cells))
	for name, v := range b.Cells {
		cells[name] = toCty(v)
	}
	ctx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			VarValue: toCty(b.Value),
			VarCells: cty.ObjectVal(cells),
			VarRow: cty.ObjectVal(map[string]cty.Value{
				"index":   cty.NumberIntVal(b.RowIndex),
				"flagged": cty.BoolVal(b.Flagged),
				"starred": cty.BoolVal(b.Starred),
			}),
		},
		Functions: functions,
	}
	v, diags := e.expr.Value(ctx)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to evaluate %q: %w", e.source, diags)
	}
	return fromCty(v)
}
