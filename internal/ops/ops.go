// Package ops holds the concrete operations: each builds an
// operation.Operation from its parameters.
package ops

import (
	"fmt"
	"slices"

	"github.com/leengari/gridops/internal/domain/data"
	"github.com/leengari/gridops/internal/domain/schema"
	"github.com/leengari/gridops/internal/expression"
)

// Operation ids
const (
	ColumnAdditionID = "column-addition"
	TextTransformID  = "text-transform"
	ColumnRenameID   = "column-rename"
	ColumnRemovalID  = "column-removal"
	RowFlagID        = "row-flag"
	RowStarID        = "row-star"
)

// OnError tells what a cell becomes when its expression fails
type OnError string

const (
	KeepOriginal OnError = "keep-original"
	SetToBlank   OnError = "set-to-blank"
	StoreError   OnError = "store-error"
)

func (o OnError) validate() error {
	switch o {
	case KeepOriginal, SetToBlank, StoreError:
		return nil
	}
	return fmt.Errorf("unknown on_error mode %q", o)
}

// cell resolves the result of an evaluation
func (o OnError) cell(original data.Cell, v interface{}, err error) data.Cell {
	if err == nil {
		return data.NewCell(v)
	}
	switch o {
	case KeepOriginal:
		return original
	case StoreError:
		return data.NewCell(err.Error())
	default:
		return data.Cell{}
	}
}

// expressionDependencies returns base followed by the columns expr reads,
// or nil when expr may read any column
func expressionDependencies(expr *expression.Expression, base string) []string {
	deps, ok := expr.ColumnDependencies(base)
	if !ok {
		return nil
	}
	out := []string{base}
	for _, d := range deps {
		if !slices.Contains(out, d) {
			out = append(out, d)
		}
	}
	return out
}

// evaluator evaluates an expression against rows of a column model
type evaluator struct {
	expr  *expression.Expression
	names []string
	base  int
}

func newEvaluator(expr *expression.Expression, cm schema.ColumnModel, base string) (*evaluator, error) {
	idx, err := cm.RequiredColumnIndex(base)
	if err != nil {
		return nil, err
	}
	return &evaluator{expr: expr, names: cm.ColumnNames(), base: idx}, nil
}

func (e *evaluator) eval(rowID int64, row data.Row, value interface{}) (interface{}, error) {
	cells := make(map[string]interface{}, len(e.names))
	for i, name := range e.names {
		cells[name] = row.CellValue(i)
	}
	return e.expr.Evaluate(expression.Bindings{
		Value:    value,
		Cells:    cells,
		RowIndex: rowID,
		Flagged:  row.Flagged,
		Starred:  row.Starred,
	})
}
