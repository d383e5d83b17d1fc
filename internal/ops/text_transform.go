package ops

import (
	"fmt"

	"github.com/leengari/gridops/internal/columns"
	"github.com/leengari/gridops/internal/domain/data"
	"github.com/leengari/gridops/internal/domain/schema"
	"github.com/leengari/gridops/internal/engine"
	"github.com/leengari/gridops/internal/expression"
	"github.com/leengari/gridops/internal/grid"
	"github.com/leengari/gridops/internal/operation"
)

// TextTransform rewrites the cells of Column with Expression. With Repeat
// set, the expression is applied again to its own result, up to Repeat more
// times, until the value stops changing.
type TextTransform struct {
	Engine     engine.Config
	Column     string
	Expression string
	OnError    OnError
	Repeat     int
	Persist    bool
}

func (t TextTransform) Build() (*operation.Operation, error) {
	if t.Column == "" {
		return nil, fmt.Errorf("%s requires a column", TextTransformID)
	}
	if t.Repeat < 0 {
		return nil, fmt.Errorf("%s repeat count must not be negative", TextTransformID)
	}
	onError := t.OnError
	if onError == "" {
		onError = KeepOriginal
	}
	if err := onError.validate(); err != nil {
		return nil, err
	}
	expr, err := expression.Parse(t.Expression)
	if err != nil {
		return nil, err
	}

	return &operation.Operation{
		ID:           TextTransformID,
		Description:  fmt.Sprintf("Text transform on cells in column %s using expression %s", t.Column, t.Expression),
		EngineConfig: t.Engine,
		Dependencies: expressionDependencies(expr, t.Column),
		Insertions:   []columns.Insertion{{Name: t.Column, InsertAfter: t.Column, Replace: true}},
		PositiveMapper: func(cm schema.ColumnModel) (grid.RowInRecordMapper, error) {
			ev, err := newEvaluator(expr, cm, t.Column)
			if err != nil {
				return nil, err
			}
			// the key column may be rewritten
			preserves := cm.KeyColumnIndex() != ev.base
			return grid.NewMapper(preserves, func(_ *data.Record, rowID int64, row data.Row) data.Row {
				return data.NewRow(t.transform(ev, onError, rowID, row))
			}), nil
		},
		Persist: t.Persist,
		Params:  t,
	}, nil
}

func (t TextTransform) transform(ev *evaluator, onError OnError, rowID int64, row data.Row) data.Cell {
	original := row.Cell(ev.base)
	value := original.Value
	for i := 0; i <= t.Repeat; i++ {
		v, err := ev.eval(rowID, row, value)
		if err != nil {
			return onError.cell(original, nil, err)
		}
		if i > 0 && v == value {
			break
		}
		value = v
	}
	if value == original.Value {
		return original
	}
	return data.NewCell(value)
}
