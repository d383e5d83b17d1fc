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

// ColumnAddition adds a column after BaseColumn, filled by evaluating
// Expression on the selected rows
type ColumnAddition struct {
	Engine     engine.Config
	BaseColumn string
	NewColumn  string
	Expression string
	OnError    OnError
	// Persist caches evaluated cells so an interrupted run resumes
	Persist bool
}

func (c ColumnAddition) Build() (*operation.Operation, error) {
	if c.BaseColumn == "" || c.NewColumn == "" {
		return nil, fmt.Errorf("%s requires a base column and a new column name", ColumnAdditionID)
	}
	onError := c.OnError
	if onError == "" {
		onError = SetToBlank
	}
	if err := onError.validate(); err != nil {
		return nil, err
	}
	expr, err := expression.Parse(c.Expression)
	if err != nil {
		return nil, err
	}

	return &operation.Operation{
		ID:           ColumnAdditionID,
		Description:  fmt.Sprintf("Create column %s at index based on column %s using expression %s", c.NewColumn, c.BaseColumn, c.Expression),
		EngineConfig: c.Engine,
		Dependencies: expressionDependencies(expr, c.BaseColumn),
		Insertions:   []columns.Insertion{{Name: c.NewColumn, InsertAfter: c.BaseColumn}},
		PositiveMapper: func(cm schema.ColumnModel) (grid.RowInRecordMapper, error) {
			ev, err := newEvaluator(expr, cm, c.BaseColumn)
			if err != nil {
				return nil, err
			}
			return grid.NewMapper(true, func(_ *data.Record, rowID int64, row data.Row) data.Row {
				original := row.Cell(ev.base)
				v, err := ev.eval(rowID, row, original.Value)
				return data.NewRow(onError.cell(original, v, err))
			}), nil
		},
		Persist: c.Persist,
		Params:  c,
	}, nil
}
