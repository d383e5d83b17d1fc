package ops

import (
	"github.com/leengari/gridops/internal/domain/data"
	"github.com/leengari/gridops/internal/domain/schema"
	"github.com/leengari/gridops/internal/engine"
	"github.com/leengari/gridops/internal/grid"
	"github.com/leengari/gridops/internal/operation"
)

// RowFlag sets or clears the flag of the selected rows
type RowFlag struct {
	Engine  engine.Config
	Flagged bool
}

func (f RowFlag) Build() (*operation.Operation, error) {
	description := "Flag rows"
	if !f.Flagged {
		description = "Unflag rows"
	}
	return rowMarker(RowFlagID, description, f.Engine, func(row data.Row) data.Row {
		return row.WithFlagged(f.Flagged)
	}), nil
}

// RowStar sets or clears the star of the selected rows
type RowStar struct {
	Engine  engine.Config
	Starred bool
}

func (s RowStar) Build() (*operation.Operation, error) {
	description := "Star rows"
	if !s.Starred {
		description = "Unstar rows"
	}
	return rowMarker(RowStarID, description, s.Engine, func(row data.Row) data.Row {
		return row.WithStarred(s.Starred)
	}), nil
}

func rowMarker(id, description string, cfg engine.Config, mark func(data.Row) data.Row) *operation.Operation {
	return &operation.Operation{
		ID:           id,
		Description:  description,
		EngineConfig: cfg,
		PositiveMapper: func(schema.ColumnModel) (grid.RowInRecordMapper, error) {
			return grid.NewMapper(true, func(_ *data.Record, _ int64, row data.Row) data.Row {
				return mark(row)
			}), nil
		},
		// flags leave column metadata untouched
		NewColumnModel: func(cm schema.ColumnModel, _ int64) (schema.ColumnModel, error) {
			return cm, nil
		},
	}
}
