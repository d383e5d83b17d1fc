package ops

import (
	"fmt"
	"strings"

	"github.com/leengari/gridops/internal/columns"
	"github.com/leengari/gridops/internal/operation"
)

// ColumnRename renames a column in place. Cells are copied, so every row is
// affected whatever the view filter.
type ColumnRename struct {
	OldName string
	NewName string
}

func (r ColumnRename) Build() (*operation.Operation, error) {
	if r.OldName == "" || r.NewName == "" {
		return nil, fmt.Errorf("%s requires the old and the new column name", ColumnRenameID)
	}
	return &operation.Operation{
		ID:          ColumnRenameID,
		Description: fmt.Sprintf("Rename column %s to %s", r.OldName, r.NewName),
		Insertions: []columns.Insertion{{
			Name:        r.NewName,
			InsertAfter: r.OldName,
			Replace:     true,
			CopiedFrom:  r.OldName,
		}},
	}, nil
}

// ColumnRemoval deletes columns
type ColumnRemoval struct {
	Columns []string
}

func (r ColumnRemoval) Build() (*operation.Operation, error) {
	if len(r.Columns) == 0 {
		return nil, fmt.Errorf("%s requires at least one column", ColumnRemovalID)
	}
	return &operation.Operation{
		ID:          ColumnRemovalID,
		Description: fmt.Sprintf("Remove columns %s", strings.Join(r.Columns, ", ")),
		Deletions:   r.Columns,
		Insertions:  []columns.Insertion{},
	}, nil
}
