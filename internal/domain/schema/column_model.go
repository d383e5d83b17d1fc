package schema

import (
	"fmt"

	"github.com/leengari/gridops/internal/domain/errors"
)

// NoKeyColumn is the key column index of a column model without records
const NoKeyColumn = -1

// ColumnModel is the ordered list of columns of a grid.
// Column names are unique. A ColumnModel is never mutated once built.
type ColumnModel struct {
	columns        []ColumnMetadata
	keyColumnIndex int
	hasRecords     bool
}

// NewColumnModel builds a column model, rejecting duplicate names
func NewColumnModel(columns []ColumnMetadata, keyColumnIndex int, hasRecords bool) (ColumnModel, error) {
	seen := make(map[string]struct{}, len(columns))
	for _, col := range columns {
		if _, dup := seen[col.Name]; dup {
			return ColumnModel{}, &errors.DuplicateColumnError{Column: col.Name}
		}
		seen[col.Name] = struct{}{}
	}
	if keyColumnIndex >= len(columns) {
		return ColumnModel{}, fmt.Errorf("key column index %d out of range for %d columns", keyColumnIndex, len(columns))
	}
	if keyColumnIndex < 0 {
		keyColumnIndex = NoKeyColumn
	}
	cols := make([]ColumnMetadata, len(columns))
	copy(cols, columns)
	return ColumnModel{columns: cols, keyColumnIndex: keyColumnIndex, hasRecords: hasRecords}, nil
}

// MustColumnModel is NewColumnModel for statically known columns. It panics on error.
func MustColumnModel(columns []ColumnMetadata, keyColumnIndex int, hasRecords bool) ColumnModel {
	cm, err := NewColumnModel(columns, keyColumnIndex, hasRecords)
	if err != nil {
		panic(err)
	}
	return cm
}

// ColumnModelOf builds a column model from plain names, with the first
// column as key column
func ColumnModelOf(names ...string) ColumnModel {
	cols := make([]ColumnMetadata, len(names))
	for i, name := range names {
		cols[i] = NewColumnMetadata(name)
	}
	key := 0
	if len(cols) == 0 {
		key = NoKeyColumn
	}
	return MustColumnModel(cols, key, false)
}

// Columns returns a copy of the column list
func (cm ColumnModel) Columns() []ColumnMetadata {
	out := make([]ColumnMetadata, len(cm.columns))
	copy(out, cm.columns)
	return out
}

// ColumnNames returns the names of the columns in order
func (cm ColumnModel) ColumnNames() []string {
	names := make([]string, len(cm.columns))
	for i, col := range cm.columns {
		names[i] = col.Name
	}
	return names
}

// Width returns the number of columns
func (cm ColumnModel) Width() int {
	return len(cm.columns)
}

// Column returns the metadata at index i
func (cm ColumnModel) Column(i int) ColumnMetadata {
	return cm.columns[i]
}

// ColumnIndex returns the index of the named column, or -1
func (cm ColumnModel) ColumnIndex(name string) int {
	for i, col := range cm.columns {
		if col.Name == name {
			return i
		}
	}
	return -1
}

// ColumnByName looks a column up by name
func (cm ColumnModel) ColumnByName(name string) (ColumnMetadata, bool) {
	idx := cm.ColumnIndex(name)
	if idx < 0 {
		return ColumnMetadata{}, false
	}
	return cm.columns[idx], true
}

// RequiredColumnIndex returns the index of the named column or a MissingColumnError
func (cm ColumnModel) RequiredColumnIndex(name string) (int, error) {
	idx := cm.ColumnIndex(name)
	if idx < 0 {
		return -1, &errors.MissingColumnError{Column: name}
	}
	return idx, nil
}

// KeyColumnIndex returns the index of the record key column, or NoKeyColumn
func (cm ColumnModel) KeyColumnIndex() int {
	return cm.keyColumnIndex
}

// HasRecords reports whether the grid is currently grouped into records
func (cm ColumnModel) HasRecords() bool {
	return cm.hasRecords
}

// WithColumns returns a column model with other columns but the same key
// column and records flag. The key column is dropped when it falls outside
// the new columns.
func (cm ColumnModel) WithColumns(columns []ColumnMetadata) (ColumnModel, error) {
	key := cm.keyColumnIndex
	if key >= len(columns) {
		key = NoKeyColumn
	}
	return NewColumnModel(columns, key, cm.hasRecords)
}

// WithHasRecords returns a copy of the model with the records flag set
func (cm ColumnModel) WithHasRecords(hasRecords bool) ColumnModel {
	out := cm
	out.columns = cm.Columns()
	out.hasRecords = hasRecords
	return out
}

// MarkModified stamps every column with the given history entry id
func (cm ColumnModel) MarkModified(historyEntryID int64) ColumnModel {
	out := cm
	out.columns = make([]ColumnMetadata, len(cm.columns))
	for i, col := range cm.columns {
		out.columns[i] = col.WithLastModified(historyEntryID)
	}
	return out
}

// Select builds the model of the named columns in the given order.
// The key column index is kept when it designates the same column.
func (cm ColumnModel) Select(names []string) (ColumnModel, error) {
	cols := make([]ColumnMetadata, 0, len(names))
	key := NoKeyColumn
	for i, name := range names {
		idx, err := cm.RequiredColumnIndex(name)
		if err != nil {
			return ColumnModel{}, err
		}
		if idx == cm.keyColumnIndex {
			key = i
		}
		cols = append(cols, cm.columns[idx])
	}
	return NewColumnModel(cols, key, cm.hasRecords)
}
