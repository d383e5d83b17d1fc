package testutil

import (
	"github.com/leengari/gridops/internal/domain/data"
	"github.com/leengari/gridops/internal/domain/schema"
)

// Rows builds rows from literal cell values
func Rows(values ...[]interface{}) []data.Row {
	out := make([]data.Row, len(values))
	for i, v := range values {
		out[i] = data.RowOf(v...)
	}
	return out
}

// Values extracts the cell values of a row
func Values(row data.Row) []interface{} {
	out := make([]interface{}, row.Width())
	for i := range out {
		out[i] = row.CellValue(i)
	}
	return out
}

// RecordModel builds a column model grouped into records by its first
// column
func RecordModel(names ...string) schema.ColumnModel {
	return schema.ColumnModelOf(names...).WithHasRecords(true)
}
