package joiner

import (
	"testing"

	"github.com/leengari/gridops/internal/changedata"
	"github.com/leengari/gridops/internal/columns"
	"github.com/leengari/gridops/internal/domain/data"
	"github.com/leengari/gridops/internal/domain/schema"
	"github.com/leengari/gridops/internal/grid"
	"gotest.tools/v3/assert"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// insertDAfterB builds the [A,B,D,C] layout used throughout
func insertDAfterB(t *testing.T) *columns.Layout {
	t.Helper()
	layout, err := columns.BuildLayout(schema.ColumnModelOf("A", "B", "C"), nil,
		[]columns.Insertion{{Name: "D", InsertAfter: "B"}}, 1, false)
	assert.NilError(t, err)
	return layout
}

var selectX = grid.RowFilterFunc(func(_ int64, row data.Row) bool { return row.CellValue(0) == "x" })

func values(row data.Row) []interface{} {
	out := make([]interface{}, row.Width())
	for i := range out {
		out[i] = row.CellValue(i)
	}
	return out
}

// =============================================================================
// SUITE 1: DEFAULT JOINER
// =============================================================================

func TestDefault_UsesComputedValue(t *testing.T) {
	j := NewDefault(grid.Identity)
	row := data.IndexedRow{Index: 3, Row: data.RowOf("a")}

	got := j.JoinRow(nil, row, changedata.Value(int64(3), data.RowOf("A")))
	assert.Equal(t, got.CellValue(0), "A")

	got = j.JoinRow(nil, row, changedata.Missing[data.Row](3, true))
	assert.Equal(t, got.CellValue(0), "a")
	assert.Assert(t, !j.PreservesRecordStructure())
}

func TestDefault_NegativeMapperOnRecords(t *testing.T) {
	upper := grid.NewMapper(true, func(_ *data.Record, _ int64, row data.Row) data.Row {
		return row.WithStarred(true)
	})
	j := NewDefault(upper)
	rec := data.Record{Rows: []data.IndexedRow{{Index: 0, Row: data.RowOf("k")}, {Index: 1, Row: data.RowOf("")}}}

	rows := j.JoinRecord(rec, changedata.Missing[[]data.Row](0, false))
	assert.Equal(t, len(rows), 2)
	assert.Assert(t, rows[1].Starred)

	computed := []data.Row{data.RowOf("K"), data.RowOf("z")}
	rows = j.JoinRecord(rec, changedata.Value(int64(0), computed))
	assert.Equal(t, rows[1].CellValue(0), "z")
}

// =============================================================================
// SUITE 2: INSERTION-AWARE JOINER
// =============================================================================

func TestInsertion_SelectedRowGetsComputedCell(t *testing.T) {
	j := NewInsertion(selectX, grid.AnyRecord, insertDAfterB(t))
	row := data.IndexedRow{Index: 0, Row: data.RowOf("x", "b", "c")}

	got := j.JoinRow(nil, row, changedata.Value(int64(0), data.RowOf("d")))
	assert.DeepEqual(t, values(got), []interface{}{"x", "b", "d", "c"})
	assert.Assert(t, j.PreservesRecordStructure())
}

func TestInsertion_SelectedPendingRowGetsPendingCell(t *testing.T) {
	j := NewInsertion(selectX, grid.AnyRecord, insertDAfterB(t))
	row := data.IndexedRow{Index: 0, Row: data.RowOf("x", "b", "c")}

	got := j.JoinRow(nil, row, changedata.Missing[data.Row](0, true))
	assert.Equal(t, got.Width(), 4)
	assert.Assert(t, got.Cell(2).IsPending())
}

func TestInsertion_ExcludedRowIgnoresStaleValue(t *testing.T) {
	j := NewInsertion(selectX, grid.AnyRecord, insertDAfterB(t))
	row := data.IndexedRow{Index: 1, Row: data.RowOf("y", "b", "c").WithFlagged(true)}

	got := j.JoinRow(nil, row, changedata.Value(int64(1), data.RowOf("stale")))
	assert.DeepEqual(t, values(got), []interface{}{"y", "b", nil, "c"})
	assert.Assert(t, !got.Cell(2).IsPending())
	assert.Assert(t, got.Flagged)
}

func TestInsertion_ReplaceKeepsOriginalForExcludedRows(t *testing.T) {
	layout, err := columns.BuildLayout(schema.ColumnModelOf("A", "B"), nil,
		[]columns.Insertion{{Name: "B", InsertAfter: "B", Replace: true}}, 1, false)
	assert.NilError(t, err)
	j := NewInsertion(selectX, grid.AnyRecord, layout)

	selected := j.JoinRow(nil, data.IndexedRow{Index: 0, Row: data.RowOf("x", "b")}, changedata.Value(int64(0), data.RowOf("B!")))
	assert.DeepEqual(t, values(selected), []interface{}{"x", "B!"})

	excluded := j.JoinRow(nil, data.IndexedRow{Index: 1, Row: data.RowOf("y", "b")}, changedata.Value(int64(1), data.RowOf("B!")))
	assert.DeepEqual(t, values(excluded), []interface{}{"y", "b"})
}

func TestInsertion_RecordDecisionIsPerRecord(t *testing.T) {
	firstRowX := grid.RecordFilterFunc(func(rec data.Record) bool { return rec.Rows[0].Row.CellValue(0) == "x" })
	j := NewInsertion(grid.AnyRow, firstRowX, insertDAfterB(t))

	rec := data.Record{Rows: []data.IndexedRow{
		{Index: 4, Row: data.RowOf("x", "b1", "c1")},
		{Index: 5, Row: data.RowOf("", "b2", "c2")},
	}}
	computed := changedata.Value(int64(4), []data.Row{data.RowOf("d1"), data.RowOf("d2")})
	rows := j.JoinRecord(rec, computed)
	assert.DeepEqual(t, values(rows[0]), []interface{}{"x", "b1", "d1", "c1"})
	assert.DeepEqual(t, values(rows[1]), []interface{}{"", "b2", "d2", "c2"})

	excluded := data.Record{Rows: []data.IndexedRow{
		{Index: 6, Row: data.RowOf("y", "b3", "c3")},
		{Index: 7, Row: data.RowOf("", "b4", "c4")},
	}}
	rows = j.JoinRecord(excluded, changedata.Value(int64(6), []data.Row{data.RowOf("s1"), data.RowOf("s2")}))
	for _, r := range rows {
		assert.Equal(t, r.CellValue(2), nil)
	}
}

func TestInsertion_PrependBreaksRecords(t *testing.T) {
	layout, err := columns.BuildLayout(schema.ColumnModelOf("A", "B"), nil,
		[]columns.Insertion{{Name: "Z"}}, 1, false)
	assert.NilError(t, err)
	j := NewInsertion(grid.AnyRow, grid.AnyRecord, layout)
	assert.Assert(t, !j.PreservesRecordStructure())
}
