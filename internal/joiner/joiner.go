package joiner

import (
	"github.com/leengari/gridops/internal/changedata"
	"github.com/leengari/gridops/internal/columns"
	"github.com/leengari/gridops/internal/domain/data"
	"github.com/leengari/gridops/internal/grid"
)

// Default joins a grid with change data computed for operations that do not
// declare column insertions: a computed value replaces the row verbatim,
// rows without one go through the negative mapper.
type Default struct {
	negative grid.RowInRecordMapper
}

// NewDefault builds a Default joiner. negative receives full rows.
func NewDefault(negative grid.RowInRecordMapper) *Default {
	return &Default{negative: negative}
}

func (j *Default) JoinRow(rec *data.Record, row data.IndexedRow, computed changedata.IndexedData[data.Row]) data.Row {
	if computed.Present {
		return computed.Data
	}
	return j.negative.MapRow(rec, row.Index, row.Row)
}

func (j *Default) JoinRecord(rec data.Record, computed changedata.IndexedData[[]data.Row]) []data.Row {
	if computed.Present && len(computed.Data) == len(rec.Rows) {
		return computed.Data
	}
	return grid.MapRecordRows(j.negative, rec)
}

// PreservesRecordStructure is always false: computed rows are opaque
func (j *Default) PreservesRecordStructure() bool {
	return false
}

// Insertion joins change data holding mapper output for the inserted
// columns of a layout. Rows selected by the view filter are spliced through
// the positive index map; every other row is rebuilt from its original
// cells through the negative index map, whatever the change data holds for
// it.
type Insertion struct {
	rowFilter    grid.RowFilter
	recordFilter grid.RecordFilter
	layout       *columns.Layout
}

// NewInsertion builds an insertion-aware joiner
func NewInsertion(rowFilter grid.RowFilter, recordFilter grid.RecordFilter, layout *columns.Layout) *Insertion {
	return &Insertion{rowFilter: rowFilter, recordFilter: recordFilter, layout: layout}
}

// splice reconciles one row. mapped is nil when the value is still pending.
func (j *Insertion) splice(row data.Row, selected bool, mapped *data.Row, available bool) data.Row {
	if selected && available {
		return j.layout.Positive.SpliceRow(row, mapped)
	}
	return j.layout.Negative.SpliceBlank(row)
}

func (j *Insertion) JoinRow(_ *data.Record, row data.IndexedRow, computed changedata.IndexedData[data.Row]) data.Row {
	selected := j.rowFilter.FilterRow(row.Index, row.Row)
	var mapped *data.Row
	if computed.Present {
		mapped = &computed.Data
	}
	return j.splice(row.Row, selected, mapped, computed.Present || computed.Pending)
}

// JoinRecord decides once per record, then splices every row of it
func (j *Insertion) JoinRecord(rec data.Record, computed changedata.IndexedData[[]data.Row]) []data.Row {
	selected := j.recordFilter.FilterRecord(rec)
	available := computed.Present || computed.Pending
	out := make([]data.Row, len(rec.Rows))
	for i, r := range rec.Rows {
		var mapped *data.Row
		if computed.Present && i < len(computed.Data) {
			mapped = &computed.Data[i]
		}
		out[i] = j.splice(r.Row, selected, mapped, available)
	}
	return out
}

// PreservesRecordStructure reports whether the key column keeps its place
// in both index maps
func (j *Insertion) PreservesRecordStructure() bool {
	return j.layout.PreservesRecordStructure()
}
