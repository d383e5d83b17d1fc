package grid

import "github.com/leengari/gridops/internal/domain/data"

// RowFilter selects rows in row-based mode
type RowFilter interface {
	FilterRow(rowID int64, row data.Row) bool
}

// RowFilterFunc adapts a function to RowFilter
type RowFilterFunc func(rowID int64, row data.Row) bool

// FilterRow implements RowFilter
func (f RowFilterFunc) FilterRow(rowID int64, row data.Row) bool { return f(rowID, row) }

// RecordFilter selects records in record-based mode
type RecordFilter interface {
	FilterRecord(rec data.Record) bool
}

// RecordFilterFunc adapts a function to RecordFilter
type RecordFilterFunc func(rec data.Record) bool

// FilterRecord implements RecordFilter
func (f RecordFilterFunc) FilterRecord(rec data.Record) bool { return f(rec) }

// AnyRow accepts every row
var AnyRow RowFilter = RowFilterFunc(func(int64, data.Row) bool { return true })

// AnyRecord accepts every record
var AnyRecord RecordFilter = RecordFilterFunc(func(data.Record) bool { return true })

// RowInRecordMapper maps one row, with access to its enclosing record in
// record-based mode (rec is nil in row-based mode). Every row of a record is
// passed the same rec pointer, which is never reused for another record.
// Implementations must be deterministic in (rowID, row, rec): persisted
// results may be mixed with freshly computed ones.
type RowInRecordMapper interface {
	MapRow(rec *data.Record, rowID int64, row data.Row) data.Row
	// PreservesRecordStructure reports whether the mapper leaves the
	// record key column untouched
	PreservesRecordStructure() bool
}

type funcMapper struct {
	fn        func(rec *data.Record, rowID int64, row data.Row) data.Row
	preserves bool
}

func (m funcMapper) MapRow(rec *data.Record, rowID int64, row data.Row) data.Row {
	return m.fn(rec, rowID, row)
}

func (m funcMapper) PreservesRecordStructure() bool { return m.preserves }

// NewMapper builds a RowInRecordMapper from a function
func NewMapper(preservesRecords bool, fn func(rec *data.Record, rowID int64, row data.Row) data.Row) RowInRecordMapper {
	return funcMapper{fn: fn, preserves: preservesRecords}
}

// Identity returns rows unchanged
var Identity = NewMapper(true, func(_ *data.Record, _ int64, row data.Row) data.Row { return row })

// RowMapper maps the rows of a grid in row-based mode
type RowMapper interface {
	MapRow(rowID int64, row data.Row) data.Row
	PreservesRecordStructure() bool
}

// RecordMapper maps the records of a grid in record-based mode. It returns
// exactly one row per input row.
type RecordMapper interface {
	MapRecord(rec data.Record) []data.Row
	PreservesRecordStructure() bool
}

type conditionalRowMapper struct {
	filter   RowFilter
	positive RowInRecordMapper
	negative RowInRecordMapper
}

// ConditionalRowMapper applies positive to rows selected by filter and
// negative to the others
func ConditionalRowMapper(filter RowFilter, positive, negative RowInRecordMapper) RowMapper {
	return &conditionalRowMapper{filter: filter, positive: positive, negative: negative}
}

func (m *conditionalRowMapper) MapRow(rowID int64, row data.Row) data.Row {
	if m.filter.FilterRow(rowID, row) {
		return m.positive.MapRow(nil, rowID, row)
	}
	return m.negative.MapRow(nil, rowID, row)
}

func (m *conditionalRowMapper) PreservesRecordStructure() bool {
	return m.positive.PreservesRecordStructure() && m.negative.PreservesRecordStructure()
}

type conditionalRecordMapper struct {
	filter   RecordFilter
	positive RowInRecordMapper
	negative RowInRecordMapper
}

// ConditionalRecordMapper applies positive to every row of the records
// selected by filter and negative to the rows of the other records
func ConditionalRecordMapper(filter RecordFilter, positive, negative RowInRecordMapper) RecordMapper {
	return &conditionalRecordMapper{filter: filter, positive: positive, negative: negative}
}

func (m *conditionalRecordMapper) MapRecord(rec data.Record) []data.Row {
	mapper := m.negative
	if m.filter.FilterRecord(rec) {
		mapper = m.positive
	}
	return MapRecordRows(mapper, rec)
}

func (m *conditionalRecordMapper) PreservesRecordStructure() bool {
	return m.positive.PreservesRecordStructure() && m.negative.PreservesRecordStructure()
}

// MapRecordRows applies a row mapper to every row of a record
func MapRecordRows(mapper RowInRecordMapper, rec data.Record) []data.Row {
	out := make([]data.Row, len(rec.Rows))
	for i, row := range rec.Rows {
		out[i] = mapper.MapRow(&rec, row.Index, row.Row)
	}
	return out
}
