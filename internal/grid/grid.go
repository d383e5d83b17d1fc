package grid

import (
	"context"

	"github.com/leengari/gridops/internal/changedata"
	"github.com/leengari/gridops/internal/domain/data"
	"github.com/leengari/gridops/internal/domain/schema"
)

// OverlayModel is opaque project-level state carried along with a grid
type OverlayModel interface{}

// Preservation tells what a change keeps of the grid structure
type Preservation int

const (
	// PreservesRecords means row ids and record boundaries are unchanged
	PreservesRecords Preservation = iota
	// PreservesRows means only row ids are unchanged
	PreservesRows
)

// String returns the name of the preservation level
func (p Preservation) String() string {
	switch p {
	case PreservesRecords:
		return "PRESERVES_RECORDS"
	case PreservesRows:
		return "PRESERVES_ROWS"
	default:
		return "UNKNOWN"
	}
}

// PreservationOf converts a record-structure flag into a Preservation
func PreservationOf(preservesRecords bool) Preservation {
	if preservesRecords {
		return PreservesRecords
	}
	return PreservesRows
}

// RowJoiner reconciles a row with its change data entry in row-based mode.
// rec is nil in row-based mode.
type RowJoiner interface {
	JoinRow(rec *data.Record, row data.IndexedRow, computed changedata.IndexedData[data.Row]) data.Row
	PreservesRecordStructure() bool
}

// RecordJoiner reconciles a record with its change data entry, keyed by the
// first row id of the record. It returns one row per row of the record.
type RecordJoiner interface {
	JoinRecord(rec data.Record, computed changedata.IndexedData[[]data.Row]) []data.Row
	PreservesRecordStructure() bool
}

// Grid is an immutable partitioned table. Every transformation returns a
// new Grid.
type Grid interface {
	ColumnModel() schema.ColumnModel
	OverlayModels() map[string]OverlayModel
	RowCount() int64
	PartitionCount() int

	// Rows returns every row in row id order
	Rows() []data.IndexedRow
	// Records groups rows by the key column of the column model
	Records() []data.Record

	WithOverlayModels(overlays map[string]OverlayModel) Grid
	// WithColumns narrows the grid to the named columns, in order. Record
	// boundaries and partitions of the original grid are kept.
	WithColumns(names []string) (Grid, error)

	MapRows(ctx context.Context, mapper RowMapper, newColumnModel schema.ColumnModel) (Grid, error)
	MapRecords(ctx context.Context, mapper RecordMapper, newColumnModel schema.ColumnModel) (Grid, error)

	// MapRowsToChangeData computes mapper on every row selected by filter,
	// skipping partitions already present in partial (which may be nil)
	MapRowsToChangeData(ctx context.Context, filter RowFilter, mapper RowInRecordMapper, partial *changedata.ChangeData[data.Row]) (*changedata.ChangeData[data.Row], error)
	// MapRecordsToChangeData is the record-based counterpart, keyed by
	// record start row id
	MapRecordsToChangeData(ctx context.Context, filter RecordFilter, mapper RowInRecordMapper, partial *changedata.ChangeData[[]data.Row]) (*changedata.ChangeData[[]data.Row], error)

	JoinRows(ctx context.Context, cd *changedata.ChangeData[data.Row], joiner RowJoiner, newColumnModel schema.ColumnModel) (Grid, error)
	JoinRecords(ctx context.Context, cd *changedata.ChangeData[[]data.Row], joiner RecordJoiner, newColumnModel schema.ColumnModel) (Grid, error)
}
