package storage

import "github.com/leengari/gridops/internal/domain/schema"

// SnapshotVersion is the version written to meta.json
const SnapshotVersion = 1

// GridMeta is the meta.json of a grid snapshot directory
type GridMeta struct {
	Name           string                  `json:"name"`
	Version        int                     `json:"version"`
	Columns        []schema.ColumnMetadata `json:"columns"`
	KeyColumnIndex int                     `json:"key_column_index"`
	HasRecords     bool                    `json:"has_records,omitempty"`
	RowCount       int64                   `json:"row_count,omitempty"`
	// LastHistoryEntryID is the history entry of the last operation applied
	LastHistoryEntryID int64 `json:"last_history_entry_id,omitempty"`
}

// ColumnModel rebuilds the column model described by the meta
func (m GridMeta) ColumnModel() (schema.ColumnModel, error) {
	return schema.NewColumnModel(m.Columns, m.KeyColumnIndex, m.HasRecords)
}
