package projection

import (
	"sync"

	"github.com/leengari/gridops/internal/domain/data"
	"github.com/leengari/gridops/internal/domain/schema"
	"github.com/leengari/gridops/internal/grid"
)

// ColumnMapper narrows rows of a grid to a list of dependency columns, so a
// mapper only sees the columns it declared
type ColumnMapper struct {
	indices []int
	model   schema.ColumnModel
}

// NewColumnMapper resolves dependencies against cm. Repeated names are
// kept once, at their first position.
func NewColumnMapper(dependencies []string, cm schema.ColumnModel) (*ColumnMapper, error) {
	if err := ValidateDependencies(cm, dependencies); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(dependencies))
	indices := make([]int, 0, len(dependencies))
	seen := make(map[string]bool, len(dependencies))
	for _, name := range dependencies {
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
		indices = append(indices, cm.ColumnIndex(name))
	}
	model, err := cm.Select(names)
	if err != nil {
		return nil, err
	}
	return &ColumnMapper{indices: indices, model: model}, nil
}

// InputColumnModel is the column model of projected rows
func (m *ColumnMapper) InputColumnModel() schema.ColumnModel {
	return m.model
}

// Dependencies returns the projected column names, in order
func (m *ColumnMapper) Dependencies() []string {
	return m.model.ColumnNames()
}

// ProjectRow keeps only the dependency cells of row, in dependency order.
// Flags are kept.
func (m *ColumnMapper) ProjectRow(row data.Row) data.Row {
	cells := make([]data.Cell, len(m.indices))
	for i, idx := range m.indices {
		cells[i] = row.Cell(idx)
	}
	return row.WithCells(cells)
}

// ProjectRecord projects every row of rec
func (m *ColumnMapper) ProjectRecord(rec data.Record) data.Record {
	rows := make([]data.IndexedRow, len(rec.Rows))
	for i, r := range rec.Rows {
		rows[i] = data.IndexedRow{Index: r.Index, Row: m.ProjectRow(r.Row)}
	}
	return data.Record{Rows: rows}
}

// TranslateRowInRecordMapper wraps mapper so it receives projected rows and
// records instead of full ones. A record is projected once for all its rows.
func (m *ColumnMapper) TranslateRowInRecordMapper(mapper grid.RowInRecordMapper) grid.RowInRecordMapper {
	records := &recordCache{project: m.ProjectRecord, entries: make(map[*data.Record]*data.Record)}
	return grid.NewMapper(mapper.PreservesRecordStructure(), func(rec *data.Record, rowID int64, row data.Row) data.Row {
		return mapper.MapRow(records.get(rec), rowID, m.ProjectRow(row))
	})
}

// maxCachedRecords bounds the projections kept while workers map records
// concurrently
const maxCachedRecords = 64

// recordCache keys projections on record identity. Cached keys stay
// reachable, so their addresses cannot be reused by other records.
type recordCache struct {
	mu      sync.Mutex
	project func(data.Record) data.Record
	entries map[*data.Record]*data.Record
}

func (c *recordCache) get(rec *data.Record) *data.Record {
	if rec == nil {
		return nil
	}
	c.mu.Lock()
	projected, ok := c.entries[rec]
	c.mu.Unlock()
	if ok {
		return projected
	}

	p := c.project(*rec)
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= maxCachedRecords {
		clear(c.entries)
	}
	c.entries[rec] = &p
	return &p
}
