package local

import (
	"context"
	"fmt"
	"maps"

	"github.com/leengari/gridops/internal/changedata"
	"github.com/leengari/gridops/internal/domain/data"
	"github.com/leengari/gridops/internal/domain/errors"
	"github.com/leengari/gridops/internal/domain/schema"
	"github.com/leengari/gridops/internal/grid"
	"github.com/leengari/gridops/internal/metrics"
)

// part is one partition of a grid. starts flags the rows opening a record.
type part struct {
	rows   []data.IndexedRow
	starts []bool
}

func (p part) records() []data.Record {
	var out []data.Record
	for i, row := range p.rows {
		if i == 0 || p.starts[i] {
			out = append(out, data.Record{})
		}
		last := &out[len(out)-1]
		last.Rows = append(last.Rows, row)
	}
	return out
}

// Grid is an in-memory partitioned grid
type Grid struct {
	runner   *Runner
	cm       schema.ColumnModel
	overlays map[string]grid.OverlayModel
	parts    []part
}

var _ grid.Grid = (*Grid)(nil)

func (g *Grid) ColumnModel() schema.ColumnModel { return g.cm }

func (g *Grid) OverlayModels() map[string]grid.OverlayModel {
	return maps.Clone(g.overlays)
}

func (g *Grid) RowCount() int64 {
	var n int64
	for _, p := range g.parts {
		n += int64(len(p.rows))
	}
	return n
}

func (g *Grid) PartitionCount() int { return len(g.parts) }

func (g *Grid) Rows() []data.IndexedRow {
	out := make([]data.IndexedRow, 0, g.RowCount())
	for _, p := range g.parts {
		out = append(out, p.rows...)
	}
	return out
}

func (g *Grid) Records() []data.Record {
	var out []data.Record
	for _, p := range g.parts {
		for i, row := range p.rows {
			if len(out) == 0 || p.starts[i] {
				out = append(out, data.Record{})
			}
			last := &out[len(out)-1]
			last.Rows = append(last.Rows, row)
		}
	}
	return out
}

func (g *Grid) WithOverlayModels(overlays map[string]grid.OverlayModel) grid.Grid {
	out := *g
	out.overlays = maps.Clone(overlays)
	if out.overlays == nil {
		out.overlays = map[string]grid.OverlayModel{}
	}
	return &out
}

// WithColumns keeps the record boundaries of g even when the key column is
// not among names
func (g *Grid) WithColumns(names []string) (grid.Grid, error) {
	cm, err := g.cm.Select(names)
	if err != nil {
		return nil, err
	}
	indices := make([]int, len(names))
	for i, name := range names {
		indices[i] = g.cm.ColumnIndex(name)
	}
	parts := make([]part, len(g.parts))
	for pi, p := range g.parts {
		rows := make([]data.IndexedRow, len(p.rows))
		for i, r := range p.rows {
			cells := make([]data.Cell, len(indices))
			for j, idx := range indices {
				cells[j] = r.Row.Cell(idx)
			}
			rows[i] = data.IndexedRow{Index: r.Index, Row: r.Row.WithCells(cells)}
		}
		parts[pi] = part{rows: rows, starts: p.starts}
	}
	return &Grid{runner: g.runner, cm: cm, overlays: g.overlays, parts: parts}, nil
}

// derive builds a grid with new rows in the same partitions, recomputing
// record starts from the key column of cm
func (g *Grid) derive(cm schema.ColumnModel, rows [][]data.IndexedRow) *Grid {
	key := cm.KeyColumnIndex()
	parts := make([]part, len(rows))
	first := true
	for pi, pr := range rows {
		starts := make([]bool, len(pr))
		for i, r := range pr {
			starts[i] = first || data.IsRecordStart(r.Row, key)
			first = false
		}
		parts[pi] = part{rows: pr, starts: starts}
	}
	return &Grid{runner: g.runner, cm: cm, overlays: g.overlays, parts: parts}
}

func checkWidth(row data.Row, id int64, cm schema.ColumnModel) error {
	if row.Width() != cm.Width() {
		return fmt.Errorf("row %d has %d cells, column model has %d columns", id, row.Width(), cm.Width())
	}
	return nil
}

func (g *Grid) MapRows(ctx context.Context, mapper grid.RowMapper, newColumnModel schema.ColumnModel) (grid.Grid, error) {
	out := make([][]data.IndexedRow, len(g.parts))
	err := g.runner.each(ctx, len(g.parts), func(pi int) error {
		rows := make([]data.IndexedRow, len(g.parts[pi].rows))
		for i, r := range g.parts[pi].rows {
			mapped := mapper.MapRow(r.Index, r.Row)
			if err := checkWidth(mapped, r.Index, newColumnModel); err != nil {
				return err
			}
			rows[i] = data.IndexedRow{Index: r.Index, Row: mapped}
		}
		metrics.RowsMapped.Add(float64(len(rows)))
		out[pi] = rows
		return nil
	})
	if err != nil {
		return nil, err
	}
	return g.derive(newColumnModel, out), nil
}

func (g *Grid) MapRecords(ctx context.Context, mapper grid.RecordMapper, newColumnModel schema.ColumnModel) (grid.Grid, error) {
	out := make([][]data.IndexedRow, len(g.parts))
	err := g.runner.each(ctx, len(g.parts), func(pi int) error {
		rows := make([]data.IndexedRow, 0, len(g.parts[pi].rows))
		for _, rec := range g.parts[pi].records() {
			mapped := mapper.MapRecord(rec)
			if len(mapped) != rec.Size() {
				return fmt.Errorf("record %d has %d rows, mapper returned %d", rec.StartRowID(), rec.Size(), len(mapped))
			}
			for i, row := range mapped {
				id := rec.Rows[i].Index
				if err := checkWidth(row, id, newColumnModel); err != nil {
					return err
				}
				rows = append(rows, data.IndexedRow{Index: id, Row: row})
			}
		}
		metrics.RowsMapped.Add(float64(len(rows)))
		out[pi] = rows
		return nil
	})
	if err != nil {
		return nil, err
	}
	return g.derive(newColumnModel, out), nil
}

// reusable returns the partition of partial at index i when it can be kept
func reusable[T any](partial *changedata.ChangeData[T], i int) *changedata.Partition[T] {
	if partial == nil {
		return nil
	}
	if p := partial.Partition(i); p != nil && p.Available() {
		return p
	}
	return nil
}

func (g *Grid) MapRowsToChangeData(_ context.Context, filter grid.RowFilter, mapper grid.RowInRecordMapper, partial *changedata.ChangeData[data.Row]) (*changedata.ChangeData[data.Row], error) {
	partitions := make([]*changedata.Partition[data.Row], len(g.parts))
	for pi, p := range g.parts {
		if kept := reusable(partial, pi); kept != nil {
			partitions[pi] = kept
			continue
		}
		partitions[pi] = changedata.NewComputedPartition(pi, func(ctx context.Context) ([]changedata.IndexedData[data.Row], error) {
			var entries []changedata.IndexedData[data.Row]
			for _, r := range p.rows {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				if filter.FilterRow(r.Index, r.Row) {
					entries = append(entries, changedata.Value(r.Index, mapper.MapRow(nil, r.Index, r.Row)))
				}
			}
			metrics.PartitionsComputed.Inc()
			metrics.RowsMapped.Add(float64(len(entries)))
			return entries, nil
		})
	}
	return changedata.New(partitions...), nil
}

func (g *Grid) MapRecordsToChangeData(_ context.Context, filter grid.RecordFilter, mapper grid.RowInRecordMapper, partial *changedata.ChangeData[[]data.Row]) (*changedata.ChangeData[[]data.Row], error) {
	partitions := make([]*changedata.Partition[[]data.Row], len(g.parts))
	for pi, p := range g.parts {
		if kept := reusable(partial, pi); kept != nil {
			partitions[pi] = kept
			continue
		}
		partitions[pi] = changedata.NewComputedPartition(pi, func(ctx context.Context) ([]changedata.IndexedData[[]data.Row], error) {
			var entries []changedata.IndexedData[[]data.Row]
			for _, rec := range p.records() {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				if filter.FilterRecord(rec) {
					rows := grid.MapRecordRows(mapper, rec)
					entries = append(entries, changedata.Value(rec.StartRowID(), rows))
					metrics.RowsMapped.Add(float64(len(rows)))
				}
			}
			metrics.PartitionsComputed.Inc()
			return entries, nil
		})
	}
	return changedata.New(partitions...), nil
}

// entryIndex gives the change data entries a grid partition joins with.
// Partition i of the change data is used when both have the same layout;
// otherwise every entry is indexed. pending is true when the entries
// may be incomplete.
func entryIndex[T any](ctx context.Context, cd *changedata.ChangeData[T], i, partitionCount int) (map[int64]changedata.IndexedData[T], bool, error) {
	index := make(map[int64]changedata.IndexedData[T])
	add := func(e changedata.IndexedData[T]) {
		if _, dup := index[e.ID]; dup {
			panic(&errors.ConsistencyError{RowID: e.ID, Count: 2})
		}
		index[e.ID] = e
	}

	if cd.PartitionCount() == partitionCount {
		p := cd.Partition(i)
		if !p.Available() {
			return index, true, nil
		}
		entries, err := p.Entries(ctx)
		if err != nil {
			return nil, false, err
		}
		for _, e := range entries {
			add(e)
		}
		return index, false, nil
	}

	for e, err := range cd.All(ctx) {
		if err != nil {
			return nil, false, err
		}
		add(e)
	}
	return index, !cd.Complete(), nil
}

func (g *Grid) JoinRows(ctx context.Context, cd *changedata.ChangeData[data.Row], joiner grid.RowJoiner, newColumnModel schema.ColumnModel) (grid.Grid, error) {
	out := make([][]data.IndexedRow, len(g.parts))
	err := g.runner.each(ctx, len(g.parts), func(pi int) error {
		index, pending, err := entryIndex(ctx, cd, pi, len(g.parts))
		if err != nil {
			return err
		}
		rows := make([]data.IndexedRow, len(g.parts[pi].rows))
		for i, r := range g.parts[pi].rows {
			e, ok := index[r.Index]
			if !ok {
				e = changedata.Missing[data.Row](r.Index, pending)
			}
			joined := joiner.JoinRow(nil, r, e)
			if err := checkWidth(joined, r.Index, newColumnModel); err != nil {
				return err
			}
			rows[i] = data.IndexedRow{Index: r.Index, Row: joined}
		}
		out[pi] = rows
		return nil
	})
	if err != nil {
		return nil, err
	}
	return g.derive(newColumnModel, out), nil
}

func (g *Grid) JoinRecords(ctx context.Context, cd *changedata.ChangeData[[]data.Row], joiner grid.RecordJoiner, newColumnModel schema.ColumnModel) (grid.Grid, error) {
	out := make([][]data.IndexedRow, len(g.parts))
	err := g.runner.each(ctx, len(g.parts), func(pi int) error {
		index, pending, err := entryIndex(ctx, cd, pi, len(g.parts))
		if err != nil {
			return err
		}
		rows := make([]data.IndexedRow, 0, len(g.parts[pi].rows))
		for _, rec := range g.parts[pi].records() {
			e, ok := index[rec.StartRowID()]
			if !ok {
				e = changedata.Missing[[]data.Row](rec.StartRowID(), pending)
			}
			joined := joiner.JoinRecord(rec, e)
			if len(joined) != rec.Size() {
				return fmt.Errorf("record %d has %d rows, joiner returned %d", rec.StartRowID(), rec.Size(), len(joined))
			}
			for i, row := range joined {
				id := rec.Rows[i].Index
				if err := checkWidth(row, id, newColumnModel); err != nil {
					return err
				}
				rows = append(rows, data.IndexedRow{Index: id, Row: row})
			}
		}
		out[pi] = rows
		return nil
	})
	if err != nil {
		return nil, err
	}
	return g.derive(newColumnModel, out), nil
}
