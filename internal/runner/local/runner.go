package local

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/leengari/gridops/internal/domain/data"
	"github.com/leengari/gridops/internal/domain/schema"
	"github.com/leengari/gridops/internal/grid"
	"github.com/panjf2000/ants/v2"
)

// Runner executes grid transformations partition by partition on a bounded
// worker pool
type Runner struct {
	pool       *ants.Pool
	partitions int
}

// New creates a runner with the given worker count. Grids it creates are
// split into the given number of partitions.
func New(workers, partitions int) (*Runner, error) {
	if workers <= 0 {
		return nil, fmt.Errorf("worker count must be positive, got %d", workers)
	}
	if partitions <= 0 {
		return nil, fmt.Errorf("partition count must be positive, got %d", partitions)
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	return &Runner{pool: pool, partitions: partitions}, nil
}

// Close releases the worker pool
func (r *Runner) Close() {
	r.pool.Release()
}

// each runs fn for every partition index and waits for all of them. A panic
// in fn is re-raised in the caller once every task has finished.
func (r *Runner) each(ctx context.Context, n int, fn func(i int) error) error {
	var wg sync.WaitGroup
	errs := make([]error, n)
	panics := make([]any, n)

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return err
		}
		wg.Add(1)
		err := r.pool.Submit(func() {
			defer wg.Done()
			defer func() {
				if p := recover(); p != nil {
					panics[i] = p
				}
			}()
			errs[i] = fn(i)
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return fmt.Errorf("failed to schedule partition %d: %w", i, err)
		}
	}
	wg.Wait()

	for _, p := range panics {
		if p != nil {
			panic(p)
		}
	}
	return stderrors.Join(errs...)
}

// NewGrid builds a grid from rows, numbering them from 0. Rows are padded
// to the width of the column model. Partition boundaries never split a
// record.
func (r *Runner) NewGrid(cm schema.ColumnModel, rows []data.Row) *Grid {
	width := cm.Width()
	indexed := make([]data.IndexedRow, len(rows))
	starts := make([]bool, len(rows))
	key := cm.KeyColumnIndex()
	for i, row := range rows {
		if row.Width() < width {
			row = row.WithCell(width-1, row.Cell(width-1))
		}
		indexed[i] = data.IndexedRow{Index: int64(i), Row: row}
		starts[i] = i == 0 || data.IsRecordStart(row, key)
	}
	return &Grid{
		runner:   r,
		cm:       cm,
		overlays: map[string]grid.OverlayModel{},
		parts:    split(indexed, starts, r.partitions),
	}
}

// split cuts rows into n partitions of about equal size, moving each
// boundary forward to the next record start
func split(rows []data.IndexedRow, starts []bool, n int) []part {
	parts := make([]part, n)
	size := (len(rows) + n - 1) / n
	begin := 0
	for p := 0; p < n; p++ {
		end := begin + size
		if p == n-1 || end > len(rows) {
			end = len(rows)
		}
		for end < len(rows) && !starts[end] {
			end++
		}
		if begin > end {
			begin = end
		}
		parts[p] = part{rows: rows[begin:end], starts: starts[begin:end]}
		begin = end
	}
	return parts
}
