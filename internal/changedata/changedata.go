package changedata

import (
	"context"
	"iter"
	"slices"
	"sort"

	"github.com/leengari/gridops/internal/domain/errors"
)

// ChangeData is a partitioned, id-sorted collection of computed values
// keyed by row id or record start id. It holds at most one entry per id.
type ChangeData[T any] struct {
	partitions []*Partition[T]
}

// New assembles a change data from its partitions, in order
func New[T any](partitions ...*Partition[T]) *ChangeData[T] {
	return &ChangeData[T]{partitions: partitions}
}

// FromEntries builds a single-partition change data held in memory
func FromEntries[T any](entries ...IndexedData[T]) *ChangeData[T] {
	return New(NewMaterializedPartition(0, slices.Clone(entries)))
}

func (cd *ChangeData[T]) PartitionCount() int { return len(cd.partitions) }

// Partition returns the i-th partition, or nil when out of range
func (cd *ChangeData[T]) Partition(i int) *Partition[T] {
	if i < 0 || i >= len(cd.partitions) {
		return nil
	}
	return cd.partitions[i]
}

// Complete reports whether every partition is materialized or computable
func (cd *ChangeData[T]) Complete() bool {
	for _, p := range cd.partitions {
		if !p.Available() {
			return false
		}
	}
	return true
}

// Get returns the value stored for id. The boolean is false when no present
// entry exists. Get panics with a *errors.ConsistencyError when more than one
// entry is found for id.
func (cd *ChangeData[T]) Get(ctx context.Context, id int64) (T, bool, error) {
	var (
		found IndexedData[T]
		count int
	)
	for _, p := range cd.partitions {
		entries, err := p.Entries(ctx)
		if err != nil {
			var zero T
			return zero, false, err
		}
		i := sort.Search(len(entries), func(i int) bool { return entries[i].ID >= id })
		for ; i < len(entries) && entries[i].ID == id; i++ {
			if count == 0 {
				found = entries[i]
			}
			count++
		}
	}
	if count > 1 {
		panic(&errors.ConsistencyError{RowID: id, Count: count})
	}
	return found.Data, count == 1 && found.Present, nil
}

// All iterates over every entry in partition order. Iteration stops at the
// first partition that fails to compute.
func (cd *ChangeData[T]) All(ctx context.Context) iter.Seq2[IndexedData[T], error] {
	return func(yield func(IndexedData[T], error) bool) {
		for _, p := range cd.partitions {
			entries, err := p.Entries(ctx)
			if err != nil {
				yield(IndexedData[T]{}, err)
				return
			}
			for _, e := range entries {
				if !yield(e, nil) {
					return
				}
			}
		}
	}
}
