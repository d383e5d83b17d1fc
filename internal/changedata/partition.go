package changedata

import (
	"context"
	"slices"
	"sync"
)

// ComputeFunc produces the entries of one partition
type ComputeFunc[T any] func(ctx context.Context) ([]IndexedData[T], error)

// Partition is one lazily computed slice of a change data. A partition is
// either materialized, computable, or missing (neither).
type Partition[T any] struct {
	index int

	mu           sync.Mutex
	entries      []IndexedData[T]
	materialized bool
	stored       bool
	compute      ComputeFunc[T]
}

// NewComputedPartition returns a partition computed on first access
func NewComputedPartition[T any](index int, compute ComputeFunc[T]) *Partition[T] {
	return &Partition[T]{index: index, compute: compute}
}

// NewMaterializedPartition returns a partition holding entries in memory
func NewMaterializedPartition[T any](index int, entries []IndexedData[T]) *Partition[T] {
	return &Partition[T]{index: index, entries: sortEntries(entries), materialized: true}
}

// NewStoredPartition returns a partition restored from a store
func NewStoredPartition[T any](index int, entries []IndexedData[T]) *Partition[T] {
	p := NewMaterializedPartition(index, entries)
	p.stored = true
	return p
}

// NewMissingPartition returns a partition whose entries are not known
func NewMissingPartition[T any](index int) *Partition[T] {
	return &Partition[T]{index: index}
}

func (p *Partition[T]) Index() int { return p.index }

// Stored reports whether the partition is already in the store
func (p *Partition[T]) Stored() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stored
}

// Available reports whether the entries are materialized or computable
func (p *Partition[T]) Available() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.materialized || p.compute != nil
}

// Entries returns the entries of the partition sorted by id, computing them
// if needed. A missing partition has no entries. A failed computation is not
// cached.
func (p *Partition[T]) Entries(ctx context.Context) ([]IndexedData[T], error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.materialized || p.compute == nil {
		return p.entries, nil
	}
	entries, err := p.compute(ctx)
	if err != nil {
		return nil, err
	}
	p.entries = sortEntries(entries)
	p.materialized = true
	return p.entries, nil
}

func (p *Partition[T]) markStored() {
	p.mu.Lock()
	p.stored = true
	p.mu.Unlock()
}

func sortEntries[T any](entries []IndexedData[T]) []IndexedData[T] {
	slices.SortStableFunc(entries, func(a, b IndexedData[T]) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return entries
}
