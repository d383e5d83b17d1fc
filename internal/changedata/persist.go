package changedata

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/leengari/gridops/internal/metrics"
	"golang.org/x/sync/errgroup"
)

// ProgressReporter receives persistence progress as a percentage
type ProgressReporter interface {
	ReportProgress(percent int)
}

// ProgressFunc adapts a function to ProgressReporter
type ProgressFunc func(percent int)

// ReportProgress implements ProgressReporter
func (f ProgressFunc) ReportProgress(percent int) { f(percent) }

// maxLineSize bounds a single serialized entry
const maxLineSize = 64 * 1024 * 1024

type line struct {
	ID   int64           `json:"i"`
	Data json.RawMessage `json:"d"`
}

// Persist writes every partition not yet stored, computing it first if
// needed. Missing partitions are skipped. Each partition is committed
// atomically so an interrupted run can be resumed with Load.
func (cd *ChangeData[T]) Persist(ctx context.Context, store Store, id string, ser Serializer[T], progress ProgressReporter) error {
	total := int64(len(cd.partitions))
	var done atomic.Int64
	report := func() {
		if progress != nil && total > 0 {
			progress.ReportProgress(int(done.Add(1) * 100 / total))
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, p := range cd.partitions {
		if p.Stored() || !p.Available() {
			report()
			continue
		}
		g.Go(func() error {
			if err := writePartition(gctx, store, id, p, ser); err != nil {
				return fmt.Errorf("failed to persist partition %d of %s: %w", p.Index(), id, err)
			}
			p.markStored()
			metrics.PartitionsPersisted.Inc()
			report()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if progress != nil {
		progress.ReportProgress(100)
	}
	return nil
}

func writePartition[T any](ctx context.Context, store Store, id string, p *Partition[T], ser Serializer[T]) error {
	entries, err := p.Entries(ctx)
	if err != nil {
		return err
	}
	w, err := store.Create(ctx, id, p.Index())
	if err != nil {
		return err
	}
	buf := bufio.NewWriter(w)
	enc := json.NewEncoder(buf)
	for _, e := range entries {
		if !e.Present {
			continue
		}
		if err := ctx.Err(); err != nil {
			_ = w.Abort()
			return err
		}
		raw, err := ser.Serialize(e.Data)
		if err != nil {
			_ = w.Abort()
			return err
		}
		if err := enc.Encode(line{ID: e.ID, Data: raw}); err != nil {
			_ = w.Abort()
			return err
		}
	}
	if err := buf.Flush(); err != nil {
		_ = w.Abort()
		return err
	}
	return w.Commit()
}

// Load restores the committed partitions of id. Partitions absent from the
// store are returned as missing, so the result may be incomplete.
func Load[T any](ctx context.Context, store Store, id string, ser Serializer[T], partitionCount int) (*ChangeData[T], error) {
	indexes, err := store.Partitions(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list partitions of %s: %w", id, err)
	}
	partitions := make([]*Partition[T], partitionCount)
	for _, idx := range indexes {
		if idx >= partitionCount {
			return nil, fmt.Errorf("change data %s has partition %d but the grid has %d partitions", id, idx, partitionCount)
		}
		entries, err := readPartition(ctx, store, id, idx, ser)
		if err != nil {
			return nil, fmt.Errorf("failed to load partition %d of %s: %w", idx, id, err)
		}
		partitions[idx] = NewStoredPartition(idx, entries)
		metrics.PartitionsRestored.Inc()
	}
	for i := range partitions {
		if partitions[i] == nil {
			partitions[i] = NewMissingPartition[T](i)
		}
	}
	return New(partitions...), nil
}

func readPartition[T any](ctx context.Context, store Store, id string, idx int, ser Serializer[T]) ([]IndexedData[T], error) {
	rc, err := store.Open(ctx, id, idx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var entries []IndexedData[T]
	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var l line
		if err := json.Unmarshal(raw, &l); err != nil {
			return nil, err
		}
		v, err := ser.Deserialize(l.Data)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Value(l.ID, v))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
