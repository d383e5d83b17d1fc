package changes

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leengari/gridops/internal/changedata"
	"github.com/leengari/gridops/internal/grid"
)

// ComputeFunc computes change data over g, skipping the partitions already
// present in partial
type ComputeFunc[T any] func(ctx context.Context, g grid.Grid, partial *changedata.ChangeData[T]) (*changedata.ChangeData[T], error)

// StoreError reports a failure of the change data store
type StoreError struct {
	ID  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("change data %s: %v", e.ID, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// GetChangeData creates or resumes the change data named id. Partitions
// already committed to the store are reused; the others are computed over g
// narrowed to dependencies (all columns when dependencies is nil) and
// persisted.
func GetChangeData[T any](ctx context.Context, cc *Context, g grid.Grid, id string, ser changedata.Serializer[T], compute ComputeFunc[T], dependencies []string) (*changedata.ChangeData[T], error) {
	log := cc.Log()
	storageID := cc.StorageID(id)

	partial, err := changedata.Load(ctx, cc.Store, storageID, ser, g.PartitionCount())
	if err != nil {
		return nil, &StoreError{ID: storageID, Err: err}
	}
	if partial.Complete() {
		log.Info("change data restored",
			slog.String("id", storageID),
			slog.Int("partitions", partial.PartitionCount()),
		)
		return partial, nil
	}

	narrowed := g
	if dependencies != nil {
		narrowed, err = g.WithColumns(dependencies)
		if err != nil {
			return nil, err
		}
	}

	stored := 0
	for i := 0; i < partial.PartitionCount(); i++ {
		if partial.Partition(i).Stored() {
			stored++
		}
	}
	log.Info("computing change data",
		slog.String("id", storageID),
		slog.Int("partitions", g.PartitionCount()),
		slog.Int("resumed_partitions", stored),
		slog.Any("dependencies", dependencies),
	)

	cd, err := compute(ctx, narrowed, partial)
	if err != nil {
		return nil, err
	}
	if err := cd.Persist(ctx, cc.Store, storageID, ser, cc.Progress); err != nil {
		return nil, &StoreError{ID: storageID, Err: err}
	}
	log.Debug("change data persisted", slog.String("id", storageID))
	return cd, nil
}
