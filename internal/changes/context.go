package changes

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/leengari/gridops/internal/changedata"
)

// lastHistoryEntryID backs NewHistoryEntryID
var lastHistoryEntryID atomic.Int64

// NewHistoryEntryID returns a unique, increasing history entry id derived
// from the wall clock in milliseconds
func NewHistoryEntryID() int64 {
	for {
		last := lastHistoryEntryID.Load()
		next := time.Now().UnixMilli()
		if next <= last {
			next = last + 1
		}
		if lastHistoryEntryID.CompareAndSwap(last, next) {
			return next
		}
	}
}

// Context is what an operation sees of the history entry it is applied
// for: the id stamped on modified columns and the store its change data is
// kept in
type Context struct {
	HistoryEntryID int64
	ProjectID      string
	TraceID        string
	Store          changedata.Store
	Progress       changedata.ProgressReporter
	Logger         *slog.Logger
}

// NewContext creates a context with a fresh trace id. A nil store keeps
// change data in memory.
func NewContext(historyEntryID int64, projectID string, store changedata.Store) *Context {
	if store == nil {
		store = changedata.NewMemoryStore()
	}
	return &Context{
		HistoryEntryID: historyEntryID,
		ProjectID:      projectID,
		TraceID:        uuid.New().String(),
		Store:          store,
		Logger:         slog.Default(),
	}
}

// StorageID is the store key of a change data produced in this context
func (c *Context) StorageID(id string) string {
	return fmt.Sprintf("%s/%s", historyEntryPrefix(c.HistoryEntryID), id)
}

func historyEntryPrefix(historyEntryID int64) string {
	return fmt.Sprintf("%d", historyEntryID)
}

// DeleteChangeData removes every change data stored for a history entry
func DeleteChangeData(ctx context.Context, store changedata.Store, historyEntryID int64) error {
	if err := store.Delete(ctx, historyEntryPrefix(historyEntryID)); err != nil {
		return &StoreError{ID: historyEntryPrefix(historyEntryID), Err: err}
	}
	return nil
}

// Log returns the context logger, or the default one
func (c *Context) Log() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}
