// Package session keeps named grids together with the history of
// operations applied to them.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/leengari/gridops/internal/changedata"
	"github.com/leengari/gridops/internal/changes"
	"github.com/leengari/gridops/internal/grid"
	"github.com/leengari/gridops/internal/journal"
	"github.com/leengari/gridops/internal/operation"
)

// Options are shared by every session of a registry
type Options struct {
	Store     changedata.Store
	ProjectID string
	Logger    *slog.Logger
	Progress  changedata.ProgressReporter
	Observers []operation.Observer
}

// Step is one applied operation
type Step struct {
	HistoryEntryID int64             `json:"history_entry_id"`
	Operation      string            `json:"operation"`
	Description    string            `json:"description"`
	Preservation   grid.Preservation `json:"preservation"`
	Columns        []string          `json:"columns"`
	Rows           int64             `json:"rows"`
	Elapsed        time.Duration     `json:"elapsed"`
}

// Session is a grid and the operations applied to it so far. It is safe
// for concurrent use; operations are applied one at a time.
type Session struct {
	mu      sync.Mutex
	name    string
	opts    Options
	applier *operation.Applier
	grids   []grid.Grid
	steps   []Step
	// restored steps were applied before the snapshot was saved and can no
	// longer be undone
	restored []Step
	journal  *journal.Journal
	// baseHistoryEntryID is the last history entry of a loaded snapshot
	baseHistoryEntryID int64
	// pending is the last persisted operation that did not complete
	pending *pendingStep
}

// pendingStep is a persisted operation whose change data may be partly
// stored. Retrying the same operation on the same grid reuses its history
// entry, so the committed partitions are resumed.
type pendingStep struct {
	HistoryEntryID int64  `json:"history_entry_id"`
	Operation      string `json:"operation"`
	Fingerprint    string `json:"fingerprint"`
	// base is the index in grids of the grid the operation was applied to
	base int
}

func New(name string, g grid.Grid, opts Options) *Session {
	if opts.Store == nil {
		opts.Store = changedata.NewMemoryStore()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Session{
		name:    name,
		opts:    opts,
		applier: operation.NewApplier(opts.Observers...),
		grids:   []grid.Grid{g},
	}
}

// Resume creates a session for a grid restored from a snapshot whose last
// applied history entry was lastHistoryEntryID
func Resume(name string, g grid.Grid, lastHistoryEntryID int64, opts Options) *Session {
	s := New(name, g, opts)
	s.baseHistoryEntryID = lastHistoryEntryID
	return s
}

func (s *Session) Name() string { return s.name }

// Grid returns the current grid
func (s *Session) Grid() grid.Grid {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grids[len(s.grids)-1]
}

// History returns the applied steps, oldest first
func (s *Session) History() []Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := make([]Step, 0, len(s.restored)+len(s.steps))
	history = append(history, s.restored...)
	return append(history, s.steps...)
}

// LastHistoryEntryID returns the id of the last applied step
func (s *Session) LastHistoryEntryID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.steps) == 0 {
		return s.baseHistoryEntryID
	}
	return s.steps[len(s.steps)-1].HistoryEntryID
}

// Apply applies op to the current grid under a new history entry. On
// failure the session is left unchanged. A persisted operation that failed
// is resumed when it is applied again before any other operation.
func (s *Session) Apply(ctx context.Context, op *operation.Operation) (Step, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.grids[len(s.grids)-1]
	cc := changes.NewContext(s.historyEntryFor(ctx, op), s.opts.ProjectID, s.opts.Store)
	cc.Progress = s.opts.Progress
	cc.Logger = s.opts.Logger.With(slog.String("session", s.name))

	start := time.Now()
	result, err := s.applier.Apply(ctx, op, current, cc)
	if err != nil {
		return Step{}, err
	}
	s.pending = nil
	step := Step{
		HistoryEntryID: cc.HistoryEntryID,
		Operation:      op.ID,
		Description:    op.Description,
		Preservation:   result.Preservation,
		Columns:        result.Grid.ColumnModel().ColumnNames(),
		Rows:           result.Grid.RowCount(),
		Elapsed:        time.Since(start),
	}
	s.grids = append(s.grids, result.Grid)
	s.steps = append(s.steps, step)
	if s.journal != nil {
		if err := s.journal.LogApply(uint64(step.HistoryEntryID), step); err != nil {
			s.opts.Logger.Warn("failed to journal step", "session", s.name, "error", err)
		}
	}
	return step, nil
}

// historyEntryFor returns the history entry op is applied under: the one of
// the pending step when op retries it, a new one otherwise. A persisted
// operation becomes the pending step until it completes.
// Must be called with mutex held.
func (s *Session) historyEntryFor(ctx context.Context, op *operation.Operation) int64 {
	base := len(s.grids) - 1
	var fingerprint string
	if op.Persist {
		fingerprint = op.Fingerprint()
	}
	if p := s.pending; p != nil {
		if fingerprint != "" && p.Fingerprint == fingerprint && p.base == base {
			s.opts.Logger.Info("resuming interrupted operation",
				"session", s.name,
				"operation", op.ID,
				"history_entry_id", p.HistoryEntryID,
			)
			return p.HistoryEntryID
		}
		s.deleteChangeData(ctx, p.HistoryEntryID)
		s.pending = nil
	}

	id := changes.NewHistoryEntryID()
	if fingerprint == "" {
		return id
	}
	s.pending = &pendingStep{HistoryEntryID: id, Operation: op.ID, Fingerprint: fingerprint, base: base}
	if s.journal != nil {
		if err := s.journal.LogBegin(uint64(id), s.pending); err != nil {
			s.opts.Logger.Warn("failed to journal pending step", "session", s.name, "error", err)
		}
	}
	return id
}

// deleteChangeData drops the stored change data of a history entry no grid
// refers to anymore
func (s *Session) deleteChangeData(ctx context.Context, historyEntryID int64) {
	if err := changes.DeleteChangeData(ctx, s.opts.Store, historyEntryID); err != nil {
		s.opts.Logger.Warn("failed to delete change data",
			"session", s.name,
			"history_entry_id", historyEntryID,
			"error", err,
		)
	}
}

// release deletes the change data of every step and of the pending one
func (s *Session) release(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, step := range s.restored {
		s.deleteChangeData(ctx, step.HistoryEntryID)
	}
	for _, step := range s.steps {
		s.deleteChangeData(ctx, step.HistoryEntryID)
	}
	if s.pending != nil {
		s.deleteChangeData(ctx, s.pending.HistoryEntryID)
		s.pending = nil
	}
}

// ApplyAll applies ops in order and stops at the first failure. The steps
// applied before the failure are kept.
func (s *Session) ApplyAll(ctx context.Context, ops []*operation.Operation) ([]Step, error) {
	steps := make([]Step, 0, len(ops))
	for i, op := range ops {
		step, err := s.Apply(ctx, op)
		if err != nil {
			return steps, fmt.Errorf("step %d: %w", i+1, err)
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// Undo drops the last applied step, restores the grid it was applied to and
// deletes the step's change data
func (s *Session) Undo() (Step, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.steps) == 0 {
		return Step{}, false
	}
	last := s.steps[len(s.steps)-1]
	s.steps = s.steps[:len(s.steps)-1]
	s.grids = s.grids[:len(s.grids)-1]
	if s.pending != nil {
		// begun on the grid just dropped
		s.deleteChangeData(context.Background(), s.pending.HistoryEntryID)
		s.pending = nil
	}
	s.deleteChangeData(context.Background(), last.HistoryEntryID)
	if s.journal != nil {
		if err := s.journal.LogUndo(uint64(last.HistoryEntryID)); err != nil {
			s.opts.Logger.Warn("failed to journal undo", "session", s.name, "error", err)
		}
	}
	return last, true
}
