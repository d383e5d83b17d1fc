package session

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/leengari/gridops/internal/changedata"
	"github.com/leengari/gridops/internal/changes"
	"github.com/leengari/gridops/internal/grid"
	"github.com/leengari/gridops/internal/journal"
	"github.com/leengari/gridops/internal/runner/local"
	"github.com/leengari/gridops/internal/storage"
	"github.com/leengari/gridops/internal/storage/writer"
)

// Registry manages named sessions whose grids are saved as snapshot
// directories under basePath
type Registry struct {
	mu       sync.RWMutex
	loaded   map[string]*Session
	basePath string
	runner   *local.Runner
	opts     Options
}

const journalFile = "history.log"

// NewRegistry creates a registry. Sessions share opts.Store, an in-memory
// store when nil.
func NewRegistry(basePath string, runner *local.Runner, opts Options) *Registry {
	if opts.Store == nil {
		opts.Store = changedata.NewMemoryStore()
	}
	return &Registry{
		loaded:   make(map[string]*Session),
		basePath: basePath,
		runner:   runner,
		opts:     opts,
	}
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid session name %q", name)
	}
	return nil
}

func (r *Registry) path(name string) string {
	return filepath.Join(r.basePath, name)
}

// Get returns a loaded session, or loads it from its snapshot
func (r *Registry) Get(name string) (*Session, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.loaded[name]; ok {
		return s, nil
	}
	if !storage.IsSnapshot(r.path(name)) {
		return nil, fmt.Errorf("session '%s' does not exist", name)
	}
	g, meta, err := storage.LoadGrid(r.path(name), r.runner, r.logger())
	if err != nil {
		return nil, err
	}
	s := Resume(name, g, meta.LastHistoryEntryID, r.opts)
	if err := r.attachJournal(s, meta.LastHistoryEntryID, true); err != nil {
		return nil, err
	}
	r.loaded[name] = s
	return s, nil
}

// journalPath is the history log kept next to a session's snapshot
func (r *Registry) journalPath(name string) string {
	return filepath.Join(r.path(name), journalFile)
}

// attachJournal opens the session's history log and restores the steps it
// recorded up to the snapshot at lastHistoryEntryID. A log that does not
// match the snapshot is started over. When resuming, a step interrupted on
// the snapshot grid becomes the session's pending step; the change data of
// every other unsaved step is deleted.
func (r *Registry) attachJournal(s *Session, lastHistoryEntryID int64, resume bool) error {
	if err := os.MkdirAll(r.path(s.name), 0755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	path := r.journalPath(s.name)
	j, rec, err := journal.Open(path, s.name, r.logger())
	if err != nil {
		r.logger().Warn("unreadable journal, starting a new one", "session", s.name, "error", err)
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to reset journal: %w", err)
		}
		if j, rec, err = journal.Open(path, s.name, r.logger()); err != nil {
			return err
		}
	}

	if rec.HasCheckpoint && rec.CheckpointLSN != uint64(lastHistoryEntryID) {
		r.logger().Warn("journal does not match snapshot, history dropped",
			"session", s.name,
			"checkpoint", rec.CheckpointLSN,
			"snapshot", lastHistoryEntryID,
		)
		if err := j.Close(); err != nil {
			return err
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to reset journal: %w", err)
		}
		if j, rec, err = journal.Open(path, s.name, r.logger()); err != nil {
			return err
		}
	}

	for _, e := range rec.Entries {
		var step Step
		if err := json.Unmarshal(e.Payload, &step); err != nil {
			r.logger().Warn("skipping undecodable journal entry", "session", s.name, "lsn", e.LSN, "error", err)
			continue
		}
		s.restored = append(s.restored, step)
	}

	abandoned := rec.Abandoned
	if p := rec.Pending; p != nil {
		var pending pendingStep
		if err := json.Unmarshal(p.Payload, &pending); err != nil || !resume {
			abandoned = append(abandoned, p.LSN)
		} else {
			pending.HistoryEntryID = int64(p.LSN)
			s.pending = &pending
			r.logger().Info("session has an interrupted operation",
				"session", s.name,
				"operation", pending.Operation,
				"history_entry_id", pending.HistoryEntryID,
			)
		}
	}
	for _, lsn := range abandoned {
		s.deleteChangeData(context.Background(), int64(lsn))
	}
	s.journal = j
	return nil
}

// Create registers a new session for g. It fails when the name is taken.
func (r *Registry) Create(name string, g grid.Grid) (*Session, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.loaded[name]; ok {
		return nil, fmt.Errorf("session '%s' already exists (loaded)", name)
	}
	if storage.IsSnapshot(r.path(name)) {
		return nil, fmt.Errorf("session '%s' already exists", name)
	}
	s := New(name, g, r.opts)
	if err := r.attachJournal(s, 0, false); err != nil {
		return nil, err
	}
	r.loaded[name] = s
	return s, nil
}

// Import creates a session from a CSV file
func (r *Registry) Import(name, csvPath, keyColumn string) (*Session, error) {
	g, err := storage.LoadCSV(csvPath, keyColumn, r.runner, r.logger())
	if err != nil {
		return nil, err
	}
	return r.Create(name, g)
}

// ImportReader creates a session from CSV content
func (r *Registry) ImportReader(name string, in io.Reader, keyColumn string) (*Session, error) {
	cm, rows, err := storage.ReadCSV(in, keyColumn)
	if err != nil {
		return nil, err
	}
	return r.Create(name, r.runner.NewGrid(cm, rows))
}

// Save writes the current grid of a loaded session to its snapshot
func (r *Registry) Save(name string) error {
	r.mu.RLock()
	s, ok := r.loaded[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("session '%s' is not loaded", name)
	}
	return r.save(name, s)
}

// save writes the snapshot, then checkpoints the journal at its history
// entry
func (r *Registry) save(name string, s *Session) error {
	last := s.LastHistoryEntryID()
	if err := writer.SaveGrid(r.path(name), name, s.Grid(), last); err != nil {
		return err
	}
	if s.journal != nil {
		if err := s.journal.Checkpoint(uint64(last)); err != nil {
			return fmt.Errorf("failed to checkpoint journal of '%s': %w", name, err)
		}
	}
	return nil
}

// SaveAll saves every loaded session
func (r *Registry) SaveAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for name, s := range r.loaded {
		if err := r.save(name, s); err != nil {
			r.logger().Error("failed to save session", "name", name, "error", err)
		}
	}
}

// Drop unloads a session and deletes its snapshot and change data
func (r *Registry) Drop(name string) error {
	if err := validName(name); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.loaded[name]; ok {
		s.release(context.Background())
		if s.journal != nil {
			_ = s.journal.Close()
		}
	} else {
		r.releaseSaved(name)
	}
	delete(r.loaded, name)
	if err := os.RemoveAll(r.path(name)); err != nil {
		return fmt.Errorf("failed to delete session '%s': %w", name, err)
	}
	return nil
}

// releaseSaved deletes the change data of every history entry the journal
// of an unloaded session names
func (r *Registry) releaseSaved(name string) {
	rec, err := journal.Recover(r.journalPath(name))
	if err != nil {
		return
	}
	lsns := rec.Abandoned
	for _, e := range rec.Entries {
		lsns = append(lsns, e.LSN)
	}
	if rec.Pending != nil {
		lsns = append(lsns, rec.Pending.LSN)
	}
	for _, lsn := range lsns {
		if err := changes.DeleteChangeData(context.Background(), r.opts.Store, int64(lsn)); err != nil {
			r.logger().Warn("failed to delete change data", "session", name, "history_entry_id", lsn, "error", err)
		}
	}
}

// List returns the names of every saved or loaded session
func (r *Registry) List() ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool, len(r.loaded))
	for name := range r.loaded {
		seen[name] = true
	}
	entries, err := os.ReadDir(r.basePath)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() && storage.IsSnapshot(r.path(e.Name())) {
			seen[e.Name()] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Close closes the journals of every loaded session. Sessions are not
// saved; call SaveAll first.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, s := range r.loaded {
		if s.journal == nil {
			continue
		}
		if err := s.journal.Close(); err != nil {
			r.logger().Error("failed to close journal", "name", name, "error", err)
		}
	}
}

func (r *Registry) logger() *slog.Logger {
	if r.opts.Logger == nil {
		return slog.Default()
	}
	return r.opts.Logger
}
