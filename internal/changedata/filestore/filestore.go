package filestore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/gzip"
	"github.com/leengari/gridops/internal/changedata"
)

// Store persists change data as gzip-compressed JSON lines under a root
// directory: <root>/<id>/part-NNNNN.gz
type Store struct {
	root string
}

// New creates the root directory if needed
func New(root string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("cannot open file store: missing root directory")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory %s: %w", root, err)
	}
	return &Store{root: root}, nil
}

func (s *Store) dir(id string) string {
	return filepath.Join(s.root, filepath.FromSlash(id))
}

func (s *Store) path(id string, partition int) string {
	return filepath.Join(s.dir(id), changedata.PartitionName(partition)+changedata.PartitionFileSuffix)
}

type fileWriter struct {
	file    *os.File
	gz      *gzip.Writer
	tmpPath string
	path    string
	closed  bool
}

func (w *fileWriter) Write(p []byte) (int, error) {
	return w.gz.Write(p)
}

// Commit flushes the compressed stream and renames the temp file into place
func (w *fileWriter) Commit() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.gz.Close(); err != nil {
		w.file.Close()
		os.Remove(w.tmpPath)
		return fmt.Errorf("failed to finish %s: %w", w.tmpPath, err)
	}
	if err := w.file.Sync(); err != nil {
		w.file.Close()
		os.Remove(w.tmpPath)
		return fmt.Errorf("failed to sync %s: %w", w.tmpPath, err)
	}
	if err := w.file.Close(); err != nil {
		os.Remove(w.tmpPath)
		return fmt.Errorf("failed to close %s: %w", w.tmpPath, err)
	}
	if err := os.Rename(w.tmpPath, w.path); err != nil {
		return fmt.Errorf("failed to rename temp → %s: %w", w.path, err)
	}
	slog.Debug("change data partition committed", slog.String("path", w.path))
	return nil
}

func (w *fileWriter) Abort() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.file.Close()
	return os.Remove(w.tmpPath)
}

// Create opens a temp file for the partition. The partition is listed only
// after Commit.
func (s *Store) Create(_ context.Context, id string, partition int) (changedata.PartitionWriter, error) {
	if err := os.MkdirAll(s.dir(id), 0755); err != nil {
		return nil, fmt.Errorf("failed to create change data directory for %s: %w", id, err)
	}
	path := s.path(id, partition)
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file for partition %d of %s: %w", partition, id, err)
	}
	return &fileWriter{file: f, gz: gzip.NewWriter(f), tmpPath: tmpPath, path: path}, nil
}

type fileReader struct {
	file *os.File
	gz   *gzip.Reader
}

func (r *fileReader) Read(p []byte) (int, error) { return r.gz.Read(p) }

func (r *fileReader) Close() error {
	gzErr := r.gz.Close()
	if err := r.file.Close(); err != nil {
		return err
	}
	return gzErr
}

func (s *Store) Open(_ context.Context, id string, partition int) (io.ReadCloser, error) {
	f, err := os.Open(s.path(id, partition))
	if err != nil {
		return nil, fmt.Errorf("failed to open partition %d of %s: %w", partition, id, err)
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("corrupt partition %d of %s: %w", partition, id, err)
	}
	return &fileReader{file: f, gz: gz}, nil
}

// Partitions lists committed partitions, ignoring leftover temp files
func (s *Store) Partitions(_ context.Context, id string) ([]int, error) {
	entries, err := os.ReadDir(s.dir(id))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list change data %s: %w", id, err)
	}
	var out []int
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if idx, ok := changedata.ParsePartitionName(e.Name()); ok {
			out = append(out, idx)
		}
	}
	sort.Ints(out)
	return out, nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	if err := os.RemoveAll(s.dir(id)); err != nil {
		return fmt.Errorf("failed to delete change data %s: %w", id, err)
	}
	slog.Info("change data deleted", slog.String("id", id))
	return nil
}
