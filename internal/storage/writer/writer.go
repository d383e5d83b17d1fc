package writer

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leengari/gridops/internal/grid"
	"github.com/leengari/gridops/internal/storage"
)

// writeAtomic writes data to a temp file next to path and renames it into
// place
func writeAtomic(path string, write func(w io.Writer) error) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file for %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp → %s: %w", path, err)
	}
	return nil
}

// SaveGrid persists a grid as a snapshot directory holding meta.json and
// data.json, each replaced atomically. Column metadata, record grouping
// and row flags survive the round trip.
func SaveGrid(path, name string, g grid.Grid, lastHistoryEntryID int64) error {
	if path == "" {
		return fmt.Errorf("cannot save grid: missing path")
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory %s: %w", path, err)
	}

	cm := g.ColumnModel()
	meta := storage.GridMeta{
		Name:               name,
		Version:            storage.SnapshotVersion,
		Columns:            cm.Columns(),
		KeyColumnIndex:     cm.KeyColumnIndex(),
		HasRecords:         cm.HasRecords(),
		RowCount:           g.RowCount(),
		LastHistoryEntryID: lastHistoryEntryID,
	}
	metaBytes, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal grid meta for %s: %w", name, err)
	}

	// data.json goes first: a snapshot is only read through its meta
	err = writeAtomic(filepath.Join(path, "data.json"), func(w io.Writer) error {
		enc := json.NewEncoder(w)
		if _, err := io.WriteString(w, "[\n"); err != nil {
			return err
		}
		for i, r := range g.Rows() {
			if i > 0 {
				if _, err := io.WriteString(w, ","); err != nil {
					return err
				}
			}
			if err := enc.Encode(r.Row); err != nil {
				return fmt.Errorf("failed to marshal row %d: %w", r.Index, err)
			}
		}
		_, err := io.WriteString(w, "]\n")
		return err
	})
	if err != nil {
		return err
	}
	if err := writeAtomic(filepath.Join(path, "meta.json"), func(w io.Writer) error {
		_, err := w.Write(metaBytes)
		return err
	}); err != nil {
		return err
	}

	slog.Info("grid saved",
		slog.String("grid", name),
		slog.String("path", path),
		slog.Int64("row_count", meta.RowCount),
		slog.Int64("last_history_entry_id", lastHistoryEntryID),
	)
	return nil
}

// WriteCSV writes the column names and every row of g. Pending and blank
// cells are written as empty fields.
func WriteCSV(w io.Writer, g grid.Grid) error {
	cw := csv.NewWriter(w)
	cm := g.ColumnModel()
	if err := cw.Write(cm.ColumnNames()); err != nil {
		return err
	}
	record := make([]string, cm.Width())
	for _, r := range g.Rows() {
		for i := range record {
			record[i] = r.Row.Cell(i).String()
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r.Index, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSV writes g to a CSV file, replacing it atomically
func SaveCSV(path string, g grid.Grid) error {
	if err := writeAtomic(path, func(w io.Writer) error { return WriteCSV(w, g) }); err != nil {
		return err
	}
	slog.Info("csv saved", slog.String("path", path), slog.Int64("row_count", g.RowCount()))
	return nil
}

// Save writes g as CSV when path ends in .csv, or as a snapshot directory
func Save(path, name string, g grid.Grid, lastHistoryEntryID int64) error {
	if filepath.Ext(path) == ".csv" {
		return SaveCSV(path, g)
	}
	return SaveGrid(path, name, g, lastHistoryEntryID)
}
