package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leengari/gridops/internal/domain/data"
	"github.com/leengari/gridops/internal/runner/local"
)

// IsSnapshot reports whether path is a grid snapshot directory
func IsSnapshot(path string) bool {
	info, err := os.Stat(filepath.Join(path, "meta.json"))
	return err == nil && !info.IsDir()
}

// LoadGrid loads a snapshot written by writer.SaveGrid
func LoadGrid(path string, r *local.Runner, logger *slog.Logger) (*local.Grid, *GridMeta, error) {
	metaPath := filepath.Join(path, "meta.json")
	dataPath := filepath.Join(path, "data.json")

	metaBytes, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read grid meta: %w", err)
	}

	var meta GridMeta
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return nil, nil, fmt.Errorf("failed to parse grid meta: %w", err)
	}
	if meta.Version != SnapshotVersion {
		return nil, nil, fmt.Errorf("unsupported snapshot version %d", meta.Version)
	}
	cm, err := meta.ColumnModel()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid column model in %s: %w", metaPath, err)
	}

	rows := []data.Row{}
	if _, err := os.Stat(dataPath); err == nil {
		dataBytes, err := os.ReadFile(dataPath)
		if err != nil {
			return nil, nil, err
		}
		if err := json.Unmarshal(dataBytes, &rows); err != nil {
			return nil, nil, fmt.Errorf("failed to parse grid rows: %w", err)
		}
	}
	if int64(len(rows)) != meta.RowCount {
		return nil, nil, fmt.Errorf("snapshot %s holds %d rows, meta says %d", path, len(rows), meta.RowCount)
	}
	for i, row := range rows {
		if row.Width() > cm.Width() {
			return nil, nil, fmt.Errorf("row %d has %d cells, grid has %d columns", i, row.Width(), cm.Width())
		}
	}

	logger.Info("grid loaded",
		slog.String("grid", meta.Name),
		slog.String("path", path),
		slog.Int("rows", len(rows)),
		slog.Int("columns", cm.Width()),
	)
	return r.NewGrid(cm, rows), &meta, nil
}
