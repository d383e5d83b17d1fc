package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/leengari/gridops/internal/domain/data"
	"github.com/leengari/gridops/internal/domain/schema"
	"github.com/leengari/gridops/internal/runner/local"
)

// ReadCSV reads a header line followed by data rows. Empty fields become
// blank cells. When keyColumn is set, rows are grouped into records on it.
func ReadCSV(r io.Reader, keyColumn string) (schema.ColumnModel, []data.Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return schema.ColumnModel{}, nil, fmt.Errorf("csv input has no header")
	}
	if err != nil {
		return schema.ColumnModel{}, nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	columns := make([]schema.ColumnMetadata, len(header))
	for i, name := range header {
		columns[i] = schema.NewColumnMetadata(name)
	}
	key, hasRecords := 0, false
	if keyColumn != "" {
		hasRecords = true
		key = -1
		for i, name := range header {
			if name == keyColumn {
				key = i
			}
		}
		if key < 0 {
			return schema.ColumnModel{}, nil, fmt.Errorf("key column %q is not in the csv header", keyColumn)
		}
	}
	cm, err := schema.NewColumnModel(columns, key, hasRecords)
	if err != nil {
		return schema.ColumnModel{}, nil, err
	}

	var rows []data.Row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return schema.ColumnModel{}, nil, fmt.Errorf("failed to read csv line %d: %w", len(rows)+2, err)
		}
		if len(record) > len(header) {
			return schema.ColumnModel{}, nil, fmt.Errorf("csv line %d has %d fields, header has %d", len(rows)+2, len(record), len(header))
		}
		cells := make([]data.Cell, len(header))
		for i, field := range record {
			if field != "" {
				cells[i] = data.NewCell(field)
			}
		}
		rows = append(rows, data.NewRow(cells...))
	}
	return cm, rows, nil
}

// LoadCSV reads a CSV file into a grid
func LoadCSV(path, keyColumn string, r *local.Runner, logger *slog.Logger) (*local.Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	cm, rows, err := ReadCSV(f, keyColumn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logger.Info("csv loaded",
		slog.String("path", path),
		slog.Int("rows", len(rows)),
		slog.Any("columns", cm.ColumnNames()),
		slog.String("key_column", keyColumn),
	)
	return r.NewGrid(cm, rows), nil
}
