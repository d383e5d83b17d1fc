package changedata

import (
	"encoding/json"
	"fmt"

	"github.com/leengari/gridops/internal/domain/data"
)

// Serializer turns change data values into JSON documents and back
type Serializer[T any] interface {
	Serialize(v T) ([]byte, error)
	Deserialize(b []byte) (T, error)
}

// RowSerializer encodes single rows
type RowSerializer struct{}

func (RowSerializer) Serialize(row data.Row) ([]byte, error) {
	return json.Marshal(row)
}

func (RowSerializer) Deserialize(b []byte) (data.Row, error) {
	var row data.Row
	if err := json.Unmarshal(b, &row); err != nil {
		return data.Row{}, fmt.Errorf("failed to decode row: %w", err)
	}
	return row, nil
}

// RowListSerializer encodes the rows produced for a record
type RowListSerializer struct{}

func (RowListSerializer) Serialize(rows []data.Row) ([]byte, error) {
	if rows == nil {
		rows = []data.Row{}
	}
	return json.Marshal(rows)
}

func (RowListSerializer) Deserialize(b []byte) ([]data.Row, error) {
	var rows []data.Row
	if err := json.Unmarshal(b, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode row list: %w", err)
	}
	return rows, nil
}
