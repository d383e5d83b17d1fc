package data

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Recon carries the reconciliation state of a single cell
type Recon struct {
	ID        int64   `json:"id"`
	Service   string  `json:"service,omitempty"`
	Judgment  string  `json:"judgment,omitempty"`
	MatchID   string  `json:"matchId,omitempty"`
	MatchName string  `json:"matchName,omitempty"`
	Score     float64 `json:"score,omitempty"`
}

// Cell is one value of a row. A nil Value is a computed absent value, which
// is different from the pending sentinel returned by PendingCell.
type Cell struct {
	Value   interface{}
	Recon   *Recon
	pending bool
}

// PendingCell marks a value that has not been computed yet
var PendingCell = Cell{pending: true}

// NewCell creates a cell without reconciliation data
func NewCell(value interface{}) Cell {
	return Cell{Value: value}
}

// IsPending reports whether the cell is the "not yet computed" sentinel
func (c Cell) IsPending() bool {
	return c.pending
}

// IsBlank reports whether the cell holds no usable value (nil or empty string).
// Pending cells are blank.
func (c Cell) IsBlank() bool {
	if c.pending || c.Value == nil {
		return true
	}
	if s, ok := c.Value.(string); ok {
		return s == ""
	}
	return false
}

// WithRecon returns a copy of the cell with the given reconciliation data
func (c Cell) WithRecon(recon *Recon) Cell {
	c.Recon = recon
	return c
}

// String renders the cell value for display and text matching
func (c Cell) String() string {
	if c.pending || c.Value == nil {
		return ""
	}
	if s, ok := c.Value.(string); ok {
		return s
	}
	return fmt.Sprint(c.Value)
}

type cellJSON struct {
	Value   json.RawMessage `json:"v,omitempty"`
	Recon   *Recon          `json:"r,omitempty"`
	Pending bool            `json:"p,omitempty"`
}

// MarshalJSON implements json.Marshaler
func (c Cell) MarshalJSON() ([]byte, error) {
	out := cellJSON{Recon: c.Recon, Pending: c.pending}
	if c.Value != nil {
		raw, err := json.Marshal(c.Value)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal cell value: %w", err)
		}
		out.Value = raw
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
// Integral numbers come back as int64, other numbers as float64.
func (c *Cell) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*c = Cell{}
		return nil
	}
	var in cellJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	value, err := decodeValue(in.Value)
	if err != nil {
		return err
	}
	*c = Cell{Value: value, Recon: in.Recon, pending: in.Pending}
	return nil
}

func decodeValue(raw json.RawMessage) (interface{}, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("failed to decode cell value: %w", err)
	}
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		f, err := n.Float64()
		if err != nil {
			return nil, err
		}
		return f, nil
	}
	return v, nil
}
