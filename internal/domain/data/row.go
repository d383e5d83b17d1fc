package data

// Row represents a single grid row: one cell per column plus the row flags
type Row struct {
	Cells   []Cell `json:"cells"`
	Flagged bool   `json:"flagged,omitempty"`
	Starred bool   `json:"starred,omitempty"`
}

// NewRow creates a new unflagged, unstarred Row with the given cells
func NewRow(cells ...Cell) Row {
	return Row{Cells: cells}
}

// RowOf builds a row from raw values, mostly useful in tests and loaders
func RowOf(values ...interface{}) Row {
	cells := make([]Cell, len(values))
	for i, v := range values {
		cells[i] = NewCell(v)
	}
	return Row{Cells: cells}
}

// Width returns the number of cells in the row
func (r Row) Width() int {
	return len(r.Cells)
}

// Cell returns the cell at index i, or an empty cell when out of range
func (r Row) Cell(i int) Cell {
	if i < 0 || i >= len(r.Cells) {
		return Cell{}
	}
	return r.Cells[i]
}

// CellValue returns the value at index i (nil when absent)
func (r Row) CellValue(i int) interface{} {
	return r.Cell(i).Value
}

// IsCellBlank reports whether the cell at index i is blank
func (r Row) IsCellBlank(i int) bool {
	return r.Cell(i).IsBlank()
}

// WithCells returns a row with the given cells and the same flags
func (r Row) WithCells(cells []Cell) Row {
	return Row{Cells: cells, Flagged: r.Flagged, Starred: r.Starred}
}

// WithCell returns a copy of the row with the cell at index i replaced.
// The row is padded with empty cells when i is beyond its width.
func (r Row) WithCell(i int, cell Cell) Row {
	width := len(r.Cells)
	if i >= width {
		width = i + 1
	}
	cells := make([]Cell, width)
	copy(cells, r.Cells)
	cells[i] = cell
	return r.WithCells(cells)
}

// WithFlagged returns a copy of the row with the flagged bit set
func (r Row) WithFlagged(flagged bool) Row {
	out := r.Copy()
	out.Flagged = flagged
	return out
}

// WithStarred returns a copy of the row with the starred bit set
func (r Row) WithStarred(starred bool) Row {
	out := r.Copy()
	out.Starred = starred
	return out
}

// Copy creates a copy of the row to prevent mutation
func (r Row) Copy() Row {
	cells := make([]Cell, len(r.Cells))
	copy(cells, r.Cells)
	return Row{Cells: cells, Flagged: r.Flagged, Starred: r.Starred}
}

// IndexedRow is a row together with its position in the grid
type IndexedRow struct {
	Index int64
	Row   Row
}
