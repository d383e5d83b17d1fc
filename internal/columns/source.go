package columns

import (
	"fmt"

	"github.com/leengari/gridops/internal/domain/data"
)

type sourceKind uint8

const (
	sourceOriginal sourceKind = iota
	sourceMapper
)

// Source tells where a cell of a new layout is read from: either a column of
// the original row or an output slot of the operation's mapper
type Source struct {
	kind  sourceKind
	index int
}

// Original designates the original column at index i
func Original(i int) Source {
	return Source{kind: sourceOriginal, index: i}
}

// FromMapper designates output slot k of the mapper
func FromMapper(slot int) Source {
	return Source{kind: sourceMapper, index: slot}
}

// IsOriginal reports whether the source is an original column
func (s Source) IsOriginal() bool {
	return s.kind == sourceOriginal
}

// Index returns the original column index or the mapper slot
func (s Source) Index() int {
	return s.index
}

func (s Source) String() string {
	if s.IsOriginal() {
		return fmt.Sprintf("original(%d)", s.index)
	}
	return fmt.Sprintf("mapper(%d)", s.index)
}

// IndexMap lists the source of every column of a new layout, in order
type IndexMap []Source

// identityMap maps every original column to itself
func identityMap(width int) IndexMap {
	m := make(IndexMap, width)
	for i := range m {
		m[i] = Original(i)
	}
	return m
}

// KeepsColumn reports whether position i of the layout still holds
// original column i
func (m IndexMap) KeepsColumn(i int) bool {
	return i >= 0 && i < len(m) && m[i] == Original(i)
}

// Splice builds a full-width row from the original row and the cells produced
// for mapper slots. Flags are taken from the original row.
func (m IndexMap) Splice(original data.Row, fromMapper func(slot int) data.Cell) data.Row {
	cells := make([]data.Cell, len(m))
	for i, src := range m {
		if src.IsOriginal() {
			cells[i] = original.Cell(src.index)
		} else {
			cells[i] = fromMapper(src.index)
		}
	}
	return original.WithCells(cells)
}

// SpliceRow splices with the cells of a mapped row; a nil mapped row yields
// pending cells for every mapper slot
func (m IndexMap) SpliceRow(original data.Row, mapped *data.Row) data.Row {
	return m.Splice(original, func(slot int) data.Cell {
		if mapped == nil {
			return data.PendingCell
		}
		return mapped.Cell(slot)
	})
}

// SpliceBlank splices with empty placeholder cells for every mapper slot
func (m IndexMap) SpliceBlank(original data.Row) data.Row {
	return m.Splice(original, func(int) data.Cell { return data.Cell{} })
}
