package columns

import (
	"github.com/leengari/gridops/internal/domain/errors"
	"github.com/leengari/gridops/internal/domain/schema"
)

// Insertion describes a column written by an operation: either a new column
// filled from the operation's mapper, or a renamed copy of an existing column
type Insertion struct {
	// Name of the column in the new layout
	Name string `json:"name"`
	// InsertAfter names the anchor column; empty means insert at position 0
	InsertAfter string `json:"insertAfter,omitempty"`
	// Replace overwrites the anchor column instead of inserting after it
	Replace bool `json:"replace,omitempty"`
	// CopiedFrom names an existing column to copy instead of using the mapper
	CopiedFrom          string              `json:"copiedFrom,omitempty"`
	ReconConfig         *schema.ReconConfig `json:"reconConfig,omitempty"`
	OverrideReconConfig bool                `json:"overrideReconConfig,omitempty"`
}

// IsCopy reports whether the insertion copies an existing column
func (ins Insertion) IsCopy() bool {
	return ins.CopiedFrom != ""
}

// Layout is the result of applying deletions and insertions to a column model
type Layout struct {
	ColumnModel schema.ColumnModel
	// Positive lists column sources for rows selected by the view filter
	Positive IndexMap
	// Negative lists column sources for the other rows
	Negative IndexMap
	// MapperWidth is the number of mapper slots the layout reads
	MapperWidth int
}

type layoutBuilder struct {
	names    []string
	metadata []schema.ColumnMetadata
	positive IndexMap
	negative IndexMap
}

func (b *layoutBuilder) indexOf(name string) int {
	for i, n := range b.names {
		if n == name {
			return i
		}
	}
	return -1
}

func (b *layoutBuilder) remove(i int) {
	b.names = append(b.names[:i], b.names[i+1:]...)
	b.metadata = append(b.metadata[:i], b.metadata[i+1:]...)
	b.positive = append(b.positive[:i], b.positive[i+1:]...)
	b.negative = append(b.negative[:i], b.negative[i+1:]...)
}

func (b *layoutBuilder) insert(i int, meta schema.ColumnMetadata, src Source) {
	b.names = insertAt(b.names, i, meta.Name)
	b.metadata = insertAt(b.metadata, i, meta)
	b.positive = insertAt(b.positive, i, src)
	b.negative = insertAt(b.negative, i, src)
}

func insertAt[T any](s []T, i int, v T) []T {
	var zero T
	s = append(s, zero)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

// BuildLayout computes the column model produced by deleting and inserting
// columns, together with the positive and negative index maps.
//
// Deletions are applied first, in order. Insertions are then processed in
// declaration order; mapper slots are numbered in the order new (non-copy)
// insertions are declared. A copied column is only stamped with
// historyEntryID when the view filter is not neutral.
func BuildLayout(cm schema.ColumnModel, deletions []string, insertions []Insertion, historyEntryID int64, neutralEngine bool) (*Layout, error) {
	b := &layoutBuilder{
		names:    cm.ColumnNames(),
		metadata: cm.Columns(),
		positive: identityMap(cm.Width()),
		negative: identityMap(cm.Width()),
	}

	for _, name := range deletions {
		idx := b.indexOf(name)
		if idx < 0 {
			return nil, &errors.MissingColumnError{Column: name}
		}
		b.remove(idx)
	}

	mapperSlot := 0
	for _, ins := range insertions {
		position := 0
		if ins.InsertAfter != "" {
			anchor := b.indexOf(ins.InsertAfter)
			if anchor < 0 {
				return nil, &errors.MissingColumnError{Column: ins.InsertAfter}
			}
			position = anchor + 1
		}

		var meta schema.ColumnMetadata
		var src Source
		if !ins.IsCopy() {
			src = FromMapper(mapperSlot)
			mapperSlot++
			meta = schema.NewColumnMetadata(ins.Name).WithLastModified(historyEntryID)
		} else {
			original, err := cm.RequiredColumnIndex(ins.CopiedFrom)
			if err != nil {
				return nil, err
			}
			src = Original(original)
			meta = cm.Column(original).WithName(ins.Name)
			if !neutralEngine {
				meta = meta.WithLastModified(historyEntryID)
			}
		}

		if ins.Replace {
			replacing := position - 1
			if replacing < 0 {
				return nil, &errors.MissingColumnError{Column: ins.InsertAfter}
			}
			if existing := b.indexOf(ins.Name); existing >= 0 && existing != replacing {
				return nil, &errors.DuplicateColumnError{Column: ins.Name}
			}
			replaced := b.metadata[replacing]
			if meta.ReconConfig == nil && replaced.ReconConfig != nil {
				meta = meta.WithReconConfig(replaced.ReconConfig)
			}
			if (meta.ReconConfig == nil && ins.ReconConfig != nil) || ins.OverrideReconConfig {
				meta = meta.WithReconConfig(ins.ReconConfig)
			}
			// excluded rows keep their original cell for this column
			b.positive[replacing] = src
			b.names[replacing] = ins.Name
			b.metadata[replacing] = meta
		} else {
			if b.indexOf(ins.Name) >= 0 {
				return nil, &errors.DuplicateColumnError{Column: ins.Name}
			}
			b.insert(position, meta, src)
		}
	}

	newModel, err := schema.NewColumnModel(b.metadata, keyIndexFor(cm, len(b.metadata)), cm.HasRecords())
	if err != nil {
		return nil, err
	}
	return &Layout{
		ColumnModel: newModel,
		Positive:    b.positive,
		Negative:    b.negative,
		MapperWidth: mapperSlot,
	}, nil
}

// keyIndexFor keeps the key column index of the original model when it is
// still within range
func keyIndexFor(cm schema.ColumnModel, width int) int {
	if cm.KeyColumnIndex() >= width {
		return schema.NoKeyColumn
	}
	return cm.KeyColumnIndex()
}

// KeyColumnIndex returns the key column index shared by the old and new models
func (l *Layout) KeyColumnIndex() int {
	return l.ColumnModel.KeyColumnIndex()
}

// PositivePreservesRecords reports whether rows mapped with the positive
// map keep their record key
func (l *Layout) PositivePreservesRecords() bool {
	return l.preserves(l.Positive)
}

// NegativePreservesRecords reports whether rows mapped with the negative
// map keep their record key
func (l *Layout) NegativePreservesRecords() bool {
	return l.preserves(l.Negative)
}

func (l *Layout) preserves(m IndexMap) bool {
	key := l.KeyColumnIndex()
	if key == schema.NoKeyColumn {
		return true
	}
	return m.KeepsColumn(key)
}

// PreservesRecordStructure reports whether the key column is untouched by
// both index maps
func (l *Layout) PreservesRecordStructure() bool {
	return l.PositivePreservesRecords() && l.NegativePreservesRecords()
}
