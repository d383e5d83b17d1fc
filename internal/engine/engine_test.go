package engine

import (
	stderrors "errors"
	"testing"

	"github.com/leengari/gridops/internal/domain/data"
	"github.com/leengari/gridops/internal/domain/errors"
	"github.com/leengari/gridops/internal/domain/schema"
	"gotest.tools/v3/assert"
)

func ptr(f float64) *float64 { return &f }

func TestNew_NeutralByDefault(t *testing.T) {
	e, err := New(schema.ColumnModelOf("A"), Config{})
	assert.NilError(t, err)
	assert.Equal(t, e.Mode(), RowBased)
	assert.Assert(t, e.IsNeutral())
	assert.Assert(t, e.CombinedRowFilter().FilterRow(0, data.RowOf("x")))

	deps, ok := e.ColumnDependencies()
	assert.Assert(t, ok)
	assert.Equal(t, len(deps), 0)
}

func TestNew_UnknownFacetColumn(t *testing.T) {
	_, err := New(schema.ColumnModelOf("A"), Config{Facets: []FacetConfig{{Type: FacetList, Column: "Z"}}})
	var missing *errors.MissingColumnError
	assert.Assert(t, stderrors.As(err, &missing))
}

func TestNew_BadModeAndType(t *testing.T) {
	_, err := New(schema.ColumnModelOf("A"), Config{Mode: "columns"})
	assert.ErrorContains(t, err, "unknown engine mode")

	_, err = New(schema.ColumnModelOf("A"), Config{Facets: []FacetConfig{{Type: "scatter", Column: "A"}}})
	assert.ErrorContains(t, err, "unknown facet type")
}

func TestFacets(t *testing.T) {
	cm := schema.ColumnModelOf("A", "B")
	tests := []struct {
		name  string
		facet FacetConfig
		row   data.Row
		want  bool
	}{
		{"list hit", FacetConfig{Type: FacetList, Column: "A", Values: []string{"x", "y"}}, data.RowOf("x"), true},
		{"list miss", FacetConfig{Type: FacetList, Column: "A", Values: []string{"x"}}, data.RowOf("z"), false},
		{"list number", FacetConfig{Type: FacetList, Column: "A", Values: []string{"3"}}, data.RowOf(int64(3)), true},
		{"list blank", FacetConfig{Type: FacetList, Column: "A", SelectBlank: true}, data.RowOf(""), true},
		{"list inverted", FacetConfig{Type: FacetList, Column: "A", Values: []string{"x"}, Invert: true}, data.RowOf("x"), false},
		{"text insensitive", FacetConfig{Type: FacetText, Column: "B", Query: "LOVE"}, data.RowOf("", "Lovelace"), true},
		{"text sensitive", FacetConfig{Type: FacetText, Column: "B", Query: "LOVE", CaseSensitive: true}, data.RowOf("", "Lovelace"), false},
		{"range inside", FacetConfig{Type: FacetRange, Column: "A", From: ptr(1), To: ptr(5)}, data.RowOf(int64(1)), true},
		{"range upper bound excluded", FacetConfig{Type: FacetRange, Column: "A", From: ptr(1), To: ptr(5)}, data.RowOf(5.0), false},
		{"range numeric string", FacetConfig{Type: FacetRange, Column: "A", From: ptr(1)}, data.RowOf(" 2.5 "), true},
		{"range non numeric", FacetConfig{Type: FacetRange, Column: "A", SelectNonNumeric: true}, data.RowOf("abc"), true},
		{"expression", FacetConfig{Type: FacetExpression, Column: "A", Expression: "strlen(value) > 2", Values: []string{"true"}}, data.RowOf("abc"), true},
		{"expression over other cell", FacetConfig{Type: FacetExpression, Column: "A", Expression: "cells.B", Values: []string{"b"}}, data.RowOf("a", "b"), true},
		{"expression boolean", FacetConfig{Type: FacetExpression, Column: "A", Expression: `value == "a"`}, data.RowOf("a"), true},
		{"expression boolean false", FacetConfig{Type: FacetExpression, Column: "A", Expression: `value == "a"`}, data.RowOf("b"), false},
		{"list over expression", FacetConfig{Type: FacetList, Column: "A", Expression: "lower(value)", Values: []string{"abc"}}, data.RowOf("ABC"), true},
		{"text regex", FacetConfig{Type: FacetText, Column: "A", Query: "^ab+c$", Regex: true}, data.RowOf("ABBC"), true},
		{"text regex sensitive", FacetConfig{Type: FacetText, Column: "A", Query: "^ab+c$", Regex: true, CaseSensitive: true}, data.RowOf("ABBC"), false},
		{"expression error selects blank", FacetConfig{Type: FacetExpression, Column: "A", Expression: "upper(value)", SelectBlank: true}, data.RowOf(nil), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := New(cm, Config{Facets: []FacetConfig{tt.facet}})
			assert.NilError(t, err)
			assert.Assert(t, !e.IsNeutral())
			assert.Equal(t, e.CombinedRowFilter().FilterRow(0, tt.row), tt.want)
		})
	}
}

func TestCombinedRecordFilter_FacetsMayMatchDifferentRows(t *testing.T) {
	cm := schema.ColumnModelOf("A", "B")
	e, err := New(cm, Config{Mode: RecordBased, Facets: []FacetConfig{
		{Type: FacetList, Column: "A", Values: []string{"k"}},
		{Type: FacetList, Column: "B", Values: []string{"v"}},
	}})
	assert.NilError(t, err)

	rec := data.Record{Rows: []data.IndexedRow{
		{Index: 0, Row: data.RowOf("k", "")},
		{Index: 1, Row: data.RowOf("", "v")},
	}}
	assert.Assert(t, e.CombinedRecordFilter().FilterRecord(rec))
	// no single row matches both
	assert.Assert(t, !e.CombinedRowFilter().FilterRow(0, rec.Rows[0].Row))

	other := data.Record{Rows: []data.IndexedRow{{Index: 2, Row: data.RowOf("k", "w")}}}
	assert.Assert(t, !e.CombinedRecordFilter().FilterRecord(other))
}

func TestColumnDependencies(t *testing.T) {
	cm := schema.ColumnModelOf("A", "B", "C")
	e, err := New(cm, Config{Facets: []FacetConfig{
		{Type: FacetList, Column: "B"},
		{Type: FacetExpression, Column: "A", Expression: `"${value}${cells.C}"`},
		{Type: FacetText, Column: "B"},
	}})
	assert.NilError(t, err)
	deps, ok := e.ColumnDependencies()
	assert.Assert(t, ok)
	assert.DeepEqual(t, deps, []string{"B", "A", "C"})

	// the facet column is kept even when the expression only reads other cells
	e, err = New(cm, Config{Facets: []FacetConfig{{Type: FacetExpression, Column: "A", Expression: `cells.C == "c0"`}}})
	assert.NilError(t, err)
	deps, ok = e.ColumnDependencies()
	assert.Assert(t, ok)
	assert.DeepEqual(t, deps, []string{"C", "A"})

	narrowed, err := cm.Select(deps)
	assert.NilError(t, err)
	_, err = New(narrowed, Config{Facets: []FacetConfig{{Type: FacetExpression, Column: "A", Expression: `cells.C == "c0"`}}})
	assert.NilError(t, err)

	e, err = New(cm, Config{Facets: []FacetConfig{{Type: FacetExpression, Column: "A", Expression: "cells[value]"}}})
	assert.NilError(t, err)
	_, ok = e.ColumnDependencies()
	assert.Assert(t, !ok)
}

func TestNew_InvalidFacetDefinitions(t *testing.T) {
	cm := schema.ColumnModelOf("A")
	_, err := New(cm, Config{Facets: []FacetConfig{{Type: FacetText, Column: "A", Query: "(", Regex: true}}})
	assert.ErrorContains(t, err, "invalid text facet pattern")

	_, err = New(cm, Config{Facets: []FacetConfig{{Type: FacetExpression, Column: "A"}}})
	assert.ErrorContains(t, err, "has no expression")

	_, err = New(cm, Config{Facets: []FacetConfig{{Type: FacetExpression, Column: "A", Expression: "cells.Z"}}})
	var missing *errors.MissingColumnError
	assert.Assert(t, stderrors.As(err, &missing))
	assert.Equal(t, missing.Column, "Z")
}
