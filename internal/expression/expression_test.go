package expression

import (
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		bindings Bindings
		expected interface{}
	}{
		{"upper value", "upper(value)", Bindings{Value: "abc"}, "ABC"},
		{"template over cells", `"${cells.first} ${cells["last name"]}"`,
			Bindings{Cells: map[string]interface{}{"first": "Ada", "last name": "Lovelace"}}, "Ada Lovelace"},
		{"integer arithmetic", "value * 2", Bindings{Value: int64(21)}, int64(42)},
		{"float arithmetic", "value / 4", Bindings{Value: int64(1)}, 0.25},
		{"row index", "row.index + 1", Bindings{RowIndex: 9}, int64(10)},
		{"conditional on flag", `row.flagged ? "x" : ""`, Bindings{Flagged: true}, "x"},
		{"null literal", "null", Bindings{}, nil},
		{"split renders joined", `split("-", value)`, Bindings{Value: "a-b"}, "a,b"},
		{"regex", `regex_replace(value, "[0-9]+", "#")`, Bindings{Value: "a12b3"}, "a#b#"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, err := Parse(tt.source)
			assert.NilError(t, err)
			got, err := expr.Evaluate(tt.bindings)
			assert.NilError(t, err)
			assert.DeepEqual(t, got, tt.expected)
		})
	}
}

func TestEvaluate_ErrorIsReturned(t *testing.T) {
	expr, err := Parse("upper(value)")
	assert.NilError(t, err)
	_, err = expr.Evaluate(Bindings{Value: nil})
	assert.ErrorContains(t, err, "failed to evaluate")

	expr, err = Parse("cells.missing")
	assert.NilError(t, err)
	_, err = expr.Evaluate(Bindings{Cells: map[string]interface{}{"other": "x"}})
	assert.Assert(t, err != nil)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse("upper(")
	assert.ErrorContains(t, err, "failed to parse")

	_, err = Parse("foo.bar")
	assert.ErrorContains(t, err, `unknown variable "foo"`)
}

func TestColumnDependencies(t *testing.T) {
	expr, err := Parse(`"${value}${cells.B}${cells["C D"]}${row.index}"`)
	assert.NilError(t, err)
	deps, ok := expr.ColumnDependencies("A")
	assert.Assert(t, ok)
	assert.DeepEqual(t, deps, []string{"A", "B", "C D"})

	expr, err = Parse("cells[value]")
	assert.NilError(t, err)
	_, ok = expr.ColumnDependencies("A")
	assert.Assert(t, !ok)

	expr, err = Parse("length(cells)")
	assert.NilError(t, err)
	_, ok = expr.ColumnDependencies("A")
	assert.Assert(t, !ok)

	expr, err = Parse(`"constant"`)
	assert.NilError(t, err)
	deps, ok = expr.ColumnDependencies("A")
	assert.Assert(t, ok)
	assert.Check(t, is.Len(deps, 0))
}
