package columns_test

import (
	stderrors "errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gotest.tools/v3/assert"

	"github.com/leengari/gridops/internal/columns"
	"github.com/leengari/gridops/internal/domain/data"
	"github.com/leengari/gridops/internal/domain/errors"
	"github.com/leengari/gridops/internal/domain/schema"
)

var sourceComparer = cmp.Comparer(func(a, b columns.Source) bool { return a == b })

func abc() schema.ColumnModel {
	return schema.ColumnModelOf("A", "B", "C")
}

func TestBuildLayout_InsertAfterColumn(t *testing.T) {
	layout, err := columns.BuildLayout(abc(), nil, []columns.Insertion{
		{Name: "D", InsertAfter: "B"},
	}, 12, false)
	assert.NilError(t, err)

	assert.DeepEqual(t, layout.ColumnModel.ColumnNames(), []string{"A", "B", "D", "C"})
	want := columns.IndexMap{columns.Original(0), columns.Original(1), columns.FromMapper(0), columns.Original(2)}
	assert.DeepEqual(t, layout.Positive, want, sourceComparer)
	assert.DeepEqual(t, layout.Negative, want, sourceComparer)
	assert.Equal(t, layout.ColumnModel.Column(2).LastModified, int64(12))
	assert.Equal(t, layout.MapperWidth, 1)
	assert.Assert(t, layout.PreservesRecordStructure())
}

func TestBuildLayout_NoAnchorPrepends(t *testing.T) {
	layout, err := columns.BuildLayout(abc(), nil, []columns.Insertion{{Name: "Z"}}, 1, false)
	assert.NilError(t, err)

	assert.DeepEqual(t, layout.ColumnModel.ColumnNames(), []string{"Z", "A", "B", "C"})
	// the key column moved away from position 0
	assert.Assert(t, !layout.PreservesRecordStructure())
}

func TestBuildLayout_MapperSlotsFollowDeclarationOrder(t *testing.T) {
	layout, err := columns.BuildLayout(abc(), nil, []columns.Insertion{
		{Name: "X", InsertAfter: "C"},
		{Name: "Copy", InsertAfter: "A", CopiedFrom: "C"},
		{Name: "Y", InsertAfter: "A"},
	}, 1, false)
	assert.NilError(t, err)

	assert.DeepEqual(t, layout.ColumnModel.ColumnNames(), []string{"A", "Y", "Copy", "B", "C", "X"})
	assert.DeepEqual(t, layout.Positive, columns.IndexMap{
		columns.Original(0), columns.FromMapper(1), columns.Original(2),
		columns.Original(1), columns.Original(2), columns.FromMapper(0),
	}, sourceComparer)
	assert.Equal(t, layout.MapperWidth, 2)
}

func TestBuildLayout_RowWidthProperty(t *testing.T) {
	cases := []struct {
		name       string
		deletions  []string
		insertions []columns.Insertion
	}{
		{"insert only", nil, []columns.Insertion{{Name: "D"}, {Name: "E", InsertAfter: "C"}}},
		{"delete only", []string{"A", "C"}, nil},
		{"delete and insert", []string{"B"}, []columns.Insertion{{Name: "B2", InsertAfter: "A"}}},
		{"copy", nil, []columns.Insertion{{Name: "A2", InsertAfter: "A", CopiedFrom: "A"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			layout, err := columns.BuildLayout(abc(), tc.deletions, tc.insertions, 1, false)
			assert.NilError(t, err)
			want := abc().Width() - len(tc.deletions) + len(tc.insertions)
			assert.Equal(t, layout.ColumnModel.Width(), want)
			assert.Equal(t, len(layout.Positive), want)
			assert.Equal(t, len(layout.Negative), want)
		})
	}
}

func TestBuildLayout_ReplaceKeepsWidthAndNegativeMap(t *testing.T) {
	layout, err := columns.BuildLayout(abc(), nil, []columns.Insertion{
		{Name: "B", InsertAfter: "B", Replace: true},
	}, 3, false)
	assert.NilError(t, err)

	assert.Equal(t, layout.ColumnModel.Width(), 3)
	assert.DeepEqual(t, layout.Positive, columns.IndexMap{columns.Original(0), columns.FromMapper(0), columns.Original(2)}, sourceComparer)
	assert.DeepEqual(t, layout.Negative, columns.IndexMap{columns.Original(0), columns.Original(1), columns.Original(2)}, sourceComparer)
}

func TestBuildLayout_DeleteMissingColumn(t *testing.T) {
	_, err := columns.BuildLayout(abc(), []string{"nope"}, nil, 1, false)

	var missing *errors.MissingColumnError
	assert.Assert(t, stderrors.As(err, &missing))
	assert.Equal(t, missing.Column, "nope")
}

func TestBuildLayout_ReplaceWithoutAnchor(t *testing.T) {
	_, err := columns.BuildLayout(abc(), nil, []columns.Insertion{{Name: "B", Replace: true}}, 1, false)

	var missing *errors.MissingColumnError
	assert.Assert(t, stderrors.As(err, &missing))
}

func TestBuildLayout_MissingAnchor(t *testing.T) {
	_, err := columns.BuildLayout(abc(), nil, []columns.Insertion{{Name: "D", InsertAfter: "Q"}}, 1, false)

	var missing *errors.MissingColumnError
	assert.Assert(t, stderrors.As(err, &missing))
	assert.Equal(t, missing.Column, "Q")
}

func TestBuildLayout_DuplicateNames(t *testing.T) {
	t.Run("two insertions", func(t *testing.T) {
		_, err := columns.BuildLayout(abc(), nil, []columns.Insertion{
			{Name: "D", InsertAfter: "A"},
			{Name: "D", InsertAfter: "C"},
		}, 1, false)
		var dup *errors.DuplicateColumnError
		assert.Assert(t, stderrors.As(err, &dup))
		assert.Equal(t, dup.Column, "D")
	})

	t.Run("replace with a name used elsewhere", func(t *testing.T) {
		_, err := columns.BuildLayout(abc(), nil, []columns.Insertion{
			{Name: "C", InsertAfter: "B", Replace: true},
		}, 1, false)
		var dup *errors.DuplicateColumnError
		assert.Assert(t, stderrors.As(err, &dup))
	})

	t.Run("replace reusing its own name", func(t *testing.T) {
		_, err := columns.BuildLayout(abc(), nil, []columns.Insertion{
			{Name: "B", InsertAfter: "B", Replace: true},
		}, 1, false)
		assert.NilError(t, err)
	})

	t.Run("insert over an existing name", func(t *testing.T) {
		_, err := columns.BuildLayout(abc(), nil, []columns.Insertion{{Name: "A"}}, 1, false)
		var dup *errors.DuplicateColumnError
		assert.Assert(t, stderrors.As(err, &dup))
	})
}

func TestBuildLayout_ReconConfigPrecedence(t *testing.T) {
	old := &schema.ReconConfig{Service: "old"}
	own := &schema.ReconConfig{Service: "own"}
	cm := schema.MustColumnModel([]schema.ColumnMetadata{
		schema.NewColumnMetadata("A"),
		schema.NewColumnMetadata("B").WithReconConfig(old),
	}, 0, false)
	plain := schema.ColumnModelOf("A", "B")

	cases := []struct {
		name string
		cm   schema.ColumnModel
		ins  columns.Insertion
		want *schema.ReconConfig
	}{
		{"inherit replaced", cm, columns.Insertion{Name: "B", InsertAfter: "B", Replace: true}, old},
		{"inherit wins over own", cm, columns.Insertion{Name: "B", InsertAfter: "B", Replace: true, ReconConfig: own}, old},
		{"override", cm, columns.Insertion{Name: "B", InsertAfter: "B", Replace: true, ReconConfig: own, OverrideReconConfig: true}, own},
		{"override clears", cm, columns.Insertion{Name: "B", InsertAfter: "B", Replace: true, OverrideReconConfig: true}, nil},
		{"own when nothing to inherit", plain, columns.Insertion{Name: "B", InsertAfter: "B", Replace: true, ReconConfig: own}, own},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			layout, err := columns.BuildLayout(tc.cm, nil, []columns.Insertion{tc.ins}, 1, false)
			assert.NilError(t, err)
			assert.Assert(t, layout.ColumnModel.Column(1).ReconConfig.Equal(tc.want))
		})
	}
}

func TestBuildLayout_CopyStampsOnlyWithActiveFilter(t *testing.T) {
	ins := []columns.Insertion{{Name: "A copy", InsertAfter: "C", CopiedFrom: "A"}}

	neutral, err := columns.BuildLayout(abc(), nil, ins, 5, true)
	assert.NilError(t, err)
	assert.Equal(t, neutral.ColumnModel.Column(3).LastModified, int64(0))

	filtered, err := columns.BuildLayout(abc(), nil, ins, 5, false)
	assert.NilError(t, err)
	assert.Equal(t, filtered.ColumnModel.Column(3).LastModified, int64(5))
	assert.DeepEqual(t, filtered.Positive[3], columns.Original(0), sourceComparer)
}

func TestBuildLayout_DeletingKeyColumnBreaksRecords(t *testing.T) {
	layout, err := columns.BuildLayout(abc(), []string{"A"}, []columns.Insertion{}, 1, false)
	assert.NilError(t, err)
	assert.DeepEqual(t, layout.ColumnModel.ColumnNames(), []string{"B", "C"})
	assert.Assert(t, !layout.PreservesRecordStructure())
}

func TestIndexMap_Splice(t *testing.T) {
	m := columns.IndexMap{columns.Original(0), columns.FromMapper(0), columns.Original(1)}
	original := data.RowOf("a", "b").WithStarred(true)
	mapped := data.RowOf("new")

	full := m.SpliceRow(original, &mapped)
	assert.DeepEqual(t, full, data.Row{Cells: []data.Cell{data.NewCell("a"), data.NewCell("new"), data.NewCell("b")}, Starred: true}, cmp.AllowUnexported(data.Cell{}))

	pending := m.SpliceRow(original, nil)
	assert.Assert(t, pending.Cell(1).IsPending())

	blank := m.SpliceBlank(original)
	assert.Assert(t, blank.Cell(1).Value == nil && !blank.Cell(1).IsPending())
}
