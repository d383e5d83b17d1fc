package storage

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/leengari/gridops/internal/changedata"
	"github.com/leengari/gridops/internal/changedata/filestore"
	"github.com/leengari/gridops/internal/config"
	"github.com/leengari/gridops/internal/runner/local"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
	"gotest.tools/v3/fs"
)

func TestReadCSV_Records(t *testing.T) {
	src := "id,name,alias\n1,ada,countess\n,,lovelace\n2,grace\n"
	cm, rows, err := ReadCSV(strings.NewReader(src), "id")
	assert.NilError(t, err)

	assert.DeepEqual(t, cm.ColumnNames(), []string{"id", "name", "alias"})
	assert.Equal(t, cm.KeyColumnIndex(), 0)
	assert.Assert(t, cm.HasRecords())
	assert.Assert(t, is.Len(rows, 3))
	assert.Assert(t, rows[1].Cell(0).IsBlank())
	assert.Equal(t, rows[1].CellValue(2), "lovelace")
	// short lines are padded with blank cells
	assert.Equal(t, rows[2].Width(), 3)
	assert.Assert(t, rows[2].Cell(2).IsBlank())
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name, src, key string
	}{
		{"empty input", "", ""},
		{"unknown key column", "a,b\n1,2\n", "c"},
		{"duplicate header", "a,a\n1,2\n", ""},
		{"wide line", "a,b\n1,2,3\n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ReadCSV(strings.NewReader(tt.src), tt.key)
			assert.Assert(t, err != nil)
		})
	}
}

func TestLoadCSV_RecordPartitions(t *testing.T) {
	dir := fs.NewDir(t, "csv", fs.WithFile("in.csv", "k,v\nx,1\n,2\n,3\ny,4\n"))
	r, err := local.New(1, 2)
	assert.NilError(t, err)
	defer r.Close()

	g, err := LoadCSV(dir.Join("in.csv"), "k", r, slog.Default())
	assert.NilError(t, err)
	assert.Equal(t, g.RowCount(), int64(4))
	recs := g.Records()
	assert.Assert(t, is.Len(recs, 2))
	assert.Equal(t, recs[0].Size(), 3)

	_, err = LoadCSV(dir.Join("missing.csv"), "", r, slog.Default())
	assert.ErrorContains(t, err, "missing.csv")
}

func TestOpenChangeStore(t *testing.T) {
	ctx := context.Background()

	mem, err := OpenChangeStore(ctx, config.StoreConfig{Backend: config.BackendMemory}, "p")
	assert.NilError(t, err)
	_, ok := mem.(*changedata.MemoryStore)
	assert.Assert(t, ok)

	dir := fs.NewDir(t, "changes")
	file, err := OpenChangeStore(ctx, config.StoreConfig{Backend: config.BackendFile, Dir: dir.Path()}, "p")
	assert.NilError(t, err)
	_, ok = file.(*filestore.Store)
	assert.Assert(t, ok)

	_, err = OpenChangeStore(ctx, config.StoreConfig{Backend: "tape"}, "p")
	assert.ErrorContains(t, err, "unknown store backend")
}
