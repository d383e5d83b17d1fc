package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leengari/gridops/internal/ops"
	"github.com/leengari/gridops/internal/session"
	"github.com/leengari/gridops/internal/storage/writer"
)

const pipelineOps = `
operation "column-addition" {
  base_column = "name"
  new_column  = "label"
  expression  = "${upper(value)} (${cells.country})"
  persist     = true
}

operation "text-transform" {
  column     = "score"
  expression = parseint(value, 10) * 10
  on_error   = "keep-original"
}

operation "row-star" {
  engine {
    mode = "record-based"
    facet "list" {
      column = "country"
      values = ["fr"]
    }
  }
}

operation "column-removal" {
  columns = ["country"]
}
`

func TestPipeline_CSVToSnapshotAndBack(t *testing.T) {
	ctx := context.Background()
	dir := setupWorkspace(t)
	store := setupStore(t, dir)
	reg := setupRegistry(t, dir, session.Options{Store: store, ProjectID: "it"})

	s, err := reg.Import("people", filepath.Join(dir, "people.csv"), "id")
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	parsed, err := ops.DecodeBytes([]byte(pipelineOps), "pipeline.hcl")
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	steps, err := s.ApplyAll(ctx, parsed)
	if err != nil {
		t.Fatalf("ApplyAll failed: %v", err)
	}
	if len(steps) != 4 {
		t.Fatalf("Expected 4 steps, got %d", len(steps))
	}

	cols := strings.Join(s.Grid().ColumnModel().ColumnNames(), ",")
	if cols != "id,name,label,score" {
		t.Errorf("Unexpected columns: %s", cols)
	}
	if got := cellText(t, s, 0, 2); got != "ADA (uk)" {
		t.Errorf("Expected label 'ADA (uk)', got %q", got)
	}
	if got := cellText(t, s, 0, 3); got != "100" {
		t.Errorf("Expected score '100', got %q", got)
	}
	// blank scores fail to parse and keep their original value
	if !s.Grid().Rows()[1].Row.Cell(3).IsBlank() {
		t.Errorf("Expected blank score in row 1")
	}

	rows := s.Grid().Rows()
	for i, r := range rows {
		if want := i == 3; r.Row.Starred != want {
			t.Errorf("Row %d: starred=%v, want %v", i, r.Row.Starred, want)
		}
	}

	// the persisted addition left its change data in the store
	id := fmt.Sprintf("%d/eval", steps[0].HistoryEntryID)
	parts, err := store.Partitions(ctx, id)
	if err != nil {
		t.Fatalf("Partitions failed: %v", err)
	}
	if len(parts) == 0 {
		t.Errorf("Expected persisted partitions for %s", id)
	}

	if err := reg.Save("people"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	reg.Close()

	// a new registry picks up grid and history
	other := setupRegistry(t, dir, session.Options{Store: store, ProjectID: "it"})
	loaded, err := other.Get("people")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got := len(loaded.History()); got != 4 {
		t.Errorf("Expected 4 restored steps, got %d", got)
	}
	if !loaded.Grid().ColumnModel().HasRecords() {
		t.Errorf("Expected records to survive the snapshot")
	}
	if !loaded.Grid().Rows()[3].Row.Starred {
		t.Errorf("Expected row 3 to stay starred")
	}

	out := filepath.Join(dir, "out.csv")
	if err := writer.Save(out, "people", loaded.Grid(), loaded.LastHistoryEntryID()); err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	content, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("Failed to read export: %v", err)
	}
	want := "id,name,label,score\n1,ada,ADA (uk),100\n,countess,,\n2,grace,GRACE (us),70\n3,blaise,BLAISE (fr),\n"
	if string(content) != want {
		t.Errorf("Unexpected export:\n%s\nwant:\n%s", content, want)
	}
}

func TestPipeline_FailedStepKeepsEarlierSteps(t *testing.T) {
	ctx := context.Background()
	dir := setupWorkspace(t)
	reg := setupRegistry(t, dir, session.Options{})

	s, err := reg.Import("people", filepath.Join(dir, "people.csv"), "")
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	parsed, err := ops.DecodeBytes([]byte(`
operation "column-rename" {
  old_name = "score"
  new_name = "points"
}
operation "column-removal" {
  columns = ["score"]
}
`), "broken.hcl")
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	steps, err := s.ApplyAll(ctx, parsed)
	if err == nil {
		t.Fatalf("Expected the removal of a renamed column to fail")
	}
	if !strings.HasPrefix(err.Error(), "step 2:") {
		t.Errorf("Expected error to name step 2, got %v", err)
	}
	if len(steps) != 1 || len(s.History()) != 1 {
		t.Errorf("Expected the rename to stay applied, got %d steps", len(steps))
	}
}
