package integration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/leengari/gridops/internal/changedata"
	"github.com/leengari/gridops/internal/changedata/filestore"
	"github.com/leengari/gridops/internal/runner/local"
	"github.com/leengari/gridops/internal/session"
)

const peopleCSV = `id,name,country,score
1,ada,uk,10
,countess,,
2,grace,us,7
3,blaise,fr,
`

// setupWorkspace writes the people fixture and returns its directory
func setupWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "people.csv"), []byte(peopleCSV), 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}
	return dir
}

func setupRunner(t *testing.T) *local.Runner {
	t.Helper()
	r, err := local.New(2, 2)
	if err != nil {
		t.Fatalf("Failed to create runner: %v", err)
	}
	t.Cleanup(r.Close)
	return r
}

func setupStore(t *testing.T, dir string) changedata.Store {
	t.Helper()
	store, err := filestore.New(filepath.Join(dir, "changes"))
	if err != nil {
		t.Fatalf("Failed to create change store: %v", err)
	}
	return store
}

func setupRegistry(t *testing.T, dir string, opts session.Options) *session.Registry {
	t.Helper()
	reg := session.NewRegistry(filepath.Join(dir, "grids"), setupRunner(t), opts)
	t.Cleanup(reg.Close)
	return reg
}

func cellText(t *testing.T, s *session.Session, row, col int) string {
	t.Helper()
	rows := s.Grid().Rows()
	if row >= len(rows) {
		t.Fatalf("Row %d out of range (%d rows)", row, len(rows))
	}
	return rows[row].Row.Cell(col).String()
}
