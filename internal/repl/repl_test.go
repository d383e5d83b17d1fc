package repl

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"github.com/leengari/gridops/internal/runner/local"
	"github.com/leengari/gridops/internal/session"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
	"gotest.tools/v3/fs"
)

func run(t *testing.T, dir *fs.Dir, script string) string {
	t.Helper()
	r, err := local.New(1, 1)
	assert.NilError(t, err)
	defer r.Close()
	reg := session.NewRegistry(dir.Join("grids"), r, session.Options{})
	defer reg.Close()

	var out bytes.Buffer
	Run(context.Background(), reg, strings.NewReader(script), &out)
	return out.String()
}

func TestRun_ImportApplyUndo(t *testing.T) {
	dir := fs.NewDir(t, "repl", fs.WithFile("people.csv", "name,city\nada,london\ngrace,\n"))
	script := strings.Join([]string{
		"import people " + dir.Join("people.csv"),
		`operation "column-addition" {`,
		`  base_column = "name"`,
		`  new_column  = "shout"`,
		`  expression  = upper(value)`,
		`}`,
		"show",
		"undo",
		"show 1",
		"exit",
	}, "\n")
	out := run(t, dir, script)

	assert.Assert(t, is.Contains(out, "Imported 2 rows into 'people'"))
	assert.Assert(t, is.Contains(out, "column-addition"))
	assert.Assert(t, is.Contains(out, "ADA"))
	assert.Assert(t, is.Contains(out, "NULL"))
	assert.Assert(t, is.Contains(out, "Undone: Create column shout"))
	assert.Assert(t, is.Contains(out, "(1 of 2 rows)"))
}

func TestRun_Errors(t *testing.T) {
	dir := fs.NewDir(t, "repl")
	out := run(t, dir, "show\nuse nobody\nfrobnicate\noperation \"row-star\" {}\n\\q\n")

	assert.Assert(t, is.Contains(out, "no session selected"))
	assert.Assert(t, is.Contains(out, "session 'nobody' does not exist"))
	assert.Assert(t, is.Contains(out, `unknown command "frobnicate"`))
}

func TestRun_SaveAndList(t *testing.T) {
	dir := fs.NewDir(t, "repl", fs.WithFile("c.csv", "k\nx\n"))
	out := run(t, dir, "import cities "+dir.Join("c.csv")+"\nsave\nexport "+dir.Join("out.csv")+"\nls\n")

	assert.Assert(t, is.Contains(out, "Saved 'cities'"))
	assert.Assert(t, is.Contains(out, "  - cities"))
	content, err := os.ReadFile(dir.Join("out.csv"))
	assert.NilError(t, err)
	assert.Equal(t, string(content), "k\nx\n")
}
