package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/leengari/gridops/internal/grid"
	"github.com/leengari/gridops/internal/ops"
	"github.com/leengari/gridops/internal/session"
	"github.com/leengari/gridops/internal/storage/writer"
	"github.com/peterh/liner"
)

const defaultShowRows = 20

const help = `Commands:
  ls                          list sessions
  import <name> <csv> [key]   create a session from a CSV file
  use <name>                  select a session
  apply <file.hcl>            apply an operations file
  operation "<kind>" { ... }  apply an inline operation block
  show [n]                    print the first n rows
  history                     list applied operations
  undo                        revert the last operation
  save                        save the session snapshot
  export <path>               write the grid as CSV or snapshot
  exit, \q                    quit`

// Start runs the shell on the terminal with line editing and history. It
// falls back to Run when stdin is not a terminal.
func Start(ctx context.Context, registry *session.Registry, historyPath string) {
	if !liner.TerminalSupported() {
		Run(ctx, registry, os.Stdin, os.Stdout)
		return
	}
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	if historyPath != "" {
		if f, err := os.Open(historyPath); err == nil {
			_, _ = line.ReadHistory(f)
			f.Close()
		}
		defer func() {
			f, err := os.Create(historyPath)
			if err != nil {
				return
			}
			defer f.Close()
			_, _ = line.WriteHistory(f)
		}()
	}
	loop(ctx, registry, &linerInput{line: line}, os.Stdout)
}

// Run reads commands from in until EOF or exit
func Run(ctx context.Context, registry *session.Registry, in io.Reader, out io.Writer) {
	loop(ctx, registry, &scannerInput{scanner: bufio.NewScanner(in), out: out}, out)
}

// input yields one line per call, io.EOF when the user is done
type input interface {
	ReadLine(prompt string) (string, error)
}

type scannerInput struct {
	scanner *bufio.Scanner
	out     io.Writer
}

func (s *scannerInput) ReadLine(prompt string) (string, error) {
	fmt.Fprint(s.out, prompt)
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return s.scanner.Text(), nil
}

type linerInput struct {
	line *liner.State
}

func (l *linerInput) ReadLine(prompt string) (string, error) {
	text, err := l.line.Prompt(prompt)
	if err == liner.ErrPromptAborted {
		return "", io.EOF
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) != "" {
		l.line.AppendHistory(text)
	}
	return text, nil
}

func loop(ctx context.Context, registry *session.Registry, in input, out io.Writer) {
	fmt.Fprintln(out, "Welcome to gridops")
	fmt.Fprintln(out, "Type 'help' for commands, 'exit' or '\\q' to quit.")

	r := &shell{registry: registry, out: out}
	for {
		text, err := in.ReadLine("> ")
		if err != nil {
			return
		}
		line := strings.TrimSpace(text)
		if line == "" {
			continue
		}
		if line == "exit" || line == "\\q" {
			return
		}

		// operation blocks may span lines
		if strings.HasPrefix(line, "operation ") {
			block := line
			for strings.Count(block, "{") > strings.Count(block, "}") {
				more, err := in.ReadLine("... ")
				if err != nil {
					break
				}
				block += "\n" + more
			}
			r.applySource(ctx, []byte(block), "<input>")
			continue
		}

		if err := r.exec(ctx, strings.Fields(line)); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
		}
	}
}

type shell struct {
	registry *session.Registry
	current  *session.Session
	out      io.Writer
}

func (r *shell) session() (*session.Session, error) {
	if r.current == nil {
		return nil, fmt.Errorf("no session selected, use 'use <name>' or 'import'")
	}
	return r.current, nil
}

func (r *shell) exec(ctx context.Context, args []string) error {
	switch args[0] {
	case "help":
		fmt.Fprintln(r.out, help)
	case "ls", "list":
		names, err := r.registry.List()
		if err != nil {
			return fmt.Errorf("listing sessions: %w", err)
		}
		fmt.Fprintln(r.out, "Available sessions:")
		for _, name := range names {
			fmt.Fprintf(r.out, "  - %s\n", name)
		}
	case "import":
		if len(args) < 3 {
			return fmt.Errorf("usage: import <name> <csv> [key]")
		}
		key := ""
		if len(args) > 3 {
			key = args[3]
		}
		s, err := r.registry.Import(args[1], args[2], key)
		if err != nil {
			return err
		}
		r.current = s
		fmt.Fprintf(r.out, "Imported %d rows into '%s'\n", s.Grid().RowCount(), s.Name())
	case "use":
		if len(args) != 2 {
			return fmt.Errorf("usage: use <name>")
		}
		s, err := r.registry.Get(args[1])
		if err != nil {
			return err
		}
		r.current = s
		fmt.Fprintf(r.out, "Using '%s'\n", s.Name())
	case "apply":
		if len(args) != 2 {
			return fmt.Errorf("usage: apply <file.hcl>")
		}
		src, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}
		r.applySource(ctx, src, args[1])
	case "show":
		s, err := r.session()
		if err != nil {
			return err
		}
		limit := defaultShowRows
		if len(args) > 1 {
			if limit, err = strconv.Atoi(args[1]); err != nil || limit < 0 {
				return fmt.Errorf("invalid row count %q", args[1])
			}
		}
		PrintGrid(r.out, s.Grid(), limit)
	case "history":
		s, err := r.session()
		if err != nil {
			return err
		}
		PrintHistory(r.out, s.History())
	case "undo":
		s, err := r.session()
		if err != nil {
			return err
		}
		step, ok := s.Undo()
		if !ok {
			return fmt.Errorf("nothing to undo")
		}
		fmt.Fprintf(r.out, "Undone: %s\n", step.Description)
	case "save":
		s, err := r.session()
		if err != nil {
			return err
		}
		if err := r.registry.Save(s.Name()); err != nil {
			return err
		}
		fmt.Fprintf(r.out, "Saved '%s'\n", s.Name())
	case "export":
		s, err := r.session()
		if err != nil {
			return err
		}
		if len(args) != 2 {
			return fmt.Errorf("usage: export <path>")
		}
		if err := writer.Save(args[1], s.Name(), s.Grid(), s.LastHistoryEntryID()); err != nil {
			return err
		}
		fmt.Fprintf(r.out, "Exported to %s\n", args[1])
	default:
		return fmt.Errorf("unknown command %q, type 'help'", args[0])
	}
	return nil
}

func (r *shell) applySource(ctx context.Context, src []byte, filename string) {
	s, err := r.session()
	if err != nil {
		fmt.Fprintf(r.out, "Error: %v\n", err)
		return
	}
	parsed, err := ops.DecodeBytes(src, filename)
	if err != nil {
		fmt.Fprintf(r.out, "Error: %v\n", err)
		return
	}
	steps, err := s.ApplyAll(ctx, parsed)
	PrintHistory(r.out, steps)
	if err != nil {
		fmt.Fprintf(r.out, "Error: %v\n", err)
	}
}

// PrintHistory prints one line per step
func PrintHistory(w io.Writer, steps []session.Step) {
	if len(steps) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "entry\toperation\tpreservation\trows\tdescription")
	for _, s := range steps {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", s.HistoryEntryID, s.Operation, s.Preservation, s.Rows, s.Description)
	}
	tw.Flush()
}

// PrintGrid prints the first limit rows of g as a table. Flagged rows are
// marked with !, starred rows with *.
func PrintGrid(w io.Writer, g grid.Grid, limit int) {
	cm := g.ColumnModel()
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	// Header - mark the record key column
	fmt.Fprint(tw, "#\t")
	for i, col := range cm.Columns() {
		if cm.HasRecords() && i == cm.KeyColumnIndex() {
			fmt.Fprintf(tw, "%s (key)", col.Name)
		} else {
			fmt.Fprint(tw, col.Name)
		}
		if i < cm.Width()-1 {
			fmt.Fprint(tw, "\t")
		}
	}
	fmt.Fprintln(tw)

	// Separator
	fmt.Fprint(tw, "---\t")
	for i := 0; i < cm.Width(); i++ {
		fmt.Fprint(tw, "---")
		if i < cm.Width()-1 {
			fmt.Fprint(tw, "\t")
		}
	}
	fmt.Fprintln(tw)

	// Rows
	rows := g.Rows()
	for n, r := range rows {
		if n == limit {
			break
		}
		marks := ""
		if r.Row.Flagged {
			marks += "!"
		}
		if r.Row.Starred {
			marks += "*"
		}
		fmt.Fprintf(tw, "%d%s\t", r.Index, marks)
		for i := 0; i < cm.Width(); i++ {
			cell := r.Row.Cell(i)
			switch {
			case cell.IsPending():
				fmt.Fprint(tw, "...")
			case cell.Value == nil:
				fmt.Fprint(tw, "NULL")
			default:
				fmt.Fprint(tw, cell.String())
			}
			if i < cm.Width()-1 {
				fmt.Fprint(tw, "\t")
			}
		}
		fmt.Fprintln(tw)
	}
	tw.Flush()
	if len(rows) > limit {
		fmt.Fprintf(w, "(%d of %d rows)\n", limit, len(rows))
	}
}
