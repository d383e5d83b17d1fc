package cli

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/leengari/gridops/internal/grid"
	"github.com/leengari/gridops/internal/ops"
	"github.com/leengari/gridops/internal/session"
	"github.com/leengari/gridops/internal/storage"
	"github.com/leengari/gridops/internal/storage/writer"
	"github.com/spf13/cobra"
)

type applyFlags struct {
	input       string
	opsFile     string
	output      string
	keyColumn   string
	metricsAddr string
}

func newApplyCommand(a *app) *cobra.Command {
	f := &applyFlags{}
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply an operations file to a CSV file or grid snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runApply(cmd, f)
		},
	}
	cmd.Flags().StringVarP(&f.input, "input", "i", "", "input CSV file or snapshot directory")
	cmd.Flags().StringVarP(&f.opsFile, "ops", "f", "", "operations file (HCL)")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "write the result as CSV (.csv) or a snapshot directory")
	cmd.Flags().StringVar(&f.keyColumn, "key-column", "", "CSV column that starts a new record when non-blank")
	cmd.Flags().StringVar(&f.metricsAddr, "metrics-addr", "", "serve metrics on this address while applying")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("ops")
	return cmd
}

func (a *app) runApply(cmd *cobra.Command, f *applyFlags) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	parsed, err := ops.Decode(f.opsFile)
	if err != nil {
		return err
	}
	opts, err := a.sessionOptions(ctx)
	if err != nil {
		return err
	}
	runner, err := a.newRunner()
	if err != nil {
		return err
	}
	defer runner.Close()

	name := strings.TrimSuffix(filepath.Base(f.input), filepath.Ext(f.input))
	var s *session.Session
	if storage.IsSnapshot(f.input) {
		g, meta, err := storage.LoadGrid(f.input, runner, a.logger)
		if err != nil {
			return err
		}
		if meta.Name != "" {
			name = meta.Name
		}
		s = session.Resume(name, g, meta.LastHistoryEntryID, opts)
	} else {
		g, err := storage.LoadCSV(f.input, f.keyColumn, runner, a.logger)
		if err != nil {
			return err
		}
		s = session.New(name, g, opts)
	}

	stopMetrics := a.startMetrics(f.metricsAddr)
	defer stopMetrics()

	steps, applyErr := s.ApplyAll(ctx, parsed)
	out := cmd.OutOrStdout()
	for _, step := range steps {
		a.logger.Info("operation applied",
			"history_entry_id", step.HistoryEntryID,
			"operation", step.Operation,
			"preservation", step.Preservation.String(),
			"elapsed", step.Elapsed,
		)
		fmt.Fprintf(out, "%-20s %-18s %s\n", step.Operation, step.Preservation, step.Description)
	}
	if applyErr != nil {
		return applyErr
	}
	fmt.Fprintf(out, "%d operations applied, %s\n", len(steps), summary(s.Grid()))

	if f.output == "" {
		return nil
	}
	if err := writer.Save(f.output, s.Name(), s.Grid(), s.LastHistoryEntryID()); err != nil {
		return err
	}
	a.logger.Info("result written", "path", f.output)
	return nil
}

func summary(g grid.Grid) string {
	return fmt.Sprintf("%d rows x %d columns", g.RowCount(), len(g.ColumnModel().ColumnNames()))
}
