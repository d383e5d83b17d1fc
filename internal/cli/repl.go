package cli

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/leengari/gridops/internal/repl"
	"github.com/leengari/gridops/internal/session"
	"github.com/spf13/cobra"
)

func newReplCommand(a *app) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive shell over saved grids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			registry, closeFn, err := a.openRegistry(ctx, dir)
			if err != nil {
				return err
			}
			defer closeFn()
			if cmd.InOrStdin() == os.Stdin {
				repl.Start(ctx, registry, filepath.Join(dir, ".gridop_history"))
				return nil
			}
			repl.Run(ctx, registry, cmd.InOrStdin(), cmd.OutOrStdout())
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "grids", "directory holding grid snapshots")
	return cmd
}

// openRegistry returns a registry over dir. The close function saves every
// loaded session and releases the runner.
func (a *app) openRegistry(ctx context.Context, dir string) (*session.Registry, func(), error) {
	opts, err := a.sessionOptions(ctx)
	if err != nil {
		return nil, nil, err
	}
	runner, err := a.newRunner()
	if err != nil {
		return nil, nil, err
	}
	registry := session.NewRegistry(dir, runner, opts)
	return registry, func() {
		a.logger.Info("Shutting down - saving sessions...")
		registry.SaveAll()
		registry.Close()
		runner.Close()
	}, nil
}
