package cli

import (
	"fmt"
	"net"
	"os/signal"
	"syscall"

	"github.com/leengari/gridops/internal/network"
	"github.com/spf13/cobra"
)

func newServeCommand(a *app) *cobra.Command {
	var (
		dir         string
		port        int
		metricsAddr string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve grid sessions over a JSON TCP protocol",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			registry, closeFn, err := a.openRegistry(ctx, dir)
			if err != nil {
				return err
			}
			defer closeFn()

			listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
			if err != nil {
				return fmt.Errorf("failed to bind to port %d: %w", port, err)
			}
			stopMetrics := a.startMetrics(metricsAddr)
			defer stopMetrics()

			a.logger.Info("Running on port", "port", port)
			return network.Serve(ctx, listener, registry)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "grids", "directory holding grid snapshots")
	cmd.Flags().IntVarP(&port, "port", "p", 4444, "port to listen on")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve metrics on this address")
	return cmd
}
