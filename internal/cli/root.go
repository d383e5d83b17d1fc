// Package cli wires the gridop commands together.
package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/leengari/gridops/internal/changedata"
	"github.com/leengari/gridops/internal/config"
	"github.com/leengari/gridops/internal/logging"
	"github.com/leengari/gridops/internal/metrics"
	"github.com/leengari/gridops/internal/operation"
	"github.com/leengari/gridops/internal/runner/local"
	"github.com/leengari/gridops/internal/session"
	"github.com/leengari/gridops/internal/storage"
	"github.com/spf13/cobra"
)

// Version is set at build time
var Version = "dev"

type app struct {
	configPath string
	cfg        config.Config
	logger     *slog.Logger
	closeLog   func()
}

// NewRootCommand builds the gridop command tree
func NewRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "gridop",
		Short:         "Apply column and row operations to tabular grids",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Load(config.EnvPrefix, a.configPath, &a.cfg); err != nil {
				return err
			}
			a.logger, a.closeLog = logging.SetupLogger(a.cfg.Log, cmd.ErrOrStderr())
			slog.SetDefault(a.logger)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.closeLog != nil {
				a.closeLog()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ./gridops.yaml)")

	root.AddCommand(
		newApplyCommand(a),
		newReplCommand(a),
		newServeCommand(a),
		newVersionCommand(),
	)
	return root
}

// sessionOptions opens the change data store and builds the options shared
// by every session
func (a *app) sessionOptions(ctx context.Context) (session.Options, error) {
	store, err := storage.OpenChangeStore(ctx, a.cfg.Store, a.cfg.Project.ID)
	if err != nil {
		return session.Options{}, err
	}
	a.logger.Debug("change data store opened", "backend", a.cfg.Store.Backend, "project", a.cfg.Project.ID)
	return session.Options{
		Store:     store,
		ProjectID: a.cfg.Project.ID,
		Logger:    a.logger,
		Progress: changedata.ProgressFunc(func(percent int) {
			a.logger.Debug("persisting change data", "progress", percent)
		}),
		Observers: []operation.Observer{operation.NewLoggingObserver(a.logger)},
	}, nil
}

func (a *app) newRunner() (*local.Runner, error) {
	return local.New(a.cfg.Runner.Workers, a.cfg.Runner.Partitions)
}

// startMetrics serves the metrics endpoint on addr until the returned
// function is called. An empty addr disables it.
func (a *app) startMetrics(addr string) func() {
	if addr == "" {
		return func() {}
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		a.logger.Info("metrics listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server failed", "error", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
