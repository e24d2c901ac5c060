package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pbsacct/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &Options{}

	root := &cobra.Command{
		Use:           "pbsacct",
		Short:         "Shred PBS accounting logs and rebuild activity rollups",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default $CONFIG_PATH or config/config.yaml)")
	root.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(
		newIngestCommand(opts),
		newAggregateCommand(opts),
		newServeCommand(opts),
		newMigrateCommand(opts),
	)
	return root
}

func newIngestCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Shred one accounting file (--in) or the new files of a directory (--dir)",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("in") && cmd.Flags().Changed("dir") {
				return errMutuallyExclusive
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOnce(cmd.Context(), opts, func(ctx context.Context, app *Application) error {
				return app.Ingest(ctx)
			})
		},
	}
	cmd.Flags().StringVar(&opts.In, "in", "", `single accounting file, "-" for stdin`)
	cmd.Flags().StringVar(&opts.Dir, "dir", "", "accounting directory (overrides shredder.log_dir)")
	cmd.Flags().StringVar(&opts.Host, "host", "", "host recorded for every event (overrides shredder.host)")
	return cmd
}

func newAggregateCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "aggregate",
		Short: "Rebuild intervals, activity rollups and CPU histograms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOnce(cmd.Context(), opts, func(ctx context.Context, app *Application) error {
				return app.Aggregate(ctx)
			})
		},
	}
}

func newMigrateCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the MySQL schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOnce(cmd.Context(), opts, func(ctx context.Context, app *Application) error {
				return app.Migrate(ctx)
			})
		},
	}
}

func newServeCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run scheduled ingest and aggregation with an operational HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.Serve = true
			app := NewApplication(opts)

			if err := app.Initialize(); err != nil {
				logger.ErrorCtx(app.ctx, "Application initialization failed: %v", err)
				return err
			}
			if err := app.Start(); err != nil {
				logger.ErrorCtx(app.ctx, "Application startup failed: %v", err)
				return err
			}

			// Wait for exit signal
			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			sig := <-quit
			logger.InfoCtx(app.ctx, "Received exit signal: %v", sig)

			if err := app.Shutdown(shutdownTimeout); err != nil {
				logger.ErrorCtx(app.ctx, "Application shutdown failed: %v", err)
				return err
			}
			logger.InfoCtx(app.ctx, "Application safely exited")
			return nil
		},
	}
}

// runOnce initializes the application, runs fn and closes everything
func runOnce(ctx context.Context, opts *Options, fn func(ctx context.Context, app *Application) error) error {
	app := NewApplication(opts)
	if err := app.Initialize(); err != nil {
		logger.ErrorCtx(ctx, "Application initialization failed: %v", err)
		_ = app.Shutdown(shutdownTimeout)
		return err
	}

	runErr := fn(app.ctx, app)
	if runErr != nil {
		logger.ErrorCtx(app.ctx, "%v", runErr)
	}
	if err := app.Shutdown(shutdownTimeout); err != nil {
		logger.ErrorCtx(app.ctx, "Application shutdown failed: %v", err)
		if runErr == nil {
			return err
		}
	}
	return runErr
}
