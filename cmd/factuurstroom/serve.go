package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dekker/factuurstroom/internal/config"
	"github.com/dekker/factuurstroom/internal/schedule"
	"github.com/dekker/factuurstroom/internal/service"
)

// pipelineRunner adapts executeRun to the scheduler.
type pipelineRunner struct {
	cfg   *config.Config
	store service.Storage
}

func (r *pipelineRunner) RunOnce(ctx context.Context) error {
	return executeRun(ctx, r.cfg, r.store)
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the pipeline periodically",
		Long: `Start the scheduler and process invoices on an interval until
interrupted. One run at a time; a tick that fires during a run is
skipped.`,
		RunE: runServe,
	}
	cmd.Flags().Bool("immediate", false, "run once immediately before the first tick")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := initStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runner := &pipelineRunner{cfg: cfg, store: store}
	scheduler := schedule.New(runner, slog.Default())

	if immediate, _ := cmd.Flags().GetBool("immediate"); immediate {
		if err := scheduler.RunOnce(ctx); err != nil {
			slog.Error("initial run failed", "error", err)
		}
	}

	if err := scheduler.Start(ctx, cfg.ScheduleSpec); err != nil {
		return err
	}

	<-ctx.Done()
	scheduler.Stop()
	return nil
}
