package main

import (
	"context"
	"os/signal"
	"syscall"

	"shardctl/internal/deploy"
	"shardctl/internal/pipeline"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// watchCmd runs the pipeline continuously on trigger file changes
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the trigger file and run the pipeline on each change",
	Long: `Long-running mode: watches the trigger file's directory with
inotify, debounces rapid saves, and runs the same pipeline as 'sync'
each time the file settles. Stops cleanly on SIGINT/SIGTERM.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	r, cleanup := newRunner()
	defer cleanup()

	p, err := pipeline.New(cfg, r, nil)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	onChange := func(ctx context.Context) {
		report, err := p.Run(ctx, false)
		if err != nil {
			logger.Error("pipeline run failed", zap.Error(err))
			return
		}
		if report.Skipped {
			return
		}
		logger.Info("pipeline run complete",
			zap.String("state", report.State.String()),
			zap.Bool("artifacts_created", report.ArtifactsCreated),
			zap.Bool("ran_current", report.RanCurrent),
			zap.Bool("ran_next", report.RanNext),
			zap.Bool("notified", report.Notified))
	}

	tw, err := deploy.NewTriggerWatcher(cfg.Deploy.TriggerFile, onChange)
	if err != nil {
		return err
	}
	if err := tw.Start(ctx); err != nil {
		return err
	}
	defer tw.Stop()

	// Catch up on changes that happened while not running.
	onChange(ctx)

	logger.Info("watching", zap.String("trigger_file", cfg.Deploy.TriggerFile))
	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}
