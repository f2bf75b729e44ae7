package main

import (
	"fmt"

	"shardctl/internal/pipeline"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var syncForce bool

// syncCmd runs one edge-triggered evaluation
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one edge-triggered evaluation of the sharding pipeline",
	Long: `Checks whether the trigger file has been modified since the last
committed evaluation. If so (or with --force), ensures the managed
artifacts exist, runs the deployment root's generation script per the
guard rules, and reloads the proxy if anything changed.

Intended to be invoked by the configuration-management run; it exits
immediately when the trigger is unchanged.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncForce, "force", false, "evaluate even if the trigger file is unchanged")
}

func runSync(cmd *cobra.Command, args []string) error {
	r, cleanup := newRunner()
	defer cleanup()

	p, err := pipeline.New(cfg, r, nil)
	if err != nil {
		return err
	}

	report, err := p.Run(cmd.Context(), syncForce)
	if err != nil {
		return err
	}

	if report.Skipped {
		logger.Info("trigger unchanged, nothing to do")
		return nil
	}

	logger.Info("sync complete",
		zap.String("state", report.State.String()),
		zap.Bool("artifacts_created", report.ArtifactsCreated),
		zap.Bool("ran_current", report.RanCurrent),
		zap.Bool("ran_next", report.RanNext),
		zap.Bool("notified", report.Notified))
	if report.NotifyErr != nil {
		// Artifact work succeeded; a failed reload is a warning, not a
		// failure (the next change will reload anyway).
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", report.NotifyErr)
	}
	return nil
}
